package view

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/till/internal/catalog"
	"github.com/MrJamesThe3rd/till/internal/importer"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateFormatSelect importState = iota
	importStateFilePick
	importStateImporting
	importStateResult
)

type ImportModel struct {
	CommonModel
	catalogService *catalog.Service
	importService  *importer.Service

	state          importState
	filePicker     filepicker.Model
	selectedFormat importer.Format
	formatOptions  []importer.Format
	formatCursor   int

	status string
	err    error
}

func NewImportModel(catalogSvc *catalog.Service, impSvc *importer.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		catalogService: catalogSvc,
		importService:  impSvc,
		filePicker:     fp,
		formatOptions:  []importer.Format{importer.FormatCSV},
	}
}

func (m ImportModel) Title() string { return "Import Products" }

func (m ImportModel) ShortHelp() string {
	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateFormatSelect {
			return m.updateFormatSelect(msg)
		}

	case importResultMsg:
		m.state = importStateResult

		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.err = nil
		created, updated := len(msg.result.Created), len(msg.result.Updated)
		m.status = fmt.Sprintf("Imported %d rows: %d new products, %d updated.", created+updated, created, updated)

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick:
		m.state = importStateFormatSelect
		return m, nil
	case importStateResult:
		m.state = importStateFormatSelect
		m.err = nil
		m.status = ""

		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateFormatSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.formatCursor > 0 {
			m.formatCursor--
		}
	case tea.KeyDown:
		if m.formatCursor < len(m.formatOptions)-1 {
			m.formatCursor++
		}
	case tea.KeyEnter:
		m.selectedFormat = m.formatOptions[m.formatCursor]
		m.state = importStateFilePick

		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFormatSelect:
		return m.viewFormatSelect()
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select file to import (%s):\n\n%s", m.selectedFormat, m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewFormatSelect() string {
	s := "Select Format:\n\n"

	for i, f := range m.formatOptions {
		cursor := " "
		if i == m.formatCursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, string(f))
	}

	s += faintStyle.Render("\nColumns: name, barcode, price. Products with a known barcode are updated.")

	return lipgloss.NewStyle().Padding(2).Render(s)
}

func (m ImportModel) viewResult() string {
	style := okStyle
	if m.err != nil {
		style = errorStyle
	}

	return lipgloss.NewStyle().Padding(2).Render(style.Render(m.status) + "\n\n(Esc to go back)")
}

// Messages

type importResultMsg struct {
	result *catalog.ImportResult
	err    error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	format := m.selectedFormat

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		params, err := m.importService.Import(format, f)
		if err != nil {
			return importResultMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := m.catalogService.ImportBatch(ctx, params)
		if err != nil {
			return importResultMsg{err: err}
		}

		return importResultMsg{result: result}
	}
}
