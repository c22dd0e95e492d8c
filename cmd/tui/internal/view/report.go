package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/till/internal/report"
	"github.com/MrJamesThe3rd/till/internal/transaction"
)

const reportTimeout = 2 * time.Minute

type reportState int

const (
	reportStateTimeframe reportState = iota
	reportStateRunning
	reportStateSummary
	reportStatePath
)

type ReportModel struct {
	CommonModel
	reportService *report.Service

	state           reportState
	err             error
	timeframePicker TimeframePicker

	filter transaction.Filter
	label  string

	form    *huh.Form
	path    string
	spinner spinner.Model
	summary string
	status  string
}

func NewReportModel(svc *report.Service) ReportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle

	return ReportModel{
		reportService:   svc,
		state:           reportStateTimeframe,
		timeframePicker: NewTimeframePicker(TimeframeToday),
		path:            "./reports",
		spinner:         s,
	}
}

func (m ReportModel) Title() string { return "Sales Report" }

func (m ReportModel) ShortHelp() string {
	switch m.state {
	case reportStateSummary:
		return "s: save CSV | t: timeframe | Esc: back"
	case reportStateRunning:
		return "Working..."
	}

	return "Esc: back | Enter: confirm"
}

func (m ReportModel) Init() tea.Cmd {
	return nil
}

func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if tfMsg, ok := msg.(TimeframeSelectedMsg); ok {
		m.filter = transaction.Filter{Start: tfMsg.Start, End: tfMsg.End}
		m.label = tfMsg.Label
		m.state = reportStateRunning
		m.err = nil
		m.status = ""

		return m, tea.Batch(m.spinner.Tick, m.summarizeCmd())
	}

	switch m.state {
	case reportStateTimeframe:
		return m.updateTimeframe(msg)
	case reportStateRunning:
		return m.updateRunning(msg)
	case reportStateSummary:
		return m.updateSummary(msg)
	case reportStatePath:
		return m.updatePath(msg)
	}

	return m, nil
}

func (m ReportModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc && m.timeframePicker.IsSelecting() {
			return m, Back
		}
	}

	var cmd tea.Cmd
	m.timeframePicker, cmd = m.timeframePicker.Update(msg)

	return m, cmd
}

func (m ReportModel) updateRunning(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryResultMsg:
		m.state = reportStateSummary
		m.err = msg.err
		m.summary = msg.body

		return m, nil
	case saveResultMsg:
		m.state = reportStateSummary
		m.err = msg.err

		if msg.err == nil {
			m.status = fmt.Sprintf("Saved %s", msg.path)
		}

		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)

	return m, cmd
}

func (m ReportModel) updateSummary(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "esc":
		return m, Back
	case "t":
		m.state = reportStateTimeframe
		m.timeframePicker.Reset()

		return m, nil
	case "s":
		if m.err != nil {
			return m, nil
		}

		m.form = m.buildPathForm()
		m.state = reportStatePath

		return m, m.form.Init()
	}

	return m, nil
}

func (m ReportModel) updatePath(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = reportStateSummary
			m.form = nil

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.path = m.form.GetString("path")
	m.form = nil
	m.state = reportStateRunning
	m.err = nil

	return m, tea.Batch(m.spinner.Tick, m.saveCmd(m.path))
}

func (m ReportModel) buildPathForm() *huh.Form {
	path := m.path

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("path").
				Title("Output Path").
				Description("Directory will be created if it doesn't exist").
				Placeholder("./reports").
				Value(&path),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ReportModel) View() string {
	switch m.state {
	case reportStateTimeframe:
		return lipgloss.NewStyle().Padding(1).Render(m.timeframePicker.View())

	case reportStateRunning:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("%s Building report for %s...", m.spinner.View(), m.label),
		)

	case reportStateSummary:
		return m.viewSummary()

	case reportStatePath:
		return lipgloss.NewStyle().Padding(1).Render(m.form.View())
	}

	return ""
}

func (m ReportModel) viewSummary() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(1).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	header := lipgloss.NewStyle().Bold(true).Render("Sales: " + m.label)

	content := lipgloss.JoinVertical(lipgloss.Left, header, "", m.summary)
	if m.status != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, content, okStyle.Render(m.status))
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

type summaryResultMsg struct {
	body string
	err  error
}

type saveResultMsg struct {
	path string
	err  error
}

func (m ReportModel) summarizeCmd() tea.Cmd {
	svc, filter := m.reportService, m.filter

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()

		sum, err := svc.Summarize(ctx, filter)
		if err != nil {
			return summaryResultMsg{err: err}
		}

		return summaryResultMsg{body: svc.Text(sum)}
	}
}

func (m ReportModel) saveCmd(dir string) tea.Cmd {
	svc, filter := m.reportService, m.filter

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return saveResultMsg{err: fmt.Errorf("create output dir: %w", err)}
		}

		path := filepath.Join(dir, fmt.Sprintf("sales-%s.csv", time.Now().Format("20060102-150405")))

		f, err := os.Create(path)
		if err != nil {
			return saveResultMsg{err: err}
		}
		defer f.Close()

		if err := svc.WriteCSV(ctx, f, filter); err != nil {
			return saveResultMsg{err: err}
		}

		return saveResultMsg{path: path}
	}
}
