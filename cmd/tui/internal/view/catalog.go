package view

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/till/internal/catalog"
	"github.com/MrJamesThe3rd/till/internal/money"
	"github.com/MrJamesThe3rd/till/internal/notify"
)

type catalogState int

const (
	catalogStateList catalogState = iota
	catalogStateEditing
	catalogStateConfirm
)

type productItem struct {
	p *catalog.Product
}

func (i productItem) Title() string { return i.p.Name }

func (i productItem) Description() string {
	barcode := "no barcode"
	if i.p.Barcode != nil {
		barcode = *i.p.Barcode
	}

	return fmt.Sprintf("%s  |  %s", i.p.Price.Format(), barcode)
}

func (i productItem) FilterValue() string {
	if i.p.Barcode != nil {
		return i.p.Name + " " + *i.p.Barcode
	}

	return i.p.Name
}

type CatalogModel struct {
	CommonModel
	catalogService *catalog.Service
	currency       string

	state    catalogState
	list     list.Model
	form     *huh.Form
	editing  *catalog.Product // nil while adding
	deleting *catalog.Product

	cancel context.CancelFunc
	status string
	err    error
}

func NewCatalogModel(svc *catalog.Service, currency string) CatalogModel {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Products"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return CatalogModel{
		catalogService: svc,
		currency:       strings.ToUpper(currency),
		list:           l,
	}
}

func (m CatalogModel) Title() string { return "Catalog" }

func (m CatalogModel) ShortHelp() string {
	switch m.state {
	case catalogStateEditing, catalogStateConfirm:
		return "Esc: cancel | Enter/Tab: navigate form"
	}

	return "Esc: back | /: filter | a: add | e: edit | x: delete"
}

// Init starts watching the catalog. The subscription lives until the view is
// left with Esc.
func (m CatalogModel) Init() tea.Cmd {
	svc := m.catalogService

	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		return catalogWatchMsg{ch: svc.Watch(ctx), cancel: cancel}
	}
}

// Messages

type catalogWatchMsg struct {
	ch     <-chan notify.Snapshot[[]*catalog.Product]
	cancel context.CancelFunc
}

type productsMsg struct {
	products []*catalog.Product
	err      error
	next     <-chan notify.Snapshot[[]*catalog.Product]
}

type productSavedMsg struct {
	status string
	err    error
}

func waitProducts(ch <-chan notify.Snapshot[[]*catalog.Product]) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}

		return productsMsg{products: snap.Value, err: snap.Err, next: ch}
	}
}

func (m CatalogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case catalogWatchMsg:
		m.cancel = msg.cancel
		return m, waitProducts(msg.ch)

	case productsMsg:
		m.err = msg.err
		if msg.err == nil {
			items := make([]list.Item, len(msg.products))
			for i, p := range msg.products {
				items[i] = productItem{p: p}
			}

			cmd := m.list.SetItems(items)

			return m, tea.Batch(cmd, waitProducts(msg.next))
		}

		return m, waitProducts(msg.next)

	case productSavedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	}

	switch m.state {
	case catalogStateList:
		return m.updateList(msg)
	case catalogStateEditing:
		return m.updateEditing(msg)
	case catalogStateConfirm:
		return m.updateConfirm(msg)
	}

	return m, nil
}

func (m CatalogModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch keyMsg.String() {
		case "esc":
			if m.list.FilterState() == list.FilterApplied {
				break // let the list clear the filter
			}

			if m.cancel != nil {
				m.cancel()
			}

			return m, Back
		case "a":
			return m.startEditing(nil)
		case "e":
			if it, ok := m.list.SelectedItem().(productItem); ok {
				return m.startEditing(it.p)
			}

			return m, nil
		case "x":
			it, ok := m.list.SelectedItem().(productItem)
			if !ok {
				return m, nil
			}

			m.deleting = it.p
			m.form = huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Key("confirm").
					Title(fmt.Sprintf("Delete %s?", it.p.Name)).
					Description("Past sales keep their lines but lose the product name.").
					Affirmative("Delete").
					Negative("Keep"),
			)).WithWidth(50).WithShowHelp(false)
			m.state = catalogStateConfirm

			return m, m.form.Init()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m CatalogModel) startEditing(p *catalog.Product) (tea.Model, tea.Cmd) {
	m.editing = p

	var name, barcode, price string
	if p != nil {
		name = p.Name
		price = p.Price.Amount().String()

		if p.Barcode != nil {
			barcode = *p.Barcode
		}
	}

	currency := m.currency

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("Name").
				Value(&name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name cannot be empty")
					}
					return nil
				}),

			huh.NewInput().
				Key("barcode").
				Title("Barcode (optional)").
				Value(&barcode),

			huh.NewInput().
				Key("price").
				Title(fmt.Sprintf("Price (%s)", currency)).
				Placeholder("0.00").
				Value(&price).
				Validate(func(s string) error {
					_, err := money.Parse(currency, s)
					return err
				}),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = catalogStateEditing

	return m, m.form.Init()
}

func (m CatalogModel) updateEditing(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = catalogStateList
		m.form = nil

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	name := strings.TrimSpace(m.form.GetString("name"))
	barcode := strings.TrimSpace(m.form.GetString("barcode"))
	price, _ := money.Parse(m.currency, m.form.GetString("price")) // validated by the form
	editing := m.editing

	m.form = nil
	m.editing = nil
	m.state = catalogStateList

	return m, m.saveCmd(editing, catalog.CreateParams{Name: name, Barcode: barcode, Price: price})
}

func (m CatalogModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = catalogStateList
		m.form = nil

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	confirmed := m.form.GetBool("confirm")
	target := m.deleting

	m.form = nil
	m.deleting = nil
	m.state = catalogStateList

	if !confirmed || target == nil {
		return m, nil
	}

	return m, m.deleteCmd(target)
}

func (m CatalogModel) saveCmd(existing *catalog.Product, params catalog.CreateParams) tea.Cmd {
	svc := m.catalogService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if existing == nil {
			p, err := svc.Create(ctx, params)
			if err != nil {
				return productSavedMsg{err: err}
			}

			return productSavedMsg{status: fmt.Sprintf("Added %s.", p.Name)}
		}

		updated := &catalog.Product{ID: existing.ID, Name: params.Name, Price: params.Price}
		if params.Barcode != "" {
			updated.Barcode = &params.Barcode
		}

		if err := svc.Update(ctx, updated); err != nil {
			return productSavedMsg{err: err}
		}

		return productSavedMsg{status: fmt.Sprintf("Saved %s.", updated.Name)}
	}
}

func (m CatalogModel) deleteCmd(p *catalog.Product) tea.Cmd {
	svc := m.catalogService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := svc.Delete(ctx, p.ID); err != nil {
			return productSavedMsg{err: err}
		}

		return productSavedMsg{status: fmt.Sprintf("Deleted %s.", p.Name)}
	}
}

func (m CatalogModel) View() string {
	var content string

	switch m.state {
	case catalogStateList:
		content = m.list.View()
	case catalogStateEditing:
		title := "New product"
		if m.editing != nil {
			title = "Edit " + m.editing.Name
		}

		content = lipgloss.JoinVertical(lipgloss.Left, lipgloss.NewStyle().Bold(true).Render(title), "", m.form.View())
	case catalogStateConfirm:
		content = m.form.View()
	}

	switch {
	case m.err != nil:
		content += "\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	case m.status != "":
		content += "\n" + okStyle.Render(m.status)
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}
