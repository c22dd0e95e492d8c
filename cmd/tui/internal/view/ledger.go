package view

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/till/internal/notify"
	"github.com/MrJamesThe3rd/till/internal/transaction"
)

const ledgerPageSize = 20

type ledgerState int

const (
	ledgerStateTimeframe ledgerState = iota
	ledgerStateList
	ledgerStateSearch
	ledgerStateDetail
	ledgerStateConfirm
)

// txItem wraps a transaction to implement list.Item.
type txItem struct {
	tx *transaction.Transaction
}

func (i txItem) Title() string {
	return fmt.Sprintf("%s  %12s  %3d items  %s",
		FormatDateTime(i.tx.CreatedAt), i.tx.TotalAmount().Format(), i.tx.TotalQuantity(), faintStyle.Render(i.tx.ID))
}

func (i txItem) Description() string {
	names := make([]string, 0, len(i.tx.Items))
	for _, it := range i.tx.Items {
		name := it.ProductName
		if name == "" {
			name = "(deleted product)"
		}

		names = append(names, fmt.Sprintf("%dx %s", it.Quantity, name))
	}

	return strings.Join(names, ", ")
}

func (i txItem) FilterValue() string { return i.tx.ID }

type LedgerModel struct {
	CommonModel
	txService *transaction.Service

	state           ledgerState
	timeframePicker TimeframePicker
	list            list.Model
	search          textinput.Model
	items           table.Model
	form            *huh.Form

	filter   transaction.Filter
	label    string
	page     int
	total    int
	selected *transaction.Transaction

	watchGen int
	cancel   context.CancelFunc
	status   string
	err      error
}

func NewLedgerModel(txSvc *transaction.Service) LedgerModel {
	l := list.New([]list.Item{}, txItemDelegate{}, 0, 0)
	l.Title = "Sales"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	si := textinput.New()
	si.Prompt = "Search: "
	si.Placeholder = "product name or transaction id"
	si.Width = 40

	return LedgerModel{
		txService:       txSvc,
		timeframePicker: NewTimeframePicker(TimeframeToday),
		list:            l,
		search:          si,
		items: newTable([]table.Column{
			{Title: "Product", Width: 28},
			{Title: "Qty", Width: 5},
			{Title: "Unit", Width: 12},
			{Title: "Disc/unit", Width: 12},
			{Title: "Total", Width: 12},
		}, 10),
	}
}

func (m LedgerModel) Title() string { return "Ledger" }

func (m LedgerModel) ShortHelp() string {
	switch m.state {
	case ledgerStateTimeframe:
		return "Esc: back | Enter: select"
	case ledgerStateList:
		return "Esc: back | Enter: details | /: search | n/p: page | t: timeframe"
	case ledgerStateSearch:
		return "Enter: apply | Esc: cancel"
	case ledgerStateDetail:
		return "Esc: back | x: remove item | D: delete sale"
	case ledgerStateConfirm:
		return "Enter: confirm | Esc: cancel"
	}

	return ""
}

func (m LedgerModel) Init() tea.Cmd {
	return nil
}

// Messages

type ledgerSnapshotMsg struct {
	gen   int
	txs   []*transaction.Transaction
	total int
	err   error
	next  <-chan notify.Snapshot[[]*transaction.Transaction]
}

type ledgerResultMsg struct {
	status string
	err    error
}

func (m LedgerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.filter = transaction.Filter{Start: msg.Start, End: msg.End}
		m.label = msg.Label
		m.page = 1
		m.state = ledgerStateList

		return m.watch()

	case ledgerSnapshotMsg:
		if msg.gen != m.watchGen {
			return m, nil
		}

		m.err = msg.err
		if msg.err == nil {
			m.setTransactions(msg.txs, msg.total)
		}

		return m, m.waitCmd(msg.gen, msg.next)

	case ledgerResultMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-10)
		m.items.SetHeight(max(msg.Height-14, 5))

		return m, nil
	}

	switch m.state {
	case ledgerStateTimeframe:
		return m.updateTimeframe(msg)
	case ledgerStateList:
		return m.updateList(msg)
	case ledgerStateSearch:
		return m.updateSearch(msg)
	case ledgerStateDetail:
		return m.updateDetail(msg)
	case ledgerStateConfirm:
		return m.updateConfirm(msg)
	}

	return m, nil
}

func (m LedgerModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc && m.timeframePicker.IsSelecting() {
			return m, Back
		}
	}

	var cmd tea.Cmd
	m.timeframePicker, cmd = m.timeframePicker.Update(msg)

	return m, cmd
}

func (m LedgerModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.stop()
			return m, Back
		case "t":
			m.stop()
			m.timeframePicker.Reset()
			m.state = ledgerStateTimeframe

			return m, nil
		case "/":
			m.search.SetValue(m.filter.Text)
			m.search.Focus()
			m.state = ledgerStateSearch

			return m, textinput.Blink
		case "n":
			if m.page < m.pageCount() {
				m.page++
				return m.watch()
			}

			return m, nil
		case "p":
			if m.page > 1 {
				m.page--
				return m.watch()
			}

			return m, nil
		case "enter":
			if it, ok := m.list.SelectedItem().(txItem); ok {
				m.showDetail(it.tx)
				m.state = ledgerStateDetail
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m LedgerModel) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			m.search.Blur()
			m.state = ledgerStateList

			return m, nil
		case tea.KeyEnter:
			m.search.Blur()
			m.filter.Text = strings.TrimSpace(m.search.Value())
			m.page = 1
			m.state = ledgerStateList

			return m.watch()
		}
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)

	return m, cmd
}

func (m LedgerModel) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.selected = nil
			m.state = ledgerStateList

			return m, nil
		case "x":
			idx := m.items.Cursor()
			if m.selected == nil || idx >= len(m.selected.Items) {
				return m, nil
			}

			return m, m.removeItemCmd(m.selected.Items[idx].ID)
		case "D":
			if m.selected == nil {
				return m, nil
			}

			m.form = huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Key("confirm").
					Title(fmt.Sprintf("Delete sale %s?", m.selected.ID)).
					Affirmative("Delete").
					Negative("Keep"),
			)).WithWidth(50).WithShowHelp(false)
			m.state = ledgerStateConfirm

			return m, m.form.Init()
		}
	}

	var cmd tea.Cmd
	m.items, cmd = m.items.Update(msg)

	return m, cmd
}

func (m LedgerModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form = nil
		m.state = ledgerStateDetail

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
	m.form = nil

	if !confirmed {
		m.state = ledgerStateDetail
		return m, nil
	}

	id := m.selected.ID
	m.selected = nil
	m.state = ledgerStateList

	return m, m.deleteCmd(id)
}

// watch restarts the live query for the current filter and page. Snapshots
// from an earlier watch are dropped by generation.
func (m LedgerModel) watch() (tea.Model, tea.Cmd) {
	m.stop()
	m.watchGen++
	m.err = nil
	m.status = ""

	ctx, cancel := context.WithCancel(context.Background())

	ch, err := m.txService.Watch(ctx, m.filter, transaction.PageAt(m.page-1, ledgerPageSize))
	if err != nil {
		cancel()
		m.err = err

		return m, nil
	}

	m.cancel = cancel

	return m, m.waitCmd(m.watchGen, ch)
}

func (m *LedgerModel) stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m LedgerModel) waitCmd(gen int, ch <-chan notify.Snapshot[[]*transaction.Transaction]) tea.Cmd {
	svc, filter := m.txService, m.filter

	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}

		if snap.Err != nil {
			return ledgerSnapshotMsg{gen: gen, err: snap.Err, next: ch}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		total, err := svc.Count(ctx, filter)

		return ledgerSnapshotMsg{gen: gen, txs: snap.Value, total: total, err: err, next: ch}
	}
}

func (m *LedgerModel) setTransactions(txs []*transaction.Transaction, total int) {
	m.total = total

	items := make([]list.Item, len(txs))
	for i, tx := range txs {
		items[i] = txItem{tx: tx}
	}

	m.list.SetItems(items)
	m.list.Title = fmt.Sprintf("Sales: %s (page %d of %d, %d total)", m.label, m.page, m.pageCount(), total)

	if m.selected == nil {
		return
	}

	for _, tx := range txs {
		if tx.ID == m.selected.ID {
			m.showDetail(tx)
			return
		}
	}

	m.selected = nil
	if m.state == ledgerStateDetail {
		m.state = ledgerStateList
	}
}

func (m LedgerModel) pageCount() int {
	return max((m.total+ledgerPageSize-1)/ledgerPageSize, 1)
}

func (m *LedgerModel) showDetail(tx *transaction.Transaction) {
	m.selected = tx

	rows := make([]table.Row, len(tx.Items))
	for i, it := range tx.Items {
		name := it.ProductName
		if name == "" {
			name = faintStyle.Render("(deleted product)")
		}

		rows[i] = table.Row{
			name,
			strconv.Itoa(it.Quantity),
			it.UnitPrice.Format(),
			it.DiscountAmount.Format(),
			it.TotalPrice().Format(),
		}
	}

	m.items.SetRows(rows)

	if m.items.Cursor() >= len(rows) {
		m.items.SetCursor(max(len(rows)-1, 0))
	}
}

func (m LedgerModel) removeItemCmd(itemID int64) tea.Cmd {
	svc := m.txService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := svc.RemoveItem(ctx, itemID); err != nil {
			return ledgerResultMsg{err: err}
		}

		return ledgerResultMsg{status: "Item removed."}
	}
}

func (m LedgerModel) deleteCmd(id string) tea.Cmd {
	svc := m.txService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := svc.Delete(ctx, id); err != nil {
			return ledgerResultMsg{err: err}
		}

		return ledgerResultMsg{status: fmt.Sprintf("Sale %s deleted.", id)}
	}
}

func (m LedgerModel) View() string {
	var content string

	switch m.state {
	case ledgerStateTimeframe:
		content = m.timeframePicker.View()
	case ledgerStateList:
		content = m.list.View()
	case ledgerStateSearch:
		content = m.search.View() + "\n\n" + m.list.View()
	case ledgerStateDetail, ledgerStateConfirm:
		content = m.detailView()
		if m.form != nil {
			content += "\n\n" + m.form.View()
		}
	}

	switch {
	case m.err != nil:
		content += "\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	case m.status != "":
		content += "\n" + okStyle.Render(m.status)
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m LedgerModel) detailView() string {
	if m.selected == nil {
		return ""
	}

	tx := m.selected
	header := boxStyle.Render(fmt.Sprintf(
		"Sale %s  |  %s\nTotal: %s  |  Discount: %s  |  Items: %d",
		tx.ID,
		FormatDateTime(tx.CreatedAt),
		tx.TotalAmount().Format(),
		tx.TotalDiscount().Format(),
		tx.TotalQuantity(),
	))

	return header + "\n" + m.items.View()
}

// txItemDelegate renders items in the list.
type txItemDelegate struct{}

func (d txItemDelegate) Height() int                             { return 2 }
func (d txItemDelegate) Spacing() int                            { return 0 }
func (d txItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d txItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(txItem)
	if !ok {
		return
	}

	title := i.Title()
	if index == m.Index() {
		title = activeStyle("> " + title)
	}

	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintf(w, "    %s\n", faintStyle.Render(truncate(i.Description(), max(m.Width()-6, 10))))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}

	return string(r[:width-1]) + "…"
}
