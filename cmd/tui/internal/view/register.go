package view

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/till/internal/cart"
	"github.com/MrJamesThe3rd/till/internal/register"
)

type registerFocus int

const (
	registerFocusInput registerFocus = iota
	registerFocusCart
	registerFocusForm
)

type registerForm int

const (
	registerFormItemDiscount registerForm = iota
	registerFormCartDiscount
	registerFormCheckout
)

type RegisterModel struct {
	CommonModel
	session *register.Session

	focus registerFocus
	input textinput.Model
	table table.Model
	cart  cart.Cart

	form     *huh.Form
	formKind registerForm

	status string
	err    error
}

func NewRegisterModel(session *register.Session) RegisterModel {
	ti := textinput.New()
	ti.Placeholder = "barcode or product id, 3*code for quantity"
	ti.Prompt = "Scan: "
	ti.Width = 40
	ti.Focus()

	t := newTable([]table.Column{
		{Title: "#", Width: 3},
		{Title: "Product", Width: 28},
		{Title: "Qty", Width: 5},
		{Title: "Unit", Width: 12},
		{Title: "Disc", Width: 5},
		{Title: "Total", Width: 12},
	}, 12)
	t.Blur()

	return RegisterModel{
		session: session,
		input:   ti,
		table:   t,
		cart:    session.Cart(),
	}
}

func (m RegisterModel) Title() string { return "Register" }

func (m RegisterModel) ShortHelp() string {
	switch m.focus {
	case registerFocusCart:
		return "+/-: qty | x: remove | d: item discount | D: cart discount | c: checkout | C: clear | Tab/Esc: scan"
	case registerFocusForm:
		return "Enter: confirm | Esc: cancel"
	}

	return "Enter: add | Tab: edit cart | Esc: back"
}

func (m RegisterModel) Init() tea.Cmd {
	return textinput.Blink
}

// Messages

type cartMsg struct {
	cart cart.Cart
	err  error
}

type checkoutMsg struct {
	id    string
	total string
	err   error
}

func (m RegisterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case cartMsg:
		m.setCart(msg.cart)
		m.err = msg.err

		if msg.err == nil {
			m.status = ""
		}

		return m, nil

	case checkoutMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = fmt.Sprintf("Sale %s recorded: %s", msg.id, msg.total)
			m.setCart(m.session.Cart())
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-16, 5))
		return m, nil
	}

	switch m.focus {
	case registerFocusInput:
		return m.updateInput(msg)
	case registerFocusCart:
		return m.updateCart(msg)
	case registerFocusForm:
		return m.updateForm(msg)
	}

	return m, nil
}

func (m RegisterModel) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			return m, Back
		case tea.KeyTab:
			if m.cart.IsEmpty() {
				return m, nil
			}

			m.focus = registerFocusCart
			m.input.Blur()
			m.table.Focus()

			return m, nil
		case tea.KeyEnter:
			entry := m.input.Value()
			m.input.SetValue("")

			return m, m.addCmd(entry)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m RegisterModel) updateCart(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	idx := m.table.Cursor()
	items := m.cart.Items()

	switch keyMsg.String() {
	case "esc", "tab":
		m.focus = registerFocusInput
		m.table.Blur()
		m.input.Focus()

		return m, textinput.Blink
	case "+":
		if idx < len(items) {
			return m, m.mutate(func() (cart.Cart, error) { return m.session.SetQuantity(idx, items[idx].Quantity+1) })
		}
	case "-":
		if idx < len(items) {
			return m, m.mutate(func() (cart.Cart, error) { return m.session.SetQuantity(idx, items[idx].Quantity-1) })
		}
	case "x":
		if idx < len(items) {
			return m, m.mutate(func() (cart.Cart, error) { return m.session.RemoveItem(idx) })
		}
	case "C":
		m.setCart(m.session.Clear())
		return m, nil
	case "d":
		if idx < len(items) {
			return m.openForm(registerFormItemDiscount, items[idx].DiscountPercent)
		}
	case "D":
		return m.openForm(registerFormCartDiscount, m.cart.DiscountPercent())
	case "c":
		return m.openForm(registerFormCheckout, 0)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m RegisterModel) openForm(kind registerForm, current int) (tea.Model, tea.Cmd) {
	m.formKind = kind
	percent := strconv.Itoa(current)
	confirm := true

	var field huh.Field

	switch kind {
	case registerFormCheckout:
		field = huh.NewConfirm().
			Key("confirm").
			Title(fmt.Sprintf("Charge %s?", m.cart.Totals().FinalTotal)).
			Affirmative("Checkout").
			Negative("Cancel").
			Value(&confirm)
	default:
		title := "Item discount (%)"
		if kind == registerFormCartDiscount {
			title = "Cart discount (%)"
		}

		field = huh.NewInput().
			Key("percent").
			Title(title).
			Value(&percent).
			Validate(func(s string) error {
				_, err := parsePercent(s)
				return err
			})
	}

	m.form = huh.NewForm(huh.NewGroup(field)).WithWidth(40).WithShowHelp(false)
	m.focus = registerFocusForm
	m.table.Blur()

	return m, m.form.Init()
}

func (m RegisterModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m.closeForm(), nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	kind, idx := m.formKind, m.table.Cursor()
	percent, _ := parsePercent(m.form.GetString("percent"))
	confirmed := m.form.GetBool("confirm")
	m = m.closeForm()

	switch kind {
	case registerFormItemDiscount:
		return m, m.mutate(func() (cart.Cart, error) { return m.session.SetItemDiscount(idx, percent) })
	case registerFormCartDiscount:
		return m, m.mutate(func() (cart.Cart, error) { return m.session.SetCartDiscount(percent) })
	case registerFormCheckout:
		if confirmed {
			return m, m.checkoutCmd()
		}
	}

	return m, nil
}

func (m RegisterModel) closeForm() RegisterModel {
	m.form = nil
	m.focus = registerFocusCart
	m.table.Focus()

	return m
}

func (m *RegisterModel) setCart(c cart.Cart) {
	m.cart = c

	items := c.Items()
	rows := make([]table.Row, len(items))

	for i, it := range items {
		disc := ""
		if it.DiscountPercent > 0 {
			disc = fmt.Sprintf("%d%%", it.DiscountPercent)
		}

		rows[i] = table.Row{
			strconv.Itoa(i + 1),
			it.Product.Name,
			strconv.Itoa(it.Quantity),
			it.UnitPrice.Format(),
			disc,
			it.TotalPrice().Format(),
		}
	}

	m.table.SetRows(rows)

	if c.IsEmpty() && m.focus == registerFocusCart {
		m.focus = registerFocusInput
		m.table.Blur()
		m.input.Focus()
	}
}

func (m RegisterModel) View() string {
	t := m.cart.Totals()

	totals := fmt.Sprintf(
		"Items: %d\nSubtotal: %s\nItem discounts: -%s\nCart discount (%d%%): -%s\n%s",
		t.TotalQuantity,
		t.OriginalSubtotal,
		t.ItemDiscountTotal,
		m.cart.DiscountPercent(),
		t.CartDiscountAmount,
		lipgloss.NewStyle().Bold(true).Render("Total: "+t.FinalTotal.Format()),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(m.table.View()),
		boxStyle.MarginLeft(1).Render(totals),
	)

	content := lipgloss.JoinVertical(lipgloss.Left, m.input.View(), "", body)

	if m.focus == registerFocusForm && m.form != nil {
		content = lipgloss.JoinVertical(lipgloss.Left, content, "", m.form.View())
	}

	switch {
	case m.err != nil:
		content += "\n\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	case m.status != "":
		content += "\n\n" + okStyle.Render(m.status)
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m RegisterModel) mutate(fn func() (cart.Cart, error)) tea.Cmd {
	return func() tea.Msg {
		c, err := fn()
		return cartMsg{cart: c, err: err}
	}
}

// addCmd scans entry as a barcode and falls back to a product id.
func (m RegisterModel) addCmd(entry string) tea.Cmd {
	qty, code, err := parseEntry(entry)
	if err != nil {
		return func() tea.Msg { return cartMsg{cart: m.session.Cart(), err: err} }
	}

	if code == "" {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		c, err := m.session.Scan(ctx, code, qty)
		if errors.Is(err, register.ErrProductNotFound) {
			c, err = m.session.Add(ctx, code, qty)
		}

		return cartMsg{cart: c, err: err}
	}
}

func (m RegisterModel) checkoutCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		tx, err := m.session.Checkout(ctx)
		if err != nil {
			return checkoutMsg{err: err}
		}

		return checkoutMsg{id: tx.ID, total: tx.TotalAmount().Format()}
	}
}

// parseEntry splits "3*4006381333931" into a quantity and a code. A bare code
// means one unit.
func parseEntry(s string) (int, string, error) {
	s = strings.TrimSpace(s)

	qtyText, code, found := strings.Cut(s, "*")
	if !found {
		return 1, s, nil
	}

	qty, err := strconv.Atoi(strings.TrimSpace(qtyText))
	if err != nil || qty <= 0 {
		return 0, "", fmt.Errorf("invalid quantity %q", qtyText)
	}

	return qty, strings.TrimSpace(code), nil
}

func parsePercent(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")))
	if err != nil || n < 0 || n > 100 {
		return 0, errors.New("enter a whole number between 0 and 100")
	}

	return n, nil
}
