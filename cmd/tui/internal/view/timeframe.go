package view

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Timeframe represents a predefined or custom date range selection.
type Timeframe int

const (
	TimeframeToday Timeframe = iota
	TimeframeThisWeek
	TimeframeLastWeek
	TimeframeThisMonth
	TimeframeLastMonth
	TimeframeAll
	TimeframeCustom
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeToday:
		return "Today"
	case TimeframeThisWeek:
		return "This Week"
	case TimeframeLastWeek:
		return "Last Week"
	case TimeframeThisMonth:
		return "This Month"
	case TimeframeLastMonth:
		return "Last Month"
	case TimeframeAll:
		return "All Time"
	case TimeframeCustom:
		return "Custom Range"
	}

	return "Unknown"
}

// dateRange returns the whole local days covered by tf as of now. Weeks start
// on Monday.
func dateRange(tf Timeframe, now time.Time) (time.Time, time.Time) {
	today := startOfDay(now)

	var start, end time.Time

	switch tf {
	case TimeframeToday:
		start, end = today, today
	case TimeframeThisWeek:
		start = today.AddDate(0, 0, -daysSinceMonday(today))
		end = today
	case TimeframeLastWeek:
		end = today.AddDate(0, 0, -daysSinceMonday(today)-1)
		start = end.AddDate(0, 0, -6)
	case TimeframeThisMonth:
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		end = today
	case TimeframeLastMonth:
		start = time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, today.Location())
		end = start.AddDate(0, 1, -1)
	}

	return start, endOfDay(end)
}

func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// TimeframeSelectedMsg is emitted when the user has selected a valid date range.
// Start and End are nil for All Time.
type TimeframeSelectedMsg struct {
	Start *time.Time
	End   *time.Time
	Label string
}

type timeframeState int

const (
	timeframeStateSelect timeframeState = iota
	timeframeStateCustom
)

// TimeframePicker is a reusable component for selecting a date range.
type TimeframePicker struct {
	state    timeframeState
	selected Timeframe
	minFrame Timeframe

	startInput textinput.Model
	endInput   textinput.Model
	focusIndex int

	err error
}

// NewTimeframePicker creates a picker starting from the given minimum timeframe.
func NewTimeframePicker(minFrame Timeframe) TimeframePicker {
	si := textinput.New()
	si.Placeholder = "YYYY-MM-DD"
	si.CharLimit = 10
	si.Width = 12
	si.Prompt = "Start Date: "

	ei := textinput.New()
	ei.Placeholder = "YYYY-MM-DD"
	ei.CharLimit = 10
	ei.Width = 12
	ei.Prompt = "End Date:   "

	return TimeframePicker{
		state:      timeframeStateSelect,
		selected:   minFrame,
		minFrame:   minFrame,
		startInput: si,
		endInput:   ei,
	}
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch m.state {
		case timeframeStateSelect:
			return m.updateSelect(msg)
		case timeframeStateCustom:
			if next, cmd, handled := m.updateCustom(msg); handled {
				return next, cmd
			}
		}
	}

	if m.state == timeframeStateCustom {
		return m.updateInputs(msg)
	}

	return m, nil
}

func (m TimeframePicker) updateSelect(msg tea.KeyMsg) (TimeframePicker, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.selected > m.minFrame {
			m.selected--
		}
	case tea.KeyDown:
		if m.selected < TimeframeCustom {
			m.selected++
		}
	case tea.KeyEnter:
		switch m.selected {
		case TimeframeCustom:
			m.state = timeframeStateCustom
			m.focusIndex = 0
			m.startInput.Focus()

			return m, textinput.Blink
		case TimeframeAll:
			return m, selected(TimeframeSelectedMsg{Label: m.selected.String()})
		}

		start, end := dateRange(m.selected, time.Now())

		return m, selected(TimeframeSelectedMsg{Start: &start, End: &end, Label: m.selected.String()})
	}

	return m, nil
}

func (m TimeframePicker) updateCustom(msg tea.KeyMsg) (TimeframePicker, tea.Cmd, bool) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.focusIndex = (m.focusIndex + 1) % 2
		m.startInput.Blur()
		m.endInput.Blur()

		if m.focusIndex == 0 {
			m.startInput.Focus()
		} else {
			m.endInput.Focus()
		}

		return m, textinput.Blink, true

	case "enter":
		start, end, err := parseCustomRange(m.startInput.Value(), m.endInput.Value())
		if err != nil {
			m.err = err
			return m, nil, true
		}

		m.err = nil
		label := fmt.Sprintf("%s to %s", FormatDate(start), FormatDate(end))

		return m, selected(TimeframeSelectedMsg{Start: &start, End: &end, Label: label}), true

	case "esc":
		m.state = timeframeStateSelect
		m.err = nil

		return m, nil, true
	}

	return m, nil, false
}

func parseCustomRange(startText, endText string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(time.DateOnly, startText, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start date (YYYY-MM-DD)")
	}

	end, err := time.ParseInLocation(time.DateOnly, endText, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid end date (YYYY-MM-DD)")
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end date is before start date")
	}

	return start, endOfDay(end), nil
}

func (m TimeframePicker) updateInputs(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	var cmds []tea.Cmd
	var c tea.Cmd

	m.startInput, c = m.startInput.Update(msg)
	cmds = append(cmds, c)
	m.endInput, c = m.endInput.Update(msg)
	cmds = append(cmds, c)

	return m, tea.Batch(cmds...)
}

func selected(msg TimeframeSelectedMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the timeframe picker.
func (m TimeframePicker) View() string {
	errStr := ""
	if m.err != nil {
		errStr = errorStyle.Render(fmt.Sprintf("\n\nError: %v", m.err))
	}

	if m.state == timeframeStateCustom {
		return fmt.Sprintf(
			"Enter Custom Range:\n\n%s\n%s\n\n(Enter to confirm, Tab to switch, Esc to back)%s",
			m.startInput.View(),
			m.endInput.View(),
			errStr,
		)
	}

	s := "Select Timeframe:\n\n"
	for i := m.minFrame; i <= TimeframeCustom; i++ {
		cursor := " "
		if m.selected == i {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, i.String())
	}

	s += "\n(Enter to select, Esc to back)"

	return s + errStr
}

// IsSelecting returns true if the picker is in the selection state (not custom input).
func (m TimeframePicker) IsSelecting() bool {
	return m.state == timeframeStateSelect
}

// Reset returns the picker to its initial selection state.
func (m *TimeframePicker) Reset() {
	m.state = timeframeStateSelect
	m.selected = m.minFrame
	m.err = nil
	m.startInput.SetValue("")
	m.endInput.SetValue("")
}
