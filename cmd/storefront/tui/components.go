package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikixstore/storefront/pkg/orders"
	"github.com/nikixstore/storefront/pkg/storefront"
)

// ConfirmationDialog is a yes/no prompt. No is preselected.
type ConfirmationDialog struct {
	Title       string
	Message     string
	YesSelected bool
}

// NewConfirmationDialog creates a new confirmation dialog
func NewConfirmationDialog(title, message string) ConfirmationDialog {
	return ConfirmationDialog{Title: title, Message: message}
}

// Update moves the selection. It reports whether enter was pressed.
func (d *ConfirmationDialog) Update(msg tea.Msg) (answered bool) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return false
	}
	switch key.String() {
	case "left", "h", "y":
		d.YesSelected = true
	case "right", "l", "n":
		d.YesSelected = false
	case "enter":
		return true
	}
	return false
}

// View renders the confirmation dialog
func (d ConfirmationDialog) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(d.Title))
	b.WriteString("\n\n")
	b.WriteString(d.Message)
	b.WriteString("\n\n")

	yes := inactiveButtonStyle.Render("Да")
	no := inactiveButtonStyle.Render("Нет")
	if d.YesSelected {
		yes = activeButtonStyle.Render("Да")
	} else {
		no = activeButtonStyle.Render("Нет")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, yes, "  ", no))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(FormatKey("←/→", "choose") + " • " + FormatKey("enter", "confirm") + " • " + FormatKey("esc", "back")))

	return boxStyle.Render(b.String())
}

// OrderItem is one order on the board.
type OrderItem struct {
	storefront.OrderSummary
}

func (i OrderItem) FilterValue() string { return fmt.Sprint(i.DisplayID) }

func (i OrderItem) Title() string {
	return fmt.Sprintf("#%d  %s", i.DisplayID, FormatStatus(i.Status))
}

func (i OrderItem) Description() string {
	return mutedStyle.Render(i.CreatedAt.Format("02.01.2006 15:04") + " · " + i.Method)
}

// StatusItem is one choice in the status picker.
type StatusItem struct {
	Status orders.Status
}

func (i StatusItem) FilterValue() string { return i.Status.Label() }
func (i StatusItem) Title() string       { return FormatStatus(i.Status) }
func (i StatusItem) Description() string { return mutedStyle.Render(fmt.Sprintf("code %d", int(i.Status))) }

type titled interface {
	Title() string
	Description() string
}

// ItemDelegate renders two-line list items with a selection marker.
type ItemDelegate struct{}

func (d ItemDelegate) Height() int                             { return 2 }
func (d ItemDelegate) Spacing() int                            { return 1 }
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(titled)
	if !ok {
		return
	}
	var s string
	if index == m.Index() {
		s = selectedItemStyle.Render("▸ " + i.Title() + "\n  " + i.Description())
	} else {
		s = unselectedItemStyle.Render("  " + i.Title() + "\n  " + i.Description())
	}
	_, _ = fmt.Fprint(w, s)
}

// LogView keeps the last MaxLen results.
type LogView struct {
	Logs   []string
	MaxLen int
}

// NewLogView creates a new log view
func NewLogView(maxLen int) LogView {
	return LogView{MaxLen: maxLen}
}

// AddLog adds a log entry
func (l *LogView) AddLog(entry string) {
	l.Logs = append(l.Logs, entry)
	if len(l.Logs) > l.MaxLen {
		l.Logs = l.Logs[1:]
	}
}

// View renders the log view
func (l LogView) View() string {
	if len(l.Logs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, entry := range l.Logs {
		b.WriteString(mutedStyle.Render("• "))
		b.WriteString(entry)
		b.WriteString("\n")
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
