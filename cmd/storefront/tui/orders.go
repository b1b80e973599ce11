// Package tui is the interactive administrator console.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikixstore/storefront/pkg/orders"
	"github.com/nikixstore/storefront/pkg/storefront"
)

// Mode is the screen the board is showing.
type Mode int

const (
	ModeList Mode = iota
	ModePick
	ModeConfirm
	ModeWorking
	ModeError
)

// Board is what the orders board needs from the storefront.
type Board interface {
	RecentOrders(ctx context.Context, limit int) ([]storefront.OrderSummary, error)
	SetOrderStatus(ctx context.Context, displayID int64, status orders.Status) (*orders.StatusChange, error)
}

// OrdersModel lists recent orders and changes their status.
type OrdersModel struct {
	ctx     context.Context
	board   Board
	limit   int
	mode    Mode
	list    list.Model
	picker  list.Model
	confirm ConfirmationDialog
	logs    LogView
	target  storefront.OrderSummary
	status  orders.Status
	err     error
	width   int
	height  int
}

// NewOrdersModel creates the board over the latest limit orders.
func NewOrdersModel(ctx context.Context, board Board, limit int) OrdersModel {
	l := list.New(nil, ItemDelegate{}, 0, 0)
	l.Title = "Заказы"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	statuses := make([]list.Item, 0, len(orders.Statuses()))
	for _, s := range orders.Statuses() {
		statuses = append(statuses, StatusItem{Status: s})
	}
	p := list.New(statuses, ItemDelegate{}, 0, 0)
	p.Title = "Новый статус"
	p.SetShowStatusBar(false)
	p.SetFilteringEnabled(false)
	p.Styles.Title = titleStyle

	return OrdersModel{
		ctx:    ctx,
		board:  board,
		limit:  limit,
		list:   l,
		picker: p,
		logs:   NewLogView(6),
	}
}

type ordersLoadedMsg struct {
	orders []storefront.OrderSummary
}

type statusChangedMsg struct {
	change *orders.StatusChange
}

type errorMsg struct {
	err error
}

func (m OrdersModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		recent, err := m.board.RecentOrders(m.ctx, m.limit)
		if err != nil {
			return errorMsg{err: fmt.Errorf("load orders: %w", err)}
		}
		return ordersLoadedMsg{orders: recent}
	}
}

func (m OrdersModel) setStatusCmd(displayID int64, s orders.Status) tea.Cmd {
	return func() tea.Msg {
		change, err := m.board.SetOrderStatus(m.ctx, displayID, s)
		if err != nil {
			return errorMsg{err: fmt.Errorf("order #%d: %w", displayID, err)}
		}
		return statusChangedMsg{change: change}
	}
}

// Init loads the orders.
func (m OrdersModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), tea.EnterAltScreen)
}

// Update handles messages
func (m OrdersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-12)
		m.picker.SetSize(msg.Width-4, msg.Height-12)
		return m, nil

	case ordersLoadedMsg:
		items := make([]list.Item, len(msg.orders))
		for i, o := range msg.orders {
			items[i] = OrderItem{OrderSummary: o}
		}
		cmd := m.list.SetItems(items)
		return m, cmd

	case statusChangedMsg:
		m.mode = ModeList
		c := msg.change
		m.logs.AddLog(successStyle.Render(fmt.Sprintf("✓ #%d: %s → %s", c.DisplayID, c.From.Label(), c.To.Label())))
		for _, mirror := range c.Mirrors {
			m.logs.AddLog(warningStyle.Render("⚠ " + mirror.Error()))
		}
		return m, m.loadCmd()

	case errorMsg:
		m.mode = ModeError
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateLists(msg)
}

func (m OrdersModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeList:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.loadCmd()
		case "enter":
			item, ok := m.list.SelectedItem().(OrderItem)
			if !ok {
				return m, nil
			}
			m.target = item.OrderSummary
			m.picker.Select(int(item.Status))
			m.mode = ModePick
			return m, nil
		}

	case ModePick:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc", "q":
			m.mode = ModeList
			return m, nil
		case "enter":
			item, ok := m.picker.SelectedItem().(StatusItem)
			if !ok {
				return m, nil
			}
			if item.Status == m.target.Status {
				m.mode = ModeList
				return m, nil
			}
			m.status = item.Status
			m.confirm = NewConfirmationDialog(
				fmt.Sprintf("Заказ #%d", m.target.DisplayID),
				fmt.Sprintf("%s → %s", m.target.Status.Label(), item.Status.Label()),
			)
			m.mode = ModeConfirm
			return m, nil
		}

	case ModeConfirm:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc", "q":
			m.mode = ModePick
			return m, nil
		}
		if !m.confirm.Update(msg) {
			return m, nil
		}
		if !m.confirm.YesSelected {
			m.mode = ModeList
			return m, nil
		}
		m.mode = ModeWorking
		return m, m.setStatusCmd(m.target.DisplayID, m.status)

	case ModeWorking:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case ModeError:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter", "esc":
			m.mode = ModeList
			m.err = nil
			return m, m.loadCmd()
		}
		return m, nil
	}

	return m.updateLists(msg)
}

func (m OrdersModel) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.mode {
	case ModeList:
		m.list, cmd = m.list.Update(msg)
	case ModePick:
		m.picker, cmd = m.picker.Update(msg)
	}
	return m, cmd
}

// Mode returns the current screen.
func (m OrdersModel) Mode() Mode { return m.mode }

// View renders the UI
func (m OrdersModel) View() string {
	switch m.mode {
	case ModePick:
		help := helpStyle.Render(FormatKey("↑/↓", "choose") + " • " + FormatKey("enter", "select") + " • " + FormatKey("esc", "back"))
		return lipgloss.JoinVertical(lipgloss.Left, m.picker.View(), help)

	case ModeConfirm:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.confirm.View())

	case ModeWorking:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			boxStyle.Render(infoStyle.Render(fmt.Sprintf("Сохраняю заказ #%d…", m.target.DisplayID))))

	case ModeError:
		msg := titleStyle.Render("Ошибка") + "\n\n" +
			errorStyle.Render(m.err.Error()) + "\n\n" +
			helpStyle.Render(FormatKey("enter", "back")+" • "+FormatKey("q", "exit"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(msg))
	}

	help := helpStyle.Render(
		FormatKey("↑/↓", "navigate") + " • " +
			FormatKey("enter", "change status") + " • " +
			FormatKey("r", "reload") + " • " +
			FormatKey("q", "quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), m.logs.View(), help)
}

// RunOrdersUI starts the interactive orders board.
func RunOrdersUI(ctx context.Context, board Board, limit int) error {
	p := tea.NewProgram(NewOrdersModel(ctx, board, limit), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
