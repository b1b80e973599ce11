package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikixstore/storefront/pkg/orders"
	"github.com/nikixstore/storefront/pkg/storefront"
)

type fakeBoard struct {
	orders  []storefront.OrderSummary
	changed []orders.Status
	err     error
}

func (b *fakeBoard) RecentOrders(context.Context, int) ([]storefront.OrderSummary, error) {
	return b.orders, nil
}

func (b *fakeBoard) SetOrderStatus(_ context.Context, id int64, s orders.Status) (*orders.StatusChange, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.changed = append(b.changed, s)
	from := b.orders[0].Status
	b.orders[0].Status = s
	return &orders.StatusChange{DisplayID: id, From: from, To: s}, nil
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func step(t *testing.T, m OrdersModel, msg tea.Msg) (OrdersModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	om, ok := next.(OrdersModel)
	require.True(t, ok)
	return om, cmd
}

func loaded(t *testing.T, b *fakeBoard) OrdersModel {
	t.Helper()
	m := NewOrdersModel(context.Background(), b, 20)
	m, _ = step(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m, _ = step(t, m, m.loadCmd()())
	return m
}

func newBoard() *fakeBoard {
	return &fakeBoard{orders: []storefront.OrderSummary{
		{DisplayID: 2001, Status: orders.StatusPlaced, Method: "СДЭК", CreatedAt: time.Now()},
	}}
}

func TestOrdersBoardChangesStatus(t *testing.T) {
	b := newBoard()
	m := loaded(t, b)
	assert.Equal(t, ModeList, m.Mode())

	m, _ = step(t, m, key(tea.KeyEnter))
	require.Equal(t, ModePick, m.Mode())

	m.picker.Select(int(orders.StatusInTransit))
	m, _ = step(t, m, key(tea.KeyEnter))
	require.Equal(t, ModeConfirm, m.Mode())

	m, _ = step(t, m, key(tea.KeyLeft))
	m, cmd := step(t, m, key(tea.KeyEnter))
	require.Equal(t, ModeWorking, m.Mode())
	require.NotNil(t, cmd)

	m, _ = step(t, m, cmd())
	assert.Equal(t, ModeList, m.Mode())
	assert.Equal(t, []orders.Status{orders.StatusInTransit}, b.changed)
	require.Len(t, m.logs.Logs, 1)
	assert.Contains(t, m.logs.Logs[0], "#2001")
}

func TestOrdersBoardDeclineKeepsStatus(t *testing.T) {
	b := newBoard()
	m := loaded(t, b)

	m, _ = step(t, m, key(tea.KeyEnter))
	m.picker.Select(int(orders.StatusCancelled))
	m, _ = step(t, m, key(tea.KeyEnter))
	m, _ = step(t, m, key(tea.KeyEnter))

	assert.Equal(t, ModeList, m.Mode())
	assert.Empty(t, b.changed)
}

func TestOrdersBoardSameStatusIsNoop(t *testing.T) {
	b := newBoard()
	m := loaded(t, b)

	m, _ = step(t, m, key(tea.KeyEnter))
	m, _ = step(t, m, key(tea.KeyEnter))

	assert.Equal(t, ModeList, m.Mode())
	assert.Empty(t, b.changed)
}

func TestOrdersBoardShowsErrors(t *testing.T) {
	b := newBoard()
	b.err = errors.New("status transition not allowed")
	m := loaded(t, b)

	m, _ = step(t, m, key(tea.KeyEnter))
	m.picker.Select(int(orders.StatusReceived))
	m, _ = step(t, m, key(tea.KeyEnter))
	m, _ = step(t, m, key(tea.KeyLeft))
	m, cmd := step(t, m, key(tea.KeyEnter))
	m, _ = step(t, m, cmd())

	require.Equal(t, ModeError, m.Mode())
	assert.Contains(t, m.View(), "transition")

	m, _ = step(t, m, key(tea.KeyEsc))
	assert.Equal(t, ModeList, m.Mode())
}
