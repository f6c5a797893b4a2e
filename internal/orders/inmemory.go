package orders

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryArchive is a simple in-process archive for local/dev use.
type InMemoryArchive struct {
	mu        sync.RWMutex
	orders    []Order
	bySession map[string]struct{}
}

func NewInMemoryArchive() *InMemoryArchive {
	return &InMemoryArchive{bySession: make(map[string]struct{})}
}

func (a *InMemoryArchive) SaveOrder(_ context.Context, order Order) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, seen := a.bySession[order.SessionID]; seen {
		return nil
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CompletedAt.IsZero() {
		order.CompletedAt = time.Now().UTC()
	}
	a.orders = append(a.orders, order)
	a.bySession[order.SessionID] = struct{}{}
	return nil
}

func (a *InMemoryArchive) RecentOrders(_ context.Context, limit int) ([]Order, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.orders) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(a.orders) {
		limit = len(a.orders)
	}
	out := make([]Order, 0, limit)
	for i := len(a.orders) - 1; i >= len(a.orders)-limit; i-- {
		out = append(out, a.orders[i])
	}
	return out, nil
}

func (a *InMemoryArchive) Close() error { return nil }
