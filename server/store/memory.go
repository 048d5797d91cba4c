package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
)

// Memory is the in-process backend used by tests and STORE_MODE=memory
// runs. Row-level exclusivity is a per-product semaphore; catalog reads go
// through an RWMutex and never touch the semaphores.
type Memory struct {
	mu       sync.RWMutex
	products map[string]contractx.Product
	stocks   map[string]int64
	addons   []contractx.Addon
	orders   map[string]contractx.Order
	memories map[string]contractx.MemoryRecord

	locks       map[string]chan struct{}
	lockTimeout time.Duration
	now         func() time.Time
}

// MemoryOption customizes a Memory store.
type MemoryOption func(*Memory)

func WithLockTimeout(d time.Duration) MemoryOption {
	return func(m *Memory) {
		if d > 0 {
			m.lockTimeout = d
		}
	}
}

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		products:    make(map[string]contractx.Product),
		stocks:      make(map[string]int64),
		orders:      make(map[string]contractx.Order),
		memories:    make(map[string]contractx.MemoryRecord),
		locks:       make(map[string]chan struct{}),
		lockTimeout: defaultLockTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// SeedProducts loads the catalog and initial stock counts. Existing entries
// with the same ID are replaced.
func (m *Memory) SeedProducts(products []contractx.Product, stocks map[string]int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		m.products[p.ID] = p
		if _, ok := m.locks[p.ID]; !ok {
			m.locks[p.ID] = make(chan struct{}, 1)
		}
		m.stocks[p.ID] = stocks[p.ID]
	}
}

func (m *Memory) SeedAddons(addons []contractx.Addon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addons = append([]contractx.Addon(nil), addons...)
}

func (m *Memory) Products(_ context.Context, f ProductFilter) ([]contractx.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]contractx.Product, 0, len(m.products))
	for _, p := range m.products {
		if f.MinPrice > 0 && p.Price < f.MinPrice {
			continue
		}
		if f.MaxPrice > 0 && p.Price > f.MaxPrice {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) Product(_ context.Context, id string) (contractx.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return contractx.Product{}, fmt.Errorf("product %q: %w", id, contractx.ErrNotFound)
	}
	return p, nil
}

func (m *Memory) StockOf(_ context.Context, id string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	qty, ok := m.stocks[id]
	if !ok {
		return 0, fmt.Errorf("stock for %q: %w", id, contractx.ErrNotFound)
	}
	return qty, nil
}

func (m *Memory) Addons(_ context.Context) ([]contractx.Addon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]contractx.Addon(nil), m.addons...), nil
}

func (m *Memory) Order(_ context.Context, id string) (contractx.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return contractx.Order{}, fmt.Errorf("order %q: %w", id, contractx.ErrNotFound)
	}
	return o, nil
}

// UpdateStock acquires one semaphore per product in ascending ID order,
// runs fn against a staged view, and applies the staged changes under the
// catalog mutex only when fn succeeds.
func (m *Memory) UpdateStock(ctx context.Context, productIDs []string, fn func(StockTx) error) error {
	ids := dedupeSorted(productIDs)
	if len(ids) == 0 {
		return fmt.Errorf("update stock: no product ids")
	}

	sems := make([]chan struct{}, 0, len(ids))
	m.mu.RLock()
	for _, id := range ids {
		sem, ok := m.locks[id]
		if !ok {
			m.mu.RUnlock()
			return fmt.Errorf("product %q: %w", id, contractx.ErrNotFound)
		}
		sems = append(sems, sem)
	}
	m.mu.RUnlock()

	acquired := 0
	release := func() {
		for i := 0; i < acquired; i++ {
			<-sems[i]
		}
	}
	timer := time.NewTimer(m.lockTimeout)
	defer timer.Stop()
	for _, sem := range sems {
		select {
		case sem <- struct{}{}:
			acquired++
		case <-timer.C:
			release()
			return contractx.ErrLockTimeout
		case <-ctx.Done():
			release()
			return ctx.Err()
		}
	}
	defer release()

	tx := &memoryTx{store: m, staged: make(map[string]int64)}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	for id, qty := range tx.staged {
		m.stocks[id] -= qty
	}
	if tx.order != nil {
		m.orders[tx.order.ID] = *tx.order
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) SaveSummary(_ context.Context, rec contractx.MemoryRecord) (contractx.MemoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.memories[rec.CustomerPhone]; ok {
		rec.ID = existing.ID
	}
	m.memories[rec.CustomerPhone] = rec
	return rec, nil
}

// Summary returns the unexpired memory record for a phone.
func (m *Memory) Summary(_ context.Context, phone string) (contractx.MemoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.memories[phone]
	if !ok || !rec.ExpiresAt.After(m.now()) {
		return contractx.MemoryRecord{}, fmt.Errorf("memory for %q: %w", phone, contractx.ErrNotFound)
	}
	return rec, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

type memoryTx struct {
	store  *Memory
	staged map[string]int64
	order  *contractx.Order
}

func (t *memoryTx) Available(productID string) (int64, error) {
	t.store.mu.RLock()
	qty, ok := t.store.stocks[productID]
	t.store.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("stock for %q: %w", productID, contractx.ErrNotFound)
	}
	return qty - t.staged[productID], nil
}

func (t *memoryTx) Deduct(productID string, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("deduct %q: quantity must be positive", productID)
	}
	avail, err := t.Available(productID)
	if err != nil {
		return err
	}
	if avail < quantity {
		return fmt.Errorf("deduct %q: would go negative", productID)
	}
	t.staged[productID] += quantity
	return nil
}

func (t *memoryTx) InsertOrder(o contractx.Order) error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("insert order: empty id")
	}
	t.order = &o
	return nil
}

func dedupeSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
