// Package order validates and commits orders. Creation is the only write
// path to stock levels: all touched rows are locked in ascending
// product-ID order, checked, then decremented and persisted together with
// the order record as one atomic unit.
package order

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
	storex "github.com/tanpawarit/cesto-mcp-server/server/store"
)

type Manager struct {
	store storex.Store
	now   func() time.Time
	newID func() string
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

func NewManager(store storex.Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	m := &Manager{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Create runs the full order transaction. The returned error is always a
// *contract.Error: invalid_order for bad input, insufficient_stock with
// the offending product for a shortfall, transaction_failed for lock
// timeouts and storage faults. Rejected and failed calls leave every stock
// level untouched, so the caller may retry transaction_failed verbatim.
func (m *Manager) Create(ctx context.Context, items []contractx.OrderItem) (contractx.OrderConfirmation, error) {
	merged, err := normalizeItems(items)
	if err != nil {
		return contractx.OrderConfirmation{}, err
	}

	// Unknown products are rejected before any exclusive access is taken.
	ids := make([]string, 0, len(merged))
	for _, it := range merged {
		if _, err := m.store.Product(ctx, it.ProductID); err != nil {
			if errors.Is(err, contractx.ErrNotFound) {
				return contractx.OrderConfirmation{}, contractx.NewStockError(
					contractx.KindInvalidOrder, it.ProductID, "unknown product %q", it.ProductID)
			}
			return contractx.OrderConfirmation{}, contractx.NewError(
				contractx.KindTransactionFailed, "order could not be validated, retry the request")
		}
		ids = append(ids, it.ProductID)
	}

	var conf contractx.OrderConfirmation
	err = m.store.UpdateStock(ctx, ids, func(tx storex.StockTx) error {
		for _, it := range merged {
			avail, err := tx.Available(it.ProductID)
			if err != nil {
				return err
			}
			if avail < it.Quantity {
				return contractx.NewStockError(contractx.KindInsufficientStock, it.ProductID,
					"requested %d, available %d", it.Quantity, avail)
			}
		}
		for _, it := range merged {
			if err := tx.Deduct(it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		o := contractx.Order{
			ID:        m.newID(),
			Items:     merged,
			Status:    contractx.OrderConfirmed,
			CreatedAt: m.now().UTC(),
		}
		if err := tx.InsertOrder(o); err != nil {
			return err
		}
		conf = contractx.OrderConfirmation{OrderID: o.ID, CreatedAt: o.CreatedAt}
		return nil
	})
	if err != nil {
		return contractx.OrderConfirmation{}, classify(err)
	}
	return conf, nil
}

// normalizeItems rejects empty or non-positive input and merges duplicate
// product lines, returning the merged items sorted by product ID.
func normalizeItems(items []contractx.OrderItem) ([]contractx.OrderItem, error) {
	if len(items) == 0 {
		return nil, contractx.NewError(contractx.KindInvalidOrder, "order has no items")
	}
	quantities := make(map[string]int64, len(items))
	order := make([]string, 0, len(items))
	for _, it := range items {
		if it.ProductID == "" {
			return nil, contractx.NewError(contractx.KindInvalidOrder, "order item has empty product id")
		}
		if it.Quantity <= 0 {
			return nil, contractx.NewStockError(contractx.KindInvalidOrder, it.ProductID,
				"quantity must be positive, got %d", it.Quantity)
		}
		if _, ok := quantities[it.ProductID]; !ok {
			order = append(order, it.ProductID)
		}
		quantities[it.ProductID] += it.Quantity
	}
	sort.Strings(order)
	merged := make([]contractx.OrderItem, 0, len(order))
	for _, id := range order {
		merged = append(merged, contractx.OrderItem{ProductID: id, Quantity: quantities[id]})
	}
	return merged, nil
}

// classify maps transaction outcomes onto the boundary vocabulary. Typed
// rejections pass through; everything else from the storage layer becomes
// a retryable transaction_failed without the underlying detail.
func classify(err error) error {
	if be, ok := contractx.AsBoundaryError(err); ok {
		return be
	}
	if errors.Is(err, contractx.ErrLockTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return contractx.NewError(contractx.KindTransactionFailed,
			"could not acquire stock access in time, retry the request")
	}
	return contractx.NewError(contractx.KindTransactionFailed,
		"order transaction aborted, no changes were applied, retry the request")
}
