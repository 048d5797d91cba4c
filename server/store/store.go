// Package store holds the persistence contract shared by the catalog,
// order, and memory components, with in-memory and Postgres backends.
package store

import (
	"context"
	"time"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
)

const defaultLockTimeout = 2 * time.Second

// ProductFilter narrows a product scan. Zero values mean "no bound".
type ProductFilter struct {
	MinPrice float64
	MaxPrice float64
}

// StockTx is the view inside an exclusive stock transaction. It only sees
// the product rows the transaction was opened for.
type StockTx interface {
	// Available returns the quantity still available to this transaction,
	// net of deductions already staged on it.
	Available(productID string) (int64, error)
	// Deduct stages a decrement. It fails rather than let a row go negative.
	Deduct(productID string, quantity int64) error
	// InsertOrder stages the order record committed together with the
	// stock decrements.
	InsertOrder(o contractx.Order) error
}

// Store is the durable state behind the tool surface.
type Store interface {
	Products(ctx context.Context, f ProductFilter) ([]contractx.Product, error)
	Product(ctx context.Context, id string) (contractx.Product, error)
	StockOf(ctx context.Context, id string) (int64, error)
	Addons(ctx context.Context) ([]contractx.Addon, error)
	Order(ctx context.Context, id string) (contractx.Order, error)

	// UpdateStock runs fn inside a transaction holding exclusive access to
	// the given product rows. Implementations acquire the rows in ascending
	// product-ID order regardless of the order given, and give up with
	// contract.ErrLockTimeout instead of waiting forever. If fn returns an
	// error nothing staged on the StockTx becomes visible.
	UpdateStock(ctx context.Context, productIDs []string, fn func(StockTx) error) error

	// SaveSummary upserts a customer memory record keyed by phone.
	SaveSummary(ctx context.Context, rec contractx.MemoryRecord) (contractx.MemoryRecord, error)
	// Summary returns the unexpired record for a phone, or ErrNotFound.
	Summary(ctx context.Context, phone string) (contractx.MemoryRecord, error)

	// Ping is a cheap readiness probe. It must never contend with the
	// exclusive stock access taken by UpdateStock.
	Ping(ctx context.Context) error
}
