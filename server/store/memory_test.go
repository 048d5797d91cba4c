package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
)

func seeded(opts ...MemoryOption) *Memory {
	m := NewMemory(opts...)
	DemoSeed(m)
	return m
}

func TestProductNotFound(t *testing.T) {
	t.Parallel()

	m := seeded()
	_, err := m.Product(context.Background(), "ghost")
	if !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestProductsPriceFilter(t *testing.T) {
	t.Parallel()

	m := seeded()
	out, err := m.Products(context.Background(), ProductFilter{MinPrice: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].ID != "basket-breakfast-01" {
		t.Fatalf("unexpected products: %+v", out)
	}
}

func TestUpdateStockUnknownProduct(t *testing.T) {
	t.Parallel()

	m := seeded()
	err := m.UpdateStock(context.Background(), []string{"ghost"}, func(StockTx) error {
		t.Fatal("fn must not run for an unknown product")
		return nil
	})
	if !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestUpdateStockCommitsOnlyOnSuccess(t *testing.T) {
	t.Parallel()

	m := seeded()
	boom := errors.New("boom")
	err := m.UpdateStock(context.Background(), []string{"basket-romance-01"}, func(tx StockTx) error {
		if err := tx.Deduct("basket-romance-01", 2); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error back, got %v", err)
	}
	qty, err := m.StockOf(context.Background(), "basket-romance-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 5 {
		t.Fatalf("staged deduction leaked into stock: %d", qty)
	}

	err = m.UpdateStock(context.Background(), []string{"basket-romance-01"}, func(tx StockTx) error {
		return tx.Deduct("basket-romance-01", 2)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	qty, _ = m.StockOf(context.Background(), "basket-romance-01")
	if qty != 3 {
		t.Fatalf("expected stock 3 after commit, got %d", qty)
	}
}

func TestUpdateStockAvailableSeesStagedDeductions(t *testing.T) {
	t.Parallel()

	m := seeded()
	err := m.UpdateStock(context.Background(), []string{"basket-breakfast-01"}, func(tx StockTx) error {
		if err := tx.Deduct("basket-breakfast-01", 1); err != nil {
			return err
		}
		avail, err := tx.Available("basket-breakfast-01")
		if err != nil {
			return err
		}
		if avail != 1 {
			t.Fatalf("expected staged view of 1, got %d", avail)
		}
		return tx.Deduct("basket-breakfast-01", 2)
	})
	if err == nil {
		t.Fatal("over-deduction past the staged view must fail")
	}
	qty, _ := m.StockOf(context.Background(), "basket-breakfast-01")
	if qty != 2 {
		t.Fatalf("failed transaction changed stock: %d", qty)
	}
}

func TestUpdateStockLockTimeout(t *testing.T) {
	t.Parallel()

	m := seeded(WithLockTimeout(30 * time.Millisecond))

	held := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.UpdateStock(context.Background(), []string{"flowers-roses-12"}, func(StockTx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := m.UpdateStock(context.Background(), []string{"flowers-roses-12"}, func(StockTx) error {
		return nil
	})
	close(release)
	wg.Wait()

	if !errors.Is(err, contractx.ErrLockTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
}

func TestUpdateStockContextCancellation(t *testing.T) {
	t.Parallel()

	m := seeded(WithLockTimeout(10 * time.Second))

	held := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.UpdateStock(context.Background(), []string{"flowers-roses-12"}, func(StockTx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := m.UpdateStock(ctx, []string{"flowers-roses-12"}, func(StockTx) error {
		return nil
	})
	close(release)
	wg.Wait()

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestUpdateStockPersistsOrder(t *testing.T) {
	t.Parallel()

	m := seeded()
	order := contractx.Order{
		ID:        "ord-1",
		Items:     []contractx.OrderItem{{ProductID: "basket-romance-01", Quantity: 1}},
		Status:    contractx.OrderConfirmed,
		CreatedAt: time.Now().UTC(),
	}
	err := m.UpdateStock(context.Background(), []string{"basket-romance-01"}, func(tx StockTx) error {
		if err := tx.Deduct("basket-romance-01", 1); err != nil {
			return err
		}
		return tx.InsertOrder(order)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := m.Order(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != contractx.OrderConfirmed || len(got.Items) != 1 {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestSaveSummaryKeepsExistingID(t *testing.T) {
	t.Parallel()

	m := seeded()
	now := time.Now().UTC()
	first, err := m.SaveSummary(context.Background(), contractx.MemoryRecord{
		ID:            "mem-1",
		CustomerPhone: "+5583999990000",
		Summary:       "gosta de rosas",
		UpdatedAt:     now,
		ExpiresAt:     now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := m.SaveSummary(context.Background(), contractx.MemoryRecord{
		ID:            "mem-2",
		CustomerPhone: "+5583999990000",
		Summary:       "alergia a amendoim",
		UpdatedAt:     now,
		ExpiresAt:     now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert must keep the original id: %s vs %s", second.ID, first.ID)
	}
	if second.Summary != "alergia a amendoim" {
		t.Fatalf("summary not replaced: %s", second.Summary)
	}
}

func TestSummaryExpiry(t *testing.T) {
	t.Parallel()

	current := time.Now().UTC()
	m := seeded(WithClock(func() time.Time { return current }))
	_, err := m.SaveSummary(context.Background(), contractx.MemoryRecord{
		ID:            "mem-1",
		CustomerPhone: "+5583999990000",
		Summary:       "gosta de rosas",
		UpdatedAt:     current,
		ExpiresAt:     current.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.Summary(context.Background(), "+5583999990000"); err != nil {
		t.Fatalf("fresh record must be readable: %v", err)
	}

	current = current.Add(2 * time.Hour)
	_, err = m.Summary(context.Background(), "+5583999990000")
	if !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("expired record must read as not-found, got %v", err)
	}
}
