package order

import (
	"context"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
	storex "github.com/tanpawarit/cesto-mcp-server/server/store"
)

func newTestStore(opts ...storex.MemoryOption) *storex.Memory {
	m := storex.NewMemory(opts...)
	storex.DemoSeed(m)
	return m
}

func mustManager(t *testing.T, st *storex.Memory, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(st, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func kindOf(t *testing.T, err error) contractx.ErrorKind {
	t.Helper()
	be, ok := contractx.AsBoundaryError(err)
	if !ok {
		t.Fatalf("expected a boundary error, got %v", err)
	}
	return be.Kind
}

func TestCreateEmptyOrder(t *testing.T) {
	t.Parallel()

	m := mustManager(t, newTestStore())
	_, err := m.Create(context.Background(), nil)
	if kindOf(t, err) != contractx.KindInvalidOrder {
		t.Fatalf("expected invalid_order, got %v", err)
	}
}

func TestCreateEmptyProductID(t *testing.T) {
	t.Parallel()

	m := mustManager(t, newTestStore())
	_, err := m.Create(context.Background(), []contractx.OrderItem{{ProductID: "", Quantity: 1}})
	if kindOf(t, err) != contractx.KindInvalidOrder {
		t.Fatalf("expected invalid_order, got %v", err)
	}
}

func TestCreateNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	m := mustManager(t, newTestStore())
	for _, qty := range []int64{0, -3} {
		_, err := m.Create(context.Background(), []contractx.OrderItem{
			{ProductID: "basket-romance-01", Quantity: qty},
		})
		be, ok := contractx.AsBoundaryError(err)
		if !ok || be.Kind != contractx.KindInvalidOrder {
			t.Fatalf("quantity %d: expected invalid_order, got %v", qty, err)
		}
		if be.ProductID != "basket-romance-01" {
			t.Fatalf("rejection must name the product, got %q", be.ProductID)
		}
	}
}

func TestCreateUnknownProduct(t *testing.T) {
	t.Parallel()

	st := newTestStore()
	m := mustManager(t, st)
	_, err := m.Create(context.Background(), []contractx.OrderItem{
		{ProductID: "ghost-product", Quantity: 1},
	})
	be, ok := contractx.AsBoundaryError(err)
	if !ok || be.Kind != contractx.KindInvalidOrder {
		t.Fatalf("expected invalid_order, got %v", err)
	}
	if be.ProductID != "ghost-product" {
		t.Fatalf("rejection must name the product, got %q", be.ProductID)
	}
}

func TestCreateConfirmsAndDecrementsStock(t *testing.T) {
	t.Parallel()

	st := newTestStore()
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	m := mustManager(t, st,
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string { return "order-1" }),
	)
	conf, err := m.Create(context.Background(), []contractx.OrderItem{
		{ProductID: "basket-romance-01", Quantity: 2},
		{ProductID: "flowers-roses-12", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.OrderID != "order-1" {
		t.Fatalf("unexpected order id: %s", conf.OrderID)
	}
	if !conf.CreatedAt.Equal(now) {
		t.Fatalf("unexpected created at: %v", conf.CreatedAt)
	}

	qty, err := st.StockOf(context.Background(), "basket-romance-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 3 {
		t.Fatalf("expected stock 3, got %d", qty)
	}
	qty, err = st.StockOf(context.Background(), "flowers-roses-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 9 {
		t.Fatalf("expected stock 9, got %d", qty)
	}

	o, err := st.Order(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("order must be persisted: %v", err)
	}
	if o.Status != contractx.OrderConfirmed {
		t.Fatalf("unexpected status: %s", o.Status)
	}
}

func TestCreateMergesDuplicateLines(t *testing.T) {
	t.Parallel()

	st := newTestStore()
	m := mustManager(t, st, WithIDGenerator(func() string { return "order-dup" }))
	_, err := m.Create(context.Background(), []contractx.OrderItem{
		{ProductID: "basket-romance-02", Quantity: 2},
		{ProductID: "basket-romance-02", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	qty, err := st.StockOf(context.Background(), "basket-romance-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 3 {
		t.Fatalf("expected stock 3 after merged deduction of 5, got %d", qty)
	}
	o, err := st.Order(context.Background(), "order-dup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(o.Items) != 1 || o.Items[0].Quantity != 5 {
		t.Fatalf("expected one merged line of 5, got %+v", o.Items)
	}
}

func TestCreateInsufficientStockLeavesEverythingUntouched(t *testing.T) {
	t.Parallel()

	st := newTestStore()
	m := mustManager(t, st)
	// basket-breakfast-01 has stock 2; the shortfall must abort the whole
	// order including the satisfiable romance line.
	_, err := m.Create(context.Background(), []contractx.OrderItem{
		{ProductID: "basket-romance-01", Quantity: 1},
		{ProductID: "basket-breakfast-01", Quantity: 3},
	})
	be, ok := contractx.AsBoundaryError(err)
	if !ok || be.Kind != contractx.KindInsufficientStock {
		t.Fatalf("expected insufficient_stock, got %v", err)
	}
	if be.ProductID != "basket-breakfast-01" {
		t.Fatalf("rejection must name the short product, got %q", be.ProductID)
	}
	if be.Retryable() {
		t.Fatal("insufficient_stock must not be retryable verbatim")
	}

	for id, want := range map[string]int64{
		"basket-romance-01":   5,
		"basket-breakfast-01": 2,
	} {
		qty, err := st.StockOf(context.Background(), id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if qty != want {
			t.Fatalf("stock %s changed on a rejected order: %d", id, qty)
		}
	}
}

func TestCreateExactlyOneWinnerUnderContention(t *testing.T) {
	t.Parallel()

	st := newTestStore()
	m := mustManager(t, st)
	// Stock 2 of the breakfast basket, three concurrent orders of 2 each:
	// exactly one confirms, stock ends at zero.
	const workers = 3
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Create(context.Background(), []contractx.OrderItem{
				{ProductID: "basket-breakfast-01", Quantity: 2},
			})
		}(i)
	}
	wg.Wait()

	confirmed := 0
	for _, err := range errs {
		if err == nil {
			confirmed++
			continue
		}
		be, ok := contractx.AsBoundaryError(err)
		if !ok || be.Kind != contractx.KindInsufficientStock {
			t.Fatalf("losers must see insufficient_stock, got %v", err)
		}
	}
	if confirmed != 1 {
		t.Fatalf("expected exactly one confirmed order, got %d", confirmed)
	}
	qty, err := st.StockOf(context.Background(), "basket-breakfast-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 0 {
		t.Fatalf("expected stock 0, got %d", qty)
	}
}

func TestCreateOppositeOrderingsDoNotDeadlock(t *testing.T) {
	t.Parallel()

	st := newTestStore()
	m := mustManager(t, st)
	// Two orders touching the same pair in opposite argument order. Lock
	// acquisition sorts by product ID, so both complete.
	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, _ = m.Create(context.Background(), []contractx.OrderItem{
				{ProductID: "basket-romance-02", Quantity: 1},
				{ProductID: "flowers-roses-12", Quantity: 1},
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, _ = m.Create(context.Background(), []contractx.OrderItem{
				{ProductID: "flowers-roses-12", Quantity: 1},
				{ProductID: "basket-romance-02", Quantity: 1},
			})
		}
	}()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("orders deadlocked")
	}
}

func TestCreateLockTimeoutIsRetryableTransactionFailed(t *testing.T) {
	t.Parallel()

	st := newTestStore(storex.WithLockTimeout(50 * time.Millisecond))
	m := mustManager(t, st)

	// Hold the product lock from a competing transaction for longer than
	// the acquisition timeout.
	blocked := make(chan struct{})
	released := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = st.UpdateStock(context.Background(), []string{"basket-romance-01"}, func(storex.StockTx) error {
			close(blocked)
			<-released
			return nil
		})
	}()
	<-blocked

	_, err := m.Create(context.Background(), []contractx.OrderItem{
		{ProductID: "basket-romance-01", Quantity: 1},
	})
	close(released)
	wg.Wait()

	be, ok := contractx.AsBoundaryError(err)
	if !ok || be.Kind != contractx.KindTransactionFailed {
		t.Fatalf("expected transaction_failed, got %v", err)
	}
	if !be.Retryable() {
		t.Fatal("transaction_failed must be retryable")
	}
}
