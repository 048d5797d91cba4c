package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	businessx "github.com/tanpawarit/cesto-mcp-server/server/business"
	catalogx "github.com/tanpawarit/cesto-mcp-server/server/catalog"
	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
	guidelinex "github.com/tanpawarit/cesto-mcp-server/server/guideline"
	memoryx "github.com/tanpawarit/cesto-mcp-server/server/memory"
	orderx "github.com/tanpawarit/cesto-mcp-server/server/order"
	storex "github.com/tanpawarit/cesto-mcp-server/server/store"
)

type fakeNotifier struct {
	err  error
	last contractx.SupportNotification
}

func (f *fakeNotifier) Notify(_ context.Context, n contractx.SupportNotification) (contractx.NotifyReceipt, error) {
	f.last = n
	if f.err != nil {
		return contractx.NotifyReceipt{}, f.err
	}
	return contractx.NotifyReceipt{Delivered: true, Priority: "critical"}, nil
}

func newDispatcher(t *testing.T, notifier contractx.Notifier) *Dispatcher {
	t.Helper()
	st := storex.NewMemory()
	storex.DemoSeed(st)

	catalog, err := catalogx.New(st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	orders, err := orderx.NewManager(st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	memory, err := memoryx.New(st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, err := New(Deps{
		Guidelines: guidelinex.NewStore(),
		Catalog:    catalog,
		Orders:     orders,
		Memory:     memory,
		Business:   businessx.MustNew(),
		Notifier:   notifier,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestInvokeUnknownTool(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	res := d.Invoke(context.Background(), "drop_table", map[string]any{})
	if res.Error == nil || res.Error.Kind != contractx.KindUnknownTool {
		t.Fatalf("expected unknown_tool, got %+v", res)
	}
	if res.Result != nil {
		t.Fatal("a failed call must not carry a result")
	}
}

func TestInvokeRejectsUnknownArgument(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	res := d.Invoke(context.Background(), ToolCheckStock, map[string]any{
		"product_id": "basket-romance-01",
		"surprise":   true,
	})
	if res.Error == nil || res.Error.Kind != contractx.KindInvalidArguments {
		t.Fatalf("expected invalid_arguments, got %+v", res)
	}
}

func TestInvokeRejectsMissingRequiredArgument(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	res := d.Invoke(context.Background(), ToolLookupGuideline, map[string]any{})
	if res.Error == nil || res.Error.Kind != contractx.KindInvalidArguments {
		t.Fatalf("expected invalid_arguments, got %+v", res)
	}
}

func TestInvokeLookupGuideline(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	res := d.Invoke(context.Background(), ToolLookupGuideline, map[string]any{"category": "delivery_rules"})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	g, ok := res.Result.(contractx.Guideline)
	if !ok {
		t.Fatalf("unexpected result type: %T", res.Result)
	}
	if g.Category != "delivery_rules" || g.Body == "" {
		t.Fatalf("unexpected guideline: %+v", g)
	}
}

func TestInvokeLookupGuidelineMissMapsToNotFound(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	res := d.Invoke(context.Background(), ToolLookupGuideline, map[string]any{"category": "no_such"})
	if res.Error == nil || res.Error.Kind != contractx.KindNotFound {
		t.Fatalf("expected not_found, got %+v", res)
	}
}

func TestInvokeCheckStock(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	res := d.Invoke(context.Background(), ToolCheckStock, map[string]any{"product_id": "basket-breakfast-01"})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	report, ok := res.Result.(contractx.StockReport)
	if !ok {
		t.Fatalf("unexpected result type: %T", res.Result)
	}
	if report.Quantity != 2 {
		t.Fatalf("unexpected quantity: %d", report.Quantity)
	}
}

func TestInvokeSearchCatalogCoercesJSONNumbers(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	res := d.Invoke(context.Background(), ToolSearchCatalog, map[string]any{
		"occasion_tag": "romance",
		"limit":        float64(2),
	})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	products, ok := res.Result.([]contractx.Product)
	if !ok {
		t.Fatalf("unexpected result type: %T", res.Result)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
}

func TestInvokeCreateOrder(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	res := d.Invoke(context.Background(), ToolCreateOrder, map[string]any{
		"items": []any{
			map[string]any{"product_id": "basket-romance-01", "quantity": float64(1)},
		},
	})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	conf, ok := res.Result.(contractx.OrderConfirmation)
	if !ok {
		t.Fatalf("unexpected result type: %T", res.Result)
	}
	if conf.OrderID == "" {
		t.Fatal("expected an order id")
	}
}

func TestInvokeCreateOrderRejectsFractionalQuantity(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	res := d.Invoke(context.Background(), ToolCreateOrder, map[string]any{
		"items": []any{
			map[string]any{"product_id": "basket-romance-01", "quantity": 1.5},
		},
	})
	if res.Error == nil || res.Error.Kind != contractx.KindInvalidArguments {
		t.Fatalf("expected invalid_arguments, got %+v", res)
	}
}

func TestInvokeValidateDelivery(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	future := time.Now().AddDate(1, 0, 0)
	// Walk forward to a weekday so the check exercises the accept path.
	for future.Weekday() == time.Sunday {
		future = future.AddDate(0, 0, 1)
	}
	res := d.Invoke(context.Background(), ToolValidateDelivery, map[string]any{
		"date": future.Format("2006-01-02"),
	})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if _, ok := res.Result.(contractx.DeliveryDecision); !ok {
		t.Fatalf("unexpected result type: %T", res.Result)
	}
}

func TestInvokeCalculateFreight(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	res := d.Invoke(context.Background(), ToolCalculateFreight, map[string]any{
		"city":           "Campina Grande",
		"payment_method": "pix",
	})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	q, ok := res.Result.(contractx.FreightQuote)
	if !ok {
		t.Fatalf("unexpected result type: %T", res.Result)
	}
	if q.Amount != 0 {
		t.Fatalf("pix in campina grande is free, got %v", q.Amount)
	}
}

func TestInvokeSaveCustomerSummary(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	res := d.Invoke(context.Background(), ToolSaveCustomerSummary, map[string]any{
		"customer_phone": "+5583999990000",
		"summary":        "prefere cestas sem amendoim",
	})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	rec, ok := res.Result.(contractx.MemoryRecord)
	if !ok {
		t.Fatalf("unexpected result type: %T", res.Result)
	}
	if rec.ID == "" || rec.CustomerPhone != "+5583999990000" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestInvokeNotifySupport(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	d := newDispatcher(t, notifier)
	res := d.Invoke(context.Background(), ToolNotifySupport, map[string]any{
		"reason":         "complaint",
		"customer_phone": "+5583999990000",
	})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if notifier.last.Reason != "complaint" {
		t.Fatalf("notification not forwarded: %+v", notifier.last)
	}
}

func TestInvokeNotifySupportFailureDoesNotLeakDetail(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{err: errors.New("dial tcp 10.0.0.8:443: connection refused")}
	d := newDispatcher(t, notifier)
	res := d.Invoke(context.Background(), ToolNotifySupport, map[string]any{"reason": "complaint"})
	if res.Error == nil || res.Error.Kind != contractx.KindInternal {
		t.Fatalf("expected internal_error, got %+v", res)
	}
	if strings.Contains(res.Error.Message, "10.0.0.8") {
		t.Fatalf("internal detail leaked: %s", res.Error.Message)
	}
}

func TestToolsListsEveryRegisteredTool(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, &fakeNotifier{})
	tools := d.Tools()
	if len(tools) != 11 {
		t.Fatalf("expected 11 tools, got %d", len(tools))
	}
	for i := 1; i < len(tools); i++ {
		if tools[i-1] >= tools[i] {
			t.Fatalf("tool list must be sorted: %v", tools)
		}
	}
}
