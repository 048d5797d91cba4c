// Package dispatch routes tool calls to their components. It owns the
// fixed tool registry, strict argument validation, and the translation of
// component failures into the closed error vocabulary. No storage detail
// ever crosses this boundary.
package dispatch

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
	metricsx "github.com/tanpawarit/cesto-mcp-server/server/metrics"
)

// Tool names form a closed registry; anything else is unknown_tool.
const (
	ToolLookupGuideline     = "lookup_guideline"
	ToolSearchGuidelines    = "search_guidelines"
	ToolSearchCatalog       = "search_catalog"
	ToolCheckStock          = "check_stock"
	ToolCreateOrder         = "create_order"
	ToolListAddons          = "list_addons"
	ToolValidateDelivery    = "validate_delivery"
	ToolCalculateFreight    = "calculate_freight"
	ToolBusinessHours       = "business_hours"
	ToolSaveCustomerSummary = "save_customer_summary"
	ToolNotifySupport       = "notify_support"
)

type handlerFunc func(ctx context.Context, args arguments) (any, error)

// Deps wires the dispatcher to its components. Metrics is optional.
type Deps struct {
	Guidelines contractx.GuidelineStore
	Catalog    contractx.Catalog
	Orders     contractx.OrderManager
	Memory     contractx.MemoryStore
	Business   contractx.BusinessRules
	Notifier   contractx.Notifier
	Metrics    *metricsx.Registry
	Logger     *zerolog.Logger
}

type Dispatcher struct {
	guidelines contractx.GuidelineStore
	catalog    contractx.Catalog
	orders     contractx.OrderManager
	memory     contractx.MemoryStore
	business   contractx.BusinessRules
	notifier   contractx.Notifier
	metrics    *metricsx.Registry
	log        zerolog.Logger

	registry map[string]handlerFunc
}

func New(deps Deps) (*Dispatcher, error) {
	if deps.Guidelines == nil {
		return nil, errors.New("guideline store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("order manager is required")
	}
	if deps.Memory == nil {
		return nil, errors.New("memory store is required")
	}
	if deps.Business == nil {
		return nil, errors.New("business rules are required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("notifier is required")
	}

	logger := log.Logger
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	d := &Dispatcher{
		guidelines: deps.Guidelines,
		catalog:    deps.Catalog,
		orders:     deps.Orders,
		memory:     deps.Memory,
		business:   deps.Business,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		log:        logger,
	}
	d.registry = map[string]handlerFunc{
		ToolLookupGuideline:     d.handleLookupGuideline,
		ToolSearchGuidelines:    d.handleSearchGuidelines,
		ToolSearchCatalog:       d.handleSearchCatalog,
		ToolCheckStock:          d.handleCheckStock,
		ToolCreateOrder:         d.handleCreateOrder,
		ToolListAddons:          d.handleListAddons,
		ToolValidateDelivery:    d.handleValidateDelivery,
		ToolCalculateFreight:    d.handleCalculateFreight,
		ToolBusinessHours:       d.handleBusinessHours,
		ToolSaveCustomerSummary: d.handleSaveCustomerSummary,
		ToolNotifySupport:       d.handleNotifySupport,
	}
	return d, nil
}

// Tools lists the registry in stable order.
func (d *Dispatcher) Tools() []string {
	out := make([]string, 0, len(d.registry))
	for name := range d.registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Invoke validates and routes one tool call. The result carries either a
// payload or a boundary error, never both.
func (d *Dispatcher) Invoke(ctx context.Context, tool string, args map[string]any) contractx.ToolResult {
	if d.metrics != nil {
		d.metrics.ToolCalls.WithLabelValues(tool).Inc()
	}

	handler, ok := d.registry[tool]
	if !ok {
		return d.fail(tool, contractx.NewError(contractx.KindUnknownTool, "unknown tool %q", tool))
	}

	result, err := handler(ctx, arguments(args))
	if err != nil {
		return d.fail(tool, d.boundaryError(tool, err))
	}
	d.log.Debug().Str("tool", tool).Msg("tool call completed")
	return contractx.ToolResult{Tool: tool, Result: result}
}

func (d *Dispatcher) fail(tool string, be *contractx.Error) contractx.ToolResult {
	if d.metrics != nil {
		d.metrics.ToolErrors.WithLabelValues(tool, string(be.Kind)).Inc()
	}
	d.log.Debug().Str("tool", tool).Str("kind", string(be.Kind)).Msg("tool call rejected")
	return contractx.ToolResult{Tool: tool, Error: be}
}

// boundaryError maps component failures onto the closed vocabulary. Typed
// errors pass through untouched; ErrNotFound becomes not_found; anything
// else is logged internally and reduced to a generic internal_error.
func (d *Dispatcher) boundaryError(tool string, err error) *contractx.Error {
	if be, ok := contractx.AsBoundaryError(err); ok {
		return be
	}
	if errors.Is(err, contractx.ErrNotFound) {
		return contractx.NewError(contractx.KindNotFound, "requested record was not found")
	}
	d.log.Error().Err(err).Str("tool", tool).Msg("tool call failed")
	return contractx.NewError(contractx.KindInternal, "internal error, the request may be retried")
}

func (d *Dispatcher) handleLookupGuideline(_ context.Context, args arguments) (any, error) {
	if err := args.checkKeys("category"); err != nil {
		return nil, err
	}
	category, argErr := args.requiredString("category")
	if argErr != nil {
		return nil, argErr
	}
	g, err := d.guidelines.Lookup(category)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (d *Dispatcher) handleSearchGuidelines(_ context.Context, args arguments) (any, error) {
	if err := args.checkKeys("query"); err != nil {
		return nil, err
	}
	query, argErr := args.requiredString("query")
	if argErr != nil {
		return nil, argErr
	}
	if strings.TrimSpace(query) == "" {
		return nil, contractx.NewError(contractx.KindInvalidArguments, "query must not be blank")
	}
	return d.guidelines.Search(query), nil
}

func (d *Dispatcher) handleSearchCatalog(ctx context.Context, args arguments) (any, error) {
	if err := args.checkKeys("occasion_tag", "query", "min_price", "max_price", "limit"); err != nil {
		return nil, err
	}
	q := contractx.CatalogQuery{}
	var argErr *contractx.Error
	if q.OccasionTag, argErr = args.optionalString("occasion_tag"); argErr != nil {
		return nil, argErr
	}
	if q.Query, argErr = args.optionalString("query"); argErr != nil {
		return nil, argErr
	}
	if q.MinPrice, argErr = args.optionalNumber("min_price"); argErr != nil {
		return nil, argErr
	}
	if q.MaxPrice, argErr = args.optionalNumber("max_price"); argErr != nil {
		return nil, argErr
	}
	limit, argErr := args.optionalInt("limit")
	if argErr != nil {
		return nil, argErr
	}
	q.Limit = int(limit)
	return d.catalog.Search(ctx, q)
}

func (d *Dispatcher) handleCheckStock(ctx context.Context, args arguments) (any, error) {
	if err := args.checkKeys("product_id"); err != nil {
		return nil, err
	}
	productID, argErr := args.requiredString("product_id")
	if argErr != nil {
		return nil, argErr
	}
	if strings.TrimSpace(productID) == "" {
		return nil, contractx.NewError(contractx.KindInvalidArguments, "product_id must not be blank")
	}
	qty, err := d.catalog.StockOf(ctx, productID)
	if err != nil {
		return nil, err
	}
	return contractx.StockReport{ProductID: productID, Quantity: qty}, nil
}

func (d *Dispatcher) handleCreateOrder(ctx context.Context, args arguments) (any, error) {
	if err := args.checkKeys("items"); err != nil {
		return nil, err
	}
	items, argErr := args.orderItems("items")
	if argErr != nil {
		return nil, argErr
	}

	start := time.Now()
	conf, err := d.orders.Create(ctx, items)
	if d.metrics != nil {
		d.metrics.OrderLatency.Observe(time.Since(start).Seconds())
		if err == nil {
			d.metrics.OrdersConfirmed.Inc()
		} else {
			d.metrics.OrdersRejected.Inc()
		}
	}
	if err != nil {
		return nil, err
	}
	return conf, nil
}

func (d *Dispatcher) handleListAddons(ctx context.Context, args arguments) (any, error) {
	if err := args.checkKeys(); err != nil {
		return nil, err
	}
	return d.catalog.Addons(ctx)
}

func (d *Dispatcher) handleValidateDelivery(_ context.Context, args arguments) (any, error) {
	if err := args.checkKeys("date", "time"); err != nil {
		return nil, err
	}
	date, argErr := args.requiredString("date")
	if argErr != nil {
		return nil, argErr
	}
	timeOfDay, argErr := args.optionalString("time")
	if argErr != nil {
		return nil, argErr
	}
	return d.business.ValidateDelivery(date, timeOfDay)
}

func (d *Dispatcher) handleCalculateFreight(_ context.Context, args arguments) (any, error) {
	if err := args.checkKeys("city", "payment_method"); err != nil {
		return nil, err
	}
	city, argErr := args.requiredString("city")
	if argErr != nil {
		return nil, argErr
	}
	payment, argErr := args.requiredString("payment_method")
	if argErr != nil {
		return nil, argErr
	}
	return d.business.Freight(city, payment)
}

func (d *Dispatcher) handleBusinessHours(_ context.Context, args arguments) (any, error) {
	if err := args.checkKeys(); err != nil {
		return nil, err
	}
	return d.business.Hours(), nil
}

func (d *Dispatcher) handleSaveCustomerSummary(ctx context.Context, args arguments) (any, error) {
	if err := args.checkKeys("customer_phone", "summary"); err != nil {
		return nil, err
	}
	phone, argErr := args.requiredString("customer_phone")
	if argErr != nil {
		return nil, argErr
	}
	summary, argErr := args.requiredString("summary")
	if argErr != nil {
		return nil, argErr
	}
	return d.memory.SaveSummary(ctx, phone, summary)
}

func (d *Dispatcher) handleNotifySupport(ctx context.Context, args arguments) (any, error) {
	if err := args.checkKeys("reason", "customer_name", "customer_phone", "context"); err != nil {
		return nil, err
	}
	reason, argErr := args.requiredString("reason")
	if argErr != nil {
		return nil, argErr
	}
	n := contractx.SupportNotification{Reason: reason}
	if n.CustomerName, argErr = args.optionalString("customer_name"); argErr != nil {
		return nil, argErr
	}
	if n.CustomerPhone, argErr = args.optionalString("customer_phone"); argErr != nil {
		return nil, argErr
	}
	if n.Context, argErr = args.optionalString("context"); argErr != nil {
		return nil, argErr
	}
	receipt, err := d.notifier.Notify(ctx, n)
	if err != nil {
		d.log.Error().Err(err).Msg("support notification failed")
		return nil, contractx.NewError(contractx.KindInternal,
			"support notification could not be delivered, the request may be retried")
	}
	return receipt, nil
}
