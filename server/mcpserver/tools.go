package mcpserver

import (
	"context"
	"encoding/json"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
	dispatchx "github.com/tanpawarit/cesto-mcp-server/server/dispatch"
)

func (s *Server) registerTools(srv *mcpsdk.Server) {
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        dispatchx.ToolLookupGuideline,
		Description: "Return the service guideline for an exact category key.",
	}, s.handleLookupGuideline)
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        dispatchx.ToolSearchGuidelines,
		Description: "Free-text search over the service guidelines, returning the best matching documents.",
	}, s.handleSearchGuidelines)
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        dispatchx.ToolSearchCatalog,
		Description: "Search the product catalog by occasion tag and/or free text, ranked with price tie-break.",
	}, s.handleSearchCatalog)
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        dispatchx.ToolCheckStock,
		Description: "Return the current available quantity for a product.",
	}, s.handleCheckStock)
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        dispatchx.ToolCreateOrder,
		Description: "Register a confirmed order, atomically decrementing stock for every item or nothing at all.",
	}, s.handleCreateOrder)
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        dispatchx.ToolListAddons,
		Description: "List the add-on items offered alongside baskets.",
	}, s.handleListAddons)
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        dispatchx.ToolValidateDelivery,
		Description: "Validate a delivery date and optional time against business hours and production lead.",
	}, s.handleValidateDelivery)
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        dispatchx.ToolCalculateFreight,
		Description: "Calculate freight by city and payment method.",
	}, s.handleCalculateFreight)
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        dispatchx.ToolBusinessHours,
		Description: "Report whether the store is currently open for orders.",
	}, s.handleBusinessHours)
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        dispatchx.ToolSaveCustomerSummary,
		Description: "Upsert the long-term memory summary for a customer phone number.",
	}, s.handleSaveCustomerSummary)
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        dispatchx.ToolNotifySupport,
		Description: "Hand the conversation over to the human support team.",
	}, s.handleNotifySupport)
}

// invoke funnels a transport call through the dispatcher, which owns
// validation, routing and the closed error vocabulary.
func (s *Server) invoke(ctx context.Context, tool string, args map[string]any) (any, error) {
	res := s.dispatcher.Invoke(ctx, tool, args)
	if res.Error != nil {
		return nil, toolError{envelope: res.Error}
	}
	return res.Result, nil
}

// toolError renders a boundary error as a structured JSON envelope so MCP
// clients can branch on kind and retryability.
type toolError struct {
	envelope *contractx.Error
}

func (e toolError) Error() string {
	encoded, err := json.Marshal(map[string]any{"error": map[string]any{
		"kind":       e.envelope.Kind,
		"message":    e.envelope.Message,
		"product_id": e.envelope.ProductID,
		"retryable":  e.envelope.Retryable(),
	}})
	if err != nil {
		return `{"error":{"kind":"internal_error","message":"failed to encode error envelope"}}`
	}
	return string(encoded)
}

type lookupGuidelineInput struct {
	Category string `json:"category" jsonschema:"Guideline category key"`
}

func (s *Server) handleLookupGuideline(ctx context.Context, _ *mcpsdk.CallToolRequest, in lookupGuidelineInput) (*mcpsdk.CallToolResult, contractx.Guideline, error) {
	res, err := s.invoke(ctx, dispatchx.ToolLookupGuideline, map[string]any{"category": in.Category})
	if err != nil {
		return nil, contractx.Guideline{}, err
	}
	return nil, res.(contractx.Guideline), nil
}

type searchGuidelinesInput struct {
	Query string `json:"query" jsonschema:"Free-text guideline query"`
}

func (s *Server) handleSearchGuidelines(ctx context.Context, _ *mcpsdk.CallToolRequest, in searchGuidelinesInput) (*mcpsdk.CallToolResult, contractx.GuidelineSearchResult, error) {
	res, err := s.invoke(ctx, dispatchx.ToolSearchGuidelines, map[string]any{"query": in.Query})
	if err != nil {
		return nil, contractx.GuidelineSearchResult{}, err
	}
	return nil, res.(contractx.GuidelineSearchResult), nil
}

type searchCatalogInput struct {
	OccasionTag string  `json:"occasion_tag,omitempty" jsonschema:"Occasion tag such as romance or birthday"`
	Query       string  `json:"query,omitempty" jsonschema:"Free-text product query"`
	MinPrice    float64 `json:"min_price,omitempty" jsonschema:"Minimum price bound"`
	MaxPrice    float64 `json:"max_price,omitempty" jsonschema:"Maximum price bound"`
	Limit       int     `json:"limit,omitempty" jsonschema:"Maximum number of results"`
}

type searchCatalogOutput struct {
	Products []contractx.Product `json:"products"`
}

func (s *Server) handleSearchCatalog(ctx context.Context, _ *mcpsdk.CallToolRequest, in searchCatalogInput) (*mcpsdk.CallToolResult, searchCatalogOutput, error) {
	args := map[string]any{}
	if in.OccasionTag != "" {
		args["occasion_tag"] = in.OccasionTag
	}
	if in.Query != "" {
		args["query"] = in.Query
	}
	if in.MinPrice > 0 {
		args["min_price"] = in.MinPrice
	}
	if in.MaxPrice > 0 {
		args["max_price"] = in.MaxPrice
	}
	if in.Limit > 0 {
		args["limit"] = in.Limit
	}
	res, err := s.invoke(ctx, dispatchx.ToolSearchCatalog, args)
	if err != nil {
		return nil, searchCatalogOutput{}, err
	}
	return nil, searchCatalogOutput{Products: res.([]contractx.Product)}, nil
}

type checkStockInput struct {
	ProductID string `json:"product_id" jsonschema:"Product identifier"`
}

func (s *Server) handleCheckStock(ctx context.Context, _ *mcpsdk.CallToolRequest, in checkStockInput) (*mcpsdk.CallToolResult, contractx.StockReport, error) {
	res, err := s.invoke(ctx, dispatchx.ToolCheckStock, map[string]any{"product_id": in.ProductID})
	if err != nil {
		return nil, contractx.StockReport{}, err
	}
	return nil, res.(contractx.StockReport), nil
}

type orderItemInput struct {
	ProductID string `json:"product_id" jsonschema:"Product identifier"`
	Quantity  int64  `json:"quantity" jsonschema:"Requested quantity, must be positive"`
}

type createOrderInput struct {
	Items []orderItemInput `json:"items" jsonschema:"Order lines"`
}

func (s *Server) handleCreateOrder(ctx context.Context, _ *mcpsdk.CallToolRequest, in createOrderInput) (*mcpsdk.CallToolResult, contractx.OrderConfirmation, error) {
	items := make([]any, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, map[string]any{"product_id": it.ProductID, "quantity": it.Quantity})
	}
	res, err := s.invoke(ctx, dispatchx.ToolCreateOrder, map[string]any{"items": items})
	if err != nil {
		return nil, contractx.OrderConfirmation{}, err
	}
	return nil, res.(contractx.OrderConfirmation), nil
}

type listAddonsInput struct{}

type listAddonsOutput struct {
	Addons []contractx.Addon `json:"addons"`
}

func (s *Server) handleListAddons(ctx context.Context, _ *mcpsdk.CallToolRequest, _ listAddonsInput) (*mcpsdk.CallToolResult, listAddonsOutput, error) {
	res, err := s.invoke(ctx, dispatchx.ToolListAddons, map[string]any{})
	if err != nil {
		return nil, listAddonsOutput{}, err
	}
	return nil, listAddonsOutput{Addons: res.([]contractx.Addon)}, nil
}

type validateDeliveryInput struct {
	Date string `json:"date" jsonschema:"Delivery date in YYYY-MM-DD"`
	Time string `json:"time,omitempty" jsonschema:"Optional delivery time in HH:MM"`
}

func (s *Server) handleValidateDelivery(ctx context.Context, _ *mcpsdk.CallToolRequest, in validateDeliveryInput) (*mcpsdk.CallToolResult, contractx.DeliveryDecision, error) {
	args := map[string]any{"date": in.Date}
	if in.Time != "" {
		args["time"] = in.Time
	}
	res, err := s.invoke(ctx, dispatchx.ToolValidateDelivery, args)
	if err != nil {
		return nil, contractx.DeliveryDecision{}, err
	}
	return nil, res.(contractx.DeliveryDecision), nil
}

type calculateFreightInput struct {
	City          string `json:"city" jsonschema:"Delivery city"`
	PaymentMethod string `json:"payment_method" jsonschema:"pix or card"`
}

func (s *Server) handleCalculateFreight(ctx context.Context, _ *mcpsdk.CallToolRequest, in calculateFreightInput) (*mcpsdk.CallToolResult, contractx.FreightQuote, error) {
	res, err := s.invoke(ctx, dispatchx.ToolCalculateFreight, map[string]any{
		"city":           in.City,
		"payment_method": in.PaymentMethod,
	})
	if err != nil {
		return nil, contractx.FreightQuote{}, err
	}
	return nil, res.(contractx.FreightQuote), nil
}

type businessHoursInput struct{}

func (s *Server) handleBusinessHours(ctx context.Context, _ *mcpsdk.CallToolRequest, _ businessHoursInput) (*mcpsdk.CallToolResult, contractx.HoursStatus, error) {
	res, err := s.invoke(ctx, dispatchx.ToolBusinessHours, map[string]any{})
	if err != nil {
		return nil, contractx.HoursStatus{}, err
	}
	return nil, res.(contractx.HoursStatus), nil
}

type saveCustomerSummaryInput struct {
	CustomerPhone string `json:"customer_phone" jsonschema:"Customer phone number"`
	Summary       string `json:"summary" jsonschema:"Summary of preferences, allergies, special dates"`
}

func (s *Server) handleSaveCustomerSummary(ctx context.Context, _ *mcpsdk.CallToolRequest, in saveCustomerSummaryInput) (*mcpsdk.CallToolResult, contractx.MemoryRecord, error) {
	res, err := s.invoke(ctx, dispatchx.ToolSaveCustomerSummary, map[string]any{
		"customer_phone": in.CustomerPhone,
		"summary":        in.Summary,
	})
	if err != nil {
		return nil, contractx.MemoryRecord{}, err
	}
	return nil, res.(contractx.MemoryRecord), nil
}

type notifySupportInput struct {
	Reason        string `json:"reason" jsonschema:"Handoff reason such as end_of_checkout or freight_doubt"`
	CustomerName  string `json:"customer_name,omitempty" jsonschema:"Customer display name"`
	CustomerPhone string `json:"customer_phone,omitempty" jsonschema:"Customer phone number"`
	Context       string `json:"context,omitempty" jsonschema:"Short free-text context"`
}

func (s *Server) handleNotifySupport(ctx context.Context, _ *mcpsdk.CallToolRequest, in notifySupportInput) (*mcpsdk.CallToolResult, contractx.NotifyReceipt, error) {
	args := map[string]any{"reason": in.Reason}
	if in.CustomerName != "" {
		args["customer_name"] = in.CustomerName
	}
	if in.CustomerPhone != "" {
		args["customer_phone"] = in.CustomerPhone
	}
	if in.Context != "" {
		args["context"] = in.Context
	}
	res, err := s.invoke(ctx, dispatchx.ToolNotifySupport, args)
	if err != nil {
		return nil, contractx.NotifyReceipt{}, err
	}
	return nil, res.(contractx.NotifyReceipt), nil
}
