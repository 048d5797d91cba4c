package contract

import (
	"strings"
	"time"
)

// Product is a catalog entry (gift basket, flowers, frames). Catalog data is
// read-only to this service; administrative updates happen out of band.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	ImageURL    string   `json:"image_url,omitempty"`
	Occasions   []string `json:"occasions,omitempty"`
}

// HasOccasion reports whether the product carries the given occasion tag.
// Comparison is case-insensitive on both sides.
func (p Product) HasOccasion(tag string) bool {
	for _, o := range p.Occasions {
		if strings.EqualFold(o, tag) {
			return true
		}
	}
	return false
}

// Addon is an extra item offered alongside a basket (chocolates, balloons).
type Addon struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// Guideline is a store policy document looked up by category key.
type Guideline struct {
	Category string `json:"category"`
	Body     string `json:"body"`
}

// GuidelineMatch is a scored hit from a free-text guideline search.
type GuidelineMatch struct {
	Category string `json:"category"`
	Score    int    `json:"relevance_score"`
}

// GuidelineSearchResult carries the ranked matches plus the full documents
// for the top hits. Available lists every known category so a caller can
// recover from a miss without a second round trip.
type GuidelineSearchResult struct {
	Query      string           `json:"query"`
	Matches    []GuidelineMatch `json:"matches,omitempty"`
	Guidelines []Guideline      `json:"guidelines,omitempty"`
	Available  []string         `json:"available_categories,omitempty"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderRejected  OrderStatus = "rejected"
)

// OrderItem is one requested line of an order.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// Order is created exclusively by the order manager. Confirmed and rejected
// are terminal; a persisted order is never mutated afterwards.
type Order struct {
	ID        string      `json:"id"`
	Items     []OrderItem `json:"items"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderConfirmation is returned to the caller once the stock decrement has
// been durably committed.
type OrderConfirmation struct {
	OrderID   string    `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

// StockReport is the check_stock payload.
type StockReport struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// DeliveryDecision answers a delivery-date validation request.
type DeliveryDecision struct {
	Date      string `json:"date"`
	Time      string `json:"time,omitempty"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// FreightQuote is the calculate_freight payload.
type FreightQuote struct {
	City          string  `json:"city"`
	PaymentMethod string  `json:"payment_method"`
	Amount        float64 `json:"amount"`
}

// HoursStatus reports whether the store is currently open for orders.
type HoursStatus struct {
	Open    bool   `json:"open"`
	Message string `json:"message"`
}

// MemoryRecord is a long-term customer summary keyed by phone number.
// Records expire and become invisible to reads after ExpiresAt.
type MemoryRecord struct {
	ID            string    `json:"id"`
	CustomerPhone string    `json:"customer_phone"`
	Summary       string    `json:"summary"`
	UpdatedAt     time.Time `json:"updated_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// SupportNotification asks the human team to take over a conversation.
type SupportNotification struct {
	Reason        string `json:"reason"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Context       string `json:"context,omitempty"`
}

// NotifyReceipt acknowledges a delivered support notification.
type NotifyReceipt struct {
	Delivered bool   `json:"delivered"`
	Priority  string `json:"priority"`
}

// ToolRequest is a transient tool call: a name plus named arguments.
type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is either a typed payload or a typed error, never both.
type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  *Error `json:"error,omitempty"`
}
