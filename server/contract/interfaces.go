package contract

import "context"

// GuidelineStore is the read-only store policy corpus. Lookups observe a
// consistent snapshot, never a partial reload.
type GuidelineStore interface {
	Lookup(category string) (Guideline, error)
	Search(query string) GuidelineSearchResult
	Categories() []string
}

// CatalogQuery narrows a catalog search. Zero values mean "no constraint".
type CatalogQuery struct {
	OccasionTag string
	Query       string
	MinPrice    float64
	MaxPrice    float64
	Limit       int
}

// Catalog is the read model over products and stock. All mutation routes
// through the OrderManager.
type Catalog interface {
	Search(ctx context.Context, q CatalogQuery) ([]Product, error)
	StockOf(ctx context.Context, productID string) (int64, error)
	Addons(ctx context.Context) ([]Addon, error)
}

// OrderManager validates and commits orders, decrementing stock atomically.
type OrderManager interface {
	Create(ctx context.Context, items []OrderItem) (OrderConfirmation, error)
}

// MemoryStore keeps long-term customer summaries with an expiry horizon.
type MemoryStore interface {
	SaveSummary(ctx context.Context, phone, summary string) (MemoryRecord, error)
}

// BusinessRules answers schedule and freight questions.
type BusinessRules interface {
	ValidateDelivery(date, timeOfDay string) (DeliveryDecision, error)
	Freight(city, paymentMethod string) (FreightQuote, error)
	Hours() HoursStatus
}

// Notifier hands a conversation over to the human support channel. The
// concrete delivery mechanism is an external collaborator.
type Notifier interface {
	Notify(ctx context.Context, n SupportNotification) (NotifyReceipt, error)
}
