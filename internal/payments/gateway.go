package payments

import "encoding/json"

// Product mirrors a payment-processor product.
type Product struct {
	ID          string
	Name        string
	Description string
	Active      bool
}

// Price mirrors a payment-processor price. Interval uses the processor's
// vocabulary: "month", "year", or "" for one-time prices.
type Price struct {
	ID         string
	ProductID  string
	UnitAmount int64 // smallest currency unit
	Currency   string
	Interval   string
	Active     bool
}

// CatalogEntry groups a product with its prices, as returned by ListCatalog.
type CatalogEntry struct {
	Product Product
	Prices  []Price
}

// Checkout modes.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

type CheckoutParams struct {
	PriceID       string
	Mode          string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified webhook event. Data is the raw event object payload.
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

// Webhook event types the application reacts to.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Gateway abstracts the payment processor. Product and price mutations happen
// against the external catalog before the local rows change, so callers can
// run compensating actions on failure.
type Gateway interface {
	CreateProduct(name, description string) (*Product, error)
	UpdateProduct(id, name, description string) error
	ArchiveProduct(id string) error

	CreatePrice(productID string, unitAmount int64, currency, interval string) (*Price, error)
	ArchivePrice(id string) error

	// ListCatalog returns all active products with their active prices.
	ListCatalog() ([]CatalogEntry, error)

	CreateCheckoutSession(params CheckoutParams) (*CheckoutSession, error)

	// ConstructEvent verifies the webhook signature and decodes the event.
	// Unsigned or mis-signed payloads must return an error.
	ConstructEvent(payload []byte, signature string) (*Event, error)
}
