package payments

import (
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) CreateProduct(name, description string) (*Product, error) {
	params := &stripe.ProductParams{
		Name: stripe.String(name),
	}
	if description != "" {
		params.Description = stripe.String(description)
	}

	p, err := g.api.Products.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create product: %w", err)
	}
	return &Product{ID: p.ID, Name: p.Name, Description: p.Description, Active: p.Active}, nil
}

func (g *StripeGateway) UpdateProduct(id, name, description string) error {
	params := &stripe.ProductParams{}
	if name != "" {
		params.Name = stripe.String(name)
	}
	if description != "" {
		params.Description = stripe.String(description)
	}

	if _, err := g.api.Products.Update(id, params); err != nil {
		return fmt.Errorf("stripe update product %s: %w", id, err)
	}
	return nil
}

// ArchiveProduct deactivates the product. Stripe products with prices cannot
// be deleted, only archived.
func (g *StripeGateway) ArchiveProduct(id string) error {
	params := &stripe.ProductParams{
		Active: stripe.Bool(false),
	}
	if _, err := g.api.Products.Update(id, params); err != nil {
		return fmt.Errorf("stripe archive product %s: %w", id, err)
	}
	return nil
}

func (g *StripeGateway) CreatePrice(productID string, unitAmount int64, currency, interval string) (*Price, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(productID),
		UnitAmount: stripe.Int64(unitAmount),
		Currency:   stripe.String(currency),
	}
	if interval != "" {
		params.Recurring = &stripe.PriceRecurringParams{
			Interval: stripe.String(interval),
		}
	}

	p, err := g.api.Prices.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create price: %w", err)
	}
	return fromStripePrice(p), nil
}

// ArchivePrice deactivates the price. Prices are never deleted so historic
// invoices keep resolving.
func (g *StripeGateway) ArchivePrice(id string) error {
	params := &stripe.PriceParams{
		Active: stripe.Bool(false),
	}
	if _, err := g.api.Prices.Update(id, params); err != nil {
		return fmt.Errorf("stripe archive price %s: %w", id, err)
	}
	return nil
}

func (g *StripeGateway) ListCatalog() ([]CatalogEntry, error) {
	productParams := &stripe.ProductListParams{
		Active: stripe.Bool(true),
	}
	entries := make(map[string]*CatalogEntry)
	var order []string

	prodIter := g.api.Products.List(productParams)
	for prodIter.Next() {
		p := prodIter.Product()
		entries[p.ID] = &CatalogEntry{
			Product: Product{ID: p.ID, Name: p.Name, Description: p.Description, Active: p.Active},
		}
		order = append(order, p.ID)
	}
	if err := prodIter.Err(); err != nil {
		return nil, fmt.Errorf("stripe list products: %w", err)
	}

	priceParams := &stripe.PriceListParams{
		Active: stripe.Bool(true),
	}
	priceIter := g.api.Prices.List(priceParams)
	for priceIter.Next() {
		p := priceIter.Price()
		if p.Product == nil {
			continue
		}
		entry, ok := entries[p.Product.ID]
		if !ok {
			// Price for an archived product; skip.
			continue
		}
		entry.Prices = append(entry.Prices, *fromStripePrice(p))
	}
	if err := priceIter.Err(); err != nil {
		return nil, fmt.Errorf("stripe list prices: %w", err)
	}

	result := make([]CatalogEntry, 0, len(order))
	for _, id := range order {
		result = append(result, *entries[id])
	}
	return result, nil
}

func (g *StripeGateway) CreateCheckoutSession(params CheckoutParams) (*CheckoutSession, error) {
	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(params.Mode),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	for k, v := range params.Metadata {
		sessionParams.AddMetadata(k, v)
	}

	s, err := g.api.CheckoutSessions.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	return &Event{
		ID:   event.ID,
		Type: string(event.Type),
		Data: event.Data.Raw,
	}, nil
}

func fromStripePrice(p *stripe.Price) *Price {
	price := &Price{
		ID:         p.ID,
		UnitAmount: p.UnitAmount,
		Currency:   string(p.Currency),
		Active:     p.Active,
	}
	if p.Product != nil {
		price.ProductID = p.Product.ID
	}
	if p.Recurring != nil {
		price.Interval = string(p.Recurring.Interval)
	}
	return price
}
