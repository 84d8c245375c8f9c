package helpers

import (
	"context"
	"errors"
	"fmt"

	"cvanalyzer_backend/internal/ai"
	"cvanalyzer_backend/internal/payments"
)

// FakeExtractor stands in for the AI service in integration tests.
type FakeExtractor struct {
	Data       *ai.ResumeData
	ExtractErr error

	Summary    string
	SummaryErr error

	CoverLetter    string
	CoverLetterErr error
}

// DefaultExtractor returns a FakeExtractor preloaded with a plausible result.
func DefaultExtractor() *FakeExtractor {
	return &FakeExtractor{
		Data: &ai.ResumeData{
			PersonalInfo: ai.PersonalInfo{
				Name:  "Jane Dow",
				Email: "jane@example.com",
				Phone: "+1 555 0100",
			},
			Experience: []ai.ExperienceEntry{
				{Company: "Acme", Title: "Backend Engineer", Description: "Built and operated billing services for five years."},
			},
			Skills: ai.Skills{Technical: []string{"Go", "PostgreSQL"}},
		},
		Summary:     "Backend engineer with billing experience.",
		CoverLetter: "Dear hiring manager, I would like to apply.",
	}
}

func (f *FakeExtractor) ExtractResume(ctx context.Context, file []byte, mimeType string) (*ai.ResumeData, error) {
	if f.ExtractErr != nil {
		return nil, f.ExtractErr
	}
	return f.Data, nil
}

func (f *FakeExtractor) GenerateSummary(ctx context.Context, data *ai.ResumeData) (string, error) {
	if f.SummaryErr != nil {
		return "", f.SummaryErr
	}
	return f.Summary, nil
}

func (f *FakeExtractor) GenerateCoverLetter(ctx context.Context, data *ai.ResumeData, jobDescription string) (string, error) {
	if f.CoverLetterErr != nil {
		return "", f.CoverLetterErr
	}
	return f.CoverLetter, nil
}

// FakeGateway is an in-memory payment processor. Webhook events are injected
// through NextEvent and returned by ConstructEvent regardless of payload, so
// tests drive the webhook endpoint without real signatures.
type FakeGateway struct {
	Products map[string]*payments.Product
	Prices   map[string]*payments.Price
	Sessions []payments.CheckoutParams

	NextEvent    *payments.Event
	SignatureErr error

	seq int
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		Products: make(map[string]*payments.Product),
		Prices:   make(map[string]*payments.Price),
	}
}

func (g *FakeGateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_%d", prefix, g.seq)
}

func (g *FakeGateway) CreateProduct(name, description string) (*payments.Product, error) {
	p := &payments.Product{ID: g.nextID("prod"), Name: name, Description: description, Active: true}
	g.Products[p.ID] = p
	return p, nil
}

func (g *FakeGateway) UpdateProduct(id, name, description string) error {
	p, ok := g.Products[id]
	if !ok {
		return errors.New("no such product")
	}
	p.Name = name
	p.Description = description
	return nil
}

func (g *FakeGateway) ArchiveProduct(id string) error {
	if p, ok := g.Products[id]; ok {
		p.Active = false
	}
	return nil
}

func (g *FakeGateway) CreatePrice(productID string, unitAmount int64, currency, interval string) (*payments.Price, error) {
	p := &payments.Price{
		ID:         g.nextID("price"),
		ProductID:  productID,
		UnitAmount: unitAmount,
		Currency:   currency,
		Interval:   interval,
		Active:     true,
	}
	g.Prices[p.ID] = p
	return p, nil
}

func (g *FakeGateway) ArchivePrice(id string) error {
	if p, ok := g.Prices[id]; ok {
		p.Active = false
	}
	return nil
}

func (g *FakeGateway) ListCatalog() ([]payments.CatalogEntry, error) {
	var entries []payments.CatalogEntry
	for _, product := range g.Products {
		if !product.Active {
			continue
		}
		entry := payments.CatalogEntry{Product: *product}
		for _, price := range g.Prices {
			if price.ProductID == product.ID && price.Active {
				entry.Prices = append(entry.Prices, *price)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (g *FakeGateway) CreateCheckoutSession(params payments.CheckoutParams) (*payments.CheckoutSession, error) {
	g.Sessions = append(g.Sessions, params)
	return &payments.CheckoutSession{
		ID:  g.nextID("cs"),
		URL: "https://checkout.test/session",
	}, nil
}

func (g *FakeGateway) ConstructEvent(payload []byte, signature string) (*payments.Event, error) {
	if g.SignatureErr != nil {
		return nil, g.SignatureErr
	}
	if g.NextEvent == nil {
		return nil, errors.New("no event queued")
	}
	return g.NextEvent, nil
}
