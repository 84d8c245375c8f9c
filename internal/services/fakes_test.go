package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cvanalyzer_backend/internal/ai"
	"cvanalyzer_backend/internal/payments"
)

// fakeGateway is an in-memory payment processor double.
type fakeGateway struct {
	products map[string]*payments.Product
	prices   map[string]*payments.Price
	seq      int

	createProductErr error
	createPriceErr   error
	archiveErr       error
	catalog          []payments.CatalogEntry
	listErr          error

	sessions     []payments.CheckoutParams
	sessionErr   error
	event        *payments.Event
	signatureErr error

	archivedProducts []string
	archivedPrices   []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		products: make(map[string]*payments.Product),
		prices:   make(map[string]*payments.Price),
	}
}

func (g *fakeGateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_%d", prefix, g.seq)
}

func (g *fakeGateway) CreateProduct(name, description string) (*payments.Product, error) {
	if g.createProductErr != nil {
		return nil, g.createProductErr
	}
	p := &payments.Product{ID: g.nextID("prod"), Name: name, Description: description, Active: true}
	g.products[p.ID] = p
	return p, nil
}

func (g *fakeGateway) UpdateProduct(id, name, description string) error {
	p, ok := g.products[id]
	if !ok {
		return errors.New("no such product")
	}
	if name != "" {
		p.Name = name
	}
	if description != "" {
		p.Description = description
	}
	return nil
}

func (g *fakeGateway) ArchiveProduct(id string) error {
	if g.archiveErr != nil {
		return g.archiveErr
	}
	g.archivedProducts = append(g.archivedProducts, id)
	if p, ok := g.products[id]; ok {
		p.Active = false
	}
	return nil
}

func (g *fakeGateway) CreatePrice(productID string, unitAmount int64, currency, interval string) (*payments.Price, error) {
	if g.createPriceErr != nil {
		return nil, g.createPriceErr
	}
	p := &payments.Price{
		ID:         g.nextID("price"),
		ProductID:  productID,
		UnitAmount: unitAmount,
		Currency:   currency,
		Interval:   interval,
		Active:     true,
	}
	g.prices[p.ID] = p
	return p, nil
}

func (g *fakeGateway) ArchivePrice(id string) error {
	if g.archiveErr != nil {
		return g.archiveErr
	}
	g.archivedPrices = append(g.archivedPrices, id)
	if p, ok := g.prices[id]; ok {
		p.Active = false
	}
	return nil
}

func (g *fakeGateway) ListCatalog() ([]payments.CatalogEntry, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.catalog, nil
}

func (g *fakeGateway) CreateCheckoutSession(params payments.CheckoutParams) (*payments.CheckoutSession, error) {
	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	g.sessions = append(g.sessions, params)
	return &payments.CheckoutSession{
		ID:  g.nextID("cs"),
		URL: "https://checkout.test/session",
	}, nil
}

func (g *fakeGateway) ConstructEvent(payload []byte, signature string) (*payments.Event, error) {
	if g.signatureErr != nil {
		return nil, g.signatureErr
	}
	return g.event, nil
}

// fakeExtractor is an AI client double.
type fakeExtractor struct {
	data       *ai.ResumeData
	extractErr error

	summary    string
	summaryErr error

	coverLetter    string
	coverLetterErr error
}

func (f *fakeExtractor) ExtractResume(ctx context.Context, file []byte, mimeType string) (*ai.ResumeData, error) {
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.data, nil
}

func (f *fakeExtractor) GenerateSummary(ctx context.Context, data *ai.ResumeData) (string, error) {
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	return f.summary, nil
}

func (f *fakeExtractor) GenerateCoverLetter(ctx context.Context, data *ai.ResumeData, jobDescription string) (string, error) {
	if f.coverLetterErr != nil {
		return "", f.coverLetterErr
	}
	return f.coverLetter, nil
}

// fakeStorage is an in-memory blob store.
type fakeStorage struct {
	blobs   map[string][]byte
	saveErr error
	getErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blobs: make(map[string][]byte)}
}

func (s *fakeStorage) Save(ctx context.Context, path string, reader io.Reader, contentType string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.blobs[path] = data
	return nil
}

func (s *fakeStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, ok := s.blobs[path]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) Delete(ctx context.Context, path string) error {
	delete(s.blobs, path)
	return nil
}

func (s *fakeStorage) Exists(ctx context.Context, path string) (bool, error) {
	_, ok := s.blobs[path]
	return ok, nil
}

func (s *fakeStorage) GetURL(ctx context.Context, path string) (string, error) {
	return "https://files.test/" + path, nil
}

func (s *fakeStorage) GetSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return "https://files.test/signed/" + path, nil
}

func (s *fakeStorage) GetSize(ctx context.Context, path string) (int64, error) {
	data, ok := s.blobs[path]
	if !ok {
		return 0, errors.New("blob not found")
	}
	return int64(len(data)), nil
}
