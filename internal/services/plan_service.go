package services

import (
	"encoding/json"
	"fmt"
	"math"

	"cvanalyzer_backend/internal/logger"
	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/payments"
	"cvanalyzer_backend/internal/repositories"
	"cvanalyzer_backend/internal/services/dto"
	"cvanalyzer_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PlanService interface {
	Create(db *gorm.DB, req *dto.CreatePlanRequest) (*dto.AdminPlanDTO, error)
	Update(db *gorm.DB, planID string, req *dto.UpdatePlanRequest) (*dto.AdminPlanDTO, error)
	Delete(db *gorm.DB, planID string) error

	ListPublic(db *gorm.DB) ([]dto.PlanDTO, error)
	ListAdmin(db *gorm.DB) ([]dto.AdminPlanDTO, error)
	Get(db *gorm.DB, planID string) (*dto.PlanDTO, error)

	// Sync pulls the Stripe catalog and upserts local plans. Per-product
	// failures are collected, never aborting the whole run.
	Sync(db *gorm.DB) (*dto.SyncReport, error)
}

type PlanServiceImpl struct {
	planRepo repositories.PlanRepository
	gateway  payments.Gateway
}

func NewPlanService(planRepo repositories.PlanRepository, gateway payments.Gateway) PlanService {
	return &PlanServiceImpl{
		planRepo: planRepo,
		gateway:  gateway,
	}
}

// Create mirrors the plan to Stripe before the local insert. If the insert
// fails, the fresh Stripe product is archived as a compensating action.
func (s *PlanServiceImpl) Create(db *gorm.DB, req *dto.CreatePlanRequest) (*dto.AdminPlanDTO, error) {
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	product, err := s.gateway.CreateProduct(req.Name, req.Description)
	if err != nil {
		return nil, apperrors.ExternalServiceError("stripe", err)
	}

	price, err := s.gateway.CreatePrice(product.ID, toUnitAmount(req.Price), currency, stripeInterval(req.Interval))
	if err != nil {
		s.compensateProduct(product.ID)
		return nil, apperrors.ExternalServiceError("stripe", err)
	}

	plan := &models.BillingPlan{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		Currency:        currency,
		Interval:        req.Interval,
		Credits:         req.Credits,
		Features:        marshalFeatures(req.Features),
		IsActive:        true,
		SortOrder:       req.SortOrder,
		StripeProductID: product.ID,
		StripePriceID:   price.ID,
	}
	if err := s.planRepo.Create(db, plan); err != nil {
		s.compensateProduct(product.ID)
		return nil, apperrors.InternalError(err)
	}

	logger.Info("billing plan created",
		"plan_id", plan.ID,
		"stripe_product_id", product.ID,
	)

	result := dto.NewAdminPlanDTO(plan)
	return &result, nil
}

// Update changes the mutable plan fields. Name and description propagate to
// the Stripe product before the local row changes.
func (s *PlanServiceImpl) Update(db *gorm.DB, planID string, req *dto.UpdatePlanRequest) (*dto.AdminPlanDTO, error) {
	plan, err := s.planRepo.FindByID(db, planID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPlanNotFound) {
			return nil, apperrors.ErrPlanNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	name := plan.Name
	description := plan.Description
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}

	if plan.StripeProductID != "" && (name != plan.Name || description != plan.Description) {
		if err := s.gateway.UpdateProduct(plan.StripeProductID, name, description); err != nil {
			return nil, apperrors.ExternalServiceError("stripe", err)
		}
	}

	plan.Name = name
	plan.Description = description
	if req.Credits != nil {
		plan.Credits = *req.Credits
	}
	if req.Features != nil {
		plan.Features = marshalFeatures(req.Features)
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		plan.SortOrder = *req.SortOrder
	}

	if err := s.planRepo.Save(db, plan); err != nil {
		return nil, apperrors.InternalError(err)
	}

	result := dto.NewAdminPlanDTO(plan)
	return &result, nil
}

// Delete archives the Stripe price and product before removing the local row.
// If archiving fails the local row stays, so the catalog never references a
// plan Stripe still sells.
func (s *PlanServiceImpl) Delete(db *gorm.DB, planID string) error {
	plan, err := s.planRepo.FindByID(db, planID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPlanNotFound) {
			return apperrors.ErrPlanNotFound
		}
		return apperrors.InternalError(err)
	}

	if plan.StripePriceID != "" {
		if err := s.gateway.ArchivePrice(plan.StripePriceID); err != nil {
			return apperrors.ExternalServiceError("stripe", err)
		}
	}
	if plan.StripeProductID != "" {
		if err := s.gateway.ArchiveProduct(plan.StripeProductID); err != nil {
			return apperrors.ExternalServiceError("stripe", err)
		}
	}

	if err := s.planRepo.Delete(db, planID); err != nil {
		return apperrors.InternalError(err)
	}

	logger.Info("billing plan deleted", "plan_id", planID)
	return nil
}

func (s *PlanServiceImpl) ListPublic(db *gorm.DB) ([]dto.PlanDTO, error) {
	plans, err := s.planRepo.ListActive(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.PlanDTO, 0, len(plans))
	for i := range plans {
		items = append(items, dto.NewPlanDTO(&plans[i]))
	}
	return items, nil
}

func (s *PlanServiceImpl) ListAdmin(db *gorm.DB) ([]dto.AdminPlanDTO, error) {
	plans, err := s.planRepo.ListAll(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.AdminPlanDTO, 0, len(plans))
	for i := range plans {
		items = append(items, dto.NewAdminPlanDTO(&plans[i]))
	}
	return items, nil
}

func (s *PlanServiceImpl) Get(db *gorm.DB, planID string) (*dto.PlanDTO, error) {
	plan, err := s.planRepo.FindByID(db, planID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPlanNotFound) {
			return nil, apperrors.ErrPlanNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	result := dto.NewPlanDTO(plan)
	return &result, nil
}

// Sync upserts local plans from the Stripe catalog, matching rows by
// stripe_product_id. A product with no usable price, or a failing upsert,
// lands in the report; the rest of the batch proceeds.
func (s *PlanServiceImpl) Sync(db *gorm.DB) (*dto.SyncReport, error) {
	catalog, err := s.gateway.ListCatalog()
	if err != nil {
		return nil, apperrors.ExternalServiceError("stripe", err)
	}

	report := &dto.SyncReport{}
	for _, entry := range catalog {
		report.Checked++
		if err := s.syncOne(db, entry); err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("product %s: %v", entry.Product.ID, err))
			continue
		}
		report.Repaired++
	}

	logger.Info("plan catalog synchronized",
		"checked", report.Checked,
		"upserted", report.Repaired,
		"errors", len(report.Errors),
	)
	return report, nil
}

func (s *PlanServiceImpl) syncOne(db *gorm.DB, entry payments.CatalogEntry) error {
	price := pickPrimaryPrice(entry.Prices)
	if price == nil {
		return fmt.Errorf("no active price")
	}

	plan, err := s.planRepo.FindByStripeProduct(db, entry.Product.ID)
	switch {
	case err == nil:
		// Existing row: refresh the Stripe-owned fields.
		plan.Name = entry.Product.Name
		plan.Description = entry.Product.Description
		plan.Price = fromUnitAmount(price.UnitAmount)
		plan.Currency = price.Currency
		plan.Interval = localInterval(price.Interval)
		plan.StripePriceID = price.ID
		return s.planRepo.Save(db, plan)
	case apperrors.Is(err, repositories.ErrPlanNotFound):
		newPlan := &models.BillingPlan{
			Name:            entry.Product.Name,
			Description:     entry.Product.Description,
			Price:           fromUnitAmount(price.UnitAmount),
			Currency:        price.Currency,
			Interval:        localInterval(price.Interval),
			IsActive:        false, // admin assigns credits before sale
			StripeProductID: entry.Product.ID,
			StripePriceID:   price.ID,
		}
		return s.planRepo.Create(db, newPlan)
	default:
		return err
	}
}

func (s *PlanServiceImpl) compensateProduct(productID string) {
	if err := s.gateway.ArchiveProduct(productID); err != nil {
		logger.WithError(err).Error("failed to archive orphaned stripe product",
			"stripe_product_id", productID,
		)
	}
}

// pickPrimaryPrice chooses the price a product sells at: the first active one,
// falling back to the first listed.
func pickPrimaryPrice(prices []payments.Price) *payments.Price {
	for i := range prices {
		if prices[i].Active {
			return &prices[i]
		}
	}
	if len(prices) > 0 {
		return &prices[0]
	}
	return nil
}

func stripeInterval(interval models.PlanInterval) string {
	switch interval {
	case models.PlanIntervalMonthly:
		return "month"
	case models.PlanIntervalYearly:
		return "year"
	default:
		return ""
	}
}

func localInterval(interval string) models.PlanInterval {
	switch interval {
	case "month":
		return models.PlanIntervalMonthly
	case "year":
		return models.PlanIntervalYearly
	default:
		return models.PlanIntervalOneTime
	}
}

func toUnitAmount(price float64) int64 {
	return int64(math.Round(price * 100))
}

func fromUnitAmount(amount int64) float64 {
	return float64(amount) / 100
}

func marshalFeatures(features []string) datatypes.JSON {
	if features == nil {
		features = []string{}
	}
	raw, _ := json.Marshal(features)
	return datatypes.JSON(raw)
}
