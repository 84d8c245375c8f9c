package dto

import (
	"encoding/json"
	"time"

	"cvanalyzer_backend/internal/models"
)

// CreatePlanRequest - admin payload for a new billing plan
type CreatePlanRequest struct {
	Name        string              `json:"name" binding:"required,min=2,max=100"`
	Description string              `json:"description" binding:"max=500"`
	Price       float64             `json:"price" binding:"required,gt=0"`
	Currency    string              `json:"currency" binding:"omitempty,len=3"`
	Interval    models.PlanInterval `json:"interval" binding:"required,oneof=one_time monthly yearly"`
	Credits     int64               `json:"credits" validate:"plan_credits"`
	Features    []string            `json:"features"`
	SortOrder   int                 `json:"sort_order"`
}

// UpdatePlanRequest - admin payload for plan changes. Price and interval are
// immutable once the plan is mirrored to Stripe; change them by creating a new
// plan.
type UpdatePlanRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=2,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=500"`
	Credits     *int64   `json:"credits" validate:"omitempty,plan_credits"`
	Features    []string `json:"features"`
	IsActive    *bool    `json:"is_active"`
	SortOrder   *int     `json:"sort_order"`
}

// PlanDTO - catalog view of a billing plan
type PlanDTO struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       float64             `json:"price"`
	Currency    string              `json:"currency"`
	Interval    models.PlanInterval `json:"interval"`
	Credits     int64               `json:"credits"`
	Unlimited   bool                `json:"unlimited"`
	Features    []string            `json:"features"`
	IsActive    bool                `json:"is_active"`
	SortOrder   int                 `json:"sort_order"`
	CreatedAt   time.Time           `json:"created_at"`
}

// AdminPlanDTO - admin view including the Stripe linkage
type AdminPlanDTO struct {
	PlanDTO
	StripeProductID string `json:"stripe_product_id,omitempty"`
	StripePriceID   string `json:"stripe_price_id,omitempty"`
}

// SyncReport - outcome of a catalog synchronization run
type SyncReport struct {
	Checked  int      `json:"checked"`
	Repaired int      `json:"repaired"`
	Errors   []string `json:"errors,omitempty"`
}

func NewPlanDTO(plan *models.BillingPlan) PlanDTO {
	var features []string
	if len(plan.Features) > 0 {
		_ = json.Unmarshal(plan.Features, &features)
	}
	return PlanDTO{
		ID:          plan.ID,
		Name:        plan.Name,
		Description: plan.Description,
		Price:       plan.Price,
		Currency:    plan.Currency,
		Interval:    plan.Interval,
		Credits:     plan.Credits,
		Unlimited:   plan.IsUnlimited(),
		Features:    features,
		IsActive:    plan.IsActive,
		SortOrder:   plan.SortOrder,
		CreatedAt:   plan.CreatedAt,
	}
}

func NewAdminPlanDTO(plan *models.BillingPlan) AdminPlanDTO {
	return AdminPlanDTO{
		PlanDTO:         NewPlanDTO(plan),
		StripeProductID: plan.StripeProductID,
		StripePriceID:   plan.StripePriceID,
	}
}
