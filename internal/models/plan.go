package models

import "gorm.io/datatypes"

// BillingPlan is a purchasable catalog row, optionally mirrored to a Stripe
// product and price. Plans are soft-disabled via IsActive, not deleted, unless
// an admin explicitly archives them.
type BillingPlan struct {
	BaseModel
	Name            string         `gorm:"not null" json:"name"`
	Description     string         `json:"description"`
	Price           float64        `gorm:"not null" json:"price"`
	Currency        string         `gorm:"type:varchar(3);default:'usd'" json:"currency"`
	Interval        PlanInterval   `gorm:"type:varchar(20);not null;default:'one_time'" json:"interval"`
	Credits         int64          `gorm:"not null;default:0" json:"credits"` // -1 = unlimited
	Features        datatypes.JSON `gorm:"type:jsonb" json:"features"`        // ["feature a", "feature b"]
	IsActive        bool           `gorm:"default:true" json:"is_active"`
	SortOrder       int            `gorm:"default:0" json:"sort_order"`
	StripeProductID string         `gorm:"index" json:"stripe_product_id,omitempty"`
	StripePriceID   string         `gorm:"index" json:"stripe_price_id,omitempty"`
}

func (p *BillingPlan) IsUnlimited() bool {
	return p.Credits == UnlimitedCredits
}
