package models

// Profile holds the billing state of a user. Credits is a cached projection of
// the credit_transactions ledger; the reconciliation worker repairs drift.
type Profile struct {
	BaseModel
	UserID               string           `gorm:"not null;uniqueIndex" json:"user_id"`
	Credits              int64            `gorm:"not null;default:0" json:"credits"`
	SubscriptionTier     SubscriptionTier `gorm:"type:varchar(20);default:'free'" json:"subscription_tier"`
	StripeCustomerID     string           `gorm:"index" json:"-"`
	StripeSubscriptionID string           `json:"-"`
	PlanID               *string          `gorm:"index" json:"plan_id,omitempty"`
}

func (p *Profile) HasUnlimitedCredits() bool {
	return p.Credits == UnlimitedCredits
}
