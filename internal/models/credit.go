package models

// CreditTransaction is an append-only ledger entry. Rows are never updated or
// deleted; the profile balance must equal the sum of a user's amounts.
type CreditTransaction struct {
	BaseModel
	UserID      string          `gorm:"not null;index" json:"user_id"`
	Amount      int64           `gorm:"not null" json:"amount"` // signed: debits are negative
	Type        TransactionType `gorm:"type:varchar(20);not null" json:"type"`
	Description string          `json:"description"`
	ResumeID    *string         `gorm:"index" json:"resume_id,omitempty"`
}
