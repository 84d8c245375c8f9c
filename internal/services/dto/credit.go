package dto

import (
	"time"

	"cvanalyzer_backend/internal/models"
)

// BalanceResponse - current credit balance
type BalanceResponse struct {
	Credits          int64                   `json:"credits"`
	Unlimited        bool                    `json:"unlimited"`
	SubscriptionTier models.SubscriptionTier `json:"subscription_tier"`
}

// TransactionDTO - one ledger entry
type TransactionDTO struct {
	ID          string                 `json:"id"`
	Amount      int64                  `json:"amount"`
	Type        models.TransactionType `json:"type"`
	Description string                 `json:"description"`
	ResumeID    *string                `json:"resume_id,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// TransactionListResponse - paginated ledger history
type TransactionListResponse struct {
	Transactions []TransactionDTO `json:"transactions"`
	Pagination   Pagination       `json:"pagination"`
}

func NewTransactionDTO(entry *models.CreditTransaction) TransactionDTO {
	return TransactionDTO{
		ID:          entry.ID,
		Amount:      entry.Amount,
		Type:        entry.Type,
		Description: entry.Description,
		ResumeID:    entry.ResumeID,
		CreatedAt:   entry.CreatedAt,
	}
}
