package services

import (
	"cvanalyzer_backend/internal/logger"
	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/repositories"
	"cvanalyzer_backend/internal/services/dto"
	"cvanalyzer_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// ReconcileReport summarizes one reconciliation run over all profiles.
type ReconcileReport struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
}

type CreditService interface {
	GetBalance(db *gorm.DB, userID string) (*dto.BalanceResponse, error)
	GetHistory(db *gorm.DB, userID string, q dto.PaginationQuery) (*dto.TransactionListResponse, error)

	// Apply moves credits through the ledger. Negative amounts debit; the
	// call fails without side effects when the balance cannot cover it.
	Apply(db *gorm.DB, userID string, amount int64, txType models.TransactionType, description string, resumeID *string) error

	// Reconcile repairs cached balances that drifted from the ledger sum.
	Reconcile(db *gorm.DB) (*ReconcileReport, error)
}

type CreditServiceImpl struct {
	creditRepo repositories.CreditRepository
}

func NewCreditService(creditRepo repositories.CreditRepository) CreditService {
	return &CreditServiceImpl{creditRepo: creditRepo}
}

func (s *CreditServiceImpl) GetBalance(db *gorm.DB, userID string) (*dto.BalanceResponse, error) {
	profile, err := s.creditRepo.GetProfileByUserID(db, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrProfileNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	return &dto.BalanceResponse{
		Credits:          profile.Credits,
		Unlimited:        profile.HasUnlimitedCredits(),
		SubscriptionTier: profile.SubscriptionTier,
	}, nil
}

func (s *CreditServiceImpl) GetHistory(db *gorm.DB, userID string, q dto.PaginationQuery) (*dto.TransactionListResponse, error) {
	q.Normalize()

	entries, total, err := s.creditRepo.ListTransactions(db, userID, q.PageSize, q.Offset())
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.TransactionDTO, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewTransactionDTO(&entries[i]))
	}

	return &dto.TransactionListResponse{
		Transactions: items,
		Pagination: dto.Pagination{
			Page:     q.Page,
			PageSize: q.PageSize,
			Total:    total,
		},
	}, nil
}

func (s *CreditServiceImpl) Apply(db *gorm.DB, userID string, amount int64, txType models.TransactionType, description string, resumeID *string) error {
	entry := &models.CreditTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		ResumeID:    resumeID,
	}

	if err := s.creditRepo.ApplyTransaction(db, entry); err != nil {
		switch {
		case apperrors.Is(err, repositories.ErrInsufficientCredits):
			return apperrors.ErrInsufficientCredits
		case apperrors.Is(err, repositories.ErrProfileNotFound):
			return apperrors.ErrUserNotFound
		default:
			return apperrors.InternalError(err)
		}
	}
	return nil
}

// Reconcile walks every profile and rewrites cached balances that no longer
// equal the ledger sum. Unlimited profiles are skipped: the sentinel is not a
// ledger projection.
func (s *CreditServiceImpl) Reconcile(db *gorm.DB) (*ReconcileReport, error) {
	const pageSize = 200

	report := &ReconcileReport{}
	for offset := 0; ; offset += pageSize {
		profiles, err := s.creditRepo.ListProfiles(db, pageSize, offset)
		if err != nil {
			return report, err
		}
		if len(profiles) == 0 {
			break
		}

		for i := range profiles {
			profile := &profiles[i]
			if profile.HasUnlimitedCredits() {
				continue
			}
			report.Checked++

			sum, err := s.creditRepo.SumTransactions(db, profile.UserID)
			if err != nil {
				return report, err
			}
			if sum == profile.Credits {
				continue
			}

			logger.Warn("credit balance drift detected",
				"user_id", profile.UserID,
				"cached", profile.Credits,
				"ledger", sum,
			)
			if err := s.creditRepo.SetCachedBalance(db, profile.UserID, sum); err != nil {
				return report, err
			}
			report.Repaired++
		}

		if len(profiles) < pageSize {
			break
		}
	}

	return report, nil
}
