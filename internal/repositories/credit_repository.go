package repositories

import (
	"errors"
	"time"

	"cvanalyzer_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

type CreditRepository interface {
	// Profile operations
	CreateProfile(db *gorm.DB, profile *models.Profile) error
	GetProfileByUserID(db *gorm.DB, userID string) (*models.Profile, error)
	GetProfileByStripeCustomer(db *gorm.DB, customerID string) (*models.Profile, error)
	SaveProfile(db *gorm.DB, profile *models.Profile) error
	ListProfiles(db *gorm.DB, limit, offset int) ([]models.Profile, error)

	// Ledger operations
	ApplyTransaction(db *gorm.DB, entry *models.CreditTransaction) error
	ResetBalance(db *gorm.DB, userID string, balance int64, txType models.TransactionType, description string) error
	ListTransactions(db *gorm.DB, userID string, limit, offset int) ([]models.CreditTransaction, int64, error)
	SumTransactions(db *gorm.DB, userID string) (int64, error)
	SetCachedBalance(db *gorm.DB, userID string, balance int64) error

	// Stats
	TotalConsumed(db *gorm.DB) (int64, error)
}

type CreditRepositoryImpl struct{}

func NewCreditRepository() CreditRepository {
	return &CreditRepositoryImpl{}
}

// Profile operations

func (r *CreditRepositoryImpl) CreateProfile(db *gorm.DB, profile *models.Profile) error {
	return db.Create(profile).Error
}

func (r *CreditRepositoryImpl) GetProfileByUserID(db *gorm.DB, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := db.First(&profile, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *CreditRepositoryImpl) GetProfileByStripeCustomer(db *gorm.DB, customerID string) (*models.Profile, error) {
	var profile models.Profile
	err := db.First(&profile, "stripe_customer_id = ?", customerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *CreditRepositoryImpl) SaveProfile(db *gorm.DB, profile *models.Profile) error {
	return db.Save(profile).Error
}

func (r *CreditRepositoryImpl) ListProfiles(db *gorm.DB, limit, offset int) ([]models.Profile, error) {
	var profiles []models.Profile
	err := db.Order("created_at").Limit(limit).Offset(offset).Find(&profiles).Error
	return profiles, err
}

// Ledger operations

// ApplyTransaction inserts the ledger row and moves the cached balance in one
// transaction. The balance update is conditional: a debit that would take a
// finite balance below zero affects no rows, and the whole transaction rolls
// back with ErrInsufficientCredits. Unlimited balances stay pinned at the
// sentinel while the ledger row is still recorded.
func (r *CreditRepositoryImpl) ApplyTransaction(db *gorm.DB, entry *models.CreditTransaction) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		result := tx.Exec(
			`UPDATE profiles
			 SET credits = CASE WHEN credits = ? THEN credits ELSE credits + ? END,
			     updated_at = ?
			 WHERE user_id = ? AND (credits = ? OR credits + ? >= 0)`,
			models.UnlimitedCredits, entry.Amount, time.Now(),
			entry.UserID, models.UnlimitedCredits, entry.Amount,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Profile{}).Where("user_id = ?", entry.UserID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrProfileNotFound
			}
			return ErrInsufficientCredits
		}
		return nil
	})
}

// ResetBalance sets the cached balance to an absolute value and records the
// difference as a ledger entry, so the sum-of-ledger invariant survives the
// reset. Transitions into or out of the unlimited sentinel record a zero-amount
// entry, as there is no meaningful numeric delta.
func (r *CreditRepositoryImpl) ResetBalance(db *gorm.DB, userID string, balance int64, txType models.TransactionType, description string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		if err := tx.First(&profile, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return err
		}

		var delta int64
		if profile.Credits != models.UnlimitedCredits && balance != models.UnlimitedCredits {
			delta = balance - profile.Credits
		}

		entry := &models.CreditTransaction{
			UserID:      userID,
			Amount:      delta,
			Type:        txType,
			Description: description,
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		return tx.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
			"credits":    balance,
			"updated_at": time.Now(),
		}).Error
	})
}

func (r *CreditRepositoryImpl) ListTransactions(db *gorm.DB, userID string, limit, offset int) ([]models.CreditTransaction, int64, error) {
	query := db.Model(&models.CreditTransaction{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.CreditTransaction
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}

func (r *CreditRepositoryImpl) SumTransactions(db *gorm.DB, userID string) (int64, error) {
	var sum int64
	err := db.Model(&models.CreditTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

// SetCachedBalance overwrites the cached balance without touching the ledger.
// Only the reconciliation worker uses it, to repair drift back to the ledger
// sum.
func (r *CreditRepositoryImpl) SetCachedBalance(db *gorm.DB, userID string, balance int64) error {
	result := db.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"credits":    balance,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// Stats

// TotalConsumed returns the absolute number of credits spent on usage across
// all users.
func (r *CreditRepositoryImpl) TotalConsumed(db *gorm.DB) (int64, error) {
	var sum int64
	err := db.Model(&models.CreditTransaction{}).
		Where("type = ?", models.TransactionTypeUsage).
		Select("COALESCE(SUM(-amount), 0)").
		Scan(&sum).Error
	return sum, err
}
