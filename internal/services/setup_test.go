package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"cvanalyzer_backend/internal/config"
	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/repositories"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int64

// setupTestDB opens a fresh in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache DSN keeps the database alive across the pooled
	// connections GORM opens, isolated per test.
	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Profile{},
		&models.CreditTransaction{},
		&models.BillingPlan{},
		&models.Resume{},
		&models.ParsedResume{},
	))

	return db
}

func setupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = 60
	cfg.Upload.MaxSize = 10 * 1024 * 1024
	cfg.Upload.AllowedTypes = []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
	}
	cfg.AI.TimeoutSeconds = 5
	cfg.Credits.SignupBonus = 3
	cfg.Stripe.SuccessURL = "https://app.test/success"
	cfg.Stripe.CancelURL = "https://app.test/cancel"

	prev := config.AppConfig
	config.AppConfig = cfg
	t.Cleanup(func() { config.AppConfig = prev })
	return cfg
}

// createTestUser inserts a user with a profile holding the given balance.
func createTestUser(t *testing.T, db *gorm.DB, email string, credits int64) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         models.UserRoleUser,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error)

	profile := &models.Profile{
		UserID:           user.ID,
		Credits:          0,
		SubscriptionTier: models.SubscriptionTierFree,
	}
	require.NoError(t, db.Create(profile).Error)

	if credits != 0 {
		// Seed through the ledger so the balance invariant holds.
		repo := repositories.NewCreditRepository()
		require.NoError(t, repo.ApplyTransaction(db, &models.CreditTransaction{
			UserID:      user.ID,
			Amount:      credits,
			Type:        models.TransactionTypeBonus,
			Description: "test seed",
		}))
	}

	user.Profile = profile
	return user
}

func profileBalance(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()

	var profile models.Profile
	require.NoError(t, db.First(&profile, "user_id = ?", userID).Error)
	return profile.Credits
}

func ledgerSum(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()

	var sum int64
	require.NoError(t, db.Model(&models.CreditTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error)
	return sum
}
