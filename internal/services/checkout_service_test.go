package services

import (
	"encoding/json"
	"errors"
	"testing"

	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/payments"
	"cvanalyzer_backend/internal/repositories"
	"cvanalyzer_backend/internal/services/dto"
	"cvanalyzer_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCheckoutService(gateway payments.Gateway) CheckoutService {
	creditRepo := repositories.NewCreditRepository()
	return NewCheckoutService(
		repositories.NewPlanRepository(),
		creditRepo,
		repositories.NewUserRepository(),
		NewCreditService(creditRepo),
		gateway,
	)
}

func createTestPlan(t *testing.T, db *gorm.DB, name string, credits int64, interval models.PlanInterval) *models.BillingPlan {
	t.Helper()

	plan := &models.BillingPlan{
		Name:            name,
		Price:           9.99,
		Currency:        "usd",
		Interval:        interval,
		Credits:         credits,
		IsActive:        true,
		StripeProductID: "prod_" + name,
		StripePriceID:   "price_" + name,
	}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

func sessionEvent(t *testing.T, eventType string, object any) *payments.Event {
	t.Helper()

	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return &payments.Event{ID: "evt_1", Type: eventType, Data: raw}
}

func TestCheckoutService_CreateSessionSubscription(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	gateway := newFakeGateway()
	svc := newCheckoutService(gateway)

	user := createTestUser(t, db, "buyer@test.com", 0)
	plan := createTestPlan(t, db, "pro", 100, models.PlanIntervalMonthly)

	resp, err := svc.CreateSession(db, user.ID, &dto.CheckoutRequest{PlanID: plan.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.CheckoutURL)

	require.Len(t, gateway.sessions, 1)
	params := gateway.sessions[0]
	assert.Equal(t, plan.StripePriceID, params.PriceID)
	assert.Equal(t, payments.ModeSubscription, params.Mode)
	assert.Equal(t, "buyer@test.com", params.CustomerEmail)
	assert.Equal(t, PurchaseTypeSubscription, params.Metadata["purchase_type"])
	assert.Equal(t, user.ID, params.Metadata["user_id"])
}

func TestCheckoutService_CreateSessionOneTimeUsesPaymentMode(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	gateway := newFakeGateway()
	svc := newCheckoutService(gateway)

	user := createTestUser(t, db, "topup@test.com", 0)
	plan := createTestPlan(t, db, "pack", 25, models.PlanIntervalOneTime)

	_, err := svc.CreateSession(db, user.ID, &dto.CheckoutRequest{PlanID: plan.ID})
	require.NoError(t, err)

	require.Len(t, gateway.sessions, 1)
	assert.Equal(t, payments.ModePayment, gateway.sessions[0].Mode)
	assert.Equal(t, PurchaseTypeCredits, gateway.sessions[0].Metadata["purchase_type"])
}

func TestCheckoutService_CreateSessionRejectsInactivePlan(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	gateway := newFakeGateway()
	svc := newCheckoutService(gateway)

	user := createTestUser(t, db, "inactive@test.com", 0)
	plan := createTestPlan(t, db, "off", 10, models.PlanIntervalOneTime)
	require.NoError(t, db.Model(plan).Update("is_active", false).Error)

	_, err := svc.CreateSession(db, user.ID, &dto.CheckoutRequest{PlanID: plan.ID})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrPlanNotPurchasable))
	assert.Empty(t, gateway.sessions)
}

func TestCheckoutService_WebhookBadSignatureTouchesNothing(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	gateway.signatureErr = errors.New("signature mismatch")
	svc := newCheckoutService(gateway)

	user := createTestUser(t, db, "sig@test.com", 3)

	err := svc.HandleWebhook(db, []byte(`{}`), "bad-sig")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidWebhookEvent))
	assert.Equal(t, int64(3), profileBalance(t, db, user.ID))

	// The shared sentinel must not retain this delivery's cause.
	assert.Nil(t, apperrors.ErrInvalidWebhookEvent.Err)
}

func TestCheckoutService_WebhookCreditPurchaseIsAdditive(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := newCheckoutService(gateway)

	user := createTestUser(t, db, "additive@test.com", 7)
	plan := createTestPlan(t, db, "pack25", 25, models.PlanIntervalOneTime)

	gateway.event = sessionEvent(t, payments.EventCheckoutCompleted, map[string]any{
		"id": "cs_1",
		"metadata": map[string]string{
			"user_id":       user.ID,
			"plan_id":       plan.ID,
			"purchase_type": PurchaseTypeCredits,
		},
	})

	require.NoError(t, svc.HandleWebhook(db, []byte(`{}`), "sig"))

	assert.Equal(t, int64(32), profileBalance(t, db, user.ID))
	assert.Equal(t, int64(32), ledgerSum(t, db, user.ID))
}

func TestCheckoutService_WebhookSubscriptionResetsBalance(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := newCheckoutService(gateway)

	user := createTestUser(t, db, "sub@test.com", 7)
	plan := createTestPlan(t, db, "pro100", 100, models.PlanIntervalMonthly)

	gateway.event = sessionEvent(t, payments.EventCheckoutCompleted, map[string]any{
		"id":           "cs_2",
		"customer":     "cus_42",
		"subscription": "sub_42",
		"metadata": map[string]string{
			"user_id":       user.ID,
			"plan_id":       plan.ID,
			"purchase_type": PurchaseTypeSubscription,
		},
	})

	require.NoError(t, svc.HandleWebhook(db, []byte(`{}`), "sig"))

	// Reset, not add: the leftover 7 credits are gone.
	assert.Equal(t, int64(100), profileBalance(t, db, user.ID))
	assert.Equal(t, int64(100), ledgerSum(t, db, user.ID))

	var profile models.Profile
	require.NoError(t, db.First(&profile, "user_id = ?", user.ID).Error)
	assert.Equal(t, models.SubscriptionTierBasic, profile.SubscriptionTier)
	assert.Equal(t, "cus_42", profile.StripeCustomerID)
	assert.Equal(t, "sub_42", profile.StripeSubscriptionID)
	require.NotNil(t, profile.PlanID)
	assert.Equal(t, plan.ID, *profile.PlanID)
}

func TestCheckoutService_WebhookUnlimitedPlanSetsPremium(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := newCheckoutService(gateway)

	user := createTestUser(t, db, "premium@test.com", 0)
	plan := createTestPlan(t, db, "max", models.UnlimitedCredits, models.PlanIntervalMonthly)

	gateway.event = sessionEvent(t, payments.EventCheckoutCompleted, map[string]any{
		"id":       "cs_3",
		"customer": "cus_43",
		"metadata": map[string]string{
			"user_id":       user.ID,
			"plan_id":       plan.ID,
			"purchase_type": PurchaseTypeSubscription,
		},
	})

	require.NoError(t, svc.HandleWebhook(db, []byte(`{}`), "sig"))

	assert.Equal(t, models.UnlimitedCredits, profileBalance(t, db, user.ID))

	var profile models.Profile
	require.NoError(t, db.First(&profile, "user_id = ?", user.ID).Error)
	assert.Equal(t, models.SubscriptionTierPremium, profile.SubscriptionTier)
}

func TestCheckoutService_WebhookRenewalInvoiceAdds(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := newCheckoutService(gateway)

	user := createTestUser(t, db, "renew@test.com", 0)
	plan := createTestPlan(t, db, "pro100r", 100, models.PlanIntervalMonthly)

	// Subscribe first.
	gateway.event = sessionEvent(t, payments.EventCheckoutCompleted, map[string]any{
		"id":       "cs_4",
		"customer": "cus_44",
		"metadata": map[string]string{
			"user_id":       user.ID,
			"plan_id":       plan.ID,
			"purchase_type": PurchaseTypeSubscription,
		},
	})
	require.NoError(t, svc.HandleWebhook(db, []byte(`{}`), "sig"))

	// Spend a little, then renew.
	creditSvc := newCreditService()
	require.NoError(t, creditSvc.Apply(db, user.ID, -30, models.TransactionTypeUsage, "spent", nil))

	gateway.event = sessionEvent(t, payments.EventInvoicePaid, map[string]any{
		"id":             "in_2",
		"customer":       "cus_44",
		"billing_reason": "subscription_cycle",
	})
	require.NoError(t, svc.HandleWebhook(db, []byte(`{}`), "sig"))

	// Renewal stacks on top of the remaining 70.
	assert.Equal(t, int64(170), profileBalance(t, db, user.ID))
	assert.Equal(t, int64(170), ledgerSum(t, db, user.ID))
}

func TestCheckoutService_WebhookFirstInvoiceIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := newCheckoutService(gateway)

	user := createTestUser(t, db, "first@test.com", 0)
	plan := createTestPlan(t, db, "pro100f", 100, models.PlanIntervalMonthly)

	gateway.event = sessionEvent(t, payments.EventCheckoutCompleted, map[string]any{
		"id":       "cs_5",
		"customer": "cus_45",
		"metadata": map[string]string{
			"user_id":       user.ID,
			"plan_id":       plan.ID,
			"purchase_type": PurchaseTypeSubscription,
		},
	})
	require.NoError(t, svc.HandleWebhook(db, []byte(`{}`), "sig"))

	// The invoice that accompanies checkout must not double-grant.
	gateway.event = sessionEvent(t, payments.EventInvoicePaid, map[string]any{
		"id":             "in_1",
		"customer":       "cus_45",
		"billing_reason": "subscription_create",
	})
	require.NoError(t, svc.HandleWebhook(db, []byte(`{}`), "sig"))

	assert.Equal(t, int64(100), profileBalance(t, db, user.ID))
}

func TestCheckoutService_WebhookInvoiceUnknownCustomerIgnored(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := newCheckoutService(gateway)

	gateway.event = sessionEvent(t, payments.EventInvoicePaid, map[string]any{
		"id":             "in_9",
		"customer":       "cus_nobody",
		"billing_reason": "subscription_cycle",
	})
	assert.NoError(t, svc.HandleWebhook(db, []byte(`{}`), "sig"))
}

func TestCheckoutService_WebhookCancellationKeepsCredits(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := newCheckoutService(gateway)

	user := createTestUser(t, db, "cancel@test.com", 0)
	plan := createTestPlan(t, db, "pro100c", 100, models.PlanIntervalMonthly)

	gateway.event = sessionEvent(t, payments.EventCheckoutCompleted, map[string]any{
		"id":           "cs_6",
		"customer":     "cus_46",
		"subscription": "sub_46",
		"metadata": map[string]string{
			"user_id":       user.ID,
			"plan_id":       plan.ID,
			"purchase_type": PurchaseTypeSubscription,
		},
	})
	require.NoError(t, svc.HandleWebhook(db, []byte(`{}`), "sig"))

	gateway.event = sessionEvent(t, payments.EventSubscriptionDeleted, map[string]any{
		"id":       "sub_46",
		"customer": "cus_46",
	})
	require.NoError(t, svc.HandleWebhook(db, []byte(`{}`), "sig"))

	var profile models.Profile
	require.NoError(t, db.First(&profile, "user_id = ?", user.ID).Error)
	assert.Equal(t, models.SubscriptionTierFree, profile.SubscriptionTier)
	assert.Empty(t, profile.StripeSubscriptionID)
	assert.Nil(t, profile.PlanID)
	// Paid-for credits survive cancellation.
	assert.Equal(t, int64(100), profile.Credits)
}

func TestCheckoutService_WebhookUnknownEventTypeAcknowledged(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := newCheckoutService(gateway)

	gateway.event = &payments.Event{ID: "evt_x", Type: "charge.refunded", Data: []byte(`{}`)}
	assert.NoError(t, svc.HandleWebhook(db, []byte(`{}`), "sig"))
}

func TestCheckoutService_WebhookBadPurchaseType(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := newCheckoutService(gateway)

	user := createTestUser(t, db, "badtype@test.com", 0)
	plan := createTestPlan(t, db, "odd", 10, models.PlanIntervalOneTime)

	gateway.event = sessionEvent(t, payments.EventCheckoutCompleted, map[string]any{
		"id": "cs_7",
		"metadata": map[string]string{
			"user_id":       user.ID,
			"plan_id":       plan.ID,
			"purchase_type": "gift_card",
		},
	})

	err := svc.HandleWebhook(db, []byte(`{}`), "sig")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidPurchaseType))
	assert.Zero(t, profileBalance(t, db, user.ID))
}
