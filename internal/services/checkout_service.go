package services

import (
	"encoding/json"
	"fmt"

	"cvanalyzer_backend/internal/config"
	"cvanalyzer_backend/internal/logger"
	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/payments"
	"cvanalyzer_backend/internal/repositories"
	"cvanalyzer_backend/internal/services/dto"
	"cvanalyzer_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// Purchase types carried in checkout metadata.
const (
	PurchaseTypeCredits      = "credits"
	PurchaseTypeSubscription = "subscription"
)

type CheckoutService interface {
	CreateSession(db *gorm.DB, userID string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)

	// HandleWebhook verifies the signature and applies the event. Invalid
	// signatures are rejected before any database access.
	HandleWebhook(db *gorm.DB, payload []byte, signature string) error
}

type CheckoutServiceImpl struct {
	planRepo   repositories.PlanRepository
	creditRepo repositories.CreditRepository
	userRepo   repositories.UserRepository
	creditSvc  CreditService
	gateway    payments.Gateway
}

func NewCheckoutService(
	planRepo repositories.PlanRepository,
	creditRepo repositories.CreditRepository,
	userRepo repositories.UserRepository,
	creditSvc CreditService,
	gateway payments.Gateway,
) CheckoutService {
	return &CheckoutServiceImpl{
		planRepo:   planRepo,
		creditRepo: creditRepo,
		userRepo:   userRepo,
		creditSvc:  creditSvc,
		gateway:    gateway,
	}
}

func (s *CheckoutServiceImpl) CreateSession(db *gorm.DB, userID string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	plan, err := s.planRepo.FindByID(db, req.PlanID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPlanNotFound) {
			return nil, apperrors.ErrPlanNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if !plan.IsActive || plan.StripePriceID == "" {
		return nil, apperrors.ErrPlanNotPurchasable
	}

	purchaseType := PurchaseTypeSubscription
	mode := payments.ModeSubscription
	if plan.Interval == models.PlanIntervalOneTime {
		purchaseType = PurchaseTypeCredits
		mode = payments.ModePayment
	}

	cfg := config.GetConfig()
	session, err := s.gateway.CreateCheckoutSession(payments.CheckoutParams{
		PriceID:       plan.StripePriceID,
		Mode:          mode,
		CustomerEmail: user.Email,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
		Metadata: map[string]string{
			"user_id":       userID,
			"purchase_type": purchaseType,
			"plan_id":       plan.ID,
		},
	})
	if err != nil {
		return nil, apperrors.ExternalServiceError("stripe", err)
	}

	logger.Info("checkout session created",
		"user_id", userID,
		"plan_id", plan.ID,
		"purchase_type", purchaseType,
		"session_id", session.ID,
	)

	return &dto.CheckoutResponse{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

// Webhook payload shapes. Only the fields the handlers below read; Stripe
// sends far more.
type webhookSession struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type webhookInvoice struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	BillingReason string `json:"billing_reason"`
}

type webhookSubscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
}

func (s *CheckoutServiceImpl) HandleWebhook(db *gorm.DB, payload []byte, signature string) error {
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		return apperrors.ErrInvalidWebhookEvent.WithError(err)
	}

	logger.Info("webhook event received", "event_id", event.ID, "type", event.Type)

	switch event.Type {
	case payments.EventCheckoutCompleted:
		return s.handleCheckoutCompleted(db, event)
	case payments.EventInvoicePaid:
		return s.handleInvoicePaid(db, event)
	case payments.EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(db, event)
	default:
		// Unsubscribed event type; acknowledge and move on.
		return nil
	}
}

func (s *CheckoutServiceImpl) handleCheckoutCompleted(db *gorm.DB, event *payments.Event) error {
	var session webhookSession
	if err := json.Unmarshal(event.Data, &session); err != nil {
		return apperrors.ErrInvalidWebhookEvent.WithError(err)
	}

	userID := session.Metadata["user_id"]
	planID := session.Metadata["plan_id"]
	purchaseType := session.Metadata["purchase_type"]
	if userID == "" || planID == "" {
		return apperrors.ErrInvalidWebhookEvent.WithError(fmt.Errorf("session %s missing metadata", session.ID))
	}

	plan, err := s.planRepo.FindByID(db, planID)
	if err != nil {
		return apperrors.ErrPlanNotFound
	}

	switch purchaseType {
	case PurchaseTypeCredits:
		// One-time purchase: additive ledger grant.
		return s.creditSvc.Apply(db, userID, plan.Credits, models.TransactionTypePurchase,
			fmt.Sprintf("Credit purchase: %s", plan.Name), nil)

	case PurchaseTypeSubscription:
		// Subscription start overwrites the billing state and RESETS the
		// balance to the plan grant. Unused previous credits do not carry
		// over; renewals behave differently (see handleInvoicePaid).
		profile, err := s.creditRepo.GetProfileByUserID(db, userID)
		if err != nil {
			return apperrors.ErrUserNotFound
		}

		profile.SubscriptionTier = tierForPlan(plan)
		profile.StripeCustomerID = session.Customer
		profile.StripeSubscriptionID = session.Subscription
		profile.PlanID = &plan.ID
		if err := s.creditRepo.SaveProfile(db, profile); err != nil {
			return apperrors.InternalError(err)
		}

		return s.creditRepo.ResetBalance(db, userID, plan.Credits, models.TransactionTypePurchase,
			fmt.Sprintf("Subscription started: %s", plan.Name))

	default:
		return apperrors.ErrInvalidPurchaseType
	}
}

// handleInvoicePaid credits subscription renewals. The grant is ADDITIVE: a
// renewing subscriber keeps what they have and gains the plan amount on top.
func (s *CheckoutServiceImpl) handleInvoicePaid(db *gorm.DB, event *payments.Event) error {
	var invoice webhookInvoice
	if err := json.Unmarshal(event.Data, &invoice); err != nil {
		return apperrors.ErrInvalidWebhookEvent.WithError(err)
	}

	// The first invoice arrives together with checkout.session.completed,
	// which already granted the initial balance.
	if invoice.BillingReason == "subscription_create" {
		return nil
	}

	profile, err := s.creditRepo.GetProfileByStripeCustomer(db, invoice.Customer)
	if err != nil {
		if apperrors.Is(err, repositories.ErrProfileNotFound) {
			logger.Warn("invoice for unknown customer", "customer", invoice.Customer, "invoice", invoice.ID)
			return nil
		}
		return apperrors.InternalError(err)
	}
	if profile.PlanID == nil {
		logger.Warn("invoice for customer without a plan", "customer", invoice.Customer)
		return nil
	}

	plan, err := s.planRepo.FindByID(db, *profile.PlanID)
	if err != nil {
		return apperrors.ErrPlanNotFound
	}

	if plan.IsUnlimited() {
		// Nothing to add on top of unlimited; pin the sentinel.
		return s.creditRepo.ResetBalance(db, profile.UserID, models.UnlimitedCredits,
			models.TransactionTypePurchase, fmt.Sprintf("Subscription renewal: %s", plan.Name))
	}

	return s.creditSvc.Apply(db, profile.UserID, plan.Credits, models.TransactionTypePurchase,
		fmt.Sprintf("Subscription renewal: %s", plan.Name), nil)
}

// handleSubscriptionDeleted reverts the profile to the free tier. Remaining
// credits are untouched; they were paid for.
func (s *CheckoutServiceImpl) handleSubscriptionDeleted(db *gorm.DB, event *payments.Event) error {
	var sub webhookSubscription
	if err := json.Unmarshal(event.Data, &sub); err != nil {
		return apperrors.ErrInvalidWebhookEvent.WithError(err)
	}

	profile, err := s.creditRepo.GetProfileByStripeCustomer(db, sub.Customer)
	if err != nil {
		if apperrors.Is(err, repositories.ErrProfileNotFound) {
			logger.Warn("subscription deletion for unknown customer", "customer", sub.Customer)
			return nil
		}
		return apperrors.InternalError(err)
	}

	profile.SubscriptionTier = models.SubscriptionTierFree
	profile.StripeSubscriptionID = ""
	profile.PlanID = nil
	if err := s.creditRepo.SaveProfile(db, profile); err != nil {
		return apperrors.InternalError(err)
	}

	logger.Info("subscription cancelled", "user_id", profile.UserID, "subscription", sub.ID)
	return nil
}

// tierForPlan maps a purchased plan onto the coarse profile tier.
func tierForPlan(plan *models.BillingPlan) models.SubscriptionTier {
	if plan.IsUnlimited() {
		return models.SubscriptionTierPremium
	}
	return models.SubscriptionTierBasic
}
