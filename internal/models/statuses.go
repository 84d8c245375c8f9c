package models

type UserStatus string
type UserRole string
type SubscriptionTier string
type ResumeStatus string
type TransactionType string
type PlanInterval string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"

	UserRoleUser       UserRole = "user"
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "super_admin"

	SubscriptionTierFree    SubscriptionTier = "free"
	SubscriptionTierBasic   SubscriptionTier = "basic"
	SubscriptionTierPremium SubscriptionTier = "premium"

	ResumeStatusPending    ResumeStatus = "pending"
	ResumeStatusProcessing ResumeStatus = "processing"
	ResumeStatusCompleted  ResumeStatus = "completed"
	ResumeStatusFailed     ResumeStatus = "failed"

	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeUsage      TransactionType = "usage"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeBonus      TransactionType = "bonus"
	TransactionTypeAdminGrant TransactionType = "admin_grant"

	PlanIntervalOneTime PlanInterval = "one_time"
	PlanIntervalMonthly PlanInterval = "monthly"
	PlanIntervalYearly  PlanInterval = "yearly"
)

// UnlimitedCredits marks a plan or balance with no usage cap. Every numeric
// comparison against remaining credits must special-case it.
const UnlimitedCredits int64 = -1
