package dto

// CheckoutRequest - start a checkout session for a plan
type CheckoutRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

// CheckoutResponse - redirect target for the hosted checkout page
type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}
