package dto

import (
	"time"

	"cvanalyzer_backend/internal/models"
)

// RegisterRequest - registration payload
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest - login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest - token refresh payload
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest - logout payload
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest - password change for the authenticated user
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// AuthResponse - token pair plus basic user info
type AuthResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	User         UserDTO `json:"user"`
}

// UserDTO - basic user info embedded in auth responses
type UserDTO struct {
	ID        string            `json:"id"`
	Email     string            `json:"email"`
	Role      models.UserRole   `json:"role"`
	Status    models.UserStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// UserResponse - full user info for /users/me
type UserResponse struct {
	ID      string            `json:"id"`
	Email   string            `json:"email"`
	Role    models.UserRole   `json:"role"`
	Status  models.UserStatus `json:"status"`
	Profile *ProfileDTO       `json:"profile,omitempty"`
}

// ProfileDTO - billing state exposed to the owning user
type ProfileDTO struct {
	Credits          int64                   `json:"credits"`
	Unlimited        bool                    `json:"unlimited"`
	SubscriptionTier models.SubscriptionTier `json:"subscription_tier"`
	PlanID           *string                 `json:"plan_id,omitempty"`
}

func NewUserDTO(user *models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: user.CreatedAt,
	}
}

func NewUserResponse(user *models.User) *UserResponse {
	resp := &UserResponse{
		ID:     user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Status: user.Status,
	}
	if user.Profile != nil {
		resp.Profile = &ProfileDTO{
			Credits:          user.Profile.Credits,
			Unlimited:        user.Profile.HasUnlimitedCredits(),
			SubscriptionTier: user.Profile.SubscriptionTier,
			PlanID:           user.Profile.PlanID,
		}
	}
	return resp
}
