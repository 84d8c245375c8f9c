package dto

import (
	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/repositories"
)

// AdminUserFilter - query filter for the admin user list
type AdminUserFilter struct {
	Role   models.UserRole         `form:"role" binding:"omitempty,oneof=user admin super_admin"`
	Status models.UserStatus       `form:"status" binding:"omitempty,oneof=active blocked"`
	Tier   models.SubscriptionTier `form:"tier" binding:"omitempty,oneof=free basic premium"`
	Search string                  `form:"search"`
	PaginationQuery
}

// AdminUserDTO - admin view of a user with billing state
type AdminUserDTO struct {
	UserDTO
	Profile *ProfileDTO `json:"profile,omitempty"`
}

// AdminUserListResponse - paginated admin user list
type AdminUserListResponse struct {
	Users      []AdminUserDTO `json:"users"`
	Pagination Pagination     `json:"pagination"`
}

// GrantCreditsRequest - manual credit adjustment by an admin
type GrantCreditsRequest struct {
	Amount      int64  `json:"amount" binding:"required"`
	Description string `json:"description" binding:"required,min=3,max=200"`
}

// UpdateUserStatusRequest - block or unblock a user
type UpdateUserStatusRequest struct {
	Status models.UserStatus `json:"status" binding:"required,oneof=active blocked"`
}

// UpdateUserRoleRequest - promote or demote a user
type UpdateUserRoleRequest struct {
	Role models.UserRole `json:"role" binding:"required,oneof=user admin"`
}

// DashboardStats - aggregate numbers for the admin dashboard
type DashboardStats struct {
	Users           *repositories.RegistrationStats `json:"users"`
	Resumes         int64                           `json:"resumes"`
	ResumesByStatus map[string]int64                `json:"resumes_by_status"`
	CreditsConsumed int64                           `json:"credits_consumed"`
}

func NewAdminUserDTO(user *models.User) AdminUserDTO {
	d := AdminUserDTO{UserDTO: NewUserDTO(user)}
	if user.Profile != nil {
		d.Profile = &ProfileDTO{
			Credits:          user.Profile.Credits,
			Unlimited:        user.Profile.HasUnlimitedCredits(),
			SubscriptionTier: user.Profile.SubscriptionTier,
			PlanID:           user.Profile.PlanID,
		}
	}
	return d
}
