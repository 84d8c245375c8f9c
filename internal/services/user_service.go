package services

import (
	"fmt"

	"cvanalyzer_backend/internal/logger"
	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/repositories"
	"cvanalyzer_backend/internal/services/dto"
	"cvanalyzer_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// UserService is the admin back office: user management, manual credit
// grants, and platform stats.
type UserService interface {
	ListUsers(db *gorm.DB, filter dto.AdminUserFilter) (*dto.AdminUserListResponse, error)
	GetUser(db *gorm.DB, userID string) (*dto.AdminUserDTO, error)
	UpdateStatus(db *gorm.DB, actorID, userID string, status models.UserStatus) error
	UpdateRole(db *gorm.DB, actorID, userID string, role models.UserRole) error
	GrantCredits(db *gorm.DB, actorID, userID string, req *dto.GrantCreditsRequest) error
	GetUserTransactions(db *gorm.DB, userID string, q dto.PaginationQuery) (*dto.TransactionListResponse, error)
	GetDashboardStats(db *gorm.DB) (*dto.DashboardStats, error)
}

type UserServiceImpl struct {
	userRepo   repositories.UserRepository
	resumeRepo repositories.ResumeRepository
	creditRepo repositories.CreditRepository
	creditSvc  CreditService
}

func NewUserService(
	userRepo repositories.UserRepository,
	resumeRepo repositories.ResumeRepository,
	creditRepo repositories.CreditRepository,
	creditSvc CreditService,
) UserService {
	return &UserServiceImpl{
		userRepo:   userRepo,
		resumeRepo: resumeRepo,
		creditRepo: creditRepo,
		creditSvc:  creditSvc,
	}
}

func (s *UserServiceImpl) ListUsers(db *gorm.DB, filter dto.AdminUserFilter) (*dto.AdminUserListResponse, error) {
	filter.Normalize()

	users, total, err := s.userRepo.FindWithFilter(db, repositories.UserFilter{
		Role:     filter.Role,
		Status:   filter.Status,
		Tier:     filter.Tier,
		Search:   filter.Search,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.AdminUserDTO, 0, len(users))
	for i := range users {
		items = append(items, dto.NewAdminUserDTO(&users[i]))
	}

	return &dto.AdminUserListResponse{
		Users: items,
		Pagination: dto.Pagination{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Total:    total,
		},
	}, nil
}

func (s *UserServiceImpl) GetUser(db *gorm.DB, userID string) (*dto.AdminUserDTO, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	result := dto.NewAdminUserDTO(user)
	return &result, nil
}

// UpdateStatus blocks or unblocks a user. Admins cannot block themselves;
// blocking also revokes every session.
func (s *UserServiceImpl) UpdateStatus(db *gorm.DB, actorID, userID string, status models.UserStatus) error {
	if actorID == userID {
		return apperrors.ErrCannotModifySelf
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.UpdateStatus(tx, userID, status); err != nil {
			if apperrors.Is(err, repositories.ErrUserNotFound) {
				return apperrors.ErrUserNotFound
			}
			return apperrors.InternalError(err)
		}

		if status == models.UserStatusBlocked {
			if err := s.userRepo.DeleteUserRefreshTokens(tx, userID); err != nil {
				return apperrors.InternalError(err)
			}
		}

		logger.Info("user status changed",
			"actor_id", actorID,
			"user_id", userID,
			"status", status,
		)
		return nil
	})
}

func (s *UserServiceImpl) UpdateRole(db *gorm.DB, actorID, userID string, role models.UserRole) error {
	if actorID == userID {
		return apperrors.ErrCannotModifySelf
	}

	if err := s.userRepo.UpdateRole(db, userID, role); err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.InternalError(err)
	}

	logger.Info("user role changed",
		"actor_id", actorID,
		"user_id", userID,
		"role", role,
	)
	return nil
}

// GrantCredits applies a manual adjustment through the ledger. Negative
// amounts claw credits back and fail if the balance cannot cover them.
func (s *UserServiceImpl) GrantCredits(db *gorm.DB, actorID, userID string, req *dto.GrantCreditsRequest) error {
	if err := s.creditSvc.Apply(db, userID, req.Amount, models.TransactionTypeAdminGrant,
		fmt.Sprintf("Admin grant: %s", req.Description), nil); err != nil {
		return err
	}

	logger.Info("admin credit grant",
		"actor_id", actorID,
		"user_id", userID,
		"amount", req.Amount,
	)
	return nil
}

func (s *UserServiceImpl) GetUserTransactions(db *gorm.DB, userID string, q dto.PaginationQuery) (*dto.TransactionListResponse, error) {
	if _, err := s.userRepo.FindByID(db, userID); err != nil {
		return nil, apperrors.ErrUserNotFound
	}
	return s.creditSvc.GetHistory(db, userID, q)
}

func (s *UserServiceImpl) GetDashboardStats(db *gorm.DB) (*dto.DashboardStats, error) {
	userStats, err := s.userRepo.GetRegistrationStats(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resumeTotal, err := s.resumeRepo.CountAll(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	byStatus, err := s.resumeRepo.CountByStatus(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	consumed, err := s.creditRepo.TotalConsumed(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.DashboardStats{
		Users:           userStats,
		Resumes:         resumeTotal,
		ResumesByStatus: byStatus,
		CreditsConsumed: consumed,
	}, nil
}
