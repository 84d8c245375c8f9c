package services

import (
	"cvanalyzer_backend/internal/ai"
	"cvanalyzer_backend/internal/payments"
	"cvanalyzer_backend/internal/repositories"
	"cvanalyzer_backend/internal/storage"
)

// ServiceContainer holds every application service.
type ServiceContainer struct {
	AuthService     AuthService
	CreditService   CreditService
	ResumeService   ResumeService
	PlanService     PlanService
	CheckoutService CheckoutService
	UserService     UserService

	Storage storage.Storage
}

// NewServiceContainer wires repositories, the AI client, the payment gateway,
// and file storage into the service graph.
func NewServiceContainer(extractor ai.Extractor, gateway payments.Gateway, store storage.Storage) *ServiceContainer {
	userRepo := repositories.NewUserRepository()
	creditRepo := repositories.NewCreditRepository()
	planRepo := repositories.NewPlanRepository()
	resumeRepo := repositories.NewResumeRepository()

	creditSvc := NewCreditService(creditRepo)

	return &ServiceContainer{
		AuthService:     NewAuthService(userRepo, creditRepo),
		CreditService:   creditSvc,
		ResumeService:   NewResumeService(resumeRepo, creditRepo, creditSvc, extractor, store),
		PlanService:     NewPlanService(planRepo, gateway),
		CheckoutService: NewCheckoutService(planRepo, creditRepo, userRepo, creditSvc, gateway),
		UserService:     NewUserService(userRepo, resumeRepo, creditRepo, creditSvc),
		Storage:         store,
	}
}
