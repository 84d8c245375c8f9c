package handlers

// AppHandlers holds every HTTP handler of the application.
type AppHandlers struct {
	AuthHandler     *AuthHandler
	ResumeHandler   *ResumeHandler
	CreditHandler   *CreditHandler
	PlanHandler     *PlanHandler
	CheckoutHandler *CheckoutHandler
	UserHandler     *UserHandler
	FileHandler     *FileHandler
}
