package handlers

import (
	"net/http"

	"cvanalyzer_backend/internal/middleware"
	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/services"
	"cvanalyzer_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// UserHandler is the admin back office surface.
type UserHandler struct {
	*BaseHandler
	userService services.UserService
}

func NewUserHandler(base *BaseHandler, userService services.UserService) *UserHandler {
	return &UserHandler{
		BaseHandler: base,
		userService: userService,
	}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(
		middleware.AuthMiddleware(),
		middleware.BlockedUserMiddleware(),
		middleware.RequireRoles(models.UserRoleAdmin, models.UserRoleSuperAdmin),
	)
	{
		admin.GET("/users", h.ListUsers)
		admin.GET("/users/:id", h.GetUser)
		admin.PATCH("/users/:id/status", h.UpdateStatus)
		admin.POST("/users/:id/credits", h.GrantCredits)
		admin.GET("/users/:id/transactions", h.GetUserTransactions)
		admin.GET("/stats", h.GetStats)

		// Role changes are reserved for super admins.
		admin.PATCH("/users/:id/role",
			middleware.RequireRoles(models.UserRoleSuperAdmin), h.UpdateRole)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	var filter dto.AdminUserFilter
	if !h.BindAndValidate_Query(c, &filter) {
		return
	}

	response, err := h.userService.ListUsers(h.GetDB(c), filter)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateStatus(c *gin.Context) {
	actorID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateUserStatusRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.userService.UpdateStatus(h.GetDB(c), actorID, c.Param("id"), req.Status); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}

func (h *UserHandler) UpdateRole(c *gin.Context) {
	actorID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRoleRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.userService.UpdateRole(h.GetDB(c), actorID, c.Param("id"), req.Role); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}

func (h *UserHandler) GrantCredits(c *gin.Context) {
	actorID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.GrantCreditsRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.userService.GrantCredits(h.GetDB(c), actorID, c.Param("id"), &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Credits granted"})
}

func (h *UserHandler) GetUserTransactions(c *gin.Context) {
	var q dto.PaginationQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}

	response, err := h.userService.GetUserTransactions(h.GetDB(c), c.Param("id"), q)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *UserHandler) GetStats(c *gin.Context) {
	stats, err := h.userService.GetDashboardStats(h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
