package handlers

import (
	"io"
	"net/http"

	"cvanalyzer_backend/internal/middleware"
	"cvanalyzer_backend/internal/services"
	"cvanalyzer_backend/internal/services/dto"
	"cvanalyzer_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	*BaseHandler
	checkoutService services.CheckoutService
}

func NewCheckoutHandler(base *BaseHandler, checkoutService services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		BaseHandler:     base,
		checkoutService: checkoutService,
	}
}

func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	billing := rg.Group("/billing")
	{
		checkout := billing.Group("/checkout")
		checkout.Use(middleware.AuthMiddleware(), middleware.BlockedUserMiddleware())
		checkout.POST("", h.CreateSession)

		// The webhook authenticates via its signature, not a bearer token.
		billing.POST("/webhook", h.Webhook)
	}
}

func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CheckoutRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	response, err := h.checkoutService.CreateSession(h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *CheckoutHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Unreadable webhook payload"))
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.checkoutService.HandleWebhook(h.GetDB(c), payload, signature); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
