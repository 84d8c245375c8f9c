package handlers

import (
	"net/http"

	"cvanalyzer_backend/internal/middleware"
	"cvanalyzer_backend/internal/services"
	"cvanalyzer_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type CreditHandler struct {
	*BaseHandler
	creditService services.CreditService
}

func NewCreditHandler(base *BaseHandler, creditService services.CreditService) *CreditHandler {
	return &CreditHandler{
		BaseHandler:   base,
		creditService: creditService,
	}
}

func (h *CreditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	credits := rg.Group("/credits")
	credits.Use(middleware.AuthMiddleware(), middleware.BlockedUserMiddleware())
	{
		credits.GET("/balance", h.GetBalance)
		credits.GET("/history", h.GetHistory)
	}
}

func (h *CreditHandler) GetBalance(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	response, err := h.creditService.GetBalance(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *CreditHandler) GetHistory(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var q dto.PaginationQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}

	response, err := h.creditService.GetHistory(h.GetDB(c), userID, q)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
