package handlers

import (
	"context"
	"net/http"

	"cvanalyzer_backend/internal/logger"
	"cvanalyzer_backend/internal/middleware"
	"cvanalyzer_backend/internal/services"
	"cvanalyzer_backend/internal/services/dto"
	"cvanalyzer_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type ResumeHandler struct {
	*BaseHandler
	resumeService services.ResumeService

	// syncProcessing makes Upload run the pipeline inline instead of in a
	// goroutine. Tests enable it; production leaves it off.
	syncProcessing bool
}

func NewResumeHandler(base *BaseHandler, resumeService services.ResumeService) *ResumeHandler {
	return &ResumeHandler{
		BaseHandler:   base,
		resumeService: resumeService,
	}
}

// SetSyncProcessing switches the upload pipeline to inline execution.
func (h *ResumeHandler) SetSyncProcessing(sync bool) {
	h.syncProcessing = sync
}

func (h *ResumeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	resumes := rg.Group("/resumes")
	resumes.Use(middleware.AuthMiddleware(), middleware.BlockedUserMiddleware())
	{
		resumes.POST("", h.Upload)
		resumes.GET("", h.List)
		resumes.GET("/:id", h.Get)
		resumes.DELETE("/:id", h.Delete)
		resumes.POST("/:id/cover-letter", h.GenerateCoverLetter)
	}
}

func (h *ResumeHandler) Upload(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Missing 'file' form field"))
		return
	}

	db := h.GetDB(c)
	resume, err := h.resumeService.Upload(c.Request.Context(), db, userID, fileHeader)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if h.syncProcessing {
		if err := h.resumeService.Process(c.Request.Context(), db, resume.ID); err != nil {
			logger.WithError(err).Warn("inline resume processing failed", "resume_id", resume.ID)
		}
		refreshed, err := h.resumeService.Get(db, userID, resume.ID)
		if err == nil {
			resume = refreshed
		}
	} else {
		resumeID := resume.ID
		go func() {
			if err := h.resumeService.Process(context.Background(), db, resumeID); err != nil {
				logger.WithError(err).Warn("background resume processing failed", "resume_id", resumeID)
			}
		}()
	}

	c.JSON(http.StatusCreated, resume)
}

func (h *ResumeHandler) List(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var q dto.PaginationQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}

	response, err := h.resumeService.List(h.GetDB(c), userID, q)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ResumeHandler) Get(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resume, err := h.resumeService.Get(h.GetDB(c), userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resume)
}

func (h *ResumeHandler) Delete(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.resumeService.Delete(c.Request.Context(), h.GetDB(c), userID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Resume deleted"})
}

func (h *ResumeHandler) GenerateCoverLetter(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CoverLetterRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	response, err := h.resumeService.GenerateCoverLetter(
		c.Request.Context(), h.GetDB(c), userID, c.Param("id"), req.JobDescription)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
