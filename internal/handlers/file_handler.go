package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"cvanalyzer_backend/internal/middleware"
	"cvanalyzer_backend/internal/repositories"
	"cvanalyzer_backend/internal/storage"
	"cvanalyzer_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// FileHandler streams stored resume files. Files are private: only the owner
// can download them.
type FileHandler struct {
	*BaseHandler
	storage    storage.Storage
	resumeRepo repositories.ResumeRepository
}

func NewFileHandler(base *BaseHandler, store storage.Storage, resumeRepo repositories.ResumeRepository) *FileHandler {
	return &FileHandler{
		BaseHandler: base,
		storage:     store,
		resumeRepo:  resumeRepo,
	}
}

func (h *FileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	files := rg.Group("/files")
	files.Use(middleware.AuthMiddleware(), middleware.BlockedUserMiddleware())
	{
		files.GET("/resumes/:id", h.ServeResumeFile)
		files.GET("/resumes/:id/signed-url", h.GetSignedURL)
	}
}

func (h *FileHandler) ServeResumeFile(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resume, err := h.resumeRepo.FindByIDForUser(h.GetDB(c), c.Param("id"), userID)
	if err != nil {
		apperrors.HandleError(c, apperrors.ErrResumeNotFound)
		return
	}

	reader, err := h.storage.Get(c.Request.Context(), resume.StoragePath)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewNotFoundError("File not found in storage"))
		return
	}
	defer reader.Close()

	c.Header("Content-Type", resume.MimeType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", resume.OriginalName))
	if resume.Size > 0 {
		c.Header("Content-Length", fmt.Sprintf("%d", resume.Size))
	}

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		// Headers are gone; nothing left to do but note it.
		_ = c.Error(err)
	}
}

func (h *FileHandler) GetSignedURL(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resume, err := h.resumeRepo.FindByIDForUser(h.GetDB(c), c.Param("id"), userID)
	if err != nil {
		apperrors.HandleError(c, apperrors.ErrResumeNotFound)
		return
	}

	expiry := time.Duration(ParseQueryInt(c, "expiry_minutes", 15)) * time.Minute
	url, err := h.storage.GetSignedURL(c.Request.Context(), resume.StoragePath, expiry)
	if err != nil {
		h.HandleServiceError(c, apperrors.ExternalServiceError("storage", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_in": int(expiry.Seconds()),
	})
}
