package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"cvanalyzer_backend/internal/ai"
	"cvanalyzer_backend/internal/algorithms"
	"cvanalyzer_backend/internal/config"
	"cvanalyzer_backend/internal/logger"
	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/repositories"
	"cvanalyzer_backend/internal/services/dto"
	"cvanalyzer_backend/internal/storage"
	"cvanalyzer_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResumeService interface {
	// Upload validates the file, stores the blob, and inserts the resume row
	// in processing state. Processing itself runs in Process.
	Upload(ctx context.Context, db *gorm.DB, userID string, header *multipart.FileHeader) (*dto.ResumeDTO, error)

	// Process runs extraction, scoring, and the usage debit for one resume.
	Process(ctx context.Context, db *gorm.DB, resumeID string) error

	List(db *gorm.DB, userID string, q dto.PaginationQuery) (*dto.ResumeListResponse, error)
	Get(db *gorm.DB, userID, resumeID string) (*dto.ResumeDTO, error)
	Delete(ctx context.Context, db *gorm.DB, userID, resumeID string) error

	GenerateCoverLetter(ctx context.Context, db *gorm.DB, userID, resumeID, jobDescription string) (*dto.CoverLetterResponse, error)
}

type ResumeServiceImpl struct {
	resumeRepo repositories.ResumeRepository
	creditRepo repositories.CreditRepository
	creditSvc  CreditService
	extractor  ai.Extractor
	store      storage.Storage
}

func NewResumeService(
	resumeRepo repositories.ResumeRepository,
	creditRepo repositories.CreditRepository,
	creditSvc CreditService,
	extractor ai.Extractor,
	store storage.Storage,
) ResumeService {
	return &ResumeServiceImpl{
		resumeRepo: resumeRepo,
		creditRepo: creditRepo,
		creditSvc:  creditSvc,
		extractor:  extractor,
		store:      store,
	}
}

func (s *ResumeServiceImpl) Upload(ctx context.Context, db *gorm.DB, userID string, header *multipart.FileHeader) (*dto.ResumeDTO, error) {
	cfg := config.GetConfig()

	// Reject before any side effect: size, type, then credit availability.
	if header.Size > cfg.Upload.MaxSize {
		return nil, apperrors.ErrFileTooLarge
	}

	mimeType := header.Header.Get("Content-Type")
	if !isAllowedType(mimeType, cfg.Upload.AllowedTypes) {
		return nil, apperrors.ErrInvalidFileType
	}

	profile, err := s.creditRepo.GetProfileByUserID(db, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrProfileNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if !profile.HasUnlimitedCredits() && profile.Credits < 1 {
		return nil, insufficientCredits(profile.Credits)
	}

	file, err := header.Open()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	defer file.Close()

	storagePath := buildStorageKey(userID, header.Filename)
	if err := s.store.Save(ctx, storagePath, file, mimeType); err != nil {
		return nil, apperrors.ExternalServiceError("storage", err)
	}

	fileURL, err := s.store.GetURL(ctx, storagePath)
	if err != nil {
		fileURL = ""
	}

	resume := &models.Resume{
		UserID:       userID,
		OriginalName: header.Filename,
		StoragePath:  storagePath,
		FileURL:      fileURL,
		MimeType:     mimeType,
		Size:         header.Size,
		Status:       models.ResumeStatusProcessing,
	}
	if err := s.resumeRepo.Create(db, resume); err != nil {
		// Roll the blob back so storage does not accumulate orphans.
		_ = s.store.Delete(ctx, storagePath)
		return nil, apperrors.InternalError(err)
	}

	logger.Info("resume uploaded",
		"resume_id", resume.ID,
		"user_id", userID,
		"size", header.Size,
		"mime_type", mimeType,
	)

	result := dto.NewResumeDTO(resume)
	return &result, nil
}

// Process drives a resume through extraction. Failures at any step mark the
// row failed and leave the balance untouched: the usage debit is the final
// step.
func (s *ResumeServiceImpl) Process(ctx context.Context, db *gorm.DB, resumeID string) error {
	resume, err := s.resumeRepo.FindByID(db, resumeID)
	if err != nil {
		return err
	}

	fail := func(reason string, cause error) error {
		logger.WithError(cause).Error("resume processing failed",
			"resume_id", resumeID,
			"reason", reason,
		)
		if err := s.resumeRepo.UpdateStatus(db, resumeID, models.ResumeStatusFailed, reason); err != nil {
			logger.WithError(err).Error("failed to mark resume failed", "resume_id", resumeID)
		}
		return cause
	}

	reader, err := s.store.Get(ctx, resume.StoragePath)
	if err != nil {
		return fail("stored file unavailable", err)
	}
	fileBytes, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return fail("stored file unreadable", err)
	}

	aiCtx, cancel := context.WithTimeout(ctx, aiTimeout())
	defer cancel()

	data, err := s.extractor.ExtractResume(aiCtx, fileBytes, resume.MimeType)
	if err != nil {
		return fail("extraction failed", err)
	}

	score := algorithms.ConfidenceScore(data)

	summary, err := s.extractor.GenerateSummary(aiCtx, data)
	if err != nil || strings.TrimSpace(summary) == "" {
		// Summary is best effort; the structured result is still worth keeping.
		summary = algorithms.FallbackSummary(data)
	}

	parsed, err := buildParsedResume(resumeID, data, summary, score)
	if err != nil {
		return fail("result serialization failed", err)
	}
	if err := s.resumeRepo.SaveParsed(db, parsed); err != nil {
		return fail("result persistence failed", err)
	}
	if err := s.resumeRepo.MarkCompleted(db, resumeID); err != nil {
		return fail("status update failed", err)
	}

	// Debit last. A concurrent spender can still win the race; the resume
	// stays completed and the failed debit is surfaced in the row.
	debitErr := s.creditSvc.Apply(db, resume.UserID, -1, models.TransactionTypeUsage,
		fmt.Sprintf("Resume analysis: %s", resume.OriginalName), &resume.ID)
	if debitErr != nil {
		logger.WithError(debitErr).Warn("usage debit failed after processing",
			"resume_id", resumeID,
			"user_id", resume.UserID,
		)
		return debitErr
	}

	logger.Info("resume processed",
		"resume_id", resumeID,
		"confidence_score", score,
	)
	return nil
}

func (s *ResumeServiceImpl) List(db *gorm.DB, userID string, q dto.PaginationQuery) (*dto.ResumeListResponse, error) {
	q.Normalize()

	resumes, total, err := s.resumeRepo.ListByUser(db, userID, q.PageSize, q.Offset())
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.ResumeDTO, 0, len(resumes))
	for i := range resumes {
		items = append(items, dto.NewResumeDTO(&resumes[i]))
	}

	return &dto.ResumeListResponse{
		Resumes: items,
		Pagination: dto.Pagination{
			Page:     q.Page,
			PageSize: q.PageSize,
			Total:    total,
		},
	}, nil
}

func (s *ResumeServiceImpl) Get(db *gorm.DB, userID, resumeID string) (*dto.ResumeDTO, error) {
	resume, err := s.resumeRepo.FindByIDForUser(db, resumeID, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrResumeNotFound) {
			return nil, apperrors.ErrResumeNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	result := dto.NewResumeDTO(resume)
	return &result, nil
}

// Delete removes the blob first, then the rows. A missing blob is not an
// error; the rows must go regardless.
func (s *ResumeServiceImpl) Delete(ctx context.Context, db *gorm.DB, userID, resumeID string) error {
	resume, err := s.resumeRepo.FindByIDForUser(db, resumeID, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrResumeNotFound) {
			return apperrors.ErrResumeNotFound
		}
		return apperrors.InternalError(err)
	}

	if err := s.store.Delete(ctx, resume.StoragePath); err != nil {
		logger.WithError(err).Warn("failed to delete resume blob",
			"resume_id", resumeID,
			"path", resume.StoragePath,
		)
	}

	if err := s.resumeRepo.Delete(db, resumeID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// GenerateCoverLetter produces a cover letter from the stored extraction
// result. It needs a completed resume and costs one credit, debited after the
// AI call succeeds.
func (s *ResumeServiceImpl) GenerateCoverLetter(ctx context.Context, db *gorm.DB, userID, resumeID, jobDescription string) (*dto.CoverLetterResponse, error) {
	resume, err := s.resumeRepo.FindByIDForUser(db, resumeID, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrResumeNotFound) {
			return nil, apperrors.ErrResumeNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if resume.Status != models.ResumeStatusCompleted || resume.ParsedData == nil {
		return nil, apperrors.ErrResumeNotParsed
	}

	profile, err := s.creditRepo.GetProfileByUserID(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !profile.HasUnlimitedCredits() && profile.Credits < 1 {
		return nil, insufficientCredits(profile.Credits)
	}

	data, err := parsedToResumeData(resume.ParsedData)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	aiCtx, cancel := context.WithTimeout(ctx, aiTimeout())
	defer cancel()

	letter, err := s.extractor.GenerateCoverLetter(aiCtx, data, jobDescription)
	if err != nil {
		return nil, apperrors.ExternalServiceError("ai service", err)
	}

	if err := s.creditSvc.Apply(db, userID, -1, models.TransactionTypeUsage,
		fmt.Sprintf("Cover letter: %s", resume.OriginalName), &resume.ID); err != nil {
		return nil, err
	}

	return &dto.CoverLetterResponse{
		ResumeID:    resumeID,
		CoverLetter: letter,
	}, nil
}

// insufficientCredits builds the 402 with the user's current balance so the
// client can show how short they are.
func insufficientCredits(balance int64) error {
	return apperrors.ErrInsufficientCredits.WithDetails(map[string]interface{}{
		"balance": balance,
	})
}

// buildStorageKey produces `{userID}/{unixnano}-{rand}-{filename}` with the
// filename reduced to a safe charset.
func buildStorageKey(userID, filename string) string {
	base := filepath.Base(filename)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return fmt.Sprintf("%s/%d-%04d-%s", userID, time.Now().UnixNano(), rand.Intn(10000), b.String())
}

func isAllowedType(mimeType string, allowed []string) bool {
	// Strip parameters like "; charset=utf-8".
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	mimeType = strings.TrimSpace(strings.ToLower(mimeType))

	for _, t := range allowed {
		if mimeType == strings.ToLower(t) {
			return true
		}
	}
	return false
}

func aiTimeout() time.Duration {
	return time.Duration(config.GetConfig().AI.TimeoutSeconds) * time.Second
}

func buildParsedResume(resumeID string, data *ai.ResumeData, summary string, score int) (*models.ParsedResume, error) {
	parsed := &models.ParsedResume{
		ResumeID:        resumeID,
		Summary:         summary,
		ConfidenceScore: score,
	}

	fields := []struct {
		dst *datatypes.JSON
		src interface{}
	}{
		{&parsed.PersonalInfo, data.PersonalInfo},
		{&parsed.Experience, data.Experience},
		{&parsed.Education, data.Education},
		{&parsed.Skills, data.Skills},
		{&parsed.Certifications, data.Certifications},
		{&parsed.Projects, data.Projects},
	}
	for _, f := range fields {
		raw, err := json.Marshal(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = datatypes.JSON(raw)
	}
	return parsed, nil
}

func parsedToResumeData(parsed *models.ParsedResume) (*ai.ResumeData, error) {
	data := &ai.ResumeData{Summary: parsed.Summary}

	fields := []struct {
		src datatypes.JSON
		dst interface{}
	}{
		{parsed.PersonalInfo, &data.PersonalInfo},
		{parsed.Experience, &data.Experience},
		{parsed.Education, &data.Education},
		{parsed.Skills, &data.Skills},
		{parsed.Certifications, &data.Certifications},
		{parsed.Projects, &data.Projects},
	}
	for _, f := range fields {
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return nil, err
		}
	}
	return data, nil
}
