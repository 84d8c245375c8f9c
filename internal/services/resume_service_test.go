package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"

	"cvanalyzer_backend/internal/ai"
	"cvanalyzer_backend/internal/algorithms"
	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/repositories"
	"cvanalyzer_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newResumeService(extractor ai.Extractor, store *fakeStorage) ResumeService {
	creditRepo := repositories.NewCreditRepository()
	return NewResumeService(
		repositories.NewResumeRepository(),
		creditRepo,
		NewCreditService(creditRepo),
		extractor,
		store,
	)
}

func extractedData() *ai.ResumeData {
	return &ai.ResumeData{
		PersonalInfo: ai.PersonalInfo{
			Name:  "Jane Dow",
			Email: "jane@example.com",
		},
		Skills: ai.Skills{Technical: []string{"Go"}},
	}
}

// makeFileHeader builds the multipart header Gin would hand the service.
func makeFileHeader(t *testing.T, name, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func resumeRow(t *testing.T, db *gorm.DB, id string) *models.Resume {
	t.Helper()

	var resume models.Resume
	require.NoError(t, db.Preload("ParsedData").First(&resume, "id = ?", id).Error)
	return &resume
}

func TestResumeService_UploadStoresBlobAndRow(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	store := newFakeStorage()
	svc := newResumeService(&fakeExtractor{}, store)

	user := createTestUser(t, db, "upload@test.com", 3)

	header := makeFileHeader(t, "cv.pdf", "application/pdf", []byte("%PDF-1.4 test"))
	resume, err := svc.Upload(context.Background(), db, user.ID, header)
	require.NoError(t, err)

	assert.Equal(t, models.ResumeStatusProcessing, resume.Status)
	assert.Equal(t, "cv.pdf", resume.OriginalName)

	row := resumeRow(t, db, resume.ID)
	blob, ok := store.blobs[row.StoragePath]
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF-1.4 test"), blob)

	// Upload alone costs nothing; the debit comes with processing.
	assert.Equal(t, int64(3), profileBalance(t, db, user.ID))
}

func TestResumeService_UploadRejectsOversizedFile(t *testing.T) {
	db := setupTestDB(t)
	cfg := setupTestConfig(t)
	cfg.Upload.MaxSize = 10
	store := newFakeStorage()
	svc := newResumeService(&fakeExtractor{}, store)

	user := createTestUser(t, db, "big@test.com", 3)

	header := makeFileHeader(t, "huge.pdf", "application/pdf", bytes.Repeat([]byte("x"), 64))
	_, err := svc.Upload(context.Background(), db, user.ID, header)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileTooLarge))

	assert.Empty(t, store.blobs)
	var count int64
	require.NoError(t, db.Model(&models.Resume{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestResumeService_UploadRejectsDisallowedType(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	store := newFakeStorage()
	svc := newResumeService(&fakeExtractor{}, store)

	user := createTestUser(t, db, "zip@test.com", 3)

	header := makeFileHeader(t, "cv.zip", "application/zip", []byte("PK"))
	_, err := svc.Upload(context.Background(), db, user.ID, header)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidFileType))
	assert.Empty(t, store.blobs)
}

func TestResumeService_UploadRejectsWithoutCredits(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	store := newFakeStorage()
	svc := newResumeService(&fakeExtractor{}, store)

	user := createTestUser(t, db, "nocredits@test.com", 0)

	header := makeFileHeader(t, "cv.pdf", "application/pdf", []byte("%PDF"))
	_, err := svc.Upload(context.Background(), db, user.ID, header)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientCredits))
	assert.Empty(t, store.blobs)

	// The 402 tells the client where the balance stands.
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"balance": int64(0)}, appErr.Details)
	assert.Nil(t, apperrors.ErrInsufficientCredits.Details)
}

func TestResumeService_CoverLetterWithoutCredits(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	store := newFakeStorage()
	extractor := &fakeExtractor{
		data:        extractedData(),
		summary:     "s",
		coverLetter: "Dear hiring manager, ...",
	}
	svc := newResumeService(extractor, store)

	// One credit: the analysis consumes it, the letter has nothing left.
	user := createTestUser(t, db, "broke@test.com", 1)

	header := makeFileHeader(t, "cv.pdf", "application/pdf", []byte("%PDF"))
	uploaded, err := svc.Upload(context.Background(), db, user.ID, header)
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), db, uploaded.ID))

	_, err = svc.GenerateCoverLetter(context.Background(), db, user.ID, uploaded.ID,
		"We are looking for a Go engineer with billing experience.")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientCredits))

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"balance": int64(0)}, appErr.Details)
}

func TestResumeService_ProcessCompletesAndDebitsLast(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	store := newFakeStorage()
	extractor := &fakeExtractor{data: extractedData(), summary: "An experienced Go engineer."}
	svc := newResumeService(extractor, store)

	user := createTestUser(t, db, "process@test.com", 3)

	header := makeFileHeader(t, "cv.pdf", "application/pdf", []byte("%PDF body"))
	uploaded, err := svc.Upload(context.Background(), db, user.ID, header)
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), db, uploaded.ID))

	row := resumeRow(t, db, uploaded.ID)
	assert.Equal(t, models.ResumeStatusCompleted, row.Status)
	assert.NotNil(t, row.ProcessedAt)
	require.NotNil(t, row.ParsedData)
	assert.Equal(t, "An experienced Go engineer.", row.ParsedData.Summary)
	assert.Equal(t, algorithms.ConfidenceScore(extractedData()), row.ParsedData.ConfidenceScore)

	// Exactly one credit gone, with the file named in the ledger.
	assert.Equal(t, int64(2), profileBalance(t, db, user.ID))

	var tx models.CreditTransaction
	require.NoError(t, db.First(&tx, "user_id = ? AND type = ?", user.ID, models.TransactionTypeUsage).Error)
	assert.Contains(t, tx.Description, "cv.pdf")
	require.NotNil(t, tx.ResumeID)
	assert.Equal(t, uploaded.ID, *tx.ResumeID)
}

func TestResumeService_ProcessExtractionFailureKeepsBalance(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	store := newFakeStorage()
	extractor := &fakeExtractor{extractErr: errors.New("model unavailable")}
	svc := newResumeService(extractor, store)

	user := createTestUser(t, db, "fail@test.com", 3)

	header := makeFileHeader(t, "cv.pdf", "application/pdf", []byte("%PDF"))
	uploaded, err := svc.Upload(context.Background(), db, user.ID, header)
	require.NoError(t, err)

	require.Error(t, svc.Process(context.Background(), db, uploaded.ID))

	row := resumeRow(t, db, uploaded.ID)
	assert.Equal(t, models.ResumeStatusFailed, row.Status)
	assert.NotEmpty(t, row.ErrorMessage)

	// No charge for a failed analysis.
	assert.Equal(t, int64(3), profileBalance(t, db, user.ID))
}

func TestResumeService_ProcessFallsBackWhenSummaryFails(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	store := newFakeStorage()
	extractor := &fakeExtractor{data: extractedData(), summaryErr: errors.New("timeout")}
	svc := newResumeService(extractor, store)

	user := createTestUser(t, db, "fallback@test.com", 3)

	header := makeFileHeader(t, "cv.pdf", "application/pdf", []byte("%PDF"))
	uploaded, err := svc.Upload(context.Background(), db, user.ID, header)
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), db, uploaded.ID))

	row := resumeRow(t, db, uploaded.ID)
	assert.Equal(t, models.ResumeStatusCompleted, row.Status)
	require.NotNil(t, row.ParsedData)
	assert.Equal(t, algorithms.FallbackSummary(extractedData()), row.ParsedData.Summary)
}

func TestResumeService_ProcessUnlimitedUserKeepsSentinel(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	store := newFakeStorage()
	extractor := &fakeExtractor{data: extractedData(), summary: "s"}
	svc := newResumeService(extractor, store)

	user := createTestUser(t, db, "unlim@test.com", 0)
	require.NoError(t, repositories.NewCreditRepository().ResetBalance(
		db, user.ID, models.UnlimitedCredits, models.TransactionTypePurchase, "unlimited"))

	header := makeFileHeader(t, "cv.pdf", "application/pdf", []byte("%PDF"))
	uploaded, err := svc.Upload(context.Background(), db, user.ID, header)
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), db, uploaded.ID))

	assert.Equal(t, models.UnlimitedCredits, profileBalance(t, db, user.ID))
}

func TestResumeService_GetScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	store := newFakeStorage()
	svc := newResumeService(&fakeExtractor{}, store)

	owner := createTestUser(t, db, "owner@test.com", 3)
	other := createTestUser(t, db, "other@test.com", 3)

	header := makeFileHeader(t, "cv.pdf", "application/pdf", []byte("%PDF"))
	uploaded, err := svc.Upload(context.Background(), db, owner.ID, header)
	require.NoError(t, err)

	_, err = svc.Get(db, owner.ID, uploaded.ID)
	assert.NoError(t, err)

	_, err = svc.Get(db, other.ID, uploaded.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrResumeNotFound))
}

func TestResumeService_DeleteRemovesBlobAndRows(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	store := newFakeStorage()
	extractor := &fakeExtractor{data: extractedData(), summary: "s"}
	svc := newResumeService(extractor, store)

	user := createTestUser(t, db, "delete@test.com", 3)

	header := makeFileHeader(t, "cv.pdf", "application/pdf", []byte("%PDF"))
	uploaded, err := svc.Upload(context.Background(), db, user.ID, header)
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), db, uploaded.ID))

	require.NoError(t, svc.Delete(context.Background(), db, user.ID, uploaded.ID))

	assert.Empty(t, store.blobs)

	var resumes, parsed int64
	require.NoError(t, db.Model(&models.Resume{}).Count(&resumes).Error)
	require.NoError(t, db.Model(&models.ParsedResume{}).Count(&parsed).Error)
	assert.Zero(t, resumes)
	assert.Zero(t, parsed)
}

func TestResumeService_CoverLetterFromCompletedResume(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	store := newFakeStorage()
	extractor := &fakeExtractor{
		data:        extractedData(),
		summary:     "s",
		coverLetter: "Dear hiring manager, ...",
	}
	svc := newResumeService(extractor, store)

	user := createTestUser(t, db, "letter@test.com", 3)

	header := makeFileHeader(t, "cv.pdf", "application/pdf", []byte("%PDF"))
	uploaded, err := svc.Upload(context.Background(), db, user.ID, header)
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), db, uploaded.ID))

	resp, err := svc.GenerateCoverLetter(context.Background(), db, user.ID, uploaded.ID,
		"We are looking for a Go engineer with billing experience.")
	require.NoError(t, err)
	assert.Equal(t, "Dear hiring manager, ...", resp.CoverLetter)

	// One credit for the analysis, one for the letter.
	assert.Equal(t, int64(1), profileBalance(t, db, user.ID))
}

func TestResumeService_CoverLetterNeedsParsedResume(t *testing.T) {
	db := setupTestDB(t)
	setupTestConfig(t)
	store := newFakeStorage()
	svc := newResumeService(&fakeExtractor{}, store)

	user := createTestUser(t, db, "unparsed@test.com", 3)

	header := makeFileHeader(t, "cv.pdf", "application/pdf", []byte("%PDF"))
	uploaded, err := svc.Upload(context.Background(), db, user.ID, header)
	require.NoError(t, err)

	// Still in processing state, no parsed data.
	_, err = svc.GenerateCoverLetter(context.Background(), db, user.ID, uploaded.ID, "Job description text here.")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrResumeNotParsed))
}
