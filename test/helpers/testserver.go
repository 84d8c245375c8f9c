package helpers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync/atomic"
	"testing"

	"cvanalyzer_backend/internal/app"
	"cvanalyzer_backend/internal/config"
	"cvanalyzer_backend/internal/handlers"
	"cvanalyzer_backend/internal/logger"
	"cvanalyzer_backend/internal/services"
	"cvanalyzer_backend/internal/services/dto"
	"cvanalyzer_backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int64

// TestServer runs the full HTTP stack against an in-memory database, with the
// AI service and payment gateway replaced by fakes.
type TestServer struct {
	Router    *gin.Engine
	DB        *gorm.DB
	Services  *services.ServiceContainer
	Handlers  *handlers.AppHandlers
	Extractor *FakeExtractor
	Gateway   *FakeGateway
}

func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger.Init("test")
	setupConfig(t)

	dsn := fmt.Sprintf("file:int_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, app.Migrate(db))

	store, err := storage.NewStorage(storage.Config{
		Type:     "local",
		BasePath: t.TempDir(),
		BaseURL:  "http://files.test",
	})
	require.NoError(t, err)

	extractor := DefaultExtractor()
	gateway := NewFakeGateway()

	router, container, appHandlers := app.SetupRouterWith(db, extractor, gateway, store)

	// Process uploads inline so tests see the final state without polling.
	appHandlers.ResumeHandler.SetSyncProcessing(true)

	return &TestServer{
		Router:    router,
		DB:        db,
		Services:  container,
		Handlers:  appHandlers,
		Extractor: extractor,
		Gateway:   gateway,
	}
}

func setupConfig(t *testing.T) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.JWT.Secret = "integration-test-secret"
	cfg.JWT.TTL = 60
	cfg.Upload.MaxSize = 10 * 1024 * 1024
	cfg.Upload.AllowedTypes = []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
	}
	cfg.AI.TimeoutSeconds = 5
	cfg.Credits.SignupBonus = 3
	cfg.Stripe.SuccessURL = "https://app.test/success"
	cfg.Stripe.CancelURL = "https://app.test/cancel"

	prev := config.AppConfig
	config.AppConfig = cfg
	t.Cleanup(func() { config.AppConfig = prev })
}

// SendRequest performs a JSON request against the test server. A non-empty
// token goes into the Authorization header.
func (s *TestServer) SendRequest(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

// UploadFile posts a multipart file to the given path.
func (s *TestServer) UploadFile(t *testing.T, path, filename, contentType string, content []byte, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

// DecodeJSON unmarshals a recorded response body into dst.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), "body: %s", w.Body.String())
}

// RegisterUser registers a fresh account and returns its token pair.
func (s *TestServer) RegisterUser(t *testing.T, email, password string) *dto.AuthResponse {
	t.Helper()

	w := s.SendRequest(t, http.MethodPost, "/api/v1/auth/register", gin.H{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	var resp dto.AuthResponse
	DecodeJSON(t, w, &resp)
	return &resp
}
