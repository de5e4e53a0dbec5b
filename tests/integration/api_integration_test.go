//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/trackmail/trackmail-backend/internal/api/handlers"
	"github.com/trackmail/trackmail-backend/internal/api/middleware"
	"github.com/trackmail/trackmail-backend/internal/api/response"
	"github.com/trackmail/trackmail-backend/internal/models"
	"github.com/trackmail/trackmail-backend/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// APIIntegrationTestSuite tests API handlers with real database
type APIIntegrationTestSuite struct {
	suite.Suite
	container      testcontainers.Container
	db             *gorm.DB
	echo           *echo.Echo
	appHandler     *handlers.ApplicationHandler
	profileHandler *handlers.ProfileHandler
	keyHandler     *handlers.APIKeyHandler
	profileRepo    repository.ProfileRepository
	appRepo        repository.ApplicationRepository
	eventRepo      repository.EventRepository
	emailRepo      repository.EmailRepository
	keyRepo        repository.APIKeyRepository
}

// SetupSuite starts PostgreSQL container and initializes API handlers
func (s *APIIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	// Start PostgreSQL container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "trackmail_api_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	// Get connection details
	host, err := container.Host(ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(s.T(), err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=trackmail_api_test sslmode=disable",
		host, port.Port())

	// Connect to database
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)
	s.db = db

	// Run migrations
	err = db.AutoMigrate(&models.Profile{}, &models.Application{}, &models.ApplicationEvent{}, &models.EmailRecord{}, &models.APIKey{})
	require.NoError(s.T(), err)

	// Initialize repositories
	s.profileRepo = repository.NewProfileRepository(db)
	s.appRepo = repository.NewApplicationRepository(db)
	s.eventRepo = repository.NewEventRepository(db)
	s.emailRepo = repository.NewEmailRepository(db)
	s.keyRepo = repository.NewAPIKeyRepository(db)

	// Initialize handlers
	s.appHandler = handlers.NewApplicationHandler(s.appRepo, s.eventRepo, s.emailRepo)
	s.profileHandler = handlers.NewProfileHandler(s.profileRepo, "ingest.trackmail.test")
	s.keyHandler = handlers.NewAPIKeyHandler(s.keyRepo)

	// Setup Echo
	s.echo = echo.New()
}

// TearDownSuite stops the PostgreSQL container
func (s *APIIntegrationTestSuite) TearDownSuite() {
	if s.container != nil {
		s.container.Terminate(context.Background())
	}
}

// SetupTest cleans up data before each test
func (s *APIIntegrationTestSuite) SetupTest() {
	s.db.Exec("TRUNCATE TABLE email_records, application_events, applications, api_keys, profiles RESTART IDENTITY CASCADE")
}

// TestAPIIntegrationTestSuite runs the test suite
func TestAPIIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(APIIntegrationTestSuite))
}

func (s *APIIntegrationTestSuite) newContext(method, target string, body []byte) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.Set(middleware.UserIDKey, integrationUserID)
	return c, rec
}

// ==================== Application API Tests ====================

func (s *APIIntegrationTestSuite) TestApplicationAPI_Create() {
	body, _ := json.Marshal(map[string]interface{}{
		"company":  "Acme",
		"position": "Software Engineer",
	})
	c, rec := s.newContext(http.MethodPost, "/api/applications", body)

	err := s.appHandler.Create(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusCreated, rec.Code)

	var resp response.APIResponse
	err = json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.NoError(s.T(), err)
	assert.True(s.T(), resp.Success)
}

func (s *APIIntegrationTestSuite) TestApplicationAPI_CreateDuplicate() {
	ctx := context.Background()

	app := &models.Application{UserID: integrationUserID, Company: "Acme", Position: "Engineer", Status: models.StatusApplied}
	require.NoError(s.T(), s.appRepo.Create(ctx, app))

	body, _ := json.Marshal(map[string]interface{}{
		"company":  "Acme",
		"position": "Engineer",
	})
	c, rec := s.newContext(http.MethodPost, "/api/applications", body)

	err := s.appHandler.Create(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusConflict, rec.Code)
}

func (s *APIIntegrationTestSuite) TestApplicationAPI_Get() {
	ctx := context.Background()

	app := &models.Application{UserID: integrationUserID, Company: "Acme", Position: "Engineer", Status: models.StatusApplied}
	require.NoError(s.T(), s.appRepo.Create(ctx, app))

	c, rec := s.newContext(http.MethodGet, "/api/applications/"+app.ID, nil)
	c.SetParamNames("id")
	c.SetParamValues(app.ID)

	err := s.appHandler.Get(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *APIIntegrationTestSuite) TestApplicationAPI_List() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		app := &models.Application{
			UserID:   integrationUserID,
			Company:  fmt.Sprintf("Company %d", i),
			Position: "Engineer",
			Status:   models.StatusApplied,
		}
		require.NoError(s.T(), s.appRepo.Create(ctx, app))
	}

	c, rec := s.newContext(http.MethodGet, "/api/applications", nil)

	err := s.appHandler.List(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var resp response.PaginatedResponse
	err = json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.NoError(s.T(), err)
	assert.True(s.T(), resp.Success)
	assert.Equal(s.T(), int64(3), resp.Meta.Total)
}

func (s *APIIntegrationTestSuite) TestApplicationAPI_UpdateStatusRecordsEvent() {
	ctx := context.Background()

	app := &models.Application{UserID: integrationUserID, Company: "Acme", Position: "Engineer", Status: models.StatusApplied}
	require.NoError(s.T(), s.appRepo.Create(ctx, app))

	body, _ := json.Marshal(map[string]interface{}{"status": models.StatusInterviewing})
	c, rec := s.newContext(http.MethodPatch, "/api/applications/"+app.ID, body)
	c.SetParamNames("id")
	c.SetParamValues(app.ID)

	err := s.appHandler.Update(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	// Verify update landed
	updated, err := s.appRepo.GetByID(ctx, integrationUserID, app.ID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusInterviewing, updated.Status)

	// Status change is recorded on the timeline
	events, err := s.eventRepo.ListByApplication(ctx, app.ID)
	assert.NoError(s.T(), err)
	require.Len(s.T(), events, 1)
	assert.Equal(s.T(), models.EventTypeStatusChange, events[0].EventType)
	assert.Equal(s.T(), models.StatusInterviewing, events[0].Status)
}

func (s *APIIntegrationTestSuite) TestApplicationAPI_Delete() {
	ctx := context.Background()

	app := &models.Application{UserID: integrationUserID, Company: "Acme", Position: "Engineer", Status: models.StatusApplied}
	require.NoError(s.T(), s.appRepo.Create(ctx, app))

	c, rec := s.newContext(http.MethodDelete, "/api/applications/"+app.ID, nil)
	c.SetParamNames("id")
	c.SetParamValues(app.ID)

	err := s.appHandler.Delete(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)

	_, err = s.appRepo.GetByID(ctx, integrationUserID, app.ID)
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

func (s *APIIntegrationTestSuite) TestApplicationAPI_StatusGroups() {
	ctx := context.Background()

	for i, status := range []string{models.StatusApplied, models.StatusOffer} {
		app := &models.Application{
			UserID:   integrationUserID,
			Company:  fmt.Sprintf("Company %d", i),
			Position: "Engineer",
			Status:   status,
		}
		require.NoError(s.T(), s.appRepo.Create(ctx, app))
	}

	c, rec := s.newContext(http.MethodGet, "/api/applications/status-groups", nil)

	err := s.appHandler.StatusGroups(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *APIIntegrationTestSuite) TestApplicationAPI_Analytics() {
	ctx := context.Background()

	for i, status := range []string{models.StatusApplied, models.StatusInterviewing, models.StatusOffer, models.StatusRejected} {
		app := &models.Application{
			UserID:   integrationUserID,
			Company:  fmt.Sprintf("Company %d", i),
			Position: "Engineer",
			Status:   status,
		}
		require.NoError(s.T(), s.appRepo.Create(ctx, app))
	}

	c, rec := s.newContext(http.MethodGet, "/api/analytics/overview", nil)

	err := s.appHandler.Analytics(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var resp map[string]interface{}
	err = json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.NoError(s.T(), err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(s.T(), float64(4), data["total"])
}

func (s *APIIntegrationTestSuite) TestApplicationAPI_ExportCSV() {
	ctx := context.Background()

	app := &models.Application{UserID: integrationUserID, Company: "Acme", Position: "Engineer", Status: models.StatusOffer}
	require.NoError(s.T(), s.appRepo.Create(ctx, app))

	c, rec := s.newContext(http.MethodGet, "/api/applications/export", nil)

	err := s.appHandler.Export(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Contains(s.T(), rec.Header().Get(echo.HeaderContentType), "text/csv")
	assert.Contains(s.T(), rec.Body.String(), "Acme")
}

// ==================== Profile API Tests ====================

func (s *APIIntegrationTestSuite) TestProfileAPI_GetCreatesLazily() {
	c, rec := s.newContext(http.MethodGet, "/api/profile", nil)

	err := s.profileHandler.Get(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var resp map[string]interface{}
	err = json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.NoError(s.T(), err)
	data := resp["data"].(map[string]interface{})
	assert.Contains(s.T(), data["ingest_address"], "@ingest.trackmail.test")
}

func (s *APIIntegrationTestSuite) TestProfileAPI_RotateToken() {
	ctx := context.Background()

	profile, err := s.profileRepo.Ensure(ctx, integrationUserID)
	require.NoError(s.T(), err)
	oldToken := profile.IngestToken

	c, rec := s.newContext(http.MethodPost, "/api/profile/rotate-token", nil)

	err = s.profileHandler.RotateIngestToken(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	rotated, err := s.profileRepo.Ensure(ctx, integrationUserID)
	assert.NoError(s.T(), err)
	assert.NotEqual(s.T(), oldToken, rotated.IngestToken)
}

// ==================== API Key Tests ====================

func (s *APIIntegrationTestSuite) TestAPIKeyAPI_IssueAndRevoke() {
	ctx := context.Background()

	body, _ := json.Marshal(map[string]interface{}{"name": "ci key"})
	c, rec := s.newContext(http.MethodPost, "/api/api-keys", body)

	err := s.keyHandler.Issue(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	err = json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.NoError(s.T(), err)
	data := resp["data"].(map[string]interface{})
	plaintext := data["key"].(string)
	keyID := data["id"].(string)
	assert.NotEmpty(s.T(), plaintext)

	// The stored hash resolves to the issued key
	found, err := s.keyRepo.FindActiveByHash(ctx, models.HashAPIKey(plaintext))
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), keyID, found.ID)

	// Revoke it
	c, rec = s.newContext(http.MethodDelete, "/api/api-keys/"+keyID, nil)
	c.SetParamNames("id")
	c.SetParamValues(keyID)

	err = s.keyHandler.Revoke(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)

	_, err = s.keyRepo.FindActiveByHash(ctx, models.HashAPIKey(plaintext))
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

// ==================== Health Check Tests ====================

func (s *APIIntegrationTestSuite) TestHealthAPI_Check() {
	healthHandler := handlers.NewHealthHandler(s.db)

	c, rec := s.newContext(http.MethodGet, "/health", nil)

	err := healthHandler.Health(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *APIIntegrationTestSuite) TestHealthAPI_Ready() {
	healthHandler := handlers.NewHealthHandler(s.db)

	c, rec := s.newContext(http.MethodGet, "/ready", nil)

	err := healthHandler.Ready(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

// ==================== JSON Response Format Tests ====================

func (s *APIIntegrationTestSuite) TestAPI_ResponseFormat_Success() {
	ctx := context.Background()

	app := &models.Application{UserID: integrationUserID, Company: "Acme", Position: "Engineer", Status: models.StatusApplied}
	require.NoError(s.T(), s.appRepo.Create(ctx, app))

	c, rec := s.newContext(http.MethodGet, "/api/applications/"+app.ID, nil)
	c.SetParamNames("id")
	c.SetParamValues(app.ID)

	err := s.appHandler.Get(c)

	assert.NoError(s.T(), err)

	var resp map[string]interface{}
	err = json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.NoError(s.T(), err)

	// Verify response format
	assert.Contains(s.T(), resp, "success")
	assert.Contains(s.T(), resp, "data")
	assert.Equal(s.T(), true, resp["success"])
}

func (s *APIIntegrationTestSuite) TestAPI_ResponseFormat_NotFound() {
	c, rec := s.newContext(http.MethodGet, "/api/applications/00000000-0000-4000-8000-000000000000", nil)
	c.SetParamNames("id")
	c.SetParamValues("00000000-0000-4000-8000-000000000000")

	err := s.appHandler.Get(c)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)

	var resp map[string]interface{}
	err = json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.NoError(s.T(), err)

	// Verify error response format
	assert.Contains(s.T(), resp, "success")
	assert.Contains(s.T(), resp, "error")
	assert.Equal(s.T(), false, resp["success"])
}
