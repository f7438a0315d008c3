package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/modelfactory/portal/internal/domain"
	"github.com/modelfactory/portal/internal/middleware"
	"github.com/modelfactory/portal/internal/repository"
	"github.com/modelfactory/portal/internal/service"
	"github.com/modelfactory/portal/internal/ws"
	"github.com/modelfactory/portal/pkg/jwt"
)

// memBlobStore is an in-memory stand-in for object storage
type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (m *memBlobStore) Store(ctx context.Context, fileType domain.FileType, fileName string, reader io.Reader, size int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("%s/%s_%s", fileType, uuid.New(), fileName)
	m.blobs[path] = data
	return path, nil
}

func (m *memBlobStore) Delete(ctx context.Context, storagePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, storagePath)
	return nil
}

func (m *memBlobStore) Exists(ctx context.Context, storagePath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[storagePath]
	return ok, nil
}

func (m *memBlobStore) PresignedGetURL(ctx context.Context, storagePath string, expiry time.Duration) (string, error) {
	return "https://blobs.test/" + storagePath, nil
}

// newTestRouter wires the full API against an in-memory database
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, domain.AutoMigrate(db))

	blobs := &memBlobStore{blobs: make(map[string][]byte)}
	hub := ws.NewHub()
	t.Cleanup(hub.Close)
	jwtManager := jwt.NewManager(nil)

	userRepo := repository.NewUserRepository(db)
	factoryRepo := repository.NewFactoryRepository(db)
	algorithmRepo := repository.NewAlgorithmRepository(db)
	modelRepo := repository.NewModelRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	fileRepo := repository.NewFileRepository(db)

	authService := service.NewAuthService(userRepo, jwtManager)
	factoryService := service.NewFactoryService(factoryRepo, algorithmRepo, modelRepo, hub)
	lifecycleService := service.NewLifecycleService(db, algorithmRepo, modelRepo, versionRepo, fileRepo, blobs, hub)
	fileService := service.NewFileService(modelRepo, fileRepo, blobs, hub, 15*time.Minute)

	authHandler := NewAuthHandler(authService)
	factoryHandler := NewFactoryHandler(factoryService)
	modelHandler := NewModelHandler(lifecycleService)
	fileHandler := NewFileHandler(fileService, 64*1024*1024)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/auth/signup", authHandler.Signup)
	v1.POST("/auth/login", authHandler.Login)

	authed := v1.Group("")
	authed.Use(middleware.JWTAuth(jwtManager))
	authed.GET("/auth/me", authHandler.Me)
	authed.GET("/dashboard/stats", factoryHandler.DashboardStats)
	authed.POST("/factories", factoryHandler.Create)
	authed.GET("/factories", factoryHandler.List)
	authed.POST("/factories/:id/algorithms", factoryHandler.CreateAlgorithm)
	authed.POST("/algorithms/:id/models", modelHandler.Create)
	authed.GET("/models/:id", modelHandler.Get)
	authed.GET("/models/:id/versions", modelHandler.ListVersions)
	authed.POST("/models/:id/promote", modelHandler.Promote)
	authed.POST("/models/:id/rollback", modelHandler.Rollback)
	authed.POST("/models/:id/archive", modelHandler.Archive)
	authed.POST("/models/:id/files", fileHandler.Upload)
	authed.GET("/models/:id/files", fileHandler.List)

	return router
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (c *apiClient) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

// data unwraps the response envelope's data field into out
func (c *apiClient) data(rec *httptest.ResponseRecorder, out interface{}) {
	c.t.Helper()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(c.t, json.Unmarshal(envelope.Data, out))
}

func signup(t *testing.T, router *gin.Engine, email string) *apiClient {
	t.Helper()

	client := &apiClient{t: t, router: router}
	rec := client.do(http.MethodPost, "/api/v1/auth/signup", gin.H{
		"name":     "Test User",
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp domain.AuthResponse
	client.data(rec, &resp)
	client.token = resp.AccessToken
	return client
}

func (c *apiClient) createModel(t *testing.T) uuid.UUID {
	t.Helper()

	var factory domain.Factory
	rec := c.do(http.MethodPost, "/api/v1/factories", gin.H{"name": "plant"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c.data(rec, &factory)

	var algorithm domain.Algorithm
	rec = c.do(http.MethodPost, "/api/v1/factories/"+factory.ID.String()+"/algorithms", gin.H{"name": "algo"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c.data(rec, &algorithm)

	var model domain.ModelResponse
	rec = c.do(http.MethodPost, "/api/v1/algorithms/"+algorithm.ID.String()+"/models", gin.H{"name": "classifier"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c.data(rec, &model)
	return model.ID
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter(t)
	client := &apiClient{t: t, router: router}

	rec := client.do(http.MethodGet, "/api/v1/factories", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	client.token = "not-a-token"
	rec = client.do(http.MethodGet, "/api/v1/factories", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupValidation(t *testing.T) {
	router := newTestRouter(t)
	client := &apiClient{t: t, router: router}

	rec := client.do(http.MethodPost, "/api/v1/auth/signup", gin.H{
		"name":     "X",
		"email":    "not-an-email",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = client.do(http.MethodPost, "/api/v1/auth/signup", gin.H{
		"name":     "X",
		"email":    "x@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	client := signup(t, router, "owner@example.com")
	modelID := client.createModel(t)

	// Promote twice into production.
	rec := client.do(http.MethodPost, "/api/v1/models/"+modelID.String()+"/promote", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = client.do(http.MethodPost, "/api/v1/models/"+modelID.String()+"/promote", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var model domain.ModelResponse
	client.data(rec, &model)
	assert.Equal(t, domain.StageProduction, model.LatestStage)
	assert.Equal(t, 3, model.LatestVersionNumber)

	// Promoting production maps to 409.
	rec = client.do(http.MethodPost, "/api/v1/models/"+modelID.String()+"/promote", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = client.do(http.MethodPost, "/api/v1/models/"+modelID.String()+"/rollback", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	client.data(rec, &model)
	assert.Equal(t, domain.StageStaging, model.LatestStage)

	var versions []domain.ModelVersion
	rec = client.do(http.MethodGet, "/api/v1/models/"+modelID.String()+"/versions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	client.data(rec, &versions)
	assert.Len(t, versions, 4)
}

func TestForeignModelMapsToNotFound(t *testing.T) {
	router := newTestRouter(t)
	owner := signup(t, router, "owner@example.com")
	stranger := signup(t, router, "stranger@example.com")
	modelID := owner.createModel(t)

	rec := stranger.do(http.MethodGet, "/api/v1/models/"+modelID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = stranger.do(http.MethodPost, "/api/v1/models/"+modelID.String()+"/promote", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Same status as a model that does not exist at all.
	rec = stranger.do(http.MethodGet, "/api/v1/models/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFileUploadOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	client := signup(t, router, "owner@example.com")
	modelID := client.createModel(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("file_type", "dataset"))
	part, err := writer.CreateFormFile("file", "train.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/models/"+modelID.String()+"/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+client.token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var file domain.ModelFile
	client.data(rec, &file)
	assert.Equal(t, domain.FileTypeDataset, file.FileType)
	assert.Equal(t, "train.csv", file.FileName)

	rec = client.do(http.MethodGet, "/api/v1/models/"+modelID.String()+"/files", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var files []domain.ModelFile
	client.data(rec, &files)
	assert.Len(t, files, 1)
}
