package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/modelfactory/portal/internal/domain"
	"github.com/modelfactory/portal/internal/repository"
)

// fakeBlobStore keeps blobs in memory and records deletions
type fakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Store(ctx context.Context, fileType domain.FileType, fileName string, reader io.Reader, size int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("%s/%s_%s", fileType, uuid.New(), fileName)
	f.blobs[path] = data
	return path, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, storagePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, storagePath)
	f.deleted = append(f.deleted, storagePath)
	return nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, storagePath string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[storagePath]
	return ok, nil
}

func (f *fakeBlobStore) PresignedGetURL(ctx context.Context, storagePath string, expiry time.Duration) (string, error) {
	return "https://blobs.test/" + storagePath, nil
}

// eventRecorder collects broadcast events
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Broadcast(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

type testEnv struct {
	db        *gorm.DB
	blobs     *fakeBlobStore
	events    *eventRecorder
	lifecycle LifecycleService
	files     FileService
	factories FactoryService

	user     *domain.User
	stranger *domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, domain.AutoMigrate(db))

	blobs := newFakeBlobStore()
	events := &eventRecorder{}

	factoryRepo := repository.NewFactoryRepository(db)
	algorithmRepo := repository.NewAlgorithmRepository(db)
	modelRepo := repository.NewModelRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	fileRepo := repository.NewFileRepository(db)

	env := &testEnv{
		db:        db,
		blobs:     blobs,
		events:    events,
		lifecycle: NewLifecycleService(db, algorithmRepo, modelRepo, versionRepo, fileRepo, blobs, events),
		files:     NewFileService(modelRepo, fileRepo, blobs, events, 15*time.Minute),
		factories: NewFactoryService(factoryRepo, algorithmRepo, modelRepo, events),
		user:      createUser(t, db, "owner@example.com"),
		stranger:  createUser(t, db, "stranger@example.com"),
	}
	return env
}

func createUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()

	user := &domain.User{Name: "Test User", Email: email}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), user))
	return user
}

// newModel creates a factory, algorithm and model for the env's user
func (e *testEnv) newModel(t *testing.T) *domain.ModelResponse {
	t.Helper()
	ctx := context.Background()

	factory, err := e.factories.CreateFactory(ctx, e.user.ID, &domain.FactoryCreateRequest{Name: "plant"})
	require.NoError(t, err)
	algorithm, err := e.factories.CreateAlgorithm(ctx, factory.ID, e.user.ID, &domain.AlgorithmCreateRequest{Name: "algo"})
	require.NoError(t, err)
	model, err := e.lifecycle.CreateModel(ctx, algorithm.ID, e.user.ID, &domain.ModelCreateRequest{
		Name:  "classifier",
		Notes: "initial",
		Tags:  "v0,baseline",
	})
	require.NoError(t, err)
	return model
}

// ledger reads all version rows for a model, oldest first
func (e *testEnv) ledger(t *testing.T, modelID uuid.UUID) []domain.ModelVersion {
	t.Helper()

	var versions []domain.ModelVersion
	require.NoError(t, e.db.
		Where("model_id = ?", modelID).
		Order("version_number ASC").
		Find(&versions).Error)
	return versions
}
