package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/modelfactory/portal/internal/domain"
	"github.com/modelfactory/portal/internal/repository"
	"github.com/modelfactory/portal/internal/storage"
	"github.com/modelfactory/portal/pkg/logger"
)

// LifecycleService owns models and their append-only version ledgers.
// Every mutation of a ledger runs inside a per-model critical section
// and a single database transaction; events go out only after commit.
type LifecycleService interface {
	CreateModel(ctx context.Context, algorithmID, userID uuid.UUID, req *domain.ModelCreateRequest) (*domain.ModelResponse, error)
	GetModel(ctx context.Context, id, userID uuid.UUID) (*domain.ModelResponse, error)
	ListModels(ctx context.Context, algorithmID, userID uuid.UUID) ([]domain.ModelResponse, error)
	ListVersions(ctx context.Context, modelID, userID uuid.UUID) ([]domain.ModelVersion, error)
	DeleteModel(ctx context.Context, id, userID uuid.UUID) error

	Promote(ctx context.Context, modelID, userID uuid.UUID) (*domain.ModelResponse, error)
	Rollback(ctx context.Context, modelID, userID uuid.UUID) (*domain.ModelResponse, error)
	Archive(ctx context.Context, modelID, userID uuid.UUID) (*domain.ModelResponse, error)
}

type lifecycleService struct {
	db            *gorm.DB
	algorithmRepo repository.AlgorithmRepository
	modelRepo     repository.ModelRepository
	versionRepo   repository.VersionRepository
	fileRepo      repository.FileRepository
	blobs         storage.BlobStore
	events        EventPublisher
	locks         *modelLocks
}

func NewLifecycleService(
	db *gorm.DB,
	algorithmRepo repository.AlgorithmRepository,
	modelRepo repository.ModelRepository,
	versionRepo repository.VersionRepository,
	fileRepo repository.FileRepository,
	blobs storage.BlobStore,
	events EventPublisher,
) LifecycleService {
	return &lifecycleService{
		db:            db,
		algorithmRepo: algorithmRepo,
		modelRepo:     modelRepo,
		versionRepo:   versionRepo,
		fileRepo:      fileRepo,
		blobs:         blobs,
		events:        events,
		locks:         newModelLocks(),
	}
}

func (s *lifecycleService) CreateModel(ctx context.Context, algorithmID, userID uuid.UUID, req *domain.ModelCreateRequest) (*domain.ModelResponse, error) {
	if _, err := s.algorithmRepo.GetByID(ctx, algorithmID, userID); err != nil {
		return nil, err
	}

	model := &domain.Model{
		Name:        req.Name,
		Description: req.Description,
		AlgorithmID: algorithmID,
		UserID:      userID,
	}

	var first *domain.ModelVersion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.modelRepo.WithTx(tx).Create(ctx, model); err != nil {
			return err
		}
		v, err := s.versionRepo.WithTx(tx).Append(ctx, model.ID, domain.StageDevelopment, req.Notes, req.Tags)
		if err != nil {
			return err
		}
		first = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Model created",
		zap.String("model_id", model.ID.String()),
		zap.String("algorithm_id", algorithmID.String()))
	s.events.Broadcast(domain.Event{
		Type:    domain.EventModelCreated,
		ModelID: model.ID.String(),
		UserID:  userID.String(),
		Message: "model " + model.Name + " created",
	})

	return toModelResponse(model, domain.NewDerivedState(first, 1)), nil
}

func (s *lifecycleService) GetModel(ctx context.Context, id, userID uuid.UUID) (*domain.ModelResponse, error) {
	model, err := s.modelRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	state, err := s.deriveState(ctx, model.ID)
	if err != nil {
		return nil, err
	}
	return toModelResponse(model, state), nil
}

func (s *lifecycleService) ListModels(ctx context.Context, algorithmID, userID uuid.UUID) ([]domain.ModelResponse, error) {
	if _, err := s.algorithmRepo.GetByID(ctx, algorithmID, userID); err != nil {
		return nil, err
	}
	models, err := s.modelRepo.ListByAlgorithm(ctx, algorithmID, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.ModelResponse, 0, len(models))
	for i := range models {
		state, err := s.deriveState(ctx, models[i].ID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *toModelResponse(&models[i], state))
	}
	return responses, nil
}

func (s *lifecycleService) ListVersions(ctx context.Context, modelID, userID uuid.UUID) ([]domain.ModelVersion, error) {
	if _, err := s.modelRepo.GetByID(ctx, modelID, userID); err != nil {
		return nil, err
	}
	return s.versionRepo.ListByModel(ctx, modelID)
}

func (s *lifecycleService) DeleteModel(ctx context.Context, id, userID uuid.UUID) error {
	model, err := s.modelRepo.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}

	// Collect blob paths before the rows disappear. Only the row
	// deletion runs under the ledger lock; blob cleanup and the
	// broadcast happen after it is released.
	var files []domain.ModelFile
	err = func() error {
		unlock := s.locks.Lock(id)
		defer unlock()

		files, err = s.fileRepo.ListByModel(ctx, id)
		if err != nil {
			return err
		}
		return s.modelRepo.Delete(ctx, id, userID)
	}()
	if err != nil {
		return err
	}

	// Blob cleanup is best effort; orphaned blobs are logged, not fatal.
	for _, f := range files {
		if err := s.blobs.Delete(ctx, f.StoragePath); err != nil {
			logger.Log.Warn("Failed to delete blob for removed model",
				zap.String("storage_path", f.StoragePath), zap.Error(err))
		}
	}

	logger.Log.Info("Model deleted",
		zap.String("model_id", id.String()),
		zap.String("user_id", userID.String()))
	s.events.Broadcast(domain.Event{
		Type:    domain.EventModelDeleted,
		ModelID: id.String(),
		UserID:  userID.String(),
		Message: "model " + model.Name + " deleted",
	})
	return nil
}

// Promote appends a copy of the latest version at the next stage. When
// the target stage is production, any live production version is
// archived in place inside the same transaction, so at most one
// production version exists at any time.
func (s *lifecycleService) Promote(ctx context.Context, modelID, userID uuid.UUID) (*domain.ModelResponse, error) {
	model, err := s.modelRepo.GetByID(ctx, modelID, userID)
	if err != nil {
		return nil, err
	}

	// The lock covers the transaction only; it is released before the
	// event goes out so observers never gate the ledger.
	unlock := s.locks.Lock(modelID)
	var head *domain.ModelVersion
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		versions := s.versionRepo.WithTx(tx)

		latest, err := versions.Latest(ctx, modelID)
		if err != nil {
			return err
		}
		if latest == nil || !latest.Stage.CanPromote() {
			return ErrInvalidTransition
		}
		next, _ := latest.Stage.Next()

		if next == domain.StageProduction {
			if err := versions.ArchiveProduction(ctx, modelID); err != nil {
				return err
			}
		}

		head, err = versions.Append(ctx, modelID, next, latest.Notes, latest.Tags)
		return err
	})
	unlock()
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Model promoted",
		zap.String("model_id", modelID.String()),
		zap.Int("version", head.VersionNumber),
		zap.String("stage", string(head.Stage)))
	s.events.Broadcast(domain.Event{
		Type:    domain.EventModelPromoted,
		ModelID: modelID.String(),
		UserID:  userID.String(),
		Message: fmt.Sprintf("model %s promoted to %s (v%d)", model.Name, head.Stage, head.VersionNumber),
	})

	return s.respondAfterMutation(ctx, model, head)
}

// Rollback appends a copy of the most recent active version below the
// head, restoring its stage, notes and tags. Any live production
// version is archived in place first so the single-production rule
// holds whatever stage is being restored.
func (s *lifecycleService) Rollback(ctx context.Context, modelID, userID uuid.UUID) (*domain.ModelResponse, error) {
	model, err := s.modelRepo.GetByID(ctx, modelID, userID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(modelID)
	var head *domain.ModelVersion
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		versions := s.versionRepo.WithTx(tx)

		latest, err := versions.Latest(ctx, modelID)
		if err != nil {
			return err
		}
		if latest == nil {
			return ErrInvalidTransition
		}
		active, err := versions.ActiveCount(ctx, modelID)
		if err != nil {
			return err
		}
		if !domain.CanRollback(active) {
			return ErrInvalidTransition
		}
		prev, err := versions.LatestBefore(ctx, modelID, latest.VersionNumber)
		if err != nil {
			return err
		}
		if prev == nil {
			return ErrInvalidTransition
		}

		if err := versions.ArchiveProduction(ctx, modelID); err != nil {
			return err
		}

		head, err = versions.Append(ctx, modelID, prev.Stage, prev.Notes, prev.Tags)
		return err
	})
	unlock()
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Model rolled back",
		zap.String("model_id", modelID.String()),
		zap.Int("version", head.VersionNumber),
		zap.String("stage", string(head.Stage)))
	s.events.Broadcast(domain.Event{
		Type:    domain.EventModelRolledBack,
		ModelID: modelID.String(),
		UserID:  userID.String(),
		Message: fmt.Sprintf("model %s rolled back to %s (v%d)", model.Name, head.Stage, head.VersionNumber),
	})

	return s.respondAfterMutation(ctx, model, head)
}

// Archive appends an archived version on top of the ledger. Archiving
// an already archived model is rejected.
func (s *lifecycleService) Archive(ctx context.Context, modelID, userID uuid.UUID) (*domain.ModelResponse, error) {
	model, err := s.modelRepo.GetByID(ctx, modelID, userID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(modelID)
	var head *domain.ModelVersion
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		versions := s.versionRepo.WithTx(tx)

		latest, err := versions.Latest(ctx, modelID)
		if err != nil {
			return err
		}
		if latest == nil || latest.Stage == domain.StageArchived {
			return ErrInvalidTransition
		}

		head, err = versions.Append(ctx, modelID, domain.StageArchived, latest.Notes, latest.Tags)
		return err
	})
	unlock()
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Model archived",
		zap.String("model_id", modelID.String()),
		zap.Int("version", head.VersionNumber))
	s.events.Broadcast(domain.Event{
		Type:    domain.EventModelArchived,
		ModelID: modelID.String(),
		UserID:  userID.String(),
		Message: fmt.Sprintf("model %s archived (v%d)", model.Name, head.VersionNumber),
	})

	return s.respondAfterMutation(ctx, model, head)
}

func (s *lifecycleService) deriveState(ctx context.Context, modelID uuid.UUID) (domain.DerivedState, error) {
	latest, err := s.versionRepo.Latest(ctx, modelID)
	if err != nil {
		return domain.DerivedState{}, err
	}
	active, err := s.versionRepo.ActiveCount(ctx, modelID)
	if err != nil {
		return domain.DerivedState{}, err
	}
	return domain.NewDerivedState(latest, active), nil
}

func (s *lifecycleService) respondAfterMutation(ctx context.Context, model *domain.Model, head *domain.ModelVersion) (*domain.ModelResponse, error) {
	active, err := s.versionRepo.ActiveCount(ctx, model.ID)
	if err != nil {
		return nil, err
	}
	return toModelResponse(model, domain.NewDerivedState(head, active)), nil
}

func toModelResponse(model *domain.Model, state domain.DerivedState) *domain.ModelResponse {
	return &domain.ModelResponse{
		ID:           model.ID,
		Name:         model.Name,
		Description:  model.Description,
		AlgorithmID:  model.AlgorithmID,
		CreatedAt:    model.CreatedAt,
		DerivedState: state,
	}
}
