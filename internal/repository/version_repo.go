package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/modelfactory/portal/internal/domain"
	"github.com/modelfactory/portal/pkg/logger"
)

// VersionRepository is the append-only version ledger of a model.
// Mutations must run inside the model-scoped critical section held by
// the lifecycle service; use WithTx to bind them to its transaction.
type VersionRepository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *gorm.DB) VersionRepository

	// Append inserts the next version row for the model. The version
	// number is max(existing)+1, or 1 for the first version.
	Append(ctx context.Context, modelID uuid.UUID, stage domain.Stage, notes, tags string) (*domain.ModelVersion, error)

	// Latest returns the version with the highest version number, or
	// nil when the model has no versions.
	Latest(ctx context.Context, modelID uuid.UUID) (*domain.ModelVersion, error)

	// LatestBefore returns the most recent non-archived version with a
	// version number strictly below the given one, or nil.
	LatestBefore(ctx context.Context, modelID uuid.UUID, versionNumber int) (*domain.ModelVersion, error)

	// ActiveCount counts versions whose stage is not archived.
	ActiveCount(ctx context.Context, modelID uuid.UUID) (int64, error)

	// ListByModel returns all versions, newest first.
	ListByModel(ctx context.Context, modelID uuid.UUID) ([]domain.ModelVersion, error)

	// ArchiveProduction transitions any production version of the model
	// to archived in place. This is the single allowed in-place stage
	// edit; everything else goes through Append.
	ArchiveProduction(ctx context.Context, modelID uuid.UUID) error
}

type versionRepository struct {
	db *gorm.DB
}

func NewVersionRepository(db *gorm.DB) VersionRepository {
	return &versionRepository{db: db}
}

func (r *versionRepository) WithTx(tx *gorm.DB) VersionRepository {
	return &versionRepository{db: tx}
}

func (r *versionRepository) Append(ctx context.Context, modelID uuid.UUID, stage domain.Stage, notes, tags string) (*domain.ModelVersion, error) {
	var next int
	err := r.db.WithContext(ctx).Model(&domain.ModelVersion{}).
		Where("model_id = ?", modelID).
		Select("COALESCE(MAX(version_number), 0) + 1").
		Scan(&next).Error
	if err != nil {
		logger.Error("Failed to compute next version number",
			zap.String("model_id", modelID.String()), zap.Error(err))
		return nil, err
	}

	version := &domain.ModelVersion{
		ModelID:       modelID,
		VersionNumber: next,
		Stage:         stage,
		Notes:         notes,
		Tags:          tags,
	}
	if err := r.db.WithContext(ctx).Create(version).Error; err != nil {
		logger.Error("Failed to append version",
			zap.String("model_id", modelID.String()),
			zap.Int("version_number", next), zap.Error(err))
		return nil, err
	}

	logger.Info("Version appended",
		zap.String("model_id", modelID.String()),
		zap.Int("version_number", next),
		zap.String("stage", string(stage)))
	return version, nil
}

func (r *versionRepository) Latest(ctx context.Context, modelID uuid.UUID) (*domain.ModelVersion, error) {
	var version domain.ModelVersion
	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("version_number DESC").
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}

func (r *versionRepository) LatestBefore(ctx context.Context, modelID uuid.UUID, versionNumber int) (*domain.ModelVersion, error) {
	var version domain.ModelVersion
	err := r.db.WithContext(ctx).
		Where("model_id = ? AND version_number < ? AND stage <> ?",
			modelID, versionNumber, domain.StageArchived).
		Order("version_number DESC").
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}

func (r *versionRepository) ActiveCount(ctx context.Context, modelID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ModelVersion{}).
		Where("model_id = ? AND stage <> ?", modelID, domain.StageArchived).
		Count(&count).Error
	return count, err
}

func (r *versionRepository) ListByModel(ctx context.Context, modelID uuid.UUID) ([]domain.ModelVersion, error) {
	var versions []domain.ModelVersion
	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("version_number DESC").
		Find(&versions).Error
	if err != nil {
		logger.Error("Failed to list versions", zap.String("model_id", modelID.String()), zap.Error(err))
		return nil, err
	}
	return versions, nil
}

func (r *versionRepository) ArchiveProduction(ctx context.Context, modelID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&domain.ModelVersion{}).
		Where("model_id = ? AND stage = ?", modelID, domain.StageProduction).
		Update("stage", domain.StageArchived)
	if result.Error != nil {
		logger.Error("Failed to archive production version",
			zap.String("model_id", modelID.String()), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected > 0 {
		logger.Info("Production version archived", zap.String("model_id", modelID.String()))
	}
	return nil
}
