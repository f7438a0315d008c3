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

// ErrModelNotFound covers both missing and not-owned models.
var ErrModelNotFound = errors.New("model not found")

type ModelRepository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *gorm.DB) ModelRepository

	Create(ctx context.Context, model *domain.Model) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Model, error)
	ListByAlgorithm(ctx context.Context, algorithmID, userID uuid.UUID) ([]domain.Model, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type modelRepository struct {
	db *gorm.DB
}

func NewModelRepository(db *gorm.DB) ModelRepository {
	return &modelRepository{db: db}
}

func (r *modelRepository) WithTx(tx *gorm.DB) ModelRepository {
	return &modelRepository{db: tx}
}

func (r *modelRepository) Create(ctx context.Context, model *domain.Model) error {
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		logger.Error("Failed to create model", zap.Error(err))
		return err
	}
	logger.Info("Model created",
		zap.String("model_id", model.ID.String()),
		zap.String("algorithm_id", model.AlgorithmID.String()))
	return nil
}

func (r *modelRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Model, error) {
	var model domain.Model
	err := r.db.WithContext(ctx).
		First(&model, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelNotFound
		}
		logger.Error("Failed to get model", zap.String("model_id", id.String()), zap.Error(err))
		return nil, err
	}
	return &model, nil
}

func (r *modelRepository) ListByAlgorithm(ctx context.Context, algorithmID, userID uuid.UUID) ([]domain.Model, error) {
	var models []domain.Model
	err := r.db.WithContext(ctx).
		Where("algorithm_id = ? AND user_id = ?", algorithmID, userID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		logger.Error("Failed to list models", zap.String("algorithm_id", algorithmID.String()), zap.Error(err))
		return nil, err
	}
	return models, nil
}

func (r *modelRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Model{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// Delete removes the model, its version ledger and its file rows in one
// transaction. Blob cleanup is the caller's responsibility.
func (r *modelRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.Model
		if err := tx.First(&model, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrModelNotFound
			}
			return err
		}

		if err := tx.Where("model_id = ?", id).Delete(&domain.ModelVersion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("model_id = ?", id).Delete(&domain.ModelFile{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model).Error; err != nil {
			return err
		}

		logger.Info("Model deleted", zap.String("model_id", id.String()))
		return nil
	})
}
