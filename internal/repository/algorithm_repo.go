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

// ErrAlgorithmNotFound covers both missing and not-owned algorithms.
var ErrAlgorithmNotFound = errors.New("algorithm not found")

type AlgorithmRepository interface {
	Create(ctx context.Context, algorithm *domain.Algorithm) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Algorithm, error)
	ListByFactory(ctx context.Context, factoryID, userID uuid.UUID) ([]domain.Algorithm, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type algorithmRepository struct {
	db *gorm.DB
}

func NewAlgorithmRepository(db *gorm.DB) AlgorithmRepository {
	return &algorithmRepository{db: db}
}

func (r *algorithmRepository) Create(ctx context.Context, algorithm *domain.Algorithm) error {
	if err := r.db.WithContext(ctx).Create(algorithm).Error; err != nil {
		logger.Error("Failed to create algorithm", zap.Error(err))
		return err
	}
	logger.Info("Algorithm created",
		zap.String("algorithm_id", algorithm.ID.String()),
		zap.String("factory_id", algorithm.FactoryID.String()))
	return nil
}

func (r *algorithmRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Algorithm, error) {
	var algorithm domain.Algorithm
	err := r.db.WithContext(ctx).
		First(&algorithm, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlgorithmNotFound
		}
		logger.Error("Failed to get algorithm", zap.String("algorithm_id", id.String()), zap.Error(err))
		return nil, err
	}
	return &algorithm, nil
}

func (r *algorithmRepository) ListByFactory(ctx context.Context, factoryID, userID uuid.UUID) ([]domain.Algorithm, error) {
	var algorithms []domain.Algorithm
	err := r.db.WithContext(ctx).
		Where("factory_id = ? AND user_id = ?", factoryID, userID).
		Order("created_at DESC").
		Find(&algorithms).Error
	if err != nil {
		logger.Error("Failed to list algorithms", zap.String("factory_id", factoryID.String()), zap.Error(err))
		return nil, err
	}
	return algorithms, nil
}

func (r *algorithmRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Algorithm{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// Delete removes the algorithm and its models, versions and file rows
// in one transaction.
func (r *algorithmRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var algorithm domain.Algorithm
		if err := tx.First(&algorithm, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlgorithmNotFound
			}
			return err
		}

		var modelIDs []uuid.UUID
		if err := tx.Model(&domain.Model{}).
			Where("algorithm_id = ?", id).
			Pluck("id", &modelIDs).Error; err != nil {
			return err
		}

		if len(modelIDs) > 0 {
			if err := tx.Where("model_id IN ?", modelIDs).Delete(&domain.ModelVersion{}).Error; err != nil {
				return err
			}
			if err := tx.Where("model_id IN ?", modelIDs).Delete(&domain.ModelFile{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", modelIDs).Delete(&domain.Model{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&algorithm).Error; err != nil {
			return err
		}

		logger.Info("Algorithm deleted",
			zap.String("algorithm_id", id.String()),
			zap.Int("models", len(modelIDs)))
		return nil
	})
}
