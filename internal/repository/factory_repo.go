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

// ErrFactoryNotFound covers both a missing factory and a factory owned
// by someone else, so a caller cannot probe for existence.
var ErrFactoryNotFound = errors.New("factory not found")

type FactoryRepository interface {
	Create(ctx context.Context, factory *domain.Factory) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Factory, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Factory, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type factoryRepository struct {
	db *gorm.DB
}

func NewFactoryRepository(db *gorm.DB) FactoryRepository {
	return &factoryRepository{db: db}
}

func (r *factoryRepository) Create(ctx context.Context, factory *domain.Factory) error {
	if err := r.db.WithContext(ctx).Create(factory).Error; err != nil {
		logger.Error("Failed to create factory", zap.Error(err))
		return err
	}
	logger.Info("Factory created",
		zap.String("factory_id", factory.ID.String()),
		zap.String("user_id", factory.UserID.String()))
	return nil
}

func (r *factoryRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Factory, error) {
	var factory domain.Factory
	err := r.db.WithContext(ctx).
		First(&factory, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFactoryNotFound
		}
		logger.Error("Failed to get factory", zap.String("factory_id", id.String()), zap.Error(err))
		return nil, err
	}
	return &factory, nil
}

func (r *factoryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Factory, error) {
	var factories []domain.Factory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&factories).Error
	if err != nil {
		logger.Error("Failed to list factories", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}
	return factories, nil
}

func (r *factoryRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Factory{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// Delete removes the factory and everything beneath it: algorithms,
// models, model versions and file rows, all in one transaction.
func (r *factoryRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var factory domain.Factory
		if err := tx.First(&factory, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFactoryNotFound
			}
			return err
		}

		var algorithmIDs []uuid.UUID
		if err := tx.Model(&domain.Algorithm{}).
			Where("factory_id = ?", id).
			Pluck("id", &algorithmIDs).Error; err != nil {
			return err
		}

		if len(algorithmIDs) > 0 {
			var modelIDs []uuid.UUID
			if err := tx.Model(&domain.Model{}).
				Where("algorithm_id IN ?", algorithmIDs).
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

			if err := tx.Where("id IN ?", algorithmIDs).Delete(&domain.Algorithm{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&factory).Error; err != nil {
			return err
		}

		logger.Info("Factory deleted",
			zap.String("factory_id", id.String()),
			zap.Int("algorithms", len(algorithmIDs)))
		return nil
	})
}
