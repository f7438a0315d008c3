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

// ErrFileNotFound covers both missing and not-owned file rows.
var ErrFileNotFound = errors.New("file not found")

type FileRepository interface {
	Create(ctx context.Context, file *domain.ModelFile) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.ModelFile, error)
	ListByModel(ctx context.Context, modelID uuid.UUID) ([]domain.ModelFile, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type fileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, file *domain.ModelFile) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		logger.Error("Failed to create file row", zap.Error(err))
		return err
	}
	logger.Info("File attached",
		zap.String("file_id", file.ID.String()),
		zap.String("model_id", file.ModelID.String()),
		zap.String("file_type", string(file.FileType)))
	return nil
}

func (r *fileRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.ModelFile, error) {
	var file domain.ModelFile
	err := r.db.WithContext(ctx).
		First(&file, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		logger.Error("Failed to get file", zap.String("file_id", id.String()), zap.Error(err))
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) ListByModel(ctx context.Context, modelID uuid.UUID) ([]domain.ModelFile, error) {
	var files []domain.ModelFile
	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("created_at DESC").
		Find(&files).Error
	if err != nil {
		logger.Error("Failed to list files", zap.String("model_id", modelID.String()), zap.Error(err))
		return nil, err
	}
	return files, nil
}

func (r *fileRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.ModelFile{})
	if result.Error != nil {
		logger.Error("Failed to delete file row", zap.String("file_id", id.String()), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFileNotFound
	}
	logger.Info("File row deleted", zap.String("file_id", id.String()))
	return nil
}
