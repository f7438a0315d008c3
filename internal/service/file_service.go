package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelfactory/portal/internal/domain"
	"github.com/modelfactory/portal/internal/repository"
	"github.com/modelfactory/portal/internal/storage"
	"github.com/modelfactory/portal/pkg/logger"
)

// FileService attaches artifact files to models and serves downloads
type FileService interface {
	Attach(ctx context.Context, modelID, userID uuid.UUID, fileType, fileName string, reader io.Reader, size int64) (*domain.ModelFile, error)
	Detach(ctx context.Context, fileID, userID uuid.UUID) error
	ListByModel(ctx context.Context, modelID, userID uuid.UUID) ([]domain.ModelFile, error)
	DownloadURL(ctx context.Context, fileID, userID uuid.UUID) (string, error)
}

type fileService struct {
	modelRepo repository.ModelRepository
	fileRepo  repository.FileRepository
	blobs     storage.BlobStore
	events    EventPublisher
	urlExpiry time.Duration
}

func NewFileService(
	modelRepo repository.ModelRepository,
	fileRepo repository.FileRepository,
	blobs storage.BlobStore,
	events EventPublisher,
	urlExpiry time.Duration,
) FileService {
	return &fileService{
		modelRepo: modelRepo,
		fileRepo:  fileRepo,
		blobs:     blobs,
		events:    events,
		urlExpiry: urlExpiry,
	}
}

// Attach validates the file against its declared type, stores the blob,
// then records the registry row. The blob goes first so a failed insert
// leaves at worst an orphaned blob, never a row without content.
func (s *fileService) Attach(ctx context.Context, modelID, userID uuid.UUID, fileType, fileName string, reader io.Reader, size int64) (*domain.ModelFile, error) {
	model, err := s.modelRepo.GetByID(ctx, modelID, userID)
	if err != nil {
		return nil, err
	}

	ft, ok := domain.ParseFileType(fileType)
	if !ok {
		return nil, ErrInvalidFileType
	}
	if !ft.AllowsFile(fileName) {
		return nil, ErrFileNotAllowed
	}

	storagePath, err := s.blobs.Store(ctx, ft, fileName, reader, size)
	if err != nil {
		logger.Log.Error("Failed to store blob",
			zap.String("model_id", modelID.String()), zap.Error(err))
		return nil, err
	}

	file := &domain.ModelFile{
		ModelID:     modelID,
		UserID:      userID,
		FileType:    ft,
		FileName:    fileName,
		StoragePath: storagePath,
		FileSize:    size,
	}
	if err := s.fileRepo.Create(ctx, file); err != nil {
		// Roll the blob back so storage does not accumulate unreferenced objects.
		if delErr := s.blobs.Delete(ctx, storagePath); delErr != nil {
			logger.Log.Warn("Failed to clean up blob after insert failure",
				zap.String("storage_path", storagePath), zap.Error(delErr))
		}
		return nil, err
	}

	logger.Log.Info("File attached",
		zap.String("file_id", file.ID.String()),
		zap.String("model_id", modelID.String()),
		zap.String("file_type", string(ft)))
	s.events.Broadcast(domain.Event{
		Type:    domain.EventFileAttached,
		ModelID: modelID.String(),
		UserID:  userID.String(),
		Message: "file " + fileName + " attached to model " + model.Name,
	})
	return file, nil
}

// Detach removes the registry row first, then the blob. A blob delete
// failure is logged and swallowed; the row is already gone.
func (s *fileService) Detach(ctx context.Context, fileID, userID uuid.UUID) error {
	file, err := s.fileRepo.GetByID(ctx, fileID, userID)
	if err != nil {
		return err
	}
	if err := s.fileRepo.Delete(ctx, fileID, userID); err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, file.StoragePath); err != nil {
		logger.Log.Warn("Failed to delete blob for detached file",
			zap.String("storage_path", file.StoragePath), zap.Error(err))
	}

	logger.Log.Info("File detached",
		zap.String("file_id", fileID.String()),
		zap.String("model_id", file.ModelID.String()))
	s.events.Broadcast(domain.Event{
		Type:    domain.EventFileDetached,
		ModelID: file.ModelID.String(),
		UserID:  userID.String(),
		Message: "file " + file.FileName + " detached",
	})
	return nil
}

func (s *fileService) ListByModel(ctx context.Context, modelID, userID uuid.UUID) ([]domain.ModelFile, error) {
	if _, err := s.modelRepo.GetByID(ctx, modelID, userID); err != nil {
		return nil, err
	}
	return s.fileRepo.ListByModel(ctx, modelID)
}

func (s *fileService) DownloadURL(ctx context.Context, fileID, userID uuid.UUID) (string, error) {
	file, err := s.fileRepo.GetByID(ctx, fileID, userID)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignedGetURL(ctx, file.StoragePath, s.urlExpiry)
}
