package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelfactory/portal/internal/domain"
	"github.com/modelfactory/portal/internal/repository"
	"github.com/modelfactory/portal/pkg/logger"
)

// EventPublisher delivers lifecycle events to subscribers. Services
// publish only after the database commit has succeeded.
type EventPublisher interface {
	Broadcast(event domain.Event)
}

// FactoryService manages factories and the algorithms inside them
type FactoryService interface {
	CreateFactory(ctx context.Context, userID uuid.UUID, req *domain.FactoryCreateRequest) (*domain.Factory, error)
	GetFactory(ctx context.Context, id, userID uuid.UUID) (*domain.Factory, error)
	ListFactories(ctx context.Context, userID uuid.UUID) ([]domain.Factory, error)
	DeleteFactory(ctx context.Context, id, userID uuid.UUID) error

	CreateAlgorithm(ctx context.Context, factoryID, userID uuid.UUID, req *domain.AlgorithmCreateRequest) (*domain.Algorithm, error)
	GetAlgorithm(ctx context.Context, id, userID uuid.UUID) (*domain.Algorithm, error)
	ListAlgorithms(ctx context.Context, factoryID, userID uuid.UUID) ([]domain.Algorithm, error)
	DeleteAlgorithm(ctx context.Context, id, userID uuid.UUID) error

	DashboardStats(ctx context.Context, userID uuid.UUID) (*domain.DashboardStats, error)
}

type factoryService struct {
	factoryRepo   repository.FactoryRepository
	algorithmRepo repository.AlgorithmRepository
	modelRepo     repository.ModelRepository
	events        EventPublisher
}

func NewFactoryService(
	factoryRepo repository.FactoryRepository,
	algorithmRepo repository.AlgorithmRepository,
	modelRepo repository.ModelRepository,
	events EventPublisher,
) FactoryService {
	return &factoryService{
		factoryRepo:   factoryRepo,
		algorithmRepo: algorithmRepo,
		modelRepo:     modelRepo,
		events:        events,
	}
}

func (s *factoryService) CreateFactory(ctx context.Context, userID uuid.UUID, req *domain.FactoryCreateRequest) (*domain.Factory, error) {
	factory := &domain.Factory{
		Name:        req.Name,
		Description: req.Description,
		UserID:      userID,
	}
	if err := s.factoryRepo.Create(ctx, factory); err != nil {
		return nil, err
	}

	logger.Log.Info("Factory created",
		zap.String("factory_id", factory.ID.String()),
		zap.String("user_id", userID.String()))
	s.events.Broadcast(domain.Event{
		Type:    domain.EventFactoryCreated,
		UserID:  userID.String(),
		Message: "factory " + factory.Name + " created",
	})
	return factory, nil
}

func (s *factoryService) GetFactory(ctx context.Context, id, userID uuid.UUID) (*domain.Factory, error) {
	return s.factoryRepo.GetByID(ctx, id, userID)
}

func (s *factoryService) ListFactories(ctx context.Context, userID uuid.UUID) ([]domain.Factory, error) {
	return s.factoryRepo.ListByUser(ctx, userID)
}

func (s *factoryService) DeleteFactory(ctx context.Context, id, userID uuid.UUID) error {
	factory, err := s.factoryRepo.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.factoryRepo.Delete(ctx, id, userID); err != nil {
		return err
	}

	logger.Log.Info("Factory deleted",
		zap.String("factory_id", id.String()),
		zap.String("user_id", userID.String()))
	s.events.Broadcast(domain.Event{
		Type:    domain.EventFactoryDeleted,
		UserID:  userID.String(),
		Message: "factory " + factory.Name + " deleted",
	})
	return nil
}

func (s *factoryService) CreateAlgorithm(ctx context.Context, factoryID, userID uuid.UUID, req *domain.AlgorithmCreateRequest) (*domain.Algorithm, error) {
	// The parent factory must exist and belong to the caller.
	if _, err := s.factoryRepo.GetByID(ctx, factoryID, userID); err != nil {
		return nil, err
	}

	algorithm := &domain.Algorithm{
		Name:        req.Name,
		Description: req.Description,
		FactoryID:   factoryID,
		UserID:      userID,
	}
	if err := s.algorithmRepo.Create(ctx, algorithm); err != nil {
		return nil, err
	}

	logger.Log.Info("Algorithm created",
		zap.String("algorithm_id", algorithm.ID.String()),
		zap.String("factory_id", factoryID.String()))
	s.events.Broadcast(domain.Event{
		Type:    domain.EventAlgorithmCreated,
		UserID:  userID.String(),
		Message: "algorithm " + algorithm.Name + " created",
	})
	return algorithm, nil
}

func (s *factoryService) GetAlgorithm(ctx context.Context, id, userID uuid.UUID) (*domain.Algorithm, error) {
	return s.algorithmRepo.GetByID(ctx, id, userID)
}

func (s *factoryService) ListAlgorithms(ctx context.Context, factoryID, userID uuid.UUID) ([]domain.Algorithm, error) {
	if _, err := s.factoryRepo.GetByID(ctx, factoryID, userID); err != nil {
		return nil, err
	}
	return s.algorithmRepo.ListByFactory(ctx, factoryID, userID)
}

func (s *factoryService) DeleteAlgorithm(ctx context.Context, id, userID uuid.UUID) error {
	algorithm, err := s.algorithmRepo.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.algorithmRepo.Delete(ctx, id, userID); err != nil {
		return err
	}

	logger.Log.Info("Algorithm deleted",
		zap.String("algorithm_id", id.String()),
		zap.String("user_id", userID.String()))
	s.events.Broadcast(domain.Event{
		Type:    domain.EventAlgorithmDeleted,
		UserID:  userID.String(),
		Message: "algorithm " + algorithm.Name + " deleted",
	})
	return nil
}

func (s *factoryService) DashboardStats(ctx context.Context, userID uuid.UUID) (*domain.DashboardStats, error) {
	factories, err := s.factoryRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	algorithms, err := s.algorithmRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	models, err := s.modelRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.DashboardStats{
		Factories:  factories,
		Algorithms: algorithms,
		Models:     models,
	}, nil
}
