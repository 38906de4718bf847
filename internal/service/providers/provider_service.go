package providers

import (
	"context"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/logger"
	"github.com/Domenick1991/barberbooking/internal/repository"
	"go.uber.org/zap"
)

type ProviderUseCase interface {
	List(ctx context.Context) ([]domain.Provider, error)
	GetByID(ctx context.Context, id int64) (*domain.Provider, error)
	Invalidate(ctx context.Context)
}

type Cache interface {
	GetProviders(ctx context.Context) ([]domain.Provider, error)
	SetProviders(ctx context.Context, providers []domain.Provider) error
	InvalidateProviders(ctx context.Context) error
}

type ProviderService struct {
	repo  repository.ProviderRepository
	cache Cache
	log   *zap.Logger
}

// NewProviderService wires the directory. cache may be nil.
func NewProviderService(repo repository.ProviderRepository, cache Cache, log *zap.Logger) *ProviderService {
	return &ProviderService{repo: repo, cache: cache, log: logger.OrNop(log)}
}

func (s *ProviderService) List(ctx context.Context) ([]domain.Provider, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetProviders(ctx); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			s.log.Warn("provider cache read failed", zap.Error(err))
		}
	}

	providers, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && len(providers) > 0 {
		if err := s.cache.SetProviders(ctx, providers); err != nil {
			s.log.Warn("provider cache write failed", zap.Error(err))
		}
	}
	return providers, nil
}

func (s *ProviderService) GetByID(ctx context.Context, id int64) (*domain.Provider, error) {
	return s.repo.GetByID(ctx, id)
}

// Invalidate drops the cached roster after an import.
func (s *ProviderService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProviders(ctx); err != nil {
		s.log.Warn("provider cache invalidate failed", zap.Error(err))
	}
}

var _ ProviderUseCase = (*ProviderService)(nil)
