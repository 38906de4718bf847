package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProviderRepository struct {
	mock.Mock
}

func (m *MockProviderRepository) List(ctx context.Context) ([]domain.Provider, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Provider), args.Error(1)
}

func (m *MockProviderRepository) GetByID(ctx context.Context, id int64) (*domain.Provider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Provider), args.Error(1)
}

func (m *MockProviderRepository) Upsert(ctx context.Context, p *domain.Provider) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetProviders(ctx context.Context) ([]domain.Provider, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Provider), args.Error(1)
}

func (m *MockCache) SetProviders(ctx context.Context, providers []domain.Provider) error {
	args := m.Called(ctx, providers)
	return args.Error(0)
}

func (m *MockCache) InvalidateProviders(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestProviderService_List_CacheMiss(t *testing.T) {
	mockRepo := &MockProviderRepository{}
	mockCache := &MockCache{}
	service := NewProviderService(mockRepo, mockCache, nil)
	ctx := context.Background()

	providers := []domain.Provider{{ID: 1, Name: "Reza", ExternalID: 10}}
	mockCache.On("GetProviders", ctx).Return(nil, nil)
	mockRepo.On("List", ctx).Return(providers, nil)
	mockCache.On("SetProviders", ctx, providers).Return(nil)

	got, err := service.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, providers, got)

	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestProviderService_List_CacheHit(t *testing.T) {
	mockRepo := &MockProviderRepository{}
	mockCache := &MockCache{}
	service := NewProviderService(mockRepo, mockCache, nil)
	ctx := context.Background()

	providers := []domain.Provider{{ID: 2, Name: "Hamid"}}
	mockCache.On("GetProviders", ctx).Return(providers, nil)

	got, err := service.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, providers, got)
	mockRepo.AssertNotCalled(t, "List", mock.Anything)
}

func TestProviderService_List_CacheErrorFallsBack(t *testing.T) {
	mockRepo := &MockProviderRepository{}
	mockCache := &MockCache{}
	service := NewProviderService(mockRepo, mockCache, nil)
	ctx := context.Background()

	mockCache.On("GetProviders", ctx).Return(nil, errors.New("redis down"))
	mockRepo.On("List", ctx).Return([]domain.Provider{}, nil)

	got, err := service.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	mockCache.AssertNotCalled(t, "SetProviders", mock.Anything, mock.Anything)
}

func TestProviderService_NoCache(t *testing.T) {
	mockRepo := &MockProviderRepository{}
	service := NewProviderService(mockRepo, nil, nil)
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, int64(5)).Return(nil, domain.ErrNotFound)
	_, err := service.GetByID(ctx, 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	service.Invalidate(ctx)
}

func TestProviderService_Invalidate(t *testing.T) {
	mockCache := &MockCache{}
	service := NewProviderService(&MockProviderRepository{}, mockCache, nil)
	ctx := context.Background()

	mockCache.On("InvalidateProviders", ctx).Return(nil)
	service.Invalidate(ctx)
	mockCache.AssertExpectations(t)
}
