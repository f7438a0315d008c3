package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelfactory/portal/internal/domain"
	"github.com/modelfactory/portal/internal/repository"
)

func TestFactoryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	factory, err := env.factories.CreateFactory(ctx, env.user.ID, &domain.FactoryCreateRequest{
		Name:        "vision",
		Description: "vision models",
	})
	require.NoError(t, err)

	got, err := env.factories.GetFactory(ctx, factory.ID, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "vision", got.Name)

	list, err := env.factories.ListFactories(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// The stranger sees an empty world.
	list, err = env.factories.ListFactories(ctx, env.stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, env.factories.DeleteFactory(ctx, factory.ID, env.user.ID))
	_, err = env.factories.GetFactory(ctx, factory.ID, env.user.ID)
	assert.ErrorIs(t, err, repository.ErrFactoryNotFound)
}

func TestCreateAlgorithmRequiresOwnedFactory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	factory, err := env.factories.CreateFactory(ctx, env.user.ID, &domain.FactoryCreateRequest{Name: "nlp"})
	require.NoError(t, err)

	_, err = env.factories.CreateAlgorithm(ctx, factory.ID, env.stranger.ID, &domain.AlgorithmCreateRequest{Name: "bert"})
	assert.ErrorIs(t, err, repository.ErrFactoryNotFound)

	algorithm, err := env.factories.CreateAlgorithm(ctx, factory.ID, env.user.ID, &domain.AlgorithmCreateRequest{Name: "bert"})
	require.NoError(t, err)
	assert.Equal(t, factory.ID, algorithm.FactoryID)

	algorithms, err := env.factories.ListAlgorithms(ctx, factory.ID, env.user.ID)
	require.NoError(t, err)
	assert.Len(t, algorithms, 1)
}

func TestDashboardStatsCountsPerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.newModel(t)

	stats, err := env.factories.DashboardStats(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Factories)
	assert.Equal(t, int64(1), stats.Algorithms)
	assert.Equal(t, int64(1), stats.Models)

	stats, err = env.factories.DashboardStats(ctx, env.stranger.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.Factories)
	assert.Zero(t, stats.Algorithms)
	assert.Zero(t, stats.Models)
}
