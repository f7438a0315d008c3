package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelfactory/portal/internal/domain"
	"github.com/modelfactory/portal/internal/repository"
)

func TestCreateModelWritesFirstVersion(t *testing.T) {
	env := newTestEnv(t)
	model := env.newModel(t)

	assert.Equal(t, 1, model.LatestVersionNumber)
	assert.Equal(t, domain.StageDevelopment, model.LatestStage)
	assert.Equal(t, int64(1), model.ActiveVersionCount)
	assert.True(t, model.CanPromote)
	assert.False(t, model.CanRollback)

	ledger := env.ledger(t, model.ID)
	require.Len(t, ledger, 1)
	assert.Equal(t, "initial", ledger[0].Notes)
	assert.Equal(t, "v0,baseline", ledger[0].Tags)
}

func TestPromoteWalksStages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	model := env.newModel(t)

	staged, err := env.lifecycle.Promote(ctx, model.ID, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, staged.LatestVersionNumber)
	assert.Equal(t, domain.StageStaging, staged.LatestStage)

	prod, err := env.lifecycle.Promote(ctx, model.ID, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, prod.LatestVersionNumber)
	assert.Equal(t, domain.StageProduction, prod.LatestStage)
	assert.False(t, prod.CanPromote)

	// Notes and tags carry forward through promotion.
	ledger := env.ledger(t, model.ID)
	require.Len(t, ledger, 3)
	for _, v := range ledger {
		assert.Equal(t, "initial", v.Notes)
		assert.Equal(t, "v0,baseline", v.Tags)
	}
}

func TestPromoteProductionIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	model := env.newModel(t)

	_, err := env.lifecycle.Promote(ctx, model.ID, env.user.ID)
	require.NoError(t, err)
	_, err = env.lifecycle.Promote(ctx, model.ID, env.user.ID)
	require.NoError(t, err)

	before := env.ledger(t, model.ID)

	_, err = env.lifecycle.Promote(ctx, model.ID, env.user.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// A rejected transition leaves the ledger untouched.
	after := env.ledger(t, model.ID)
	require.Equal(t, len(before), len(after))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Stage, after[i].Stage)
	}
}

func TestRollbackRestoresPreviousActiveVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	model := env.newModel(t)

	// v1 development, v2 staging, v3 production.
	_, err := env.lifecycle.Promote(ctx, model.ID, env.user.ID)
	require.NoError(t, err)
	_, err = env.lifecycle.Promote(ctx, model.ID, env.user.ID)
	require.NoError(t, err)

	rolled, err := env.lifecycle.Rollback(ctx, model.ID, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, rolled.LatestVersionNumber)
	assert.Equal(t, domain.StageStaging, rolled.LatestStage)

	ledger := env.ledger(t, model.ID)
	require.Len(t, ledger, 4)
	assert.Equal(t, domain.StageDevelopment, ledger[0].Stage)
	assert.Equal(t, domain.StageStaging, ledger[1].Stage)
	// The displaced production version is archived in place.
	assert.Equal(t, domain.StageArchived, ledger[2].Stage)
	assert.Equal(t, domain.StageStaging, ledger[3].Stage)
}

func TestRollbackKeepsSingleProduction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	model := env.newModel(t)

	// Reach production twice so the restored stage is production itself.
	for i := 0; i < 2; i++ {
		_, err := env.lifecycle.Promote(ctx, model.ID, env.user.ID)
		require.NoError(t, err)
	}
	// v3 is production; promote the rolled-back staging copy to production again.
	_, err := env.lifecycle.Rollback(ctx, model.ID, env.user.ID) // v4 staging, v3 archived
	require.NoError(t, err)
	_, err = env.lifecycle.Promote(ctx, model.ID, env.user.ID) // v5 production
	require.NoError(t, err)

	var produced int64
	require.NoError(t, env.db.Model(&domain.ModelVersion{}).
		Where("model_id = ? AND stage = ?", model.ID, domain.StageProduction).
		Count(&produced).Error)
	assert.Equal(t, int64(1), produced)
}

func TestRollbackNeedsTwoActiveVersions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	model := env.newModel(t)

	_, err := env.lifecycle.Rollback(ctx, model.ID, env.user.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	ledger := env.ledger(t, model.ID)
	assert.Len(t, ledger, 1)
}

func TestArchiveAppendsArchivedHead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	model := env.newModel(t)

	archived, err := env.lifecycle.Archive(ctx, model.ID, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, archived.LatestVersionNumber)
	assert.Equal(t, domain.StageArchived, archived.LatestStage)
	assert.False(t, archived.CanPromote)

	// Archiving an archived model is rejected.
	_, err = env.lifecycle.Archive(ctx, model.ID, env.user.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConcurrentPromotesStaySerialized(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	model := env.newModel(t)

	// Only two promotions can ever succeed from development.
	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.lifecycle.Promote(ctx, model.ID, env.user.ID)
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, ErrInvalidTransition):
			rejected++
		}
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, attempts-2, rejected)

	// Version numbers stay gapless under contention.
	ledger := env.ledger(t, model.ID)
	require.Len(t, ledger, 3)
	for i, v := range ledger {
		assert.Equal(t, i+1, v.VersionNumber)
	}

	var produced int64
	require.NoError(t, env.db.Model(&domain.ModelVersion{}).
		Where("model_id = ? AND stage = ?", model.ID, domain.StageProduction).
		Count(&produced).Error)
	assert.Equal(t, int64(1), produced)
}

func TestLifecycleHidesForeignModels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	model := env.newModel(t)

	_, err := env.lifecycle.GetModel(ctx, model.ID, env.stranger.ID)
	assert.ErrorIs(t, err, repository.ErrModelNotFound)
	_, err = env.lifecycle.Promote(ctx, model.ID, env.stranger.ID)
	assert.ErrorIs(t, err, repository.ErrModelNotFound)
	err = env.lifecycle.DeleteModel(ctx, model.ID, env.stranger.ID)
	assert.ErrorIs(t, err, repository.ErrModelNotFound)
}

func TestDeleteModelRemovesLedgerAndBlobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	model := env.newModel(t)

	file := attachFile(t, env, model.ID, "dataset", "train.csv")

	require.NoError(t, env.lifecycle.DeleteModel(ctx, model.ID, env.user.ID))

	var versions, files int64
	require.NoError(t, env.db.Model(&domain.ModelVersion{}).Where("model_id = ?", model.ID).Count(&versions).Error)
	require.NoError(t, env.db.Model(&domain.ModelFile{}).Where("model_id = ?", model.ID).Count(&files).Error)
	assert.Zero(t, versions)
	assert.Zero(t, files)
	assert.Contains(t, env.blobs.deleted, file.StoragePath)

	_, err := env.lifecycle.GetModel(ctx, model.ID, env.user.ID)
	assert.ErrorIs(t, err, repository.ErrModelNotFound)
}

func TestLifecycleEventsPublished(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	model := env.newModel(t)

	_, err := env.lifecycle.Promote(ctx, model.ID, env.user.ID)
	require.NoError(t, err)
	_, err = env.lifecycle.Promote(ctx, model.ID, env.user.ID)
	require.NoError(t, err)
	_, err = env.lifecycle.Rollback(ctx, model.ID, env.user.ID)
	require.NoError(t, err)
	_, err = env.lifecycle.Archive(ctx, model.ID, env.user.ID)
	require.NoError(t, err)

	types := env.events.types()
	assert.Contains(t, types, domain.EventModelCreated)
	assert.Contains(t, types, domain.EventModelPromoted)
	assert.Contains(t, types, domain.EventModelRolledBack)
	assert.Contains(t, types, domain.EventModelArchived)

	// A failed transition publishes nothing.
	before := len(env.events.types())
	_, err = env.lifecycle.Archive(ctx, model.ID, env.user.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, before, len(env.events.types()))
}

// relockPublisher tries to take the model lock from inside Broadcast.
// Acquisition succeeds only when the service has already released the
// lock before publishing.
type relockPublisher struct {
	locks   *modelLocks
	modelID uuid.UUID

	mu       sync.Mutex
	total    int
	lockFree int
}

func (p *relockPublisher) Broadcast(event domain.Event) {
	acquired := make(chan struct{})
	go func() {
		unlock := p.locks.Lock(p.modelID)
		unlock()
		close(acquired)
	}()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.total++
	select {
	case <-acquired:
		p.lockFree++
	case <-time.After(time.Second):
	}
}

func TestEventsBroadcastOutsideModelLock(t *testing.T) {
	env := newTestEnv(t)
	model := env.newModel(t)
	ctx := context.Background()

	svc := env.lifecycle.(*lifecycleService)
	pub := &relockPublisher{locks: svc.locks, modelID: model.ID}
	svc.events = pub

	_, err := env.lifecycle.Promote(ctx, model.ID, env.user.ID)
	require.NoError(t, err)
	_, err = env.lifecycle.Rollback(ctx, model.ID, env.user.ID)
	require.NoError(t, err)
	_, err = env.lifecycle.Archive(ctx, model.ID, env.user.ID)
	require.NoError(t, err)
	require.NoError(t, env.lifecycle.DeleteModel(ctx, model.ID, env.user.ID))

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, 4, pub.total)
	assert.Equal(t, pub.total, pub.lockFree, "observers must never wait on the ledger lock")
}
