package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageNext(t *testing.T) {
	tests := []struct {
		stage Stage
		next  Stage
		ok    bool
	}{
		{StageDevelopment, StageStaging, true},
		{StageStaging, StageProduction, true},
		{StageProduction, "", false},
		{StageArchived, "", false},
		{Stage("bogus"), "", false},
	}

	for _, tt := range tests {
		next, ok := tt.stage.Next()
		assert.Equal(t, tt.ok, ok, "stage %s", tt.stage)
		assert.Equal(t, tt.next, next, "stage %s", tt.stage)
	}
}

func TestStageValid(t *testing.T) {
	for _, s := range []Stage{StageDevelopment, StageStaging, StageProduction, StageArchived} {
		assert.True(t, s.Valid(), "stage %s", s)
	}
	assert.False(t, Stage("").Valid())
	assert.False(t, Stage("live").Valid())
}

func TestCanRollback(t *testing.T) {
	assert.False(t, CanRollback(0))
	assert.False(t, CanRollback(1))
	assert.True(t, CanRollback(2))
	assert.True(t, CanRollback(5))
}

func TestNewDerivedState(t *testing.T) {
	t.Run("development head", func(t *testing.T) {
		latest := &ModelVersion{VersionNumber: 1, Stage: StageDevelopment}
		state := NewDerivedState(latest, 1)

		assert.Equal(t, 1, state.LatestVersionNumber)
		assert.Equal(t, StageDevelopment, state.LatestStage)
		assert.Equal(t, int64(1), state.ActiveVersionCount)
		assert.True(t, state.CanPromote)
		assert.False(t, state.CanRollback)
	})

	t.Run("production head cannot promote", func(t *testing.T) {
		latest := &ModelVersion{VersionNumber: 3, Stage: StageProduction}
		state := NewDerivedState(latest, 3)

		assert.False(t, state.CanPromote)
		assert.True(t, state.CanRollback)
	})

	t.Run("archived head", func(t *testing.T) {
		latest := &ModelVersion{VersionNumber: 4, Stage: StageArchived}
		state := NewDerivedState(latest, 2)

		assert.False(t, state.CanPromote)
		assert.True(t, state.CanRollback)
	})

	t.Run("no versions", func(t *testing.T) {
		state := NewDerivedState(nil, 0)

		assert.Zero(t, state.LatestVersionNumber)
		assert.Empty(t, state.LatestStage)
		assert.False(t, state.CanPromote)
		assert.False(t, state.CanRollback)
	})
}
