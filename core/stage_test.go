package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStage(t *testing.T) {
	db, _, _ := newTestDB()

	id, err := db.Stages.ResolveStage(StageDraft)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	code, err := db.Stages.CodeOf(id)
	require.NoError(t, err)
	assert.Equal(t, StageDraft, code)
}

func TestResolveStageCached(t *testing.T) {
	db, ms, _ := newTestDB()

	id, err := db.Stages.ResolveStage(StagePublished)
	require.NoError(t, err)

	// even with the backing record gone, the cache answers
	require.NoError(t, ms.DeleteEntry(id))

	again, err := db.Stages.ResolveStage(StagePublished)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestResolveStageMissing(t *testing.T) {
	ms := newMemStore() // no stage records seeded
	registry := NewStageRegistry(ms)

	_, err := registry.ResolveStage(StageDraft)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStageTitles(t *testing.T) {
	assert.Equal(t, "Draft", StageDraft.Title())
	assert.Equal(t, "Approval", StageSubmitted.Title())
	assert.Equal(t, "Approved", StageApproved.Title())
	assert.Equal(t, "Rejected", StageRejected.Title())
	assert.Equal(t, "Published", StagePublished.Title())
	assert.Equal(t, "Deleted", StageDeleted.Title())
}

func TestCountByStage(t *testing.T) {
	counts := CountByStage([]*Standard{
		{Stage: StageDraft},
		{Stage: StageDraft},
		{Stage: StageSubmitted},
	})
	assert.Equal(t, 2, counts["Draft"])
	assert.Equal(t, 1, counts["Approval"])
}
