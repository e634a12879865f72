package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryNewestFirst(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)
	require.NoError(t, db.Submit(std.ID, alice))
	require.NoError(t, db.Reject(std.ID, bob, "too vague"))

	history, err := db.History(std.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, ActionRejected, history[0].Action)
	assert.Equal(t, ActionDraftSubmitted, history[1].Action)
	assert.Equal(t, ActionDraftCreated, history[2].Action)
}

func TestTimelineFreshDraft(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)

	tl, err := db.Timeline(std.ID)
	require.NoError(t, err)

	assert.Equal(t, "Draft", tl.Slots[0].Status)
	assert.Equal(t, "Approval", tl.Slots[1].Status)
	assert.Equal(t, "Outcome", tl.Slots[2].Status)
	assert.Equal(t, "Published", tl.Slots[3].Status)

	assert.Equal(t, "Alice", tl.Slots[0].ActionBy)
	assert.Empty(t, tl.Slots[1].ActionBy)
	assert.Equal(t, 0, tl.LastActiveIndex)
}

func TestTimelineFullCycle(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)
	require.NoError(t, db.Submit(std.ID, alice))
	require.NoError(t, db.Approve(std.ID, bob))
	require.NoError(t, db.Publish(std.ID, bob))

	tl, err := db.Timeline(std.ID)
	require.NoError(t, err)

	assert.Equal(t, ActionDraftCreated, tl.Slots[0].Action)
	assert.Equal(t, ActionDraftSubmitted, tl.Slots[1].Action)
	assert.Equal(t, ActionApproved, tl.Slots[2].Action)
	assert.Equal(t, ActionPublished, tl.Slots[3].Action)
	assert.Equal(t, 3, tl.LastActiveIndex)
}

// After a rejection and a resubmission, the outcome slot must show the most
// recent outcome, not the oldest one.
func TestTimelineNewestEventWinsPerSlot(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)

	require.NoError(t, db.Submit(std.ID, alice))
	require.NoError(t, db.Reject(std.ID, bob, "not there yet"))
	require.NoError(t, db.RevertToDraft(std.ID, alice))
	require.NoError(t, db.Submit(std.ID, alice))
	require.NoError(t, db.Approve(std.ID, bob))

	tl, err := db.Timeline(std.ID)
	require.NoError(t, err)

	assert.Equal(t, ActionApproved, tl.Slots[2].Action)
	assert.Equal(t, 2, tl.LastActiveIndex)
}

func TestTimelineEmpty(t *testing.T) {
	db, ms, _ := newTestDB()

	// an entry with no history at all
	entry, err := ms.CreateEntry(TypeStandard, map[string]interface{}{"title": "bare"})
	require.NoError(t, err)

	tl, err := db.Timeline(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, tl.LastActiveIndex)
}

func TestLatestRejectionNone(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)

	rejection, err := db.LatestRejection(std.ID)
	require.NoError(t, err)
	assert.Nil(t, rejection)
}

// A standard can be rejected, reworked and rejected again; the latest reason
// is the one the author must see.
func TestLatestRejectionAcrossCycles(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)

	require.NoError(t, db.Submit(std.ID, alice))
	require.NoError(t, db.Reject(std.ID, bob, "too slow"))
	require.NoError(t, db.RevertToDraft(std.ID, alice))
	require.NoError(t, db.Submit(std.ID, alice))
	require.NoError(t, db.Reject(std.ID, bob, "missing docs"))

	rejection, err := db.LatestRejection(std.ID)
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, "missing docs", rejection.Comments)
}

func TestAppendHistoryKeepsTimestamp(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)

	at := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, db.AppendHistory(std.ID, HistoryEvent{
		Action:   ActionApproved,
		ActionBy: "Bob",
		ActionAt: at,
	}))

	history, err := db.History(std.ID)
	require.NoError(t, err)
	assert.True(t, history[0].ActionAt.Equal(at))
}
