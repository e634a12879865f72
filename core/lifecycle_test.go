package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = Actor{Name: "Alice", Email: "alice@example.com"}
var bob = Actor{Name: "Bob", Email: "bob@example.com"}

// createDraft is the common test fixture: a draft by alice with bob as owner.
func createDraft(t *testing.T, db *CoreDB) *Standard {
	t.Helper()

	std, err := db.CreateStandard("Hosting", "How we host services", alice)
	require.NoError(t, err)

	owner, err := db.UpsertPerson(bob.Name, bob.Email)
	require.NoError(t, err)
	require.NoError(t, db.AppendLink(std.ID, "owners", owner.ID))

	std, err = db.GetStandard(std.ID)
	require.NoError(t, err)
	return std
}

func TestCreateStandard(t *testing.T) {
	db, _, _ := newTestDB()

	std, err := db.CreateStandard("Hosting", "How we host services", alice)
	require.NoError(t, err)

	assert.Equal(t, 0, std.Number, "numbering starts at 0")
	assert.Equal(t, StageDraft, std.Stage)
	assert.Equal(t, alice.Email, std.Creator)
	assert.Equal(t, "hosting", std.Slug)
	assert.InDelta(t, 0.1, std.Version, 0.001)
	assert.False(t, std.Published)

	history, err := db.History(std.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ActionDraftCreated, history[0].Action)
	assert.Equal(t, "Alice", history[0].ActionBy)
}

func TestCreateStandardValidation(t *testing.T) {
	db, _, _ := newTestDB()

	_, err := db.CreateStandard("", "summary", alice)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)

	_, err = db.CreateStandard("title", "", alice)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "summary", verr.Field)
}

func TestNumbering(t *testing.T) {
	db, _, _ := newTestDB()

	first, err := db.CreateStandard("One", "s", alice)
	require.NoError(t, err)
	second, err := db.CreateStandard("Two", "s", alice)
	require.NoError(t, err)

	assert.Equal(t, 0, first.Number)
	assert.Equal(t, 1, second.Number)
}

func TestSubmit(t *testing.T) {
	db, _, rec := newTestDB()
	std := createDraft(t, db)

	require.NoError(t, db.Submit(std.ID, alice))

	std, err := db.GetStandard(std.ID)
	require.NoError(t, err)
	assert.Equal(t, StageSubmitted, std.Stage)
	assert.Equal(t, alice.Email, std.DraftCreatedBy)
	assert.False(t, std.DraftCreatedAt.IsZero())

	assert.ElementsMatch(t, []string{alice.Email, bob.Email}, rec.templates(testTemplates.Submitted))

	history, err := db.History(std.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionDraftSubmitted, history[0].Action)
}

func TestSubmitRequiresOwner(t *testing.T) {
	db, _, _ := newTestDB()

	std, err := db.CreateStandard("Hosting", "s", alice)
	require.NoError(t, err)

	err = db.Submit(std.ID, alice)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "owners", verr.Field)

	// state unchanged
	std, err = db.GetStandard(std.ID)
	require.NoError(t, err)
	assert.Equal(t, StageDraft, std.Stage)
}

func TestSubmitWrongStage(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)

	require.NoError(t, db.Submit(std.ID, alice))

	err := db.Submit(std.ID, alice)
	var terr TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, StageSubmitted, terr.From)
}

func TestApprove(t *testing.T) {
	db, _, rec := newTestDB()
	std := createDraft(t, db)
	require.NoError(t, db.Submit(std.ID, alice))

	require.NoError(t, db.Approve(std.ID, bob))

	std, err := db.GetStandard(std.ID)
	require.NoError(t, err)
	assert.Equal(t, StageApproved, std.Stage)

	// creator and owner both hear about it
	recipients := rec.templates(testTemplates.Approved)
	assert.ElementsMatch(t, []string{alice.Email, bob.Email}, recipients)
}

func TestApproveWrongStage(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)

	err := db.Approve(std.ID, bob)
	var terr TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, StageDraft, terr.From)
}

func TestReject(t *testing.T) {
	db, _, rec := newTestDB()
	std := createDraft(t, db)
	require.NoError(t, db.Submit(std.ID, alice))

	require.NoError(t, db.Reject(std.ID, bob, "guidance section is too thin"))

	std, err := db.GetStandard(std.ID)
	require.NoError(t, err)
	assert.Equal(t, StageRejected, std.Stage)

	rejection, err := db.LatestRejection(std.ID)
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, "guidance section is too thin", rejection.Comments)
	assert.Equal(t, "Bob", rejection.ActionBy)

	require.Len(t, rec.templates(testTemplates.Rejected), 2)
}

func TestRejectRequiresReason(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)
	require.NoError(t, db.Submit(std.ID, alice))

	err := db.Reject(std.ID, bob, "")
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "reason", verr.Field)

	std, err = db.GetStandard(std.ID)
	require.NoError(t, err)
	assert.Equal(t, StageSubmitted, std.Stage)
}

func TestPublish(t *testing.T) {
	db, _, rec := newTestDB()
	std := createDraft(t, db)
	require.NoError(t, db.Submit(std.ID, alice))
	require.NoError(t, db.Approve(std.ID, bob))

	require.NoError(t, db.Publish(std.ID, bob))

	std, err := db.GetStandard(std.ID)
	require.NoError(t, err)
	assert.Equal(t, StagePublished, std.Stage)
	assert.True(t, std.Published)
	assert.InDelta(t, 1.0, std.Version, 0.001)
	assert.InDelta(t, 0.1, std.PreviousVersion, 0.001, "the draft version moves to previousVersion")

	require.Len(t, rec.templates(testTemplates.Published), 2)
}

func TestRepublishBumpsVersion(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)

	cycle := func() {
		require.NoError(t, db.Submit(std.ID, alice))
		require.NoError(t, db.Approve(std.ID, bob))
		require.NoError(t, db.Publish(std.ID, bob))
	}

	cycle()
	require.NoError(t, db.RevertToDraft(std.ID, alice))
	cycle()

	std, err := db.GetStandard(std.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.1, std.Version, 0.001)
	assert.InDelta(t, 1.0, std.PreviousVersion, 0.001)
}

func TestPublishWrongStage(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)
	require.NoError(t, db.Submit(std.ID, alice))

	err := db.Publish(std.ID, bob)
	var terr TransitionError
	require.ErrorAs(t, err, &terr)
}

func TestRevertToDraft(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)
	require.NoError(t, db.Submit(std.ID, alice))
	require.NoError(t, db.Approve(std.ID, bob))
	require.NoError(t, db.Publish(std.ID, bob))

	require.NoError(t, db.RevertToDraft(std.ID, alice))

	std, err := db.GetStandard(std.ID)
	require.NoError(t, err)
	assert.Equal(t, StageDraft, std.Stage)
	assert.False(t, std.Published, "reverting a published standard takes it off the site")
	assert.InDelta(t, 1.0, std.Version, 0.001, "version survives the revert")
}

func TestRevertFromSubmittedRefused(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)
	require.NoError(t, db.Submit(std.ID, alice))

	err := db.RevertToDraft(std.ID, alice)
	var terr TransitionError
	require.ErrorAs(t, err, &terr)
}

func TestSoftDelete(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)
	require.NoError(t, db.Submit(std.ID, alice))
	require.NoError(t, db.Approve(std.ID, bob))
	require.NoError(t, db.Publish(std.ID, bob))

	require.NoError(t, db.SoftDelete(std.ID, alice))

	std, err := db.GetStandard(std.ID)
	require.NoError(t, err, "the record survives a soft delete")
	assert.Equal(t, StageDeleted, std.Stage)
	assert.False(t, std.Published)

	history, err := db.History(std.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionDeleted, history[0].Action)
	assert.Equal(t, "ID: "+std.ID, history[0].Comments)
}

func TestHardDelete(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)

	require.NoError(t, db.HardDelete(std.ID, alice))

	_, err := db.GetStandard(std.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHardDeleteOnlyByCreator(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)

	err := db.HardDelete(std.ID, bob)
	require.Error(t, err)

	_, err = db.GetStandard(std.ID)
	assert.NoError(t, err)
}

func TestHardDeleteOnlyDrafts(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)
	require.NoError(t, db.Submit(std.ID, alice))

	err := db.HardDelete(std.ID, alice)
	var terr TransitionError
	require.ErrorAs(t, err, &terr)
}

func TestPartialWrite(t *testing.T) {
	db, ms, rec := newTestDB()
	std := createDraft(t, db)

	// the stage write succeeds, the history append fails
	ms.failType[TypeStandardHistory] = errors.New("store down")

	err := db.Submit(std.ID, alice)
	var pw *PartialWriteError
	require.ErrorAs(t, err, &pw)
	assert.Equal(t, std.ID, pw.StandardID)

	// the transition itself stands
	std, getErr := db.GetStandard(std.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StageSubmitted, std.Stage)

	// and notifications still went out
	assert.NotEmpty(t, rec.templates(testTemplates.Submitted))
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	db, ms, _ := newTestDB()
	std := createDraft(t, db)

	ms.conflict[std.ID] = 2

	_, err := db.UpdateEntryFields(std.ID, map[string]interface{}{"title": "Hosting v2"})
	require.NoError(t, err)

	std, err = db.GetStandard(std.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hosting v2", std.Title)
}
