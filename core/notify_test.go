package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipients(t *testing.T) {
	db, _, _ := newTestDB()
	std := createDraft(t, db)

	carol, err := db.UpsertPerson("Carol", "carol@example.com")
	require.NoError(t, err)
	require.NoError(t, db.AppendLink(std.ID, "technicalContacts", carol.ID))

	std, err = db.GetStandard(std.ID)
	require.NoError(t, err)

	r := db.recipients(std)
	assert.Equal(t, []string{alice.Email, bob.Email}, r.Primary)
	assert.Equal(t, []string{carol.Email}, r.Awareness)
}

func TestRecipientsDedupe(t *testing.T) {
	db, _, _ := newTestDB()

	std, err := db.CreateStandard("Hosting", "s", alice)
	require.NoError(t, err)

	// the creator is also an owner and a technical contact
	self, err := db.UpsertPerson(alice.Name, alice.Email)
	require.NoError(t, err)
	require.NoError(t, db.AppendLink(std.ID, "owners", self.ID))
	require.NoError(t, db.AppendLink(std.ID, "technicalContacts", self.ID))

	std, err = db.GetStandard(std.ID)
	require.NoError(t, err)

	r := db.recipients(std)
	assert.Equal(t, []string{alice.Email}, r.Primary)
	assert.Empty(t, r.Awareness, "a primary recipient is never also an awareness recipient")
}

func TestRecipientsSkipBrokenPerson(t *testing.T) {
	db, ms, _ := newTestDB()
	std := createDraft(t, db)

	// dangling link
	require.NoError(t, db.AppendLink(std.ID, "owners", "entry-gone"))
	_ = ms

	std, err := db.GetStandard(std.ID)
	require.NoError(t, err)

	r := db.recipients(std)
	assert.Equal(t, []string{alice.Email, bob.Email}, r.Primary)
}

func TestDispatchFailuresDoNotPropagate(t *testing.T) {
	db, _, rec := newTestDB()
	std := createDraft(t, db)

	rec.fail = errors.New("service down")

	// the transition must succeed even though every Send fails
	require.NoError(t, db.Submit(std.ID, alice))

	got, err := db.GetStandard(std.ID)
	require.NoError(t, err)
	assert.Equal(t, StageSubmitted, got.Stage)
}

func TestDispatchSkipsEmptyTemplate(t *testing.T) {
	db, _, rec := newTestDB()
	db.Templates.Submitted = ""

	std := createDraft(t, db)
	require.NoError(t, db.Submit(std.ID, alice))

	// no technical contacts, no approvers group, and the primary template is
	// switched off, so nothing goes out
	assert.Empty(t, rec.sends)
}
