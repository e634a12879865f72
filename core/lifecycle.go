package core

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/standardsmanual/standards/auth"
	"github.com/standardsmanual/standards/util"
)

// An Actor is who performs a lifecycle action, as recorded in the history.
type Actor struct {
	Name  string
	Email string
}

func (a Actor) event(action, comments string) HistoryEvent {
	return HistoryEvent{
		Action:        action,
		ActionBy:      a.Name,
		ActionByEmail: a.Email,
		ActionAt:      time.Now(),
		Comments:      comments,
	}
}

// CreateStandard creates a new draft. The number is one above the current
// maximum. Two drafts created at the same moment can get the same number
// because the store has no transactions; numbers are labels, not keys, so a
// duplicate is an editorial nuisance, not a correctness problem.
func (c *CoreDB) CreateStandard(title, summary string, actor Actor) (*Standard, error) {

	if title == "" {
		return nil, ValidationError{Field: "title", Message: "Enter a title"}
	}
	if summary == "" {
		return nil, ValidationError{Field: "summary", Message: "Enter a summary"}
	}

	draftStageID, err := c.Stages.ResolveStage(StageDraft)
	if err != nil {
		return nil, err
	}

	number, err := c.nextNumber()
	if err != nil {
		return nil, err
	}

	entry, err := c.Store.CreateEntry(TypeStandard, map[string]interface{}{
		"title":   title,
		"summary": summary,
		"number":  number,
		"slug":    util.Slugify(title),
		"version": 0.1, // drafts carry 0.1 until the first publish makes it 1.0
		"stage":   Link{ID: draftStageID},
		"creator": actor.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("creating standard: %w", err)
	}

	std, err := c.decodeStandard(entry)
	if err != nil {
		return nil, err
	}

	if err := c.AppendHistory(std.ID, actor.event(ActionDraftCreated, "")); err != nil {
		return std, &PartialWriteError{StandardID: std.ID, Action: ActionDraftCreated, Err: err}
	}
	return std, nil
}

// nextNumber reads the current maximum and adds one. Numbering starts at 0.
func (c *CoreDB) nextNumber() (int, error) {
	entries, err := c.Store.QueryEntries(Query{
		Type:  TypeStandard,
		Order: "-number",
		Limit: 1,
	})
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	return entries[0].Int("number") + 1, nil
}

// Submit moves a draft into approval. A draft without an owner can't be
// submitted because there would be nobody to act on the outcome.
func (c *CoreDB) Submit(id string, actor Actor) error {

	std, err := c.GetStandard(id)
	if err != nil {
		return err
	}
	if std.Stage != StageDraft {
		return TransitionError{From: std.Stage, Action: "submit"}
	}
	if len(std.Owners) == 0 {
		return ValidationError{Field: "owners", Message: "Add at least one owner before submitting"}
	}

	err = c.transition(std, StageSubmitted, map[string]interface{}{
		"draftCreatedAt": time.Now().UTC().Format(time.RFC3339),
		"draftCreatedBy": actor.Email,
	}, actor.event(ActionDraftSubmitted, ""))
	if err != nil && !isPartialWrite(err) {
		return err
	}

	params := c.standardParams(std)
	recipients := c.recipients(std)
	c.dispatch(c.Templates.Submitted, recipients.Primary, params)
	c.dispatch(c.Templates.SubmittedAwareness, recipients.Awareness, params)
	c.dispatch(c.Templates.SubmittedApprovers, c.approverEmails(), params)
	return err
}

// Approve records the approval outcome. Only approvers reach this; the web
// layer enforces group membership.
func (c *CoreDB) Approve(id string, actor Actor) error {

	std, err := c.GetStandard(id)
	if err != nil {
		return err
	}
	if std.Stage != StageSubmitted {
		return TransitionError{From: std.Stage, Action: "approve"}
	}

	err = c.transition(std, StageApproved, nil, actor.event(ActionApproved, ""))
	if err != nil && !isPartialWrite(err) {
		return err
	}

	recipients := c.recipients(std)
	c.dispatch(c.Templates.Approved, recipients.Primary, c.standardParams(std))
	return err
}

// Reject records the rejection outcome. The reason is mandatory and lands in
// the history, it is what the author sees when revising the draft.
func (c *CoreDB) Reject(id string, actor Actor, reason string) error {

	if reason == "" {
		return ValidationError{Field: "reason", Message: "Enter a reason for the rejection"}
	}

	std, err := c.GetStandard(id)
	if err != nil {
		return err
	}
	if std.Stage != StageSubmitted {
		return TransitionError{From: std.Stage, Action: "reject"}
	}

	err = c.transition(std, StageRejected, nil, actor.event(ActionRejected, reason))
	if err != nil && !isPartialWrite(err) {
		return err
	}

	params := c.standardParams(std)
	params["reason"] = reason
	recipients := c.recipients(std)
	c.dispatch(c.Templates.Rejected, recipients.Primary, params)
	return err
}

// Publish makes an approved standard publicly visible. The first publication
// sets version 1.0; each later one moves the old version to previousVersion
// and raises the version by 0.1.
func (c *CoreDB) Publish(id string, actor Actor) error {

	std, err := c.GetStandard(id)
	if err != nil {
		return err
	}
	if std.Stage != StageApproved {
		return TransitionError{From: std.Stage, Action: "publish"}
	}

	version := 1.0
	if std.Version >= 1.0 {
		version = std.Version + 0.1
	}

	err = c.transition(std, StagePublished, map[string]interface{}{
		"previousVersion": std.Version,
		"version":         version,
	}, actor.event(ActionPublished, ""))
	if err != nil && !isPartialWrite(err) {
		return err
	}

	if pubErr := c.Store.PublishEntry(std.ID); pubErr != nil {
		log.Printf("publishing entry %s: %v", std.ID, pubErr)
	}

	params := c.standardParams(std)
	params["version"] = strconv.FormatFloat(version, 'f', 1, 64)
	recipients := c.recipients(std)
	c.dispatch(c.Templates.Published, recipients.Primary, params)
	c.dispatch(c.Templates.PublishedAwareness, recipients.Awareness, params)
	return err
}

// RevertToDraft reopens a standard for editing. Allowed from Published,
// Approved and Rejected; a published standard is taken off the public site.
func (c *CoreDB) RevertToDraft(id string, actor Actor) error {

	std, err := c.GetStandard(id)
	if err != nil {
		return err
	}
	switch std.Stage {
	case StagePublished, StageApproved, StageRejected:
	default:
		return TransitionError{From: std.Stage, Action: "revert"}
	}

	err = c.transition(std, StageDraft, nil, actor.event(ActionRevertToDraft, ""))
	if err != nil && !isPartialWrite(err) {
		return err
	}

	if std.Stage == StagePublished {
		if unpubErr := c.Store.UnpublishEntry(std.ID); unpubErr != nil {
			log.Printf("unpublishing entry %s: %v", std.ID, unpubErr)
		}
	}
	return err
}

// SoftDelete retires a standard from any stage. The entry stays in the store
// with stage Deleted so the history keeps something to point at; the former
// id is noted in the history comments.
func (c *CoreDB) SoftDelete(id string, actor Actor) error {

	std, err := c.GetStandard(id)
	if err != nil {
		return err
	}
	if std.Stage == StageDeleted {
		return TransitionError{From: std.Stage, Action: "delete"}
	}

	err = c.transition(std, StageDeleted, nil, actor.event(ActionDeleted, "ID: "+std.ID))
	if err != nil && !isPartialWrite(err) {
		return err
	}

	if std.Published {
		if unpubErr := c.Store.UnpublishEntry(std.ID); unpubErr != nil {
			log.Printf("unpublishing entry %s: %v", std.ID, unpubErr)
		}
	}
	return err
}

// HardDelete removes a draft entirely. Only the creator may do this and only
// while the standard never left the draft stage, so nothing else can refer to
// it yet. No history is written, the subject of the history is gone.
func (c *CoreDB) HardDelete(id string, actor Actor) error {

	std, err := c.GetStandard(id)
	if err != nil {
		return err
	}
	if std.Stage != StageDraft {
		return TransitionError{From: std.Stage, Action: "remove"}
	}
	if std.Creator != actor.Email {
		return fmt.Errorf("only the creator can remove a draft: %w", auth.ErrAuth)
	}

	return c.Store.DeleteEntry(std.ID)
}

// transition is the single mutation path of the lifecycle. The stage write
// comes first because the store is the source of truth; if the subsequent
// history append fails, the transition stands and a PartialWriteError tells
// the caller the audit trail is incomplete.
func (c *CoreDB) transition(std *Standard, to StageCode, extra map[string]interface{}, ev HistoryEvent) error {

	stageID, err := c.Stages.ResolveStage(to)
	if err != nil {
		return err
	}

	delta := map[string]interface{}{"stage": Link{ID: stageID}}
	for k, v := range extra {
		delta[k] = v
	}

	if _, err := c.UpdateEntryFields(std.ID, delta); err != nil {
		return fmt.Errorf("moving %s to %s: %w", std.ID, to, err)
	}

	if err := c.AppendHistory(std.ID, ev); err != nil {
		return &PartialWriteError{StandardID: std.ID, Action: ev.Action, Err: err}
	}
	return nil
}

func isPartialWrite(err error) bool {
	var pw *PartialWriteError
	return errors.As(err, &pw)
}

func (c *CoreDB) standardParams(std *Standard) map[string]string {
	return map[string]string{
		"number": strconv.Itoa(std.Number),
		"title":  std.Title,
	}
}

// approverEmails lists the members of the approvers group. An empty result
// just means nobody gets the submission notice.
func (c *CoreDB) approverEmails() []string {
	if c.Auth == nil {
		return nil
	}
	group, err := c.Auth.GetGroupByName(auth.ApproversGroup)
	if err != nil {
		return nil
	}
	members, err := group.Members()
	if err != nil {
		log.Printf("listing approvers: %v", err)
		return nil
	}
	var emails []string
	for userID := range members {
		u, err := c.Auth.GetUser(userID)
		if err != nil {
			continue
		}
		if u.Email() != "" {
			emails = append(emails, u.Email())
		}
	}
	return emails
}
