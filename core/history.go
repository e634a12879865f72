package core

import (
	"fmt"
	"time"
)

// History action labels. Only the lifecycle engine writes them.
const (
	ActionDraftCreated   = "Draft created"
	ActionDraftSubmitted = "Draft submitted"
	ActionApproved       = "Approved"
	ActionRejected       = "Rejected"
	ActionPublished      = "Published"
	ActionRevertToDraft  = "Revert to draft"
	ActionDeleted        = "Deleted standard"
)

// A HistoryEvent is one record of the append-only audit trail of a standard.
type HistoryEvent struct {
	Action        string
	ActionBy      string
	ActionByEmail string
	ActionAt      time.Time
	Comments      string
}

// AppendHistory writes one history entry. History is never mutated or
// deleted.
func (c *CoreDB) AppendHistory(standardID string, ev HistoryEvent) error {
	if ev.ActionAt.IsZero() {
		ev.ActionAt = time.Now()
	}
	_, err := c.Store.CreateEntry(TypeStandardHistory, map[string]interface{}{
		"standard":       Link{ID: standardID},
		"action":         ev.Action,
		"actionBy":       ev.ActionBy,
		"actionByEmail":  ev.ActionByEmail,
		"actionDatetime": ev.ActionAt.UTC().Format(time.RFC3339),
		"comments":       ev.Comments,
	})
	if err != nil {
		return fmt.Errorf("appending history for %s: %w", standardID, err)
	}
	return nil
}

// History returns the audit trail of a standard, newest first.
func (c *CoreDB) History(standardID string) ([]HistoryEvent, error) {

	entries, err := c.Store.QueryEntries(Query{
		Type:   TypeStandardHistory,
		Fields: map[string]interface{}{"standard": Link{ID: standardID}},
		Order:  "-createdAt",
	})
	if err != nil {
		return nil, err
	}

	events := make([]HistoryEvent, len(entries))
	for i, e := range entries {
		events[i] = HistoryEvent{
			Action:        e.String("action"),
			ActionBy:      e.String("actionBy"),
			ActionByEmail: e.String("actionByEmail"),
			ActionAt:      e.Time("actionDatetime"),
			Comments:      e.String("comments"),
		}
	}
	return events, nil
}

// Timeline slot titles, in display order.
var TimelineSlots = [4]string{"Draft", "Approval", "Outcome", "Published"}

// A TimelineSlot is one of the four fixed steps of the timeline projection.
// Status is the slot title; the event fields are empty if nothing happened in
// that slot yet.
type TimelineSlot struct {
	Status string
	HistoryEvent
}

// A Timeline is the fixed 4-slot projection {Draft, Approval, Outcome,
// Published} of a standard's history. LastActiveIndex is the highest slot
// index with a non-empty ActionBy, or -1.
type Timeline struct {
	Slots           [4]TimelineSlot
	LastActiveIndex int
}

var actionToSlot = map[string]int{
	ActionDraftCreated:   0,
	ActionDraftSubmitted: 1,
	ActionApproved:       2,
	ActionRejected:       2,
	ActionPublished:      3,
}

// Timeline projects the history onto the four slots. The history is scanned
// newest first and the first event per slot wins, so each slot shows the most
// recent event of its kind.
func (c *CoreDB) Timeline(standardID string) (*Timeline, error) {

	events, err := c.History(standardID)
	if err != nil {
		return nil, err
	}

	var tl Timeline
	for i := range tl.Slots {
		tl.Slots[i].Status = TimelineSlots[i]
	}

	for _, ev := range events {
		slot, ok := actionToSlot[ev.Action]
		if !ok {
			continue
		}
		if tl.Slots[slot].Action != "" {
			continue
		}
		tl.Slots[slot].HistoryEvent = ev
	}

	tl.LastActiveIndex = -1
	for i := len(tl.Slots) - 1; i >= 0; i-- {
		if tl.Slots[i].ActionBy != "" {
			tl.LastActiveIndex = i
			break
		}
	}

	return &tl, nil
}

// LatestRejection returns the newest "Rejected" history event, or nil if the
// standard was never rejected.
func (c *CoreDB) LatestRejection(standardID string) (*HistoryEvent, error) {
	events, err := c.History(standardID)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if ev.Action == ActionRejected {
			return &ev, nil
		}
	}
	return nil, nil
}
