package core

import (
	"fmt"
	"sync"
)

// A StageCode identifies one lifecycle stage of a standard. The codes are a
// closed set; the store holds one stage record per code.
type StageCode int

const (
	StageDeleted   StageCode = 0
	StageDraft     StageCode = 20
	StageSubmitted StageCode = 40
	StageApproved  StageCode = 41
	StageRejected  StageCode = 42
	StagePublished StageCode = 80
)

var StageCodes = []StageCode{StageDeleted, StageDraft, StageSubmitted, StageApproved, StageRejected, StagePublished}

// Title returns the display title of the stage, as the stage records in the
// store carry it.
func (s StageCode) Title() string {
	switch s {
	case StageDeleted:
		return "Deleted"
	case StageDraft:
		return "Draft"
	case StageSubmitted:
		return "Approval"
	case StageApproved:
		return "Approved"
	case StageRejected:
		return "Rejected"
	case StagePublished:
		return "Published"
	}
	return fmt.Sprintf("stage %d", int(s))
}

func (s StageCode) String() string {
	return s.Title()
}

// A StageRegistry resolves stage codes to store ids. Stage records are
// effectively static reference data, so resolved ids are cached per code, but
// a lookup can still fail and must always be handled.
type StageRegistry struct {
	store Store
	mu    sync.Mutex
	ids   map[StageCode]string
	codes map[string]StageCode
}

func NewStageRegistry(store Store) *StageRegistry {
	return &StageRegistry{
		store: store,
		ids:   make(map[StageCode]string),
		codes: make(map[string]StageCode),
	}
}

// ResolveStage returns the store id of the stage record with the given code.
func (r *StageRegistry) ResolveStage(code StageCode) (string, error) {

	r.mu.Lock()
	id, ok := r.ids[code]
	r.mu.Unlock()
	if ok {
		return id, nil
	}

	entries, err := r.store.QueryEntries(Query{
		Type:   TypeStage,
		Fields: map[string]interface{}{"number": int(code)},
		Limit:  1,
	})
	if err != nil {
		return "", fmt.Errorf("resolving stage %d: %w", int(code), err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("stage %d: %w", int(code), ErrNotFound)
	}

	id = entries[0].ID

	r.mu.Lock()
	r.ids[code] = id
	r.codes[id] = code
	r.mu.Unlock()

	return id, nil
}

// CodeOf is the reverse lookup, from a stage record id to its code.
func (r *StageRegistry) CodeOf(id string) (StageCode, error) {

	r.mu.Lock()
	code, ok := r.codes[id]
	r.mu.Unlock()
	if ok {
		return code, nil
	}

	entry, err := r.store.GetEntry(id)
	if err != nil {
		return 0, fmt.Errorf("resolving stage record %s: %w", id, err)
	}
	code = StageCode(entry.Int("number"))

	r.mu.Lock()
	r.codes[id] = code
	r.ids[code] = id
	r.mu.Unlock()

	return code, nil
}
