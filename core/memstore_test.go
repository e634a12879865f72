package core

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is a map-backed Store for tests. It mimics the remote store's
// contract: no transactions, full-field-map replace on update, version
// conflicts on demand.
type memStore struct {
	mu       sync.Mutex
	seq      int
	entries  map[string]*Entry
	failType map[string]error // CreateEntry fails for this type
	conflict map[string]int   // UpdateEntry returns ErrConflict this many times
}

func newMemStore() *memStore {
	return &memStore{
		entries:  make(map[string]*Entry),
		failType: make(map[string]error),
		conflict: make(map[string]int),
	}
}

var memEpoch = time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

func copyFields(fields map[string]interface{}) map[string]interface{} {
	copied := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return copied
}

func (m *memStore) GetEntry(id string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *e
	copied.Fields = copyFields(e.Fields)
	return &copied, nil
}

func (m *memStore) QueryEntries(q Query) ([]*Entry, error) {

	m.mu.Lock()
	var result []*Entry
	for _, e := range m.entries {
		if e.Type != q.Type {
			continue
		}
		if !memMatches(e, q.Fields) {
			continue
		}
		copied := *e
		copied.Fields = copyFields(e.Fields)
		result = append(result, &copied)
	}
	m.mu.Unlock()

	memOrder(result, q.Order)

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func memMatches(e *Entry, conditions map[string]interface{}) bool {
	for field, want := range conditions {
		if l, ok := want.(Link); ok {
			hl, ok := e.Fields[field].(Link)
			if !ok || hl.ID != l.ID {
				return false
			}
			continue
		}
		if wn, ok := memFloat(want); ok {
			hn, ok := memFloat(e.Fields[field])
			if !ok || hn != wn {
				return false
			}
			continue
		}
		if e.Fields[field] != want {
			return false
		}
	}
	return true
}

func memFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func memOrder(entries []*Entry, order string) {
	if order == "" {
		return
	}
	desc := false
	if order[0] == '-' {
		desc = true
		order = order[1:]
	}
	less := func(a, b *Entry) bool {
		if order == "createdAt" {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		an, aok := memFloat(a.Fields[order])
		bn, bok := memFloat(b.Fields[order])
		if aok && bok {
			return an < bn
		}
		return a.String(order) < b.String(order)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return less(entries[j], entries[i])
		}
		return less(entries[i], entries[j])
	})
}

func (m *memStore) CreateEntry(entryType string, fields map[string]interface{}) (*Entry, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failType[entryType]; err != nil {
		return nil, err
	}

	m.seq++
	e := &Entry{
		ID:        fmt.Sprintf("entry-%d", m.seq),
		Type:      entryType,
		Version:   1,
		Published: entryType != TypeStandard,
		CreatedAt: memEpoch.Add(time.Duration(m.seq) * time.Second),
		Fields:    copyFields(fields),
	}
	m.entries[e.ID] = e

	copied := *e
	copied.Fields = copyFields(e.Fields)
	return &copied, nil
}

func (m *memStore) UpdateEntry(id string, fields map[string]interface{}) (*Entry, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}

	if m.conflict[id] > 0 {
		m.conflict[id]--
		return nil, ErrConflict
	}

	e.Version++
	e.Fields = copyFields(fields)

	copied := *e
	copied.Fields = copyFields(e.Fields)
	return &copied, nil
}

func (m *memStore) PublishEntry(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.Published = true
	return nil
}

func (m *memStore) UnpublishEntry(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.Published = false
	return nil
}

func (m *memStore) DeleteEntry(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

// recorder is a Notifier that remembers every Send.
type recorder struct {
	mu    sync.Mutex
	sends []sentMessage
	fail  error
}

type sentMessage struct {
	Template  string
	Recipient string
	Params    map[string]string
}

func (r *recorder) Send(templateKey string, recipient string, params map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.sends = append(r.sends, sentMessage{templateKey, recipient, params})
	return nil
}

func (r *recorder) templates(template string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var recipients []string
	for _, s := range r.sends {
		if s.Template == template {
			recipients = append(recipients, s.Recipient)
		}
	}
	return recipients
}

var testTemplates = NotifyTemplates{
	Submitted:          "tmpl-submitted",
	SubmittedAwareness: "tmpl-submitted-awareness",
	SubmittedApprovers: "tmpl-submitted-approvers",
	Approved:           "tmpl-approved",
	Rejected:           "tmpl-rejected",
	Published:          "tmpl-published",
	PublishedAwareness: "tmpl-published-awareness",
}

// newTestDB returns a CoreDB on a fresh memStore with the stage records
// seeded, plus the store and the notification recorder for assertions.
func newTestDB() (*CoreDB, *memStore, *recorder) {

	ms := newMemStore()
	for _, code := range StageCodes {
		ms.CreateEntry(TypeStage, map[string]interface{}{
			"number": int(code),
			"title":  code.Title(),
		})
	}

	rec := &recorder{}
	db := &CoreDB{
		Store:     ms,
		Stages:    NewStageRegistry(ms),
		Notifier:  rec,
		Templates: testTemplates,
	}
	return db, ms, rec
}
