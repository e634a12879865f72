package core

import (
	"time"
)

// A Link is a typed pointer to another entry. Links are stored by id, never
// as embedded copies.
type Link struct {
	ID string
}

// An Entry is one record in the content store.
type Entry struct {
	ID        string
	Type      string
	Version   int
	Published bool
	CreatedAt time.Time
	Fields    map[string]interface{}
}

func (e *Entry) String(field string) string {
	s, _ := e.Fields[field].(string)
	return s
}

func (e *Entry) Float(field string) float64 {
	switch v := e.Fields[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (e *Entry) Int(field string) int {
	switch v := e.Fields[field].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (e *Entry) Bool(field string) bool {
	b, _ := e.Fields[field].(bool)
	return b
}

func (e *Entry) Link(field string) string {
	l, _ := e.Fields[field].(Link)
	return l.ID
}

func (e *Entry) Links(field string) []Link {
	ls, _ := e.Fields[field].([]Link)
	return ls
}

// LinkIDs returns the ids of a many-valued link field.
func (e *Entry) LinkIDs(field string) []string {
	links := e.Links(field)
	ids := make([]string, len(links))
	for i, l := range links {
		ids[i] = l.ID
	}
	return ids
}

// Time parses an ISO-8601 field value.
func (e *Entry) Time(field string) time.Time {
	t, _ := time.Parse(time.RFC3339, e.String(field))
	return t
}

// MakeLinks wraps entry ids into a many-valued link field value.
func MakeLinks(ids []string) []Link {
	links := make([]Link, len(ids))
	for i, id := range ids {
		links[i] = Link{ID: id}
	}
	return links
}

// A Query selects entries of one type by field equality. Order is a field
// name with an optional leading "-" for descending; the name "createdAt"
// orders by entry creation time. Limit 0 means no limit.
type Query struct {
	Type   string
	Fields map[string]interface{}
	Order  string
	Limit  int
}

// Store is the contract to the remote content store. It is the single source
// of truth, it has no transactions, and UpdateEntry replaces the entire field
// map (no server-side merge). GetEntry returns ErrNotFound for unknown ids,
// UpdateEntry returns ErrConflict when the entry changed between the caller's
// read and the write.
//
// CreateEntry publishes the new entry right away. Supporting entities
// (people, products, exceptions, history) are publicly visible from the
// moment they exist; only the Standard itself stays unpublished until the
// explicit publish action. That asymmetry is deliberate, removing it would
// change the visibility of in-progress drafts.
type Store interface {
	GetEntry(id string) (*Entry, error)
	QueryEntries(q Query) ([]*Entry, error)
	CreateEntry(entryType string, fields map[string]interface{}) (*Entry, error)
	UpdateEntry(id string, fields map[string]interface{}) (*Entry, error)
	PublishEntry(id string) error
	UnpublishEntry(id string) error
	DeleteEntry(id string) error
}
