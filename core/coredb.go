package core

import (
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/standardsmanual/standards/auth"
)

// CoreDB bundles the external collaborators and is the receiver of all
// domain operations.
type CoreDB struct {
	Store
	Stages         *StageRegistry
	Auth           *auth.AuthDB
	Notifier       Notifier
	Templates      NotifyTemplates
	SessionManager *scs.SessionManager
}

func (c *CoreDB) Init(sessionStore scs.Store, cookiePath string) {

	c.SessionManager = scs.New()
	c.SessionManager.Store = sessionStore
	c.SessionManager.Cookie.Path = cookiePath + "/"
	c.SessionManager.Cookie.Persist = false                 // don't store the cookie across browser sessions, see GDPR cookie consent exemption criterion B
	c.SessionManager.Cookie.SameSite = http.SameSiteLaxMode // good CSRF protection if HTTP GET doesn't modify anything
	c.SessionManager.Cookie.Secure = false                  // else running on localhost or behind a http proxy fails
	c.SessionManager.IdleTimeout = 12 * time.Hour
	c.SessionManager.Lifetime = 720 * time.Hour

	c.Stages = NewStageRegistry(c.Store)
}

// UpdateEntryFields merges delta into the entry's current fields and writes
// the whole field map back. The store replaces fields wholesale on update, so
// two concurrent writers to the same entry can lose one writer's change
// between read and write. On ErrConflict the read-merge-write cycle is
// retried with backoff, which heals conflicts the store detects; concurrent
// merges the store does not detect remain last-write-wins, as in the legacy
// system.
func (c *CoreDB) UpdateEntryFields(id string, delta map[string]interface{}) (*Entry, error) {
	return c.updateEntry(id, func(fields map[string]interface{}) {
		for k, v := range delta {
			fields[k] = v
		}
	})
}

// AppendLink appends a link to a many-valued link field.
func (c *CoreDB) AppendLink(id, field, targetID string) error {
	_, err := c.updateEntry(id, func(fields map[string]interface{}) {
		links, _ := fields[field].([]Link)
		fields[field] = append(links, Link{ID: targetID})
	})
	return err
}

// RemoveLink removes a link from a many-valued link field.
func (c *CoreDB) RemoveLink(id, field, targetID string) error {
	_, err := c.updateEntry(id, func(fields map[string]interface{}) {
		links, _ := fields[field].([]Link)
		var kept []Link
		for _, l := range links {
			if l.ID != targetID {
				kept = append(kept, l)
			}
		}
		fields[field] = kept
	})
	return err
}

func (c *CoreDB) updateEntry(id string, mutate func(fields map[string]interface{})) (*Entry, error) {

	var updated *Entry

	op := func() error {
		entry, err := c.Store.GetEntry(id)
		if err != nil {
			return backoff.Permanent(err)
		}
		mutate(entry.Fields)
		updated, err = c.Store.UpdateEntry(id, entry.Fields)
		if errors.Is(err, ErrConflict) {
			return err // retry with fresh fields
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4))
	return updated, err
}
