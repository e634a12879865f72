package cmsstore

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/standardsmanual/standards/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient("space", "master", "token", "en-US")
	c.BaseURL = srv.URL
	return c, srv
}

func entryJSON() string {
	return `{
		"sys": {
			"id": "std-1",
			"version": 4,
			"createdAt": "2023-06-01T12:00:00Z",
			"publishedVersion": 3,
			"contentType": {"sys": {"id": "standard"}}
		},
		"fields": {
			"title": {"en-US": "Hosting"},
			"number": {"en-US": 7},
			"stage": {"en-US": {"sys": {"type": "Link", "linkType": "Entry", "id": "stage-1"}}},
			"owners": {"en-US": [
				{"sys": {"type": "Link", "linkType": "Entry", "id": "p1"}},
				{"sys": {"type": "Link", "linkType": "Entry", "id": "p2"}}
			]}
		}
	}`
}

func TestGetEntry(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/spaces/space/environments/master/entries/std-1", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.Write([]byte(entryJSON()))
	})
	defer srv.Close()

	entry, err := c.GetEntry("std-1")
	require.NoError(t, err)

	assert.Equal(t, "std-1", entry.ID)
	assert.Equal(t, "standard", entry.Type)
	assert.Equal(t, 4, entry.Version)
	assert.True(t, entry.Published)
	assert.Equal(t, 2023, entry.CreatedAt.Year())
	assert.Equal(t, "Hosting", entry.Fields["title"])
	assert.Equal(t, core.Link{ID: "stage-1"}, entry.Fields["stage"])
	assert.Equal(t, []core.Link{{ID: "p1"}, {ID: "p2"}}, entry.Fields["owners"])
}

func TestGetEntryNotFound(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	_, err := c.GetEntry("nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestQueryEntries(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "standard", q.Get("content_type"))
		assert.Equal(t, "alice@example.com", q.Get("fields.creator"))
		assert.Equal(t, "stage-1", q.Get("fields.stage.sys.id"))
		assert.Equal(t, "-sys.createdAt", q.Get("order"))
		assert.Equal(t, "1", q.Get("limit"))
		w.Write([]byte(`{"items": [` + entryJSON() + `]}`))
	})
	defer srv.Close()

	entries, err := c.QueryEntries(core.Query{
		Type: "standard",
		Fields: map[string]interface{}{
			"creator": "alice@example.com",
			"stage":   core.Link{ID: "stage-1"},
		},
		Order: "-createdAt",
		Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "std-1", entries[0].ID)
}

func TestWireOrder(t *testing.T) {
	assert.Equal(t, "fields.number", wireOrder("number"))
	assert.Equal(t, "-fields.number", wireOrder("-number"))
	assert.Equal(t, "sys.createdAt", wireOrder("createdAt"))
	assert.Equal(t, "-sys.createdAt", wireOrder("-createdAt"))
}

func TestCreateEntryPublishesAll(t *testing.T) {
	var published bool
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			assert.Equal(t, "person", r.Header.Get("X-Contentful-Content-Type"))
			var we wireEntry
			require.NoError(t, json.NewDecoder(r.Body).Decode(&we))
			assert.Equal(t, "Bob", we.Fields["name"]["en-US"])
			w.Write([]byte(`{"sys": {"id": "p1", "version": 1}, "fields": {}}`))
		case r.Method == http.MethodPut:
			assert.Equal(t, "/spaces/space/environments/master/entries/p1/published", r.URL.Path)
			assert.Equal(t, "1", r.Header.Get("X-Contentful-Version"))
			published = true
			w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	defer srv.Close()

	entry, err := c.CreateEntry("person", map[string]interface{}{"name": "Bob"})
	require.NoError(t, err)
	assert.True(t, published)
	assert.True(t, entry.Published)
	assert.Equal(t, 2, entry.Version)
}

func TestCreateEntryKeepsStandardsDraft(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"sys": {"id": "std-1", "version": 1}, "fields": {}}`))
	})
	defer srv.Close()

	entry, err := c.CreateEntry(core.TypeStandard, map[string]interface{}{"title": "Hosting"})
	require.NoError(t, err)
	assert.False(t, entry.Published)
	assert.Equal(t, 1, entry.Version)
}

func TestUpdateEntryConflict(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"sys": {"id": "std-1", "version": 4}, "fields": {}}`))
		case http.MethodPut:
			assert.Equal(t, "4", r.Header.Get("X-Contentful-Version"))
			w.WriteHeader(http.StatusConflict)
		}
	})
	defer srv.Close()

	_, err := c.UpdateEntry("std-1", map[string]interface{}{"title": "Hosting"})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestUpdateEntryRepublishes(t *testing.T) {
	var republished bool
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.Write([]byte(entryJSON())) // published at version 4
		case r.Method == http.MethodPut && r.URL.Path == "/spaces/space/environments/master/entries/std-1":
			w.Write([]byte(`{"sys": {"id": "std-1", "version": 5, "publishedVersion": 3}, "fields": {}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/spaces/space/environments/master/entries/std-1/published":
			assert.Equal(t, "5", r.Header.Get("X-Contentful-Version"))
			republished = true
			w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	defer srv.Close()

	_, err := c.UpdateEntry("std-1", map[string]interface{}{"title": "New"})
	require.NoError(t, err)
	assert.True(t, republished)
}

func TestDeleteEntryUnpublishesFirst(t *testing.T) {
	var unpublished, deleted bool
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.Write([]byte(entryJSON()))
		case r.Method == http.MethodDelete && r.URL.Path == "/spaces/space/environments/master/entries/std-1/published":
			unpublished = true
			w.Write([]byte(`{}`))
		case r.Method == http.MethodDelete:
			assert.True(t, unpublished, "unpublish must come before delete")
			deleted = true
			w.WriteHeader(http.StatusNoContent)
		}
	})
	defer srv.Close()

	require.NoError(t, c.DeleteEntry("std-1"))
	assert.True(t, deleted)
}

func TestEncodeFields(t *testing.T) {
	c := NewClient("space", "master", "token", "en-US")

	encoded := c.encodeFields(map[string]interface{}{
		"title":  "Hosting",
		"stage":  core.Link{ID: "stage-1"},
		"owners": []core.Link{{ID: "p1"}},
	})

	assert.Equal(t, "Hosting", encoded["title"]["en-US"])
	assert.Equal(t, encodeLink("stage-1"), encoded["stage"]["en-US"])
	assert.Equal(t, []interface{}{encodeLink("p1")}, encoded["owners"]["en-US"])
}

func TestAPIError(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "validation failed"}`))
	})
	defer srv.Close()

	_, err := c.GetEntry("std-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "validation failed")
}
