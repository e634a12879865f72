package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var got emailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/notifications/email", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	err := c.Send("tmpl-submitted", "alice@example.com", map[string]string{"title": "Hosting"})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", got.EmailAddress)
	assert.Equal(t, "tmpl-submitted", got.TemplateID)
	assert.Equal(t, "Hosting", got.Personalisation["title"])
}

func TestSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors": [{"message": "invalid api key"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad")
	err := c.Send("tmpl-submitted", "alice@example.com", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "invalid api key")
}
