// Package cmsstore implements core.Store against the management API of a
// hosted headless content store. Entries are addressed per space and
// environment; writes carry the last seen version and the server answers 409
// when that version is stale.
package cmsstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/standardsmanual/standards/core"
)

const DefaultBaseURL = "https://api.contentful.com"

type Client struct {
	BaseURL     string
	SpaceID     string
	Environment string
	Token       string
	Locale      string // e.g. "en-US"
	HTTPClient  *http.Client
}

func NewClient(spaceID, environment, token, locale string) *Client {
	return &Client{
		BaseURL:     DefaultBaseURL,
		SpaceID:     spaceID,
		Environment: environment,
		Token:       token,
		Locale:      locale,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// wire format

type wireSys struct {
	ID               string       `json:"id,omitempty"`
	Type             string       `json:"type,omitempty"`
	LinkType         string       `json:"linkType,omitempty"`
	Version          int          `json:"version,omitempty"`
	CreatedAt        string       `json:"createdAt,omitempty"`
	PublishedVersion int          `json:"publishedVersion,omitempty"`
	ContentType      *wireSysLink `json:"contentType,omitempty"`
}

type wireSysLink struct {
	Sys wireSys `json:"sys"`
}

type wireEntry struct {
	Sys    wireSys                           `json:"sys"`
	Fields map[string]map[string]interface{} `json:"fields"`
}

type wireCollection struct {
	Items []wireEntry `json:"items"`
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("content store returned %d: %s", e.Status, e.Message)
}

func (c *Client) entriesURL() string {
	return fmt.Sprintf("%s/spaces/%s/environments/%s/entries", c.BaseURL, c.SpaceID, c.Environment)
}

func (c *Client) do(method, url string, body interface{}, headers map[string]string) (*http.Response, error) {

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/vnd.contentful.management.v1+json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, core.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		resp.Body.Close()
		return nil, core.ErrConflict
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, &apiError{Status: resp.StatusCode, Message: string(msg)}
	}
	return resp, nil
}

func (c *Client) decodeEntry(we wireEntry) *core.Entry {

	fields := make(map[string]interface{}, len(we.Fields))
	for name, localized := range we.Fields {
		fields[name] = c.decodeValue(localized[c.Locale])
	}

	createdAt, _ := time.Parse(time.RFC3339, we.Sys.CreatedAt)

	entryType := ""
	if we.Sys.ContentType != nil {
		entryType = we.Sys.ContentType.Sys.ID
	}

	return &core.Entry{
		ID:        we.Sys.ID,
		Type:      entryType,
		Version:   we.Sys.Version,
		Published: we.Sys.PublishedVersion > 0,
		CreatedAt: createdAt,
		Fields:    fields,
	}
}

func (c *Client) decodeValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		if sys, ok := v["sys"].(map[string]interface{}); ok {
			if id, ok := sys["id"].(string); ok {
				return core.Link{ID: id}
			}
		}
	case []interface{}:
		var links []core.Link
		for _, item := range v {
			if l, ok := c.decodeValue(item).(core.Link); ok {
				links = append(links, l)
			}
		}
		if len(links) == len(v) && len(v) > 0 {
			return links
		}
	}
	return v
}

func encodeLink(id string) map[string]interface{} {
	return map[string]interface{}{
		"sys": map[string]interface{}{
			"type":     "Link",
			"linkType": "Entry",
			"id":       id,
		},
	}
}

func (c *Client) encodeFields(fields map[string]interface{}) map[string]map[string]interface{} {
	encoded := make(map[string]map[string]interface{}, len(fields))
	for name, v := range fields {
		switch v := v.(type) {
		case core.Link:
			encoded[name] = map[string]interface{}{c.Locale: encodeLink(v.ID)}
		case []core.Link:
			links := make([]interface{}, len(v))
			for i, l := range v {
				links[i] = encodeLink(l.ID)
			}
			encoded[name] = map[string]interface{}{c.Locale: links}
		default:
			encoded[name] = map[string]interface{}{c.Locale: v}
		}
	}
	return encoded
}

func (c *Client) GetEntry(id string) (*core.Entry, error) {

	resp, err := c.do(http.MethodGet, c.entriesURL()+"/"+id, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var we wireEntry
	if err := json.NewDecoder(resp.Body).Decode(&we); err != nil {
		return nil, err
	}
	return c.decodeEntry(we), nil
}

func (c *Client) QueryEntries(q core.Query) ([]*core.Entry, error) {

	values := url.Values{}
	values.Set("content_type", q.Type)

	for field, want := range q.Fields {
		if l, ok := want.(core.Link); ok {
			values.Set("fields."+field+".sys.id", l.ID)
			continue
		}
		values.Set("fields."+field, fmt.Sprint(want))
	}

	if q.Order != "" {
		values.Set("order", wireOrder(q.Order))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}

	resp, err := c.do(http.MethodGet, c.entriesURL()+"?"+values.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var coll wireCollection
	if err := json.NewDecoder(resp.Body).Decode(&coll); err != nil {
		return nil, err
	}

	entries := make([]*core.Entry, len(coll.Items))
	for i, item := range coll.Items {
		entries[i] = c.decodeEntry(item)
	}
	return entries, nil
}

// wireOrder maps a field order to the API's sys/fields notation, keeping the
// leading "-" for descending.
func wireOrder(order string) string {
	prefix := ""
	if order[0] == '-' {
		prefix = "-"
		order = order[1:]
	}
	if order == "createdAt" {
		return prefix + "sys.createdAt"
	}
	return prefix + "fields." + order
}

// CreateEntry creates and immediately publishes the entry, except for
// standards, which go live only through the explicit publish transition.
func (c *Client) CreateEntry(entryType string, fields map[string]interface{}) (*core.Entry, error) {

	resp, err := c.do(http.MethodPost, c.entriesURL(), wireEntry{
		Fields: c.encodeFields(fields),
	}, map[string]string{
		"X-Contentful-Content-Type": entryType,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var we wireEntry
	if err := json.NewDecoder(resp.Body).Decode(&we); err != nil {
		return nil, err
	}
	entry := c.decodeEntry(we)
	entry.Type = entryType

	if entryType != core.TypeStandard {
		if err := c.publish(entry.ID, entry.Version); err != nil {
			return nil, err
		}
		entry.Published = true
		entry.Version++
	}
	return entry, nil
}

func (c *Client) UpdateEntry(id string, fields map[string]interface{}) (*core.Entry, error) {

	current, err := c.GetEntry(id)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(http.MethodPut, c.entriesURL()+"/"+id, wireEntry{
		Fields: c.encodeFields(fields),
	}, map[string]string{
		"X-Contentful-Version": strconv.Itoa(current.Version),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var we wireEntry
	if err := json.NewDecoder(resp.Body).Decode(&we); err != nil {
		return nil, err
	}
	updated := c.decodeEntry(we)
	if updated.Type == "" {
		updated.Type = current.Type
	}

	// a published entry must be re-published, else the public site keeps
	// serving the old fields
	if current.Published {
		if err := c.publish(updated.ID, updated.Version); err != nil {
			return nil, err
		}
		updated.Version++
	}
	return updated, nil
}

func (c *Client) publish(id string, version int) error {
	resp, err := c.do(http.MethodPut, c.entriesURL()+"/"+id+"/published", nil, map[string]string{
		"X-Contentful-Version": strconv.Itoa(version),
	})
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) PublishEntry(id string) error {
	entry, err := c.GetEntry(id)
	if err != nil {
		return err
	}
	return c.publish(id, entry.Version)
}

func (c *Client) UnpublishEntry(id string) error {
	resp, err := c.do(http.MethodDelete, c.entriesURL()+"/"+id+"/published", nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// DeleteEntry removes the entry. A still published entry is unpublished
// first, the API refuses to delete published entries.
func (c *Client) DeleteEntry(id string) error {

	entry, err := c.GetEntry(id)
	if err != nil {
		return err
	}
	if entry.Published {
		if err := c.UnpublishEntry(id); err != nil {
			return err
		}
	}

	resp, err := c.do(http.MethodDelete, c.entriesURL()+"/"+id, nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
