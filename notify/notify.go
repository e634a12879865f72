// Package notify delivers the lifecycle emails. The Client posts to a hosted
// notification service that renders named templates; Log is the fallback sink
// for development and for deployments without a service account.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type emailRequest struct {
	EmailAddress    string            `json:"email_address"`
	TemplateID      string            `json:"template_id"`
	Personalisation map[string]string `json:"personalisation,omitempty"`
}

func (c *Client) Send(templateKey string, recipient string, params map[string]string) error {

	body, err := json.Marshal(emailRequest{
		EmailAddress:    recipient,
		TemplateID:      templateKey,
		Personalisation: params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/v2/notifications/email", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notification service returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}

// Log writes notifications to the process log instead of sending them.
type Log struct{}

func (Log) Send(templateKey string, recipient string, params map[string]string) error {
	log.Printf("notify %s: template %s, params %v", recipient, templateKey, params)
	return nil
}
