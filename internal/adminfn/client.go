package adminfn

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// AuditEntry is the payload the hosted admin functions expect on their
// audit-log endpoint.
type AuditEntry struct {
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id,omitempty"`
	Subject   string    `json:"subject"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Client talks to the externally hosted admin functions. Only the audit
// endpoint is used from the core; user invite/delete and session management
// stay on the admin side.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL, apiKey string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		c.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &Client{http: c}
}

// RecordAudit posts one audit entry. Callers treat failures as best-effort;
// audit logging never blocks the operation it describes.
func (c *Client) RecordAudit(ctx context.Context, e AuditEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(e).
		Post("/functions/audit-log")
	if err != nil {
		return fmt.Errorf("post audit entry: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("audit endpoint returned %s", resp.Status())
	}
	return nil
}
