// Package notify delivers human-handoff notifications to a support
// webhook. Which chat platform sits behind the webhook is the
// collaborator's business; this client only posts a structured payload.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
)

const (
	PriorityCritical = "critical"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

type Config struct {
	URL     string        `split_words:"true"`
	Token   string        `split_words:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("notify url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid notify url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

type payload struct {
	Priority      string `json:"priority"`
	Reason        string `json:"reason"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Context       string `json:"context,omitempty"`
}

// Notify posts the notification to the support webhook. Non-2xx responses
// are failures; the body is drained but never surfaced to the caller.
func (c *Client) Notify(ctx context.Context, n contractx.SupportNotification) (contractx.NotifyReceipt, error) {
	priority := PriorityForReason(n.Reason)
	body, err := json.Marshal(payload{
		Priority:      priority,
		Reason:        n.Reason,
		CustomerName:  n.CustomerName,
		CustomerPhone: n.CustomerPhone,
		Context:       n.Context,
	})
	if err != nil {
		return contractx.NotifyReceipt{}, fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return contractx.NotifyReceipt{}, fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return contractx.NotifyReceipt{}, fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return contractx.NotifyReceipt{}, fmt.Errorf("notify webhook status %d", resp.StatusCode)
	}
	return contractx.NotifyReceipt{Delivered: true, Priority: priority}, nil
}

// PriorityForReason maps a handoff reason onto the support priority
// ladder: checkout completion is routine, freight doubts are medium,
// everything else needs a human fast.
func PriorityForReason(reason string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "end_of_checkout":
		return PriorityLow
	case "freight_doubt":
		return PriorityMedium
	default:
		return PriorityCritical
	}
}

// Nop is used when no webhook is configured: notifications are accepted
// and dropped.
type Nop struct{}

func (Nop) Notify(_ context.Context, n contractx.SupportNotification) (contractx.NotifyReceipt, error) {
	return contractx.NotifyReceipt{Delivered: false, Priority: PriorityForReason(n.Reason)}, nil
}
