package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// IntentStatus is the processor-reported state of a payment intent.
type IntentStatus string

const (
	// StatusSucceeded is the only status that permits subscription activation.
	StatusSucceeded IntentStatus = "succeeded"
	StatusPending   IntentStatus = "pending"
	StatusFailed    IntentStatus = "failed"
	StatusCanceled  IntentStatus = "canceled"
)

// ErrIntentNotFound indicates the processor has no record of the intent.
var ErrIntentNotFound = errors.New("payments: payment intent not found")

// Client looks up payment confirmation state at the external processor.
type Client interface {
	IntentStatus(ctx context.Context, intentID string) (IntentStatus, error)
}

// Config holds connection options for the HTTP processor client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient implements Client against the processor's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient validates configuration and constructs a processor client.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("payments: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("payments: invalid base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL: base,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// IntentStatus fetches the current status of a payment intent.
func (c *HTTPClient) IntentStatus(ctx context.Context, intentID string) (IntentStatus, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return "", errors.New("payments: intent id is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s", c.baseURL, url.PathEscape(intentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("payments: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("payments: lookup intent: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrIntentNotFound
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("payments: unexpected status %d from processor", resp.StatusCode)
	}

	var payload struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("payments: decode intent: %w", err)
	}

	status := IntentStatus(strings.ToLower(strings.TrimSpace(payload.Status)))
	if status == "" {
		return "", errors.New("payments: processor response missing status")
	}
	return status, nil
}
