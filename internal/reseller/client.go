// Package reseller delivers EXTERNAL_API line items through a paid reseller API.
//
// The API contract consumed here is narrow: given a service code and a target
// (phone number, account id), it returns one delivered unit or fails. Calls
// happen outside any store transaction and are never retried by this package;
// failures surface to the operator as model.ErrExternalServiceFailure.
package reseller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Deliverer is the reseller contract.
type Deliverer interface {
	Deliver(ctx context.Context, serviceCode, target string) (string, error)
}

// DefaultTimeout bounds one delivery request.
const DefaultTimeout = 30 * time.Second

// Client calls the reseller's HTTP JSON endpoint: POST {baseURL}/deliver.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a Client. A zero timeout uses DefaultTimeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type deliverRequest struct {
	ServiceCode string `json:"service_code"`
	Target      string `json:"target"`
}

type deliverResponse struct {
	Unit  string `json:"unit"`
	Error string `json:"error,omitempty"`
}

// Deliver requests one unit of serviceCode for target.
func (c *Client) Deliver(ctx context.Context, serviceCode, target string) (string, error) {
	body, err := json.Marshal(deliverRequest{ServiceCode: serviceCode, Target: target})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/deliver", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("deliver %s: %w", serviceCode, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out deliverResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode < 300 {
			return "", fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != "" {
			return "", fmt.Errorf("deliver %s: status %d: %s", serviceCode, resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("deliver %s: status %d", serviceCode, resp.StatusCode)
	}
	if strings.TrimSpace(out.Unit) == "" {
		return "", fmt.Errorf("deliver %s: empty unit in response", serviceCode)
	}
	return out.Unit, nil
}
