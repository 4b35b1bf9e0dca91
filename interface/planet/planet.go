// Package planet implements the provider's Data API (quick-search) and
// Orders API (create/poll/download) contracts.
package planet

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultDataEndpoint   = "https://api.planet.com/data/v1"
	DefaultOrdersEndpoint = "https://api.planet.com/compute/ops/orders/v2"
)

// APIError is a non-success response from the provider. It carries the
// provider's error payload and is never retried.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Body)
}

// Client calls the provider with a single API key (basic auth, empty password).
type Client struct {
	DataEndpoint   string
	OrdersEndpoint string
	// RetryCount is the transient-error budget per HTTP call
	RetryCount int

	apikey string
	client *http.Client
}

func NewClient(dataEndpoint, ordersEndpoint, apikey string) *Client {
	return &Client{
		DataEndpoint:   dataEndpoint,
		OrdersEndpoint: ordersEndpoint,
		RetryCount:     5,
		apikey:         apikey,
		client:         &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) newRequest(method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.SetBasicAuth(c.apikey, "")
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}
	return req, nil
}
