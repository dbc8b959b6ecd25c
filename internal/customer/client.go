package customer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client is the REST adapter for Resolver.
// Accounts are served at GET {base}/users?email=...
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Resolver = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type userDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (c *Client) ResolveByEmail(ctx context.Context, email string) (Customer, error) {
	u := fmt.Sprintf("%s/users?email=%s", c.baseURL, url.QueryEscape(email))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Customer{}, fmt.Errorf("customer: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Customer{}, fmt.Errorf("customer: resolve by email: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Customer{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return Customer{}, fmt.Errorf("customer: resolve by email: unexpected status %d", resp.StatusCode)
	}

	var dto userDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return Customer{}, fmt.Errorf("customer: decode user: %w", err)
	}

	return Customer{ID: dto.ID, Email: dto.Email, Name: dto.Name}, nil
}
