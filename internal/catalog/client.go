package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
)

// Client is the REST adapter for Lookup.
// Items are served at GET {base}/catalog/{kind}/{id}.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Lookup = (*Client)(nil)

// NewClient builds a catalog client with a bounded per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type itemDTO struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
}

func (c *Client) Resolve(ctx context.Context, kind domain.ItemKind, itemID string) (Item, error) {
	u := fmt.Sprintf("%s/catalog/%s/%s", c.baseURL, url.PathEscape(string(kind)), url.PathEscape(itemID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Item{}, fmt.Errorf("catalog: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Item{}, fmt.Errorf("catalog: resolve %s/%s: %w", kind, itemID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Item{}, ErrItemNotFound
	case resp.StatusCode != http.StatusOK:
		return Item{}, fmt.Errorf("catalog: resolve %s/%s: unexpected status %d", kind, itemID, resp.StatusCode)
	}

	var dto itemDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return Item{}, fmt.Errorf("catalog: decode item %s/%s: %w", kind, itemID, err)
	}

	return Item{
		Kind:  kind,
		ID:    itemID,
		Name:  dto.Title,
		Price: dto.Price,
	}, nil
}
