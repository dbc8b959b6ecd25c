// Package gatewayhttp is the REST adapter for payment.Gateway.
//
// Every processor round-trip is bounded by the client timeout, retried once
// on transient failures (transport errors and 5xx — never 4xx), and guarded
// by a circuit breaker so a dead processor fails fast instead of tying up
// request handlers. Processor error text is logged for operators but the
// error returned to callers is sanitized; raw gateway messages never reach
// end users.
package gatewayhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/aldomata/storefront-checkout/internal/payment"
	"github.com/aldomata/storefront-checkout/internal/pkg/apperr"
)

const retryBackoff = 200 * time.Millisecond

// errRejected: the processor answered with a 4xx. The breaker must not count
// these as failures; the processor is up and saying no.
var errRejected = apperr.New(apperr.KindGateway, "payment request rejected")

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[payment.Intent]
}

var _ payment.Gateway = (*Client)(nil)

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	breaker := gobreaker.NewCircuitBreaker[payment.Intent](gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			// Business rejections (4xx, unknown intent) are the processor
			// answering fine; only transport-level trouble trips the breaker.
			return err == nil ||
				errors.Is(err, payment.ErrIntentNotFound) ||
				errors.Is(err, errRejected)
		},
	})

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

type intentDTO struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Metadata     struct {
		OrderRef string `json:"order_ref"`
		OrderID  string `json:"order_id"`
	} `json:"metadata"`
}

type errorDTO struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type createIntentBody struct {
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	ReceiptEmail string            `json:"receipt_email"`
	Metadata     map[string]string `json:"metadata"`
}

func (c *Client) CreateIntent(ctx context.Context, params payment.CreateIntentParams) (payment.Intent, error) {
	body, err := json.Marshal(createIntentBody{
		Amount:       params.AmountMinor,
		Currency:     params.Currency,
		ReceiptEmail: params.CustomerEmail,
		Metadata: map[string]string{
			"order_ref": params.OrderRef,
			"order_id":  params.OrderID,
		},
	})
	if err != nil {
		return payment.Intent{}, fmt.Errorf("gatewayhttp: marshal intent: %w", err)
	}

	return c.breaker.Execute(func() (payment.Intent, error) {
		return c.roundTrip(ctx, http.MethodPost, "/v1/payment_intents", body)
	})
}

func (c *Client) GetIntent(ctx context.Context, intentID string) (payment.Intent, error) {
	path := "/v1/payment_intents/" + url.PathEscape(intentID)
	return c.breaker.Execute(func() (payment.Intent, error) {
		return c.roundTrip(ctx, http.MethodGet, path, nil)
	})
}

// roundTrip performs the request with a single bounded retry on transient
// failures.
func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte) (payment.Intent, error) {
	intent, retryable, err := c.do(ctx, method, path, body)
	if err != nil && retryable && ctx.Err() == nil {
		slog.WarnContext(ctx, "gateway call failed, retrying once",
			"method", method, "path", path, "error", err)

		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
			return payment.Intent{}, apperr.Wrap(apperr.KindGateway, "payment processor unavailable", ctx.Err())
		}
		intent, _, err = c.do(ctx, method, path, body)
	}
	return intent, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (payment.Intent, bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return payment.Intent{}, false, fmt.Errorf("gatewayhttp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return payment.Intent{}, true, apperr.Wrap(apperr.KindGateway, "payment processor unavailable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return payment.Intent{}, false, payment.ErrIntentNotFound

	case resp.StatusCode >= 500:
		return payment.Intent{}, true, apperr.Newf(apperr.KindGateway, "payment processor unavailable")

	case resp.StatusCode >= 400:
		// The processor's own message is for operators only.
		var dto errorDTO
		_ = json.NewDecoder(resp.Body).Decode(&dto)
		slog.ErrorContext(ctx, "gateway rejected request",
			"status", resp.StatusCode, "gateway_message", dto.Error.Message)
		return payment.Intent{}, false, errRejected
	}

	var dto intentDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return payment.Intent{}, false, apperr.Wrap(apperr.KindGateway, "invalid processor response", err)
	}

	return payment.Intent{
		ID:           dto.ID,
		ClientSecret: dto.ClientSecret,
		Status:       payment.IntentStatus(dto.Status),
		AmountMinor:  dto.Amount,
		Currency:     dto.Currency,
		OrderRef:     dto.Metadata.OrderRef,
		OrderID:      dto.Metadata.OrderID,
	}, false, nil
}
