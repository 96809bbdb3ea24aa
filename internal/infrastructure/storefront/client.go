// Package storefront is the HTTP client for the storefront API. It lets a
// checkout session running outside the server place orders and create
// payment intents through the same endpoints the web storefront uses.
package storefront

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

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/payment"
)

const (
	ordersPath         = "/api/v1/orders"
	paymentIntentsPath = "/api/v1/payment-intents"

	defaultTimeout  = 15 * time.Second
	defaultMaxTries = 3
	maxResponseBody = 1 << 20
)

// Config holds the client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Token is sent as a bearer token. The server takes the order owner from
	// it, so an empty token places guest orders.
	Token string
	// MaxTries bounds attempts for requests that failed in transit or with a
	// retryable status. Both endpoints are called with an idempotency key,
	// so retries never duplicate an order or an intent.
	MaxTries uint
	// RetryInterval is the first backoff interval. Zero uses the backoff
	// package default.
	RetryInterval time.Duration
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client calls the storefront API. It implements checkout.OrderPlacer and
// payment.IntentGateway.
type Client struct {
	baseURL       *url.URL
	token         string
	maxTries      uint
	retryInterval time.Duration
	http          *http.Client
	logger        *zap.Logger
}

// NewClient creates a Client for cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("storefront: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("storefront: invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("storefront: unsupported scheme %q", base.Scheme)
	}

	c := &Client{
		baseURL:       base,
		token:         cfg.Token,
		maxTries:      cfg.MaxTries,
		retryInterval: cfg.RetryInterval,
		http:          cfg.HTTPClient,
		logger:        cfg.Logger,
	}
	if c.maxTries == 0 {
		c.maxTries = defaultMaxTries
	}
	if c.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// PlaceOrder posts req to the orders endpoint. The idempotency key travels
// both in the body and in the Idempotency-Key header. userID is only used for
// logging; the server derives the owner from the bearer token.
func (c *Client) PlaceOrder(ctx context.Context, req order.PlaceOrderRequest, userID string) (*order.PlaceOrderResult, error) {
	var result order.PlaceOrderResult
	if err := c.do(ctx, http.MethodPost, ordersPath, req.IdempotencyKey, req, &result); err != nil {
		return nil, err
	}
	if result.OrderID == "" {
		return nil, errors.New("storefront: order response has no order id")
	}
	c.logger.Debug("Order placed through API",
		zap.String("order_id", result.OrderID),
		zap.Bool("replayed", result.Replayed),
		zap.Bool("guest", userID == ""))
	return &result, nil
}

// CreatePaymentIntent asks the API for a payment intent. The returned
// client secret is handed to the hosted payment UI.
func (c *Client) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.IntentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body := paymentIntentRequest{
		AmountMinor:  req.AmountMinor,
		OrderID:      req.OrderID,
		Currency:     string(req.Currency),
		ReceiptEmail: req.ReceiptEmail,
	}
	var resp paymentIntentResponse
	if err := c.do(ctx, http.MethodPost, paymentIntentsPath, req.IdempotencyKey, body, &resp); err != nil {
		return nil, err
	}
	if resp.ClientSecret == "" {
		return nil, payment.ErrMissingClientSecret
	}
	return &payment.IntentResult{
		IntentID:     resp.PaymentIntentID,
		ClientSecret: resp.ClientSecret,
		AmountMinor:  req.AmountMinor,
		Currency:     req.Currency,
	}, nil
}

// do sends one JSON request with retries and decodes the response envelope
// data into out.
func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("storefront: encode request: %w", err)
	}
	endpoint := c.baseURL.JoinPath(path).String()

	policy := backoff.NewExponentialBackOff()
	if c.retryInterval > 0 {
		policy.InitialInterval = c.retryInterval
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.attempt(ctx, method, endpoint, idempotencyKey, payload, out)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("Retrying storefront request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Duration("backoff", next),
				zap.Error(err))
		}),
	)
	return err
}

func (c *Client) attempt(ctx context.Context, method, endpoint, idempotencyKey string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("storefront: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if idempotencyKey != "" {
		req.Header.Set(idempotencyKeyHeader, idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("storefront: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("storefront: read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := newAPIError(resp, body)
		if retryable(resp.StatusCode) {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	env := envelope{Data: out}
	if err := json.Unmarshal(body, &env); err != nil {
		return backoff.Permanent(fmt.Errorf("storefront: decode response: %w", err))
	}
	if !env.Success {
		return backoff.Permanent(newAPIError(resp, body))
	}
	return nil
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
