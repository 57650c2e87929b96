// Package cartapi is the client for the remote cart service that owns
// authenticated users' carts. The storefront never mutates those carts
// locally; every operation round-trips to the service, and the response is
// normalized and broadcast so all consumers converge on the server's view.
package cartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/bus"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/normalize"
	apperrors "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/errors"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/httpclient"
)

const serviceName = "cart-api"

// Client talks to the remote cart service on behalf of signed-in users.
// The bearer token is supplied per call; the client holds no credentials.
type Client struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
	bus     *bus.Bus
	logger  *slog.Logger
}

// New creates a cart service client with retry and circuit breaker
// protection.
func New(baseURL string, b *bus.Bus, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	inner := httpclient.New(httpclient.DefaultConfig())
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.NewCircuitBreakerClient(inner, httpclient.DefaultCircuitBreakerConfig(serviceName), logger),
		bus:     b,
		logger:  logger,
	}
}

// addItemRequest is the add payload. Price is intentionally absent: the
// service prices lines from its own catalogue and a client-supplied price
// would be ignored at best.
type addItemRequest struct {
	ItemType   string  `json:"itemType"`
	ProductID  *string `json:"productId,omitempty"`
	MedicineID *string `json:"medicineId,omitempty"`
	Quantity   int     `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// Fetch retrieves the user's cart.
func (c *Client) Fetch(ctx context.Context, token string) (*domain.Cart, error) {
	return c.roundTrip(ctx, token, http.MethodGet, "/cart", nil)
}

// AddItem adds a catalogue entry to the user's cart.
func (c *Client) AddItem(ctx context.Context, token string, key domain.ItemKey, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		quantity = 1
	}
	req := addItemRequest{ItemType: key.ItemType, Quantity: quantity}
	if key.ItemType == domain.ItemTypeMedicine {
		req.MedicineID = &key.ID
	} else {
		req.ProductID = &key.ID
	}
	return c.roundTrip(ctx, token, http.MethodPost, "/cart/items", req)
}

// UpdateItem overwrites a line's quantity. Some deployments of the cart
// service reject non-positive quantities instead of treating them as a
// removal; when that happens the client falls back to deleting the line.
func (c *Client) UpdateItem(ctx context.Context, token, itemID string, quantity int) (*domain.Cart, error) {
	cart, err := c.roundTrip(ctx, token, http.MethodPut, "/cart/items/"+itemID, updateItemRequest{Quantity: quantity})
	if err != nil && quantity <= 0 && apperrors.HTTPStatus(err) < 500 {
		return c.RemoveItem(ctx, token, itemID)
	}
	return cart, err
}

// RemoveItem deletes a line from the user's cart.
func (c *Client) RemoveItem(ctx context.Context, token, itemID string) (*domain.Cart, error) {
	return c.roundTrip(ctx, token, http.MethodDelete, "/cart/items/"+itemID, nil)
}

// Clear empties the user's cart.
func (c *Client) Clear(ctx context.Context, token string) (*domain.Cart, error) {
	return c.roundTrip(ctx, token, http.MethodDelete, "/cart", nil)
}

// roundTrip executes one cart service call. On success the response body is
// normalized, broadcast on the event bus, and returned; the returned cart is
// nil when the service answered with a body carrying no recognizable cart.
func (c *Client) roundTrip(ctx context.Context, token, method, path string, payload any) (*domain.Cart, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("missing bearer token")
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s payload: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s unreachable: %w", serviceName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", serviceName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, translateError(resp.StatusCode, raw)
	}

	// Some deployments signal failure with a success:false envelope under a
	// 2xx status. The envelope's message is the real error.
	var envelope struct {
		Success *bool `json:"success"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Success != nil && !*envelope.Success {
		return nil, translateError(resp.StatusCode, raw)
	}

	cart := normalize.Normalize(raw)
	if cart == nil {
		c.logger.Debug("cart service response carried no cart",
			slog.String("method", method),
			slog.String("path", path),
		)
	}
	c.bus.Publish(json.RawMessage(raw))
	return cart, nil
}

// errorBody covers the error envelopes the cart service is known to emit.
// Message extraction prefers field-level validation entries, then the
// top-level message, then a generic status line.
type errorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func extractMessage(status int, raw []byte) string {
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		if len(body.Errors) > 0 {
			parts := make([]string, 0, len(body.Errors))
			for _, e := range body.Errors {
				if e.Message == "" {
					continue
				}
				if e.Field != "" {
					parts = append(parts, e.Field+": "+e.Message)
				} else {
					parts = append(parts, e.Message)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
		if body.Message != "" {
			return body.Message
		}
		if body.Error != nil && body.Error.Message != "" {
			return body.Error.Message
		}
	}
	return fmt.Sprintf("cart service returned status %d", status)
}

func translateError(status int, raw []byte) error {
	msg := extractMessage(status, raw)
	switch status {
	case http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case http.StatusNotFound:
		return apperrors.NotFound(serviceName, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(msg)
	case http.StatusConflict:
		return apperrors.Conflict(msg)
	case http.StatusServiceUnavailable:
		return apperrors.Unavailable(msg)
	default:
		if status >= 500 {
			return apperrors.Internal(fmt.Errorf("%s: %s", serviceName, msg))
		}
		return apperrors.InvalidInput(msg)
	}
}
