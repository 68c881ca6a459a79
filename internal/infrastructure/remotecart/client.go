package remotecart

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cartsession-backend/internal/domain"

	"github.com/goccy/go-json"
)

// Client is a thin wrapper around the authoritative cart endpoints.
// Every call is a single round trip returning the full updated cart
// document; nothing is retried here. Retry policy belongs to callers.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) domain.RemoteCartGateway {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type addItemReq struct {
	ProductRef string                    `json:"productRef"`
	Quantity   int                       `json:"quantity"`
	Variants   []domain.VariantSelection `json:"variants,omitempty"`
}

type updateQuantityReq struct {
	Quantity int `json:"quantity"`
}

type applyDiscountReq struct {
	Code string `json:"code"`
}

type errorResp struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) Fetch(ctx context.Context, userID string) (*domain.RemoteCart, error) {
	return c.do(ctx, http.MethodGet, c.cartURL(userID), userID, nil)
}

func (c *Client) Add(ctx context.Context, userID, productRef string, quantity int, variants []domain.VariantSelection) (*domain.RemoteCart, error) {
	return c.do(ctx, http.MethodPost, c.cartURL(userID)+"/items", userID, addItemReq{
		ProductRef: productRef,
		Quantity:   quantity,
		Variants:   variants,
	})
}

func (c *Client) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*domain.RemoteCart, error) {
	return c.do(ctx, http.MethodPut, c.cartURL(userID)+"/items/"+url.PathEscape(lineID), userID, updateQuantityReq{Quantity: quantity})
}

func (c *Client) Remove(ctx context.Context, userID, lineID string) (*domain.RemoteCart, error) {
	return c.do(ctx, http.MethodDelete, c.cartURL(userID)+"/items/"+url.PathEscape(lineID), userID, nil)
}

func (c *Client) Clear(ctx context.Context, userID string) (*domain.RemoteCart, error) {
	return c.do(ctx, http.MethodDelete, c.cartURL(userID), userID, nil)
}

func (c *Client) ApplyDiscount(ctx context.Context, userID, code string) (*domain.RemoteCart, error) {
	return c.do(ctx, http.MethodPost, c.cartURL(userID)+"/discount", userID, applyDiscountReq{Code: code})
}

func (c *Client) cartURL(userID string) string {
	return c.baseURL + "/carts/" + url.PathEscape(userID)
}

func (c *Client) do(ctx context.Context, method, endpoint, userID string, payload any) (*domain.RemoteCart, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote cart request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote cart response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ge := &domain.GatewayError{StatusCode: resp.StatusCode}
		var eresp errorResp
		if err := json.Unmarshal(raw, &eresp); err == nil {
			if eresp.Error != "" {
				ge.Message = eresp.Error
			} else {
				ge.Message = eresp.Message
			}
		}
		return nil, ge
	}

	var cart domain.RemoteCart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("failed to decode remote cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.CartLineItem{}
	}
	return &cart, nil
}
