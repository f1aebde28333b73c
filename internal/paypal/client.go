package paypal

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

	"github.com/google/uuid"
)

// ErrNoApprovalLink is returned when PayPal creates a subscription without
// an approval URL for the buyer.
var ErrNoApprovalLink = errors.New("paypal: no approval link in response")

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	PlanID       string
	WebhookID    string
	ReturnURL    string
	CancelURL    string
	BrandName    string
}

// Client talks to the PayPal REST API with client-credential tokens.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.BrandName == "" {
		cfg.BrandName = "Marketing Genius Tool"
	}
	return &Client{cfg: cfg, http: httpClient}
}

// APIError is a non-2xx response from PayPal.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal: status %d: %s", e.Status, e.Body)
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

type Subscription struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Links       []Link `json:"links"`
	ApprovalURL string `json:"-"`
}

type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []Link `json:"links,omitempty"`
}

type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type CaptureResult struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []Capture `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("paypal token: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("paypal token: empty access token")
	}
	return out.AccessToken, nil
}

// call sends an authorized JSON request and decodes the JSON response into out.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("PayPal-Request-Id", uuid.NewString())
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// CreateSubscription starts a billing subscription on the configured plan
// and returns it with the buyer approval URL.
func (c *Client) CreateSubscription(ctx context.Context, email string) (*Subscription, error) {
	body := map[string]any{
		"plan_id":   c.cfg.PlanID,
		"custom_id": email,
		"subscriber": map[string]any{
			"email_address": email,
		},
		"application_context": map[string]any{
			"brand_name":          c.cfg.BrandName,
			"locale":              "en-US",
			"shipping_preference": "NO_SHIPPING",
			"user_action":         "SUBSCRIBE_NOW",
			"return_url":          c.cfg.ReturnURL,
			"cancel_url":          c.cfg.CancelURL,
		},
	}
	var sub Subscription
	if err := c.call(ctx, http.MethodPost, "/v1/billing/subscriptions", body, &sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	for _, l := range sub.Links {
		if l.Rel == "approve" {
			sub.ApprovalURL = l.Href
			break
		}
	}
	if sub.ApprovalURL == "" {
		return &sub, ErrNoApprovalLink
	}
	return &sub, nil
}

// WebhookEvent is the part of a PayPal webhook payload we act on.
type WebhookEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID       string `json:"id"`
		CustomID string `json:"custom_id"`
	} `json:"resource"`
}

// VerifyWebhook checks the transmission headers against PayPal and returns
// the decoded event when the signature is valid.
func (c *Client) VerifyWebhook(ctx context.Context, h http.Header, body []byte) (*WebhookEvent, bool, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, false, fmt.Errorf("decode webhook: %w", err)
	}

	req := map[string]any{
		"auth_algo":         h.Get("PAYPAL-AUTH-ALGO"),
		"cert_url":          h.Get("PAYPAL-CERT-URL"),
		"transmission_id":   h.Get("PAYPAL-TRANSMISSION-ID"),
		"transmission_sig":  h.Get("PAYPAL-TRANSMISSION-SIG"),
		"transmission_time": h.Get("PAYPAL-TRANSMISSION-TIME"),
		"webhook_id":        c.cfg.WebhookID,
		"webhook_event":     json.RawMessage(body),
	}
	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.call(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", req, &out); err != nil {
		return nil, false, fmt.Errorf("verify webhook: %w", err)
	}
	return &event, out.VerificationStatus == "SUCCESS", nil
}

// CreateOrder opens a one-off checkout order for price (USD, e.g. "20.00").
func (c *Client) CreateOrder(ctx context.Context, price string) (*Order, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"description": "Marketing Genius Premium Subscription",
			"amount": map[string]any{
				"currency_code": "USD",
				"value":         price,
			},
		}},
		"application_context": map[string]any{
			"brand_name": c.cfg.BrandName,
			"return_url": c.cfg.ReturnURL,
			"cancel_url": c.cfg.CancelURL,
		},
	}
	var order Order
	if err := c.call(ctx, http.MethodPost, "/v2/checkout/orders", body, &order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	var result CaptureResult
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.call(ctx, http.MethodPost, path, map[string]any{}, &result); err != nil {
		return nil, fmt.Errorf("capture order %s: %w", orderID, err)
	}
	return &result, nil
}
