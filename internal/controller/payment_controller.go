package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/marketing-genius/internal/errors"
	"github.com/unclebandit/marketing-genius/internal/paypal"
	"github.com/unclebandit/marketing-genius/internal/service"
)

const (
	subscriptionActivatedEvent = "BILLING.SUBSCRIPTION.ACTIVATED"
	defaultOrderPrice          = "20.00"
)

// PayPal is the part of the PayPal API the payment endpoints use.
type PayPal interface {
	CreateSubscription(ctx context.Context, email string) (*paypal.Subscription, error)
	VerifyWebhook(ctx context.Context, h http.Header, body []byte) (*paypal.WebhookEvent, bool, error)
	CreateOrder(ctx context.Context, price string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureResult, error)
}

type PaymentController struct {
	PayPal        PayPal
	Subscriptions *service.SubscriptionService
	Logger        *zap.Logger
}

func (c *PaymentController) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var body emailRequest
	if !decodeBody(w, r, &body) {
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := c.Subscriptions.CanUpgrade(r.Context(), email); err != nil {
		c.writeUpgradeError(w, email, err)
		return
	}

	sub, err := c.PayPal.CreateSubscription(r.Context(), email)
	if err != nil {
		c.Logger.Error("paypal subscription failed", zap.String("email", email), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Could not create PayPal subscription")
		return
	}
	if err := c.Subscriptions.AttachPayPalSubscription(r.Context(), email, sub.ID); err != nil {
		c.writeUpgradeError(w, email, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"approval_url": sub.ApprovalURL})
}

func (c *PaymentController) writeUpgradeError(w http.ResponseWriter, email string, err error) {
	if errors.Is(err, appErrors.ErrAlreadyPaid) {
		writeError(w, http.StatusBadRequest, "Email already has an active subscription")
		return
	}
	c.Logger.Error("store paypal subscription failed", zap.String("email", email), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Could not create PayPal subscription")
}

// Webhook handles PayPal notifications. Only subscription activation
// changes state; other verified events are acknowledged.
func (c *PaymentController) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	event, valid, err := c.PayPal.VerifyWebhook(r.Context(), r.Header, payload)
	if err != nil {
		c.Logger.Warn("webhook verification failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !valid {
		writeError(w, http.StatusBadRequest, "Invalid webhook signature")
		return
	}

	c.Logger.Info("paypal webhook", zap.String("event_id", event.ID), zap.String("event_type", event.EventType))
	if event.EventType == subscriptionActivatedEvent {
		if _, err := c.Subscriptions.ActivateByPayPalSubscription(r.Context(), event.Resource.ID, event.Resource.CustomID); err != nil {
			c.Logger.Error("activate subscription failed", zap.String("subscription_id", event.Resource.ID), zap.Error(err))
			writeError(w, http.StatusBadRequest, "failed to activate subscription")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (c *PaymentController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}
	var body struct {
		Cart []struct {
			Price any `json:"price"`
		} `json:"cart"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Cart) == 0 {
		writeError(w, http.StatusBadRequest, "Cart is required")
		return
	}

	price, err := orderPrice(body.Cart[0].Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid price format")
		return
	}

	order, err := c.PayPal.CreateOrder(r.Context(), price)
	if err != nil {
		c.writePayPalError(w, "Failed to create order", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": order.ID, "status": order.Status})
}

func (c *PaymentController) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}
	var body struct {
		PayerID string `json:"payerID"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.PayerID == "" {
		writeError(w, http.StatusBadRequest, "payerID is required")
		return
	}

	orderID := chi.URLParam(r, "id")
	result, err := c.PayPal.CaptureOrder(r.Context(), orderID)
	if err != nil {
		c.writePayPalError(w, "Failed to capture order", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writePayPalError passes PayPal rejections through as 400 and hides
// transport failures behind msg.
func (c *PaymentController) writePayPalError(w http.ResponseWriter, msg string, err error) {
	var apiErr *paypal.APIError
	if errors.As(err, &apiErr) {
		writeError(w, http.StatusBadRequest, apiErr.Body)
		return
	}
	c.Logger.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, msg)
}

// orderPrice accepts a JSON string or number and returns it with two
// decimals. A missing price falls back to the monthly plan price.
func orderPrice(raw any) (string, error) {
	var v float64
	switch p := raw.(type) {
	case nil:
		return defaultOrderPrice, nil
	case float64:
		v = p
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return "", err
		}
		v = f
	default:
		return "", fmt.Errorf("unsupported price type %T", raw)
	}
	if v <= 0 {
		return "", fmt.Errorf("price must be positive, got %v", v)
	}
	return strconv.FormatFloat(v, 'f', 2, 64), nil
}
