// internal/controller/subscription_controller.go
package controller

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/marketing-genius/internal/errors"
	"github.com/unclebandit/marketing-genius/internal/model"
	"github.com/unclebandit/marketing-genius/internal/service"
)

type SubscriptionController struct {
	Service *service.SubscriptionService
	Logger  *zap.Logger
}

type emailRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (c *SubscriptionController) Subscribe(w http.ResponseWriter, r *http.Request) {
	var body emailRequest
	if !decodeBody(w, r, &body) {
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	sub, token, err := c.Service.Subscribe(r.Context(), email, strings.TrimSpace(body.Name))
	if err != nil {
		if appErrors.IsExists(err) {
			writeError(w, http.StatusBadRequest, "Email already subscribed")
			return
		}
		c.Logger.Error("subscribe failed", zap.String("email", email), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create subscription")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Trial subscription activated successfully",
		"token":     token,
		"trial_end": sub.TrialEnd.Format(time.RFC3339),
	})
}

type subscriptionStatus struct {
	*model.Subscription
	Features model.Features `json:"features"`
	Token    string         `json:"token,omitempty"`
}

func (c *SubscriptionController) CheckSubscription(w http.ResponseWriter, r *http.Request) {
	var body emailRequest
	if !decodeBody(w, r, &body) {
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	sub, err := c.Service.CheckSubscription(r.Context(), email)
	if err != nil {
		if appErrors.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "No subscription found")
			return
		}
		c.Logger.Error("check subscription failed", zap.String("email", email), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to check subscription")
		return
	}

	token, err := c.Service.IssueToken(sub)
	if err != nil {
		c.Logger.Error("issue token failed", zap.String("email", email), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to check subscription")
		return
	}

	writeJSON(w, http.StatusOK, subscriptionStatus{
		Subscription: sub,
		Features:     service.AvailableFeatures(sub),
		Token:        token,
	})
}
