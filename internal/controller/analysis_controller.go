package controller

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/unclebandit/marketing-genius/internal/auth"
	appErrors "github.com/unclebandit/marketing-genius/internal/errors"
	"github.com/unclebandit/marketing-genius/internal/service"
)

type AnalysisController struct {
	Service *service.AnalysisService
	Logger  *zap.Logger
}

// Analyze runs the engine for the subscriber identified by the trial token.
// A body email that disagrees with the token is rejected.
func (c *AnalysisController) Analyze(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email         string `json:"email"`
		URL           string `json:"url"`
		EmployeeCount *int   `json:"employee_count"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	email := strings.TrimSpace(body.Email)
	if tokenEmail, ok := auth.EmailFromContext(r.Context()); ok {
		if email != "" && !strings.EqualFold(email, tokenEmail) {
			writeError(w, http.StatusForbidden, "token does not match email")
			return
		}
		email = tokenEmail
	}
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	result, err := c.Service.Analyze(r.Context(), email, strings.TrimSpace(body.URL), body.EmployeeCount)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, service.ErrURLRequired):
		writeError(w, http.StatusBadRequest, "URL is required")
	case errors.Is(err, appErrors.ErrInactiveSubscription):
		writeError(w, http.StatusForbidden, "Active subscription required")
	case errors.Is(err, appErrors.ErrTrialLimitReached):
		writeError(w, http.StatusForbidden, "Trial analysis limit reached. Please subscribe to continue.")
	default:
		c.Logger.Error("analysis failed", zap.String("email", email), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}
