// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

var (
	ErrInactiveSubscription = errors.New("active subscription required")
	ErrTrialLimitReached    = errors.New("trial analysis limit reached")
	ErrAlreadyPaid          = errors.New("subscription already active")
)

// ErrSubscriptionNotFound is returned when no subscription exists for an email
type ErrSubscriptionNotFound struct {
	Email string
}

func (e *ErrSubscriptionNotFound) Error() string {
	return fmt.Sprintf("no subscription found for %s", e.Email)
}

func NewSubscriptionNotFound(email string) error {
	return &ErrSubscriptionNotFound{Email: email}
}

// ErrSubscriptionExists is returned on a second signup with the same email
type ErrSubscriptionExists struct {
	Email string
}

func (e *ErrSubscriptionExists) Error() string {
	return fmt.Sprintf("%s is already subscribed", e.Email)
}

func NewSubscriptionExists(email string) error {
	return &ErrSubscriptionExists{Email: email}
}

// IsNotFound reports whether err is a subscription-not-found error.
func IsNotFound(err error) bool {
	var nf *ErrSubscriptionNotFound
	return errors.As(err, &nf)
}

func IsExists(err error) bool {
	var ex *ErrSubscriptionExists
	return errors.As(err, &ex)
}
