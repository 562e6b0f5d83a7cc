package activity

import (
	"errors"
	"fmt"
	"math"

	"github.com/vburojevic/adjust/internal/domain"
)

const (
	appTokenLength   = 12
	eventTokenLength = 6
)

// Validation errors. Handlers log them and skip the call; nothing reaches
// the host as a returned error.
var (
	ErrMissingAppToken      = errors.New("missing app token")
	ErrMalformedAppToken    = errors.New("malformed app token")
	ErrMissingEventToken    = errors.New("missing event token")
	ErrMalformedEventToken  = errors.New("malformed event token")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrMissingActivityState = errors.New("missing activity state")
)

// ValidateAppToken checks the app token is present and 12 characters long.
func ValidateAppToken(token string) error {
	if token == "" {
		return ErrMissingAppToken
	}
	if len(token) != appTokenLength {
		return fmt.Errorf("%w '%s'", ErrMalformedAppToken, token)
	}
	return nil
}

// ValidateEventToken checks a required event token.
func ValidateEventToken(token string) error {
	if token == "" {
		return ErrMissingEventToken
	}
	return ValidateOptionalEventToken(token)
}

// ValidateOptionalEventToken accepts an empty token; a non-empty one must be
// 6 characters long.
func ValidateOptionalEventToken(token string) error {
	if token != "" && len(token) != eventTokenLength {
		return fmt.Errorf("%w '%s'", ErrMalformedEventToken, token)
	}
	return nil
}

// ValidateAmount rejects negative and non-finite revenue amounts.
func ValidateAmount(amountInCents float64) error {
	if amountInCents < 0 || math.IsNaN(amountInCents) || math.IsInf(amountInCents, 0) {
		return fmt.Errorf("%w %.1f", ErrInvalidAmount, amountInCents)
	}
	return nil
}

func validateState(state *domain.ActivityState) error {
	if state == nil {
		return ErrMissingActivityState
	}
	return nil
}
