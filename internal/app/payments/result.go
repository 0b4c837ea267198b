package payments

import (
	"fmt"
	"time"

	"voltpay/internal/app/policies"
	"voltpay/internal/domain/session"
)

// ErrorCode classifies expected operation failures.
type ErrorCode string

const (
	CodeConfigurationError ErrorCode = "CONFIGURATION_ERROR"
	CodeGatewayError       ErrorCode = "GATEWAY_ERROR"
	CodeInvalidState       ErrorCode = "INVALID_STATE"
	CodeTerminalState      ErrorCode = "TERMINAL_STATE"
	CodeNotFound           ErrorCode = "NOT_FOUND"
)

// Failure carries an expected failure as a value. Hold, capture, release and
// status operations never return Go errors for gateway or configuration
// problems, so callers orchestrating many sessions can persist a FAILED status
// and move on instead of aborting the batch.
type Failure struct {
	Code    ErrorCode `json:"error_code"`
	Message string    `json:"error_message"`
}

func failf(code ErrorCode, format string, args ...any) *Failure {
	return &Failure{Code: code, Message: fmt.Sprintf(format, args...)}
}

// HoldResult is the outcome of placing a fund hold.
type HoldResult struct {
	Status          session.PaymentStatus `json:"status"`
	AuthorizationID string                `json:"authorization_id,omitempty"`
	AmountCents     int64                 `json:"amount_cents,omitempty"`
	Currency        string                `json:"currency,omitempty"`
	Failure         *Failure              `json:"failure,omitempty"`
}

func (r HoldResult) Failed() bool { return r.Failure != nil }

func holdFailure(f *Failure) HoldResult {
	return HoldResult{Status: session.PaymentFailed, Failure: f}
}

// CaptureResult is the outcome of capturing a hold. AlreadyCaptured marks a
// retry that found the authorization settled; the amounts reported are the
// ones actually captured by the first call.
type CaptureResult struct {
	Status              session.PaymentStatus `json:"status"`
	AuthorizationID     string                `json:"authorization_id"`
	CapturedAmountCents int64                 `json:"captured_amount_cents,omitempty"`
	Currency            string                `json:"currency,omitempty"`
	CapturedAt          time.Time             `json:"captured_at,omitzero"`
	AlreadyCaptured     bool                  `json:"already_captured,omitempty"`
	Failure             *Failure              `json:"failure,omitempty"`
}

func (r CaptureResult) Failed() bool { return r.Failure != nil }

func captureFailure(id string, f *Failure) CaptureResult {
	return CaptureResult{Status: session.PaymentFailed, AuthorizationID: id, Failure: f}
}

// ReleaseResult is the outcome of cancelling a hold.
type ReleaseResult struct {
	Status          session.PaymentStatus `json:"status"`
	AuthorizationID string                `json:"authorization_id"`
	AlreadyReleased bool                  `json:"already_released,omitempty"`
	Failure         *Failure              `json:"failure,omitempty"`
}

func (r ReleaseResult) Failed() bool { return r.Failure != nil }

func releaseFailure(id string, f *Failure) ReleaseResult {
	return ReleaseResult{Status: session.PaymentFailed, AuthorizationID: id, Failure: f}
}

// StatusResult reports the current gateway-side view of an authorization.
type StatusResult struct {
	AuthorizationID     string                       `json:"authorization_id"`
	Status              policies.AuthorizationStatus `json:"status,omitempty"`
	AmountCents         int64                        `json:"amount_cents,omitempty"`
	CapturedAmountCents int64                        `json:"captured_amount_cents,omitempty"`
	Currency            string                       `json:"currency,omitempty"`
	Failure             *Failure                     `json:"failure,omitempty"`
}

func (r StatusResult) Failed() bool { return r.Failure != nil }
