package session

import (
	"context"
	"errors"
	"time"

	"voltpay/internal/domain/shared/events"
)

var (
	ErrNotFound          = errors.New("session: not found")
	ErrConflict          = errors.New("session: concurrent payment update detected")
	ErrInvalidTransition = errors.New("session: invalid payment status transition")
	ErrActiveHold        = errors.New("session: session already carries an active authorization")
	ErrCaptureExceedHold = errors.New("session: captured amount exceeds hold amount")
	ErrNegativeAmount    = errors.New("session: payment amounts must not be negative")
)

type SessionID string

// PaymentStatus tracks the billing lifecycle of a charging session.
type PaymentStatus string

const (
	PaymentNone        PaymentStatus = "NONE"
	PaymentHoldPending PaymentStatus = "HOLD_PENDING"
	PaymentHoldOK      PaymentStatus = "HOLD_OK"
	PaymentFailed      PaymentStatus = "FAILED"
	PaymentCaptured    PaymentStatus = "CAPTURED"
	PaymentReleased    PaymentStatus = "RELEASED"
)

// Terminal reports whether the status is absorbing: once a hold is captured or
// released no further payment transition is allowed on the session.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCaptured || s == PaymentReleased
}

// CanTransitionTo validates the payment state machine:
// NONE -> {HOLD_PENDING, HOLD_OK} -> {CAPTURED, RELEASED, FAILED},
// FAILED reachable from any non-terminal state, FAILED may retry with a new hold.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case PaymentNone, PaymentFailed:
		return next == PaymentHoldPending || next == PaymentHoldOK || next == PaymentFailed
	case PaymentHoldPending:
		return next == PaymentHoldOK || next == PaymentCaptured || next == PaymentReleased || next == PaymentFailed
	case PaymentHoldOK:
		return next == PaymentCaptured || next == PaymentReleased || next == PaymentFailed
	default:
		return false
	}
}

// ChargingSession is the persisted session entity. The payment core only reads
// and writes the payment fields; the rest is owned by the wider platform.
type ChargingSession struct {
	ID          SessionID
	CustomerID  string
	StationID   string
	ConnectorID int
	EnergyWh    int64
	StartedAt   time.Time
	EndedAt     *time.Time

	PaymentStatus           PaymentStatus
	GatewayAuthorizationID  string
	HoldAmountCents         int64
	CapturedAmountCents     int64
	Currency                string
	PaymentLastErrorCode    string
	PaymentLastErrorMessage string
	PaidAt                  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id SessionID) (*ChargingSession, error)
	Save(ctx context.Context, s *ChargingSession) error
	// UpdatePayment applies the patch only if the persisted payment status still
	// equals expected, returning ErrConflict when another writer got there first.
	UpdatePayment(ctx context.Context, id SessionID, expected PaymentStatus, patch PaymentPatch, updatedAt time.Time) error
	ListByPaymentStatus(ctx context.Context, status PaymentStatus, limit int) ([]*ChargingSession, error)
}

// PaymentPatch carries a partial payment update. Nil fields are left untouched
// so callers can update a subset without clobbering other payment data; a
// non-nil pointer to a zero value clears the field explicitly.
type PaymentPatch struct {
	Status              *PaymentStatus
	AuthorizationID     *string
	HoldAmountCents     *int64
	CapturedAmountCents *int64
	Currency            *string
	LastErrorCode       *string
	LastErrorMessage    *string
	PaidAt              *time.Time
}

// IsZero reports whether the patch carries no fields at all.
func (p PaymentPatch) IsZero() bool {
	return p.Status == nil && p.AuthorizationID == nil && p.HoldAmountCents == nil &&
		p.CapturedAmountCents == nil && p.Currency == nil && p.LastErrorCode == nil &&
		p.LastErrorMessage == nil && p.PaidAt == nil
}

type CreateParams struct {
	ID          SessionID
	CustomerID  string
	StationID   string
	ConnectorID int
	StartedAt   time.Time
}

func NewChargingSession(params CreateParams) (*ChargingSession, error) {
	if params.ID == "" {
		return nil, errors.New("session: id required")
	}
	if params.CustomerID == "" {
		return nil, errors.New("session: customer id required")
	}
	now := params.StartedAt.UTC()
	return &ChargingSession{
		ID:            params.ID,
		CustomerID:    params.CustomerID,
		StationID:     params.StationID,
		ConnectorID:   params.ConnectorID,
		StartedAt:     now,
		PaymentStatus: PaymentNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ApplyPaymentPatch validates and applies a partial payment update, recording
// the matching domain event on status transitions.
func (s *ChargingSession) ApplyPaymentPatch(patch PaymentPatch, now time.Time) error {
	next := s.PaymentStatus
	if patch.Status != nil {
		next = *patch.Status
		if !s.PaymentStatus.CanTransitionTo(next) {
			return ErrInvalidTransition
		}
	}
	if patch.AuthorizationID != nil && *patch.AuthorizationID != "" &&
		*patch.AuthorizationID != s.GatewayAuthorizationID && s.holdActive() {
		return ErrActiveHold
	}

	hold := s.HoldAmountCents
	captured := s.CapturedAmountCents
	if patch.HoldAmountCents != nil {
		hold = *patch.HoldAmountCents
	}
	if patch.CapturedAmountCents != nil {
		captured = *patch.CapturedAmountCents
	}
	if hold < 0 || captured < 0 {
		return ErrNegativeAmount
	}
	if captured > hold {
		return ErrCaptureExceedHold
	}

	changed := next != s.PaymentStatus
	s.HoldAmountCents = hold
	s.CapturedAmountCents = captured
	if patch.AuthorizationID != nil {
		s.GatewayAuthorizationID = *patch.AuthorizationID
	}
	if patch.Currency != nil {
		s.Currency = *patch.Currency
	}
	if patch.LastErrorCode != nil {
		s.PaymentLastErrorCode = *patch.LastErrorCode
	}
	if patch.LastErrorMessage != nil {
		s.PaymentLastErrorMessage = *patch.LastErrorMessage
	}
	if patch.PaidAt != nil {
		s.PaidAt = patch.PaidAt
	}
	s.PaymentStatus = next
	s.UpdatedAt = now.UTC()

	if changed {
		s.recordTransitionEvent(now.UTC())
	}
	return nil
}

func (s *ChargingSession) holdActive() bool {
	return s.GatewayAuthorizationID != "" &&
		(s.PaymentStatus == PaymentHoldPending || s.PaymentStatus == PaymentHoldOK)
}

func (s *ChargingSession) recordTransitionEvent(at time.Time) {
	switch s.PaymentStatus {
	case PaymentHoldPending, PaymentHoldOK:
		s.Record(PaymentHoldPlaced{
			SessionID:       s.ID,
			AuthorizationID: s.GatewayAuthorizationID,
			HoldAmountCents: s.HoldAmountCents,
			Currency:        s.Currency,
			Capturable:      s.PaymentStatus == PaymentHoldOK,
			At:              at,
		})
	case PaymentCaptured:
		s.Record(PaymentCaptureCompleted{
			SessionID:           s.ID,
			AuthorizationID:     s.GatewayAuthorizationID,
			CapturedAmountCents: s.CapturedAmountCents,
			Currency:            s.Currency,
			At:                  at,
		})
	case PaymentReleased:
		s.Record(PaymentHoldReleased{
			SessionID:       s.ID,
			AuthorizationID: s.GatewayAuthorizationID,
			At:              at,
		})
	case PaymentFailed:
		s.Record(PaymentAttemptFailed{
			SessionID:    s.ID,
			ErrorCode:    s.PaymentLastErrorCode,
			ErrorMessage: s.PaymentLastErrorMessage,
			At:           at,
		})
	}
}
