package session

import "time"

type PaymentHoldPlaced struct {
	SessionID       SessionID
	AuthorizationID string
	HoldAmountCents int64
	Currency        string
	Capturable      bool
	At              time.Time
}

func (e PaymentHoldPlaced) EventName() string     { return "payment.hold_placed" }
func (e PaymentHoldPlaced) AggregateID() string   { return string(e.SessionID) }
func (e PaymentHoldPlaced) OccurredAt() time.Time { return e.At }

type PaymentCaptureCompleted struct {
	SessionID           SessionID
	AuthorizationID     string
	CapturedAmountCents int64
	Currency            string
	At                  time.Time
}

func (e PaymentCaptureCompleted) EventName() string     { return "payment.captured" }
func (e PaymentCaptureCompleted) AggregateID() string   { return string(e.SessionID) }
func (e PaymentCaptureCompleted) OccurredAt() time.Time { return e.At }

type PaymentHoldReleased struct {
	SessionID       SessionID
	AuthorizationID string
	At              time.Time
}

func (e PaymentHoldReleased) EventName() string     { return "payment.hold_released" }
func (e PaymentHoldReleased) AggregateID() string   { return string(e.SessionID) }
func (e PaymentHoldReleased) OccurredAt() time.Time { return e.At }

type PaymentAttemptFailed struct {
	SessionID    SessionID
	ErrorCode    string
	ErrorMessage string
	At           time.Time
}

func (e PaymentAttemptFailed) EventName() string     { return "payment.failed" }
func (e PaymentAttemptFailed) AggregateID() string   { return string(e.SessionID) }
func (e PaymentAttemptFailed) OccurredAt() time.Time { return e.At }
