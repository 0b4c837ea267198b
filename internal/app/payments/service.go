package payments

import (
	"context"
	"log/slog"
	"time"

	"voltpay/internal/app/outbox"
	"voltpay/internal/app/policies"
	"voltpay/internal/domain/session"
)

// IdempotencyRecord stores the first outcome seen for a client-supplied key so
// hold retries replay it instead of opening a second hold.
type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

// Receipt is the capture evidence archived to object storage.
type Receipt struct {
	AuthorizationID     string    `json:"authorization_id"`
	SessionID           string    `json:"session_id,omitempty"`
	CapturedAmountCents int64     `json:"captured_amount_cents"`
	Currency            string    `json:"currency"`
	CapturedAt          time.Time `json:"captured_at"`
}

type ReceiptArchive interface {
	Store(ctx context.Context, receipt Receipt) error
}

// HoldDefaults come from platform configuration and apply when the caller does
// not specify an amount or currency.
type HoldDefaults struct {
	AmountMajor float64
	Currency    string
}

// Service implements the payment hold/capture lifecycle against an injected
// gateway, profile directory and session store.
type Service struct {
	Gateway     policies.GatewayPort
	Profiles    policies.ProfileDirectory
	Sessions    session.Repository
	Idempotency IdempotencyStore
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Receipts    ReceiptArchive
	Defaults    HoldDefaults
	Logger      *slog.Logger
	Clock       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) encoder() outbox.EventEncoder {
	if s.Encoder != nil {
		return s.Encoder
	}
	return outbox.JSONEventEncoder{}
}
