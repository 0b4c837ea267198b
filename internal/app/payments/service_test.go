package payments_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltpay/internal/app/payments"
	"voltpay/internal/app/policies"
	"voltpay/internal/domain/session"
	"voltpay/internal/infra/storage/memory"
)

type fixture struct {
	service  *payments.Service
	gateway  *memory.Gateway
	profiles *memory.ProfileDirectory
	sessions *memory.SessionRepository
	outbox   *memory.Outbox
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gateway:  memory.NewGateway(),
		profiles: memory.NewProfileDirectory(),
		sessions: memory.NewSessionRepository(),
		outbox:   memory.NewOutbox(),
		now:      time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	f.profiles.Put(policies.PaymentProfile{
		CustomerID:             "cust-1",
		GatewayCustomerID:      "gw_cust_1",
		GatewayPaymentMethodID: "gw_pm_1",
	})
	f.service = &payments.Service{
		Gateway:     f.gateway,
		Profiles:    f.profiles,
		Sessions:    f.sessions,
		Idempotency: memory.NewIdempotencyStore(),
		Outbox:      f.outbox,
		Defaults:    payments.HoldDefaults{AmountMajor: 50, Currency: "EUR"},
		Clock:       func() time.Time { return f.now },
	}
	return f
}

func (f *fixture) registerSession(t *testing.T, id string) {
	t.Helper()
	sess, err := session.NewChargingSession(session.CreateParams{
		ID:         session.SessionID(id),
		CustomerID: "cust-1",
		StartedAt:  f.now,
	})
	require.NoError(t, err)
	require.NoError(t, f.sessions.Save(context.Background(), sess))
}

func TestPlaceHoldWithDefaults(t *testing.T) {
	f := newFixture(t)

	res := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1"})
	require.False(t, res.Failed(), "unexpected failure: %+v", res.Failure)
	assert.Equal(t, session.PaymentHoldOK, res.Status)
	assert.NotEmpty(t, res.AuthorizationID)
	assert.Equal(t, int64(5000), res.AmountCents)
	assert.Equal(t, "EUR", res.Currency)
}

func TestPlaceHoldExplicitAmount(t *testing.T) {
	f := newFixture(t)

	res := f.service.PlaceHold(context.Background(), payments.HoldParams{
		CustomerID:  "cust-1",
		AmountMajor: 19.99,
		Currency:    "USD",
	})
	require.False(t, res.Failed())
	assert.Equal(t, int64(1999), res.AmountCents)
	assert.Equal(t, "USD", res.Currency)
}

func TestPlaceHoldWithoutProfile(t *testing.T) {
	f := newFixture(t)

	res := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "stranger"})
	require.True(t, res.Failed())
	assert.Equal(t, session.PaymentFailed, res.Status)
	assert.Equal(t, payments.CodeConfigurationError, res.Failure.Code)
}

func TestPlaceHoldWithoutSavedPaymentMethod(t *testing.T) {
	f := newFixture(t)
	f.profiles.Put(policies.PaymentProfile{
		CustomerID:        "cust-2",
		GatewayCustomerID: "gw_cust_2",
	})

	res := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-2"})
	require.True(t, res.Failed())
	assert.Equal(t, payments.CodeConfigurationError, res.Failure.Code)
	assert.Contains(t, res.Failure.Message, "no saved payment method")
}

func TestPlaceHoldGatewayRejection(t *testing.T) {
	f := newFixture(t)
	f.gateway.CreateErr = errors.New("card declined")

	res := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1"})
	require.True(t, res.Failed())
	assert.Equal(t, payments.CodeGatewayError, res.Failure.Code)
	assert.Contains(t, res.Failure.Message, "card declined")
}

func TestPlaceHoldAsynchronousConfirmation(t *testing.T) {
	f := newFixture(t)
	f.gateway.CreateStatus = policies.AuthorizationPending

	res := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1"})
	require.False(t, res.Failed())
	assert.Equal(t, session.PaymentHoldPending, res.Status)
}

func TestPlaceHoldIdempotencyKeyReplaysOutcome(t *testing.T) {
	f := newFixture(t)
	params := payments.HoldParams{CustomerID: "cust-1", IdempotencyKey: "key-1"}

	first := f.service.PlaceHold(context.Background(), params)
	require.False(t, first.Failed())
	second := f.service.PlaceHold(context.Background(), params)
	require.False(t, second.Failed())
	assert.Equal(t, first.AuthorizationID, second.AuthorizationID)

	// a different key reserves a new authorization
	third := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1", IdempotencyKey: "key-2"})
	require.False(t, third.Failed())
	assert.NotEqual(t, first.AuthorizationID, third.AuthorizationID)
}

func TestPlaceHoldGatewayFaultStaysRetryable(t *testing.T) {
	f := newFixture(t)
	params := payments.HoldParams{CustomerID: "cust-1", IdempotencyKey: "key-1"}

	f.gateway.CreateErr = errors.New("gateway timeout")
	first := f.service.PlaceHold(context.Background(), params)
	require.True(t, first.Failed())
	require.Equal(t, payments.CodeGatewayError, first.Failure.Code)

	f.gateway.CreateErr = nil
	retry := f.service.PlaceHold(context.Background(), params)
	require.False(t, retry.Failed(), "transient fault must not be replayed: %+v", retry.Failure)
	assert.Equal(t, session.PaymentHoldOK, retry.Status)
}

func TestCaptureFullAmount(t *testing.T) {
	f := newFixture(t)
	hold := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1"})
	require.False(t, hold.Failed())

	res := f.service.Capture(context.Background(), payments.CaptureParams{AuthorizationID: hold.AuthorizationID})
	require.False(t, res.Failed(), "unexpected failure: %+v", res.Failure)
	assert.Equal(t, session.PaymentCaptured, res.Status)
	assert.Equal(t, hold.AmountCents, res.CapturedAmountCents)
	assert.Equal(t, f.now, res.CapturedAt, "capture time comes from the service clock")
	assert.False(t, res.AlreadyCaptured)
}

func TestCapturePartialAmount(t *testing.T) {
	f := newFixture(t)
	hold := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1"})
	require.False(t, hold.Failed())

	amount := 12.34
	res := f.service.Capture(context.Background(), payments.CaptureParams{
		AuthorizationID: hold.AuthorizationID,
		AmountMajor:     &amount,
	})
	require.False(t, res.Failed())
	assert.Equal(t, int64(1234), res.CapturedAmountCents)
}

func TestCapturePartialAmountExceedsHold(t *testing.T) {
	f := newFixture(t)
	hold := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1"})
	require.False(t, hold.Failed())

	amount := 60.0
	res := f.service.Capture(context.Background(), payments.CaptureParams{
		AuthorizationID: hold.AuthorizationID,
		AmountMajor:     &amount,
	})
	require.True(t, res.Failed())
	assert.Equal(t, payments.CodeInvalidState, res.Failure.Code)

	// the hold survives a rejected partial capture
	st := f.service.Status(context.Background(), hold.AuthorizationID)
	assert.Equal(t, policies.AuthorizationRequiresCapture, st.Status)
}

func TestCaptureRetryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	hold := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1"})
	require.False(t, hold.Failed())

	amount := 10.0
	first := f.service.Capture(context.Background(), payments.CaptureParams{
		AuthorizationID: hold.AuthorizationID,
		AmountMajor:     &amount,
	})
	require.False(t, first.Failed())

	retry := f.service.Capture(context.Background(), payments.CaptureParams{AuthorizationID: hold.AuthorizationID})
	require.False(t, retry.Failed())
	assert.True(t, retry.AlreadyCaptured)
	assert.Equal(t, int64(1000), retry.CapturedAmountCents, "retry reports the amount the first call took")
}

func TestCaptureReleasedHold(t *testing.T) {
	f := newFixture(t)
	hold := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1"})
	require.False(t, hold.Failed())
	require.False(t, f.service.Release(context.Background(), hold.AuthorizationID).Failed())

	res := f.service.Capture(context.Background(), payments.CaptureParams{AuthorizationID: hold.AuthorizationID})
	require.True(t, res.Failed())
	assert.Equal(t, payments.CodeInvalidState, res.Failure.Code)
}

func TestCaptureUnknownAuthorization(t *testing.T) {
	f := newFixture(t)

	res := f.service.Capture(context.Background(), payments.CaptureParams{AuthorizationID: "auth_999999"})
	require.True(t, res.Failed())
	assert.Equal(t, payments.CodeGatewayError, res.Failure.Code)
}

func TestReleaseHold(t *testing.T) {
	f := newFixture(t)
	hold := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1"})
	require.False(t, hold.Failed())

	res := f.service.Release(context.Background(), hold.AuthorizationID)
	require.False(t, res.Failed())
	assert.Equal(t, session.PaymentReleased, res.Status)
	assert.False(t, res.AlreadyReleased)

	retry := f.service.Release(context.Background(), hold.AuthorizationID)
	require.False(t, retry.Failed())
	assert.True(t, retry.AlreadyReleased)
}

func TestReleaseCapturedHold(t *testing.T) {
	f := newFixture(t)
	hold := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1"})
	require.False(t, hold.Failed())
	require.False(t, f.service.Capture(context.Background(), payments.CaptureParams{AuthorizationID: hold.AuthorizationID}).Failed())

	res := f.service.Release(context.Background(), hold.AuthorizationID)
	require.True(t, res.Failed())
	assert.Equal(t, payments.CodeTerminalState, res.Failure.Code)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	hold := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1"})
	require.False(t, hold.Failed())

	res := f.service.Status(context.Background(), hold.AuthorizationID)
	require.False(t, res.Failed())
	assert.Equal(t, policies.AuthorizationRequiresCapture, res.Status)
	assert.Equal(t, int64(5000), res.AmountCents)
	assert.Equal(t, int64(0), res.CapturedAmountCents)

	missing := f.service.Status(context.Background(), "")
	require.True(t, missing.Failed())
	assert.Equal(t, payments.CodeConfigurationError, missing.Failure.Code)
}
