package payments_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltpay/internal/app/payments"
	"voltpay/internal/app/policies"
	"voltpay/internal/domain/session"
)

func holdOKPatch(authID string, amountCents int64) session.PaymentPatch {
	status := session.PaymentHoldOK
	currency := "EUR"
	return session.PaymentPatch{
		Status:          &status,
		AuthorizationID: &authID,
		HoldAmountCents: &amountCents,
		Currency:        &currency,
	}
}

func TestSyncSessionAppliesPatch(t *testing.T) {
	f := newFixture(t)
	f.registerSession(t, "sess-1")

	res, err := f.service.SyncSession(context.Background(), "sess-1", holdOKPatch("auth_000001", 5000))
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, session.PaymentHoldOK, res.Session.PaymentStatus)
	assert.Equal(t, "auth_000001", res.Session.GatewayAuthorizationID)
	assert.Equal(t, int64(5000), res.Session.HoldAmountCents)

	stored, err := f.sessions.ByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, session.PaymentHoldOK, stored.PaymentStatus)
	assert.Equal(t, stored.Version, res.Session.Version, "returned aggregate mirrors the persisted version")

	records := f.outbox.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "payment.hold_placed", records[0].Name)
	assert.Equal(t, "sess-1", records[0].Aggregate)
}

func TestSyncSessionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.registerSession(t, "sess-1")
	patch := holdOKPatch("auth_000001", 5000)

	first, err := f.service.SyncSession(context.Background(), "sess-1", patch)
	require.NoError(t, err)
	require.True(t, first.Updated)
	version := first.Session.Version

	second, err := f.service.SyncSession(context.Background(), "sess-1", patch)
	require.NoError(t, err)
	assert.False(t, second.Updated, "same outcome routed twice must write once")
	assert.Equal(t, version, second.Session.Version)
	assert.Len(t, f.outbox.Records(), 1, "no duplicate event")
}

func TestSyncSessionEmptyPatchIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.registerSession(t, "sess-1")

	res, err := f.service.SyncSession(context.Background(), "sess-1", session.PaymentPatch{})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Empty(t, f.outbox.Records())
}

func TestSyncSessionUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SyncSession(context.Background(), "ghost", holdOKPatch("auth_000001", 5000))
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSyncSessionRejectsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	f.registerSession(t, "sess-1")
	_, err := f.service.SyncSession(context.Background(), "sess-1", holdOKPatch("auth_000001", 5000))
	require.NoError(t, err)

	captured := session.PaymentCaptured
	amount := int64(5000)
	_, err = f.service.SyncSession(context.Background(), "sess-1", session.PaymentPatch{
		Status:              &captured,
		CapturedAmountCents: &amount,
		PaidAt:              &f.now,
	})
	require.NoError(t, err)

	holdOK := session.PaymentHoldOK
	_, err = f.service.SyncSession(context.Background(), "sess-1", session.PaymentPatch{Status: &holdOK})
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
}

func TestSyncSessionRejectsCaptureAboveHold(t *testing.T) {
	f := newFixture(t)
	f.registerSession(t, "sess-1")
	_, err := f.service.SyncSession(context.Background(), "sess-1", holdOKPatch("auth_000001", 5000))
	require.NoError(t, err)

	captured := session.PaymentCaptured
	tooMuch := int64(6000)
	_, err = f.service.SyncSession(context.Background(), "sess-1", session.PaymentPatch{
		Status:              &captured,
		CapturedAmountCents: &tooMuch,
	})
	assert.ErrorIs(t, err, session.ErrCaptureExceedHold)
}

func TestReconcilePendingHolds(t *testing.T) {
	f := newFixture(t)
	f.gateway.CreateStatus = policies.AuthorizationPending

	for _, id := range []string{"sess-1", "sess-2", "sess-3"} {
		f.registerSession(t, id)
		hold := f.service.PlaceHold(context.Background(), payments.HoldParams{CustomerID: "cust-1", SessionID: id})
		require.False(t, hold.Failed())
		require.Equal(t, session.PaymentHoldPending, hold.Status)

		status := session.PaymentHoldPending
		_, err := f.service.SyncSession(context.Background(), session.SessionID(id), session.PaymentPatch{
			Status:          &status,
			AuthorizationID: &hold.AuthorizationID,
			HoldAmountCents: &hold.AmountCents,
		})
		require.NoError(t, err)
	}

	// the gateway confirmed one hold, captured another and lost the third
	f.gateway.SetStatus("auth_000001", policies.AuthorizationRequiresCapture)
	f.gateway.SetStatus("auth_000002", policies.AuthorizationSucceeded)
	f.gateway.SetStatus("auth_000003", policies.AuthorizationFailed)

	updated, err := f.service.ReconcilePendingHolds(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	first, err := f.sessions.ByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, session.PaymentHoldOK, first.PaymentStatus)

	second, err := f.sessions.ByID(context.Background(), "sess-2")
	require.NoError(t, err)
	assert.Equal(t, session.PaymentCaptured, second.PaymentStatus)
	require.NotNil(t, second.PaidAt)

	third, err := f.sessions.ByID(context.Background(), "sess-3")
	require.NoError(t, err)
	assert.Equal(t, session.PaymentFailed, third.PaymentStatus)
	assert.Equal(t, string(payments.CodeGatewayError), third.PaymentLastErrorCode)
}

func TestReconcileSkipsSessionsWithoutAuthorization(t *testing.T) {
	f := newFixture(t)
	f.registerSession(t, "sess-1")
	status := session.PaymentHoldPending
	_, err := f.service.SyncSession(context.Background(), "sess-1", session.PaymentPatch{Status: &status})
	require.NoError(t, err)

	updated, err := f.service.ReconcilePendingHolds(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, updated)
}
