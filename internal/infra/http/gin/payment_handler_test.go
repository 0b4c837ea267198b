package ginserver_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltpay/internal/app/payments"
	"voltpay/internal/app/policies"
	"voltpay/internal/infra/config"
	ginserver "voltpay/internal/infra/http/gin"
	"voltpay/internal/infra/obs"
	"voltpay/internal/infra/storage/memory"
)

type testEnv struct {
	router   http.Handler
	gateway  *memory.Gateway
	sessions *memory.SessionRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gateway := memory.NewGateway()
	profiles := memory.NewProfileDirectory()
	sessions := memory.NewSessionRepository()
	profiles.Put(policies.PaymentProfile{
		CustomerID:             "cust-1",
		GatewayCustomerID:      "gw_cust_1",
		GatewayPaymentMethodID: "gw_pm_1",
	})
	service := &payments.Service{
		Gateway:     gateway,
		Profiles:    profiles,
		Sessions:    sessions,
		Idempotency: memory.NewIdempotencyStore(),
		Outbox:      memory.NewOutbox(),
		Defaults:    payments.HoldDefaults{AmountMajor: 50, Currency: "EUR"},
	}
	server := ginserver.NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{}, obs.HealthHandlers{}, ginserver.Handlers{
		Payments: ginserver.PaymentHandler{Service: service},
		Sessions: ginserver.SessionHandler{Sessions: sessions},
	})
	return &testEnv{router: server.Handler, gateway: gateway, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func TestHoldCaptureFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions", `{"id":"sess-1","customer_id":"cust-1","station_id":"st-9"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/payments/holds", `{"customer_id":"cust-1","session_id":"sess-1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	hold := decodeBody(t, rec)
	assert.Equal(t, "HOLD_OK", hold["status"])
	authID, _ := hold["authorization_id"].(string)
	require.NotEmpty(t, authID)

	rec = env.do(t, http.MethodGet, "/api/v1/sessions/sess-1/payment", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeBody(t, rec)
	assert.Equal(t, "HOLD_OK", state["payment_status"])
	assert.Equal(t, authID, state["authorization_id"])
	assert.Equal(t, float64(5000), state["hold_amount_cents"])
	assert.Equal(t, "EUR", state["currency"])

	rec = env.do(t, http.MethodPost, "/api/v1/payments/holds/"+authID+"/capture", `{"session_id":"sess-1","amount":12.34}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	capture := decodeBody(t, rec)
	assert.Equal(t, "CAPTURED", capture["status"])
	assert.Equal(t, float64(1234), capture["captured_amount_cents"])

	rec = env.do(t, http.MethodGet, "/api/v1/sessions/sess-1/payment", "", nil)
	state = decodeBody(t, rec)
	assert.Equal(t, "CAPTURED", state["payment_status"])
	assert.Equal(t, float64(1234), state["captured_amount_cents"])
	assert.NotEmpty(t, state["paid_at"])

	// a settled hold cannot be released
	rec = env.do(t, http.MethodPost, "/api/v1/payments/holds/"+authID+"/release", `{}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestHoldFailureMarksSessionFailed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/sessions", `{"id":"sess-1","customer_id":"stranger"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/payments/holds", `{"customer_id":"stranger","session_id":"sess-1"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/sessions/sess-1/payment", "", nil)
	state := decodeBody(t, rec)
	assert.Equal(t, "FAILED", state["payment_status"])
	assert.Equal(t, "CONFIGURATION_ERROR", state["last_error_code"])
}

func TestReleaseFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/sessions", `{"id":"sess-1","customer_id":"cust-1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/payments/holds", `{"customer_id":"cust-1","session_id":"sess-1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	authID := decodeBody(t, rec)["authorization_id"].(string)

	rec = env.do(t, http.MethodPost, "/api/v1/payments/holds/"+authID+"/release", `{"session_id":"sess-1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/sessions/sess-1/payment", "", nil)
	state := decodeBody(t, rec)
	assert.Equal(t, "RELEASED", state["payment_status"])

	// repeat release stays 200 and flags the no-op
	rec = env.do(t, http.MethodPost, "/api/v1/payments/holds/"+authID+"/release", `{"session_id":"sess-1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["already_released"])
}

func TestHoldIdempotencyKeyOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	headers := map[string]string{"Idempotency-Key": "key-1"}

	first := env.do(t, http.MethodPost, "/api/v1/payments/holds", `{"customer_id":"cust-1"}`, headers)
	require.Equal(t, http.StatusCreated, first.Code)
	second := env.do(t, http.MethodPost, "/api/v1/payments/holds", `{"customer_id":"cust-1"}`, headers)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, decodeBody(t, first)["authorization_id"], decodeBody(t, second)["authorization_id"])
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/payments/holds", `{"customer_id":"cust-1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	authID := decodeBody(t, rec)["authorization_id"].(string)

	rec = env.do(t, http.MethodGet, "/api/v1/payments/holds/"+authID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "requires_capture", body["status"])

	rec = env.do(t, http.MethodGet, "/api/v1/payments/holds/auth_999999", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestUnknownSessionReturns404(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/sessions/ghost/payment", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/payments/holds", `{"customer_id":"cust-1","session_id":"ghost"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
