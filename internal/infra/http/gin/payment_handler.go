package ginserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"voltpay/internal/app/payments"
	"voltpay/internal/domain/session"
)

// PaymentHandler exposes the hold/capture lifecycle over HTTP and plays the
// session-completion workflow's role of routing every outcome through the
// session synchronizer.
type PaymentHandler struct {
	Service *payments.Service
	Logger  *slog.Logger
}

type placeHoldRequest struct {
	CustomerID  string  `json:"customer_id"`
	SessionID   string  `json:"session_id"`
	AmountMajor float64 `json:"amount"`
	Currency    string  `json:"currency"`
}

func (h PaymentHandler) PlaceHold(c *gin.Context) {
	var req placeHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result := h.Service.PlaceHold(c.Request.Context(), payments.HoldParams{
		CustomerID:     req.CustomerID,
		AmountMajor:    req.AmountMajor,
		Currency:       req.Currency,
		SessionID:      req.SessionID,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})

	if req.SessionID != "" {
		patch := session.PaymentPatch{Status: &result.Status}
		if result.Failed() {
			code := string(result.Failure.Code)
			patch.LastErrorCode = &code
			patch.LastErrorMessage = &result.Failure.Message
		} else {
			patch.AuthorizationID = &result.AuthorizationID
			patch.HoldAmountCents = &result.AmountCents
			patch.Currency = &result.Currency
		}
		if !h.syncOutcome(c, session.SessionID(req.SessionID), patch) {
			return
		}
	}

	if result.Failed() {
		c.JSON(failureStatus(result.Failure), result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type captureRequest struct {
	SessionID   string   `json:"session_id"`
	AmountMajor *float64 `json:"amount"`
}

func (h PaymentHandler) Capture(c *gin.Context) {
	var req captureRequest
	// An empty body means a plain full capture with no session to update.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result := h.Service.Capture(c.Request.Context(), payments.CaptureParams{
		AuthorizationID: c.Param("id"),
		AmountMajor:     req.AmountMajor,
		SessionID:       req.SessionID,
	})

	if req.SessionID != "" {
		patch := session.PaymentPatch{Status: &result.Status}
		if result.Failed() {
			code := string(result.Failure.Code)
			patch.LastErrorCode = &code
			patch.LastErrorMessage = &result.Failure.Message
		} else {
			patch.AuthorizationID = &result.AuthorizationID
			patch.CapturedAmountCents = &result.CapturedAmountCents
			patch.PaidAt = &result.CapturedAt
		}
		if !h.syncOutcome(c, session.SessionID(req.SessionID), patch) {
			return
		}
	}

	if result.Failed() {
		c.JSON(failureStatus(result.Failure), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

type releaseRequest struct {
	SessionID string `json:"session_id"`
}

func (h PaymentHandler) Release(c *gin.Context) {
	var req releaseRequest
	_ = c.ShouldBindJSON(&req)
	result := h.Service.Release(c.Request.Context(), c.Param("id"))

	if req.SessionID != "" {
		patch := session.PaymentPatch{Status: &result.Status}
		if result.Failed() {
			code := string(result.Failure.Code)
			patch.LastErrorCode = &code
			patch.LastErrorMessage = &result.Failure.Message
		}
		if !h.syncOutcome(c, session.SessionID(req.SessionID), patch) {
			return
		}
	}

	if result.Failed() {
		c.JSON(failureStatus(result.Failure), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PaymentHandler) Status(c *gin.Context) {
	result := h.Service.Status(c.Request.Context(), c.Param("id"))
	if result.Failed() {
		c.JSON(failureStatus(result.Failure), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// syncOutcome persists the payment outcome onto the session. A missing session
// or a lost write race aborts the request; an invalid transition (say, marking
// a captured session FAILED after a rejected release) is logged and skipped,
// the gateway outcome still stands.
func (h PaymentHandler) syncOutcome(c *gin.Context, id session.SessionID, patch session.PaymentPatch) bool {
	_, err := h.Service.SyncSession(c.Request.Context(), id, patch)
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return false
	case errors.Is(err, session.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return false
	case errors.Is(err, session.ErrInvalidTransition):
		if h.Logger != nil {
			h.Logger.Warn("payment outcome not applied to session", "session_id", id, "error", err)
		}
		return true
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return false
	}
}

func failureStatus(f *payments.Failure) int {
	switch f.Code {
	case payments.CodeConfigurationError:
		return http.StatusUnprocessableEntity
	case payments.CodeInvalidState, payments.CodeTerminalState:
		return http.StatusConflict
	case payments.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

var _ PaymentHTTP = PaymentHandler{}
