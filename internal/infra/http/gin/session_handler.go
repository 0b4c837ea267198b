package ginserver

import (
	"errors"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"voltpay/internal/domain/session"
)

// SessionHandler registers charging sessions and serves their payment state.
type SessionHandler struct {
	Sessions session.Repository
}

type registerSessionRequest struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	StationID   string    `json:"station_id"`
	ConnectorID int       `json:"connector_id"`
	StartedAt   time.Time `json:"started_at"`
}

func (h SessionHandler) Register(c *gin.Context) {
	var req registerSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.StartedAt.IsZero() {
		req.StartedAt = time.Now().UTC()
	}

	sess, err := session.NewChargingSession(session.CreateParams{
		ID:          session.SessionID(req.ID),
		CustomerID:  req.CustomerID,
		StationID:   req.StationID,
		ConnectorID: req.ConnectorID,
		StartedAt:   req.StartedAt,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Sessions.Save(c.Request.Context(), sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": sess.ID, "payment_status": sess.PaymentStatus})
}

type sessionPaymentResponse struct {
	SessionID           session.SessionID     `json:"session_id"`
	PaymentStatus       session.PaymentStatus `json:"payment_status"`
	AuthorizationID     string                `json:"authorization_id,omitempty"`
	HoldAmountCents     int64                 `json:"hold_amount_cents,omitempty"`
	CapturedAmountCents int64                 `json:"captured_amount_cents,omitempty"`
	Currency            string                `json:"currency,omitempty"`
	LastErrorCode       string                `json:"last_error_code,omitempty"`
	LastErrorMessage    string                `json:"last_error_message,omitempty"`
	PaidAt              *time.Time            `json:"paid_at,omitempty"`
}

func (h SessionHandler) PaymentState(c *gin.Context) {
	sess, err := h.Sessions.ByID(c.Request.Context(), session.SessionID(c.Param("id")))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionPaymentResponse{
		SessionID:           sess.ID,
		PaymentStatus:       sess.PaymentStatus,
		AuthorizationID:     sess.GatewayAuthorizationID,
		HoldAmountCents:     sess.HoldAmountCents,
		CapturedAmountCents: sess.CapturedAmountCents,
		Currency:            sess.Currency,
		LastErrorCode:       sess.PaymentLastErrorCode,
		LastErrorMessage:    sess.PaymentLastErrorMessage,
		PaidAt:              sess.PaidAt,
	})
}

var _ SessionHTTP = SessionHandler{}
