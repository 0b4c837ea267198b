package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainsession "voltpay/internal/domain/session"
)

// SessionRepository persists charging sessions. Payment updates are
// conditional on the previously-read payment status so two writers racing the
// same session cannot both land their update.
type SessionRepository struct {
	col *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	col := db.Collection("charging_sessions")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "payment_status", Value: 1}, {Key: "updated_at", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &SessionRepository{col: col}
}

func (r *SessionRepository) ByID(ctx context.Context, id domainsession.SessionID) (*domainsession.ChargingSession, error) {
	var doc sessionDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainsession.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *SessionRepository) Save(ctx context.Context, s *domainsession.ChargingSession) error {
	doc := newSessionDocument(s)
	filter := bson.M{"_id": doc.ID, "version": s.Version}
	doc.Version = s.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainsession.ErrConflict
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainsession.ErrConflict
	}
	s.Version = doc.Version
	return nil
}

// UpdatePayment applies only the fields carried by the patch. The filter pins
// the payment status read before the decision was made; a matched count of
// zero on an existing session means another writer won the race.
func (r *SessionRepository) UpdatePayment(ctx context.Context, id domainsession.SessionID, expected domainsession.PaymentStatus, patch domainsession.PaymentPatch, updatedAt time.Time) error {
	set := bson.M{"updated_at": updatedAt.UnixMilli()}
	if patch.Status != nil {
		set["payment_status"] = string(*patch.Status)
	}
	if patch.AuthorizationID != nil {
		set["gateway_authorization_id"] = *patch.AuthorizationID
	}
	if patch.HoldAmountCents != nil {
		set["hold_amount_cents"] = *patch.HoldAmountCents
	}
	if patch.CapturedAmountCents != nil {
		set["captured_amount_cents"] = *patch.CapturedAmountCents
	}
	if patch.Currency != nil {
		set["currency"] = *patch.Currency
	}
	if patch.LastErrorCode != nil {
		set["payment_last_error_code"] = *patch.LastErrorCode
	}
	if patch.LastErrorMessage != nil {
		set["payment_last_error_message"] = *patch.LastErrorMessage
	}
	if patch.PaidAt != nil {
		set["paid_at"] = patch.PaidAt.UnixMilli()
	}

	filter := bson.M{"_id": id, "payment_status": string(expected)}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": set, "$inc": bson.M{"version": int64(1)}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return domainsession.ErrNotFound
		}
		return domainsession.ErrConflict
	}
	return nil
}

func (r *SessionRepository) ListByPaymentStatus(ctx context.Context, status domainsession.PaymentStatus, limit int) ([]*domainsession.ChargingSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := r.col.Find(ctx, bson.M{"payment_status": string(status)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*domainsession.ChargingSession
	for cursor.Next(ctx) {
		var doc sessionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

func (r *SessionRepository) exists(ctx context.Context, id domainsession.SessionID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

type sessionDocument struct {
	ID                      string `bson:"_id"`
	CustomerID              string `bson:"customer_id"`
	StationID               string `bson:"station_id"`
	ConnectorID             int    `bson:"connector_id"`
	EnergyWh                int64  `bson:"energy_wh"`
	StartedAt               int64  `bson:"started_at"`
	EndedAt                 *int64 `bson:"ended_at,omitempty"`
	PaymentStatus           string `bson:"payment_status"`
	GatewayAuthorizationID  string `bson:"gateway_authorization_id"`
	HoldAmountCents         int64  `bson:"hold_amount_cents"`
	CapturedAmountCents     int64  `bson:"captured_amount_cents"`
	Currency                string `bson:"currency"`
	PaymentLastErrorCode    string `bson:"payment_last_error_code"`
	PaymentLastErrorMessage string `bson:"payment_last_error_message"`
	PaidAt                  *int64 `bson:"paid_at,omitempty"`
	CreatedAt               int64  `bson:"created_at"`
	UpdatedAt               int64  `bson:"updated_at"`
	Version                 int64  `bson:"version"`
}

func newSessionDocument(s *domainsession.ChargingSession) sessionDocument {
	doc := sessionDocument{
		ID:                      string(s.ID),
		CustomerID:              s.CustomerID,
		StationID:               s.StationID,
		ConnectorID:             s.ConnectorID,
		EnergyWh:                s.EnergyWh,
		StartedAt:               s.StartedAt.UnixMilli(),
		PaymentStatus:           string(s.PaymentStatus),
		GatewayAuthorizationID:  s.GatewayAuthorizationID,
		HoldAmountCents:         s.HoldAmountCents,
		CapturedAmountCents:     s.CapturedAmountCents,
		Currency:                s.Currency,
		PaymentLastErrorCode:    s.PaymentLastErrorCode,
		PaymentLastErrorMessage: s.PaymentLastErrorMessage,
		CreatedAt:               s.CreatedAt.UnixMilli(),
		UpdatedAt:               s.UpdatedAt.UnixMilli(),
		Version:                 s.Version,
	}
	if s.EndedAt != nil {
		ms := s.EndedAt.UnixMilli()
		doc.EndedAt = &ms
	}
	if s.PaidAt != nil {
		ms := s.PaidAt.UnixMilli()
		doc.PaidAt = &ms
	}
	return doc
}

func (d sessionDocument) toAggregate() *domainsession.ChargingSession {
	agg := &domainsession.ChargingSession{
		ID:                      domainsession.SessionID(d.ID),
		CustomerID:              d.CustomerID,
		StationID:               d.StationID,
		ConnectorID:             d.ConnectorID,
		EnergyWh:                d.EnergyWh,
		StartedAt:               timestampToTime(d.StartedAt),
		PaymentStatus:           domainsession.PaymentStatus(d.PaymentStatus),
		GatewayAuthorizationID:  d.GatewayAuthorizationID,
		HoldAmountCents:         d.HoldAmountCents,
		CapturedAmountCents:     d.CapturedAmountCents,
		Currency:                d.Currency,
		PaymentLastErrorCode:    d.PaymentLastErrorCode,
		PaymentLastErrorMessage: d.PaymentLastErrorMessage,
		CreatedAt:               timestampToTime(d.CreatedAt),
		UpdatedAt:               timestampToTime(d.UpdatedAt),
		Version:                 d.Version,
	}
	if d.EndedAt != nil {
		t := timestampToTime(*d.EndedAt)
		agg.EndedAt = &t
	}
	if d.PaidAt != nil {
		t := timestampToTime(*d.PaidAt)
		agg.PaidAt = &t
	}
	return agg
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
