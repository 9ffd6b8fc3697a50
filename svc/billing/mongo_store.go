package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const subscriptionsCollection = "subscriptions"

// MongoStore is the production Store backed by a MongoDB collection.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore creates a subscription store on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(subscriptionsCollection)}
}

// EnsureIndexes creates the unique order id index (the idempotency key) and
// the sweep index. Call once at startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "end_date", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription indexes: %w", err)
	}
	return nil
}

// subscriptionDoc is the bson shape of a subscription. IDs are stored as
// strings to keep the documents readable and driver-version agnostic.
type subscriptionDoc struct {
	ID           string     `bson:"_id"`
	UserID       string     `bson:"user_id"`
	Plan         string     `bson:"plan"`
	Amount       int64      `bson:"amount"`
	OrderID      string     `bson:"order_id"`
	Status       string     `bson:"status"`
	StartDate    *time.Time `bson:"start_date,omitempty"`
	EndDate      *time.Time `bson:"end_date,omitempty"`
	PaymentDate  *time.Time `bson:"payment_date,omitempty"`
	ReminderDays int        `bson:"reminder_days,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func toDoc(sub *Subscription) subscriptionDoc {
	return subscriptionDoc{
		ID:           sub.ID.String(),
		UserID:       sub.UserID.String(),
		Plan:         string(sub.Plan),
		Amount:       sub.Amount,
		OrderID:      sub.OrderID,
		Status:       string(sub.Status),
		StartDate:    sub.StartDate,
		EndDate:      sub.EndDate,
		PaymentDate:  sub.PaymentDate,
		ReminderDays: sub.ReminderDays,
		CreatedAt:    sub.CreatedAt,
		UpdatedAt:    sub.UpdatedAt,
	}
}

func (d subscriptionDoc) toDomain() (*Subscription, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid subscription id %q: %w", d.ID, err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", d.UserID, err)
	}
	return &Subscription{
		ID:           id,
		UserID:       userID,
		Plan:         Plan(d.Plan),
		Amount:       d.Amount,
		OrderID:      d.OrderID,
		Status:       Status(d.Status),
		StartDate:    d.StartDate,
		EndDate:      d.EndDate,
		PaymentDate:  d.PaymentDate,
		ReminderDays: d.ReminderDays,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

func (s *MongoStore) Create(ctx context.Context, sub *Subscription) error {
	if _, err := s.col.InsertOne(ctx, toDoc(sub)); err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByOrderID(ctx context.Context, orderID string) (*Subscription, error) {
	return s.findOne(ctx, bson.M{"order_id": orderID}, nil)
}

func (s *MongoStore) FindLatestByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findOne(ctx, bson.M{"user_id": userID.String()}, opts)
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptionsBuilder) (*Subscription, error) {
	var doc subscriptionDoc
	var err error
	if opts != nil {
		err = s.col.FindOne(ctx, filter, opts).Decode(&doc)
	} else {
		err = s.col.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return doc.toDomain()
}

// transition applies a guarded status change: the update filter matches the
// record only while its status is one of the allowed predecessors, so the
// check and the write are a single atomic operation on the server.
func (s *MongoStore) transition(ctx context.Context, id uuid.UUID, to Status, set bson.M) (bool, error) {
	from := Predecessors(to)
	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}

	set["status"] = string(to)
	set["updated_at"] = time.Now().UTC()

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id.String(), "status": bson.M{"$in": statuses}},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition subscription to %s: %w", to, err)
	}
	return res.ModifiedCount == 1, nil
}

func (s *MongoStore) MarkActive(ctx context.Context, id uuid.UUID, start, end, paid time.Time) (bool, error) {
	return s.transition(ctx, id, StatusActive, bson.M{
		"start_date":   start,
		"end_date":     end,
		"payment_date": paid,
	})
}

func (s *MongoStore) MarkChallenge(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.transition(ctx, id, StatusChallenge, bson.M{})
}

func (s *MongoStore) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.transition(ctx, id, StatusFailed, bson.M{})
}

func (s *MongoStore) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.transition(ctx, id, StatusExpired, bson.M{})
}

func (s *MongoStore) ExpireActiveExcept(ctx context.Context, userID uuid.UUID, keep uuid.UUID) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{
			"user_id": userID.String(),
			"status":  string(StatusActive),
			"_id":     bson.M{"$ne": keep.String()},
		},
		bson.M{"$set": bson.M{"status": string(StatusExpired), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire superseded subscriptions: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) MarkReminded(ctx context.Context, id uuid.UUID, days int) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{
			"_id":           id.String(),
			"status":        string(StatusActive),
			"reminder_days": bson.M{"$ne": days},
		},
		bson.M{"$set": bson.M{"reminder_days": days, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark subscription reminded: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (s *MongoStore) ListActiveEndedBefore(ctx context.Context, t time.Time) ([]Subscription, error) {
	return s.list(ctx, bson.M{
		"status":   string(StatusActive),
		"end_date": bson.M{"$lt": t},
	})
}

func (s *MongoStore) ListActiveEndingWithin(ctx context.Context, from, to time.Time) ([]Subscription, error) {
	return s.list(ctx, bson.M{
		"status":   string(StatusActive),
		"end_date": bson.M{"$gt": from, "$lte": to},
	})
}

func (s *MongoStore) list(ctx context.Context, filter bson.M) ([]Subscription, error) {
	cur, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer cur.Close(ctx)

	var docs []subscriptionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode subscriptions: %w", err)
	}

	subs := make([]Subscription, 0, len(docs))
	for _, d := range docs {
		sub, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, nil
}
