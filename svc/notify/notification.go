package notify

import "time"

// Type tags a notification with the event that produced it.
type Type string

const (
	TypeNewApplicant         Type = "new_applicant"
	TypeStatusUpdate         Type = "status_update"
	TypeSubscriptionActive   Type = "subscription_active"
	TypeSubscriptionExpiring Type = "subscription_expiring"
	TypeSubscriptionExpired  Type = "subscription_expired"
)

// Notification is an immutable record of something the user should see.
// Created by the billing, job, and application paths; listed and marked
// read by the user. The persisted log is the record of truth, and live push
// over the stream endpoint is a best-effort duplicate.
type Notification struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Type      Type      `json:"type" bson:"type"`
	Message   string    `json:"message" bson:"message"`
	RelatedID string    `json:"related_id,omitempty" bson:"related_id,omitempty"`
	Read      bool      `json:"read" bson:"read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
