package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kerjago/kerjago/pkg/metrics"
	"github.com/kerjago/kerjago/pkg/sse"
)

// StreamDeliverer pushes notifications to the user's live stream
// connection. An offline user is not an error; the caller already
// persisted the notification.
type StreamDeliverer struct {
	registry *sse.Registry
}

// NewStreamDeliverer creates a deliverer over the live connection registry.
func NewStreamDeliverer(registry *sse.Registry) *StreamDeliverer {
	return &StreamDeliverer{registry: registry}
}

// Deliver serializes the notification and pushes it to the live connection
// if one exists. Returns an error only on serialization failure.
func (d *StreamDeliverer) Deliver(ctx context.Context, notif Notification) error {
	data, err := json.Marshal(notif)
	if err != nil {
		return fmt.Errorf("failed to serialize notification: %w", err)
	}

	if d.registry.Send(notif.UserID, sse.Event{Name: "notification", Data: data}) {
		metrics.NotificationsDelivered.WithLabelValues("delivered").Inc()
	} else {
		metrics.NotificationsDelivered.WithLabelValues("offline").Inc()
	}
	return nil
}
