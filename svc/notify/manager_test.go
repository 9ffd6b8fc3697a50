package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDeliverer struct {
	mu        sync.Mutex
	delivered []Notification
	err       error
}

func (d *recordingDeliverer) Deliver(ctx context.Context, notif Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.delivered = append(d.delivered, notif)
	return nil
}

func TestManagerSend(t *testing.T) {
	t.Parallel()

	t.Run("stores then delivers", func(t *testing.T) {
		t.Parallel()
		storage := NewMemoryStorage()
		deliverer := &recordingDeliverer{}
		m := NewManager(storage, deliverer)

		err := m.Send(context.Background(), Notification{
			UserID:  "user-1",
			Type:    TypeSubscriptionActive,
			Message: "Your basic subscription is now active.",
		})
		require.NoError(t, err)

		list, err := m.List(context.Background(), "user-1", ListOptions{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.NotEmpty(t, list[0].ID, "Send assigns an ID")
		assert.False(t, list[0].CreatedAt.IsZero())

		require.Len(t, deliverer.delivered, 1)
		assert.Equal(t, list[0].ID, deliverer.delivered[0].ID)
	})

	t.Run("delivery failure does not fail Send", func(t *testing.T) {
		t.Parallel()
		storage := NewMemoryStorage()
		deliverer := &recordingDeliverer{err: errors.New("stream gone")}
		m := NewManager(storage, deliverer)

		err := m.Send(context.Background(), Notification{UserID: "user-1", Type: TypeStatusUpdate, Message: "hi"})
		require.NoError(t, err)

		list, err := m.List(context.Background(), "user-1", ListOptions{})
		require.NoError(t, err)
		assert.Len(t, list, 1, "notification is durable despite failed push")
	})

	t.Run("nil deliverer disables push only", func(t *testing.T) {
		t.Parallel()
		m := NewManager(NewMemoryStorage(), nil)

		err := m.Send(context.Background(), Notification{UserID: "user-1", Type: TypeStatusUpdate, Message: "hi"})
		require.NoError(t, err)

		count, err := m.CountUnread(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestManagerReadTracking(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	m := NewManager(storage, nil)
	ctx := context.Background()

	for n := 0; n < 3; n++ {
		require.NoError(t, m.Send(ctx, Notification{UserID: "user-1", Type: TypeNewApplicant, Message: "new applicant"}))
	}
	require.NoError(t, m.Send(ctx, Notification{UserID: "user-2", Type: TypeNewApplicant, Message: "new applicant"}))

	count, err := m.CountUnread(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	list, err := m.List(ctx, "user-1", ListOptions{OnlyUnread: true})
	require.NoError(t, err)
	require.Len(t, list, 3)

	require.NoError(t, m.MarkRead(ctx, "user-1", list[0].ID))

	count, err = m.CountUnread(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, m.MarkAllRead(ctx, "user-1"))

	count, err = m.CountUnread(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	// Another user's log is untouched.
	count, err = m.CountUnread(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStorageList(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, storage.Create(ctx, Notification{
			ID:        string(rune('a' + i)),
			UserID:    "user-1",
			Type:      TypeStatusUpdate,
			Message:   "update",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	list, err := storage.List(ctx, "user-1", ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, "e", list[0].ID, "newest first")

	list, err = storage.List(ctx, "user-1", ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "d", list[0].ID)
	assert.Equal(t, "c", list[1].ID)

	since := base.Add(2 * time.Hour)
	list, err = storage.List(ctx, "user-1", ListOptions{Since: &since})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
