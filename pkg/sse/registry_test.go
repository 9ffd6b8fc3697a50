package sse

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySend(t *testing.T) {
	t.Parallel()

	r := NewRegistry(4)
	conn := r.Register("user-1")

	assert.True(t, r.Send("user-1", Event{Name: "notification", Data: []byte(`{}`)}))
	assert.False(t, r.Send("user-2", Event{Name: "notification"}), "offline user")

	ev := <-conn.Events()
	assert.Equal(t, "notification", ev.Name)
}

func TestRegistryReplacesConnection(t *testing.T) {
	t.Parallel()

	r := NewRegistry(4)
	first := r.Register("user-1")
	second := r.Register("user-1")

	// The first connection's channel is closed by the replacement.
	_, open := <-first.Events()
	assert.False(t, open)

	require.True(t, r.Send("user-1", Event{Name: "notification"}))
	select {
	case ev := <-second.Events():
		assert.Equal(t, "notification", ev.Name)
	default:
		t.Fatal("event not delivered to the replacement connection")
	}

	assert.Equal(t, 1, r.Len())
}

func TestRegistryUnregisterOnlyCurrent(t *testing.T) {
	t.Parallel()

	r := NewRegistry(4)
	first := r.Register("user-1")
	second := r.Register("user-1")

	// The replaced connection's handler unwinds late; it must not evict
	// its successor.
	r.Unregister("user-1", first)
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Send("user-1", Event{Name: "notification"}))

	r.Unregister("user-1", second)
	assert.Zero(t, r.Len())
	assert.False(t, r.Send("user-1", Event{Name: "notification"}))
}

func TestRegistryDropsOnFullBuffer(t *testing.T) {
	t.Parallel()

	r := NewRegistry(1)
	r.Register("user-1")

	assert.True(t, r.Send("user-1", Event{Name: "first"}))
	assert.False(t, r.Send("user-1", Event{Name: "second"}), "full buffer drops instead of blocking")
}

func TestRegistrySendDuringReconnect(t *testing.T) {
	t.Parallel()

	// Reconnecting closes the previous connection's channel while the
	// billing and sweep paths may be mid-Send to the same user. A send
	// racing that close must report undelivered, never panic.
	r := NewRegistry(1)
	r.Register("user-1")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					r.Send("user-1", Event{Name: "notification"})
				}
			}
		}()
	}

	for n := 0; n < 20000; n++ {
		r.Register("user-1")
	}

	close(stop)
	wg.Wait()
	assert.Equal(t, 1, r.Len())
}

func TestRegistryClose(t *testing.T) {
	t.Parallel()

	r := NewRegistry(4)
	conn := r.Register("user-1")

	r.Close()

	_, open := <-conn.Events()
	assert.False(t, open)
	assert.False(t, r.Send("user-1", Event{Name: "notification"}))

	// Registering after close hands back an already-closed connection.
	late := r.Register("user-2")
	_, open = <-late.Events()
	assert.False(t, open)
}
