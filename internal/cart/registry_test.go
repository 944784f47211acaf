package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryOpenReplacesPreviousStore(t *testing.T) {
	reg := NewRegistry(RegistryOptions{Gateway: newStubGateway(), SessionTTL: time.Minute})
	userID := uuid.New()

	first, err := reg.Open(context.Background(), userID)
	require.NoError(t, err)
	second, err := reg.Open(context.Background(), userID)
	require.NoError(t, err)

	assert.True(t, first.Closed())
	got, ok := reg.Get(userID)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryAcquireReusesLiveStore(t *testing.T) {
	reg := NewRegistry(RegistryOptions{Gateway: newStubGateway()})
	userID := uuid.New()

	a := reg.Acquire(userID)
	b := reg.Acquire(userID)
	assert.Same(t, a, b)

	reg.Close(userID)
	assert.True(t, a.Closed())
	_, ok := reg.Get(userID)
	assert.False(t, ok)

	c := reg.Acquire(userID)
	assert.NotSame(t, a, c)
}

func TestRegistrySweepClosesIdleStores(t *testing.T) {
	reg := NewRegistry(RegistryOptions{Gateway: newStubGateway(), SessionTTL: time.Minute})
	now := time.Now()
	reg.now = func() time.Time { return now }

	idle := reg.Acquire(uuid.New())
	active := reg.Acquire(uuid.New())
	idle.lastUsed.Store(now.Add(-2 * time.Minute).UnixNano())
	active.lastUsed.Store(now.Add(-10 * time.Second).UnixNano())

	assert.Equal(t, 1, reg.Sweep())
	assert.True(t, idle.Closed())
	assert.False(t, active.Closed())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryCloseAll(t *testing.T) {
	reg := NewRegistry(RegistryOptions{Gateway: newStubGateway()})
	a := reg.Acquire(uuid.New())
	b := reg.Acquire(uuid.New())

	reg.CloseAll()
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
	assert.Zero(t, reg.Len())
}

func TestRegistryRunStopsWithContext(t *testing.T) {
	reg := NewRegistry(RegistryOptions{Gateway: newStubGateway(), SessionTTL: time.Nanosecond})
	store := reg.Acquire(uuid.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, store.Closed, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}
