package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateReject(t *testing.T) {
	g, err := NewGate(2, PolicyReject)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, g.Acquire(ctx))
	require.NoError(t, g.Acquire(ctx))
	assert.ErrorIs(t, g.Acquire(ctx), ErrBusy)
	assert.Equal(t, 2, g.InUse())

	g.Release()
	require.NoError(t, g.Acquire(ctx))
}

func TestGateQueue(t *testing.T) {
	g, err := NewGate(1, PolicyQueue)
	require.NoError(t, err)
	require.NoError(t, g.Acquire(context.Background()))

	acquired := make(chan error, 1)
	go func() {
		acquired <- g.Acquire(context.Background())
	}()

	select {
	case <-acquired:
		t.Fatal("queued acquire returned while the gate was full")
	case <-time.After(20 * time.Millisecond):
	}

	g.Release()
	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("queued acquire did not proceed after release")
	}
}

func TestGateQueueHonoursContext(t *testing.T) {
	g, err := NewGate(1, PolicyQueue)
	require.NoError(t, err)
	require.NoError(t, g.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = g.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, g.InUse())
}

func TestNewGate(t *testing.T) {
	g, err := NewGate(0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, g.Capacity())
	assert.Equal(t, PolicyReject, g.Policy())

	_, err = NewGate(1, "drop")
	assert.Error(t, err)
}
