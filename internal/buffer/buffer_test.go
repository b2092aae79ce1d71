package buffer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPutDropOldestCapacityOne(t *testing.T) {
	b := NewVideo[int]()

	for i := 1; i <= 5; i++ {
		b.Put(i)
	}

	require.Equal(t, uint64(4), b.Stats().Dropped)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := b.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, got)
}

func TestPutNeverBlocks(t *testing.T) {
	b := NewVideo[int]()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Put(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Put blocked")
	}
}

func TestGetCancellation(t *testing.T) {
	b := NewVideo[int]()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := b.Get(ctx)
		errCh <- err
	}()
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Get did not observe cancellation")
	}
}

func TestAudioBufferDepth(t *testing.T) {
	b := NewAudio[int](0)
	require.Equal(t, DefaultAudioCapacity, cap(b.ch))
}

func TestFIFOUnderCapacity(t *testing.T) {
	b := New[int](4)
	for i := 1; i <= 4; i++ {
		b.Put(i)
	}
	require.Equal(t, uint64(0), b.Stats().Dropped)

	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		got, err := b.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, i, got)
	}
}
