package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"giftrank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSyncer struct {
	calls   atomic.Int32
	running atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
	err     error
}

func (s *countingSyncer) Run(ctx context.Context) (*models.SyncResult, error) {
	if s.running.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.running.Add(-1)

	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.SyncResult{}, nil
}

func TestStartSyncWorker_RunsImmediately(t *testing.T) {
	syncer := &countingSyncer{}

	stop := StartSyncWorker(context.Background(), syncer, time.Hour)
	defer stop()

	require.Eventually(t, func() bool { return syncer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStartSyncWorker_RunsOnEveryTick(t *testing.T) {
	syncer := &countingSyncer{}

	stop := StartSyncWorker(context.Background(), syncer, 10*time.Millisecond)
	defer stop()

	require.Eventually(t, func() bool { return syncer.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestStartSyncWorker_NeverOverlaps(t *testing.T) {
	syncer := &countingSyncer{delay: 30 * time.Millisecond}

	stop := StartSyncWorker(context.Background(), syncer, time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	stop()

	assert.False(t, syncer.overlap.Load())
	assert.GreaterOrEqual(t, syncer.calls.Load(), int32(2))
}

func TestStartSyncWorker_KeepsRunningAfterFailure(t *testing.T) {
	syncer := &countingSyncer{err: errors.New("gateway down")}

	stop := StartSyncWorker(context.Background(), syncer, 10*time.Millisecond)
	defer stop()

	require.Eventually(t, func() bool { return syncer.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestStartSyncWorker_StopIsIdempotentAndWaits(t *testing.T) {
	syncer := &countingSyncer{delay: time.Hour}

	stop := StartSyncWorker(context.Background(), syncer, time.Hour)
	require.Eventually(t, func() bool { return syncer.running.Load() == 1 }, time.Second, 5*time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stop()
		}()
	}
	wg.Wait()

	// stop cancels the in-flight cycle and waits for it
	assert.Equal(t, int32(0), syncer.running.Load())
}

func TestStartSyncWorker_ContextCancellation(t *testing.T) {
	syncer := &countingSyncer{}
	ctx, cancel := context.WithCancel(context.Background())

	stop := StartSyncWorker(ctx, syncer, 10*time.Millisecond)
	require.Eventually(t, func() bool { return syncer.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	stop()

	calls := syncer.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, syncer.calls.Load())
}
