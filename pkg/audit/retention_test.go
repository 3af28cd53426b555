package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (f *fakePruner) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleted, f.err
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestRetentionWorker_Sweep(t *testing.T) {
	store := &fakePruner{deleted: 3}
	core, logs := observer.New(zapcore.InfoLevel)
	worker := NewRetentionWorker(store, 30*24*time.Hour, time.Hour, zap.New(core))
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	worker.now = func() time.Time { return now }

	assert.Equal(t, int64(3), worker.Sweep(context.Background()))
	require.Len(t, store.cutoffs, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), store.cutoffs[0])
	assert.Equal(t, 1, logs.FilterMessage("activity retention sweep completed").Len())
}

func TestRetentionWorker_SweepError(t *testing.T) {
	store := &fakePruner{err: errors.New("db down")}
	core, logs := observer.New(zapcore.InfoLevel)
	worker := NewRetentionWorker(store, time.Hour, time.Hour, zap.New(core))

	assert.Zero(t, worker.Sweep(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("activity retention sweep failed").Len())
}

func TestRetentionWorker_Disabled(t *testing.T) {
	store := &fakePruner{}
	worker := NewRetentionWorker(store, 0, 0, nil)
	assert.Equal(t, time.Hour, worker.interval)

	done := make(chan struct{})
	go func() {
		worker.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker did not return")
	}
	assert.Zero(t, store.calls())
}

func TestRetentionWorker_RunUntilCancelled(t *testing.T) {
	store := &fakePruner{}
	worker := NewRetentionWorker(store, time.Hour, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
