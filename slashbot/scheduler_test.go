package slashbot

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsJobs(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Shutdown()
	})

	ticks := make(chan struct{}, 100)
	err = s.AddJob(
		context.Background(),
		"test_job",
		25*time.Millisecond,
		func(context.Context) error {
			ticks <- struct{}{}
			return nil
		},
	)
	require.NoError(t, err)

	s.Start()

	select {
	case <-ticks:
		// job ran
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job never ran")
	}
}

func TestSchedulerRecoversFromPanics(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Shutdown()
	})

	var runs atomic.Int64
	err = s.AddJob(
		context.Background(),
		"panicky_job",
		25*time.Millisecond,
		func(context.Context) error {
			runs.Add(1)
			panic("boom")
		},
	)
	require.NoError(t, err)

	s.Start()

	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.GreaterOrEqual(
		t,
		runs.Load(),
		int64(2),
		"job should keep running after a panic",
	)
}

func TestSchedulerLogsJobErrors(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Shutdown()
	})

	ran := make(chan struct{}, 100)
	err = s.AddJob(
		context.Background(),
		"failing_job",
		25*time.Millisecond,
		func(context.Context) error {
			ran <- struct{}{}
			return errors.New("job failed")
		},
	)
	require.NoError(t, err)

	s.Start()

	for i := 0; i < 2; i++ {
		select {
		case <-ran:
		case <-time.After(5 * time.Second):
			t.Fatal("failing job stopped running")
		}
	}
}
