package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

type panickingJob struct{ runs atomic.Int32 }

func (j *panickingJob) Run() error {
	j.runs.Add(1)
	panic("boom")
}

func (j *panickingJob) Name() string { return "panicking" }

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{})
	assert.Error(t, err)
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	failing := &countingJob{err: errors.New("boom")}
	panicking := &panickingJob{}

	require.NoError(t, s.AddJob("@every 1s", job))
	require.NoError(t, s.AddJob("@every 1s", failing))
	require.NoError(t, s.AddJob("@every 1s", panicking))

	s.Start()
	defer s.Stop()

	// A failing or panicking job must not stop the others from running again
	assert.Eventually(t, func() bool {
		return job.runs.Load() > 1 && failing.runs.Load() > 1 && panicking.runs.Load() > 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	err := s.RunNow(job)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, int32(1), job.runs.Load())
}

type fakeSyncer struct {
	deadline bool
	err      error
}

func (f *fakeSyncer) Sync(ctx context.Context) error {
	_, f.deadline = ctx.Deadline()
	return f.err
}

func TestWalletSyncJob(t *testing.T) {
	syncer := &fakeSyncer{}
	job := NewWalletSyncJob(syncer, 0, zerolog.Nop())

	assert.Equal(t, "wallet_sync", job.Name())
	assert.Equal(t, DefaultWalletSyncTimeout, job.timeout)
	require.NoError(t, job.Run())
	assert.True(t, syncer.deadline)

	syncer.err = errors.New("backend down")
	assert.EqualError(t, job.Run(), "backend down")
}
