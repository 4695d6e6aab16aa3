package job

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/core"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(100, time.Hour)

	job := store.Create("backtest")
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

func TestStore_Update(t *testing.T) {
	store := NewStore(100, time.Hour)
	job := store.Create("backtest")

	require.NoError(t, store.Update(job.ID, func(j *Job) {
		j.Status = StatusRunning
		j.Progress = 50
	}))

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, 50, got.Progress)

	assert.True(t, errors.Is(store.Update("missing", func(*Job) {}), core.ErrNotFound))
}

func TestJob_Fail(t *testing.T) {
	var j Job
	j.Fail(core.Errorf(core.ErrInsufficientHistory, "need 100 bars"))
	assert.Equal(t, StatusFailed, j.Status)
	assert.Equal(t, "INSUFFICIENT_HISTORY", j.ErrorCode)
	assert.Contains(t, j.Error, "need 100 bars")
}

func TestStore_MaxSize(t *testing.T) {
	store := NewStore(2, time.Hour)

	first := store.Create("backtest")
	store.Create("backtest")
	store.Create("backtest")

	_, err := store.Get(first.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	assert.Len(t, store.List(), 2)
}

func TestStore_FinishedJobsExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore(10, time.Hour).WithClock(func() time.Time { return now })

	done := store.Create("backtest")
	running := store.Create("backtest")
	require.NoError(t, store.Update(done.ID, func(j *Job) { j.Status = StatusComplete }))
	require.NoError(t, store.Update(running.ID, func(j *Job) { j.Status = StatusRunning }))

	now = now.Add(2 * time.Hour)

	_, err := store.Get(done.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	_, err = store.Get(running.ID)
	assert.NoError(t, err, "unfinished jobs never expire")

	store.Create("backtest")
	assert.Len(t, store.List(), 2)
}

func TestStore_ListOldestFirst(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore(10, time.Hour).WithClock(func() time.Time { return now })

	a := store.Create("backtest")
	now = now.Add(time.Second)
	b := store.Create("backtest")

	jobs := store.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, a.ID, jobs[0].ID)
	assert.Equal(t, b.ID, jobs[1].ID)
}
