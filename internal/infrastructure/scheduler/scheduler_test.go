package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queue-hub/queue-manager/pkg/timeutil"
)

type fakeJob struct {
	mu   sync.Mutex
	name string
	runs int
	err  error
}

func (j *fakeJob) Name() string        { return j.name }
func (j *fakeJob) Description() string { return "fake job" }

func (j *fakeJob) Run(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	return j.err
}

func (j *fakeJob) runCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func newTestScheduler(t *testing.T) (*Scheduler, *timeutil.ManualClock) {
	t.Helper()

	clock := timeutil.NewManualClock(time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC))
	s := New(Config{Clock: clock, PollInterval: time.Second})
	return s, clock
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	s, _ := newTestScheduler(t)
	job := &fakeJob{name: "transitions"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))
	err := s.Register(job, NewIntervalSchedule(time.Minute))

	assert.ErrorIs(t, err, ErrJobAlreadyExists)
}

func TestRegister_RejectsNilArguments(t *testing.T) {
	s, _ := newTestScheduler(t)

	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&fakeJob{name: "x"}, nil), ErrNilSchedule)
}

func TestCheckAndRun_FiresDueJobsOnly(t *testing.T) {
	s, clock := newTestScheduler(t)
	due := &fakeJob{name: "due"}
	notDue := &fakeJob{name: "not-due"}

	require.NoError(t, s.Register(due, NewIntervalSchedule(time.Minute)))
	require.NoError(t, s.Register(notDue, NewIntervalSchedule(time.Hour)))

	clock.Advance(2 * time.Minute)
	s.checkAndRunJobs()
	s.wg.Wait()

	assert.Equal(t, 1, due.runCount())
	assert.Equal(t, 0, notDue.runCount())
}

func TestCheckAndRun_SkipsDisabledJobs(t *testing.T) {
	s, clock := newTestScheduler(t)
	job := &fakeJob{name: "transitions"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))
	require.NoError(t, s.DisableJob("transitions"))

	clock.Advance(2 * time.Minute)
	s.checkAndRunJobs()
	s.wg.Wait()

	assert.Equal(t, 0, job.runCount())

	// Re-enabling re-arms the schedule from the current clock.
	require.NoError(t, s.EnableJob("transitions"))
	clock.Advance(2 * time.Minute)
	s.checkAndRunJobs()
	s.wg.Wait()

	assert.Equal(t, 1, job.runCount())
}

func TestCheckAndRun_ReschedulesAfterRun(t *testing.T) {
	s, clock := newTestScheduler(t)
	job := &fakeJob{name: "transitions"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))

	clock.Advance(2 * time.Minute)
	s.checkAndRunJobs()
	s.wg.Wait()

	// Still within the new interval: nothing fires.
	s.checkAndRunJobs()
	s.wg.Wait()
	assert.Equal(t, 1, job.runCount())

	clock.Advance(2 * time.Minute)
	s.checkAndRunJobs()
	s.wg.Wait()
	assert.Equal(t, 2, job.runCount())
}

func TestRunNow_IgnoresSchedule(t *testing.T) {
	s, _ := newTestScheduler(t)
	job := &fakeJob{name: "autocreate"}
	require.NoError(t, s.Register(job, NewDailySchedule(6, 0, time.UTC)))

	result, err := s.RunNow(context.Background(), "autocreate")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, job.runCount())
}

func TestRunNow_ReportsJobError(t *testing.T) {
	s, _ := newTestScheduler(t)
	job := &fakeJob{name: "autocreate", err: assert.AnError}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))

	result, err := s.RunNow(context.Background(), "autocreate")

	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, result.Success)
}

func TestRunNow_UnknownJob(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.RunNow(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestOnJobComplete_ReceivesResult(t *testing.T) {
	s, clock := newTestScheduler(t)
	job := &fakeJob{name: "transitions", err: assert.AnError}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))

	var (
		mu      sync.Mutex
		results []JobResult
	)
	s.OnJobComplete(func(result JobResult) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, result)
	})

	clock.Advance(2 * time.Minute)
	s.checkAndRunJobs()
	s.wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 1)
	assert.Equal(t, "transitions", results[0].JobName)
	assert.False(t, results[0].Success)
	assert.ErrorIs(t, results[0].Error, assert.AnError)
}

func TestListJobs_TracksCounters(t *testing.T) {
	s, clock := newTestScheduler(t)
	job := &fakeJob{name: "transitions", err: assert.AnError}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))

	clock.Advance(2 * time.Minute)
	s.checkAndRunJobs()
	s.wg.Wait()

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, "transitions", infos[0].Name)
	assert.Equal(t, int64(1), infos[0].RunCount)
	assert.Equal(t, int64(1), infos[0].FailCount)
	require.NotNil(t, infos[0].LastResult)
	assert.False(t, infos[0].LastResult.Success)
}

func TestStartStop(t *testing.T) {
	s, _ := newTestScheduler(t)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestEnableDisable_UnknownJob(t *testing.T) {
	s, _ := newTestScheduler(t)

	assert.ErrorIs(t, s.EnableJob("missing"), ErrJobNotFound)
	assert.ErrorIs(t, s.DisableJob("missing"), ErrJobNotFound)
}
