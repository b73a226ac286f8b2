package history

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/sidkik/multisync/pkg/device/mocks"
	"github.com/sidkik/multisync/pkg/errors"
	"github.com/sidkik/multisync/pkg/sync"
)

type mockRecorder struct {
	runs []Run
	err  error
}

func (r *mockRecorder) Record(run Run) error {
	r.runs = append(r.runs, run)
	return r.err
}

func newTestJob() *sync.Job {
	d := &mocks.Device{}
	d.On("ID").Return("red")
	d.On("Name").Return("Pixel")
	return sync.NewJob(d, "/src/root", "/Dest", "com.example.app")
}

func TestSink(t *testing.T) {
	now := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	recorder := &mockRecorder{}
	sink := NewSink(recorder, clock)

	completed := newTestJob()
	completed.StartedAt = now.Add(-time.Minute)
	completed.FinishedAt = now.Add(-10 * time.Second)
	completed.Files = 4
	completed.FailedCopies = 1
	completed.Warnings = 2
	// The job's own finish time is recorded, not the time the sink ran.
	sink.OnJobCompleted(completed)

	// Jobs without timestamps are stamped with the clock.
	sink.OnFatalError(newTestJob(), "Source Directory Does not exist.")

	// Events that don't end a job aren't recorded.
	sink.OnProgress(completed, 50, "/Dest/file")
	sink.OnQueueDrained()

	assert.Equal(t, []Run{
		{
			DeviceID:      "red",
			DeviceName:    "Pixel",
			Source:        "/src/root",
			Target:        "/Dest",
			AppIdentifier: "com.example.app",
			Status:        StatusCompleted,
			Files:         4,
			FailedCopies:  1,
			Warnings:      2,
			StartedAt:     now.Add(-time.Minute),
			FinishedAt:    now.Add(-10 * time.Second),
		},
		{
			DeviceID:      "red",
			DeviceName:    "Pixel",
			Source:        "/src/root",
			Target:        "/Dest",
			AppIdentifier: "com.example.app",
			Status:        StatusFailed,
			Error:         "Source Directory Does not exist.",
			StartedAt:     now,
			FinishedAt:    now,
		},
	}, recorder.runs)
}

func TestSinkRecordError(t *testing.T) {
	hook := logrusTest.NewGlobal()
	defer hook.Reset()

	recorder := &mockRecorder{err: errors.New("database is locked")}
	sink := NewSink(recorder, clockwork.NewFakeClock())
	sink.OnJobCompleted(newTestJob())

	entry := hook.LastEntry()
	if assert.NotNil(t, entry) {
		assert.Equal(t, logrus.WarnLevel, entry.Level)
		assert.Equal(t, "Failed to record sync history", entry.Message)
	}
}
