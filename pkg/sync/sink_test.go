package sync

import (
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/multisync/pkg/errors"
)

func newTestJob() *Job {
	job := NewJob(newMockDevice("red"), "/a/root", "/Dest", "com.example.app")
	job.ID = 1
	return job
}

func TestMultiSink(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	sink := MultiSink{first, second}

	job := newTestJob()
	sink.OnProgress(job, 50, "/Dest/file")
	sink.OnWarning(job, errors.New("warning"))
	sink.OnRecentFile("/Dest/file")
	sink.OnJobCompleted(job)
	sink.OnFatalError(job, "fatal")
	sink.OnQueueDrained()

	exp := []string{
		"progress red 50 /Dest/file",
		"warning red warning",
		"recent /Dest/file",
		"completed red",
		"failed red fatal",
		"drained",
	}
	assert.Equal(t, exp, first.get())
	assert.Equal(t, exp, second.get())
}

func TestLogSink(t *testing.T) {
	logger, hook := logrusTest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	sink := NewLogSink(logger)

	job := newTestJob()
	job.Files = 3
	job.FailedCopies = 1

	tests := []struct {
		name     string
		emit     func()
		expLevel logrus.Level
		expMsg   string
		expField map[string]interface{}
	}{
		{
			name:     "Progress",
			emit:     func() { sink.OnProgress(job, 33, "/Dest/file") },
			expLevel: logrus.DebugLevel,
			expMsg:   "Copying file",
			expField: map[string]interface{}{"path": "/Dest/file", "progress": 33, "device": "red"},
		},
		{
			name:     "Final progress",
			emit:     func() { sink.OnProgress(job, 100, "") },
			expLevel: logrus.DebugLevel,
			expMsg:   "Finished copying files",
			expField: map[string]interface{}{"progress": 100},
		},
		{
			name:     "Warning",
			emit:     func() { sink.OnWarning(job, errors.New("mkdir failed")) },
			expLevel: logrus.WarnLevel,
			expMsg:   "Sync warning",
			expField: map[string]interface{}{"job": 1},
		},
		{
			name:     "Completed",
			emit:     func() { sink.OnJobCompleted(job) },
			expLevel: logrus.InfoLevel,
			expMsg:   "Synced red (red)",
			expField: map[string]interface{}{"files": 3, "failedCopies": 1},
		},
		{
			name:     "Failed",
			emit:     func() { sink.OnFatalError(job, "offline") },
			expLevel: logrus.ErrorLevel,
			expMsg:   "Sync failed: offline",
		},
		{
			name:     "Drained",
			emit:     sink.OnQueueDrained,
			expLevel: logrus.InfoLevel,
			expMsg:   "All devices synced",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			hook.Reset()
			test.emit()

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, test.expLevel, entry.Level)
			assert.Equal(t, test.expMsg, entry.Message)
			for key, val := range test.expField {
				assert.Equal(t, val, entry.Data[key], key)
			}
		})
	}

	hook.Reset()
	sink.OnRecentFile("/Dest/file")
	assert.Empty(t, hook.AllEntries())
}

func TestBusSink(t *testing.T) {
	bus := EventBus.New()
	sink := BusSink{Bus: bus}

	var progress []Status
	var warnings, failures []string
	var completed []Status
	var recent []string
	var drained int

	require.NoError(t, bus.Subscribe(TopicProgress, func(status Status) {
		progress = append(progress, status)
	}))
	require.NoError(t, bus.Subscribe(TopicWarning, func(_ Status, msg string) {
		warnings = append(warnings, msg)
	}))
	require.NoError(t, bus.Subscribe(TopicJobCompleted, func(status Status) {
		completed = append(completed, status)
	}))
	require.NoError(t, bus.Subscribe(TopicJobFailed, func(_ Status, msg string) {
		failures = append(failures, msg)
	}))
	require.NoError(t, bus.Subscribe(TopicRecentFile, func(path string) {
		recent = append(recent, path)
	}))
	require.NoError(t, bus.Subscribe(TopicQueueDrained, func() {
		drained++
	}))

	job := newTestJob()
	job.State = StateRunning
	job.Progress = 50
	job.CurrentFile = "/Dest/file"
	sink.OnProgress(job, 50, "/Dest/file")
	sink.OnRecentFile("/Dest/file")
	sink.OnWarning(job, errors.New("mkdir failed"))

	job.State = StateCompleted
	job.Progress = 100
	job.CurrentFile = ""
	sink.OnJobCompleted(job)
	sink.OnFatalError(job, "offline")
	sink.OnQueueDrained()

	assert.Equal(t, []Status{{
		JobID:       1,
		DeviceID:    "red",
		DeviceName:  "red",
		State:       StateRunning,
		Progress:    50,
		CurrentFile: "/Dest/file",
	}}, progress)
	assert.Equal(t, []Status{{
		JobID:      1,
		DeviceID:   "red",
		DeviceName: "red",
		State:      StateCompleted,
		Progress:   100,
	}}, completed)
	assert.Equal(t, []string{"mkdir failed"}, warnings)
	assert.Equal(t, []string{"offline"}, failures)
	assert.Equal(t, []string{"/Dest/file"}, recent)
	assert.Equal(t, 1, drained)
}

func TestRecentFile(t *testing.T) {
	var recent RecentFile
	assert.Empty(t, recent.Get())
	recent.Set("/Dest/a")
	recent.Set("/Dest/b")
	assert.Equal(t, "/Dest/b", recent.Get())
}
