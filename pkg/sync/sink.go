package sync

import (
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/sirupsen/logrus"
)

// Sink observes the progress of a Queue. All methods are called from the
// Queue's dispatcher goroutine, one at a time, in the order the events
// happened. Sinks must not block for long, since the next event isn't
// delivered until they return.
type Sink interface {
	// OnProgress is called before each file is copied, and once with a
	// percent of 100 after the last file.
	OnProgress(job *Job, percent int, remotePath string)

	// OnWarning is called for problems that don't abort the sync.
	OnWarning(job *Job, err error)

	OnJobCompleted(job *Job)

	// OnQueueDrained is called once the last pending Job has completed.
	OnQueueDrained()

	// OnFatalError is called when a Job fails. The Queue halts afterwards.
	OnFatalError(job *Job, message string)

	// OnRecentFile is called with the remote path of the most recently
	// synced file, across all devices.
	OnRecentFile(remotePath string)
}

// NopSink ignores all events. It can be embedded to implement a subset of
// Sink.
type NopSink struct{}

func (NopSink) OnProgress(*Job, int, string) {}
func (NopSink) OnWarning(*Job, error)        {}
func (NopSink) OnJobCompleted(*Job)          {}
func (NopSink) OnQueueDrained()              {}
func (NopSink) OnFatalError(*Job, string)    {}
func (NopSink) OnRecentFile(string)          {}

// MultiSink forwards every event to each of its sinks, in order.
type MultiSink []Sink

func (sinks MultiSink) OnProgress(job *Job, percent int, remotePath string) {
	for _, s := range sinks {
		s.OnProgress(job, percent, remotePath)
	}
}

func (sinks MultiSink) OnWarning(job *Job, err error) {
	for _, s := range sinks {
		s.OnWarning(job, err)
	}
}

func (sinks MultiSink) OnJobCompleted(job *Job) {
	for _, s := range sinks {
		s.OnJobCompleted(job)
	}
}

func (sinks MultiSink) OnQueueDrained() {
	for _, s := range sinks {
		s.OnQueueDrained()
	}
}

func (sinks MultiSink) OnFatalError(job *Job, message string) {
	for _, s := range sinks {
		s.OnFatalError(job, message)
	}
}

func (sinks MultiSink) OnRecentFile(remotePath string) {
	for _, s := range sinks {
		s.OnRecentFile(remotePath)
	}
}

// LogSink logs every event.
type LogSink struct {
	Log logrus.FieldLogger
}

// NewLogSink returns a LogSink that writes to log.
func NewLogSink(log logrus.FieldLogger) LogSink {
	return LogSink{Log: log}
}

func (s LogSink) jobLog(job *Job) logrus.FieldLogger {
	return s.Log.WithFields(logrus.Fields{
		"job":    job.ID,
		"device": job.Device.ID(),
	})
}

func (s LogSink) OnProgress(job *Job, percent int, remotePath string) {
	log := s.jobLog(job).WithField("progress", percent)
	if remotePath == "" {
		log.Debug("Finished copying files")
		return
	}
	log.WithField("path", remotePath).Debug("Copying file")
}

func (s LogSink) OnWarning(job *Job, err error) {
	s.jobLog(job).WithError(err).Warn("Sync warning")
}

func (s LogSink) OnJobCompleted(job *Job) {
	s.jobLog(job).WithFields(logrus.Fields{
		"files":        job.Files,
		"failedCopies": job.FailedCopies,
	}).Infof("Synced %s", job)
}

func (s LogSink) OnQueueDrained() {
	s.Log.Info("All devices synced")
}

func (s LogSink) OnFatalError(job *Job, message string) {
	s.jobLog(job).WithError(job.Err).Errorf("Sync failed: %s", message)
}

func (LogSink) OnRecentFile(string) {}

// The topics published by BusSink.
const (
	// TopicProgress handlers take (Status).
	TopicProgress = "sync:progress"

	// TopicWarning handlers take (Status, string).
	TopicWarning = "sync:warning"

	// TopicJobCompleted handlers take (Status).
	TopicJobCompleted = "sync:job:completed"

	// TopicQueueDrained handlers take no arguments.
	TopicQueueDrained = "sync:queue:drained"

	// TopicJobFailed handlers take (Status, string).
	TopicJobFailed = "sync:job:failed"

	// TopicRecentFile handlers take (string).
	TopicRecentFile = "sync:recent-file"
)

// BusSink publishes events on an EventBus. Jobs are published as Status
// snapshots, so subscribers may use them from any goroutine.
type BusSink struct {
	Bus EventBus.Bus
}

func (s BusSink) OnProgress(job *Job, _ int, _ string) {
	s.Bus.Publish(TopicProgress, job.Status())
}

func (s BusSink) OnWarning(job *Job, err error) {
	s.Bus.Publish(TopicWarning, job.Status(), err.Error())
}

func (s BusSink) OnJobCompleted(job *Job) {
	s.Bus.Publish(TopicJobCompleted, job.Status())
}

func (s BusSink) OnQueueDrained() {
	s.Bus.Publish(TopicQueueDrained)
}

func (s BusSink) OnFatalError(job *Job, message string) {
	s.Bus.Publish(TopicJobFailed, job.Status(), message)
}

func (s BusSink) OnRecentFile(remotePath string) {
	s.Bus.Publish(TopicRecentFile, remotePath)
}

// RecentFile tracks the most recently synced remote file across all devices.
type RecentFile struct {
	mu   sync.Mutex
	path string
}

func (r *RecentFile) Set(path string) {
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
}

func (r *RecentFile) Get() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}
