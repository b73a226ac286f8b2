package history

import (
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/multisync/pkg/sync"
)

// Recorder saves runs.
type Recorder interface {
	Record(Run) error
}

// Sink records the outcome of every job that it's notified about.
type Sink struct {
	sync.NopSink

	recorder Recorder
	clock    clockwork.Clock
}

// NewSink returns a Sink that records runs to recorder, timestamped with
// clock.
func NewSink(recorder Recorder, clock clockwork.Clock) Sink {
	return Sink{recorder: recorder, clock: clock}
}

// OnJobCompleted implements sync.Sink.
func (s Sink) OnJobCompleted(job *sync.Job) {
	s.record(job, StatusCompleted, "")
}

// OnFatalError implements sync.Sink.
func (s Sink) OnFatalError(job *sync.Job, message string) {
	s.record(job, StatusFailed, message)
}

func (s Sink) record(job *sync.Job, status Status, message string) {
	// The queue stamps the job when it finishes, so that time wins.
	finishedAt := job.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = s.clock.Now()
	}
	startedAt := job.StartedAt
	if startedAt.IsZero() {
		startedAt = finishedAt
	}

	run := Run{
		DeviceID:      job.Device.ID(),
		DeviceName:    job.Device.Name(),
		Source:        job.SourceDirectory,
		Target:        job.TargetDirectory,
		AppIdentifier: job.AppIdentifier,
		Status:        status,
		Files:         job.Files,
		FailedCopies:  job.FailedCopies,
		Warnings:      job.Warnings,
		Error:         message,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
	}
	if err := s.recorder.Record(run); err != nil {
		log.WithError(err).WithField("device", run.DeviceID).
			Warn("Failed to record sync history")
	}
}
