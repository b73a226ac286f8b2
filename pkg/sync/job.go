package sync

import (
	"fmt"
	"time"

	"github.com/sidkik/multisync/pkg/device"
)

// TaskState is the lifecycle state of a Job.
type TaskState string

const (
	// StatePending is the state of a Job that hasn't started.
	StatePending TaskState = "Pending"

	// StateRunning means that files are being copied to the device.
	StateRunning TaskState = "Running"

	// StateCompleted means that every file was processed.
	StateCompleted TaskState = "Completed"

	// StateFailed means that the sync was aborted. The Queue halts when a
	// Job fails.
	StateFailed TaskState = "Failed"
)

// Terminal returns whether the state is final.
func (s TaskState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Job is a single device's sync. The sync settings are fixed when the Job is
// created. The remaining fields are maintained by the Queue as the sync
// progresses, and should only be read from Sink callbacks.
type Job struct {
	ID              int
	Device          device.Device
	SourceDirectory string
	TargetDirectory string
	AppIdentifier   string

	State    TaskState
	Progress int

	// CurrentFile is the remote path of the file that's being copied.
	CurrentFile string

	Files        int
	FailedCopies int
	Warnings     int

	// Err is set when the Job fails.
	Err error

	StartedAt  time.Time
	FinishedAt time.Time
}

// NewJob creates a pending Job.
func NewJob(d device.Device, sourceDir, targetDir, appIdentifier string) *Job {
	return &Job{
		Device:          d,
		SourceDirectory: sourceDir,
		TargetDirectory: targetDir,
		AppIdentifier:   appIdentifier,
		State:           StatePending,
	}
}

func (job *Job) String() string {
	return fmt.Sprintf("%s (%s)", job.Device.Name(), job.Device.ID())
}

// Status is a copy of a Job's progress that's safe to pass to other
// goroutines.
type Status struct {
	JobID       int
	DeviceID    string
	DeviceName  string
	State       TaskState
	Progress    int
	CurrentFile string
	Message     string
}

// Status returns a snapshot of the Job's progress.
func (job *Job) Status() Status {
	status := Status{
		JobID:       job.ID,
		DeviceID:    job.Device.ID(),
		DeviceName:  job.Device.Name(),
		State:       job.State,
		Progress:    job.Progress,
		CurrentFile: job.CurrentFile,
	}
	if job.Err != nil {
		status.Message = job.Err.Error()
	}
	return status
}
