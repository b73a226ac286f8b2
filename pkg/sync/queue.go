package sync

import (
	"sync"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/multisync/pkg/device"
	"github.com/sidkik/multisync/pkg/errors"
)

// Queue syncs Jobs one at a time, in the order they were enqueued. A Job is
// only started after the previous Job's task has finished.
//
// If a Job fails, the Queue halts and leaves the remaining Jobs pending until
// Resume is called.
type Queue struct {
	sink   Sink
	walker Walker
	clock  clockwork.Clock
	recent RecentFile

	lock    sync.Mutex
	pending []*Job
	nextID  int
	running bool
	halted  bool
	err     error
	done    chan struct{}
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithWalker sets the Walker used to list source files.
func WithWalker(walker Walker) QueueOption {
	return func(q *Queue) {
		q.walker = walker
	}
}

// WithClock sets the clock used to timestamp Jobs.
func WithClock(clock clockwork.Clock) QueueOption {
	return func(q *Queue) {
		q.clock = clock
	}
}

// NewQueue creates an idle Queue that reports to sink.
func NewQueue(sink Sink, opts ...QueueOption) *Queue {
	if sink == nil {
		sink = NopSink{}
	}
	q := &Queue{
		sink:   sink,
		walker: NewWalker(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds job to the back of the queue.
func (q *Queue) Enqueue(job *Job) {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.nextID++
	job.ID = q.nextID
	job.State = StatePending
	q.pending = append(q.pending, job)
}

// EnqueueDevice creates a Job for d and adds it to the back of the queue.
func (q *Queue) EnqueueDevice(d device.Device, sourceDir, targetDir, appIdentifier string) *Job {
	job := NewJob(d, sourceDir, targetDir, appIdentifier)
	q.Enqueue(job)
	return job
}

// Start begins syncing the pending Jobs in the background. Use Wait to block
// until the queue is drained.
func (q *Queue) Start() error {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.running {
		return errors.New("queue is already running")
	}
	if q.halted {
		return errors.New("queue is halted")
	}
	q.startLocked()
	return nil
}

// Resume continues a halted queue with the next pending Job. The Job that
// caused the halt isn't retried.
func (q *Queue) Resume() error {
	q.lock.Lock()
	defer q.lock.Unlock()

	if !q.halted {
		return errors.New("queue is not halted")
	}
	q.halted = false
	q.startLocked()
	return nil
}

func (q *Queue) startLocked() {
	q.running = true
	q.err = nil
	q.done = make(chan struct{})
	go q.drain(q.done)
}

// Wait blocks until the queue is drained or halted. It returns the error of
// the Job that halted the queue, if any.
func (q *Queue) Wait() error {
	q.lock.Lock()
	done := q.done
	q.lock.Unlock()

	if done != nil {
		<-done
	}

	q.lock.Lock()
	defer q.lock.Unlock()
	return q.err
}

// Pending returns the number of Jobs that haven't started yet.
func (q *Queue) Pending() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.pending)
}

// Halted returns whether a failed Job stopped the queue.
func (q *Queue) Halted() bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.halted
}

// RecentFile returns the remote path of the most recently synced file.
func (q *Queue) RecentFile() string {
	return q.recent.Get()
}

func (q *Queue) drain(done chan struct{}) {
	for {
		job := q.pop()
		if job == nil {
			q.sink.OnQueueDrained()
			q.finish(done, nil)
			return
		}

		if q.runJob(job) == StateFailed {
			q.finish(done, job.Err)
			return
		}
	}
}

func (q *Queue) pop() *Job {
	q.lock.Lock()
	defer q.lock.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	return job
}

func (q *Queue) finish(done chan struct{}, err error) {
	q.lock.Lock()
	q.running = false
	q.halted = err != nil
	q.err = err
	q.lock.Unlock()
	close(done)
}

// runJob runs the job's task on a worker goroutine, and applies its events
// until the worker closes the events channel. It returns the job's final
// state.
func (q *Queue) runJob(job *Job) TaskState {
	log.WithField("device", job.Device.ID()).Debug("Starting sync")
	job.StartedAt = q.clock.Now()

	t := newTask(job, q.walker)
	events := make(chan Event)
	go func() {
		defer close(events)
		t.run(events)
	}()

	for event := range events {
		q.apply(job, event)
	}

	// A task that returns without a terminal event still fails the job.
	if !job.State.Terminal() {
		job.State = StateFailed
		job.Err = errors.New("sync ended unexpectedly")
		job.FinishedAt = q.clock.Now()
		q.sink.OnFatalError(job, job.Err.Error())
	}
	return job.State
}

func (q *Queue) apply(job *Job, event Event) {
	switch e := event.(type) {
	case StateChanged:
		job.State = e.State
	case Progress:
		job.Progress = e.Percent
		job.CurrentFile = e.RemotePath
		q.sink.OnProgress(job, e.Percent, e.RemotePath)
		if e.RemotePath != "" {
			q.recent.Set(e.RemotePath)
			q.sink.OnRecentFile(e.RemotePath)
		}
	case Warning:
		job.Warnings++
		q.sink.OnWarning(job, e.Err)
	case Completed:
		job.State = StateCompleted
		job.Progress = 100
		job.CurrentFile = ""
		job.Files = e.Files
		job.FailedCopies = e.FailedCopies
		job.FinishedAt = q.clock.Now()
		q.sink.OnJobCompleted(job)
	case Failed:
		job.State = StateFailed
		job.Err = e.Err
		job.FinishedAt = q.clock.Now()
		q.sink.OnFatalError(job, errors.GetPrintableMessage(e.Err))
	default:
		log.WithField("event", event).Warn("Ignoring unknown sync event")
	}
}
