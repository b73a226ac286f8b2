package sync

import (
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/sidkik/multisync/pkg/config"
	"github.com/sidkik/multisync/pkg/device"
	"github.com/sidkik/multisync/pkg/errors"
	"github.com/sidkik/multisync/pkg/fswatch"
	"github.com/sidkik/multisync/pkg/sync"
)

const (
	// The interval to poll the source directory when it's too big to watch.
	pollInterval = 15 * time.Second

	// How long the source directory must be unchanged before a sync starts,
	// so that a burst of writes results in a single sync.
	settleInterval = 2 * time.Second
)

// Mocked for unit testing.
var watchDir = fswatch.Watch

// session syncs every device, and then optionally keeps syncing whenever the
// source directory changes.
type session struct {
	queue   *sync.Queue
	devices []device.Device
	cfg     config.User
	log     logrus.FieldLogger
	watch   bool
	clock   clockwork.Clock

	// resume is signalled when the user wants a halted queue to continue. If
	// it's nil, a halt ends the session.
	resume <-chan struct{}
}

// Run runs syncs until the queue halts, or forever in watch mode.
func (s session) Run() error {
	var changes <-chan struct{}
	if s.watch {
		var stop func() error
		var err error
		changes, stop, err = s.watchSource()
		if err != nil {
			return err
		}
		defer func() {
			if err := stop(); err != nil {
				s.log.WithError(err).Debug("Failed to stop watching the source directory")
			}
		}()
	}

	for {
		for _, d := range s.devices {
			s.queue.EnqueueDevice(d, s.cfg.SourceDirectory, s.cfg.TargetDirectory, s.cfg.AppIdentifier)
		}

		if err := s.queue.Start(); err != nil {
			return errors.WithContext(err, "start sync")
		}

		if err := s.wait(); err != nil {
			return err
		}

		if !s.watch {
			return nil
		}

		s.log.Info("Waiting for changes to the source directory")
		s.waitForChange(changes)
		s.log.Info("Source directory changed. Syncing again")
	}
}

// wait blocks until the queue is drained. If the queue halts, it waits for
// the user to resume it.
func (s session) wait() error {
	for {
		err := s.queue.Wait()
		if err == nil {
			return nil
		}

		if s.resume == nil {
			return errors.WithContext(err, "sync halted")
		}

		// Ignore requests to resume that were made before the halt.
		select {
		case <-s.resume:
		default:
		}

		s.log.Warnf("Sync halted with %d devices left to sync. "+
			"Press `r` to skip the failed device and continue.", s.queue.Pending())
		<-s.resume
		if err := s.queue.Resume(); err != nil {
			return errors.WithContext(err, "resume sync")
		}
	}
}

// watchSource starts watching the source directory. If there are too many
// files to watch, it returns a nil channel so that waitForChange falls back
// to polling.
func (s session) watchSource() (<-chan struct{}, func() error, error) {
	changes, stop, err := watchDir(s.cfg.SourceDirectory)
	if err == nil {
		return changes, stop, nil
	}

	rootCause := errors.RootCause(err)
	if dneErr, ok := rootCause.(errors.FileNotFound); ok {
		return nil, nil, errors.DirectoryNotFound{Path: dneErr.Path}
	}

	if strings.Contains(rootCause.Error(), "too many open files") {
		s.log.Warnf("Too many files for MultiSync to automatically watch for changes. "+
			"MultiSync will poll for changes every %s instead.", pollInterval)
		return nil, func() error { return nil }, nil
	}
	return nil, nil, errors.WithContext(err, "watch source directory")
}

// waitForChange blocks until the source directory changes, and has then been
// left alone for settleInterval.
func (s session) waitForChange(changes <-chan struct{}) {
	var poll <-chan time.Time
	if changes == nil {
		poll = s.clock.After(pollInterval)
	}

	select {
	case <-changes:
	case <-poll:
		return
	}

	for {
		select {
		case <-changes:
		case <-s.clock.After(settleInterval):
			return
		}
	}
}
