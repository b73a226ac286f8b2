package sync

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/multisync/pkg/device"
	"github.com/sidkik/multisync/pkg/errors"
)

// task syncs a single Job. It runs on its own goroutine, and reports
// everything it does through the events channel. The final event is always
// either Completed or Failed.
type task struct {
	device        device.Device
	source        string
	target        string
	appIdentifier string
	walker        Walker
}

func newTask(job *Job, walker Walker) task {
	return task{
		device:        job.Device,
		source:        job.SourceDirectory,
		target:        job.TargetDirectory,
		appIdentifier: job.AppIdentifier,
		walker:        walker,
	}
}

func (t task) run(events chan<- Event) {
	source, err := resolveRoot(t.source)
	if _, ok := err.(errors.FileNotFound); ok {
		events <- Failed{errors.DirectoryNotFound{Path: t.source}}
		return
	}
	if err != nil {
		events <- Failed{err}
		return
	}

	exists, err := dirExists(source)
	if err != nil {
		events <- Failed{errors.WithContext(err, "stat source")}
		return
	}
	if !exists {
		events <- Failed{errors.DirectoryNotFound{Path: t.source}}
		return
	}

	events <- StateChanged{StateRunning}

	channel, err := t.device.Connect(t.appIdentifier)
	if err != nil {
		if _, ok := err.(errors.ChannelEstablishError); !ok {
			err = errors.ChannelEstablishError{
				Device:        t.device.ID(),
				AppIdentifier: t.appIdentifier,
				Err:           err,
			}
		}
		events <- Failed{err}
		return
	}
	defer func() {
		if err := channel.Close(); err != nil {
			log.WithError(err).WithField("device", t.device.ID()).
				Warn("Failed to close device channel")
		}
	}()

	files, err := t.walker.Walk(source)
	if err != nil {
		events <- Failed{errors.WithContext(err, "walk source")}
		return
	}

	rootName := filepath.Base(source)
	var failedCopies int
	for i, file := range files {
		remoteDir, remoteFile := MapRemotePath(file, rootName, t.target)

		if !channel.CreateDirectory(remoteDir) {
			events <- Warning{errors.RemoteDirectoryCreateError{Path: remoteDir}}
		}

		events <- Progress{Percent: i * 100 / len(files), RemotePath: remoteFile}

		if err := channel.CopyFile(file, remoteFile); err != nil {
			failedCopies++
			events <- Warning{errors.CopyFileError{
				Local:  file,
				Remote: remoteFile,
				Err:    err,
			}}
		}
	}

	events <- Progress{Percent: 100}
	events <- Completed{Files: len(files), FailedCopies: failedCopies}
}
