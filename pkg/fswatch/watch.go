// Package fswatch notifies about changes within a source directory.
package fswatch

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/multisync/pkg/errors"
)

var fs = afero.NewOsFs()

// Watch watches root and all of its subdirectories. It sends an event on the
// returned channel whenever anything within root changes. Bursts of changes
// are combined into a single event. The returned function stops the watch.
func Watch(root string) (chan struct{}, func() error, error) {
	pathsToWatch, err := getPathsToWatch(root)
	if err != nil {
		return nil, nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handles for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}

	go logErrors(watcher.Errors)
	return combineUpdates(watchNewDirs(watcher, watcher.Events)), watcher.Close, nil
}

// watchNewDirs adds directories that are created after the watch started,
// since fsnotify doesn't watch recursively. All events are passed through.
func watchNewDirs(watcher *fsnotify.Watcher, events <-chan fsnotify.Event) <-chan fsnotify.Event {
	out := make(chan fsnotify.Event)
	go func() {
		defer close(out)
		for event := range events {
			if event.Has(fsnotify.Create) {
				if isDir, _ := afero.IsDir(fs, event.Name); isDir {
					if err := watcher.Add(event.Name); err != nil {
						log.WithError(err).WithField("path", event.Name).
							Warn("Failed to watch new directory")
					}
				}
			}
			out <- event
		}
	}()
	return out
}

func logErrors(errs <-chan error) {
	for err := range errs {
		log.WithError(err).Warn("File watcher error")
	}
}

func combineUpdates(updates <-chan fsnotify.Event) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for range updates {
			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

// getPathsToWatch returns root and every directory below it. Watching a
// directory also reports changes to the files directly within it.
func getPathsToWatch(root string) (paths []string, err error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}

	if !fi.IsDir() {
		return nil, errors.New(fmt.Sprintf("%q is not a directory", root))
	}

	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if fi.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}
