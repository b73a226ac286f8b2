package sync

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/sidkik/multisync/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Walker lists the files that should be synced from a source directory.
type Walker interface {
	// Walk returns the absolute path of every regular file under root,
	// recursing into subdirectories. Each call walks the filesystem again.
	Walk(root string) ([]string, error)
}

type fsWalker struct{}

// NewWalker returns a Walker for the local filesystem. Files are returned in
// lexical order.
func NewWalker() Walker {
	return fsWalker{}
}

func (fsWalker) Walk(root string) (files []string, err error) {
	err = walkFiles(root, func(path string) error {
		files = append(files, path)
		return nil
	})
	return files, err
}

// walkFiles calls fn for each regular file under root. A symlinked root is
// walked like the directory it points to, but symlinks within the tree are
// skipped.
func walkFiles(root string, fn func(path string) error) error {
	root, err := resolveRoot(root)
	if err != nil {
		return err
	}

	if _, err := fs.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound{Path: root}
		}
		return errors.WithContext(err, "stat")
	}

	return afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		// Skip directories, symlinks, sockets etc. Only regular files can be
		// copied to the device.
		if !fi.Mode().IsRegular() {
			return nil
		}
		return fn(path)
	})
}

// resolveRoot returns the absolute path of root with its symlinks resolved.
func resolveRoot(root string) (string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return "", errors.WithContext(err, "absolute path")
	}

	// In-memory filesystems don't have symlinks.
	if _, ok := fs.(afero.Symlinker); !ok {
		return root, nil
	}

	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.FileNotFound{Path: root}
		}
		return "", errors.WithContext(err, "resolve symlinks")
	}
	return resolved, nil
}

// dirExists returns whether path exists and is a directory.
func dirExists(path string) (bool, error) {
	return afero.DirExists(fs, path)
}
