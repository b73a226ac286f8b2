package sync

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/multisync/pkg/errors"
)

type file struct {
	path     string
	contents string
	mode     os.FileMode
	modTime  time.Time
}

func (f file) WithContents(contents string) file {
	f.contents = contents
	return f
}

func randomFile(path string) file {
	randomTime := time.Date(2019, 11, 10, rand.Intn(23), rand.Intn(59), rand.Intn(59), 0, time.UTC)
	return file{
		path:     path,
		contents: strconv.Itoa(rand.Int()),
		mode:     os.FileMode(0640 | rand.Intn(8)),
		modTime:  randomTime,
	}
}

// mockFs contains helper methods for creating temporary file structures for
// testing.
type mockFs struct {
	root      string
	sourceDir string
	mountRoot string
	homeDir   string
}

// newMockFs creates a source directory, and a mount root containing the
// given devices. The application is installed on the devices in withApp.
func newMockFs(t *testing.T, appIdentifier string, devices []string, withApp ...string) (mockFs, error) {
	root := t.TempDir()
	fs := mockFs{
		root:      root,
		sourceDir: filepath.Join(root, "Photos"),
		mountRoot: filepath.Join(root, "devices"),
		homeDir:   filepath.Join(root, "home"),
	}

	for _, dir := range []string{fs.sourceDir, fs.mountRoot, fs.homeDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return mockFs{}, errors.WithContext(err, "make directory")
		}
	}

	for _, device := range devices {
		if err := os.MkdirAll(fs.devicePath(device), 0755); err != nil {
			return mockFs{}, errors.WithContext(err, "make device")
		}
	}

	for _, device := range withApp {
		if err := os.MkdirAll(fs.sandboxPath(device, appIdentifier), 0755); err != nil {
			return mockFs{}, errors.WithContext(err, "install app")
		}
	}
	return fs, nil
}

func (fs mockFs) devicePath(device string) string {
	return filepath.Join(fs.mountRoot, device)
}

func (fs mockFs) sandboxPath(device, appIdentifier string) string {
	return filepath.Join(fs.devicePath(device), appIdentifier)
}

// createFile writes toCreate relative to the source directory.
func (fs mockFs) createFile(toCreate file) error {
	path := filepath.Join(fs.sourceDir, toCreate.path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithContext(err, "make parent")
	}

	if err := os.WriteFile(path, []byte(toCreate.contents), toCreate.mode); err != nil {
		return errors.WithContext(err, "write")
	}

	if err := os.Chmod(path, toCreate.mode); err != nil {
		return errors.WithContext(err, "chmod")
	}

	if err := os.Chtimes(path, time.Now(), toCreate.modTime); err != nil {
		return errors.WithContext(err, "chtimes")
	}
	return nil
}

// assertSynced checks that every file was copied into dir with the same
// contents, mode and modification time.
func assertSynced(t *testing.T, dir string, files []file) {
	for _, f := range files {
		path := filepath.Join(dir, f.path)
		contents, err := os.ReadFile(path)
		if !assert.NoError(t, err, f.path) {
			continue
		}
		assert.Equal(t, f.contents, string(contents), f.path)

		fi, err := os.Stat(path)
		if !assert.NoError(t, err, f.path) {
			continue
		}
		assert.Equal(t, f.mode, fi.Mode().Perm(), f.path)
		assert.True(t, f.modTime.Equal(fi.ModTime()), f.path)
	}
}

// assertEmpty checks that nothing was copied into dir.
func assertEmpty(t *testing.T, dir string) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return
	}
	assert.NoError(t, err)
	assert.Empty(t, entries, dir)
}
