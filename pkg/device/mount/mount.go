// Package mount implements devices that are mounted as local directories,
// such as MTP mounts or emulator storage shared with the host. Every
// subdirectory of the mount root is a device, and every directory within a
// device is an application sandbox.
package mount

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/sidkik/multisync/pkg/device"
	"github.com/sidkik/multisync/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Discoverer lists the devices mounted under Root.
type Discoverer struct {
	Root string
}

// Discover implements device.Discoverer.
func (d Discoverer) Discover() ([]device.Device, error) {
	entries, err := afero.ReadDir(fs, d.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: d.Root}
		}
		return nil, errors.WithContext(err, "read mount root")
	}

	var devices []device.Device
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		devices = append(devices, Device{
			Label: entry.Name(),
			Path:  filepath.Join(d.Root, entry.Name()),
		})
	}
	return devices, nil
}

// Device is a device that's mounted at Path.
type Device struct {
	Label string
	Path  string
}

// ID implements device.Device.
func (d Device) ID() string {
	return "mount:" + d.Label
}

// Name implements device.Device.
func (d Device) Name() string {
	return d.Label
}

// Connect returns a channel into the application's directory. The directory
// must already exist, which is the case once the application is installed.
func (d Device) Connect(appIdentifier string) (device.Channel, error) {
	sandbox := filepath.Join(d.Path, appIdentifier)
	exists, err := afero.DirExists(fs, sandbox)
	if err == nil && !exists {
		err = errors.New("application not installed")
	}
	if err != nil {
		return nil, errors.ChannelEstablishError{
			Device:        d.ID(),
			AppIdentifier: appIdentifier,
			Err:           err,
		}
	}
	return channel{root: sandbox}, nil
}

type channel struct {
	root string
}

func (c channel) CreateDirectory(remotePath string) bool {
	dir, err := c.resolve(remotePath)
	if err != nil {
		return false
	}
	return fs.MkdirAll(dir, 0755) == nil
}

func (c channel) CopyFile(localPath, remotePath string) error {
	dst, err := c.resolve(remotePath)
	if err != nil {
		return err
	}
	return copyFile(localPath, dst)
}

func (c channel) Close() error {
	return nil
}

// resolve maps a remote path to a local path within the sandbox. Absolute
// remote paths are relative to the sandbox root.
func (c channel) resolve(remotePath string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(remotePath, "/"))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("path escapes the application sandbox")
	}
	return filepath.Join(c.root, filepath.FromSlash(cleaned)), nil
}

// copyFile copies the contents, permissions and modification time of src
// to dst.
func copyFile(src, dst string) error {
	srcFile, err := fs.Open(src)
	if err != nil {
		return errors.WithContext(err, "open source")
	}
	defer srcFile.Close()

	fi, err := srcFile.Stat()
	if err != nil {
		return errors.WithContext(err, "stat source")
	}

	dstFile, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return errors.WithContext(err, "open destination")
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return errors.WithContext(err, "copy")
	}

	if err := dstFile.Close(); err != nil {
		return errors.WithContext(err, "close destination")
	}

	if err := fs.Chmod(dst, fi.Mode().Perm()); err != nil {
		return errors.WithContext(err, "set file mode")
	}

	// Change the modification time last so that it doesn't get reset by
	// the other file operations.
	if err := fs.Chtimes(dst, fi.ModTime(), fi.ModTime()); err != nil {
		return errors.WithContext(err, "set file modtime")
	}
	return nil
}
