package mount

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/multisync/pkg/device"
	"github.com/sidkik/multisync/pkg/errors"
)

func TestDiscover(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/mnt/devices/pixel/com.example.app", 0755))
	require.NoError(t, fs.MkdirAll("/mnt/devices/tablet", 0755))
	require.NoError(t, fs.MkdirAll("/mnt/devices/.hidden", 0755))
	require.NoError(t, afero.WriteFile(fs, "/mnt/devices/README", nil, 0644))

	devices, err := Discoverer{Root: "/mnt/devices"}.Discover()
	assert.NoError(t, err)
	assert.Equal(t, []device.Device{
		Device{Label: "pixel", Path: "/mnt/devices/pixel"},
		Device{Label: "tablet", Path: "/mnt/devices/tablet"},
	}, devices)
	assert.Equal(t, "mount:pixel", devices[0].ID())
	assert.Equal(t, "pixel", devices[0].Name())

	_, err = Discoverer{Root: "/mnt/missing"}.Discover()
	assert.Equal(t, errors.FileNotFound{Path: "/mnt/missing"}, err)
}

func TestConnect(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/mnt/pixel/com.example.app", 0755))
	d := Device{Label: "pixel", Path: "/mnt/pixel"}

	ch, err := d.Connect("com.example.app")
	assert.NoError(t, err)
	assert.Equal(t, channel{root: "/mnt/pixel/com.example.app"}, ch)

	_, err = d.Connect("com.example.missing")
	assert.Equal(t, errors.ChannelEstablishError{
		Device:        "mount:pixel",
		AppIdentifier: "com.example.missing",
		Err:           errors.New("application not installed"),
	}, err)
}

func TestChannel(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/mnt/pixel/app", 0755))

	modTime := time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, afero.WriteFile(fs, "/src/root/file.txt", []byte("contents"), 0600))
	require.NoError(t, fs.Chtimes("/src/root/file.txt", modTime, modTime))

	ch := channel{root: "/mnt/pixel/app"}
	assert.True(t, ch.CreateDirectory("/Dest/sub"))
	exists, err := afero.DirExists(fs, "/mnt/pixel/app/Dest/sub")
	assert.NoError(t, err)
	assert.True(t, exists)

	assert.NoError(t, ch.CopyFile("/src/root/file.txt", "/Dest/sub/file.txt"))
	contents, err := afero.ReadFile(fs, "/mnt/pixel/app/Dest/sub/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, "contents", string(contents))

	fi, err := fs.Stat("/mnt/pixel/app/Dest/sub/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
	assert.True(t, modTime.Equal(fi.ModTime()))

	// Copies overwrite existing files.
	require.NoError(t, afero.WriteFile(fs, "/src/root/file.txt", []byte("new"), 0600))
	assert.NoError(t, ch.CopyFile("/src/root/file.txt", "Dest/sub/file.txt"))
	contents, err = afero.ReadFile(fs, "/mnt/pixel/app/Dest/sub/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, "new", string(contents))

	assert.Error(t, ch.CopyFile("/src/root/missing.txt", "/Dest/missing.txt"))
	assert.NoError(t, ch.Close())
}

func TestResolve(t *testing.T) {
	ch := channel{root: "/mnt/pixel/app"}

	tests := []struct {
		remote string
		exp    string
		expErr bool
	}{
		{remote: "/Dest/file", exp: "/mnt/pixel/app/Dest/file"},
		{remote: "Dest/file", exp: "/mnt/pixel/app/Dest/file"},
		{remote: "/Dest/../file", exp: "/mnt/pixel/app/file"},
		{remote: "/", exp: "/mnt/pixel/app"},
		{remote: "/../other-app/file", expErr: true},
		{remote: "../../etc/passwd", expErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.remote, func(t *testing.T) {
			resolved, err := ch.resolve(test.remote)
			if test.expErr {
				assert.Error(t, err)
				assert.False(t, ch.CreateDirectory(test.remote))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.exp, resolved)
		})
	}
}
