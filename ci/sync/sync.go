package sync

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/multisync/ci/util"
	"github.com/sidkik/multisync/pkg/config"
)

const (
	appIdentifier = "com.example.gallery"
	target        = "MultiSync"
)

var sourceFiles = []file{
	randomFile("cover.jpg"),
	randomFile("2019/beach.jpg"),
	randomFile("2019/summer/lake.jpg"),
	randomFile("2020/notes.txt").WithContents("cats: 0\n"),
}

// Test syncs a source tree to devices that are mounted locally.
func Test(t *testing.T, binary string) {
	t.Run("CopiesTree", func(t *testing.T) { testCopiesTree(t, binary) })
	t.Run("HaltsOnMissingApp", func(t *testing.T) { testHaltsOnMissingApp(t, binary) })
	t.Run("Watch", func(t *testing.T) { testWatch(t, binary) })
}

func setup(t *testing.T, binary string, devices []string, withApp ...string) (mockFs, *util.TestHelper) {
	fs, err := newMockFs(t, appIdentifier, devices, withApp...)
	require.NoError(t, err)
	for _, f := range sourceFiles {
		require.NoError(t, fs.createFile(f))
	}

	helper := util.NewTestHelper(binary, fs.homeDir)
	require.NoError(t, helper.WriteConfig(config.User{
		SourceDirectory: fs.sourceDir,
		TargetDirectory: target,
		AppIdentifier:   appIdentifier,
		MountRoot:       fs.mountRoot,
	}))
	return fs, helper
}

func testCopiesTree(t *testing.T, binary string) {
	devices := []string{"pixel", "tablet"}
	fs, helper := setup(t, binary, devices, devices...)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, err := helper.Run(ctx, "sync", "--no-gui",
		"--device", "mount:pixel", "--device", "mount:tablet")
	require.NoError(t, err)

	for _, device := range devices {
		assertSynced(t, filepath.Join(fs.sandboxPath(device, appIdentifier), target), sourceFiles)
	}

	out, err := helper.Run(ctx, "history")
	require.NoError(t, err)
	assert.Contains(t, string(out), "2 syncs: 2 completed, 0 failed")
}

func testHaltsOnMissingApp(t *testing.T, binary string) {
	fs, helper := setup(t, binary, []string{"a", "b", "c"}, "a", "c")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, err := helper.Run(ctx, "sync", "--no-gui",
		"--device", "mount:a", "--device", "mount:b", "--device", "mount:c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "application not installed")

	assertSynced(t, filepath.Join(fs.sandboxPath("a", appIdentifier), target), sourceFiles)
	assertEmpty(t, fs.devicePath("b"))
	assertEmpty(t, fs.sandboxPath("c", appIdentifier))

	out, err := helper.Run(ctx, "history")
	require.NoError(t, err)
	assert.Contains(t, string(out), "2 syncs: 1 completed, 1 failed")
}

func testWatch(t *testing.T, binary string) {
	fs, helper := setup(t, binary, []string{"pixel"}, "pixel")
	synced := filepath.Join(fs.sandboxPath("pixel", appIdentifier), target)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdout, errChan, err := helper.Start(ctx, "sync", "--no-gui", "--watch", "--device", "mount:pixel")
	require.NoError(t, err)
	go io.Copy(io.Discard, stdout)

	// The modification time is set after the contents, so a matching time
	// means that the copy finished.
	waitFor := func(f file) {
		assert.Eventually(t, func() bool {
			fi, err := os.Stat(filepath.Join(synced, f.path))
			return err == nil && f.modTime.Equal(fi.ModTime())
		}, time.Minute, 500*time.Millisecond, f.path)
	}

	// cover.jpg is the last file to be copied.
	waitFor(sourceFiles[0])
	select {
	case err := <-errChan:
		require.NoError(t, err, "sync exited early")
	default:
	}

	added := randomFile("2021/new.jpg")
	require.NoError(t, fs.createFile(added))
	waitFor(added)
	assertSynced(t, synced, append(sourceFiles, added))
}
