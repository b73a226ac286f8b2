package sync

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/multisync/pkg/config"
	"github.com/sidkik/multisync/pkg/device"
	"github.com/sidkik/multisync/pkg/device/mocks"
	"github.com/sidkik/multisync/pkg/errors"
	"github.com/sidkik/multisync/pkg/sync"
)

const appIdentifier = "com.example.app"

func newChannel() *mocks.Channel {
	ch := &mocks.Channel{}
	ch.On("CreateDirectory", mock.Anything).Return(true)
	ch.On("CopyFile", mock.Anything, mock.Anything).Return(nil)
	ch.On("Close").Return(nil)
	return ch
}

func newNamedDevice(id, name string) *mocks.Device {
	d := &mocks.Device{}
	d.On("ID").Return(id).Maybe()
	d.On("Name").Return(name).Maybe()
	d.On("Connect", appIdentifier).Return(newChannel(), nil).Maybe()
	return d
}

// newDevice returns a device whose connections fail with connectErr, if it's
// non-nil.
func newDevice(id string, connectErr error) *mocks.Device {
	if connectErr == nil {
		return newNamedDevice(id, id)
	}

	d := &mocks.Device{}
	d.On("ID").Return(id).Maybe()
	d.On("Name").Return(id).Maybe()
	d.On("Connect", appIdentifier).Return(nil, connectErr)
	return d
}

// completionSink sends the ID of each completed device.
type completionSink struct {
	sync.NopSink
	completed chan string
}

func (s completionSink) OnJobCompleted(job *sync.Job) {
	s.completed <- job.Device.ID()
}

func newTestSession(t *testing.T, devices ...device.Device) (session, completionSink, *logrusTest.Hook) {
	source := filepath.Join(t.TempDir(), "Photos")
	require.NoError(t, os.MkdirAll(filepath.Join(source, "2019"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "2019", "beach.jpg"), []byte("jpg"), 0644))

	logger, hook := logrusTest.NewNullLogger()
	sink := completionSink{completed: make(chan string, 16)}
	return session{
		queue:   sync.NewQueue(sink),
		devices: devices,
		cfg: config.User{
			SourceDirectory: source,
			TargetDirectory: "Dest",
			AppIdentifier:   appIdentifier,
		},
		log:   logger,
		clock: clockwork.NewFakeClock(),
	}, sink, hook
}

func TestSessionSyncsEveryDevice(t *testing.T) {
	red := newDevice("red", nil)
	blue := newDevice("blue", nil)
	sess, sink, _ := newTestSession(t, red, blue)

	assert.NoError(t, sess.Run())
	close(sink.completed)

	var completed []string
	for id := range sink.completed {
		completed = append(completed, id)
	}
	assert.Equal(t, []string{"red", "blue"}, completed)

	ch, err := red.Connect(appIdentifier)
	require.NoError(t, err)
	ch.(*mocks.Channel).AssertCalled(t, "CopyFile",
		filepath.Join(sess.cfg.SourceDirectory, "2019", "beach.jpg"), "Dest/2019/beach.jpg")
}

func TestSessionHalts(t *testing.T) {
	offline := errors.New("offline")
	sess, sink, _ := newTestSession(t, newDevice("red", offline), newDevice("blue", nil))

	err := sess.Run()
	assert.Error(t, err)
	assert.Equal(t, errors.ChannelEstablishError{
		Device:        "red",
		AppIdentifier: appIdentifier,
		Err:           offline,
	}, errors.RootCause(err))
	assert.Equal(t, 1, sess.queue.Pending())
	assert.Empty(t, sink.completed)
}

func TestSessionResume(t *testing.T) {
	sess, sink, hook := newTestSession(t, newDevice("red", errors.New("offline")), newDevice("blue", nil))
	resume := make(chan struct{}, 1)
	sess.resume = resume

	// A request to resume before the halt is ignored.
	resume <- struct{}{}

	errChan := make(chan error)
	go func() {
		errChan <- sess.Run()
	}()

	assert.Eventually(t, func() bool {
		for _, entry := range hook.AllEntries() {
			if strings.HasPrefix(entry.Message, "Sync halted with 1 devices left to sync.") {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	resume <- struct{}{}
	assert.NoError(t, <-errChan)
	assert.Equal(t, "blue", <-sink.completed)
}

func TestSessionWatch(t *testing.T) {
	d := &mocks.Device{}
	d.On("ID").Return("red").Maybe()
	d.On("Name").Return("red").Maybe()
	d.On("Connect", appIdentifier).Return(newChannel(), nil).Twice()
	d.On("Connect", appIdentifier).Return(nil, errors.New("unplugged")).Once()

	sess, sink, _ := newTestSession(t, d)
	sess.watch = true
	clock := sess.clock.(clockwork.FakeClock)

	changes := make(chan struct{}, 1)
	var stopped bool
	watchDir = func(root string) (chan struct{}, func() error, error) {
		assert.Equal(t, sess.cfg.SourceDirectory, root)
		return changes, func() error {
			stopped = true
			return nil
		}, nil
	}

	errChan := make(chan error)
	go func() {
		errChan <- sess.Run()
	}()

	for i := 0; i < 2; i++ {
		assert.Equal(t, "red", <-sink.completed)

		// The sync only starts once the changes have settled.
		changes <- struct{}{}
		clock.BlockUntil(1)
		clock.Advance(settleInterval)
	}

	err := <-errChan
	assert.Error(t, err)
	assert.True(t, stopped)
	d.AssertNumberOfCalls(t, "Connect", 3)
}

func TestSessionPoll(t *testing.T) {
	d := &mocks.Device{}
	d.On("ID").Return("red").Maybe()
	d.On("Name").Return("red").Maybe()
	d.On("Connect", appIdentifier).Return(newChannel(), nil).Once()
	d.On("Connect", appIdentifier).Return(nil, errors.New("unplugged")).Once()

	sess, sink, hook := newTestSession(t, d)
	sess.watch = true
	clock := sess.clock.(clockwork.FakeClock)

	watchDir = func(root string) (chan struct{}, func() error, error) {
		return nil, nil, errors.WithContext(
			errors.New("too many open files"), "watch \"/photos\"")
	}

	errChan := make(chan error)
	go func() {
		errChan <- sess.Run()
	}()

	assert.Equal(t, "red", <-sink.completed)
	clock.BlockUntil(1)
	clock.Advance(pollInterval)

	assert.Error(t, <-errChan)
	assert.Contains(t, hook.AllEntries()[0].Message, "Too many files")
}

func TestSessionWatchMissingSource(t *testing.T) {
	sess, _, _ := newTestSession(t, newDevice("red", nil))
	sess.watch = true
	watchDir = func(root string) (chan struct{}, func() error, error) {
		return nil, nil, errors.WithContext(errors.FileNotFound{Path: root}, "get paths")
	}

	assert.Equal(t, errors.DirectoryNotFound{Path: sess.cfg.SourceDirectory}, sess.Run())
}
