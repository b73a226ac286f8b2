package util

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/multisync/pkg/config"
	"github.com/sidkik/multisync/pkg/device"
	"github.com/sidkik/multisync/pkg/device/adb"
	"github.com/sidkik/multisync/pkg/device/mount"
	"github.com/sidkik/multisync/pkg/errors"
)

func TestHandleFatalError(t *testing.T) {
	out := bytes.NewBuffer(nil)
	stderr = out
	var exitCode int
	exit = func(code int) { exitCode = code }

	err := errors.WithContext(errors.NewFriendlyError("Friendly message"), "context")
	HandleFatalError(err)
	assert.Equal(t, "Friendly message\n", out.String())
	assert.Equal(t, 1, exitCode)

	out.Reset()
	HandleFatalError(errors.WithContext(errors.New("cause"), "context"))
	assert.Equal(t, "context: cause\n", out.String())
}

func TestHandlePanic(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		defer HandlePanic()
		panic("boom")
	})

	assert.NotPanics(t, func() {
		defer HandlePanic()
	})
}

func TestGetDiscoverer(t *testing.T) {
	assert.Equal(t, device.MultiDiscoverer{adb.Discoverer{}},
		GetDiscoverer(config.User{}))
	assert.Equal(t, device.MultiDiscoverer{adb.Discoverer{}, mount.Discoverer{Root: "/mnt"}},
		GetDiscoverer(config.User{MountRoot: "/mnt"}))
}

func TestProgressPrinter(t *testing.T) {
	out := bytes.NewBuffer(nil)
	pp := NewProgressPrinter(out, "Working")
	pp.interval = 10 * time.Millisecond

	go pp.Run()
	time.Sleep(50 * time.Millisecond)
	pp.StopWithPrint(" done\n")

	// Stopping twice is a no-op.
	pp.Stop()

	printed := out.String()
	assert.True(t, strings.HasPrefix(printed, "Working."), printed)
	assert.True(t, strings.HasSuffix(printed, " done\n"), printed)
}

func TestPromptYesOrNo(t *testing.T) {
	tests := []struct {
		input string
		exp   bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}

	for _, test := range tests {
		out := bytes.NewBuffer(nil)
		stdout = out
		stdin = strings.NewReader(test.input)

		resp, err := PromptYesOrNo("Continue?")
		assert.NoError(t, err)
		assert.Equal(t, test.exp, resp, test.input)
		assert.Equal(t, "Continue? (y/N) ", out.String())
	}
}
