// Package adb implements devices that are reached through the Android Debug
// Bridge. Files are copied into the application's external files directory.
package adb

import (
	"bytes"
	"context"
	"os/exec"
	"path"
	"regexp"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/multisync/pkg/device"
	"github.com/sidkik/multisync/pkg/errors"
)

// MinVersion is the oldest adb release that's known to handle `push` into
// the application sandbox correctly.
const MinVersion = "1.0.39"

// Variables mocked for unit testing.
var (
	adbPath        = "adb"
	runCommand     = (*exec.Cmd).Run
	commandTimeout = 30 * time.Second
	pushTimeout    = 5 * time.Minute
)

var versionPattern = regexp.MustCompile(`Android Debug Bridge version (\S+)`)

// Discoverer lists the devices that adb reports as ready.
type Discoverer struct{}

// Discover implements device.Discoverer.
func (Discoverer) Discover() ([]device.Device, error) {
	if err := checkVersion(); err != nil {
		return nil, err
	}

	out, err := adb(commandTimeout, "devices", "-l")
	if err != nil {
		return nil, errors.WithContext(err, "list devices")
	}

	var devices []device.Device
	for _, d := range parseDevices(out) {
		devices = append(devices, d)
	}
	return devices, nil
}

func checkVersion() error {
	out, err := adb(commandTimeout, "version")
	if err != nil {
		return errors.WithContext(err, "get adb version")
	}

	match := versionPattern.FindStringSubmatch(out)
	if match == nil {
		return errors.New("unrecognized adb version output")
	}

	version, err := goversion.NewVersion(match[1])
	if err != nil {
		return errors.WithContext(err, "parse adb version")
	}

	if version.LessThan(goversion.Must(goversion.NewVersion(MinVersion))) {
		return errors.NewFriendlyError("adb %s is too old. "+
			"Please upgrade the Android platform tools to adb %s or later.",
			version, MinVersion)
	}
	return nil
}

// parseDevices parses the output of `adb devices -l`. Devices that aren't
// ready, e.g. because they're unauthorized or offline, are skipped.
func parseDevices(out string) (devices []Device) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "*") ||
			strings.HasPrefix(line, "List of devices") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		serial, state := fields[0], fields[1]
		if state != "device" {
			log.WithField("serial", serial).WithField("state", state).
				Warn("Skipping Android device that isn't ready")
			continue
		}

		d := Device{Serial: serial}
		for _, field := range fields[2:] {
			if strings.HasPrefix(field, "model:") {
				d.Model = strings.Replace(strings.TrimPrefix(field, "model:"), "_", " ", -1)
			}
		}
		devices = append(devices, d)
	}
	return devices
}

// Device is an Android device.
type Device struct {
	Serial string
	Model  string
}

// ID implements device.Device.
func (d Device) ID() string {
	return d.Serial
}

// Name implements device.Device.
func (d Device) Name() string {
	if d.Model == "" {
		return d.Serial
	}
	return d.Model
}

// Connect checks that the application is installed, and returns a channel
// into its external files directory.
func (d Device) Connect(appIdentifier string) (device.Channel, error) {
	out, err := d.shell(commandTimeout, "pm", "path", appIdentifier)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("application not installed")
	}
	if err != nil {
		return nil, errors.ChannelEstablishError{
			Device:        d.Serial,
			AppIdentifier: appIdentifier,
			Err:           err,
		}
	}

	return channel{serial: d.Serial, root: SandboxRoot(appIdentifier)}, nil
}

func (d Device) shell(timeout time.Duration, args ...string) (string, error) {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return adb(timeout, append([]string{"-s", d.Serial, "shell"}, quoted...)...)
}

// SandboxRoot returns the directory that an application can read without
// any extra permissions.
func SandboxRoot(appIdentifier string) string {
	return path.Join("/sdcard/Android/data", appIdentifier, "files")
}

type channel struct {
	serial string
	root   string
}

func (c channel) CreateDirectory(remotePath string) bool {
	dir := c.resolve(remotePath)
	_, err := Device{Serial: c.serial}.shell(commandTimeout, "mkdir", "-p", dir)
	if err != nil {
		log.WithError(err).WithField("path", dir).Debug("Failed to create directory")
		return false
	}
	return true
}

func (c channel) CopyFile(localPath, remotePath string) error {
	_, err := adb(pushTimeout, "-s", c.serial, "push", localPath, c.resolve(remotePath))
	return errors.WithContext(err, "push")
}

func (c channel) Close() error {
	return nil
}

// resolve makes relative remote paths relative to the sandbox root.
func (c channel) resolve(remotePath string) string {
	if path.IsAbs(remotePath) {
		return remotePath
	}
	return path.Join(c.root, remotePath)
}

// adb runs adb with the given arguments and returns its stdout.
func adb(timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, adbPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := runCommand(cmd); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = errors.New(msg)
		}
		return "", errors.WithContext(err, "adb "+strings.Join(args, " "))
	}
	return stdout.String(), nil
}

func shellQuote(s string) string {
	return "'" + strings.Replace(s, "'", `'\''`, -1) + "'"
}
