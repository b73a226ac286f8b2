package util

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/ghodss/yaml"

	"github.com/sidkik/multisync/pkg/config"
	"github.com/sidkik/multisync/pkg/errors"
)

// TestHelper contains methods commonly used during integration tests.
type TestHelper struct {
	// Binary is the path to the multisync binary under test.
	Binary string

	// HomeDir is used as the home directory of every command, so that the
	// tests don't touch the user's real config.
	HomeDir string
}

// NewTestHelper creates a new TestHelper.
func NewTestHelper(binary, homeDir string) *TestHelper {
	return &TestHelper{Binary: binary, HomeDir: homeDir}
}

func (helper *TestHelper) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, helper.Binary, args...)
	cmd.Env = append(os.Environ(), "HOME="+helper.HomeDir, "MULTISYNC_LOG_VERBOSE=true")
	return cmd
}

// WriteConfig writes the user config used by the commands.
func (helper *TestHelper) WriteConfig(cfg config.User) error {
	cfg.Version = config.SupportedUserConfigVersion
	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	path := filepath.Join(helper.HomeDir, ".multisync.yaml")
	return os.WriteFile(path, yamlBytes, 0644)
}

// Run runs the given multisync command, and returns its stdout. If the
// command fails, the error contains its stderr.
func (helper *TestHelper) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := helper.command(ctx, args...)
	stderr := bytes.NewBuffer(nil)
	cmd.Stderr = stderr

	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s (stderr: %s)", err, stderr)
	}
	return out, nil
}

// Start starts the given multisync command. It returns a reader for the
// stdout output, and a channel for obtaining any errors after starting the
// command, and any errors from starting the command. The command is
// terminated when ctx is cancelled.
func (helper *TestHelper) Start(ctx context.Context, args ...string) (
	io.Reader, chan error, error) {

	cmd := exec.Command(helper.Binary, args...)
	cmd.Env = helper.command(ctx).Env

	stdoutReader, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}

	stderr := bytes.NewBuffer(nil)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	errChan := make(chan error)
	go func() {
		waitErr := make(chan error)
		go func() {
			waitErr <- cmd.Wait()
			close(waitErr)
		}()

		defer close(errChan)
		select {
		case <-ctx.Done():
			if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
				errChan <- errors.WithContext(err, "kill")
				return
			}
			<-waitErr
		case err := <-waitErr:
			errChan <- fmt.Errorf("crashed (%s): stderr: %s", err, stderr)
		}
	}()
	return stdoutReader, errChan, nil
}
