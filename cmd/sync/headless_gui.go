package sync

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Mocked for unit testing.
var stdout io.Writer = os.Stdout

// headlessGUI logs the sync to stdout instead of drawing a GUI. It returns
// as soon as the sync ends, so it's suited to scripts.
type headlessGUI struct {
	logger *logrus.Logger
}

func newHeadlessGUI() syncGUI {
	logger := logrus.New()
	logger.SetOutput(stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return headlessGUI{logger}
}

func (gui headlessGUI) Run(_ dashboard, runSync func() error) error {
	return runSync()
}

func (gui headlessGUI) GetLogger() *logrus.Logger {
	return gui.logger
}

func (gui headlessGUI) Interactive() bool {
	return false
}
