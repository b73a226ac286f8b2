package sync

import (
	"fmt"
	"os"
	"strings"

	"github.com/asaskevich/EventBus"
	"github.com/jonboulle/clockwork"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sidkik/multisync/cmd/util"
	"github.com/sidkik/multisync/pkg/config"
	"github.com/sidkik/multisync/pkg/device"
	"github.com/sidkik/multisync/pkg/errors"
	"github.com/sidkik/multisync/pkg/history"
	"github.com/sidkik/multisync/pkg/sync"
)

// Mocked for unit testing.
var (
	parseUserConfig = config.ParseUser
	getDiscoverer   = util.GetDiscoverer
	openHistory     = history.Open
)

type syncCmd struct {
	cfg       config.User
	deviceIDs []string
	watch     bool
	gui       syncGUI
}

// chanWriter provides an io.Writer interface for writing to a channel.
type chanWriter chan []byte

func (w chanWriter) Write(p []byte) (int, error) {
	cpy := make([]byte, len(p))
	copy(cpy, p)
	w <- cpy
	return len(p), nil
}

// New creates a new `sync` command.
func New() *cobra.Command {
	var cmd syncCmd
	var overrides config.User
	var disableGUI bool
	cobraCmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy the source directory to every connected device",
		Long: `Copy the source directory into the application's storage on every
connected device, one device at a time.

Every file is copied on every sync. If a device can't be synced, the remaining
devices are left pending.`,
		Run: func(_ *cobra.Command, _ []string) {
			userConfig, err := parseUserConfig()
			if err != nil {
				util.HandleFatalError(errors.WithContext(err, "parse user config"))
			}

			cmd.cfg, err = applyOverrides(userConfig, overrides)
			if err != nil {
				util.HandleFatalError(err)
			}

			logFile := setupLogFile(cmd.cfg.LogPath)
			defer logFile.Close()

			// The GUI needs a terminal to draw in.
			if disableGUI || !isTerminal(os.Stdout) {
				cmd.gui = newHeadlessGUI()
			} else {
				cmd.gui = newSyncGUI()
			}

			if err := cmd.run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cobraCmd.Flags().StringSliceVar(&cmd.deviceIDs, "device", nil,
		"Only sync to the device with this ID. May be repeated. "+
			"Run `multisync devices` to list the device IDs.")
	cobraCmd.Flags().BoolVar(&disableGUI, "no-gui", false,
		"Disable the GUI, and log to stdout instead.")
	cobraCmd.Flags().BoolVar(&cmd.watch, "watch", false,
		"Keep running, and sync again whenever the source directory changes.")
	cobraCmd.Flags().StringVar(&overrides.SourceDirectory, "source", "",
		"Override the configured source directory.")
	cobraCmd.Flags().StringVar(&overrides.TargetDirectory, "target", "",
		"Override the configured target directory.")
	cobraCmd.Flags().StringVar(&overrides.AppIdentifier, "app-id", "",
		"Override the configured application identifier.")
	return cobraCmd
}

// applyOverrides replaces the fields in cfg that were set with flags, and
// checks that the result can be synced.
func applyOverrides(cfg, overrides config.User) (config.User, error) {
	if overrides.SourceDirectory != "" {
		cfg.SourceDirectory = overrides.SourceDirectory
	}
	if overrides.TargetDirectory != "" {
		cfg.TargetDirectory = overrides.TargetDirectory
	}
	if overrides.AppIdentifier != "" {
		cfg.AppIdentifier = overrides.AppIdentifier
	}

	if err := cfg.Validate(); err != nil {
		if missing, ok := err.(errors.MissingFieldError); ok {
			return config.User{}, errors.NewFriendlyError(
				"The %s field is required in %s. "+
					"Run `multisync config` to set it.",
				missing.Field, config.UserConfigPath)
		}
		return config.User{}, err
	}
	return cfg, nil
}

// setupLogFile sends the global logs to a rotated log file.
func setupLogFile(path string) *lumberjack.Logger {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,

		// Disable colors since we'll be logging to a file.
		DisableColors: true,
	})

	logFile := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}
	logrus.SetOutput(logFile)
	return logFile
}

// selectDevices discovers the connected devices, and returns the ones that
// were requested.
func selectDevices(discoverer device.Discoverer, ids []string) ([]device.Device, error) {
	devices, err := discoverer.Discover()
	if err != nil {
		return nil, errors.WithContext(err, "discover devices")
	}

	selected, missing := device.Filter(devices, ids)
	if len(missing) != 0 {
		return nil, errors.NewFriendlyError("Couldn't find the devices: %s.\n"+
			"Run `multisync devices` to list the connected devices.",
			strings.Join(missing, ", "))
	}

	if len(selected) == 0 {
		return nil, errors.NewFriendlyError("No devices found.\n" +
			"Connect an Android device with USB debugging enabled, or set a " +
			"mount root with `multisync config --mount-root`.")
	}
	return selected, nil
}

func (sc syncCmd) run() error {
	devices, err := selectDevices(getDiscoverer(sc.cfg), sc.deviceIDs)
	if err != nil {
		return err
	}

	guiLogger := sc.gui.GetLogger()
	bus := EventBus.New()
	clock := clockwork.NewRealClock()
	sinks := sync.MultiSink{
		sync.NewLogSink(guiLogger),
		sync.NewLogSink(logrus.StandardLogger()),
		sync.BusSink{Bus: bus},
	}

	store, err := openHistory(sc.cfg.HistoryPath)
	if err == nil {
		defer store.Close()
		sinks = append(sinks, history.NewSink(store, clock))
	} else {
		guiLogger.WithError(err).Warn("Failed to open the sync history. " +
			"This sync won't be recorded.")
	}

	sess := session{
		queue:   sync.NewQueue(sinks, sync.WithClock(clock)),
		devices: devices,
		cfg:     sc.cfg,
		log:     guiLogger,
		watch:   sc.watch,
		clock:   clock,
	}

	var resume func()
	if sc.gui.Interactive() {
		resumeChan := make(chan struct{}, 1)
		sess.resume = resumeChan
		resume = func() {
			select {
			case resumeChan <- struct{}{}:
			default:
			}
		}
	}

	return sc.gui.Run(dashboard{
		cfg:     sc.cfg,
		devices: devices,
		bus:     bus,
		resume:  resume,
	}, sess.Run)
}

// dashboard is what the GUI displays.
type dashboard struct {
	cfg     config.User
	devices []device.Device
	bus     EventBus.Bus

	// resume asks a halted sync to continue with the next device. It's nil
	// if the sync can't be resumed.
	resume func()
}

func deviceLabel(name, id string) string {
	if name == id {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, id)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
