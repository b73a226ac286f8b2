package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/multisync/cmd/bugtool"
	configCmd "github.com/sidkik/multisync/cmd/config"
	"github.com/sidkik/multisync/cmd/devices"
	historyCmd "github.com/sidkik/multisync/cmd/history"
	syncCmd "github.com/sidkik/multisync/cmd/sync"
	"github.com/sidkik/multisync/cmd/util"
	"github.com/sidkik/multisync/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "MULTISYNC_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	if err := newRootCommand().Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "multisync",
		Short: "Copy a directory into an application's storage on many devices",
		Long: "MultiSync copies a local directory into the storage of an " +
			"application on every connected device, one device at a time.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		bugtool.New(),
		configCmd.New(),
		devices.New(),
		historyCmd.New(),
		syncCmd.New(),
		version.New(),
	)
	return rootCmd
}
