package devices

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sidkik/multisync/cmd/util"
	"github.com/sidkik/multisync/pkg/config"
	"github.com/sidkik/multisync/pkg/device"
	"github.com/sidkik/multisync/pkg/device/adb"
	"github.com/sidkik/multisync/pkg/device/mount"
	"github.com/sidkik/multisync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout          io.Writer = os.Stdout
	parseUserConfig           = config.ParseUser
	getDiscoverer             = util.GetDiscoverer
)

// New creates a new `devices` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the devices that files can be synced to",
		Long: "List the connected Android devices, and the devices mounted in " +
			"the configured mount root.\n" +
			"The IDs can be passed to `multisync sync --device` to only sync " +
			"to some devices.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run() error {
	// Device discovery doesn't require a complete config, so a missing
	// config only disables mounted devices.
	cfg, err := parseUserConfig()
	if err != nil {
		cfg = config.User{}
	}

	devices, err := getDiscoverer(cfg).Discover()
	if err != nil {
		return errors.WithContext(err, "discover devices")
	}

	if len(devices) == 0 {
		fmt.Fprintln(stdout, "No devices found.")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 8, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID(), d.Name(), kind(d))
	}
	return w.Flush()
}

func kind(d device.Device) string {
	switch d.(type) {
	case adb.Device:
		return "android"
	case mount.Device:
		return "mount"
	default:
		return "unknown"
	}
}
