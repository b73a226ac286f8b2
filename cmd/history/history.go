package history

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sidkik/multisync/cmd/util"
	"github.com/sidkik/multisync/pkg/config"
	"github.com/sidkik/multisync/pkg/errors"
	"github.com/sidkik/multisync/pkg/history"
)

const timeFormat = "2006-01-02 15:04:05"

type store interface {
	Recent(limit int) ([]history.Run, error)
	Stats() (history.Stats, error)
	Clear() (int64, error)
	Close() error
}

// Mocked for unit testing.
var (
	stdout          io.Writer = os.Stdout
	parseUserConfig           = config.ParseUser
	openHistory               = func(path string) (store, error) {
		return history.Open(path)
	}
	promptYesOrNo = util.PromptYesOrNo
)

// New creates a new `history` command.
func New() *cobra.Command {
	var limit int
	var clearAll bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the results of previous syncs",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(limit, clearAll); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "The number of syncs to show.")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete the sync history.")
	return cmd
}

func run(limit int, clearAll bool) error {
	cfg, err := parseUserConfig()
	if err != nil {
		return errors.WithContext(err, "parse user config")
	}

	s, err := openHistory(cfg.HistoryPath)
	if err != nil {
		return errors.WithContext(err, "open history")
	}
	defer s.Close()

	if clearAll {
		return clearHistory(s)
	}
	return printHistory(s, limit)
}

func clearHistory(s store) error {
	shouldClear, err := promptYesOrNo("Delete the history of every sync?")
	if err != nil {
		return errors.WithContext(err, "prompt")
	}

	if !shouldClear {
		fmt.Fprintln(stdout, "Aborted.")
		return nil
	}

	deleted, err := s.Clear()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Deleted %d syncs.\n", deleted)
	return nil
}

func printHistory(s store, limit int) error {
	runs, err := s.Recent(limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No syncs yet.")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 8, 3, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tDEVICE\tSTATUS\tFILES\tFAILED\tWARNINGS\tERROR")
	for _, run := range runs {
		device := run.DeviceID
		if run.DeviceName != "" && run.DeviceName != run.DeviceID {
			device = fmt.Sprintf("%s (%s)", run.DeviceName, run.DeviceID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			run.FinishedAt.Local().Format(timeFormat), device, run.Status,
			run.Files, run.FailedCopies, run.Warnings, run.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats, err := s.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\n%d syncs: %d completed, %d failed\n",
		stats.Total, stats.Completed, stats.Failed)
	return nil
}
