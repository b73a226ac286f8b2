package bugtool

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ghodss/yaml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/multisync/cmd/util"
	"github.com/sidkik/multisync/pkg/config"
	"github.com/sidkik/multisync/pkg/errors"
	"github.com/sidkik/multisync/pkg/history"
	"github.com/sidkik/multisync/pkg/version"
)

// historyLimit is the number of runs included in the archive.
const historyLimit = 100

type recentRuns interface {
	Recent(limit int) ([]history.Run, error)
	Close() error
}

// Mocked for unit testing.
var (
	fs                        = afero.NewOsFs()
	stdout          io.Writer = os.Stdout
	parseUserConfig           = config.ParseUser
	getDiscoverer             = util.GetDiscoverer
	openHistory               = func(path string) (recentRuns, error) {
		return history.Open(path)
	}
)

// New creates a new `bug-tool` command.
func New() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "bug-tool",
		Short: "Generate an archive for debugging MultiSync",
		Run: func(_ *cobra.Command, _ []string) {
			if err := main(out); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "path for archive")
	return cmd
}

func main(out string) (err error) {
	tmpdir, err := afero.TempDir(fs, "", "multisync-bug-tool")
	if err != nil {
		return errors.NewFriendlyError("Failed to create out directory:\n%s", err)
	}

	defer func() {
		if rmErr := fs.RemoveAll(tmpdir); rmErr != nil && err == nil {
			err = errors.WithContext(rmErr, "remove temp directory")
		}
	}()

	pp := util.NewProgressPrinter(stdout, "Collecting debugging information")
	go pp.Run()
	setupInfo(tmpdir)
	pp.Stop()

	if out == "" {
		out = fmt.Sprintf("multisync-bug-info-%s.tar.gz",
			time.Now().Format("Jan_02_2006-15-04-05"))
	}
	if err := tarDirectory(tmpdir, out); err != nil {
		return errors.NewFriendlyError("Failed to tar:\n%s", err)
	}

	msg := `Created bug information archive at '%s'.
You may want to edit the archive before sharing it, since it contains file paths.
The archive contains:
 * The MultiSync CLI logs.
 * The MultiSync user config.
 * The most recent syncs.
 * The devices that are currently connected.
 * The version of the MultiSync CLI.
`
	fmt.Fprintf(stdout, msg, out)
	return nil
}

// setupInfo writes each debugging file into root. Failures are logged, so
// that a partial archive is still created.
func setupInfo(root string) {
	if err := setupVersion(root); err != nil {
		log.WithError(err).Warn("Failed to setup version info")
	}

	userConfig, err := parseUserConfig()
	if err != nil {
		log.WithError(err).Error("Failed to parse user config")
		userConfig = config.User{}
	} else {
		if err := writeYAML(filepath.Join(root, "config.yaml"), userConfig); err != nil {
			log.WithError(err).Warn("Failed to setup user config")
		}

		if err := setupCLILogs(root, userConfig); err != nil {
			log.WithError(err).Warn("Failed to setup CLI logs")
		}

		if err := setupHistory(root, userConfig); err != nil {
			log.WithError(err).Warn("Failed to setup sync history")
		}
	}

	if err := setupDevices(root, userConfig); err != nil {
		log.WithError(err).Warn("Failed to setup devices")
	}
}

func setupCLILogs(root string, userConfig config.User) error {
	if userConfig.LogPath == "" {
		return errors.New("no log path defined in user config")
	}

	logFile, err := fs.Open(userConfig.LogPath)
	if err != nil {
		return errors.WithContext(err, "open log")
	}
	defer logFile.Close()

	outFile, err := fs.Create(filepath.Join(root, "cli.log"))
	if err != nil {
		return errors.WithContext(err, "open destination")
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, logFile); err != nil {
		return errors.WithContext(err, "copy")
	}
	return nil
}

func setupHistory(root string, userConfig config.User) error {
	store, err := openHistory(userConfig.HistoryPath)
	if err != nil {
		return errors.WithContext(err, "open history")
	}
	defer store.Close()

	runs, err := store.Recent(historyLimit)
	if err != nil {
		return errors.WithContext(err, "get recent syncs")
	}
	return writeYAML(filepath.Join(root, "history.yaml"), runs)
}

type deviceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func setupDevices(root string, userConfig config.User) error {
	devices, err := getDiscoverer(userConfig).Discover()
	if err != nil {
		return errors.WithContext(err, "discover devices")
	}

	infos := []deviceInfo{}
	for _, d := range devices {
		infos = append(infos, deviceInfo{ID: d.ID(), Name: d.Name()})
	}
	return writeYAML(filepath.Join(root, "devices.yaml"), infos)
}

func setupVersion(root string) error {
	return afero.WriteFile(fs, filepath.Join(root, "version"),
		[]byte(fmt.Sprintf("local version:  %s\n", version.Version)), 0644)
}

func writeYAML(path string, obj interface{}) error {
	yamlBytes, err := yaml.Marshal(obj)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

func tarDirectory(src, outPath string) error {
	out, err := fs.Create(outPath)
	if err != nil {
		return errors.WithContext(err, "open destination")
	}
	defer out.Close()

	gzw := gzip.NewWriter(out)
	defer gzw.Close()

	tw := tar.NewWriter(gzw)
	defer tw.Close()

	return afero.Walk(fs, src, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(fi, fi.Name())
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("make header %s", file))
		}

		relPath, err := filepath.Rel(src, file)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("get relative path of %s to %s", file, src))
		}

		header.Name = filepath.Join("multisync-bug-info", relPath)
		if err := tw.WriteHeader(header); err != nil {
			return errors.WithContext(err, fmt.Sprintf("write %s header", file))
		}

		// Only write contents if it's a file (i.e. not a directory).
		if !fi.Mode().IsRegular() {
			return nil
		}

		f, err := fs.Open(file)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("open %s", file))
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return errors.WithContext(err, fmt.Sprintf("copy %s", file))
		}
		return nil
	})
}
