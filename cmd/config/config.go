package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/multisync/cmd/util"
	"github.com/sidkik/multisync/pkg/config"
	"github.com/sidkik/multisync/pkg/errors"
)

// defaultTargetDirectory is suggested when the user hasn't configured a
// target directory yet.
const defaultTargetDirectory = "MultiSync"

// Mocked for unit testing.
var (
	stdout              io.Writer = os.Stdout
	stdin               io.Reader = os.Stdin
	guessDefaults                 = guessDefaultsImpl
	parseUserConfig               = config.ParseUser
	stat                          = os.Stat
	getWorkingDirectory           = os.Getwd
	getHomeDir                    = os.UserHomeDir
)

// New creates a new `config` command.
func New() *cobra.Command {
	var cliOpts config.User
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup the MultiSync user configuration",
		Run: func(_ *cobra.Command, _ []string) {
			if err := SetupConfig(cliOpts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&cliOpts.SourceDirectory, "source", "",
		"Set the local directory that's copied to devices. "+
			"Optional: If not set, `multisync config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.TargetDirectory, "target", "",
		"Set the directory within the application's storage that files are copied to. "+
			"Optional: If not set, `multisync config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.AppIdentifier, "app-id", "",
		"Set the identifier of the application to sync to, e.g. com.example.app. "+
			"Optional: If not set, `multisync config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.MountRoot, "mount-root", "",
		"Set a directory whose subdirectories are synced to as mounted devices. "+
			"Optional: Mounted devices are disabled if not set.")

	// Setup the commands for querying the contents of the user config.
	type getterSpec struct {
		use, short string
		fn         func(config.User) string
	}

	getters := []getterSpec{
		{
			use:   "get-source",
			short: "Get the currently configured source directory",
			fn:    func(cfg config.User) string { return cfg.SourceDirectory },
		},
		{
			use:   "get-target",
			short: "Get the currently configured target directory",
			fn:    func(cfg config.User) string { return cfg.TargetDirectory },
		},
		{
			use:   "get-app-id",
			short: "Get the currently configured application identifier",
			fn:    func(cfg config.User) string { return cfg.AppIdentifier },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := parseUserConfig()
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig prompts for any settings that weren't set in cliOpts, and
// writes the result to the user config.
func SetupConfig(cliOpts config.User) error {
	cfg, err := generateConfig(cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := config.WriteUser(cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	path, err := config.GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "get user config path")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", path)
	return nil
}

func sourceValidationFn(path string) (string, bool) {
	if path == "" {
		return "The source directory is required.", false
	}

	fi, err := stat(path)
	if err != nil || !fi.IsDir() {
		return errors.DirectoryNotFound{Path: path}.FriendlyMessage(), false
	}
	return "", true
}

func targetValidationFn(path string) (string, bool) {
	if path == "" {
		return "The target directory is required.", false
	}

	if strings.Contains(path, `\`) {
		return "Device paths use forward slashes. " +
			"Please enter the target directory using `/` as the separator.", false
	}
	return "", true
}

var appIdentifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)+$`)

func appIdentifierValidationFn(id string) (string, bool) {
	if appIdentifierPattern.MatchString(id) {
		return "", true
	}

	return "This application identifier is invalid. " +
		"Application identifiers are made up of at least two segments " +
		"separated by `.`, such as `com.example.app`.\n" +
		"Each segment must start with a letter, and may only contain " +
		"letters, numbers and `_`.", false
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the user's desired
// configuration is.
// It makes best guesses at reasonable defaults, and allows users to explicitly
// override them if desired.
func generateConfig(cliOpts config.User) (config.User, error) {
	defaults := guessDefaults()
	currConfig, err := parseUserConfig()
	if err != nil {
		currConfig = config.User{}
		log.WithError(err).Debug("Failed to read current config")
	}

	cfg := cliOpts
	if cfg.MountRoot == "" {
		cfg.MountRoot = currConfig.MountRoot
	}
	cfg.HistoryPath = currConfig.HistoryPath
	cfg.LogPath = currConfig.LogPath

	var prompts []prompt
	if cliOpts.SourceDirectory == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the local directory to copy to each device.\n" +
				"Everything inside it is copied, including subdirectories.\n" +
				"It defaults to the current directory.",
			prompt:        "Source directory",
			defaultAnswer: defaults.SourceDirectory,
			currAnswer:    currConfig.SourceDirectory,
			field:         &cfg.SourceDirectory,
			validationFn:  sourceValidationFn,
		})
	}

	if cliOpts.TargetDirectory == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the directory to copy files into.\n" +
				"It's relative to the application's storage on the device.",
			prompt:        "Target directory",
			defaultAnswer: defaults.TargetDirectory,
			currAnswer:    currConfig.TargetDirectory,
			field:         &cfg.TargetDirectory,
			validationFn:  targetValidationFn,
		})
	}

	if cliOpts.AppIdentifier == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the identifier of the application to copy files to.\n" +
				"The application must be installed on each device.",
			prompt:        "Application identifier",
			defaultAnswer: defaults.AppIdentifier,
			currAnswer:    currConfig.AppIdentifier,
			field:         &cfg.AppIdentifier,
			validationFn:  appIdentifierValidationFn,
		})
	}

	for _, prompt := range prompts {
		var resp string
		for {
			resp, err = promptUser(prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.User{}, errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		*prompt.field = resp
	}

	return cfg, nil
}

// guessDefaults tries to guess reasonable defaults for the fields in the user
// config.
func guessDefaultsImpl() (cfg config.User) {
	if source, err := guessSource(); err == nil {
		cfg.SourceDirectory = source
	} else {
		log.WithError(err).Info("Failed to guess source directory")
	}

	cfg.TargetDirectory = defaultTargetDirectory
	return cfg
}

// guessSource returns the current directory, unless it's the home directory.
// Copying an entire home directory to a device is almost never intended.
func guessSource() (string, error) {
	currDir, err := getWorkingDirectory()
	if err != nil {
		return "", errors.WithContext(err, "get current directory")
	}

	if home, err := getHomeDir(); err == nil && filepath.Clean(home) == filepath.Clean(currDir) {
		return "", nil
	}

	if _, err := stat(currDir); err != nil {
		return "", errors.WithContext(err, "stat")
	}
	return currDir, nil
}

func promptUser(helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	stdinReader := bufio.NewReader(stdin)

	if nOptions := len(options); nOptions > 1 {
		// defaultAnswer or currAnswer exists.
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimRight(choiceStr, "\n")

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					// Try again if the input is invalid.
					continue
				}
			}

			if choice == nOptions {
				// Enter manually.
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(resp, "\n"), nil
}
