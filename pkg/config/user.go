package config

import (
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/sidkik/multisync/pkg/errors"
)

const (
	// UserConfigPath is the default path to the MultiSync user config.
	UserConfigPath = "~/.multisync.yaml"

	// InitialUserConfigVersion is the version assumed for config files that
	// don't specify one.
	InitialUserConfigVersion = "v1alpha1"

	// SupportedUserConfigVersion is the config version understood by this
	// binary.
	SupportedUserConfigVersion = "v1alpha1"

	// DefaultHistoryPath is where sync history is stored unless the config
	// overrides it.
	DefaultHistoryPath = "~/.multisync/history.db"

	// DefaultLogPath is where `multisync sync` writes its log file unless
	// the config overrides it.
	DefaultLogPath = "~/.multisync/multisync.log"
)

// User contains the settings shared by every sync.
type User struct {
	Version string `json:"version,omitempty"`

	// SourceDirectory is the local directory that's copied to each device.
	SourceDirectory string `json:"sourceDirectory"`

	// TargetDirectory is the directory within the application sandbox that
	// the source directory is copied into.
	TargetDirectory string `json:"targetDirectory"`

	// AppIdentifier identifies the application whose sandbox is synced,
	// e.g. its Android package name.
	AppIdentifier string `json:"appIdentifier"`

	// MountRoot is a directory whose subdirectories are treated as mounted
	// devices. Mounted devices are disabled if it's empty.
	MountRoot string `json:"mountRoot,omitempty"`

	HistoryPath string `json:"historyPath,omitempty"`
	LogPath     string `json:"logPath,omitempty"`
}

func (u User) getVersion() string {
	return u.Version
}

// Validate checks that the fields required to sync are set.
func (u User) Validate() error {
	required := []struct {
		name, value string
	}{
		{"sourceDirectory", u.SourceDirectory},
		{"targetDirectory", u.TargetDirectory},
		{"appIdentifier", u.AppIdentifier},
	}
	for _, field := range required {
		if field.value == "" {
			return errors.MissingFieldError{Field: field.name}
		}
	}
	return nil
}

// homedirExpand is overridden in the tests.
var homedirExpand = homedir.Expand

// ParseUser parses the User stored in the default path. Local paths are
// expanded, and relative paths are evaluated relative to the config file.
func ParseUser() (User, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return User{}, errors.WithContext(err, "expand config path")
	}

	raw, err := readConfig(path)
	if _, ok := err.(errors.FileNotFound); ok {
		return User{}, errors.NewFriendlyError(missingConfigTemplate, path)
	}
	if err != nil {
		return User{}, err
	}

	config := User{Version: InitialUserConfigVersion}
	if err := decodeConfig(path, raw, &config, SupportedUserConfigVersion); err != nil {
		return User{}, errors.WithContext(err, "parse")
	}

	if config.HistoryPath == "" {
		config.HistoryPath = DefaultHistoryPath
	}
	if config.LogPath == "" {
		config.LogPath = DefaultLogPath
	}

	configDir := filepath.Dir(path)
	for _, field := range []*string{
		&config.SourceDirectory, &config.MountRoot,
		&config.HistoryPath, &config.LogPath,
	} {
		if *field, err = resolvePath(*field, configDir); err != nil {
			return User{}, errors.WithContext(err, "expand path")
		}
	}
	return config, nil
}

func resolvePath(path, configDir string) (string, error) {
	if path == "" {
		return "", nil
	}

	path, err := homedirExpand(path)
	if err != nil {
		return "", err
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(configDir, path)
	}
	return path, nil
}

// WriteUser writes the given user config to disk.
func WriteUser(cfg User) error {
	cfg.Version = SupportedUserConfigVersion
	path, err := GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}
	return writeConfig(path, cfg)
}

// GetUserConfigPath returns the expanded path to the user config.
func GetUserConfigPath() (string, error) {
	return homedirExpand(UserConfigPath)
}
