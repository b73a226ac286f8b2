// Package config parses and writes the MultiSync user configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/multisync/pkg/errors"
)

// malformedConfigTemplate takes the config path and the decoder's error.
const malformedConfigTemplate = "MultiSync couldn't read its config at %q.\n" +
	"Check that:\n" +
	" - sourceDirectory, targetDirectory and appIdentifier are strings\n" +
	" - every key is one written by `multisync config`\n\n" +
	"Decoder error:\n" +
	"%s"

const missingConfigTemplate = "The MultiSync user config file doesn't exist " +
	"at %q. Please run `multisync config` to create it."

type versioned interface {
	getVersion() string
}

// versionMismatchError is returned for config files written by a different
// release of MultiSync.
type versionMismatchError struct {
	path, want, got string
}

func (err versionMismatchError) Error() string {
	return err.FriendlyMessage()
}

func (err versionMismatchError) FriendlyMessage() string {
	return fmt.Sprintf("%q was written for config version %q, but this "+
		"MultiSync binary reads %q.\n"+
		"Run `multisync config` to rewrite it.", err.path, err.got, err.want)
}

func readConfig(path string) ([]byte, error) {
	raw, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return nil, errors.FileNotFound{Path: path}
	}
	if err != nil {
		return nil, errors.WithContext(err, "read file")
	}
	return raw, nil
}

// decodeConfig fills config from raw. A version mismatch takes precedence
// over unknown keys, since keys come and go between versions.
func decodeConfig(path string, raw []byte, config versioned, want string) error {
	if err := yaml.Unmarshal(raw, config); err != nil {
		return errors.NewFriendlyError(malformedConfigTemplate, path, err)
	}

	if got := config.getVersion(); got != want {
		return versionMismatchError{path: path, want: want, got: got}
	}

	if err := yaml.UnmarshalStrict(raw, config, yaml.DisallowUnknownFields); err != nil {
		return errors.NewFriendlyError(malformedConfigTemplate, path, err)
	}
	return nil
}

// writeConfig marshals config to path, creating its directory if needed.
func writeConfig(path string, config versioned) error {
	raw, err := yaml.Marshal(config)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithContext(err, "create config directory")
	}

	if err := afero.WriteFile(fs, path, raw, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}
