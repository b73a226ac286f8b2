//go:build ci
// +build ci

package main

import (
	"os"
	"testing"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/sidkik/multisync/ci/sync"
)

type TestFunction func(*testing.T, string)

func TestMultiSync(t *testing.T) {
	homedir.DisableCache = true

	binary, ok := os.LookupEnv("CI_MULTISYNC_BINARY")
	if !ok {
		t.Error("missing required environment variable CI_MULTISYNC_BINARY")
		return
	}

	tests := []struct {
		name   string
		testFn TestFunction
	}{
		{
			name:   "FileSync",
			testFn: sync.Test,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			test.testFn(t, binary)
		})
	}
}
