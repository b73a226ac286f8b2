package config

import "github.com/spf13/afero"

// fs is overridden by afero.NewMemMapFs() in the tests.
var fs = afero.NewOsFs()
