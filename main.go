package main

import (
	"github.com/sidkik/multisync/cmd"
	"github.com/sidkik/multisync/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
