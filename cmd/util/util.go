// Package util contains helpers shared by the MultiSync commands.
package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/multisync/pkg/config"
	"github.com/sidkik/multisync/pkg/device"
	"github.com/sidkik/multisync/pkg/device/adb"
	"github.com/sidkik/multisync/pkg/device/mount"
	"github.com/sidkik/multisync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin
	exit             = os.Exit
)

// ClearProgress is printed by StopWithPrint to erase the progress line.
const ClearProgress = "\033[2K\r"

// HandleFatalError prints the user-facing message for err, and exits.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(stderr, errors.GetPrintableMessage(err))
	exit(1)
}

// HandlePanic logs panics before crashing, so that they show up in the log
// file as well as the terminal.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("panic", r).Error("Unexpected panic")
		panic(r)
	}
}

// GetDiscoverer returns the discoverer for every kind of device enabled by
// cfg.
func GetDiscoverer(cfg config.User) device.Discoverer {
	discoverers := device.MultiDiscoverer{adb.Discoverer{}}
	if cfg.MountRoot != "" {
		discoverers = append(discoverers, mount.Discoverer{Root: cfg.MountRoot})
	}
	return discoverers
}

// ProgressPrinter prints a message followed by a growing line of dots until
// it's stopped.
type ProgressPrinter struct {
	out      io.Writer
	msg      string
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewProgressPrinter creates a ProgressPrinter that writes to out. Run must
// be called to start printing.
func NewProgressPrinter(out io.Writer, msg string) *ProgressPrinter {
	return &ProgressPrinter{
		out:      out,
		msg:      msg,
		interval: 500 * time.Millisecond,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run prints until Stop is called.
func (pp *ProgressPrinter) Run() {
	defer close(pp.done)

	fmt.Fprint(pp.out, pp.msg)
	ticker := time.NewTicker(pp.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fmt.Fprint(pp.out, ".")
		case <-pp.stop:
			return
		}
	}
}

// Stop stops printing, and moves to the next line.
func (pp *ProgressPrinter) Stop() {
	pp.StopWithPrint("\n")
}

// StopWithPrint stops printing, and then prints msg.
func (pp *ProgressPrinter) StopWithPrint(msg string) {
	pp.stopOnce.Do(func() {
		close(pp.stop)
		<-pp.done
		fmt.Fprint(pp.out, msg)
	})
}

// PromptYesOrNo asks the user a yes or no question. Anything other than
// "y" or "yes" is treated as no.
func PromptYesOrNo(prompt string) (bool, error) {
	fmt.Fprintf(stdout, "%s (y/N) ", prompt)
	resp, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.WithContext(err, "read response")
	}

	switch strings.ToLower(strings.TrimSpace(resp)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
