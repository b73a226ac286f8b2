package sync

import (
	"fmt"
	"io"
	goSync "sync"
	"text/tabwriter"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/buger/goterm"
	"github.com/jroimartin/gocui"
	"github.com/sirupsen/logrus"

	"github.com/sidkik/multisync/cmd/util"
	"github.com/sidkik/multisync/pkg/config"
	"github.com/sidkik/multisync/pkg/device"
	"github.com/sidkik/multisync/pkg/errors"
	"github.com/sidkik/multisync/pkg/sync"
)

const (
	settingsWidgetName   = "settings"
	devicesWidgetName    = "devices"
	recentFileWidgetName = "recent"
	statusWidgetName     = "status"
)

type syncGUI interface {
	// Run displays the dashboard while runSync runs.
	Run(d dashboard, runSync func() error) error

	// GetLogger returns a logrus Logger that can be used to display messages
	// on the user's screen.
	GetLogger() *logrus.Logger

	// Interactive returns whether the user can resume a halted sync.
	Interactive() bool
}

// syncGUIImpl contains the GUI implementation for normal user usage.
type syncGUIImpl struct {
	logger    *logrus.Logger
	loggerOut chanWriter
}

func newSyncGUI() syncGUI {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: time.Kitchen,
	})

	// Allow 256 `Write`s without a corresponding `Read`. If the channel
	// becomes full, logging blocks until the UI catches up.
	loggerOut := chanWriter(make(chan []byte, 256))
	logger.SetOutput(loggerOut)

	return &syncGUIImpl{logger, loggerOut}
}

func (sg *syncGUIImpl) GetLogger() *logrus.Logger {
	return sg.logger
}

func (sg *syncGUIImpl) Interactive() bool {
	return true
}

func (sg *syncGUIImpl) Run(d dashboard, runSync func() error) error {
	gui, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}
	defer gui.Close()

	settings := &settingsWidget{cfg: d.cfg, devices: len(d.devices)}

	// Stream the logrus output to the status view.
	status := &statusWidget{height: 8}
	go func() {
		defer util.HandlePanic()
		copyToView(gui, statusWidgetName, sg.loggerOut)
	}()

	deviceUpdates, err := subscribeDevices(d.bus)
	if err != nil {
		return err
	}
	devices := newDevicesWidget(d.devices)
	go func() {
		defer util.HandlePanic()
		devices.syncUpdates(gui, deviceUpdates)
	}()

	recentUpdates, err := subscribeRecentFile(d.bus)
	if err != nil {
		return err
	}
	recent := &recentFileWidget{}
	go func() {
		defer util.HandlePanic()
		recent.syncUpdates(gui, recentUpdates)
	}()

	go func() {
		defer util.HandlePanic()
		if err := runSync(); err != nil {
			sg.logger.Error(errors.GetPrintableMessage(err))
			return
		}
		sg.logger.Info("Sync finished. Press Ctrl-C to exit.")
	}()

	gui.SetManager(settings, devices, recent, status)
	ctrlCHandler := func(_ *gocui.Gui, _ *gocui.View) error {
		return gocui.ErrQuit
	}
	if err := gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, ctrlCHandler); err != nil {
		return errors.WithContext(err, "bind GUI Ctrl-C")
	}

	if d.resume != nil {
		resumeHandler := func(_ *gocui.Gui, _ *gocui.View) error {
			d.resume()
			return nil
		}
		if err := gui.SetKeybinding("", 'r', gocui.ModNone, resumeHandler); err != nil {
			return errors.WithContext(err, "bind GUI resume")
		}
	}

	if err := gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

// deviceUpdate is a change to a device's row in the devices widget.
type deviceUpdate struct {
	status  sync.Status
	warning bool

	// drained is set when every device has been synced. status is empty.
	drained bool
}

// subscribeDevices returns a channel that receives the sync status of each
// device as it changes.
func subscribeDevices(bus EventBus.Bus) (chan deviceUpdate, error) {
	updates := make(chan deviceUpdate, 256)
	handlers := map[string]interface{}{
		sync.TopicProgress: func(status sync.Status) {
			updates <- deviceUpdate{status: status}
		},
		sync.TopicJobCompleted: func(status sync.Status) {
			updates <- deviceUpdate{status: status}
		},
		sync.TopicWarning: func(status sync.Status, _ string) {
			updates <- deviceUpdate{status: status, warning: true}
		},
		sync.TopicJobFailed: func(status sync.Status, msg string) {
			status.Message = msg
			updates <- deviceUpdate{status: status}
		},
		sync.TopicQueueDrained: func() {
			updates <- deviceUpdate{drained: true}
		},
	}
	for topic, handler := range handlers {
		if err := bus.Subscribe(topic, handler); err != nil {
			return nil, errors.WithContext(err, fmt.Sprintf("subscribe to %s", topic))
		}
	}
	return updates, nil
}

// subscribeRecentFile returns a channel that receives the path of each file
// as it's copied.
func subscribeRecentFile(bus EventBus.Bus) (chan string, error) {
	updates := make(chan string, 256)
	err := bus.Subscribe(sync.TopicRecentFile, func(path string) {
		updates <- path
	})
	if err != nil {
		return nil, errors.WithContext(err, fmt.Sprintf("subscribe to %s", sync.TopicRecentFile))
	}
	return updates, nil
}

// settingsWidget displays the sync settings at the top of the GUI.
type settingsWidget struct {
	cfg     config.User
	devices int
}

func (w *settingsWidget) Layout(g *gocui.Gui) error {
	maxWidth, _ := g.Size()
	height := 3

	v, err := g.SetView(settingsWidgetName, 0, 0, maxWidth-1, height+1)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}

	v.Title = "Settings"
	v.Wrap = true
	v.Clear()

	out := tabwriter.NewWriter(v, 0, 10, 2, ' ', 0)
	defer out.Flush()
	fmt.Fprintf(out, "Source:\t%s\n", w.cfg.SourceDirectory)
	fmt.Fprintf(out, "Target:\t%s (%s)\n", w.cfg.TargetDirectory, w.cfg.AppIdentifier)
	fmt.Fprintf(out, "Devices:\t%d\n", w.devices)
	return nil
}

type deviceRow struct {
	label    string
	status   sync.Status
	warnings int
}

// devicesWidget displays the sync progress of each device. It's placed under
// the settings.
type devicesWidget struct {
	order []string
	rows  map[string]*deviceRow
	lock  goSync.Mutex

	// idle is set once every device has been synced, and cleared when the
	// next sync starts.
	idle bool
}

func newDevicesWidget(devices []device.Device) *devicesWidget {
	w := &devicesWidget{rows: map[string]*deviceRow{}}
	for _, d := range devices {
		w.order = append(w.order, d.ID())
		w.rows[d.ID()] = &deviceRow{
			label:  deviceLabel(d.Name(), d.ID()),
			status: sync.Status{State: sync.StatePending},
		}
	}
	return w
}

// syncUpdates redraws the UI whenever there's a new device status in the
// `updates` channel.
func (w *devicesWidget) syncUpdates(g *gocui.Gui, updates chan deviceUpdate) {
	for update := range updates {
		w.apply(update)
		g.Update(w.Layout)
	}
}

func (w *devicesWidget) apply(update deviceUpdate) {
	w.lock.Lock()
	defer w.lock.Unlock()

	if update.drained {
		w.idle = true
		return
	}

	row, ok := w.rows[update.status.DeviceID]
	if !ok {
		return
	}

	// The first update after the queue drained starts a new sync of every
	// device, so the results of the last sync are stale.
	if w.idle {
		w.idle = false
		for _, r := range w.rows {
			r.status = sync.Status{State: sync.StatePending}
			r.warnings = 0
		}
	}

	// Each sync starts with a clean slate.
	if row.status.JobID != update.status.JobID {
		row.warnings = 0
	}
	row.status = update.status
	if update.warning {
		row.warnings++
	}
}

func (w *devicesWidget) Layout(g *gocui.Gui) error {
	x1, y1, x2, y2, err := relativeTo(g, settingsWidgetName, len(w.order))
	if err != nil {
		return err
	}

	v, err := g.SetView(devicesWidgetName, x1, y1, x2, y2)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Title = w.title()
	v.Wrap = true
	v.Clear()

	return w.write(v)
}

func (w *devicesWidget) title() string {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.idle {
		return "Devices (all synced)"
	}
	return "Devices"
}

func (w *devicesWidget) write(v io.Writer) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	out := tabwriter.NewWriter(v, 0, 10, 5, ' ', 0)
	for _, id := range w.order {
		row := w.rows[id]
		fmt.Fprintf(out, "%s\t%s\n", row.label, statusString(row.status, row.warnings))
	}
	return out.Flush()
}

func statusString(status sync.Status, warnings int) string {
	var str string
	switch status.State {
	case sync.StateRunning:
		str = goterm.Color(fmt.Sprintf("Syncing (%d%%)", status.Progress), goterm.YELLOW)
	case sync.StateCompleted:
		str = goterm.Color("Synced", goterm.GREEN)
	case sync.StateFailed:
		if status.Message != "" {
			return goterm.Color(status.Message, goterm.RED)
		}
		return goterm.Color("Failed", goterm.RED)
	default:
		str = string(status.State)
	}

	switch warnings {
	case 0:
	case 1:
		str += " (1 warning)"
	default:
		str += fmt.Sprintf(" (%d warnings)", warnings)
	}
	return str
}

// recentFileWidget displays the last file that was copied. It's placed under
// the devices.
type recentFileWidget struct {
	path string
	lock goSync.Mutex
}

// syncUpdates redraws the UI whenever a file is copied.
func (w *recentFileWidget) syncUpdates(g *gocui.Gui, updates chan string) {
	for update := range updates {
		w.lock.Lock()
		w.path = update
		w.lock.Unlock()

		g.Update(w.Layout)
	}
}

func (w *recentFileWidget) Layout(g *gocui.Gui) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	x1, y1, x2, y2, err := relativeTo(g, devicesWidgetName, 1)
	if err != nil {
		return err
	}

	v, err := g.SetView(recentFileWidgetName, x1, y1, x2, y2)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Title = "Recent File"
	v.Clear()
	fmt.Fprintln(v, w.path)
	return nil
}

// statusWidget is an empty view that streams the sync logs. It's placed
// under the recent file.
type statusWidget struct {
	height int
}

func (w *statusWidget) Layout(g *gocui.Gui) error {
	x1, y1, x2, y2, err := relativeTo(g, recentFileWidgetName, w.height)
	if err != nil {
		return err
	}

	v, err := g.SetView(statusWidgetName, x1, y1, x2, y2)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}

	v.Title = "Status"
	v.Wrap = true
	v.Autoscroll = true

	return nil
}

func relativeTo(g *gocui.Gui, view string, height int) (int, int, int, int, error) {
	maxWidth, _ := g.Size()

	_, _, _, origin, err := g.ViewPosition(view)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	top := origin + 1
	return 0, top, maxWidth - 1, top + height + 1, nil
}

// copyToView writes the messages in `stream` into the desired `view` in `gui`.
// It guarantees writes occur in the order of messages in `stream`.
func copyToView(gui *gocui.Gui, view string, stream chanWriter) {
	for b := range stream {
		b := b
		done := make(chan struct{})
		gui.Update(func(gui *gocui.Gui) error {
			defer close(done)
			v, err := gui.View(view)
			if err != nil {
				return err
			}

			if _, err := v.Write(b); err != nil {
				return err
			}
			return nil
		})
		<-done
	}
}
