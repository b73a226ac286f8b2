// Package device defines the interfaces that the sync engine uses to talk to
// mobile devices. Concrete transports live in the subpackages.
package device

//go:generate mockery -name Device
//go:generate mockery -name Channel

import (
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/multisync/pkg/errors"
)

// Device is a handle to a discovered device. The sync engine only holds on
// to a Device for the duration of a single sync.
type Device interface {
	// ID uniquely identifies the device, e.g. its serial number.
	ID() string

	// Name is a human readable name for the device.
	Name() string

	// Connect opens the application sandbox identified by appIdentifier.
	// The returned Channel must be closed by the caller.
	Connect(appIdentifier string) (Channel, error)
}

// Channel is an open, application-scoped file session on a device. Remote
// paths always use forward slashes.
type Channel interface {
	// CreateDirectory creates the directory, and any missing parents. It
	// returns whether the directory exists afterwards.
	CreateDirectory(remotePath string) bool

	// CopyFile copies the local file to remotePath, overwriting anything
	// that's already there.
	CopyFile(localPath, remotePath string) error

	Close() error
}

// Discoverer finds the devices that are currently connected.
type Discoverer interface {
	Discover() ([]Device, error)
}

// MultiDiscoverer combines the results of several discoverers. A failing
// discoverer is logged and skipped, unless all of them fail.
type MultiDiscoverer []Discoverer

// Discover implements Discoverer.
func (discoverers MultiDiscoverer) Discover() ([]Device, error) {
	var devices []Device
	var lastErr error
	var failed int
	for _, d := range discoverers {
		found, err := d.Discover()
		if err != nil {
			log.WithError(err).Warn("Device discovery failed")
			lastErr = err
			failed++
			continue
		}
		devices = append(devices, found...)
	}

	if len(discoverers) != 0 && failed == len(discoverers) {
		return nil, errors.WithContext(lastErr, "discover devices")
	}
	return devices, nil
}

// Filter returns the devices whose ID is in ids. If ids is empty, all
// devices are returned. Unknown IDs are returned in missing.
func Filter(devices []Device, ids []string) (selected []Device, missing []string) {
	if len(ids) == 0 {
		return devices, nil
	}

	byID := map[string]Device{}
	for _, d := range devices {
		byID[d.ID()] = d
	}

	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		selected = append(selected, d)
	}
	return selected, missing
}
