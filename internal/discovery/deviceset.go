// internal/discovery/deviceset.go
package discovery

import (
	"context"
	"sync"

	"printer-service/internal/model"
)

// DeviceSet owns the devices seen by a background scan. A single goroutine
// holds the set; callers talk to it over channels, so readers never see a
// partially rebuilt list.
type DeviceSet struct {
	snapshots chan chan []model.Device
	replaces  chan []model.Device
	done      chan struct{}
	closeOnce sync.Once
}

// NewDeviceSet starts the owning goroutine
func NewDeviceSet() *DeviceSet {
	ds := &DeviceSet{
		snapshots: make(chan chan []model.Device),
		replaces:  make(chan []model.Device),
		done:      make(chan struct{}),
	}
	go ds.run()
	return ds
}

func (ds *DeviceSet) run() {
	devices := []model.Device{}
	for {
		select {
		case reply := <-ds.snapshots:
			reply <- append([]model.Device{}, devices...)
		case next := <-ds.replaces:
			devices = append([]model.Device{}, next...)
		case <-ds.done:
			return
		}
	}
}

// Snapshot returns a copy of the current set. It is never nil.
func (ds *DeviceSet) Snapshot(ctx context.Context) ([]model.Device, error) {
	reply := make(chan []model.Device, 1)
	select {
	case ds.snapshots <- reply:
	case <-ds.done:
		return []model.Device{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case devices := <-reply:
		return devices, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Replace swaps the whole set in one step
func (ds *DeviceSet) Replace(devices []model.Device) {
	select {
	case ds.replaces <- append([]model.Device{}, devices...):
	case <-ds.done:
	}
}

// Clear empties the set
func (ds *DeviceSet) Clear() {
	ds.Replace(nil)
}

// Close stops the owning goroutine. Later calls are no-ops.
func (ds *DeviceSet) Close() {
	ds.closeOnce.Do(func() { close(ds.done) })
}
