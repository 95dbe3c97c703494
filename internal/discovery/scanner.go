// internal/discovery/scanner.go
package discovery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/model"
)

// Filter narrows discovery. Zero values match everything.
type Filter struct {
	VendorID    uint16        `json:"vendor_id,omitempty"`
	Name        string        `json:"name,omitempty"`
	ServiceUUID string        `json:"service_uuid,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// Match applies the filter to one device
func (f Filter) Match(d model.Device) bool {
	return d.Matches(f.Name, f.VendorID, f.ServiceUUID)
}

// Apply keeps the matching devices. The result is never nil.
func (f Filter) Apply(devices []model.Device) []model.Device {
	out := make([]model.Device, 0, len(devices))
	for _, d := range devices {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

// DeviceScanner is implemented by every printer transport
type DeviceScanner interface {
	Discover(ctx context.Context, filter Filter) ([]model.Device, error)
	Type() model.ConnectionType
	IsAvailable() bool
}

// ScannerManager fans discovery out over the registered transports
type ScannerManager struct {
	scanners map[model.ConnectionType]DeviceScanner
	logger   *zap.Logger
}

// NewScannerManager creates a new scanner manager
func NewScannerManager(logger *zap.Logger) *ScannerManager {
	return &ScannerManager{
		scanners: make(map[model.ConnectionType]DeviceScanner),
		logger:   logger,
	}
}

// RegisterScanner registers a device scanner
func (sm *ScannerManager) RegisterScanner(scanner DeviceScanner) {
	scannerType := scanner.Type()
	sm.scanners[scannerType] = scanner
	sm.logger.Info("Scanner registered", zap.String("type", string(scannerType)))
}

// ScanAll scans every available transport. A failing transport is logged
// and skipped.
func (sm *ScannerManager) ScanAll(ctx context.Context, filter Filter) []model.Device {
	allDevices := []model.Device{}

	for scannerType, scanner := range sm.scanners {
		if !scanner.IsAvailable() {
			sm.logger.Debug("Scanner not available, skipping", zap.String("type", string(scannerType)))
			continue
		}

		devices, err := scanner.Discover(ctx, filter)
		if err != nil {
			sm.logger.Error("Scanner failed", zap.String("type", string(scannerType)), zap.Error(err))
			continue
		}

		allDevices = append(allDevices, devices...)
		sm.logger.Info("Scanner completed",
			zap.String("type", string(scannerType)),
			zap.Int("devices_found", len(devices)),
		)
	}

	return allDevices
}

// ScanByType scans one transport
func (sm *ScannerManager) ScanByType(ctx context.Context, scannerType model.ConnectionType, filter Filter) ([]model.Device, error) {
	scanner, exists := sm.scanners[scannerType]
	if !exists {
		return nil, fmt.Errorf("scanner type not found: %s", scannerType)
	}

	if !scanner.IsAvailable() {
		return nil, model.NewError(model.ErrAdapterUnavailable, scannerType, "discover", nil)
	}

	return scanner.Discover(ctx, filter)
}

// GetAvailableScanners returns the available transport types, sorted
func (sm *ScannerManager) GetAvailableScanners() []model.ConnectionType {
	available := []model.ConnectionType{}
	for scannerType, scanner := range sm.scanners {
		if scanner.IsAvailable() {
			available = append(available, scannerType)
		}
	}
	sort.Slice(available, func(i, j int) bool { return available[i] < available[j] })
	return available
}
