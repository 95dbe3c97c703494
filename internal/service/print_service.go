// internal/service/print_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/discovery"
	"printer-service/internal/model"
	"printer-service/internal/printer"
	"printer-service/internal/transport"
	"printer-service/internal/utils"
)

// ErrUnknownTransport is returned for a transport that is not configured
var ErrUnknownTransport = errors.New("unknown transport")

// EventPublisher receives printer events
type EventPublisher interface {
	Publish(event model.PrinterEvent)
}

// ConnectRequest selects a device by id, or by name and vendor filters
type ConnectRequest struct {
	DeviceID    string `json:"device_id,omitempty"`
	Name        string `json:"name,omitempty"`
	VendorID    uint16 `json:"vendor_id,omitempty"`
	ServiceUUID string `json:"service_uuid,omitempty"`
}

// PrintService owns one printer per configured transport
type PrintService struct {
	printers map[model.ConnectionType]*printer.Printer
	scanners *discovery.ScannerManager
	events   EventPublisher
	maxWidth int
	logger   *utils.ServiceLogger
	base     *zap.Logger
}

// NewPrintService creates a print service over printers. events may be nil.
func NewPrintService(printers []*printer.Printer, maxWidth int, events EventPublisher, logger *zap.Logger) *PrintService {
	ps := &PrintService{
		printers: make(map[model.ConnectionType]*printer.Printer, len(printers)),
		scanners: discovery.NewScannerManager(logger),
		events:   events,
		maxWidth: maxWidth,
		logger:   utils.NewServiceLogger(logger, "print-service"),
		base:     logger,
	}
	for _, p := range printers {
		ps.printers[p.Type()] = p
		ps.scanners.RegisterScanner(p.Transport())
	}
	return ps
}

// BuildPrinters creates a printer for every transport in cfg.Printer.Transports
func BuildPrinters(cfg *config.Config, logger *zap.Logger) ([]*printer.Printer, error) {
	printers := make([]*printer.Printer, 0, len(cfg.Printer.Transports))
	for _, name := range cfg.Printer.Transports {
		kind, err := model.ParseConnectionType(name)
		if err != nil {
			return nil, err
		}
		t, err := transport.CreateTransport(kind, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s transport: %w", kind, err)
		}
		printers = append(printers, printer.New(t, logger,
			printer.WithConnectTimeout(cfg.Printer.ConnectTimeout),
			printer.WithSendTimeout(cfg.Printer.SendTimeout),
		))
	}
	return printers, nil
}

// Transports returns the configured transport types, sorted
func (ps *PrintService) Transports() []model.ConnectionType {
	types := make([]model.ConnectionType, 0, len(ps.printers))
	for t := range ps.printers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// AvailableTransports returns the configured transports whose adapter can
// be used, sorted
func (ps *PrintService) AvailableTransports() []model.ConnectionType {
	return ps.scanners.GetAvailableScanners()
}

// Printer returns the printer for transport
func (ps *PrintService) Printer(kind model.ConnectionType) (*printer.Printer, error) {
	p, ok := ps.printers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, kind)
	}
	return p, nil
}

// Discover lists devices on one transport
func (ps *PrintService) Discover(ctx context.Context, kind model.ConnectionType, filter discovery.Filter) ([]model.Device, error) {
	if _, err := ps.Printer(kind); err != nil {
		return nil, err
	}

	devices, err := ps.scanners.ScanByType(ctx, kind, filter)
	if err != nil {
		ps.logger.Warn("Discovery failed", zap.String("transport", string(kind)), zap.Error(err))
		return nil, err
	}

	for _, d := range devices {
		ps.publish(model.EventDeviceDiscovered, kind, d.ID, map[string]interface{}{
			"name": d.Name,
		})
	}
	return devices, nil
}

// DiscoverAll lists devices on every available transport. Failing
// transports are skipped.
func (ps *PrintService) DiscoverAll(ctx context.Context, filter discovery.Filter) []model.Device {
	return ps.scanners.ScanAll(ctx, filter)
}

// Connect connects the printer of kind to the requested device
func (ps *PrintService) Connect(ctx context.Context, kind model.ConnectionType, req ConnectRequest) (*model.Connection, error) {
	p, err := ps.Printer(kind)
	if err != nil {
		return nil, err
	}

	filter := discovery.Filter{Name: req.Name, VendorID: req.VendorID, ServiceUUID: req.ServiceUUID}

	var conn *model.Connection
	if req.DeviceID != "" {
		var device model.Device
		device, err = ps.findDevice(ctx, p, req.DeviceID, filter)
		if err == nil {
			conn, err = p.Connect(ctx, device)
		}
	} else {
		conn, err = p.ConnectByName(ctx, filter)
	}

	if err != nil {
		ps.publish(model.EventPrinterError, kind, req.DeviceID, map[string]interface{}{
			"operation": "connect",
			"error":     err.Error(),
		})
		return nil, err
	}

	ps.publish(model.EventPrinterConnected, kind, conn.Device.ID, map[string]interface{}{
		"connection_id": conn.ID.String(),
		"name":          conn.Device.Name,
	})
	return conn, nil
}

// findDevice resolves deviceID through discovery. The live connection is
// reused without scanning.
func (ps *PrintService) findDevice(ctx context.Context, p *printer.Printer, deviceID string, filter discovery.Filter) (model.Device, error) {
	if conn := p.Transport().Connection(); conn != nil && conn.Device.ID == deviceID {
		return conn.Device, nil
	}

	devices, err := p.Discover(ctx, filter)
	if err != nil {
		return model.Device{}, err
	}
	for _, d := range devices {
		if strings.EqualFold(d.ID, deviceID) {
			return d, nil
		}
	}
	return model.Device{}, model.NewError(model.ErrDeviceNotFound, p.Type(), "connect",
		fmt.Errorf("device %s not found", deviceID))
}

// Disconnect disconnects the printer of kind
func (ps *PrintService) Disconnect(ctx context.Context, kind model.ConnectionType) error {
	p, err := ps.Printer(kind)
	if err != nil {
		return err
	}

	deviceID := ""
	if conn := p.Transport().Connection(); conn != nil {
		deviceID = conn.Device.ID
	}
	if err := p.Disconnect(ctx); err != nil {
		return err
	}

	if deviceID != "" {
		ps.publish(model.EventPrinterDisconnected, kind, deviceID, nil)
	}
	return nil
}

// Status reports the printer of kind
func (ps *PrintService) Status(kind model.ConnectionType) (printer.Status, error) {
	p, err := ps.Printer(kind)
	if err != nil {
		return printer.Status{}, err
	}
	return p.Status(), nil
}

// StatusAll reports every printer
func (ps *PrintService) StatusAll() []printer.Status {
	statuses := make([]printer.Status, 0, len(ps.printers))
	for _, kind := range ps.Transports() {
		statuses = append(statuses, ps.printers[kind].Status())
	}
	return statuses
}

// SubmitJob builds and prints req. The result is returned for failed jobs
// as well; err carries the failure.
func (ps *PrintService) SubmitJob(ctx context.Context, kind model.ConnectionType, req JobRequest) (*model.JobResult, error) {
	p, err := ps.Printer(kind)
	if err != nil {
		return nil, err
	}

	job, err := BuildJob(req, ps.maxWidth)
	if err != nil {
		return nil, err
	}

	result := &model.JobResult{
		ID:        uuid.New(),
		Transport: kind,
		Items:     job.Len(),
		Status:    model.JobStatusPending,
		StartedAt: time.Now(),
	}
	if conn := p.Transport().Connection(); conn != nil {
		result.DeviceID = conn.Device.ID
	}

	jobLogger := utils.NewJobLogger(ps.base, string(kind), result.ID.String())
	jobLogger.Start(zap.Int("items", result.Items), zap.String("device_id", result.DeviceID))
	ps.publish(model.EventJobStarted, kind, result.DeviceID, map[string]interface{}{
		"job_id": result.ID.String(),
		"items":  result.Items,
	})

	n, err := p.Print(ctx, job)
	result.DurationMs = jobLogger.Elapsed().Milliseconds()
	result.BytesWritten = n

	if err != nil {
		result.Status = model.JobStatusFailed
		result.ErrorKind = model.KindOf(err)
		result.ErrorMessage = err.Error()
		result.Retryable = model.IsRetryable(err)
		jobLogger.Error(err, zap.Bool("retryable", result.Retryable))
		ps.publish(model.EventJobFailed, kind, result.DeviceID, map[string]interface{}{
			"job_id":    result.ID.String(),
			"error":     err.Error(),
			"retryable": result.Retryable,
		})
		return result, err
	}

	result.Status = model.JobStatusSuccess
	jobLogger.Success(zap.Int("bytes_written", n))
	ps.publish(model.EventJobCompleted, kind, result.DeviceID, map[string]interface{}{
		"job_id":        result.ID.String(),
		"bytes_written": n,
	})
	return result, nil
}

// StartScan starts background discovery on transports that support it
func (ps *PrintService) StartScan(kind model.ConnectionType, filter discovery.Filter) error {
	bs, err := ps.backgroundScanner(kind)
	if err != nil {
		return err
	}
	return bs.StartDiscovery(filter)
}

// StopScan stops background discovery
func (ps *PrintService) StopScan(kind model.ConnectionType) error {
	bs, err := ps.backgroundScanner(kind)
	if err != nil {
		return err
	}
	bs.StopDiscovery()
	return nil
}

func (ps *PrintService) backgroundScanner(kind model.ConnectionType) (transport.BackgroundScanner, error) {
	p, err := ps.Printer(kind)
	if err != nil {
		return nil, err
	}
	bs, ok := p.Transport().(transport.BackgroundScanner)
	if !ok {
		return nil, model.NewError(model.ErrUnsupportedFeature, kind, "background scan", nil)
	}
	return bs, nil
}

// Close releases every printer
func (ps *PrintService) Close() error {
	var errs []error
	for _, kind := range ps.Transports() {
		if err := ps.printers[kind].Close(); err != nil {
			ps.logger.Warn("Failed to close printer", zap.String("transport", string(kind)), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

func (ps *PrintService) publish(eventType model.EventType, kind model.ConnectionType, deviceID string, data map[string]interface{}) {
	if ps.events == nil {
		return
	}
	ps.events.Publish(model.NewPrinterEvent(eventType, kind, deviceID, data))
}
