// internal/transport/factory.go
package transport

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/model"
)

// CreateTransport builds the production transport for connectionType
func CreateTransport(connectionType model.ConnectionType, cfg *config.Config, logger *zap.Logger) (Transport, error) {
	policy, err := ParseConnectPolicy(cfg.Printer.ConnectPolicy)
	if err != nil {
		return nil, err
	}

	switch connectionType {
	case model.ConnectionTypeUSB:
		logger.Info("Creating USB transport",
			zap.String("vendor_id", fmt.Sprintf("0x%04X", cfg.USB.VendorID)),
			zap.Duration("timeout", cfg.USB.Timeout),
		)
		return NewUSBTransport(NewGousbBackend(cfg.USB.Interface, cfg.USB.Debug, cfg.USB.KnownProducts, logger), USBConfig{
			VendorID: cfg.USB.VendorID,
			Timeout:  cfg.USB.Timeout,
			Policy:   policy,
		}, logger), nil

	case model.ConnectionTypeBLE:
		logger.Info("Creating BLE transport",
			zap.String("service_uuid", cfg.BLE.ServiceUUID),
			zap.String("write_char_uuid", cfg.BLE.WriteCharUUID),
		)
		return NewBLETransport(NewTinygoBackend(logger), BLEConfig{
			ServiceUUID:   cfg.BLE.ServiceUUID,
			WriteCharUUID: cfg.BLE.WriteCharUUID,
			NameFilter:    cfg.BLE.NameFilter,
			ScanTimeout:   cfg.BLE.ScanTimeout,
			ChunkSize:     cfg.BLE.ChunkSize,
			Policy:        policy,
		}, logger), nil

	case model.ConnectionTypeBluetooth:
		logger.Info("Creating Bluetooth serial transport",
			zap.String("device_name", cfg.Bluetooth.DeviceName),
			zap.Int("baud_rate", cfg.Bluetooth.BaudRate),
		)
		return NewBluetoothTransport(NewSerialPortBackend(), BluetoothConfig{
			DeviceName:   cfg.Bluetooth.DeviceName,
			PortPatterns: cfg.Bluetooth.PortPatterns,
			BaudRate:     cfg.Bluetooth.BaudRate,
			Policy:       policy,
		}, logger), nil

	case model.ConnectionTypeTerminal:
		out, err := terminalOutput(cfg.Terminal.Output)
		if err != nil {
			return nil, err
		}
		return NewTerminalTransport(out, logger), nil

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", connectionType)
	}
}

func terminalOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stdout":
		return nopCloser{os.Stdout}, nil
	case "stderr":
		return nopCloser{os.Stderr}, nil
	default:
		f, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open terminal output: %w", err)
		}
		return f, nil
	}
}

// nopCloser keeps Close from closing the process streams
type nopCloser struct {
	io.Writer
}
