// internal/transport/bluetooth_serial.go
package transport

import (
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialPortBackend opens ports with go.bug.st/serial
type SerialPortBackend struct{}

// NewSerialPortBackend creates the go.bug.st/serial backend
func NewSerialPortBackend() *SerialPortBackend {
	return &SerialPortBackend{}
}

// ListPorts returns the ports with their USB details when known
func (b *SerialPortBackend) ListPorts() ([]SerialPortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	ports := make([]SerialPortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, SerialPortInfo{
			Name:         d.Name,
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
			IsUSB:        d.IsUSB,
		})
	}
	return ports, nil
}

// Open opens name as 8N1 at baudRate
func (b *SerialPortBackend) Open(name string, baudRate int) (SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return &serialPort{Port: port}, nil
}

type serialPort struct {
	serial.Port
}

func (p *serialPort) CheckLine() error {
	_, err := p.GetModemStatusBits()
	return err
}
