// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventPrinterConnected    EventType = "PRINTER_CONNECTED"
	EventPrinterDisconnected EventType = "PRINTER_DISCONNECTED"
	EventPrinterError        EventType = "PRINTER_ERROR"
	EventDeviceDiscovered    EventType = "DEVICE_DISCOVERED"
	EventJobStarted          EventType = "JOB_STARTED"
	EventJobCompleted        EventType = "JOB_COMPLETED"
	EventJobFailed           EventType = "JOB_FAILED"
)

// PrinterEvent represents an event in the system
type PrinterEvent struct {
	ID        uuid.UUID              `json:"id"`
	EventType EventType              `json:"event_type"`
	Transport ConnectionType         `json:"transport"`
	DeviceID  string                 `json:"device_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Severity  string                 `json:"severity"` // INFO, WARNING, ERROR
}

// NewPrinterEvent stamps a new event
func NewPrinterEvent(eventType EventType, transport ConnectionType, deviceID string, data map[string]interface{}) PrinterEvent {
	severity := "INFO"
	switch eventType {
	case EventPrinterError, EventJobFailed:
		severity = "ERROR"
	}
	return PrinterEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Transport: transport,
		DeviceID:  deviceID,
		Data:      data,
		Timestamp: time.Now(),
		Severity:  severity,
	}
}
