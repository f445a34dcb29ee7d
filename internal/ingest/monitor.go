package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"NetSentryAPI/internal/models"
	"NetSentryAPI/internal/mqtt"
	"NetSentryAPI/internal/service"
)

// Device status values monitoring probes report.
const (
	DeviceStatusOnline  = "ONLINE"
	DeviceStatusOffline = "OFFLINE"
)

// Subscriber is the broker surface the monitor consumes.
type Subscriber interface {
	Subscribe(topic string, handler mqtt.MessageHandler) error
}

// StatusSender pushes raw device status to the owning user, outside the
// alert event pipeline.
type StatusSender interface {
	SendDeviceStatusUpdate(deviceID, status, userID string)
}

// DeviceStatusMessage is what pollers publish when a device changes state.
type DeviceStatusMessage struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Status     string `json:"status"`
	Detail     string `json:"detail"`
	UserID     string `json:"user_id"`
}

// Monitor bridges broker signals into the correlator. It is the inbound
// boundary for pollers and the trap ingester; wire-level trap decoding
// happens upstream of the broker.
type Monitor struct {
	correlator service.IAlertCorrelator
	sender     StatusSender
	log        *zap.Logger
}

func NewMonitor(correlator service.IAlertCorrelator, sender StatusSender, log *zap.Logger) *Monitor {
	return &Monitor{
		correlator: correlator,
		sender:     sender,
		log:        log,
	}
}

// Start registers the broker subscriptions.
func (m *Monitor) Start(sub Subscriber, deviceStatusTopic, trapTopic string) error {
	if err := sub.Subscribe(deviceStatusTopic, m.HandleDeviceStatus); err != nil {
		return fmt.Errorf("failed to subscribe to device status topic: %w", err)
	}
	if err := sub.Subscribe(trapTopic, m.HandleTrap); err != nil {
		return fmt.Errorf("failed to subscribe to trap topic: %w", err)
	}
	return nil
}

// HandleDeviceStatus turns a poller's device state report into a status
// push and, for outages, a correlated alert.
func (m *Monitor) HandleDeviceStatus(topic string, payload []byte) error {
	var msg DeviceStatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal device status: %w", err)
	}
	if msg.DeviceID == "" || msg.UserID == "" {
		return fmt.Errorf("device status missing device_id or user_id")
	}

	m.sender.SendDeviceStatusUpdate(msg.DeviceID, msg.Status, msg.UserID)

	if msg.Status != DeviceStatusOffline {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	description := msg.Detail
	if description == "" {
		description = fmt.Sprintf("device %s stopped responding", msg.DeviceName)
	}

	_, err := m.correlator.CreateOrUpdate(ctx, models.MonitorSignal{
		Type:        models.TypeDeviceDown,
		Severity:    models.SeverityCritical,
		Title:       fmt.Sprintf("%s is down", msg.DeviceName),
		Description: description,
		SourceID:    msg.DeviceID,
		SourceType:  models.SourceDevice,
		SourceName:  msg.DeviceName,
		UserID:      msg.UserID,
	})
	if err != nil {
		return fmt.Errorf("failed to correlate device outage: %w", err)
	}
	return nil
}

// HandleTrap feeds an already-decoded trap signal into the correlator.
func (m *Monitor) HandleTrap(topic string, payload []byte) error {
	var signal models.MonitorSignal
	if err := json.Unmarshal(payload, &signal); err != nil {
		return fmt.Errorf("failed to unmarshal trap signal: %w", err)
	}
	if signal.UserID == "" || signal.SourceID == "" {
		return fmt.Errorf("trap signal missing user_id or source_id")
	}
	if signal.Type == "" {
		signal.Type = models.TypeTrapReceived
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := m.correlator.CreateOrUpdate(ctx, signal); err != nil {
		return fmt.Errorf("failed to correlate trap: %w", err)
	}
	return nil
}
