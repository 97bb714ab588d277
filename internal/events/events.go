// Package events is the outbox between the ingestion path and the
// notification dispatcher. Publishing is best-effort and decoupled: a
// package record is durable before its event is published, and a failed or
// dropped event never rolls the record back.
package events

import (
	"context"
	"time"

	"github.com/segmentio/ksuid"

	"parcelbox/internal/models"
)

type Type string

const (
	TypePackageReceived Type = "package_received"
	TypeSecurityAlert   Type = "security_alert"
)

type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Package    *models.Package `json:"package,omitempty"`
	DeviceID   string          `json:"deviceId,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func NewPackageReceived(pkg models.Package) Event {
	return Event{
		ID:         ksuid.New().String(),
		Type:       TypePackageReceived,
		Package:    &pkg,
		DeviceID:   pkg.DeviceID,
		OccurredAt: time.Now(),
	}
}

func NewSecurityAlert(deviceID, reason string) Event {
	return Event{
		ID:         ksuid.New().String(),
		Type:       TypeSecurityAlert,
		DeviceID:   deviceID,
		Reason:     reason,
		OccurredAt: time.Now(),
	}
}

type Handler func(ctx context.Context, event Event) error

type Bus interface {
	Publish(ctx context.Context, event Event) error

	// Run delivers published events to handler until ctx is cancelled.
	Run(ctx context.Context, handler Handler) error

	Close() error
}
