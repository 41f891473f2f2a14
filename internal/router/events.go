package router

import (
	"context"
	"time"

	"github.com/ruminaider/profilepop/internal/license"
	"github.com/ruminaider/profilepop/internal/profiles"
)

// EventType names a state change pushed to listeners.
type EventType string

const (
	EventProfilesChanged EventType = "profilesChanged"
	EventLicenseChanged  EventType = "licenseChanged"
	EventProfileSwitched EventType = "profileSwitched"
)

// Event is published after a successful mutation so other views can refresh.
type Event struct {
	Type    EventType             `json:"type"`
	At      time.Time             `json:"at"`
	Profile *profiles.Profile     `json:"profile,omitempty"`
	Status  *license.Capabilities `json:"status,omitempty"`
}

// EventPublisher receives router events. Publish must not block on slow
// listeners.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}
