// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

// Package notify delivers location change notifications to in-process
// subscribers over a Watermill gochannel Pub/Sub, and escalates durable
// consumer misconfiguration to the affected user.
//
// Delivery is synchronous relative to the triggering consumer call: a
// publish hands the message to every current subscriber before returning.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/waypost/internal/config"
	"github.com/tomtom215/waypost/internal/metrics"
	"github.com/tomtom215/waypost/internal/models"
)

// Notification kinds, used as topic suffixes and metric labels.
const (
	KindUpdated = "updated"
	KindChanged = "changed"
)

// LocationEvent is the payload of both notification kinds: the user whose
// location moved and the latest snapshot before and after. From is nil
// when the user had no prior snapshot.
type LocationEvent struct {
	UserID    string           `json:"user_id"`
	From      *models.Snapshot `json:"from,omitempty"`
	To        *models.Snapshot `json:"to"`
	EmittedAt time.Time        `json:"emitted_at"`
}

// Bus is the in-process notification bus.
type Bus struct {
	pubsub *gochannel.GoChannel
	prefix string
}

// NewBus creates a bus with the configured topic prefix and buffer depth.
func NewBus(cfg config.NotifyConfig) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: int64(cfg.BufferSize)},
			newLoggerAdapter(),
		),
		prefix: cfg.TopicPrefix,
	}
}

// TopicUpdated is the topic carrying "location updated" notifications.
func (b *Bus) TopicUpdated() string {
	return b.prefix + "." + KindUpdated
}

// TopicChanged is the topic carrying "location changed" notifications.
func (b *Bus) TopicChanged() string {
	return b.prefix + "." + KindChanged
}

// PublishLocationUpdated emits a "location updated" notification.
func (b *Bus) PublishLocationUpdated(ctx context.Context, ev *LocationEvent) error {
	return b.publish(b.TopicUpdated(), KindUpdated, ev)
}

// PublishLocationChanged emits a "location changed" notification.
func (b *Bus) PublishLocationChanged(ctx context.Context, ev *LocationEvent) error {
	return b.publish(b.TopicChanged(), KindChanged, ev)
}

func (b *Bus) publish(topic, kind string, ev *LocationEvent) error {
	if ev.EmittedAt.IsZero() {
		ev.EmittedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s notification: %w", kind, err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s notification: %w", kind, err)
	}
	metrics.NotificationsEmitted.WithLabelValues(kind).Inc()
	return nil
}

// Subscribe returns a channel of raw messages on the given topic.
// External subscribers decode payloads with DecodeLocationEvent.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts the bus down, terminating all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// DecodeLocationEvent decodes a notification payload.
func DecodeLocationEvent(msg *message.Message) (*LocationEvent, error) {
	var ev LocationEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("decode location event: %w", err)
	}
	return &ev, nil
}
