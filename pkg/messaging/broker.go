package messaging

import (
	"context"
)

// Channel committed alerts are published on.
const ChannelAlerts = "alerts"

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
