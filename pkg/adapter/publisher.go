package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nats-io/nats.go"
)

const (
	TopicInstanceRegistered = "openclaw.instance.registered"
	TopicInstanceRemoved    = "openclaw.instance.removed"
	TopicInstancePinged     = "openclaw.instance.pinged"
	TopicSnapshotCaptured   = "openclaw.snapshot.captured"
	TopicSnapshotDeleted    = "openclaw.snapshot.deleted"
	TopicConfigImported     = "openclaw.config.imported"
)

type InstanceRegistered struct {
	InstanceID string `json:"instance_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}

type InstanceRemoved struct {
	InstanceID string `json:"instance_id"`
}

type InstancePinged struct {
	InstanceID    string `json:"instance_id"`
	Status        string `json:"status"`
	Authenticated bool   `json:"authenticated"`
	LatencyMs     int64  `json:"latency_ms,omitempty"`
	Error         string `json:"error,omitempty"`
}

type SnapshotCaptured struct {
	InstanceID   string `json:"instance_id"`
	SnapshotID   string `json:"snapshot_id"`
	PreviousID   string `json:"previous_id,omitempty"`
	AgentCount   int    `json:"agent_count"`
	ChannelCount int    `json:"channel_count"`
	ModelCount   int    `json:"model_count"`
}

type SnapshotDeleted struct {
	SnapshotID string `json:"snapshot_id"`
}

type ConfigImported struct {
	InstanceID string `json:"instance_id"`
	Records    int    `json:"records"`
	Replaced   int    `json:"replaced"`
}

// Publisher emits change events. Publishing is best-effort for callers:
// a failure is logged by the caller and never fails the operation.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// NATSPublisher publishes JSON encoded events to NATS subjects
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server at url
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("openclaw-manager"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to NATS", goerr.V("url", url))
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal event", goerr.V("topic", topic))
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return goerr.Wrap(err, "failed to publish event", goerr.V("topic", topic))
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return goerr.Wrap(err, "failed to drain NATS connection")
	}
	return nil
}

// NoopPublisher drops every event (used when NATS is not configured)
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
