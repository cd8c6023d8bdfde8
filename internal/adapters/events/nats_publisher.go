package events

import (
	"context"
	"encoding/json"
	"fmt"
	"parcel-dispatch-service/internal/ports"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	StreamName          = "PARCEL_EVENTS"
	statusSubjectPrefix = "parcels.status."
)

type streamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSPublisher implements ports.StatusEventPublisher using NATS JetStream.
// Events land on parcels.status.<parcel_id>.
type NATSPublisher struct {
	conn *nats.Conn
	js   streamPublisher
}

// NewNATSPublisher connects to NATS and makes sure the parcel event stream exists.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("parcel-dispatch-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{statusSubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		if _, err := js.UpdateStream(cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &NATSPublisher{conn: conn, js: js}, nil
}

func (p *NATSPublisher) PublishStatusChanged(ctx context.Context, event ports.StatusChanged) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("publish status changed: encode: %w", err)
	}

	if _, err := p.js.Publish(statusSubjectPrefix+event.ParcelID, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish status changed: parcel %s: %w", event.ParcelID, err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
