package events

import (
	"context"
	"encoding/json"
	"errors"
	"parcel-dispatch-service/internal/ports"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeStream) Publish(subj string, data []byte, _ ...nats.PubOpt) (*nats.PubAck, error) {
	f.subject, f.data = subj, data
	if f.err != nil {
		return nil, f.err
	}
	return &nats.PubAck{Stream: StreamName, Sequence: 1}, nil
}

func TestPublishStatusChanged(t *testing.T) {
	stream := &fakeStream{}
	p := &NATSPublisher{js: stream}

	at := time.Date(2026, 3, 2, 14, 5, 9, 0, time.UTC)
	err := p.PublishStatusChanged(context.Background(), ports.StatusChanged{
		ParcelID:    "PAR-1",
		AgentID:     "AG1",
		From:        "In Transit",
		To:          "Delivered",
		DeliveredAt: &at,
		OccurredAt:  at,
	})
	require.NoError(t, err)

	assert.Equal(t, "parcels.status.PAR-1", stream.subject)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(stream.data, &decoded))
	assert.Equal(t, "Delivered", decoded["to"])
	assert.Equal(t, "2026-03-02T14:05:09Z", decoded["delivered_at"])
	assert.NotContains(t, decoded, "remarks")
}

func TestPublishStatusChangedError(t *testing.T) {
	p := &NATSPublisher{js: &fakeStream{err: errors.New("no responders")}}

	err := p.PublishStatusChanged(context.Background(), ports.StatusChanged{ParcelID: "PAR-1"})
	require.ErrorContains(t, err, "no responders")
}
