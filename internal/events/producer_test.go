package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishWritesPrefixedJSON(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := &Producer{writer: w, prefix: "shop"}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), service.TopicOrderEvents, "order-1", service.Event{
		Type:       service.EventOrderCreated,
		OccurredAt: at,
		Data:       map[string]any{"total": "25.00"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "shop.order_events", msg.Topic)
	assert.Equal(t, []byte("order-1"), msg.Key)
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)

	var decoded struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, service.EventOrderCreated, decoded.Type)
	assert.Equal(t, "25.00", decoded.Data["total"])
}

func TestProducer_NoPrefix(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := &Producer{writer: w}
	require.NoError(t, p.Publish(context.Background(), "review_events", "k", service.Event{Type: "x"}))
	assert.Equal(t, "review_events", w.msgs[0].Topic)
}

func TestProducer_WriteErrorIsWrapped(t *testing.T) {
	t.Parallel()

	boom := errors.New("broker down")
	p := &Producer{writer: &fakeWriter{err: boom}, prefix: "shop"}
	err := p.Publish(context.Background(), "order_events", "k", service.Event{Type: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	t.Parallel()

	_, err := NewProducer(nil, "shop")
	require.Error(t, err)

	p, err := NewProducer([]string{"localhost:9092"}, "shop")
	require.NoError(t, err)
	require.NoError(t, p.Close())
}
