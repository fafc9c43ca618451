package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopfront/apiserver/config"
	"github.com/shopfront/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	data    []byte
	attrs   map[string]string
}

// memoryBackend delivers published messages to subscribers synchronously.
type memoryBackend struct {
	sent       []published
	publishErr error
	inbox      []Message
	acked      int
	nacked     int
}

func (b *memoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if b.publishErr != nil {
		return "", b.publishErr
	}
	b.sent = append(b.sent, published{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

func (b *memoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	for _, msg := range b.inbox {
		if err := handler(ctx, msg); err != nil {
			b.nacked++
			continue
		}
		b.acked++
	}
	return nil
}

func (b *memoryBackend) Close() error { return nil }

func TestAccountEventsPublish(t *testing.T) {
	backend := &memoryBackend{}
	events := NewAccountEvents(New(backend), "account-events")
	occurred := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	err := events.Publish(context.Background(), types.AccountEvent{
		Type:       types.EventUserRegistered,
		UserID:     "u-1",
		Email:      "jane@example.com",
		OccurredAt: occurred,
	})
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	msg := backend.sent[0]
	assert.Equal(t, "account-events", msg.channel)
	assert.Equal(t, map[string]string{"event_type": "user.registered", "user_id": "u-1"}, msg.attrs)
	assert.JSONEq(t, `{"type":"user.registered","userId":"u-1","email":"jane@example.com","occurredAt":"2024-05-06T07:08:09Z"}`, string(msg.data))
}

func TestAccountEventsPublishError(t *testing.T) {
	backend := &memoryBackend{publishErr: errors.New("broker down")}
	events := NewAccountEvents(New(backend), "account-events")

	err := events.Publish(context.Background(), types.AccountEvent{Type: types.EventUserDeleted, UserID: "u-1"})
	assert.ErrorContains(t, err, "broker down")
}

func TestAccountEventsSubscribe(t *testing.T) {
	good, err := json.Marshal(types.AccountEvent{Type: types.EventUserUpdated, UserID: "u-1"})
	require.NoError(t, err)

	backend := &memoryBackend{inbox: []Message{
		{ID: "1", Data: good},
		{ID: "2", Data: []byte("not json")},
		{ID: "3", Data: good},
	}}
	events := NewAccountEvents(New(backend), "account-events")

	var seen []types.AccountEvent
	calls := 0
	err = events.Subscribe(context.Background(), func(ctx context.Context, event types.AccountEvent) error {
		calls++
		if calls == 2 {
			return errors.New("retry later")
		}
		seen = append(seen, event)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, types.EventUserUpdated, seen[0].Type)
	assert.Equal(t, 2, backend.acked)
	assert.Equal(t, 1, backend.nacked)
}

func TestDecodeAccountEventRequiresType(t *testing.T) {
	_, err := DecodeAccountEvent(Message{Data: []byte(`{"userId":"u-1"}`)})
	assert.Error(t, err)
}

func TestNewBackendDisabled(t *testing.T) {
	backend, err := NewBackend(context.Background(), config.MQConfig{})
	require.NoError(t, err)
	assert.Nil(t, backend)
}

func TestNewBackendUnknown(t *testing.T) {
	_, err := NewBackend(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.Error(t, err)
}

func TestNewBackendRabbitMQRequiresURL(t *testing.T) {
	_, err := NewBackend(context.Background(), config.MQConfig{Backend: "rabbitmq"})
	assert.ErrorContains(t, err, "rabbitmq url is required")
}

func TestNewBackendPubSubRequiresProject(t *testing.T) {
	_, err := NewBackend(context.Background(), config.MQConfig{Backend: "pubsub"})
	assert.ErrorContains(t, err, "pubsub project id is required")
}
