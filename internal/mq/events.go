package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopfront/apiserver/config"
	"github.com/shopfront/apiserver/types"
)

const (
	attrEventType = "event_type"
	attrUserID    = "user_id"
)

// AccountEvents publishes account changes as JSON messages on one channel.
type AccountEvents struct {
	queue   *MQ
	channel string
}

func NewAccountEvents(queue *MQ, channel string) *AccountEvents {
	return &AccountEvents{queue: queue, channel: channel}
}

// Publish encodes event and sends it with its type and user id as attributes.
func (a *AccountEvents) Publish(ctx context.Context, event types.AccountEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode account event: %w", err)
	}
	attrs := map[string]string{
		attrEventType: string(event.Type),
		attrUserID:    event.UserID,
	}
	if _, err := a.queue.Publish(ctx, a.channel, data, attrs); err != nil {
		return fmt.Errorf("publish account event: %w", err)
	}
	return nil
}

// Subscribe decodes account events from the channel and passes them to handle.
// Messages that cannot be decoded are acknowledged and dropped.
func (a *AccountEvents) Subscribe(ctx context.Context, handle func(context.Context, types.AccountEvent) error) error {
	return a.queue.Subscribe(ctx, a.channel, func(ctx context.Context, msg Message) error {
		event, err := DecodeAccountEvent(msg)
		if err != nil {
			return nil
		}
		return handle(ctx, event)
	})
}

// DecodeAccountEvent parses the JSON payload of msg.
func DecodeAccountEvent(msg Message) (types.AccountEvent, error) {
	var event types.AccountEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.AccountEvent{}, fmt.Errorf("decode account event: %w", err)
	}
	if event.Type == "" {
		return types.AccountEvent{}, errors.New("decode account event: missing type")
	}
	return event, nil
}

// NewBackend builds the broker selected by cfg.Backend. It returns a nil
// backend when publishing is disabled.
func NewBackend(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "pubsub":
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}
