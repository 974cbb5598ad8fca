package cdc

import (
	"context"
	"encoding/json"
	"fmt"

	platformredis "mercato/internal/platform/redis"
)

// redis channel name prefix; one channel per entity type keeps consumers
// from filtering a shared firehose.
const redisChannelPrefix = "mercato.cdc."

// RedisSink publishes captured changes to redis pub/sub for out-of-process
// consumers. Publication is fire-and-forget: a redis outage never blocks
// capture.
type RedisSink struct {
	client *platformredis.Client
}

// NewRedisSink wraps a connected redis client. A nil client yields a nil sink,
// which the caller must not register.
func NewRedisSink(client *platformredis.Client) *RedisSink {
	if client == nil {
		return nil
	}
	return &RedisSink{client: client}
}

// Publish sends the record as JSON on the entity's channel.
func (s *RedisSink) Publish(ctx context.Context, record ChangeRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal change record: %w", err)
	}
	channel := redisChannelPrefix + string(record.Entity)
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}
