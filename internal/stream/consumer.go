package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cuacadesa/internal/log"

	"github.com/go-redis/redis/v8"
)

// GroupClient is the part of the redis client used by a consumer group member
type GroupClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Handler processes one decoded advisory. A returned error leaves the entry
// unacknowledged.
type Handler func(ctx context.Context, id string, msg *AdvisoryMessage) error

type Consumer struct {
	client   GroupClient
	stream   string
	group    string
	name     string
	count    int64
	block    time.Duration
	handler  Handler
	handled  int
	failures int
}

func NewConsumer(client GroupClient, stream, group, name string, handler Handler) *Consumer {
	return &Consumer{
		client:  client,
		stream:  stream,
		group:   group,
		name:    name,
		count:   10,
		block:   5 * time.Second,
		handler: handler,
	}
}

// Run creates the consumer group if needed and processes entries until ctx
// is canceled
func (c *Consumer) Run(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{c.stream, ">"},
			Count:    c.count,
			Block:    c.block,
		}).Result()

		if ctx.Err() != nil {
			return nil
		}
		if err != nil && err != redis.Nil {
			log.Errorf("Error reading from %s: %v", c.stream, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, m := range s.Messages {
				if ctx.Err() != nil {
					return nil
				}
				c.process(ctx, m)
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, m redis.XMessage) {
	msg, err := Decode(m.Values)
	if err != nil {
		log.Warnf("Skipping entry %s: %v", m.ID, err)
		c.failures++
		return
	}

	if err := c.handler(ctx, m.ID, msg); err != nil {
		log.Errorf("Failed to handle entry %s for %s: %v", m.ID, msg.Site, err)
		c.failures++
		return
	}

	if err := c.client.XAck(ctx, c.stream, c.group, m.ID).Err(); err != nil {
		log.Warnf("Failed to ack %s: %v", m.ID, err)
	}
	c.handled++
}

// Stats returns the number of handled and failed entries
func (c *Consumer) Stats() (handled, failures int) {
	return c.handled, c.failures
}
