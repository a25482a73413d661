// redis.go - Publishes bus envelopes to a Redis channel for external monitors.
//
// Handle only enqueues, since bus handlers run under component locks; Run
// drains the queue and performs the network calls.

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the Redis channel events are published on.
const DefaultChannel = "deposit:events"

const defaultQueueSize = 1024

// RedisPublisher forwards envelopes to Redis pub/sub. Failures are logged;
// they never reach the component that emitted the event.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	timeout time.Duration
	queue   chan Envelope
	logger  zerolog.Logger
}

// NewRedisPublisher returns a publisher on channel (DefaultChannel if empty).
func NewRedisPublisher(client redis.UniversalClient, channel string, logger zerolog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		timeout: 2 * time.Second,
		queue:   make(chan Envelope, defaultQueueSize),
		logger:  logger,
	}
}

// Channel returns the channel name.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish sends one envelope as JSON.
func (p *RedisPublisher) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope %d: %w", env.Seq, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish envelope %d: %w", env.Seq, err)
	}
	return nil
}

// Handle queues env for Run. When the queue is full the envelope is dropped
// and a warning is logged.
func (p *RedisPublisher) Handle(env Envelope) {
	select {
	case p.queue <- env:
	default:
		p.logger.Warn().Uint64("seq", env.Seq).Str("channel", p.channel).Msg("event queue full, dropping")
	}
}

// Run publishes queued envelopes until ctx is done, then flushes what is
// left with a fresh deadline.
func (p *RedisPublisher) Run(ctx context.Context) error {
	for {
		select {
		case env := <-p.queue:
			p.publishOne(ctx, env)
		case <-ctx.Done():
			p.drain()
			return nil
		}
	}
}

func (p *RedisPublisher) drain() {
	for {
		select {
		case env := <-p.queue:
			p.publishOne(context.Background(), env)
		default:
			return
		}
	}
}

func (p *RedisPublisher) publishOne(ctx context.Context, env Envelope) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.Publish(ctx, env); err != nil {
		p.logger.Warn().Err(err).Str("channel", p.channel).Msg("event publish failed")
	}
}
