package chathub

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const groupChannelPrefix = "chat:group:"

// Broadcaster hands an encoded event to every member of a group.
type Broadcaster interface {
	Broadcast(ctx context.Context, group string, payload []byte) error
}

// LocalBroadcaster fans out directly through the in-process registry.
type LocalBroadcaster struct {
	registry *Registry
}

// NewLocalBroadcaster returns a broadcaster over registry.
func NewLocalBroadcaster(registry *Registry) *LocalBroadcaster {
	return &LocalBroadcaster{registry: registry}
}

func (b *LocalBroadcaster) Broadcast(_ context.Context, group string, payload []byte) error {
	b.registry.Fanout(group, payload)
	return nil
}

// RedisBroadcaster publishes events to Redis so that every instance sharing
// the Redis server fans them out to its own connections.
type RedisBroadcaster struct {
	rdb      *redis.Client
	registry *Registry
	log      *slog.Logger
}

// NewRedisBroadcaster returns a broadcaster publishing through rdb. Call Start
// to receive events published by any instance.
func NewRedisBroadcaster(rdb *redis.Client, registry *Registry, log *slog.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb, registry: registry, log: log}
}

// ChannelFor returns the Redis channel carrying events for group.
func ChannelFor(group string) string {
	return groupChannelPrefix + group
}

// GroupFromChannel is the inverse of ChannelFor.
func GroupFromChannel(channel string) (string, bool) {
	group, ok := strings.CutPrefix(channel, groupChannelPrefix)
	return group, ok && group != ""
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, group string, payload []byte) error {
	return b.rdb.Publish(ctx, ChannelFor(group), payload).Err()
}

// Start subscribes to every group channel and fans received events out locally
// until ctx is done. It returns once the subscription is confirmed.
func (b *RedisBroadcaster) Start(ctx context.Context) error {
	pubsub := b.rdb.PSubscribe(ctx, groupChannelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	go func() {
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				group, ok := GroupFromChannel(msg.Channel)
				if !ok {
					b.log.Warn("Ignoring message on unexpected channel", "channel", msg.Channel)
					continue
				}
				b.registry.Fanout(group, []byte(msg.Payload))
			}
		}
	}()

	b.log.Info("Subscribed to group channels", "pattern", groupChannelPrefix+"*")
	return nil
}
