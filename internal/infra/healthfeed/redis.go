// Package healthfeed receives health snapshots published by an external
// health monitor over Redis pub/sub.
package healthfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/infra/observability"
	"github.com/sophia-ai/capability-router/internal/port"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SourceRedis labels snapshots received from the feed.
const SourceRedis = "redis"

const resubscribeDelay = 2 * time.Second

// RedisFeed subscribes to a channel carrying full health snapshots (a JSON
// object of server name to health) and replaces the sink's health map with
// each one. The most recent snapshot is also expected under
// "<channel>:latest" and is applied once on start.
type RedisFeed struct {
	rdb     *redis.Client
	channel string
	sink    port.HealthSink
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRedisFeed creates a feed on channel.
func NewRedisFeed(rdb *redis.Client, channel string, sink port.HealthSink, metrics *observability.Metrics, logger *zap.Logger) *RedisFeed {
	return &RedisFeed{
		rdb:     rdb,
		channel: channel,
		sink:    sink,
		metrics: metrics,
		logger:  logger.With(zap.String("component", "healthfeed"), zap.String("channel", channel)),
	}
}

// LatestKey is the key holding the last published snapshot.
func (f *RedisFeed) LatestKey() string {
	return f.channel + ":latest"
}

// Run primes from the latest snapshot and then applies every published
// snapshot until ctx is done. Lost subscriptions are re-established.
func (f *RedisFeed) Run(ctx context.Context) {
	if err := f.prime(ctx); err != nil {
		f.logger.Warn("could not prime health from redis", zap.Error(err))
	}

	for {
		err := f.subscribe(ctx)
		if ctx.Err() != nil {
			f.logger.Info("health feed stopped")
			return
		}
		f.logger.Error("health feed subscription lost", zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}

func (f *RedisFeed) prime(ctx context.Context) error {
	payload, err := f.rdb.Get(ctx, f.LatestKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return &domain.ErrExternalService{Service: "redis", Err: err}
	}
	return f.Apply(payload)
}

func (f *RedisFeed) subscribe(ctx context.Context) error {
	pubsub := f.rdb.Subscribe(ctx, f.channel)
	defer pubsub.Close()

	f.logger.Info("subscribed to health feed")

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		if err := f.Apply([]byte(msg.Payload)); err != nil {
			f.logger.Error("discarding health snapshot", zap.Error(err))
		}
	}
}

// Apply decodes payload and hands it to the sink as a wholesale replacement.
// Malformed payloads leave the current health map untouched.
func (f *RedisFeed) Apply(payload []byte) error {
	var snapshot domain.HealthSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return fmt.Errorf("decode health snapshot: %w", err)
	}
	if snapshot == nil {
		return &domain.ErrValidation{Field: "snapshot", Message: "must be a JSON object"}
	}

	f.sink.UpdateServerHealth(snapshot)
	f.metrics.IncrHealthUpdate(SourceRedis)
	f.logger.Debug("health snapshot applied", zap.Int("servers", len(snapshot)))
	return nil
}
