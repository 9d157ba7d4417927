package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prairiebio/genomehub/internal/cache"
)

// RedisRelay mirrors job events onto Redis pub/sub channels so subscribers
// in other processes (UI gateways, audit consumers) can follow a job without
// talking to this process. Delivery is best effort.
type RedisRelay struct {
	cache cache.Cache
}

// NewRedisRelay creates a relay publishing through the given cache.
func NewRedisRelay(c cache.Cache) *RedisRelay {
	return &RedisRelay{cache: c}
}

func (r *RedisRelay) PublishProgress(ctx context.Context, ev JobEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal job event", "error", err, "job_id", ev.JobID)
		return
	}
	if err := r.cache.Publish(ctx, cache.JobEventsChannel(ev.JobID), payload); err != nil {
		slog.Warn("relay job event", "error", err, "job_id", ev.JobID)
	}
}

func (r *RedisRelay) PublishCompletion(ctx context.Context, c Completion) {
	payload, err := json.Marshal(c)
	if err != nil {
		slog.Error("marshal completion event", "error", err, "job_id", c.JobID)
		return
	}
	if err := r.cache.Publish(ctx, cache.CompletionsChannel(), payload); err != nil {
		slog.Warn("relay completion event", "error", err, "job_id", c.JobID)
	}
}
