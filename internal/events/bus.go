package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prairiebio/genomehub/pkg/models"
)

const subscriberBuffer = 64

// Bus is an in-process broadcaster with one ordered topic per job id plus a
// global completion topic. Publishing a terminal-status event closes the
// job's topic; subscribers see the channel close after the final event.
type Bus struct {
	mu          sync.Mutex
	jobSubs     map[uuid.UUID][]chan JobEvent
	doneSubs    []chan Completion
	closedTopic map[uuid.UUID]bool
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		jobSubs:     make(map[uuid.UUID][]chan JobEvent),
		closedTopic: make(map[uuid.UUID]bool),
	}
}

// SubscribeJob returns a channel of events for one job and a cancel func.
// Subscribing to a job whose topic already closed yields an immediately
// closed channel.
func (b *Bus) SubscribeJob(jobID uuid.UUID) (<-chan JobEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan JobEvent, subscriberBuffer)
	if b.closedTopic[jobID] {
		close(ch)
		return ch, func() {}
	}

	b.jobSubs[jobID] = append(b.jobSubs[jobID], ch)
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.jobSubs[jobID]
		for i, c := range subs {
			if c == ch {
				b.jobSubs[jobID] = append(subs[:i], subs[i+1:]...)
				close(c)
				return
			}
		}
	}
	return ch, cancel
}

// SubscribeCompletions returns a channel receiving one Completion per
// finished job, and a cancel func.
func (b *Bus) SubscribeCompletions() (<-chan Completion, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Completion, subscriberBuffer)
	b.doneSubs = append(b.doneSubs, ch)
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.doneSubs {
			if c == ch {
				b.doneSubs = append(b.doneSubs[:i], b.doneSubs[i+1:]...)
				close(c)
				return
			}
		}
	}
	return ch, cancel
}

// PublishProgress delivers the event to all subscribers of the job's topic.
// Delivery is in publish order per subscriber; a subscriber that cannot keep
// up loses the event (logged, never blocks the execution driver).
func (b *Bus) PublishProgress(_ context.Context, ev JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closedTopic[ev.JobID] {
		return
	}

	for _, ch := range b.jobSubs[ev.JobID] {
		select {
		case ch <- ev:
		default:
			slog.Warn("dropping job event for slow subscriber", "job_id", ev.JobID, "status", ev.Status)
		}
	}

	if models.IsTerminalStatus(ev.Status) {
		for _, ch := range b.jobSubs[ev.JobID] {
			close(ch)
		}
		delete(b.jobSubs, ev.JobID)
		b.closedTopic[ev.JobID] = true
	}
}

// PublishCompletion delivers to the global completion topic.
func (b *Bus) PublishCompletion(_ context.Context, c Completion) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.doneSubs {
		select {
		case ch <- c:
		default:
			slog.Warn("dropping completion event for slow subscriber", "job_id", c.JobID)
		}
	}
}
