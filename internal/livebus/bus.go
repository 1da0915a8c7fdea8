// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

// Package livebus fans classification snapshots out to live feed
// subscribers. The bus keeps the latest snapshot and a bounded history
// ring so a subscriber joining mid-stream sees current state
// immediately, and re-broadcasts the latest snapshot on a heartbeat so
// idle dashboards stay fresh.
package livebus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkhin/moltwatch/internal/logging"
	"github.com/mkhin/moltwatch/internal/metrics"
	"github.com/mkhin/moltwatch/internal/models"
)

// subscriberIDCounter assigns unique IDs so subscribers can be tracked
// and removed without comparing channel values.
var subscriberIDCounter atomic.Uint64

// Subscriber is one live feed consumer. Its channel is bounded; a
// consumer that cannot keep up loses intermediate snapshots, never the
// latest state, because the heartbeat re-delivers it.
type Subscriber struct {
	id uint64
	ch chan *models.LiveSnapshot
}

// C returns the receive channel. It is closed when the subscriber is
// removed or the bus shuts down.
func (s *Subscriber) C() <-chan *models.LiveSnapshot {
	return s.ch
}

// Bus is the in-process snapshot broker.
type Bus struct {
	mu          sync.RWMutex
	latest      *models.LiveSnapshot
	history     []*models.LiveSnapshot
	subscribers map[uint64]*Subscriber

	historySize int
	queueSize   int
	interval    time.Duration
	closed      bool
}

// New creates a bus with the given history ring capacity, per-subscriber
// queue size, and heartbeat interval.
func New(historySize, queueSize int, interval time.Duration) *Bus {
	if historySize <= 0 {
		historySize = 20
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Bus{
		subscribers: make(map[uint64]*Subscriber),
		historySize: historySize,
		queueSize:   queueSize,
		interval:    interval,
	}
}

// Publish records a new snapshot and fans it out to all subscribers.
// Delivery is non-blocking; slow subscribers drop the message.
func (b *Bus) Publish(snapshot *models.LiveSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.latest = snapshot
	b.history = append(b.history, snapshot)
	if len(b.history) > b.historySize {
		b.history = b.history[len(b.history)-b.historySize:]
	}

	metrics.LiveSnapshotsPublished.Inc()
	b.fanOut(snapshot)
}

// fanOut delivers to every subscriber without blocking. Caller holds b.mu.
func (b *Bus) fanOut(snapshot *models.LiveSnapshot) {
	for _, sub := range b.subscribers {
		select {
		case sub.ch <- snapshot:
		default:
			metrics.LiveMessagesDropped.Inc()
		}
	}
}

// Subscribe registers a new consumer. If a snapshot has ever been
// published, it is queued first so the consumer renders current state
// before waiting for the next detection.
func (b *Bus) Subscribe() *Subscriber {
	sub := &Subscriber{
		id: subscriberIDCounter.Add(1),
		ch: make(chan *models.LiveSnapshot, b.queueSize),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.ch)
		return sub
	}
	if b.latest != nil {
		sub.ch <- b.latest
	}
	b.subscribers[sub.id] = sub
	metrics.LiveSubscribers.Set(float64(len(b.subscribers)))
	logging.Debug().Uint64("subscriber_id", sub.id).Int("total", len(b.subscribers)).Msg("live feed subscriber joined")
	return sub
}

// Unsubscribe removes a consumer and closes its channel. Safe to call
// more than once and after shutdown.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub.id]; !ok {
		return
	}
	delete(b.subscribers, sub.id)
	close(sub.ch)
	metrics.LiveSubscribers.Set(float64(len(b.subscribers)))
	logging.Debug().Uint64("subscriber_id", sub.id).Int("total", len(b.subscribers)).Msg("live feed subscriber left")
}

// Latest returns the most recent snapshot, nil before the first publish.
func (b *Bus) Latest() *models.LiveSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest
}

// History returns the retained snapshots, oldest first.
func (b *Bus) History() []*models.LiveSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.LiveSnapshot, len(b.history))
	copy(out, b.history)
	return out
}

// SubscriberCount returns the number of registered consumers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Run drives the heartbeat until the context is canceled, then closes
// every subscriber channel. Designed to run under suture supervision.
func (b *Bus) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return ctx.Err()
		case <-ticker.C:
			b.heartbeat()
		}
	}
}

// heartbeat re-broadcasts the latest snapshot so consumers that dropped
// it, or connected between detections, converge on current state.
func (b *Bus) heartbeat() {
	b.mu.Lock()
	defer b.mu.Unlock()

	metrics.LiveBroadcastTicks.Inc()
	if b.latest == nil || b.closed {
		return
	}
	b.fanOut(b.latest)
}

func (b *Bus) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := len(b.subscribers)
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
	b.closed = true
	metrics.LiveSubscribers.Set(0)
	logging.Info().Str("component", "livebus").Int("subscribers_closed", count).Msg("live bus stopped")
}
