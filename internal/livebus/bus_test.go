// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package livebus

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mkhin/moltwatch/internal/logging"
	"github.com/mkhin/moltwatch/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

func snap(rfid string) *models.LiveSnapshot {
	return &models.LiveSnapshot{RFID: rfid, Health: models.HealthHealthy, StatusColor: models.StatusGreen}
}

func TestHistoryRingEvictsOldest(t *testing.T) {
	b := New(3, 4, time.Second)

	for i := 0; i < 5; i++ {
		b.Publish(snap(fmt.Sprintf("P%d", i)))
	}

	history := b.History()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	for i, want := range []string{"P2", "P3", "P4"} {
		if history[i].RFID != want {
			t.Errorf("history[%d] = %q, want %q", i, history[i].RFID, want)
		}
	}
	if b.Latest().RFID != "P4" {
		t.Errorf("latest = %q, want P4", b.Latest().RFID)
	}
}

func TestLatestNilBeforeFirstPublish(t *testing.T) {
	b := New(20, 4, time.Second)
	if b.Latest() != nil {
		t.Error("latest should be nil before first publish")
	}
	if len(b.History()) != 0 {
		t.Error("history should be empty before first publish")
	}
}

func TestSubscribeDeliversLatestFirst(t *testing.T) {
	b := New(20, 4, time.Second)
	b.Publish(snap("P1"))
	b.Publish(snap("P2"))

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	select {
	case got := <-sub.C():
		if got.RFID != "P2" {
			t.Errorf("first delivery = %q, want latest P2", got.RFID)
		}
	default:
		t.Fatal("subscriber should have the latest snapshot queued on join")
	}
}

func TestPublishReachesSubscribers(t *testing.T) {
	b := New(20, 4, time.Second)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(snap("P1"))

	select {
	case got := <-sub.C():
		if got.RFID != "P1" {
			t.Errorf("got %q, want P1", got.RFID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
}

func TestSlowSubscriberDropsNotBlocks(t *testing.T) {
	b := New(20, 2, time.Second)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(snap(fmt.Sprintf("P%d", i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// Queue holds at most its capacity; everything else was dropped.
	drained := 0
	for {
		select {
		case <-sub.C():
			drained++
			continue
		default:
		}
		break
	}
	if drained > 2 {
		t.Errorf("drained %d messages from a queue of 2", drained)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	b := New(20, 4, time.Second)
	sub := b.Subscribe()

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)

	if b.SubscriberCount() != 0 {
		t.Errorf("subscriber count = %d, want 0", b.SubscriberCount())
	}
	if _, open := <-sub.C(); open {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestConcurrentSubscribeUnsubscribe(t *testing.T) {
	b := New(20, 4, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := b.Subscribe()
			b.Publish(snap("X"))
			b.Unsubscribe(sub)
		}()
	}
	wg.Wait()

	if b.SubscriberCount() != 0 {
		t.Errorf("subscriber count = %d, want 0", b.SubscriberCount())
	}
}

func TestHeartbeatRedeliversLatest(t *testing.T) {
	b := New(20, 4, 10*time.Millisecond)
	b.Publish(snap("P1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()

	sub := b.Subscribe()

	// First delivery is the join snapshot; the next must arrive from the
	// heartbeat without any new publish.
	<-sub.C()
	select {
	case got := <-sub.C():
		if got.RFID != "P1" {
			t.Errorf("heartbeat delivered %q, want P1", got.RFID)
		}
	case <-time.After(time.Second):
		t.Fatal("heartbeat never re-delivered the latest snapshot")
	}
}

func TestRunShutdownClosesSubscribers(t *testing.T) {
	b := New(20, 4, 10*time.Millisecond)
	sub := b.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()

	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-sub.C():
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("subscriber channel never closed on shutdown")
		}
	}
}

func TestPublishAfterShutdownIsNoop(t *testing.T) {
	b := New(20, 4, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()
	cancel()
	<-errCh

	b.Publish(snap("P1"))
	sub := b.Subscribe()
	if _, open := <-sub.C(); open {
		t.Error("subscribe after shutdown should return a closed channel")
	}
}
