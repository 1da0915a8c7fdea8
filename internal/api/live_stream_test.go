// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/mkhin/moltwatch/internal/models"
)

func TestSSEFirstEventIsLatestSnapshot(t *testing.T) {
	f := newFixture(t)
	f.bus.Publish(&models.LiveSnapshot{RFID: "P7", Health: models.HealthMolting})

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/live/sse", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("SSE request failed: %v", err)
	}
	defer func() { _ = res.Body.Close() }()

	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	scanner := bufio.NewScanner(res.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var snap models.LiveSnapshot
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap); err != nil {
			t.Fatalf("event is not a snapshot: %v", err)
		}
		if snap.RFID != "P7" {
			t.Errorf("first event rfid = %q, want P7", snap.RFID)
		}
		return
	}
	t.Fatal("stream ended before the first data event")
}

func TestSSEReceivesPublishedSnapshots(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/live/sse", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("SSE request failed: %v", err)
	}
	defer func() { _ = res.Body.Close() }()

	// Give the session a moment to subscribe, then publish.
	time.Sleep(100 * time.Millisecond)
	f.bus.Publish(&models.LiveSnapshot{RFID: "P9"})

	scanner := bufio.NewScanner(res.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, `"P9"`) {
			return
		}
	}
	t.Fatal("published snapshot never arrived on the stream")
}

func TestWebSocketReceivesSnapshots(t *testing.T) {
	f := newFixture(t)
	f.bus.Publish(&models.LiveSnapshot{RFID: "P3", StatusColor: models.StatusOrange})

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/live/ws"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()
	if res != nil {
		defer func() { _ = res.Body.Close() }()
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var snap models.LiveSnapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("failed to read first frame: %v", err)
	}
	if snap.RFID != "P3" {
		t.Errorf("first frame rfid = %q, want P3", snap.RFID)
	}

	f.bus.Publish(&models.LiveSnapshot{RFID: "P4"})
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("failed to read second frame: %v", err)
	}
	if snap.RFID != "P4" {
		t.Errorf("second frame rfid = %q, want P4", snap.RFID)
	}
}

func TestWebSocketUnsubscribesOnClose(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/live/ws"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	if res != nil {
		_ = res.Body.Close()
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.bus.SubscriberCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	_ = conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for f.bus.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
