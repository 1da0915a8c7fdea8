// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/mkhin/moltwatch/internal/logging"
)

// LiveLatest handles GET /api/v1/live/latest.
func (h *Handler) LiveLatest(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	latest := h.bus.Latest()
	if latest == nil {
		rw.NotFound("no detections yet")
		return
	}
	rw.Success(latest)
}

// LiveHistory handles GET /api/v1/live/history, oldest first.
func (h *Handler) LiveHistory(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.bus.History())
}

// LiveSSE handles GET /api/v1/live/sse. One JSON snapshot per data
// event; a comment ping keeps idle connections alive.
func (h *Handler) LiveSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		NewResponseWriter(w, r).InternalError("streaming unsupported by connection")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	keepAlive := time.NewTicker(h.cfg.Live.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case snapshot, open := <-sub.C():
			if !open {
				return
			}
			payload, err := json.Marshal(snapshot)
			if err != nil {
				logging.Error().Err(err).Msg("failed to marshal live snapshot")
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
			keepAlive.Reset(h.cfg.Live.KeepAlive)

		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser dashboards connect cross-origin through the CORS layer;
	// the websocket handshake mirrors that policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteWait = 10 * time.Second

// LiveWS handles GET /api/v1/live/ws. Snapshots are pushed as JSON text
// frames; ping frames cover idle periods and a failed write or client
// close ends the session.
func (h *Handler) LiveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	// Read pump: discards client frames, detects disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	keepAlive := time.NewTicker(h.cfg.Live.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return

		case snapshot, open := <-sub.C():
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if !open {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
			keepAlive.Reset(h.cfg.Live.KeepAlive)

		case <-keepAlive.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
