// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mkhin/moltwatch/internal/livebus"
	"github.com/mkhin/moltwatch/internal/logging"
)

// BusService adapts the live bus heartbeat loop to suture.Service.
type BusService struct {
	bus *livebus.Bus
}

// NewBusService wraps the bus for supervision.
func NewBusService(bus *livebus.Bus) *BusService {
	return &BusService{bus: bus}
}

// Serve runs the heartbeat loop until the context is canceled.
func (s *BusService) Serve(ctx context.Context) error {
	return s.bus.Run(ctx)
}

func (s *BusService) String() string { return "live-bus" }

// HTTPService adapts an http.Server to suture.Service with graceful
// shutdown on context cancellation.
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewHTTPService wraps the server for supervision.
func NewHTTPService(server *http.Server, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve listens until the context is canceled, then drains connections.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.server.Addr).Msg("http server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http server shutdown incomplete")
		}
		<-errCh
		return ctx.Err()

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *HTTPService) String() string { return "http-server" }
