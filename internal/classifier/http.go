// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mkhin/moltwatch/internal/config"
	"github.com/mkhin/moltwatch/internal/logging"
	"github.com/mkhin/moltwatch/internal/metrics"
)

// modelClient posts an image to one model server endpoint and returns the
// raw response body. All three capability clients share this shape; only
// the endpoint and the response type differ.
//
// The circuit breaker uses real time for its open-state timeout. That is
// intentional: the timing governs recovery from a dead model server, not
// data integrity.
type modelClient struct {
	name string
	url  string
	http *http.Client
	cb   *gobreaker.CircuitBreaker[[]byte]
}

func newModelClient(name, url string, cfg *config.ClassifierConfig) *modelClient {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // closed

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &modelClient{
		name: name,
		url:  url,
		http: &http.Client{Timeout: cfg.Timeout},
		cb:   cb,
	}
}

type inferenceRequest struct {
	Image string `json:"image"`
}

// inferImage sends the image-based request form used by the species and
// molt models.
func (c *modelClient) inferImage(ctx context.Context, image []byte) ([]byte, error) {
	return c.infer(ctx, inferenceRequest{Image: base64.StdEncoding.EncodeToString(image)})
}

func (c *modelClient) infer(ctx context.Context, request any) ([]byte, error) {
	return c.cb.Execute(func() ([]byte, error) {
		payload, err := json.Marshal(request)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", c.name, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to build %s request: %w", c.name, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", c.name, err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s response: %w", c.name, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s returned status %d", c.name, resp.StatusCode)
		}

		return body, nil
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// HTTPSpeciesDetector implements SpeciesDetector against a model server.
type HTTPSpeciesDetector struct {
	client *modelClient
}

// NewHTTPSpeciesDetector builds the species client from config.
func NewHTTPSpeciesDetector(cfg *config.ClassifierConfig) *HTTPSpeciesDetector {
	return &HTTPSpeciesDetector{client: newModelClient("species-model", cfg.SpeciesURL, cfg)}
}

// DetectSpecies posts the image to the species endpoint.
func (d *HTTPSpeciesDetector) DetectSpecies(ctx context.Context, image []byte) (*SpeciesResult, error) {
	body, err := d.client.inferImage(ctx, image)
	if err != nil {
		return nil, err
	}

	var result SpeciesResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode species response: %w", err)
	}
	return &result, nil
}

// HTTPMoltClassifier implements MoltClassifier against a model server.
type HTTPMoltClassifier struct {
	client *modelClient
}

// NewHTTPMoltClassifier builds the molt client from config.
func NewHTTPMoltClassifier(cfg *config.ClassifierConfig) *HTTPMoltClassifier {
	return &HTTPMoltClassifier{client: newModelClient("molt-model", cfg.MoltURL, cfg)}
}

// ClassifyMolt posts the image to the molt endpoint.
func (c *HTTPMoltClassifier) ClassifyMolt(ctx context.Context, image []byte) (*MoltResult, error) {
	body, err := c.client.inferImage(ctx, image)
	if err != nil {
		return nil, err
	}

	var result MoltResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode molt response: %w", err)
	}
	return &result, nil
}

// HTTPStageClassifier implements StageClassifier against a model server.
type HTTPStageClassifier struct {
	client *modelClient
}

// NewHTTPStageClassifier builds the stage client from config.
func NewHTTPStageClassifier(cfg *config.ClassifierConfig) *HTTPStageClassifier {
	return &HTTPStageClassifier{client: newModelClient("stage-model", cfg.StageURL, cfg)}
}

// ClassifyStage posts the tabular features to the stage endpoint.
func (c *HTTPStageClassifier) ClassifyStage(ctx context.Context, features StageFeatures) (*StageResult, error) {
	body, err := c.client.infer(ctx, features)
	if err != nil {
		return nil, err
	}

	var result StageResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode stage response: %w", err)
	}
	return &result, nil
}
