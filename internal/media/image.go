// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

// Package media handles sample images: decoding the wire encodings the
// field stations use (raw base64 and data URIs), validating that a payload
// is an actual picture, and persisting accepted images to the upload
// directory.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	// Register the formats the stations produce.
	_ "image/jpeg"
	_ "image/png"
)

var (
	// ErrNotAnImage means the payload did not decode as a supported format.
	ErrNotAnImage = errors.New("payload is not a decodable image")

	// ErrImageTooLarge means the payload exceeds the configured byte limit.
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

// DecodeBase64 decodes a base64 image payload. Data-URI prefixes
// ("data:image/jpeg;base64,...") are stripped first, since the stations'
// firmware sends both forms.
func DecodeBase64(payload string) ([]byte, error) {
	if idx := strings.Index(payload, ";base64,"); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	return data, nil
}

// Validate checks that data is a decodable image within maxBytes.
func Validate(data []byte, maxBytes int64) error {
	if int64(len(data)) > maxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(data), maxBytes)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return nil
}
