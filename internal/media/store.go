// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package media

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mkhin/moltwatch/internal/logging"
)

// Store persists accepted sample images under a single upload directory
// and hands back the public path the API serves them from.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory images are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the image as <rfid>_<unix-timestamp>.jpg and returns the
// public path. The RFID is sanitized so a hostile tag value cannot
// escape the upload directory.
func (s *Store) Save(rfid string, capturedAt time.Time, data []byte) (string, error) {
	name := fmt.Sprintf("%s_%d.jpg", sanitizeRFID(rfid), capturedAt.Unix())
	full := filepath.Join(s.dir, name)

	if err := os.WriteFile(full, data, 0o640); err != nil {
		return "", fmt.Errorf("failed to save image %s: %w", name, err)
	}

	logging.Debug().Str("rfid", rfid).Str("file", name).Int("bytes", len(data)).
		Msg("sample image saved")

	return path.Join("/uploads", name), nil
}

func sanitizeRFID(rfid string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, rfid)
}
