// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

// Package export renders the detections log for download. Three formats:
// csv, txt (tab-separated), and xlsx. Rows arrive newest first from the
// store and are written in that order.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mkhin/moltwatch/internal/models"
)

// Format identifies a supported export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "txt"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format query parameter.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatTSV, FormatXLSX:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatTSV:
		return "text/tab-separated-values"
	default:
		return "text/csv"
	}
}

// Filename returns the download filename for the format.
func (f Format) Filename() string {
	return fmt.Sprintf("detections_%s.%s", time.Now().Format("20060102_150405"), f)
}

var header = []string{
	"seq", "id", "rfid", "detection_time", "species", "molting",
	"confidence", "stage", "health", "weight_kg", "daily_change",
	"source_kind", "image_path", "notes",
}

func row(rec *models.DetectionRecord) []string {
	return []string{
		strconv.FormatInt(rec.Seq, 10),
		rec.ID.String(),
		rec.RFID,
		rec.DetectionTime.Format(time.RFC3339),
		rec.Species,
		strconv.FormatBool(rec.Molting),
		strconv.FormatFloat(rec.Confidence, 'f', 4, 64),
		rec.StageName,
		rec.Health,
		strconv.FormatFloat(rec.WeightKG, 'f', 2, 64),
		strconv.FormatFloat(rec.DailyChange, 'f', 2, 64),
		rec.SourceKind,
		rec.ImagePath,
		rec.Notes,
	}
}

// Write renders the records to w in the requested format.
func Write(w io.Writer, format Format, records []models.DetectionRecord) error {
	switch format {
	case FormatXLSX:
		return writeXLSX(w, records)
	case FormatTSV:
		return writeDelimited(w, '\t', records)
	default:
		return writeDelimited(w, ',', records)
	}
}

func writeDelimited(w io.Writer, comma rune, records []models.DetectionRecord) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for i := range records {
		if err := cw.Write(row(&records[i])); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, records []models.DetectionRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Detections"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name export sheet: %w", err)
	}

	cols := make([]any, len(header))
	for i, h := range header {
		cols[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &cols); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for i := range records {
		rec := &records[i]
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address export row: %w", err)
		}
		values := []any{
			rec.Seq, rec.ID.String(), rec.RFID,
			rec.DetectionTime.Format(time.RFC3339),
			rec.Species, rec.Molting, rec.Confidence,
			rec.StageName, rec.Health, rec.WeightKG, rec.DailyChange,
			rec.SourceKind, rec.ImagePath, rec.Notes,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
