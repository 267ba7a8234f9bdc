package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/grayfold/archivist/internal/ingest"
	"github.com/grayfold/archivist/internal/market"
)

// canonical OHLCV field names; profiles may remap them to source columns.
var ohlcvFields = []string{"open", "high", "low", "close", "volume"}

// ReadCSV parses a provider CSV export into ingestion records using the
// given profile. defaultZone interprets naive timestamps when the profile
// carries no zone of its own.
//
// Any unparseable timestamp or numeric field fails the whole read with a
// *ingest.BatchError (parse errors are fatal for the batch, same as
// invalid-session errors). A missing or blank volume is not an error; it
// defaults to 0.
func ReadCSV(path string, profile Profile, defaultZone *time.Location) ([]ingest.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	zone, err := profile.zone(defaultZone)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header %s: %w", path, err)
	}

	// Case-insensitive header index; TradingView exports have been seen
	// with both "volume" and "Volume".
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	column := func(field string) (int, bool) {
		name := field
		if mapped, ok := profile.Columns[field]; ok {
			name = mapped
		}
		i, ok := index[strings.ToLower(name)]
		return i, ok
	}

	timeIdx, ok := index[strings.ToLower(profile.TimeColumn)]
	if !ok {
		return nil, fmt.Errorf("csv %s: missing timestamp column %q", path, profile.TimeColumn)
	}

	var records []ingest.Record
	for rowNum := 0; ; rowNum++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ingest.NewParseError(rowNum, path, "malformed csv row", err)
		}

		raw := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				raw[col] = row[i]
			}
		}

		ts, err := parseTimestamp(row[timeIdx], profile.TimeLayout, zone)
		if err != nil {
			return nil, ingest.NewParseError(rowNum, path, "unparseable timestamp", err)
		}

		var ohlcv market.OHLCV
		fields := map[string]*float64{
			"open":   &ohlcv.Open,
			"high":   &ohlcv.High,
			"low":    &ohlcv.Low,
			"close":  &ohlcv.Close,
			"volume": &ohlcv.Volume,
		}
		for _, field := range ohlcvFields {
			i, found := column(field)
			if !found || i >= len(row) || strings.TrimSpace(row[i]) == "" {
				if field == "volume" {
					continue // defaults to 0
				}
				return nil, ingest.NewParseError(rowNum, path,
					fmt.Sprintf("missing %s field", field), nil)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return nil, ingest.NewParseError(rowNum, path,
					fmt.Sprintf("unparseable %s field", field), err)
			}
			*fields[field] = v
		}

		records = append(records, ingest.Record{
			Timestamp: ts,
			OHLCV:     ohlcv,
			Raw:       raw,
		})
	}

	if records == nil {
		records = []ingest.Record{}
	}
	return records, nil
}

// parseTimestamp converts a source timestamp string to UTC epoch seconds.
// Offset-qualified ISO values (the usual TradingView form) carry their own
// zone; naive values use the profile layout interpreted in zone.
func parseTimestamp(value, layout string, zone *time.Location) (int64, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "T") {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t.Unix(), nil
		}
		// ISO form without offset: interpret in the profile zone.
		t, err := time.ParseInLocation("2006-01-02T15:04:05", value, zone)
		if err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", value, err)
		}
		return t.Unix(), nil
	}

	if layout == "" {
		layout = "2006-01-02 15:04:05"
	}
	t, err := time.ParseInLocation(layout, value, zone)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t.Unix(), nil
}
