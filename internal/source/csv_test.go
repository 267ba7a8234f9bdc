package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grayfold/archivist/internal/ingest"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func losAngeles(t *testing.T) *time.Location {
	t.Helper()
	zone, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return zone
}

func TestReadCSV_OffsetTimestamps(t *testing.T) {
	path := writeCSV(t, `time,open,high,low,close,Volume
2024-01-08T13:00:00-08:00,100,101,99,100.5,1500
2024-01-08T13:01:00-08:00,100.5,102,100,101.25,
`)

	records, err := ReadCSV(path, TradingView, losAngeles(t))
	require.NoError(t, err)
	require.Len(t, records, 2)

	want := time.Date(2024, time.January, 8, 13, 0, 0, 0, losAngeles(t)).Unix()
	assert.Equal(t, want, records[0].Timestamp)
	assert.Equal(t, 100.5, records[0].OHLCV.Close)
	assert.Equal(t, 1500.0, records[0].OHLCV.Volume)

	// Blank volume defaults to zero; capital "Volume" header still matches.
	assert.Equal(t, 0.0, records[1].OHLCV.Volume)
	assert.Equal(t, "2024-01-08T13:01:00-08:00", records[1].Raw["time"])
}

func TestReadCSV_NaiveTimestampsUseZone(t *testing.T) {
	path := writeCSV(t, `time,open,high,low,close,volume
2024-01-08 13:00:00,100,101,99,100.5,1500
`)

	records, err := ReadCSV(path, TradingView, losAngeles(t))
	require.NoError(t, err)
	require.Len(t, records, 1)

	want := time.Date(2024, time.January, 8, 13, 0, 0, 0, losAngeles(t)).Unix()
	assert.Equal(t, want, records[0].Timestamp)
}

func TestReadCSV_ColumnRemap(t *testing.T) {
	path := writeCSV(t, `t,o,h,l,c,v
2024-01-08 13:00:00,100,101,99,100.5,1500
`)

	profile := Profile{
		Name:       "polygon",
		TimeColumn: "t",
		Columns: map[string]string{
			"open": "o", "high": "h", "low": "l", "close": "c", "volume": "v",
		},
	}
	records, err := ReadCSV(path, profile, losAngeles(t))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 100.5, records[0].OHLCV.Close)
	assert.Equal(t, 1500.0, records[0].OHLCV.Volume)
}

func TestReadCSV_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		row     int
	}{
		{
			name: "bad timestamp",
			content: `time,open,high,low,close,volume
not-a-time,100,101,99,100.5,1500
`,
			row: 0,
		},
		{
			name: "bad close",
			content: `time,open,high,low,close,volume
2024-01-08 13:00:00,100,101,99,100.5,1500
2024-01-08 13:01:00,100,101,99,abc,1500
`,
			row: 1,
		},
		{
			name: "missing open",
			content: `time,open,high,low,close,volume
2024-01-08 13:00:00,,101,99,100.5,1500
`,
			row: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, tt.content)
			_, err := ReadCSV(path, TradingView, losAngeles(t))
			require.Error(t, err)
			assert.True(t, ingest.IsParseError(err))

			var be *ingest.BatchError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.row, be.RecordIndex)
			assert.Equal(t, path, be.File)
		})
	}
}

func TestReadCSV_MissingTimeColumn(t *testing.T) {
	path := writeCSV(t, `open,high,low,close,volume
100,101,99,100.5,1500
`)

	_, err := ReadCSV(path, TradingView, losAngeles(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "time")
}

func TestReadCSV_EmptyFileReturnsEmptySlice(t *testing.T) {
	path := writeCSV(t, "time,open,high,low,close,volume\n")

	records, err := ReadCSV(path, TradingView, losAngeles(t))
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
