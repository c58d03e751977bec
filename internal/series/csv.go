package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"cuacadesa/internal/models"
)

// DateLayout is the date format written to exported CSVs
const DateLayout = "2006-01-02"

// timestampLayout is used when raw sub-daily readings are written back
const timestampLayout = "2006-01-02 15:04:05"

// DefaultPrecision is the number of decimals written to CSV exports
const DefaultPrecision = 4

var layouts = []string{
	DateLayout,
	timestampLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02-01-2006",
	"02/01/2006",
}

// ParseTimestamp accepts the date formats seen in station exports
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ReadRaw reads a two-column CSV (column 0 = date, column 1 = value).
// A non-numeric first row is treated as a header. Rows with an empty or
// NaN value are skipped.
func ReadRaw(r io.Reader) ([]models.RawReading, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var readings []models.RawReading
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line++

		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: expected at least 2 columns, got %d", line, len(record))
		}

		raw := strings.TrimSpace(record[1])
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			if line == 1 {
				continue // header
			}
			if raw == "" {
				continue
			}
			return nil, fmt.Errorf("line %d: invalid value %q: %w", line, raw, err)
		}
		if math.IsNaN(value) {
			continue
		}

		ts, err := ParseTimestamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		readings = append(readings, models.RawReading{Timestamp: ts, Value: value})
	}

	return readings, nil
}

// ReadRawFile opens path and reads it with ReadRaw
func ReadRawFile(path string) ([]models.RawReading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	readings, err := ReadRaw(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return readings, nil
}

// ReadPoints reads a (date, value) CSV as forecast points sorted by date
func ReadPoints(r io.Reader) ([]models.ForecastPoint, error) {
	raw, err := ReadRaw(r)
	if err != nil {
		return nil, err
	}

	points := make([]models.ForecastPoint, len(raw))
	for i, rr := range raw {
		points[i] = models.ForecastPoint{Date: Day(rr.Timestamp), Value: rr.Value}
	}
	return SortPoints(points), nil
}

// ReadPointsFile opens path and reads it with ReadPoints
func ReadPointsFile(path string) ([]models.ForecastPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	points, err := ReadPoints(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

func formatValue(v float64, precision int) string {
	if precision < 0 {
		precision = DefaultPrecision
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// Round rounds v to precision decimals
func Round(v float64, precision int) float64 {
	if precision < 0 {
		precision = DefaultPrecision
	}
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

// WritePoints writes a "date,value" CSV
func WritePoints(w io.Writer, points []models.ForecastPoint, precision int) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"date", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range points {
		if err := writer.Write([]string{p.Date.Format(DateLayout), formatValue(p.Value, precision)}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteJoined writes a "date,rainfall,windspeed" CSV
func WriteJoined(w io.Writer, days []models.JoinedDay, precision int) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"date", models.Rainfall, models.WindSpeed}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, d := range days {
		row := []string{d.Date.Format(DateLayout), formatValue(d.Rainfall, precision), formatValue(d.WindSpeed, precision)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteRawFile persists raw readings to path, replacing it atomically.
// Values are written with the shortest exact representation so stored
// observations survive a rewrite unchanged.
func WriteRawFile(path string, readings []models.RawReading) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write([]string{"date", "value"}); err != nil {
			return err
		}
		for _, r := range readings {
			if err := writer.Write([]string{r.Timestamp.Format(timestampLayout), strconv.FormatFloat(r.Value, 'f', -1, 64)}); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// MergeRaw combines two sets of raw readings keyed by timestamp. Incoming
// readings replace existing ones with the same timestamp.
func MergeRaw(existing, incoming []models.RawReading) []models.RawReading {
	byTime := make(map[int64]models.RawReading, len(existing)+len(incoming))
	for _, r := range existing {
		byTime[r.Timestamp.Unix()] = r
	}
	for _, r := range incoming {
		byTime[r.Timestamp.Unix()] = r
	}

	merged := make([]models.RawReading, 0, len(byTime))
	for _, r := range byTime {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}
