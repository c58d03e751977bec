package forecast

import (
	"errors"
	"fmt"
	"os"

	"cuacadesa/internal/log"

	"github.com/vmihailenco/msgpack/v5"
)

// Scaler maps values into and out of the range a model was trained on
type Scaler interface {
	Transform(rows [][]float64) ([][]float64, error)
	InverseTransform(rows [][]float64) ([][]float64, error)
}

// MinMaxScaler scales each channel linearly from [Min, Max] to
// [FeatureMin, FeatureMax]
type MinMaxScaler struct {
	Min        []float64 `msgpack:"data_min"`
	Max        []float64 `msgpack:"data_max"`
	FeatureMin float64   `msgpack:"feature_min"`
	FeatureMax float64   `msgpack:"feature_max"`
}

// LoadScaler reads a msgpack scaler artifact from path
func LoadScaler(path string) (*MinMaxScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, path)
		}
		return nil, fmt.Errorf("failed to read scaler %s: %w", path, err)
	}

	var s MinMaxScaler
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode scaler %s: %w", path, err)
	}
	if len(s.Min) == 0 || len(s.Min) != len(s.Max) {
		return nil, fmt.Errorf("invalid scaler %s: data_min and data_max must have the same non-zero length", path)
	}
	if s.FeatureMin == 0 && s.FeatureMax == 0 {
		s.FeatureMax = 1
	}
	return &s, nil
}

// SaveScaler writes s to path as msgpack
func SaveScaler(path string, s *MinMaxScaler) error {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode scaler: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *MinMaxScaler) span(c int) float64 {
	if d := s.Max[c] - s.Min[c]; d != 0 {
		return d
	}
	return 1
}

func (s *MinMaxScaler) featureSpan() float64 {
	if d := s.FeatureMax - s.FeatureMin; d != 0 {
		return d
	}
	return 1
}

func (s *MinMaxScaler) check(rows [][]float64) error {
	for i, row := range rows {
		if len(row) != len(s.Min) {
			return fmt.Errorf("%w: row %d has %d channels, scaler was fitted on %d", ErrDimensionMismatch, i, len(row), len(s.Min))
		}
	}
	return nil
}

func (s *MinMaxScaler) Transform(rows [][]float64) ([][]float64, error) {
	if err := s.check(rows); err != nil {
		return nil, err
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = make([]float64, len(row))
		for c, v := range row {
			out[i][c] = (v-s.Min[c])/s.span(c)*s.featureSpan() + s.FeatureMin
		}
	}
	return out, nil
}

func (s *MinMaxScaler) InverseTransform(rows [][]float64) ([][]float64, error) {
	if err := s.check(rows); err != nil {
		return nil, err
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = make([]float64, len(row))
		for c, v := range row {
			out[i][c] = (v-s.FeatureMin)/s.featureSpan()*s.span(c) + s.Min[c]
		}
	}
	return out, nil
}

// transformBestEffort applies s and falls back to the unscaled rows when the
// transform fails. This hides genuine data/model mismatches; the failure is
// only visible in debug logs.
func transformBestEffort(s Scaler, rows [][]float64, what string) [][]float64 {
	if s == nil {
		return rows
	}
	out, err := s.Transform(rows)
	if err != nil {
		log.Debugw("skipping scaling", "what", what, "error", err)
		return rows
	}
	return out
}

func inverseBestEffort(s Scaler, rows [][]float64, what string) [][]float64 {
	if s == nil {
		return rows
	}
	out, err := s.InverseTransform(rows)
	if err != nil {
		log.Debugw("skipping inverse scaling", "what", what, "error", err)
		return rows
	}
	return out
}
