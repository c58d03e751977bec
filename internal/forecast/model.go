package forecast

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/floats"
)

// Model is a pretrained multi-channel regression model
type Model interface {
	// InputDim is the number of target channels the model was trained on
	InputDim() int
	// Predict returns horizon rows of InputDim values following series.
	// covariates, when the model uses them, must cover len(series)+horizon rows.
	Predict(ctx context.Context, horizon int, series, covariates [][]float64) ([][]float64, error)
}

// LinearModel is an autoregressive linear model exported by the training
// pipeline. Each output channel is a weighted sum of the last ChunkLength
// rows (oldest first, row-major) followed by the covariates of the predicted day.
type LinearModel struct {
	Name         string      `msgpack:"name"`
	Channels     int         `msgpack:"input_dim"`
	ChunkLength  int         `msgpack:"input_chunk_length"`
	CovariateDim int         `msgpack:"covariate_dim"`
	Weights      [][]float64 `msgpack:"weights"`
	Bias         []float64   `msgpack:"bias"`
}

// LoadModel reads a msgpack model artifact from path
func LoadModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, path)
		}
		return nil, fmt.Errorf("failed to read model %s: %w", path, err)
	}

	var m LinearModel
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid model %s: %w", path, err)
	}
	return &m, nil
}

// SaveModel writes m to path as msgpack
func SaveModel(path string, m *LinearModel) error {
	if err := m.validate(); err != nil {
		return err
	}
	data, err := msgpack.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (m *LinearModel) featureLen() int {
	return m.ChunkLength*m.Channels + m.CovariateDim
}

func (m *LinearModel) validate() error {
	if m.Channels < 1 || m.ChunkLength < 1 || m.CovariateDim < 0 {
		return fmt.Errorf("input_dim and input_chunk_length must be positive")
	}
	if len(m.Weights) != m.Channels || len(m.Bias) != m.Channels {
		return fmt.Errorf("%w: want %d weight rows and biases, got %d and %d",
			ErrDimensionMismatch, m.Channels, len(m.Weights), len(m.Bias))
	}
	for i, w := range m.Weights {
		if len(w) != m.featureLen() {
			return fmt.Errorf("%w: weight row %d has %d values, want %d", ErrDimensionMismatch, i, len(w), m.featureLen())
		}
	}
	return nil
}

func (m *LinearModel) InputDim() int { return m.Channels }

func (m *LinearModel) Predict(ctx context.Context, horizon int, series, covariates [][]float64) ([][]float64, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	if len(series) < m.ChunkLength {
		return nil, fmt.Errorf("model needs at least %d days of history, got %d", m.ChunkLength, len(series))
	}
	for i, row := range series {
		if len(row) != m.Channels {
			return nil, fmt.Errorf("%w: series row %d has %d channels, model expects %d", ErrDimensionMismatch, i, len(row), m.Channels)
		}
	}
	if m.CovariateDim > 0 && len(covariates) < len(series)+horizon {
		return nil, fmt.Errorf("%w: need %d covariate rows, got %d", ErrDimensionMismatch, len(series)+horizon, len(covariates))
	}

	window := make([][]float64, m.ChunkLength)
	copy(window, series[len(series)-m.ChunkLength:])

	feature := make([]float64, m.featureLen())
	out := make([][]float64, 0, horizon)
	for t := 0; t < horizon; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i, row := range window {
			copy(feature[i*m.Channels:], row)
		}
		if m.CovariateDim > 0 {
			cov := covariates[len(series)+t]
			if len(cov) < m.CovariateDim {
				return nil, fmt.Errorf("%w: covariate row has %d values, model expects %d", ErrDimensionMismatch, len(cov), m.CovariateDim)
			}
			copy(feature[m.ChunkLength*m.Channels:], cov[:m.CovariateDim])
		}

		next := make([]float64, m.Channels)
		for c := range next {
			next[c] = m.Bias[c] + floats.Dot(m.Weights[c], feature)
		}
		out = append(out, next)
		window = append(window[1:], next)
	}

	return out, nil
}
