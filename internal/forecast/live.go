package forecast

import (
	"context"
	"errors"
	"fmt"

	"cuacadesa/internal/models"
	"cuacadesa/internal/series"
)

// Artifacts are the loaded model and optional scalers of one variable
type Artifacts struct {
	Model           Model
	TargetScaler    Scaler
	CovariateScaler Scaler
}

// LiveModel runs a pretrained model in-process
type LiveModel struct {
	variable  string
	artifacts *Artifacts
}

// NewLiveModel creates a provider backed by loaded artifacts
func NewLiveModel(variable string, artifacts *Artifacts) *LiveModel {
	return &LiveModel{variable: variable, artifacts: artifacts}
}

func (l *LiveModel) Name() string { return "live" }

// Forecast predicts horizon days after the last history day
func (l *LiveModel) Forecast(ctx context.Context, history []models.DailyReading, horizon int) ([]models.ForecastPoint, error) {
	if len(history) == 0 {
		return nil, errors.New("no history to forecast from")
	}
	if l.artifacts == nil || l.artifacts.Model == nil {
		return nil, fmt.Errorf("%w: no model loaded for %s", ErrMissingArtifact, l.variable)
	}
	model := l.artifacts.Model

	input := MakeCompatible(series.Values(history), model.InputDim())
	input = transformBestEffort(l.artifacts.TargetScaler, input, l.variable+" target")

	covariates := GenerateCovariates(history[0].Date, len(history)+horizon)
	covariates = transformBestEffort(l.artifacts.CovariateScaler, covariates, l.variable+" covariates")

	pred, err := model.Predict(ctx, horizon, input, covariates)
	if err != nil {
		return nil, fmt.Errorf("%s prediction failed: %w", l.variable, err)
	}
	if len(pred) != horizon {
		return nil, fmt.Errorf("%s prediction returned %d rows, want %d", l.variable, len(pred), horizon)
	}

	pred = inverseBestEffort(l.artifacts.TargetScaler, pred, l.variable+" target")

	values := FirstChannel(pred)
	dates := futureDates(lastDate(history), horizon)
	out := make([]models.ForecastPoint, horizon)
	for i := range out {
		out[i] = models.ForecastPoint{Date: dates[i], Value: values[i]}
	}
	return out, nil
}
