package forecast

import (
	"context"
	"fmt"

	"cuacadesa/internal/models"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Provider with rate limiting
type RateLimited struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimited creates a rate limited provider.
// rps is the maximum forecasts per second (can be fractional), burst the
// maximum burst size.
func NewRateLimited(provider Provider, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimited) Name() string { return r.provider.Name() }

// Forecast waits for limiter permission, then forwards to the provider
func (r *RateLimited) Forecast(ctx context.Context, history []models.DailyReading, horizon int) ([]models.ForecastPoint, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.provider.Forecast(ctx, history, horizon)
}

// Unwrap returns the limited provider
func (r *RateLimited) Unwrap() Provider { return r.provider }
