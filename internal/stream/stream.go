// Package stream carries computed advisories over a redis stream from the
// dashboard service to the archiver.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cuacadesa/internal/config"
	"cuacadesa/internal/models"

	"github.com/go-redis/redis/v8"
)

// DefaultMaxLen caps the advisory stream (approximate trimming)
const DefaultMaxLen = 10000

// ForecastSeries is the forecast of one variable as it was used for advice
type ForecastSeries struct {
	Provider string                 `json:"provider"`
	Fallback bool                   `json:"fallback"`
	Points   []models.ForecastPoint `json:"points"`
}

// AdvisoryMessage is the payload published for every computed dashboard
type AdvisoryMessage struct {
	Site        string                    `json:"site"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Insight     *models.Insight           `json:"insight,omitempty"`
	Forecasts   map[string]ForecastSeries `json:"forecasts"`
}

// Adder is the part of the redis client used to publish
type Adder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

type Publisher struct {
	client Adder
	stream string
	maxLen int64
}

func NewPublisher(client Adder, stream string) *Publisher {
	return &Publisher{client: client, stream: stream, maxLen: DefaultMaxLen}
}

// Publish serializes msg into the "data" field of a new stream entry and
// returns the entry id
func (p *Publisher) Publish(ctx context.Context, msg *AdvisoryMessage) (string, error) {
	values, err := Encode(msg)
	if err != nil {
		return "", err
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", p.stream, err)
	}
	return id, nil
}

func Encode(msg *AdvisoryMessage) (map[string]interface{}, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize advisory: %w", err)
	}
	return map[string]interface{}{"data": string(data)}, nil
}

// Decode parses the values of a stream entry written by Publish
func Decode(values map[string]interface{}) (*AdvisoryMessage, error) {
	raw, ok := values["data"].(string)
	if !ok {
		return nil, errors.New("message has no 'data' field")
	}

	var msg AdvisoryMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal advisory: %w", err)
	}
	return &msg, nil
}

// NewClient creates a redis client from the environment settings
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
