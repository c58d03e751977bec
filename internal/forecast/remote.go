package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cuacadesa/internal/log"
	"cuacadesa/internal/models"
	"cuacadesa/internal/series"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// streamMaxLen bounds the job streams after each completed job
const streamMaxLen = 500

// StreamClient is the subset of the redis client used for model jobs
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRead(ctx context.Context, a *redis.XReadArgs) *redis.XStreamSliceCmd
	XRevRangeN(ctx context.Context, stream, start, stop string, count int64) *redis.XMessageSliceCmd
	XTrimMaxLen(ctx context.Context, key string, maxLen int64) *redis.IntCmd
}

// RemoteOptions configures the streams and wait time of a RemoteModel
type RemoteOptions struct {
	InputStream  string
	OutputStream string
	Timeout      time.Duration
	PollInterval time.Duration
}

// RemoteModel hands the forecast to a model worker over redis streams. The
// job is published to the input stream and the worker answers on the output
// stream with the same job_id.
type RemoteModel struct {
	variable string
	client   StreamClient
	opts     RemoteOptions
	breaker  *gobreaker.CircuitBreaker[[]models.ForecastPoint]
}

type remotePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type remoteJob struct {
	JobID    string        `json:"job_id"`
	Variable string        `json:"variable"`
	Horizon  int           `json:"horizon"`
	History  []remotePoint `json:"history"`
}

type remoteResult struct {
	JobID    string        `json:"job_id"`
	Variable string        `json:"variable"`
	Forecast []remotePoint `json:"forecast"`
	Error    string        `json:"error,omitempty"`
}

func NewRemoteModel(variable string, client StreamClient, opts RemoteOptions) *RemoteModel {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[[]models.ForecastPoint](gobreaker.Settings{
		Name:        "remote-model-" + variable,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &RemoteModel{variable: variable, client: client, opts: opts, breaker: cb}
}

func (r *RemoteModel) Name() string { return "remote" }

func (r *RemoteModel) Forecast(ctx context.Context, history []models.DailyReading, horizon int) ([]models.ForecastPoint, error) {
	if len(history) == 0 {
		return nil, errors.New("no history to forecast from")
	}
	return r.breaker.Execute(func() ([]models.ForecastPoint, error) {
		return r.run(ctx, history, horizon)
	})
}

func (r *RemoteModel) run(ctx context.Context, history []models.DailyReading, horizon int) ([]models.ForecastPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	jobID := uuid.NewString()
	data, err := encodeJob(jobID, r.variable, history, horizon)
	if err != nil {
		return nil, err
	}

	// Only results published after the job was sent are of interest
	lastID := "0-0"
	last, err := r.client.XRevRangeN(ctx, r.opts.OutputStream, "+", "-", 1).Result()
	if err == nil && len(last) > 0 {
		lastID = last[0].ID
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.opts.InputStream,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to publish model job: %w", err)
	}
	log.Debugf("Published %s job %s with %d days of history", r.variable, jobID, len(history))

	for {
		streams, err := r.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{r.opts.OutputStream, lastID},
			Count:   10,
			Block:   r.opts.PollInterval,
		}).Result()

		if ctx.Err() != nil {
			return nil, fmt.Errorf("timeout waiting for model job %s: %w", jobID, ctx.Err())
		}
		if err != nil && err != redis.Nil {
			log.Warnf("Error reading from %s: %v", r.opts.OutputStream, err)
			select {
			case <-ctx.Done():
			case <-time.After(r.opts.PollInterval):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID

				raw, ok := msg.Values["data"].(string)
				if !ok {
					continue
				}
				points, found, err := decodeResult(raw, jobID, history, horizon)
				if !found {
					continue
				}

				r.client.XTrimMaxLen(ctx, r.opts.InputStream, streamMaxLen)
				r.client.XTrimMaxLen(ctx, r.opts.OutputStream, streamMaxLen)
				return points, err
			}
		}
	}
}

func encodeJob(jobID, variable string, history []models.DailyReading, horizon int) ([]byte, error) {
	job := remoteJob{
		JobID:    jobID,
		Variable: variable,
		Horizon:  horizon,
		History:  make([]remotePoint, len(history)),
	}
	for i, h := range history {
		job.History[i] = remotePoint{Date: h.Date.Format(series.DateLayout), Value: h.Value}
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model job: %w", err)
	}
	return data, nil
}

// decodeResult parses a worker message. found reports whether the message
// belongs to jobID; messages for other jobs are ignored.
func decodeResult(raw, jobID string, history []models.DailyReading, horizon int) ([]models.ForecastPoint, bool, error) {
	var res remoteResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		log.Debugf("Failed to parse model result: %v", err)
		return nil, false, nil
	}
	if res.JobID != jobID {
		return nil, false, nil
	}
	if res.Error != "" {
		return nil, true, fmt.Errorf("model worker failed job %s: %s", jobID, res.Error)
	}
	if len(res.Forecast) < horizon {
		return nil, true, fmt.Errorf("model worker returned %d days, want %d", len(res.Forecast), horizon)
	}

	dates := futureDates(lastDate(history), horizon)
	out := make([]models.ForecastPoint, horizon)
	for i := range out {
		out[i] = models.ForecastPoint{Date: dates[i], Value: res.Forecast[i].Value}
	}
	return out, true, nil
}
