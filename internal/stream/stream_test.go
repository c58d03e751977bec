package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"cuacadesa/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdder struct {
	args *redis.XAddArgs
	err  error
}

func (f *fakeAdder) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = a
	return redis.NewStringResult("1-0", f.err)
}

func sampleMessage() *AdvisoryMessage {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &AdvisoryMessage{
		Site:        "Ngadirejo",
		GeneratedAt: day,
		Insight: &models.Insight{
			Status:      models.Status{Code: "normal", Label: "Normal", Severity: models.SeveritySuccess},
			PeriodStart: day,
			PeriodEnd:   day.AddDate(0, 0, 36),
		},
		Forecasts: map[string]ForecastSeries{
			models.Rainfall: {Provider: "live", Points: []models.ForecastPoint{{Date: day, Value: 1.5}}},
		},
	}
}

func TestPublisher_Publish(t *testing.T) {
	adder := &fakeAdder{}
	p := NewPublisher(adder, "advisories")

	id, err := p.Publish(context.Background(), sampleMessage())
	require.NoError(t, err)
	assert.Equal(t, "1-0", id)
	assert.Equal(t, "advisories", adder.args.Stream)
	assert.True(t, adder.args.Approx)

	values, ok := adder.args.Values.(map[string]interface{})
	require.True(t, ok)
	msg, err := Decode(values)
	require.NoError(t, err)
	assert.Equal(t, sampleMessage(), msg)
}

func TestPublisher_Error(t *testing.T) {
	p := NewPublisher(&fakeAdder{err: errors.New("connection refused")}, "advisories")
	_, err := p.Publish(context.Background(), sampleMessage())
	assert.Error(t, err)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(map[string]interface{}{})
	assert.Error(t, err)

	_, err = Decode(map[string]interface{}{"data": "{"})
	assert.Error(t, err)
}

type fakeGroup struct {
	batches   [][]redis.XMessage
	cancel    context.CancelFunc
	createErr error
	acked     []string
}

func (f *fakeGroup) XGroupCreateMkStream(context.Context, string, string, string) *redis.StatusCmd {
	return redis.NewStatusResult("OK", f.createErr)
}

func (f *fakeGroup) XReadGroup(_ context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	if len(f.batches) == 0 {
		f.cancel()
		return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: a.Streams[0], Messages: batch}}, nil)
}

func (f *fakeGroup) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func TestConsumer_Run(t *testing.T) {
	good, err := Encode(sampleMessage())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeGroup{cancel: cancel}
	client.batches = [][]redis.XMessage{
		{{ID: "1-0", Values: good}, {ID: "2-0", Values: map[string]interface{}{"other": "x"}}},
		{{ID: "3-0", Values: good}},
	}

	var sites []string
	c := NewConsumer(client, "advisories", "archivers", "archiver-1", func(_ context.Context, id string, msg *AdvisoryMessage) error {
		if id == "3-0" {
			return errors.New("db down")
		}
		sites = append(sites, msg.Site)
		return nil
	})

	require.NoError(t, c.Run(ctx))
	assert.Equal(t, []string{"Ngadirejo"}, sites)
	assert.Equal(t, []string{"1-0"}, client.acked)

	handled, failures := c.Stats()
	assert.Equal(t, 1, handled)
	assert.Equal(t, 2, failures)
}

func TestConsumer_GroupExists(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeGroup{cancel: cancel, createErr: errors.New("BUSYGROUP Consumer Group name already exists")}

	c := NewConsumer(client, "advisories", "archivers", "archiver-1", func(context.Context, string, *AdvisoryMessage) error { return nil })
	assert.NoError(t, c.Run(ctx))
}

func TestConsumer_GroupCreateFails(t *testing.T) {
	client := &fakeGroup{createErr: errors.New("NOAUTH")}
	c := NewConsumer(client, "advisories", "archivers", "archiver-1", nil)
	assert.Error(t, c.Run(context.Background()))
}
