package forecast

import (
	"context"
	"testing"
	"time"

	"cuacadesa/internal/series"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawCSV = `date,value
2024-03-01 06:00:00,1
2024-03-01 18:00:00,2
2024-03-02 06:00:00,3
`

func TestBackfill_FillsGapAndPersists(t *testing.T) {
	path := writeFile(t, "rain.csv", rawCSV)
	inner := &fakeProvider{value: 7}
	// today is 2024-03-05, three days after the last observation
	b := NewBackfillingModel(inner, path, 4, fixedClock(day0.AddDate(0, 0, 4).Add(8*time.Hour)))

	h := history(3, 3)
	filled, added, err := b.Backfill(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	require.Len(t, filled, 5)
	assert.Equal(t, day0.AddDate(0, 0, 4), filled[4].Date)
	assert.Equal(t, 7.0, filled[4].Value)
	assert.Len(t, h, 2)

	raw, err := series.ReadRawFile(path)
	require.NoError(t, err)
	assert.Len(t, raw, 6)
	daily := series.Aggregate(raw, series.Sum)
	require.Len(t, daily, 5)
	assert.Equal(t, 3.0, daily[0].Value)
	assert.Equal(t, 7.0, daily[2].Value)
}

func TestBackfill_KeepsObservedValues(t *testing.T) {
	path := writeFile(t, "rain.csv", "date,value\n2024-03-01 06:00:00,0.123456\n")
	inner := &fakeProvider{value: 2.345678}
	b := NewBackfillingModel(inner, path, 2, fixedClock(day0.AddDate(0, 0, 2)))

	_, added, err := b.Backfill(context.Background(), history(0.123456))
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	raw, err := series.ReadRawFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.Equal(t, 0.123456, raw[0].Value)
	assert.Equal(t, 2.35, raw[1].Value)
	assert.Equal(t, 2.35, raw[2].Value)
}

func TestBackfill_UpToDate(t *testing.T) {
	inner := &fakeProvider{value: 7}
	b := NewBackfillingModel(inner, "", 4, fixedClock(day0.AddDate(0, 0, 1)))

	filled, added, err := b.Backfill(context.Background(), history(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Len(t, filled, 2)
	assert.Equal(t, 0, inner.calls)
}

func TestBackfill_FailsOpen(t *testing.T) {
	inner := &fakeProvider{err: errBoom}
	b := NewBackfillingModel(inner, "", 4, fixedClock(day0.AddDate(0, 0, 5)))

	filled, added, err := b.Backfill(context.Background(), history(1, 2))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, added)
	assert.Len(t, filled, 2)
}

func TestBackfillingModel_ForecastsFromFilledHistory(t *testing.T) {
	inner := &fakeProvider{value: 1}
	b := NewBackfillingModel(inner, "", 4, fixedClock(day0.AddDate(0, 0, 3)))

	got, err := b.Forecast(context.Background(), history(5), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// history ends 2024-03-04 after the backfill
	assert.Equal(t, day0.AddDate(0, 0, 4), got[0].Date)
	assert.Len(t, inner.last, 4)
	assert.Equal(t, "backfill+fake", b.Name())
}

func TestAsBackfilling(t *testing.T) {
	b := NewBackfillingModel(&fakeProvider{}, "", 4, fixedClock(day0))

	got, ok := AsBackfilling(NewRateLimited(b, 1, 1))
	assert.True(t, ok)
	assert.Same(t, b, got)

	_, ok = AsBackfilling(NewRateLimited(&fakeProvider{}, 1, 1))
	assert.False(t, ok)
}
