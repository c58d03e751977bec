package series

import (
	"testing"
	"time"

	"cuacadesa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAggregate_SumCollapsesSameDay(t *testing.T) {
	raw := []models.RawReading{
		{Timestamp: ts("2024-01-02 06:00"), Value: 1.5},
		{Timestamp: ts("2024-01-01 12:00"), Value: 2},
		{Timestamp: ts("2024-01-01 18:00"), Value: 3},
		{Timestamp: ts("2024-01-02 18:00"), Value: 0.5},
	}

	got := Aggregate(raw, Sum)

	require.Len(t, got, 2)
	assert.Equal(t, ts("2024-01-01"), got[0].Date)
	assert.InDelta(t, 5.0, got[0].Value, 1e-9)
	assert.Equal(t, ts("2024-01-02"), got[1].Date)
	assert.InDelta(t, 2.0, got[1].Value, 1e-9)
}

func TestAggregate_MeanCollapsesSameDay(t *testing.T) {
	raw := []models.RawReading{
		{Timestamp: ts("2024-03-10 00:00"), Value: 2},
		{Timestamp: ts("2024-03-10 12:00"), Value: 4},
		{Timestamp: ts("2024-03-10 23:00"), Value: 6},
	}

	got := Aggregate(raw, Mean)

	require.Len(t, got, 1)
	assert.InDelta(t, 4.0, got[0].Value, 1e-9)
}

func TestAggregate_FillsGapsWithZero(t *testing.T) {
	raw := []models.RawReading{
		{Timestamp: ts("2024-01-05"), Value: 7},
		{Timestamp: ts("2024-01-01"), Value: 3},
	}

	got := Aggregate(raw, Mean)

	require.Len(t, got, 5)
	for i, r := range got {
		assert.Equal(t, ts("2024-01-01").AddDate(0, 0, i), r.Date)
	}
	assert.Equal(t, 3.0, got[0].Value)
	assert.Equal(t, 0.0, got[1].Value)
	assert.Equal(t, 0.0, got[3].Value)
	assert.Equal(t, 7.0, got[4].Value)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil, Sum))
}

func TestParseAggregation(t *testing.T) {
	tests := []struct {
		name    string
		want    Aggregation
		wantErr bool
	}{
		{name: "sum", want: Sum},
		{name: "mean", want: Mean},
		{name: "max", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAggregation(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppendForecast(t *testing.T) {
	history := []models.DailyReading{
		{Date: ts("2024-01-01"), Value: 1},
		{Date: ts("2024-01-02"), Value: 2},
	}
	points := []models.ForecastPoint{
		{Date: ts("2024-01-04"), Value: -0.3},
		{Date: ts("2024-01-02"), Value: 99},
		{Date: ts("2024-01-03"), Value: 3},
	}

	got := AppendForecast(history, points)

	require.Len(t, got, 4)
	assert.Equal(t, 2.0, got[1].Value, "existing days are not overwritten")
	assert.Equal(t, 3.0, got[2].Value)
	assert.Equal(t, 0.0, got[3].Value, "negative forecasts are clamped")
	assert.Len(t, history, 2)
}

func TestTail(t *testing.T) {
	readings := make([]models.DailyReading, 10)
	assert.Len(t, Tail(readings, 3), 3)
	assert.Len(t, Tail(readings, 0), 10)
	assert.Len(t, Tail(readings, 30), 10)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 3, DaysBetween(ts("2024-02-27 23:00"), ts("2024-03-01 01:00")))
	assert.Equal(t, 0, DaysBetween(ts("2024-02-27"), ts("2024-02-27 22:00")))
}
