package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cuacadesa/internal/models"
)

const (
	baseURL = "https://api.open-meteo.com/v1/forecast"

	hourlyLayout = "2006-01-02T15:04"
)

// OpenMeteoClient is a client for the Open-Meteo API
type OpenMeteoClient struct {
	client  *http.Client
	baseURL string
}

type HourlyParams struct {
	Latitude      float64
	Longitude     float64
	HourlyFields  []string
	Timezone      string
	WindSpeedUnit string
	PastDays      int // how many days in the past you want to get
	ForecastDays  int // how many days in the future you want to forecast
}

// HourlyData holds hourly series keyed by Open-Meteo field name. Missing
// values are nil.
type HourlyData struct {
	Timezone string
	Time     []time.Time
	Fields   map[string][]*float64
}

// NewOpenMeteoClient creates a new Open-Meteo API client
func NewOpenMeteoClient() *OpenMeteoClient {
	return &OpenMeteoClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

// WithBaseURL points the client at another Open-Meteo compatible endpoint
func (c *OpenMeteoClient) WithBaseURL(url string) *OpenMeteoClient {
	c.baseURL = url
	return c
}

// BuildURL builds the request URL for hourly data
func (c *OpenMeteoClient) BuildURL(params HourlyParams) string {
	if params.Timezone == "" {
		params.Timezone = "auto"
	}
	if params.WindSpeedUnit == "" {
		params.WindSpeedUnit = "ms"
	}

	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&timezone=%s&wind_speed_unit=%s",
		c.baseURL, params.Latitude, params.Longitude, params.Timezone, params.WindSpeedUnit)

	if params.PastDays > 0 {
		url += fmt.Sprintf("&past_days=%d", params.PastDays)
	}

	if params.ForecastDays >= 0 {
		url += fmt.Sprintf("&forecast_days=%d", params.ForecastDays)
	}

	if len(params.HourlyFields) > 0 {
		url += "&hourly=" + strings.Join(params.HourlyFields, ",")
	}

	return url
}

// GetHourly fetches the hourly fields for the given coordinates
func (c *OpenMeteoClient) GetHourly(ctx context.Context, params HourlyParams) (*HourlyData, error) {
	if len(params.HourlyFields) == 0 {
		return nil, fmt.Errorf("GetHourly: no weather fields provided")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BuildURL(params), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch hourly data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Timezone string                     `json:"timezone"`
		Hourly   map[string]json.RawMessage `json:"hourly"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return parseHourly(payload.Timezone, payload.Hourly, params.HourlyFields)
}

func parseHourly(tz string, hourly map[string]json.RawMessage, fields []string) (*HourlyData, error) {
	var stamps []string
	if err := json.Unmarshal(hourly["time"], &stamps); err != nil {
		return nil, fmt.Errorf("failed to decode hourly time: %w", err)
	}

	data := &HourlyData{
		Timezone: tz,
		Time:     make([]time.Time, len(stamps)),
		Fields:   make(map[string][]*float64, len(fields)),
	}
	for i, s := range stamps {
		t, err := time.Parse(hourlyLayout, s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %s: %w", s, err)
		}
		data.Time[i] = t
	}

	for _, field := range fields {
		raw, ok := hourly[field]
		if !ok {
			return nil, fmt.Errorf("field %s missing from response", field)
		}
		var values []*float64
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", field, err)
		}
		if len(values) != len(stamps) {
			return nil, fmt.Errorf("%s has %d values but %d timestamps", field, len(values), len(stamps))
		}
		data.Fields[field] = values
	}

	return data, nil
}

// Readings returns the non-null values of field as raw readings. Hours
// after now are dropped so only observed values are imported.
func (d *HourlyData) Readings(field string, now time.Time) []models.RawReading {
	values := d.Fields[field]
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), 0, 0, time.UTC)

	var out []models.RawReading
	for i, v := range values {
		if v == nil || d.Time[i].After(cutoff) {
			continue
		}
		out = append(out, models.RawReading{Timestamp: d.Time[i], Value: *v})
	}
	return out
}
