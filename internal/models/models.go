package models

import "time"

// Variable names used across config, CSV files and metrics
const (
	Rainfall  = "rainfall"
	WindSpeed = "windspeed"
)

// RawReading is a single (possibly sub-daily) row from a history CSV
type RawReading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// DailyReading is one aggregated value per calendar day
type DailyReading struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ForecastPoint is one forecast value for a future calendar day
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// JoinedDay pairs the rainfall and wind forecast for the same date
type JoinedDay struct {
	Date      time.Time `json:"date"`
	Rainfall  float64   `json:"rainfall"`
	WindSpeed float64   `json:"wind_speed"`
}

// JoinedForecast is the inner join of both forecasts split into the
// short-term (first week) and long-term windows
type JoinedForecast struct {
	ShortTerm []JoinedDay `json:"short_term"`
	LongTerm  []JoinedDay `json:"long_term"`
}

// Days returns the short-term and long-term days in date order
func (j JoinedForecast) Days() []JoinedDay {
	days := make([]JoinedDay, 0, len(j.ShortTerm)+len(j.LongTerm))
	days = append(days, j.ShortTerm...)
	return append(days, j.LongTerm...)
}

// Severity of the overall advisory status
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Status is the overall banner derived from the long-term window
type Status struct {
	Code     string   `json:"code"` // "very_wet", "very_dry", "very_windy", "normal"
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
}

// Recommendation is one advisory line. Code identifies the rule that fired.
type Recommendation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Advice holds the short- and long-term recommendations of one category
type Advice struct {
	ShortTerm []Recommendation `json:"short_term"`
	LongTerm  []Recommendation `json:"long_term"`
}

// Insight is the advisory produced from a joined forecast.
// Tani covers farming, Ternak covers livestock.
type Insight struct {
	Tani              Advice    `json:"tani"`
	Ternak            Advice    `json:"ternak"`
	Status            Status    `json:"status"`
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
	LongTermRainTotal float64   `json:"long_term_rain_total"`
	LongTermWindyDays int       `json:"long_term_windy_days"`
}

// ChartPoint is one (date, value) pair of a chart series
type ChartPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Chart carries the data needed to draw one variable's history and forecast
type Chart struct {
	Title     string       `json:"title"`
	Unit      string       `json:"unit"`
	Color     string       `json:"color"`
	History   []ChartPoint `json:"history"`
	Forecast  []ChartPoint `json:"forecast"`
	Threshold *float64     `json:"threshold,omitempty"`
}

// Panel is everything shown for a single variable
type Panel struct {
	Variable  string          `json:"variable"`
	Title     string          `json:"title"`
	Unit      string          `json:"unit"`
	Provider  string          `json:"provider"`
	LastDate  time.Time       `json:"last_date"`
	LastValue float64         `json:"last_value"`
	Chart     Chart           `json:"chart"`
	Forecast  []ForecastPoint `json:"forecast"`
	Warning   string          `json:"warning,omitempty"`
}

// Dashboard is the result of a single page build
type Dashboard struct {
	Site        string           `json:"site"`
	GeneratedAt time.Time        `json:"generated_at"`
	Panels      map[string]Panel `json:"panels"`
	Insight     *Insight         `json:"insight,omitempty"`
	Notices     []string         `json:"notices,omitempty"`
}

// AdvisoryRecord is a stored advisory row
type AdvisoryRecord struct {
	ID          int64     `json:"id"`
	Site        string    `json:"site"`
	GeneratedAt time.Time `json:"generated_at"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Status      string    `json:"status"`
	Severity    string    `json:"severity"`
	Insight     Insight   `json:"insight"`
}
