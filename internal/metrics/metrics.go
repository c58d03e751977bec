package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	// DBQueriesTotal tracks the total number of database queries
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries executed",
		},
		[]string{"query_type", "table", "status"},
	)

	// DBQueryDuration tracks the duration of database queries
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of established connections both in use and idle",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of connections currently in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle connections",
		},
	)
)

// Forecast and advisory metrics
var (
	// ForecastRunsTotal counts provider runs per variable and outcome
	ForecastRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuacadesa_forecast_runs_total",
			Help: "Total number of forecast provider runs",
		},
		[]string{"variable", "provider", "status"},
	)

	ForecastDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cuacadesa_forecast_duration_seconds",
			Help:    "Duration of forecast provider runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"variable", "provider"},
	)

	// ForecastFallbacksTotal counts forecasts replaced by a flat fallback series
	ForecastFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuacadesa_forecast_fallbacks_total",
			Help: "Total number of forecasts replaced by the fallback series",
		},
		[]string{"variable", "mode"},
	)

	// AdvisoryStatus is 1 for the status of the latest advisory and 0 otherwise
	AdvisoryStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cuacadesa_advisory_status",
			Help: "Status of the latest advisory (1 = current)",
		},
		[]string{"status"},
	)

	AdvisoryLongTermRain = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cuacadesa_advisory_long_term_rain_mm",
			Help: "Total forecast rainfall over the long-term window of the latest advisory",
		},
	)

	AdvisoriesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuacadesa_advisories_published_total",
			Help: "Total number of advisories published to the stream",
		},
		[]string{"status"},
	)

	// ObservationsImportedTotal counts raw readings merged by the collector
	ObservationsImportedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuacadesa_observations_imported_total",
			Help: "Total number of raw observations imported",
		},
		[]string{"variable"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuacadesa_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cuacadesa_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

var (
	// AppInfo provides static information about the application
	AppInfo = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cuacadesa_app_info",
			Help: "Application information (always 1)",
		},
	)

	// AppStartTime records when the application started
	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cuacadesa_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

func init() {
	AppInfo.Set(1)
	AppStartTime.SetToCurrentTime()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordDBQuery records a database query execution
func RecordDBQuery(queryType, table string, duration time.Duration, err error) {
	DBQueriesTotal.WithLabelValues(queryType, table, status(err)).Inc()
	DBQueryDuration.WithLabelValues(queryType, table).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(open, inUse, idle int) {
	DBConnectionsOpen.Set(float64(open))
	DBConnectionsInUse.Set(float64(inUse))
	DBConnectionsIdle.Set(float64(idle))
}

// RecordForecast records one provider run
func RecordForecast(variable, provider string, duration time.Duration, err error) {
	ForecastRunsTotal.WithLabelValues(variable, provider, status(err)).Inc()
	ForecastDuration.WithLabelValues(variable, provider).Observe(duration.Seconds())
}

func RecordFallback(variable, mode string) {
	ForecastFallbacksTotal.WithLabelValues(variable, mode).Inc()
}

// SetAdvisoryStatus marks current as the latest status among all known codes
func SetAdvisoryStatus(current string, known []string, rainTotal float64) {
	for _, code := range known {
		AdvisoryStatus.WithLabelValues(code).Set(0)
	}
	AdvisoryStatus.WithLabelValues(current).Set(1)
	AdvisoryLongTermRain.Set(rainTotal)
}

func RecordPublish(err error) {
	AdvisoriesPublishedTotal.WithLabelValues(status(err)).Inc()
}

func RecordImport(variable string, n int) {
	ObservationsImportedTotal.WithLabelValues(variable).Add(float64(n))
}

// RecordHTTPRequest records a served request by its route pattern
func RecordHTTPRequest(route, method string, code int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
