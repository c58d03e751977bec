package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cuacadesa/internal/log"
	"cuacadesa/internal/metrics"
	"cuacadesa/internal/models"

	_ "github.com/go-sql-driver/mysql"
)

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema
// dsn format: "username:password@tcp(host:port)/dbname?parseTime=true"
func NewDB(dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	// MySQL doesn't support multiple statements in one Exec
	statements := []string{
		`CREATE TABLE IF NOT EXISTS advisories (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			site VARCHAR(255) NOT NULL,
			stream_id VARCHAR(64) NOT NULL DEFAULT '',
			generated_at DATETIME(6) NOT NULL,
			period_start DATE NOT NULL,
			period_end DATE NOT NULL,
			status VARCHAR(32) NOT NULL,
			severity VARCHAR(16) NOT NULL,
			rain_total DOUBLE NOT NULL,
			windy_days INT NOT NULL,
			insight JSON NOT NULL,
			INDEX idx_advisories_site_generated (site, generated_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS forecast_points (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			site VARCHAR(255) NOT NULL,
			variable VARCHAR(32) NOT NULL,
			provider VARCHAR(64) NOT NULL,
			fallback BOOLEAN NOT NULL DEFAULT FALSE,
			generated_at DATETIME(6) NOT NULL,
			date DATE NOT NULL,
			value DOUBLE NOT NULL,
			INDEX idx_forecast_points_lookup (site, variable, generated_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (db *DB) updateStats() {
	stats := db.conn.Stats()
	metrics.UpdateDBConnectionStats(stats.OpenConnections, stats.InUse, stats.Idle)
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// SaveAdvisory stores an advisory and returns its row id
func (db *DB) SaveAdvisory(rec *models.AdvisoryRecord, streamID string) (int64, error) {
	defer db.updateStats()
	return insertAdvisory(db.conn, rec, streamID)
}

func insertAdvisory(ex execer, rec *models.AdvisoryRecord, streamID string) (int64, error) {
	insight, err := json.Marshal(rec.Insight)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal insight: %w", err)
	}

	query := `INSERT INTO advisories (site, stream_id, generated_at, period_start, period_end, status, severity, rain_total, windy_days, insight)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	queryStart := time.Now()
	res, err := ex.Exec(query, rec.Site, streamID, rec.GeneratedAt, rec.PeriodStart, rec.PeriodEnd,
		rec.Status, rec.Severity, rec.Insight.LongTermRainTotal, rec.Insight.LongTermWindyDays, string(insight))
	metrics.RecordDBQuery("INSERT", "advisories", time.Since(queryStart), err)
	if err != nil {
		return 0, fmt.Errorf("failed to store advisory for %s: %w", rec.Site, err)
	}
	return res.LastInsertId()
}

// SaveForecast stores the forecast points of one variable in a single transaction
func (db *DB) SaveForecast(site, variable, provider string, fallback bool, generatedAt time.Time, points []models.ForecastPoint) error {
	if len(points) == 0 {
		return nil
	}
	defer db.updateStats()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if committed

	if err := insertForecast(tx, site, variable, provider, fallback, generatedAt, points); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debugf("Stored %d %s forecast points for %s", len(points), variable, site)
	return nil
}

func insertForecast(tx *sql.Tx, site, variable, provider string, fallback bool, generatedAt time.Time, points []models.ForecastPoint) error {
	stmt, err := tx.Prepare(`INSERT INTO forecast_points (site, variable, provider, fallback, generated_at, date, value) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	queryStart := time.Now()
	for _, p := range points {
		if _, err = stmt.Exec(site, variable, provider, fallback, generatedAt, p.Date, p.Value); err != nil {
			metrics.RecordDBQuery("INSERT", "forecast_points", time.Since(queryStart), err)
			return fmt.Errorf("failed to insert %s forecast for %s: %w", variable, p.Date.Format("2006-01-02"), err)
		}
	}
	metrics.RecordDBQuery("INSERT", "forecast_points", time.Since(queryStart), nil)
	return nil
}

// GetAdvisories retrieves the most recent advisories for a site
func (db *DB) GetAdvisories(site string, limit int) ([]models.AdvisoryRecord, error) {
	query := `SELECT id, site, generated_at, period_start, period_end, status, severity, insight
	          FROM advisories WHERE site = ? ORDER BY generated_at DESC LIMIT ?`
	queryStart := time.Now()
	rows, err := db.conn.Query(query, site, limit)
	metrics.RecordDBQuery("SELECT", "advisories", time.Since(queryStart), err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AdvisoryRecord
	for rows.Next() {
		var r models.AdvisoryRecord
		var insight []byte
		if err := rows.Scan(&r.ID, &r.Site, &r.GeneratedAt, &r.PeriodStart, &r.PeriodEnd, &r.Status, &r.Severity, &insight); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(insight, &r.Insight); err != nil {
			return nil, fmt.Errorf("failed to decode insight %d: %w", r.ID, err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
