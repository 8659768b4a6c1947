package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_records (
	id               UUID PRIMARY KEY,
	url              TEXT NOT NULL,
	prediction       TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL,
	risk_score       INTEGER NOT NULL,
	severity         TEXT NOT NULL,
	threat_type      TEXT NOT NULL DEFAULT '',
	response_time_ms INTEGER NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_analysis_created ON analysis_records (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analysis_prediction ON analysis_records (prediction, created_at DESC);
`

// PostgresStore persists records in PostgreSQL via a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, verifies connectivity, and ensures the
// schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Insert(ctx context.Context, rec *AnalysisRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO analysis_records
			(id, url, prediction, confidence, risk_score, severity, threat_type, response_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.URL, rec.Prediction, rec.Confidence, rec.RiskScore,
		rec.Severity, rec.ThreatType, rec.ResponseTimeMs, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (p *PostgresStore) RecentThreats(ctx context.Context, limit int) ([]AnalysisRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, url, prediction, confidence, risk_score, severity, threat_type, response_time_ms, created_at
		FROM analysis_records
		WHERE prediction = $1
		ORDER BY created_at DESC
		LIMIT $2`, PredictionPhishing, limit)
	if err != nil {
		return nil, fmt.Errorf("query threats: %w", err)
	}
	return scanRecords(rows)
}

func (p *PostgresStore) RecentLogs(ctx context.Context, limit int) ([]AnalysisRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, url, prediction, confidence, risk_score, severity, threat_type, response_time_ms, created_at
		FROM analysis_records
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]AnalysisRecord, error) {
	defer rows.Close()
	var out []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.Prediction, &rec.Confidence,
			&rec.RiskScore, &rec.Severity, &rec.ThreatType, &rec.ResponseTimeMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ThreatBreakdown: map[string]float64{}}

	err := p.pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE prediction = $1),
			coalesce(avg(response_time_ms), 0),
			count(*) FILTER (WHERE created_at >= date_trunc('day', now() AT TIME ZONE 'UTC'))
		FROM analysis_records`, PredictionPhishing).
		Scan(&stats.TotalAnalyzed, &stats.PhishingDetected, &stats.AvgResponseTimeMs, &stats.TodayCount)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}

	if stats.PhishingDetected == 0 {
		return stats, nil
	}

	rows, err := p.pool.Query(ctx, `
		SELECT threat_type, count(*)
		FROM analysis_records
		WHERE prediction = $1 AND threat_type <> ''
		GROUP BY threat_type`, PredictionPhishing)
	if err != nil {
		return nil, fmt.Errorf("threat breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var threat string
		var count int64
		if err := rows.Scan(&threat, &count); err != nil {
			return nil, fmt.Errorf("scan breakdown: %w", err)
		}
		stats.ThreatBreakdown[threat] = float64(count) / float64(stats.PhishingDetected)
	}
	return stats, rows.Err()
}

// Close drains the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}
