package store

import (
	"context"
	"time"
)

// Prediction labels persisted with each record.
const (
	PredictionPhishing   = "Phishing"
	PredictionLegitimate = "Legitimate"
)

// AnalysisRecord is one completed URL analysis as persisted for the stats
// and history endpoints. ThreatType is empty for legitimate verdicts.
type AnalysisRecord struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	Prediction     string    `json:"prediction"`
	Confidence     float64   `json:"confidence"`
	RiskScore      int       `json:"risk_score"`
	Severity       string    `json:"severity"`
	ThreatType     string    `json:"threat_type,omitempty"`
	ResponseTimeMs int       `json:"response_time_ms"`
	CreatedAt      time.Time `json:"timestamp"`
}

// Stats aggregates the analysis history. ThreatBreakdown maps each threat
// type to its fraction of phishing detections, so the values sum to ~1
// when anything was detected. DetectionAccuracy is filled in by the caller
// from the live model's training metrics, not from the history.
type Stats struct {
	TotalAnalyzed     int64              `json:"total_analyzed"`
	PhishingDetected  int64              `json:"phishing_detected"`
	DetectionAccuracy float64            `json:"detection_accuracy"`
	AvgResponseTimeMs float64            `json:"avg_response_time_ms"`
	TodayCount        int64              `json:"today_count"`
	ThreatBreakdown   map[string]float64 `json:"threat_breakdown"`
}

// Store persists analysis records. Implementations must be safe for
// concurrent use; the pipeline writes from many requests at once.
type Store interface {
	// Insert persists one record.
	Insert(ctx context.Context, rec *AnalysisRecord) error

	// RecentThreats returns up to limit phishing records, newest first.
	RecentThreats(ctx context.Context, limit int) ([]AnalysisRecord, error)

	// RecentLogs returns up to limit records of any verdict, newest first.
	RecentLogs(ctx context.Context, limit int) ([]AnalysisRecord, error)

	// Stats aggregates the stored history. DetectionAccuracy is left zero.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases backing resources.
	Close()
}
