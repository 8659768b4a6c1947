package store

import (
	"context"
	"sync"
	"time"
)

// DefaultMemoryCap bounds the in-memory history when no explicit cap is
// configured.
const DefaultMemoryCap = 1000

// MemoryStore is the fallback backend used when no database is configured:
// a bounded, newest-wins record buffer. History is lost on restart, which
// is acceptable for development and for degraded production operation.
type MemoryStore struct {
	mu      sync.RWMutex
	records []AnalysisRecord // oldest first
	cap     int
}

// NewMemoryStore creates a memory store holding at most cap records.
func NewMemoryStore(cap int) *MemoryStore {
	if cap <= 0 {
		cap = DefaultMemoryCap
	}
	return &MemoryStore{cap: cap}
}

// Insert appends rec, evicting the oldest record at capacity.
func (m *MemoryStore) Insert(_ context.Context, rec *AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) >= m.cap {
		copy(m.records, m.records[1:])
		m.records = m.records[:len(m.records)-1]
	}
	m.records = append(m.records, *rec)
	return nil
}

// RecentThreats returns up to limit phishing records, newest first.
func (m *MemoryStore) RecentThreats(_ context.Context, limit int) ([]AnalysisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AnalysisRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].Prediction == PredictionPhishing {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

// RecentLogs returns up to limit records, newest first.
func (m *MemoryStore) RecentLogs(_ context.Context, limit int) ([]AnalysisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AnalysisRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

// Stats aggregates over whatever the buffer currently holds.
func (m *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{ThreatBreakdown: map[string]float64{}}
	stats.TotalAnalyzed = int64(len(m.records))

	midnight := startOfToday()
	var responseSum int64
	threatCounts := map[string]int64{}

	for i := range m.records {
		rec := &m.records[i]
		responseSum += int64(rec.ResponseTimeMs)
		if !rec.CreatedAt.Before(midnight) {
			stats.TodayCount++
		}
		if rec.Prediction == PredictionPhishing {
			stats.PhishingDetected++
			if rec.ThreatType != "" {
				threatCounts[rec.ThreatType]++
			}
		}
	}

	if stats.TotalAnalyzed > 0 {
		stats.AvgResponseTimeMs = float64(responseSum) / float64(stats.TotalAnalyzed)
	}
	for threat, count := range threatCounts {
		stats.ThreatBreakdown[threat] = float64(count) / float64(stats.PhishingDetected)
	}
	return stats, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryStore) Close() {}

// Len reports the current record count.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func startOfToday() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
