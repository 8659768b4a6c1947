package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/CyberGuardHQ/cyberguard/pkg/config"
	"github.com/CyberGuardHQ/cyberguard/pkg/features"
	"github.com/CyberGuardHQ/cyberguard/pkg/httputil"
	"github.com/CyberGuardHQ/cyberguard/pkg/ml"
	"github.com/CyberGuardHQ/cyberguard/pkg/store"
)

// Stage identifies where a request currently is inside the pipeline.
// Transitions are strictly forward; Failed is reachable only from Received,
// because once extraction starts every later step degrades instead of
// failing.
type Stage string

const (
	StageReceived    Stage = "received"
	StageExtracting  Stage = "extracting"
	StageClassifying Stage = "classifying"
	StageScoring     Stage = "scoring"
	StageAttributing Stage = "attributing"
	StageComplete    Stage = "complete"
	StageFailed      Stage = "failed"
)

// ErrInvalidURL marks submissions rejected before any analysis happened.
// Handlers map it to a client error rather than a server error.
var ErrInvalidURL = errors.New("invalid url")

// Result is one completed analysis. Immutable after creation.
type Result struct {
	ID             string      `json:"id"`
	URL            string      `json:"url"`
	Prediction     string      `json:"prediction"`
	Confidence     float64     `json:"confidence"`
	RiskScore      int         `json:"risk_score"`
	Severity       ml.Severity `json:"severity"`
	ThreatType     string      `json:"threat_type,omitempty"`
	Degraded       bool        `json:"degraded"`
	ModelVersion   string      `json:"model_version"`
	ResponseTimeMs int         `json:"response_time_ms"`
	Timestamp      time.Time   `json:"timestamp"`
	Scores         ml.Scores   `json:"scores"`
}

// Pipeline wires extraction, classification, scoring, and attribution into
// one Analyze call, and emits each result to the store off the request
// path. Safe for concurrent use; requests share nothing but the live model
// and the store.
type Pipeline struct {
	cfg       *config.Config
	registry  *ml.Registry
	store     store.Store
	extractor *features.Extractor
	emitSem   *httputil.Semaphore
	now       func() time.Time // test hook
}

// New assembles a pipeline. store may be nil, in which case results are
// returned but not persisted.
func New(cfg *config.Config, registry *ml.Registry, st store.Store, extractor *features.Extractor) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		registry:  registry,
		store:     st,
		extractor: extractor,
		emitSem:   httputil.NewSemaphore(cfg.EmitConcurrency),
		now:       time.Now,
	}
}

// Analyze runs the full pipeline for one raw URL under the configured
// request budget. Probes that miss the budget leave sentinel features; the
// verdict is still produced, flagged degraded. A panic anywhere inside the
// stages surfaces as an error, never as a crashed request.
func (p *Pipeline) Analyze(ctx context.Context, rawURL string) (result *Result, err error) {
	stage := StageReceived
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("analysis panicked at stage %s: %v", stage, r)
			log.Printf("[PIPELINE] PANIC stage=%s url=%q: %v", stage, rawURL, r)
		}
	}()

	start := p.now()

	u, err := features.NormalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestBudget)
	defer cancel()

	stage = StageExtracting
	vec := p.extractor.Extract(ctx, u)

	stage = StageClassifying
	model := p.registry.Current()
	scores := model.Predict(vec)

	prediction := store.PredictionLegitimate
	confidence := 1 - scores.Calibrated
	if scores.Calibrated >= p.cfg.PhishingThreshold {
		prediction = store.PredictionPhishing
		confidence = scores.Calibrated
	}

	stage = StageScoring
	risk := ml.RiskScore(scores.Calibrated, vec)

	stage = StageAttributing
	threat := ""
	if prediction == store.PredictionPhishing {
		threat = ml.ClassifyThreat(u.String(), vec, confidence, p.cfg.AttributionThreshold)
	}

	stage = StageComplete
	result = &Result{
		ID:             uuid.NewString(),
		URL:            u.String(),
		Prediction:     prediction,
		Confidence:     roundConfidence(confidence),
		RiskScore:      risk,
		Severity:       ml.SeverityFor(risk),
		ThreatType:     threat,
		Degraded:       vec.Degraded,
		ModelVersion:   model.Version(),
		ResponseTimeMs: int(p.now().Sub(start).Milliseconds()),
		Timestamp:      start.UTC(),
		Scores:         scores,
	}

	p.emit(result)
	return result, nil
}

// emit persists the result off the request path. The semaphore bounds
// concurrent writers; under store backpressure records are dropped and
// counted rather than queued against the latency budget.
func (p *Pipeline) emit(result *Result) {
	if p.store == nil {
		return
	}
	if !p.emitSem.TryAcquire() {
		log.Printf("[PIPELINE] WARN store emission dropped (writers saturated, %d dropped so far)",
			p.emitSem.DroppedCount())
		return
	}
	rec := &store.AnalysisRecord{
		ID:             result.ID,
		URL:            result.URL,
		Prediction:     result.Prediction,
		Confidence:     result.Confidence,
		RiskScore:      result.RiskScore,
		Severity:       string(result.Severity),
		ThreatType:     result.ThreatType,
		ResponseTimeMs: result.ResponseTimeMs,
		CreatedAt:      result.Timestamp,
	}
	go func() {
		defer p.emitSem.Release()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := p.store.Insert(ctx, rec); err != nil {
			log.Printf("[PIPELINE] WARN store insert failed: %v", err)
		}
	}()
}

// DroppedEmissions reports how many results were not persisted because the
// emission pool was saturated.
func (p *Pipeline) DroppedEmissions() int64 {
	return p.emitSem.DroppedCount()
}

func roundConfidence(c float64) float64 {
	return math.Round(c*10000) / 10000
}
