package photo

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/rand"
	"sync"
	"time"

	_ "golang.org/x/image/webp"
)

// Severity grades visible damage.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityNone   Severity = "none"
)

// Analysis describes an uploaded damage photo.
type Analysis struct {
	ImageQuality    string   `json:"image_quality"`
	Dimensions      string   `json:"dimensions"`
	FileSizeMB      float64  `json:"file_size_mb"`
	DamageDetected  bool     `json:"damage_detected"`
	DamageSeverity  Severity `json:"damage_severity"`
	ConfidenceScore float64  `json:"confidence_score"`
	AnalysisNotes   string   `json:"analysis_notes"`
	Recommendation  string   `json:"recommendation"`
}

type scenario struct {
	weight         float64
	damage         bool
	severity       Severity
	minConf        float64
	maxConf        float64
	notes          string
	recommendation string
}

var scenarios = []scenario{
	{0.4, true, SeverityHigh, 0.85, 0.95, "Clear visible damage detected - product significantly damaged", "immediate_refund"},
	{0.3, true, SeverityMedium, 0.75, 0.85, "Moderate damage visible - functionality may be affected", "replacement_or_refund"},
	{0.2, true, SeverityLow, 0.65, 0.80, "Minor damage detected - cosmetic issues visible", "replacement_preferred"},
	{0.1, false, SeverityNone, 0.70, 0.90, "No significant damage visible - product appears intact", "further_investigation"},
}

// Analyzer inspects photos. Damage detection is simulated by a weighted draw.
type Analyzer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewAnalyzer returns an analyzer drawing from rng, or a time-seeded source when nil.
func NewAnalyzer(rng *rand.Rand) *Analyzer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Analyzer{rng: rng}
}

// Analyze decodes the image header and attaches a simulated damage assessment.
func (a *Analyzer) Analyze(data []byte) (Analysis, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Analysis{}, fmt.Errorf("decode image: %w", err)
	}

	quality := "acceptable"
	if cfg.Width > 600 && cfg.Height > 600 {
		quality = "good"
	}

	s, conf := a.draw()
	return Analysis{
		ImageQuality:    quality,
		Dimensions:      fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		FileSizeMB:      round2(float64(len(data)) / (1024 * 1024)),
		DamageDetected:  s.damage,
		DamageSeverity:  s.severity,
		ConfidenceScore: conf,
		AnalysisNotes:   s.notes,
		Recommendation:  s.recommendation,
	}, nil
}

func (a *Analyzer) draw() (scenario, float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pick := a.rng.Float64()
	chosen := scenarios[len(scenarios)-1]
	cumulative := 0.0
	for _, s := range scenarios {
		cumulative += s.weight
		if pick < cumulative {
			chosen = s
			break
		}
	}
	conf := chosen.minConf + a.rng.Float64()*(chosen.maxConf-chosen.minConf)
	return chosen, round2(conf)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
