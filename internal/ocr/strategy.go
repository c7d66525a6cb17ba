// internal/ocr/strategy.go
package ocr

import (
	"math/rand"
	"sync"
	"time"

	"docverify/internal/common/config"
	"docverify/internal/common/metrics"
	"docverify/internal/models"
)

// StrategySelector picks the extraction mode for each analysis request.
// In experiment mode a uniform draw in [0, 100) partitions traffic:
// draws below QueriesPercent go to queries, the next CoordinatePercent
// points go to coordinate, and the remainder falls through to hybrid.
// Percentages are taken as configured; a pair summing past 100 simply
// starves the hybrid bucket rather than failing startup.
type StrategySelector struct {
	cfg  config.OCRConfig
	draw func() float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewStrategySelector builds a selector seeded from the clock.
func NewStrategySelector(cfg config.OCRConfig) *StrategySelector {
	s := &StrategySelector{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.draw = s.randomDraw
	return s
}

// NewStrategySelectorWithDraw builds a selector with an injected draw
// function. Tests use it to pin the experiment outcome.
func NewStrategySelectorWithDraw(cfg config.OCRConfig, draw func() float64) *StrategySelector {
	return &StrategySelector{cfg: cfg, draw: draw}
}

func (s *StrategySelector) randomDraw() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() * 100
}

// ResolveMode returns the extraction mode for one request.
func (s *StrategySelector) ResolveMode() string {
	if !s.cfg.Experiment.Enabled {
		metrics.OCRModeSelected.WithLabelValues(s.cfg.Mode, "configured").Inc()
		return s.cfg.Mode
	}

	r := s.draw()
	mode := models.ExtractionModeHybrid
	switch {
	case r < float64(s.cfg.Experiment.QueriesPercent):
		mode = models.ExtractionModeQueries
	case r < float64(s.cfg.Experiment.QueriesPercent+s.cfg.Experiment.CoordinatePercent):
		mode = models.ExtractionModeCoordinate
	}
	metrics.OCRModeSelected.WithLabelValues(mode, "experiment").Inc()
	return mode
}
