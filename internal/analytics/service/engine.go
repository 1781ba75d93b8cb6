package service

import (
	"context"
	"math"
	"sync/atomic"

	analyticsdomain "github.com/smallbiznis/quotient/internal/analytics/domain"
	historydomain "github.com/smallbiznis/quotient/internal/history/domain"
	"go.uber.org/zap"
)

// snapshot holds every derived profile for one historical-table read. It is
// built fully, then published; readers never observe a partial rebuild.
type snapshot struct {
	segments    map[string]analyticsdomain.SegmentProfile
	elasticity  map[string]analyticsdomain.ElasticityModel
	seasonality analyticsdomain.SeasonalityProfile
	promotions  analyticsdomain.PromotionalImpact
	skuCounts   map[string]int
}

// Engine is the data-backed analyzer. Refresh swaps in a freshly built
// snapshot atomically; concurrent readers keep the previous one until the
// swap completes.
type Engine struct {
	log      *zap.Logger
	provider historydomain.Provider
	current  atomic.Pointer[snapshot]
}

func NewEngine(log *zap.Logger, provider historydomain.Provider) *Engine {
	e := &Engine{log: log.Named("analytics.engine"), provider: provider}
	e.current.Store(emptySnapshot())
	return e
}

// NewEngineFromRows builds the first snapshot from rows already in hand,
// avoiding a second provider read during startup selection.
func NewEngineFromRows(log *zap.Logger, provider historydomain.Provider, rows []historydomain.Transaction) *Engine {
	e := NewEngine(log, provider)
	e.current.Store(buildSnapshot(e.log, rows))
	return e
}

// Refresh rebuilds every profile from one provider call. A provider failure
// keeps the previous snapshot in place; sub-analysis failures degrade to the
// documented fallbacks instead of propagating.
func (e *Engine) Refresh(ctx context.Context) error {
	rows, err := e.provider.Transactions(ctx)
	if err != nil {
		e.log.Warn("historical refresh failed, keeping previous snapshot", zap.Error(err))
		return err
	}

	e.current.Store(buildSnapshot(e.log, rows))
	e.log.Info("analytics snapshot refreshed",
		zap.Int("transactions", len(rows)),
		zap.Int("elasticity_models", len(e.current.Load().elasticity)),
	)
	return nil
}

func (e *Engine) SegmentProfiles() map[string]analyticsdomain.SegmentProfile {
	return e.current.Load().segments
}

func (e *Engine) Elasticity(sku string) (analyticsdomain.ElasticityModel, bool) {
	if model, ok := e.current.Load().elasticity[sku]; ok {
		return model, true
	}
	return analyticsdomain.DefaultElasticity(), false
}

func (e *Engine) Seasonality() analyticsdomain.SeasonalityProfile {
	return e.current.Load().seasonality
}

func (e *Engine) PromotionalImpact() analyticsdomain.PromotionalImpact {
	return e.current.Load().promotions
}

func (e *Engine) TransactionCount(sku string) int {
	return e.current.Load().skuCounts[sku]
}

func buildSnapshot(log *zap.Logger, rows []historydomain.Transaction) *snapshot {
	s := emptySnapshot()

	counts := make(map[string]int)
	for _, t := range rows {
		counts[t.SKU]++
	}
	s.skuCounts = counts

	// Each sub-analysis is independent: a numerical degeneracy in one must
	// not take down the others, so failures resolve to the static profile.
	recovering(log, "segmentation", func() { s.segments = segmentCustomers(rows) })
	recovering(log, "elasticity", func() { s.elasticity = modelElasticity(rows) })
	recovering(log, "seasonality", func() { s.seasonality = analyzeSeasonality(rows) })
	recovering(log, "promotions", func() { s.promotions = modelPromotionalImpact(rows) })
	return s
}

func recovering(log *zap.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("analysis failed, serving fallback", zap.String("analysis", name), zap.Any("panic", r))
		}
	}()
	fn()
}

func emptySnapshot() *snapshot {
	return &snapshot{
		segments:    fallbackSegmentProfiles(),
		elasticity:  map[string]analyticsdomain.ElasticityModel{},
		seasonality: fallbackSeasonality(),
		promotions:  fallbackPromotionalImpact(),
		skuCounts:   map[string]int{},
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
