package analytics

import (
	"context"
	"time"

	analyticsdomain "github.com/smallbiznis/quotient/internal/analytics/domain"
	"github.com/smallbiznis/quotient/internal/analytics/service"
	"github.com/smallbiznis/quotient/internal/config"
	historydomain "github.com/smallbiznis/quotient/internal/history/domain"
	obsmetrics "github.com/smallbiznis/quotient/internal/observability/metrics"
	"github.com/smallbiznis/quotient/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("analytics.engine",
	fx.Provide(ProvideAnalyzer),
	fx.Invoke(scheduleRefresh),
)

type Param struct {
	fx.In

	Log      *zap.Logger
	Provider historydomain.Provider
	Seed     seed.Result
}

// ProvideAnalyzer selects the analyzer variant once at startup: data-backed
// when the historical table has rows, otherwise the static-default profile
// set. Consumers only ever see the Analyzer contract.
func ProvideAnalyzer(p Param) (analyticsdomain.Analyzer, error) {
	rows, err := p.Provider.Transactions(context.Background())
	if err != nil || len(rows) == 0 {
		if err != nil {
			p.Log.Warn("historical data unavailable, using static analyzer", zap.Error(err))
		} else {
			p.Log.Info("historical table empty, using static analyzer")
		}
		return service.NewStatic(p.Log), nil
	}

	engine := service.NewEngineFromRows(p.Log, p.Provider, rows)
	return engine, nil
}

// scheduleRefresh rebuilds the snapshot in the background so historical
// rebuilds never sit on request latency.
func scheduleRefresh(lc fx.Lifecycle, cfg config.Config, analyzer analyticsdomain.Analyzer, metrics *obsmetrics.Metrics, log *zap.Logger) {
	engine, ok := analyzer.(*service.Engine)
	if !ok {
		return
	}

	interval := cfg.AnalyticsRefreshInterval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if err := engine.Refresh(context.Background()); err != nil {
							metrics.RecordAnalyzerRefresh("error")
							log.Warn("scheduled analytics refresh failed", zap.Error(err))
						} else {
							metrics.RecordAnalyzerRefresh("ok")
						}
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			close(done)
			return nil
		},
	})
}
