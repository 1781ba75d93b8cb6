package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/quotient/internal/analytics"
	analyticsdomain "github.com/smallbiznis/quotient/internal/analytics/domain"
	"github.com/smallbiznis/quotient/internal/catalog"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/internal/clock"
	"github.com/smallbiznis/quotient/internal/config"
	"github.com/smallbiznis/quotient/internal/history"
	"github.com/smallbiznis/quotient/internal/invoice"
	invoicedomain "github.com/smallbiznis/quotient/internal/invoice/domain"
	"github.com/smallbiznis/quotient/internal/observability"
	obsmiddleware "github.com/smallbiznis/quotient/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/quotient/internal/observability/metrics"
	"github.com/smallbiznis/quotient/internal/pricing"
	pricingdomain "github.com/smallbiznis/quotient/internal/pricing/domain"
	"github.com/smallbiznis/quotient/internal/seed"
	"github.com/smallbiznis/quotient/internal/shipping"
	shippingdomain "github.com/smallbiznis/quotient/internal/shipping/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	fx.Provide(registerGin),
	seed.Module,
	history.Module,
	analytics.Module,
	catalog.Module,
	pricing.Module,
	shipping.Module,
	invoice.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.registerAPIRoutes() }),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	catalogSvc  catalogdomain.Service
	pricingSvc  pricingdomain.Service
	shippingSvc shippingdomain.Service
	invoiceSvc  invoicedomain.Service
	analyzer    analyticsdomain.Analyzer
	metrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	CatalogSvc  catalogdomain.Service
	PricingSvc  pricingdomain.Service
	ShippingSvc shippingdomain.Service
	InvoiceSvc  invoicedomain.Service
	Analyzer    analyticsdomain.Analyzer
	Metrics     *obsmetrics.Metrics
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("server"),
		catalogSvc:  p.CatalogSvc,
		pricingSvc:  p.PricingSvc,
		shippingSvc: p.ShippingSvc,
		invoiceSvc:  p.InvoiceSvc,
		analyzer:    p.Analyzer,
		metrics:     p.Metrics,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Pricing --------
	api.POST("/pricing/recommendations", s.GetRecommendations)
	api.POST("/pricing/optimize", s.OptimizePrice)
	api.POST("/pricing/price-elasticity", s.CalculateElasticity)
	api.POST("/pricing/margin-analysis", s.AnalyzeMargins)
	api.GET("/pricing/customer-segments", s.ListCustomerSegments)

	// -------- Shipping --------
	api.POST("/shipping/estimate", s.EstimateShipping)
	api.POST("/shipping/weight-inference", s.InferWeights)
	api.POST("/shipping/optimize-sourcing", s.OptimizeSourcing)
	api.GET("/shipping/carriers", s.ListCarriers)

	// -------- Invoices --------
	api.POST("/invoices/generate", s.GenerateInvoice)
	api.POST("/invoices/calculate-tariffs", s.CalculateTariffs)
	api.POST("/invoices/apply-promotions", s.ApplyPromotions)
	api.GET("/invoices/template/:segment", s.GetInvoiceTemplate)

	// -------- Products --------
	api.GET("/products", s.ListProducts)
	api.GET("/products/search", s.SearchProducts)
	api.GET("/products/categories", s.ListCategories)
	api.GET("/products/:sku", s.GetProductBySKU)
}
