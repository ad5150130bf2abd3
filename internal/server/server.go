package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	analyticsdomain "github.com/yabtel/telemetria/internal/analytics/domain"
	"github.com/yabtel/telemetria/internal/config"
	mergedomain "github.com/yabtel/telemetria/internal/merge/domain"
	"github.com/yabtel/telemetria/internal/observability"
	obslogger "github.com/yabtel/telemetria/internal/observability/logger"
	obsmetrics "github.com/yabtel/telemetria/internal/observability/metrics"
	obstracing "github.com/yabtel/telemetria/internal/observability/tracing"
	telemetrydomain "github.com/yabtel/telemetria/internal/telemetry/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, m *obsmetrics.Metrics, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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
	engine       *gin.Engine
	cfg          config.Config
	telemetrySvc telemetrydomain.Service
	mergeSvc     mergedomain.Service
	analyticsSvc analyticsdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	TelemetrySvc telemetrydomain.Service
	MergeSvc     mergedomain.Service
	AnalyticsSvc analyticsdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		telemetrySvc: p.TelemetrySvc,
		mergeSvc:     p.MergeSvc,
		analyticsSvc: p.AnalyticsSvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.engine

	r.POST("/test/", s.fetchTelemetry)

	r.POST("/dataTelemetria/", s.intakeBatch)
	r.GET("/dataTelemetria/", s.maxRecordID)

	mergeRoutes := map[string]mergedomain.Type{
		"/ott/":         mergedomain.TypeOTT,
		"/dvb/":         mergedomain.TypeDVB,
		"/stopcatchup/": mergedomain.TypeStopCatchup,
		"/endcatchup/":  mergedomain.TypeEndCatchup,
		"/stopvod/":     mergedomain.TypeStopVOD,
		"/endvod/":      mergedomain.TypeEndVOD,
	}
	for path, mergeType := range mergeRoutes {
		r.POST(path, s.runMerge(mergeType))
		r.GET(path, s.listMerged(mergeType))
	}

	r.GET("/home/:days/", s.home)
}
