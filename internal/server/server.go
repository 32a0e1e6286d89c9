package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	calendardomain "github.com/goghstudio/gogh-backend/internal/calendar/domain"
	"github.com/goghstudio/gogh-backend/internal/config"
	creditsdomain "github.com/goghstudio/gogh-backend/internal/credits/domain"
	generationdomain "github.com/goghstudio/gogh-backend/internal/generation/domain"
	"github.com/goghstudio/gogh-backend/internal/observability"
	obsmiddleware "github.com/goghstudio/gogh-backend/internal/observability/logger"
	obsmetrics "github.com/goghstudio/gogh-backend/internal/observability/metrics"
	obstracing "github.com/goghstudio/gogh-backend/internal/observability/tracing"
	profiledomain "github.com/goghstudio/gogh-backend/internal/profile/domain"
	"github.com/goghstudio/gogh-backend/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the shared middleware chain and
// operational endpoints. Route registration happens on the Server.
func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	log    *zap.Logger

	profileSvc    profiledomain.Service
	calendarSvc   calendardomain.Service
	creditsSvc    creditsdomain.Service
	generationSvc generationdomain.Service

	generateLimiter *ratelimit.GenerateLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin *gin.Engine
	Cfg config.Config
	DB  *gorm.DB
	Log *zap.Logger

	ProfileSvc    profiledomain.Service
	CalendarSvc   calendardomain.Service
	CreditsSvc    creditsdomain.Service
	GenerationSvc generationdomain.Service

	GenerateLimiter *ratelimit.GenerateLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("server"),
		profileSvc:      p.ProfileSvc,
		calendarSvc:     p.CalendarSvc,
		creditsSvc:      p.CreditsSvc,
		generationSvc:   p.GenerationSvc,
		generateLimiter: p.GenerateLimiter,
		obsMetrics:      p.ObsMetrics,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api", s.ErrorHandlingMiddleware(), s.AuthRequired())

	content := api.Group("/content")
	{
		content.POST("/generate", s.GenerateRateLimit(), s.GenerateContent)

		content.GET("/calendar", s.ListCalendarItems)
		content.POST("/calendar", s.CreateCalendarItem)
		content.GET("/calendar/:id", s.GetCalendarItem)

		content.GET("/profile", s.GetContentProfile)
		content.PUT("/profile", s.UpsertContentProfile)
	}

	api.GET("/credits/balance", s.GetCreditsBalance)
}

func run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Fatal("http server failed", zap.Error(err))
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
