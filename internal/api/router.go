package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/sentinel/internal/actions"
	"github.com/your-org/sentinel/internal/alerts"
	"github.com/your-org/sentinel/internal/api/handlers"
	"github.com/your-org/sentinel/internal/api/ws"
	"github.com/your-org/sentinel/internal/auth"
	"github.com/your-org/sentinel/internal/reports"
)

type RouterConfig struct {
	APIKey   string
	Verifier *auth.TokenVerifier

	Store      *alerts.Store
	Dispatcher *actions.Dispatcher
	Reports    *reports.Service
	Hub        *ws.Hub

	Backend handlers.Pinger
	Login   handlers.LoginFunc
	// Clips and ClipsPinger are nil when clip storage is not configured.
	Clips       handlers.ClipPresigner
	ClipsPinger handlers.Pinger

	PushConnected func() bool
	Hydrated      func() bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.New(corsConfig()))

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Backend, cfg.ClipsPinger, cfg.PushConnected, cfg.Hydrated)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authH := handlers.NewAuthHandler(cfg.Login)
	r.POST("/v1/auth/login", authH.Login)

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.Middleware(cfg.APIKey, cfg.Verifier))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Alerts
	alertH := handlers.NewAlertHandler(cfg.Store, cfg.Dispatcher, cfg.Clips)
	v1.GET("/alerts", alertH.List)
	v1.GET("/alerts/unseen", alertH.Unseen)
	v1.GET("/alerts/counts", alertH.Counts)
	v1.GET("/alerts/:id", alertH.Get)
	v1.GET("/alerts/:id/clip", alertH.Clip)
	v1.POST("/alerts/:id/seen", alertH.MarkSeen)
	v1.POST("/alerts/:id/false-positive", alertH.FalsePositive)
	v1.PUT("/alerts/:id/description", alertH.EditDescription)
	v1.DELETE("/alerts/:id", alertH.Delete)

	// Cameras
	cameraH := handlers.NewCameraHandler(cfg.Store)
	v1.GET("/cameras", cameraH.List)
	v1.GET("/cameras/:id", cameraH.Get)

	// Reports
	reportH := handlers.NewReportHandler(cfg.Reports)
	v1.GET("/reports/summary", reportH.Summary)
	v1.GET("/reports/pdf", reportH.PDF)

	return r
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "X-API-Key")
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	return cfg
}
