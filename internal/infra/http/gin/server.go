package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"voltpay/internal/infra/config"
	"voltpay/internal/infra/obs"
)

type PaymentHTTP interface {
	PlaceHold(c *gin.Context)
	Capture(c *gin.Context)
	Release(c *gin.Context)
	Status(c *gin.Context)
}

type SessionHTTP interface {
	Register(c *gin.Context)
	PaymentState(c *gin.Context)
}

type Handlers struct {
	Payments PaymentHTTP
	Sessions SessionHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Payments != nil {
		api.POST("/payments/holds", h.Payments.PlaceHold)
		api.GET("/payments/holds/:id", h.Payments.Status)
		api.POST("/payments/holds/:id/capture", h.Payments.Capture)
		api.POST("/payments/holds/:id/release", h.Payments.Release)
	}
	if h.Sessions != nil {
		api.POST("/sessions", h.Sessions.Register)
		api.GET("/sessions/:id/payment", h.Sessions.PaymentState)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
