package handlers

import (
	"fmt"
	"reflect"
	"time"

	portssvc "github.com/SscSPs/ledgerbook/internal/core/ports/services"
	"github.com/SscSPs/ledgerbook/internal/middleware"
	"github.com/SscSPs/ledgerbook/internal/platform/config"
	"github.com/SscSPs/ledgerbook/internal/platform/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// db may be nil, in which case /health only reports liveness. /health and /metrics are public.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	db Pinger,
) error {
	registerDecimalValidation()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.MetricsMiddleware())

	health := &healthHandler{db: db}
	r.GET("/health", health.getHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	lim, err := middleware.NewLimiter(cfg.RateLimit)
	if err != nil {
		return err
	}

	setupAPIV1Routes(r, cfg, services, middleware.RateLimit(lim))
	return nil
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations.
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	rateLimit gin.HandlerFunc,
) {
	v1 := r.Group("/api/v1", rateLimit, middleware.AuthMiddleware(cfg.JWTSecret))

	RegisterAccountRoutes(v1, services.Account)
	RegisterJournalRoutes(v1, services.Journal)
}

// registerDecimalValidation lets numeric binding tags such as gte=0 apply to decimal amounts.
func registerDecimalValidation() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		panic(fmt.Sprintf("unexpected validator engine %T", binding.Validator.Engine()))
	}
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
}
