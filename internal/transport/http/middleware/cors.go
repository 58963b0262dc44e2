package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/config"
)

// CORS adds Cross-Origin Resource Sharing headers to responses. A "*" origin or an
// empty list allows every origin and disables credentials.
func CORS(settings config.CORSSettings) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader, TraceIDHeader},
		ExposeHeaders:    []string{RequestIDHeader, TraceIDHeader, "Content-Disposition", "Retry-After"},
		AllowCredentials: settings.AllowCredentials,
		MaxAge:           settings.MaxAge,
	}

	if len(settings.AllowedOrigins) == 0 || slices.Contains(settings.AllowedOrigins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = settings.AllowedOrigins
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 12 * time.Hour
	}

	return cors.New(cfg)
}
