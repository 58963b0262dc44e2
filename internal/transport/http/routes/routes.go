package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/config"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/logger"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/handlers"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/middleware"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
)

// ServiceSet groups the use cases the HTTP layer depends on. Nil members leave
// their routes unregistered.
type ServiceSet struct {
	Auth           handlers.AuthUseCases
	Users          handlers.UserUseCases
	Vendors        handlers.VendorUseCases
	Products       handlers.ProductUseCases
	Orders         handlers.OrderUseCases
	Payments       handlers.PaymentUseCases
	Shipping       handlers.ShippingUseCases
	Roles          handlers.RoleUseCases
	PaymentMethods handlers.PaymentMethodUseCases
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config        *config.AppConfig
	Logger        *zap.Logger
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Metrics       *middleware.HTTPMetrics
	Gatherer      prometheus.Gatherer
	Services      ServiceSet
	Keys          handlers.KeySet
	Checks        map[string]handlers.Check
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Correlate())
	r.Use(recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(deps.Metrics.Handler())
	r.Use(middleware.CORS(cfg.CORS))

	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, domain.Failure{Kind: domain.KindNotFound, Message: "route not found"})
	})

	health := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", health.Status)
	r.GET("/readyz", health.Ready)
	r.GET("/.well-known/jwks.json", handlers.NewJWKSHandler(deps.Keys).Keys)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api/v1")
	if deps.Authenticator != nil {
		api.Use(deps.Authenticator.Authenticate())
	}

	svc := deps.Services
	limits := buildLimits(deps)

	if svc.Auth != nil {
		cookie := handlers.CookieSettings{Name: cfg.Auth.CookieName, Secure: cfg.App.Env == "production"}
		handlers.NewAuthHandler(svc.Auth, cookie).RegisterRoutes(api.Group("/auth"), handlers.AuthLimits{
			Register: limits.register,
			Login:    limits.login,
		})
	}
	if svc.Users != nil {
		handlers.NewUserHandler(svc.Users).RegisterRoutes(api.Group("/users"))
	}
	if svc.Vendors != nil {
		handlers.NewVendorHandler(svc.Vendors).RegisterRoutes(api.Group("/vendors"))
	}
	if svc.Products != nil {
		handlers.NewProductHandler(svc.Products).RegisterRoutes(api.Group("/products"))
	}
	if svc.Orders != nil {
		handlers.NewOrderHandler(svc.Orders).RegisterRoutes(api.Group("/orders"), limits.checkout)
	}
	if svc.Payments != nil {
		handlers.NewPaymentHandler(svc.Payments).RegisterRoutes(api.Group("/payments"))
	}
	if svc.Shipping != nil {
		handlers.NewShippingHandler(svc.Shipping).RegisterRoutes(api.Group("/shipping"))
	}
	if svc.Roles != nil {
		handlers.NewRoleHandler(svc.Roles).RegisterRoutes(api.Group("/roles"))
	}
	if svc.PaymentMethods != nil {
		handlers.NewPaymentMethodHandler(svc.PaymentMethods).RegisterRoutes(api.Group("/payment-methods"))
	}

	return r
}

// recovery turns panics into a 502 failure envelope.
func recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Enrich(c.Request.Context(), log).Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		response.Fail(c, domain.Failure{
			Kind:    domain.KindInternal,
			Message: "unexpected server error",
			Status:  http.StatusBadGateway,
		})
	})
}

type rateLimits struct {
	register gin.HandlerFunc
	login    gin.HandlerFunc
	checkout gin.HandlerFunc
}

func buildLimits(deps Dependencies) rateLimits {
	if deps.RateLimiter == nil || deps.Config == nil || !deps.Config.RateLimit.Enabled {
		return rateLimits{}
	}

	settings := deps.Config.RateLimit
	window := settings.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := func(name string, limit int, id middleware.IdentifierFunc, charge middleware.Charge) gin.HandlerFunc {
		if limit <= 0 {
			return nil
		}
		return deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:       name,
			Limit:      limit,
			Window:     window,
			Identifier: id,
			Charge:     charge,
		})
	}

	return rateLimits{
		register: rule("auth_register_ip", settings.RegisterMaxAttempts, middleware.ClientIPIdentifier(), middleware.ChargeEvery),
		login:    rule("auth_login_ip", settings.LoginMaxAttempts, middleware.ClientIPIdentifier(), middleware.ChargeFailures),
		checkout: rule("checkout_user", settings.CheckoutMaxAttempts, middleware.UserIdentifier(), middleware.ChargeEvery),
	}
}
