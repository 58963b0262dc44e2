package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/config"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/database"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/invoice"
	kafkainfra "github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/kafka"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/logger"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/objectstore"
	redisinfra "github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/redis"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/security"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/telemetry"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository/memory"
	postgresrepo "github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository/postgres"
	redisrepo "github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository/redis"
	transportgrpc "github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/grpc"
	grpcinterceptors "github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/grpc/interceptors"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/handlers"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/middleware"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/routes"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/usecase"
)

const healthProbeInterval = 15 * time.Second

// documentStore is a store that can also run transactions.
type documentStore interface {
	port.DocumentStore
	port.TxRunner
}

type Application struct {
	cfg        *config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	pool       *pgxpool.Pool
	redis      *goredis.Client
	producer   *kafkainfra.Producer
	tracer     *telemetry.TracerProvider
	grpcServer *transportgrpc.Server
	grpcAddr   string
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.build(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *Application) build(ctx context.Context) error {
	cfg, log := a.cfg, a.logger
	registry := telemetry.NewRegistry()

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		a.tracer = tp
	}

	checks := map[string]handlers.Check{}

	var store documentStore
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
		if err != nil {
			return fmt.Errorf("init postgres: %w", err)
		}
		a.pool = pool
		store = postgresrepo.NewStore(pool, database.Schema(cfg.Postgres))
	default:
		log.Warn("using in-memory document store; data is lost on restart")
		store = memory.NewStore()
	}
	checks["store"] = store.Ping

	if cfg.Redis.Enabled {
		client, err := redisinfra.Dial(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		a.redis = client
		checks["redis"] = redisinfra.Probe(client)
	}

	seq, err := a.sequence(store)
	if err != nil {
		return err
	}

	repos := repository.NewRepositories(store, seq)
	if cfg.Store.EnsureIndex {
		if err := repos.EnsureCollections(ctx); err != nil {
			return fmt.Errorf("ensure collections: %w", err)
		}
	}
	switch counter := seq.(type) {
	case *postgresrepo.CounterSequence:
		if err := counter.Ensure(ctx); err != nil {
			return fmt.Errorf("init counter table: %w", err)
		}
	case *redisrepo.CounterSequence:
		if err := seedCounters(ctx, counter, store, repos.SequenceNames()); err != nil {
			return err
		}
	}

	var permissionCache port.PermissionCache
	if a.redis != nil {
		permissionCache = redisrepo.NewPermissionCache(a.redis, cfg.Redis.PermissionPrefix)
	}
	resolver := usecase.NewPermissionResolver(repos.Roles, repos.Users, permissionCache, cfg.Auth.PermissionCacheTTL, log)
	if cfg.Store.SeedRoles {
		if err := resolver.SeedRoles(ctx); err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
	}

	events := a.eventPublisher()

	var storage port.ObjectStorage = objectstore.Disabled{}
	if cfg.ObjectStorage.Enabled {
		minioStore, err := objectstore.NewMinIOStore(ctx, cfg.ObjectStorage, log)
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
		storage = minioStore
		checks["object_storage"] = minioStore.HealthCheck
	}

	hasher, err := security.NewArgon2Hasher(port.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return fmt.Errorf("configure argon2: %w", err)
	}

	keyProvider, err := security.NewKeyProvider(cfg.App.Env, cfg.JWT.KeyDirectory)
	if err != nil {
		return fmt.Errorf("init key provider: %w", err)
	}
	tokens, err := security.NewJWTManager(keyProvider, security.JWTOptions{
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.AccessTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("init jwt manager: %w", err)
	}

	exec, err := usecase.NewExecutor(log, registry)
	if err != nil {
		return fmt.Errorf("init executor: %w", err)
	}

	services := routes.ServiceSet{
		Auth:     usecase.NewAuthService(exec, repos.Users, resolver, hasher, security.NewPasswordPolicy(), tokens, events),
		Users:    usecase.NewUserService(exec, repos.Users, resolver, hasher),
		Vendors:  usecase.NewVendorService(exec, repos.Vendors, repos.Users, store, resolver),
		Products: usecase.NewProductService(exec, repos.Products, repos.Vendors, storage),
		Orders: usecase.NewOrderService(exec, usecase.OrderDeps{
			Orders:         repos.Orders,
			Payments:       repos.Payments,
			Products:       repos.Products,
			PaymentMethods: repos.PaymentMethods,
			Users:          repos.Users,
			Tx:             store,
			Events:         events,
			Invoices:       invoice.NewPDFRenderer(cfg.App.Name),
		}),
		Payments:       usecase.NewPaymentService(exec, repos.Payments, repos.Orders, store, events),
		Shipping:       usecase.NewShippingService(exec, repos.Shipping, repos.Orders, store, events),
		Roles:          usecase.NewRoleService(exec, repos.Roles, resolver, events),
		PaymentMethods: usecase.NewPaymentMethodService(exec, repos.PaymentMethods, store),
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	var rateLimiter *middleware.RateLimiter
	if a.redis != nil && cfg.RateLimit.Enabled {
		window := cfg.RateLimit.WindowDuration
		if window <= 0 {
			window = time.Minute
		}
		rateLimiter = middleware.NewRateLimiter(redisrepo.NewRateLimitRepository(a.redis, redisrepo.SlidingWindowConfig{
			KeyPrefix: cfg.Redis.RateLimitPrefix,
			TTL:       window * 2,
		}), log)
	} else if cfg.RateLimit.Enabled {
		log.Warn("rate limiting requires redis; limits are not enforced")
	}

	a.engine = routes.Register(routes.Dependencies{
		Config:        cfg,
		Logger:        log,
		Authenticator: middleware.NewAuthenticator(tokens, resolver, cfg.Auth.CookieName, log),
		RateLimiter:   rateLimiter,
		Metrics:       httpMetrics,
		Gatherer:      registry,
		Services:      services,
		Keys:          tokens,
		Checks:        checks,
	})

	if cfg.GRPC.Enabled {
		if err := a.buildGRPC(registry, checks); err != nil {
			return err
		}
	}

	return nil
}

func (a *Application) sequence(store documentStore) (port.Sequence, error) {
	switch a.cfg.Sequence.Driver {
	case config.SequenceDriverPostgres:
		pgStore, ok := store.(*postgresrepo.Store)
		if !ok {
			return nil, fmt.Errorf("sequence driver postgres requires the postgres store")
		}
		return postgresrepo.NewCounterSequence(pgStore), nil
	case config.SequenceDriverRedis:
		if a.redis == nil {
			return nil, fmt.Errorf("sequence driver redis requires redis")
		}
		return redisrepo.NewCounterSequence(a.redis, a.cfg.Redis.CounterPrefix), nil
	default:
		a.logger.Warn("count-derived sequence codes may collide under concurrent writes")
		return repository.NewCountSequence(store), nil
	}
}

// seedCounters lifts each Redis counter above the documents already stored so
// that a switch of sequence driver never reissues a code.
func seedCounters(ctx context.Context, counter *redisrepo.CounterSequence, store port.DocumentStore, names []string) error {
	for _, name := range names {
		n, err := store.Collection(name).CountDocuments(ctx, nil)
		if err != nil {
			return fmt.Errorf("count %s: %w", name, err)
		}
		if err := counter.Seed(ctx, name, n); err != nil {
			return fmt.Errorf("seed %s counter: %w", name, err)
		}
	}
	return nil
}

func (a *Application) eventPublisher() port.EventPublisher {
	cfg, log := a.cfg, a.logger
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka disabled, using stub publisher")
		return kafkainfra.NewStubPublisher(log)
	}

	producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(log)
	}
	a.producer = producer
	log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, cfg.App, log)
}

func (a *Application) buildGRPC(reg prometheus.Registerer, checks map[string]handlers.Check) error {
	metrics, err := grpcinterceptors.NewGRPCMetrics(grpcinterceptors.GRPCMetricsOptions{Registerer: reg})
	if err != nil {
		return fmt.Errorf("init grpc metrics: %w", err)
	}

	probes := make(map[string]transportgrpc.Check, len(checks))
	for name, check := range checks {
		probes[name] = transportgrpc.Check(check)
	}

	deps := transportgrpc.ServerDependencies{
		Logger:  a.logger,
		Metrics: metrics,
		Checks:  probes,
	}
	if a.tracer != nil {
		deps.TracerProvider = a.tracer.Provider()
		deps.Propagators = telemetry.Propagators()
	}

	a.grpcServer = transportgrpc.NewServer(deps)
	a.grpcAddr = fmt.Sprintf("%s:%d", a.cfg.GRPC.Host, a.cfg.GRPC.Port)
	return nil
}

func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	grpcErrCh := make(chan error, 1)
	if a.grpcServer != nil {
		lis, err := net.Listen("tcp", a.grpcAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		a.logger.Info("starting gRPC server", zap.String("address", a.grpcAddr))
		go func() {
			if err := a.grpcServer.Serve(ctx, lis, healthProbeInterval); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				a.logger.Error("gRPC server error", zap.Error(err))
				grpcErrCh <- fmt.Errorf("run grpc server: %w", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       orDefault(a.cfg.App.ReadTimeout, 30*time.Second),
		WriteTimeout:      orDefault(a.cfg.App.WriteTimeout, 30*time.Second),
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting commerce API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.String("store", a.cfg.Store.Driver),
		zap.String("sequence", a.cfg.Sequence.Driver),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErrCh:
	case runErr = <-grpcErrCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), orDefault(a.cfg.App.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if a.grpcServer != nil {
		a.grpcServer.Shutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown server: %w", err)
	}
	return runErr
}

// close releases every connection opened by build. It is safe on a partly built application.
func (a *Application) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			a.logger.Warn("shutdown tracer", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
