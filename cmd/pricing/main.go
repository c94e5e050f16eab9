package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/client"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/messaging"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence"
	mysqlrepo "github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence/mysql"
	redisrepo "github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence/redis"
	grpchandler "github.com/wyfcoding/optionpricing/internal/pricing/interfaces/grpc"
	httphandler "github.com/wyfcoding/optionpricing/internal/pricing/interfaces/http"
	"github.com/wyfcoding/optionpricing/pkg/cache"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/db"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
	"github.com/wyfcoding/optionpricing/pkg/middleware"
	"github.com/wyfcoding/optionpricing/pkg/mq"
	"github.com/wyfcoding/optionpricing/pkg/ratelimit"
	"github.com/wyfcoding/optionpricing/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

const serviceName = "pricing"

func main() {
	// 1. 加载配置
	flags := config.Flags(serviceName)
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}
	configPath, _ := flags.GetString("config")
	cfg, err := config.LoadWithDefaults(configPath, flags)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal(context.Background(), "Pricing service exited with error", "error", err)
	}
	logger.Info(context.Background(), "Server exited")
}

func run(ctx context.Context, cfg *config.Config) error {
	logger.Info(ctx, "Starting PricingService", "version", cfg.Version, "environment", cfg.Environment)

	// 3. 追踪
	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:           cfg.Tracing.Enabled,
		ServiceName:       cfg.ServiceName,
		ServiceVersion:    cfg.Version,
		Environment:       cfg.Environment,
		CollectorEndpoint: cfg.Tracing.CollectorEndpoint,
		SamplingRate:      cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "Failed to shutdown tracing", "error", err)
		}
	}()

	// 4. 指标
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(serviceName)
		if err := m.Register(); err != nil {
			return err
		}
	}

	// 5. 基础设施
	deps, cleanup, err := initDependencies(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer cleanup()

	// 6. 应用服务
	opts := application.Options{
		DefaultSurfaceSamples: cfg.Pricing.SurfaceSamples,
		MaxSurfaceSamples:     cfg.Pricing.MaxSurfaceSamples,
		PayoffPoints:          cfg.Pricing.PayoffPoints,
		HistoryLimit:          cfg.Pricing.HistoryLimit,
		MaxHistoryLimit:       cfg.Pricing.MaxHistoryLimit,
		ChainCacheTTL:         time.Duration(cfg.MarketData.CacheTTL) * time.Second,
	}
	svc := application.NewPricingService(
		application.NewPricingCommandService(deps.repo, deps.resultCache, deps.publisher, deps.idGen, m, opts),
		application.NewPricingQueryService(deps.repo, deps.resultCache, deps.chains, deps.chainCache, m, opts),
	)

	limiter := ratelimit.NewLocalRateLimiter(10 * time.Minute)

	// 7. 服务
	httpServer := newHTTPServer(cfg, svc, m, limiter)
	grpcServer, healthServer := newGRPCServer(cfg, svc, m, limiter)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(gctx, "Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr())
		if err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
		logger.Info(gctx, "Starting gRPC server", "addr", cfg.GRPC.Addr())
		return grpcServer.Serve(lis)
	})

	if m != nil {
		metricsServer := m.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port), cfg.Metrics.Path)
		g.Go(func() error { return metrics.Serve(gctx, metricsServer) })
	}

	// 等待中断信号或任一服务退出后优雅关闭
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "Shutting down server...")

		healthServer.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "HTTP server shutdown error", "error", err)
		}
		grpcServer.GracefulStop()
		return nil
	})

	return g.Wait()
}

type dependencies struct {
	repo        domain.PricingRepository
	resultCache domain.PricingCache
	chainCache  domain.ChainCache
	chains      domain.ChainProvider
	publisher   domain.EventPublisher
	idGen       *snowflake.Node
}

// initDependencies 按配置装配存储、缓存、消息与行情源，返回统一的清理函数
func initDependencies(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*dependencies, func(), error) {
	deps := &dependencies{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	node, err := snowflake.NewNode(cfg.Pricing.NodeID)
	if err != nil {
		return fail(fmt.Errorf("failed to create snowflake node: %w", err))
	}
	deps.idGen = node

	if cfg.Database.Enabled {
		database, err := db.Init(ctx, db.Config{
			Driver:             cfg.Database.Driver,
			DSN:                cfg.Database.DSN,
			MaxOpenConns:       cfg.Database.MaxOpenConns,
			MaxIdleConns:       cfg.Database.MaxIdleConns,
			ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
			LogEnabled:         cfg.Database.LogEnabled,
			SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
			ConnectRetries:     cfg.Database.ConnectRetries,
			Tracing:            cfg.Tracing.Enabled,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to connect to database: %w", err))
		}
		closers = append(closers, func() { _ = database.Close() })

		if cfg.Database.AutoMigrate {
			if err := mysqlrepo.AutoMigrate(database.DB); err != nil {
				return fail(fmt.Errorf("failed to migrate database: %w", err))
			}
		}
		deps.repo = mysqlrepo.NewPricingRepository(database.DB)
	}

	var remoteChains domain.ChainCache
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cache.Config{
			Host:           cfg.Redis.Host,
			Port:           cfg.Redis.Port,
			Password:       cfg.Redis.Password,
			DB:             cfg.Redis.DB,
			MaxPoolSize:    cfg.Redis.MaxPoolSize,
			ConnTimeout:    cfg.Redis.ConnTimeout,
			ReadTimeout:    cfg.Redis.ReadTimeout,
			WriteTimeout:   cfg.Redis.WriteTimeout,
			ConnectRetries: 3,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to connect to redis: %w", err))
		}
		closers = append(closers, func() { _ = rdb.Close() })
		deps.resultCache = redisrepo.NewPricingRedisCache(rdb, cfg.Pricing.ResultCacheTTLDuration())
		remoteChains = redisrepo.NewChainRedisCache(rdb)
	}

	local, err := cache.NewLocalCache(ctx, time.Duration(cfg.MarketData.LocalCacheTTL)*time.Second)
	if err != nil {
		return fail(fmt.Errorf("failed to create local cache: %w", err))
	}
	closers = append(closers, func() { _ = local.Close() })
	deps.chainCache = persistence.NewTieredChainCache(local, remoteChains)

	if cfg.Kafka.Enabled {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:           cfg.Kafka.Brokers,
			Topic:             cfg.Kafka.Topic,
			MaxRetries:        cfg.Kafka.MaxRetries,
			RetryBackoff:      cfg.Kafka.RetryBackoff,
			EnableCompression: cfg.Kafka.EnableCompression,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to create kafka producer: %w", err))
		}
		closers = append(closers, func() { _ = producer.Close() })
		deps.publisher = messaging.NewKafkaEventPublisher(producer)
	}

	switch cfg.MarketData.Provider {
	case "static":
		deps.chains = infrastructure.NewStaticChainProvider(nil)
	default:
		deps.chains = client.NewYahooChainClient(cfg.MarketData)
	}

	logger.Info(ctx, "Dependencies initialized",
		"database", cfg.Database.Enabled,
		"redis", cfg.Redis.Enabled,
		"kafka", cfg.Kafka.Enabled,
		"market_data", cfg.MarketData.Provider,
		"metrics", m != nil,
	)
	return deps, cleanup, nil
}

func newHTTPServer(cfg *config.Config, svc *application.PricingService, m *metrics.Metrics, limiter ratelimit.RateLimiter) *http.Server {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		otelgin.Middleware(cfg.ServiceName),
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(m),
	)
	if cfg.RateLimit.Enabled {
		engine.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit))
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})
	if m != nil {
		engine.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}
	httphandler.NewPricingHandler(svc).RegisterRoutes(&engine.RouterGroup)

	return &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}

func newGRPCServer(cfg *config.Config, svc *application.PricingService, m *metrics.Metrics, limiter ratelimit.RateLimiter) (*grpc.Server, *health.Server) {
	interceptors := []grpc.UnaryServerInterceptor{
		middleware.GRPCRecoveryInterceptor(),
		middleware.GRPCLoggingInterceptor(),
		middleware.GRPCMetricsInterceptor(m),
	}
	if cfg.RateLimit.Enabled {
		interceptors = append(interceptors, middleware.GRPCRateLimitInterceptor(limiter, cfg.RateLimit))
	}

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
		grpc.MaxConcurrentStreams(uint32(cfg.GRPC.MaxConcurrentStreams)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: time.Duration(cfg.GRPC.IdleTimeout) * time.Second,
		}),
	)
	grpchandler.NewServer(s, svc)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus(grpchandler.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// 注册反射服务
	if cfg.GRPC.Reflection {
		reflection.Register(s)
	}
	return s, healthServer
}
