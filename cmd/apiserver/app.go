package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	appinference "github.com/turtacn/nlp-inference-service/internal/application/inference"
	"github.com/turtacn/nlp-inference-service/internal/config"
	"github.com/turtacn/nlp-inference-service/internal/domain/history"
	redisinfra "github.com/turtacn/nlp-inference-service/internal/infrastructure/database/redis"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/messaging"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/nlp-inference-service/internal/intelligence/common"
	"github.com/turtacn/nlp-inference-service/internal/intelligence/pipeline"
	grpcserver "github.com/turtacn/nlp-inference-service/internal/interfaces/grpc"
	httpserver "github.com/turtacn/nlp-inference-service/internal/interfaces/http"
	"github.com/turtacn/nlp-inference-service/internal/interfaces/http/handlers"
	"github.com/turtacn/nlp-inference-service/internal/interfaces/http/middleware"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

const (
	metricsNamespace   = "nlp"
	serviceTitle       = "NLP Inference Service"
	topicTimeout       = 10 * time.Second
	startupTrimTimeout = 3 * time.Second
)

// application holds every long-lived component of the API server.
type application struct {
	cfg      *config.Config
	logger   logging.Logger
	redis    *redisinfra.Client
	store    *history.Store
	runner   *common.Runner
	reporter *messaging.Reporter
	handler  http.Handler
	http     *httpserver.Server
	grpc     *grpcserver.Server
}

// newApplication wires the components described by cfg.  Nothing here needs
// the store, the inference backend or the sink to be reachable.
func newApplication(ctx context.Context, cfg *config.Config, logger logging.Logger) (*application, error) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            metricsNamespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("metrics collector: %w", err)
	}
	appMetrics := prometheus.NewAppMetrics(collector)
	modelMetrics, err := common.NewPrometheusMetrics(collector.Registerer())
	if err != nil {
		return nil, fmt.Errorf("model metrics: %w", err)
	}

	rc, err := redisinfra.NewClient(redisConfig(cfg.Redis), logger)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}

	historyMetrics := prometheus.NewHistoryMetrics(appMetrics)
	store, err := history.NewStore(rc, cfg.History.Limit, logger,
		history.WithKey(cfg.History.Key),
		history.WithMetrics(historyMetrics),
		history.WithAppendTimeout(cfg.History.AppendTimeout),
	)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("history store: %w", err)
	}
	// A lowered limit takes effect before the first append.
	trimCtx, cancel := context.WithTimeout(ctx, startupTrimTimeout)
	if err := store.Trim(trimCtx); err != nil {
		logger.Warn("initial history trim failed", logging.Err(err))
	}
	cancel()

	runner, err := newRunner(cfg.Models, modelMetrics, logger)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}

	reporter := newReporter(ctx, cfg.MetricSink, appMetrics, logger)

	svc, err := appinference.NewService(runner, store, reporter, appinference.Config{
		MaxTextLength: cfg.Validation.MaxTextLength,
		PageSize:      cfg.History.PageSize,
	}, logger)
	if err != nil {
		_ = reporter.Close()
		_ = rc.Close()
		return nil, err
	}

	if cfg.Auth.APIKey == config.DefaultAPIKey {
		logger.Warn("using the built-in development API key; set API_KEY in production")
	}
	gate := middleware.NewAPIKeyGate(cfg.Auth.APIKey, cfg.Auth.Header, logger, func(ok bool, reason string) {
		prometheus.RecordAuthAttempt(appMetrics, ok, reason)
	})

	pinger := &storePinger{store: store, metrics: historyMetrics}
	router := httpserver.NewRouter(httpserver.RouterConfig{
		InferenceHandler: handlers.NewInferenceHandler(svc, logger),
		HealthHandler:    handlers.NewHealthHandler(svc, Version, pinger.checker()),
		DocsHandler:      handlers.NewDocsHandler(serviceTitle, Version, gate.Header()),
		APIKeyGate:       gate,
		CORS:             middleware.DefaultCORSConfig(cfg.Server.CORSOrigins, gate.Header()),
		LoggingConfig:    middleware.DefaultLoggingConfig(),
		Logger:           logger,
		MetricsCollector: collector,
		AppMetrics:       appMetrics,
		Mode:             ginMode(cfg.Server.Mode),
	})
	var handler http.Handler = router
	if cfg.Server.MaxBodySize > 0 {
		handler = http.MaxBytesHandler(router, cfg.Server.MaxBodySize)
	}

	app := &application{
		cfg:      cfg,
		logger:   logger,
		redis:    rc,
		store:    store,
		runner:   runner,
		reporter: reporter,
		handler:  handler,
		http: httpserver.NewServer(httpserver.ServerConfig{
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, handler, logger),
	}

	if cfg.Server.GRPCPort > 0 {
		app.grpc, err = grpcserver.NewServer(fmt.Sprintf(":%d", cfg.Server.GRPCPort),
			grpcserver.WithLogger(logger),
			grpcserver.WithGracefulTimeout(cfg.Server.ShutdownTimeout),
			grpcserver.WithDependency(grpcserver.HistoryStoreService, pinger),
			grpcserver.WithReflection(cfg.Server.Mode == gin.DebugMode),
		)
		if err != nil {
			_ = reporter.Close()
			_ = rc.Close()
			return nil, err
		}
	}

	appMetrics.ServiceInfo.WithLabelValues(Version, reporter.Driver()).Set(1)
	return app, nil
}

func redisConfig(c config.RedisConfig) *redisinfra.RedisConfig {
	return &redisinfra.RedisConfig{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

func newRunner(c config.ModelsConfig, metrics common.Metrics, logger logging.Logger) (*common.Runner, error) {
	opts := []pipeline.BackendOption{pipeline.WithLogger(logger)}
	if c.APIToken != "" {
		opts = append(opts, pipeline.WithToken(c.APIToken))
	}
	backend, err := pipeline.NewBackend(c.BackendURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline backend: %w", err)
	}
	cache := common.NewModelCache(logger,
		common.WithLoadTimeout(c.LoadTimeout),
		common.WithCacheMetrics(metrics),
	)
	runner, err := common.NewRunner(cache, pipeline.NewLoader(backend), common.RunnerConfig{
		Models: map[inference.Task]string{
			inference.TaskSentiment:   c.Sentiment,
			inference.TaskTranslation: c.Translation,
		},
		MaxConcurrency: c.MaxConcurrency,
		InferTimeout:   c.InferTimeout,
	}, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	return runner, nil
}

// newReporter builds the metric sink.  A sink that cannot be built leaves the
// service running unmonitored.
func newReporter(ctx context.Context, c config.MetricSinkConfig, m *prometheus.AppMetrics, logger logging.Logger) *messaging.Reporter {
	sink, err := messaging.NewSink(c, logger)
	if err != nil {
		logger.Warn("metric sink disabled", logging.String("driver", c.Driver), logging.Err(err))
		sink = messaging.NewNoopSink()
	}
	if sink.Driver() == messaging.DriverKafka && c.CreateTopic {
		ensureTopic(ctx, c, logger)
	}
	return messaging.NewReporter(sink, logger,
		messaging.WithEmitTimeout(c.Timeout),
		messaging.WithEmitMetrics(prometheus.NewSinkMetrics(m)),
	)
}

func ensureTopic(ctx context.Context, c config.MetricSinkConfig, logger logging.Logger) {
	ctx, cancel := context.WithTimeout(ctx, topicTimeout)
	defer cancel()
	tm, err := kafka.NewTopicManager(ctx, c.Brokers, kafka.SecurityConfig{
		SASLMechanism: "PLAIN",
		SASLUsername:  c.Username,
		SASLPassword:  c.APIKey,
		TLSEnabled:    c.TLS,
	}, logger)
	if err != nil {
		logger.Warn("metric topic bootstrap skipped", logging.Err(err))
		return
	}
	defer tm.Close()
	if err := tm.EnsureTopic(kafka.DefaultMetricsTopic(c.Topic)); err != nil {
		logger.Warn("metric topic bootstrap failed", logging.String("topic", c.Topic), logging.Err(err))
	}
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	}
	return gin.ReleaseMode
}

// run serves until ctx ends or a server fails, then shuts everything down.
func (a *application) run(ctx context.Context) error {
	a.reporter.Start(ctx, messaging.RunInfo{
		Project: a.cfg.MetricSink.Project,
		RunName: a.cfg.MetricSink.RunName,
		Config: map[string]any{
			"sentiment_model":   a.cfg.Models.Sentiment,
			"translation_model": a.cfg.Models.Translation,
			"history_limit":     a.cfg.History.Limit,
			"max_text_length":   a.cfg.Validation.MaxTextLength,
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.http.Start)
	if a.grpc != nil {
		g.Go(a.grpc.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	a.logger.Info("API server started",
		logging.String("version", Version),
		logging.Int("port", a.cfg.Server.Port),
		logging.Int("grpc_port", a.cfg.Server.GRPCPort),
		logging.Int("history_limit", a.store.Limit()),
		logging.String("metric_sink", a.reporter.Driver()),
	)
	return g.Wait()
}

// shutdown stops the listeners first so no request sees a closed dependency.
func (a *application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+time.Second)
	defer cancel()

	var first error
	if err := a.http.Stop(ctx); err != nil {
		first = err
	}
	if a.grpc != nil {
		if err := a.grpc.Stop(ctx); err != nil && first == nil {
			first = err
		}
	}
	if err := a.reporter.Close(); err != nil {
		a.logger.Warn("metric sink close failed", logging.Err(err))
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("redis close failed", logging.Err(err))
	}
	a.logger.Info("API server stopped")
	return first
}

//Personal.AI order the ending
