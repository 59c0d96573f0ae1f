// Package mainconfig builds the application object graph shared by the API
// server and the queue worker.
package mainconfig

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/loodlijn/dispatch/internal/booking"
	"github.com/loodlijn/dispatch/internal/config"
	"github.com/loodlijn/dispatch/internal/dispatch"
	"github.com/loodlijn/dispatch/internal/notify"
	"github.com/loodlijn/dispatch/internal/observability/metrics"
	"github.com/loodlijn/dispatch/pkg/logging"
)

// App bundles everything a binary needs to run.
type App struct {
	Cfg            *config.Config
	Logger         *logging.Logger
	Engine         *dispatch.Engine
	Service        *dispatch.Service
	Workers        *dispatch.WorkerPool
	MetricsHandler http.Handler

	cleanups []func()
}

// Close releases external connections.
func (a *App) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
}

// Build loads configuration and constructs the full object graph.
func Build(ctx context.Context) (*App, error) {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	app := &App{Cfg: cfg, Logger: logger}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("mainconfig: aws config: %w", err)
	}

	// Model backends
	bedrock := bedrockruntime.NewFromConfig(awsCfg, withEndpoint[bedrockruntime.Options](cfg))
	fast := dispatch.NewBedrockClient(bedrock, cfg.BedrockModelID)

	var emergencyFast *dispatch.BedrockClient
	if cfg.BedrockEmergencyModelID != "" && cfg.BedrockEmergencyModelID != cfg.BedrockModelID {
		emergencyFast = dispatch.NewBedrockClient(bedrock, cfg.BedrockEmergencyModelID)
	}

	var deep dispatch.LLMClient
	if cfg.GeminiAPIKey != "" {
		gemini, err := dispatch.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: gemini client: %w", err)
		}
		app.cleanups = append(app.cleanups, func() { _ = gemini.Close() })
		deep = gemini
	}
	if cfg.OpenAIAPIKey != "" {
		oai, err := dispatch.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModelID)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: openai client: %w", err)
		}
		if deep != nil {
			fb := dispatch.NewFallbackClient(deep, oai, logger)
			fb.OnFallback(func(primaryModel string) {
				metrics.BackendFallbacks.WithLabelValues(primaryModel).Inc()
			})
			deep = fb
		} else {
			deep = oai
		}
	}
	if deep == nil {
		// No dedicated deep backend configured; the fast model answers
		// everything.
		logger.Warn("no deep backend configured, routing deep turns to the fast backend")
		deep = fast
	}

	// Conversation store
	var store dispatch.ConversationStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		app.cleanups = append(app.cleanups, func() { _ = client.Close() })
		store = dispatch.NewRedisStore(client, 0)
	} else {
		logger.Warn("no redis configured, conversations are held in memory")
		store = dispatch.NewMemoryStore()
	}

	engine := dispatch.NewEngine(fast, deep, dispatch.NewInvoker(cfg.BackendTimeout), store, logger, dispatch.EngineConfig{
		HistoryTurns:     cfg.HistoryTurns,
		EmergencyContact: cfg.EmergencyContact,
	})
	if emergencyFast != nil {
		engine.WithEmergencyBackend(emergencyFast)
	}

	// Turn archive
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: postgres pool: %w", err)
		}
		app.cleanups = append(app.cleanups, pool.Close)
		engine.WithArchive(dispatch.NewTurnArchive(pool, logger))
	}

	// Booking handoff
	if cfg.HandoffEmail != "" && cfg.SESFromEmail != "" {
		ses := sesv2.NewFromConfig(awsCfg, withEndpoint[sesv2.Options](cfg))
		sender, err := notify.NewSESSender(ses, cfg.SESFromEmail, cfg.SESFromName)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: ses sender: %w", err)
		}
		engine.WithBooking(booking.NewManualHandoff(sender, booking.ManualHandoffConfig{
			HandoffEmail: cfg.HandoffEmail,
		}, logger))
	} else {
		logger.Warn("booking handoff email not configured, triggers are log-only")
		engine.WithBooking(booking.NewManualHandoff(nil, booking.ManualHandoffConfig{}, logger))
	}

	// Queue + job store
	var (
		publisher *dispatch.Publisher
		jobs      dispatch.JobRecorder
	)
	if cfg.UseMemoryQueue {
		queue := dispatch.NewMemoryQueue(256)
		memJobs := dispatch.NewMemoryJobStore()
		publisher = dispatch.NewPublisher(queue, memJobs, logger)
		app.Workers = dispatch.NewWorkerPool(queue, engine, memJobs, cfg.WorkerCount, logger)
		jobs = memJobs
	} else {
		sqsClient := sqs.NewFromConfig(awsCfg, withEndpoint[sqs.Options](cfg))
		queue := dispatch.NewSQSQueue(sqsClient, cfg.DispatchQueueURL)
		ddb := dynamodb.NewFromConfig(awsCfg, withEndpoint[dynamodb.Options](cfg))
		jobStore := dispatch.NewJobStore(ddb, cfg.DispatchJobsTable, logger)
		publisher = dispatch.NewPublisher(queue, jobStore, logger)
		app.Workers = dispatch.NewWorkerPool(queue, engine, jobStore, cfg.WorkerCount, logger)
		jobs = jobStore
	}

	app.Engine = engine
	app.Service = dispatch.NewService(engine, publisher, jobs)

	registry := prometheus.NewRegistry()
	metrics.RegisterMetrics(registry)
	app.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	logger.Info("application graph built",
		slog.String("env", cfg.Env),
		slog.Bool("memory_queue", cfg.UseMemoryQueue),
		slog.String("fast_model", cfg.BedrockModelID),
	)
	return app, nil
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

type endpointOptions interface {
	bedrockruntime.Options | sqs.Options | dynamodb.Options | sesv2.Options
}

// withEndpoint points an AWS client at a LocalStack-style endpoint override
// when one is configured.
func withEndpoint[O endpointOptions](cfg *config.Config) func(*O) {
	return func(o *O) {
		if cfg.AWSEndpointOverride == "" {
			return
		}
		switch opt := any(o).(type) {
		case *bedrockruntime.Options:
			opt.BaseEndpoint = aws.String(cfg.AWSEndpointOverride)
		case *sqs.Options:
			opt.BaseEndpoint = aws.String(cfg.AWSEndpointOverride)
		case *dynamodb.Options:
			opt.BaseEndpoint = aws.String(cfg.AWSEndpointOverride)
		case *sesv2.Options:
			opt.BaseEndpoint = aws.String(cfg.AWSEndpointOverride)
		}
	}
}
