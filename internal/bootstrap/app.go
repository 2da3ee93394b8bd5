package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-gap-analyzer/internal/analyses"
	"resume-gap-analyzer/internal/gapanalysis"
	"resume-gap-analyzer/internal/llm"
	"resume-gap-analyzer/internal/llm/gemini"
	openai "resume-gap-analyzer/internal/llm/openai"
	"resume-gap-analyzer/internal/queue"
	"resume-gap-analyzer/internal/services/health"
	"resume-gap-analyzer/internal/shared/config"
	"resume-gap-analyzer/internal/shared/server"
	"resume-gap-analyzer/internal/shared/storage/db"
	"resume-gap-analyzer/internal/shared/storage/object"
	localstore "resume-gap-analyzer/internal/shared/storage/object/local"
	s3store "resume-gap-analyzer/internal/shared/storage/object/s3"
	"resume-gap-analyzer/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Store           object.ObjectStore
	Queue           queue.Client
	Rabbit          *queue.RabbitMQ
	Orchestrator    *gapanalysis.Orchestrator
	AnalysesRepo    analyses.Repo
	AnalysesService *analyses.Service
	AnalysisHandler *analyses.Handler
	Health          *health.Service
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, rabbit, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	orch, err := buildOrchestrator(ctx, cfg, cfg.LLMCredential)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:       cfg,
		DB:           sqlDB,
		Store:        store,
		Queue:        queueClient,
		Rabbit:       rabbit,
		Orchestrator: orch,
	}
	buildServices(ctx, app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		AnalysisHandler: app.AnalysisHandler,
		Health:          app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":            cfg.Env,
		"provider":       cfg.LLMProvider,
		"model":          cfg.LLMModel,
		"credential_set": orch.Service != nil,
		"policy":         string(orch.Policy),
		"database":       sqlDB != nil,
		"object_store":   cfg.ObjectStoreType,
		"queue":          cfg.QueueBackend,
	})
	return app, nil
}

func buildServices(ctx context.Context, app *App) {
	var repo analyses.Repo
	if app.DB != nil {
		repo = &analyses.PGRepo{DB: app.DB}
	} else {
		repo = analyses.NewMemoryRepo()
	}

	var archive object.ObjectStore
	if app.Config.ReportArchive {
		archive = app.Store
	}

	svc := &analyses.Service{
		Repo:     repo,
		Analyzer: analyzerFactory(ctx, app.Config, app.Orchestrator),
		Store:    archive,
		Queue:    app.Queue,
		Model:    app.Config.LLMModel,
	}

	app.AnalysesRepo = repo
	app.AnalysesService = svc
	app.AnalysisHandler = analyses.NewHandler(svc, app.Store)

	mode := string(app.Orchestrator.Policy)
	if app.Orchestrator.Service != nil {
		mode = string(gapanalysis.ModeAI)
	}
	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}
	app.Health = health.NewService(pinger, mode, app.Config.QueueBackend)
}

// analyzerFactory keeps the configured credential ahead of one supplied in a
// payload. A payload key only builds a per-request client when none is
// configured.
func analyzerFactory(ctx context.Context, cfg config.Config, base *gapanalysis.Orchestrator) analyses.AnalyzerFactory {
	return func(payloadCredential string) *gapanalysis.Orchestrator {
		if base.Service != nil || strings.TrimSpace(payloadCredential) == "" {
			return base
		}
		orch, err := buildOrchestrator(ctx, cfg, payloadCredential)
		if err != nil {
			telemetry.Warn("bootstrap.payload_credential_rejected", map[string]any{
				"provider": cfg.LLMProvider,
				"error":    err.Error(),
			})
			return base
		}
		return orch
	}
}

// buildOrchestrator returns an orchestrator whose Service is nil when
// credential is blank.
func buildOrchestrator(ctx context.Context, cfg config.Config, credential string) (*gapanalysis.Orchestrator, error) {
	client, err := NewLLMClient(ctx, cfg, credential)
	if err != nil {
		return nil, err
	}
	orch := &gapanalysis.Orchestrator{
		Provider: cfg.LLMProvider,
		Policy:   gapanalysis.ParsePolicy(cfg.CredentialPolicy),
		Retry: gapanalysis.RetryPolicy{
			MaxAttempts: cfg.LLMMaxAttempts,
			Timeout:     cfg.LLMTimeout,
			Delay:       cfg.LLMRetryDelay,
		},
		PromptVersion:  cfg.PromptVersion,
		CredentialName: config.CredentialEnv(cfg.LLMProvider),
	}
	if client != nil {
		orch.Service = client
	}
	return orch, nil
}

// NewLLMClient builds the configured provider client. It returns nil, nil for
// a blank credential.
func NewLLMClient(ctx context.Context, cfg config.Config, credential string) (llm.Client, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, nil
	}
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return gemini.NewClient(ctx, gemini.Options{
			APIKey:      credential,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			Timeout:     cfg.LLMTimeout,
			BaseURL:     cfg.LLMBaseURL,
		})
	case config.ProviderOpenAI, config.ProviderNebius, "":
		return openai.NewClient(openai.Options{
			Provider:    cfg.LLMProvider,
			APIKey:      credential,
			Model:       cfg.LLMModel,
			BaseURL:     cfg.LLMBaseURL,
			Temperature: cfg.LLMTemperature,
			Timeout:     cfg.LLMTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repository", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	lambda := db.InLambda()
	opts := db.Defaults(db.ProfileFor(lambda)).Override(PoolOverrides(cfg))
	connect := db.Connect
	if lambda {
		connect = db.Shared
	}
	sqlDB, err := connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repository", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

// PoolOverrides maps the DB_* configuration keys onto pool options.
func PoolOverrides(cfg config.Config) db.Options {
	return db.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		PingTimeout:     cfg.DBPingTimeout,
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, *queue.RabbitMQ, error) {
	switch cfg.QueueBackend {
	case config.QueueSQS:
		client, err := queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	case config.QueueRabbitMQ:
		rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			return nil, nil, err
		}
		return rabbit, rabbit, nil
	default:
		return nil, nil, nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// Close releases the database and broker connections.
func (a *App) Close() error {
	var errs []error
	if a.Rabbit != nil {
		errs = append(errs, a.Rabbit.Close())
	}
	if a.DB != nil && !db.InLambda() {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
