// Package bootstrap loads configuration and wires the shared service
// dependencies for both binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"github.com/philippe-ths/ai-running-coach/pkg/contextpack"
	"github.com/philippe-ths/ai-running-coach/pkg/ingest"
	"github.com/philippe-ths/ai-running-coach/pkg/processing"
	"github.com/philippe-ths/ai-running-coach/pkg/queue"
	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/strava"
	"github.com/philippe-ths/ai-running-coach/pkg/trends"
)

// Config holds the recognized process configuration.
type Config struct {
	AppEnv     string
	AppBaseURL string
	APIBaseURL string

	DatabaseURL string
	RedisURL    string

	StravaClientID           string
	StravaClientSecret       string
	StravaRedirectURI        string
	StravaWebhookVerifyToken string
	StravaWebhookCallbackURL string

	SentryDSN string
	LogLevel  string

	// RepairOnRead gates the lazy-repair path on the detail read.
	RepairOnRead bool
}

// IsDev reports whether the process runs outside production.
func (c *Config) IsDev() bool {
	return c.AppEnv != "production"
}

// LoadConfig reads configuration from the environment, honoring a local
// .env file when present. DATABASE_URL is the only required key.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:                   envOr("APP_ENV", "development"),
		AppBaseURL:               envOr("APP_BASE_URL", "http://localhost:3000"),
		APIBaseURL:               envOr("API_BASE_URL", "http://localhost:8080"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisURL:                 envOr("REDIS_URL", "redis://localhost:6379/0"),
		StravaClientID:           os.Getenv("STRAVA_CLIENT_ID"),
		StravaClientSecret:       os.Getenv("STRAVA_CLIENT_SECRET"),
		StravaRedirectURI:        os.Getenv("STRAVA_REDIRECT_URI"),
		StravaWebhookVerifyToken: os.Getenv("STRAVA_WEBHOOK_VERIFY_TOKEN"),
		StravaWebhookCallbackURL: os.Getenv("STRAVA_WEBHOOK_CALLBACK_URL"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		LogLevel:                 os.Getenv("LOG_LEVEL"),
		RepairOnRead:             os.Getenv("REPAIR_ON_READ") == "true",
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the message
type ComponentHandler struct {
	slog.Handler
	component string
}

// WithGroup implements slog.Handler
func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{
		Handler:   h.Handler.WithGroup(name),
		component: h.component,
	}
}

// WithAttrs implements slog.Handler
func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newComp := h.component
	for _, a := range attrs {
		if a.Key == "component" {
			newComp = a.Value.String()
		}
	}
	return &ComponentHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		component: newComp,
	}
}

// Handle implements slog.Handler
func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	comp := h.component

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			comp = a.Value.String()
			return false // stop
		}
		return true
	})

	if comp != "" {
		newMsg := fmt.Sprintf("[%s] %s", comp, r.Message)
		newRecord := slog.NewRecord(r.Time, r.Level, newMsg, r.PC)
		r.Attrs(func(a slog.Attr) bool {
			newRecord.AddAttrs(a)
			return true
		})
		r = newRecord
	}

	return h.Handler.Handle(ctx, r)
}

// NewLogger creates a configured logger instance
func NewLogger(serviceName, logLevel string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(&ComponentHandler{Handler: handler}).With("service", serviceName)
}

// InitSentry initializes error reporting. A missing DSN disables it
// rather than failing startup.
func InitSentry(cfg *Config, logger *slog.Logger) error {
	if cfg.SentryDSN == "" {
		logger.Warn("Sentry DSN not configured - error tracking disabled")
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.AppEnv,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Request != nil && event.Request.Headers != nil {
				delete(event.Request.Headers, "Authorization")
				delete(event.Request.Headers, "Cookie")
			}
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	logger.Info("Sentry initialized", "environment", cfg.AppEnv)
	return nil
}

// Service holds initialized dependencies
type Service struct {
	Config      *Config
	Logger      *slog.Logger
	Store       *store.Store
	Queue       *queue.Queue
	Client      *strava.Client
	OAuth       *strava.OAuth
	Engine      *processing.Engine
	Syncer      *ingest.Syncer
	Webhooks    *ingest.WebhookHandler
	Trends      *trends.Aggregator
	ContextPack *contextpack.Builder
}

// NewService initializes all standard dependencies for one binary.
func NewService(serviceName string) (*Service, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := NewLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := InitSentry(cfg, logger); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	q, err := queue.New(cfg.RedisURL, queue.DefaultName)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("connecting queue: %w", err)
	}

	client := strava.NewClient()
	oauth := strava.NewOAuth(cfg.StravaClientID, cfg.StravaClientSecret, cfg.StravaRedirectURI)
	engine := processing.NewEngine(st, logger)

	logger.Info("service initialized", "env", cfg.AppEnv)

	return &Service{
		Config:      cfg,
		Logger:      logger,
		Store:       st,
		Queue:       q,
		Client:      client,
		OAuth:       oauth,
		Engine:      engine,
		Syncer:      ingest.NewSyncer(st, client, oauth, engine, logger),
		Webhooks:    ingest.NewWebhookHandler(st, q, cfg.StravaWebhookVerifyToken, logger),
		Trends:      trends.NewAggregator(st),
		ContextPack: contextpack.NewBuilder(st),
	}, nil
}

// Close releases the service's resources.
func (s *Service) Close() {
	if s.Queue != nil {
		s.Queue.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}
