package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/i474232898/sky-diorama/internal/config"
	"github.com/i474232898/sky-diorama/internal/diorama"
	"github.com/i474232898/sky-diorama/internal/logger"
	"github.com/i474232898/sky-diorama/internal/state"
	"github.com/i474232898/sky-diorama/internal/storage"
	"github.com/i474232898/sky-diorama/internal/weather"
	"github.com/i474232898/sky-diorama/internal/weather/providers"
)

// App is the wired application shared by every command.
type App struct {
	Config   *config.AppConfig
	Log      *logger.Logger
	State    *state.State
	Weather  *weather.Service
	Dioramas *diorama.Service

	closers []func() error
}

// loadApp reads the configuration and builds an App from it.
func loadApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if cfg.DotEnvErr != nil {
		log.Debug("no .env file loaded", "error", cfg.DotEnvErr)
	}
	return NewApp(ctx, cfg, log)
}

// NewApp builds the storage backend, the upstream clients and the services,
// then restores persisted state.
func NewApp(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*App, error) {
	app := &App{Config: cfg, Log: log}

	kv, err := app.openKV(ctx)
	if err != nil {
		return nil, err
	}

	app.State = state.New(state.NewKVMetadataStore(kv), log)
	if err := app.State.Restore(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to restore state: %w", err)
	}
	if app.State.APIKey() == "" && cfg.Gemini.APIKey != "" {
		app.State.SetAPIKey(cfg.Gemini.APIKey)
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var reverse weather.ReverseGeocoder
	if cfg.Reverse.GoogleAPIKey != "" {
		reverse = providers.NewGoogleReverseGeocoder(cfg.Reverse.GoogleAPIKey, cfg.Reverse.RatePerSecond)
	} else {
		reverse = providers.NewMapsCoReverseGeocoder(httpClient, cfg.Reverse.BaseURL, cfg.Reverse.APIKey, cfg.Reverse.RatePerSecond)
	}

	app.Weather = weather.NewService(
		app.State,
		providers.NewOpenMeteoProvider(httpClient, cfg.Weather.BaseURL),
		providers.NewOpenMeteoGeocoder(httpClient, cfg.Geocoding.BaseURL),
		reverse,
		log,
		weather.WithStaleAfter(cfg.StaleAfter),
	)

	var opts []diorama.Option
	if cfg.Anthropic.APIKey != "" {
		opts = append(opts, diorama.WithAltTexter(
			providers.NewClaudeAltTexter(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens),
		))
	}
	app.Dioramas = diorama.NewService(
		app.State,
		providers.NewGeminiGenerator(httpClient, cfg.Gemini.BaseURL, cfg.Gemini.Model),
		storage.NewArtifacts(kv, log),
		log,
		opts...,
	)

	return app, nil
}

func (a *App) openKV(ctx context.Context) (storage.KV, error) {
	switch a.Config.Storage.Backend {
	case config.BackendMemory:
		a.Log.Warn("using in-memory storage, nothing survives a restart")
		return storage.NewMemoryKV(), nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.Config.Redis.Addr, err)
		}
		a.closers = append(a.closers, client.Close)
		a.Log.Info("using redis storage", "addr", a.Config.Redis.Addr, "namespace", a.Config.Redis.Namespace)
		return storage.NewRedisKV(client, a.Config.Redis.Namespace), nil

	default:
		kv, err := storage.NewFileKV(a.Config.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open data dir: %w", err)
		}
		a.Log.Debug("using file storage", "dir", a.Config.Storage.DataDir)
		return kv, nil
	}
}

// Close releases storage connections and flushes the logger.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.Log.Sync()
}
