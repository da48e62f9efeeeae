package cli

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/custodia-labs/hrwatch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hrwatch/internal/adapters/driven/notify"
	"github.com/custodia-labs/hrwatch/internal/adapters/driven/oauth"
	"github.com/custodia-labs/hrwatch/internal/adapters/driven/oura"
	"github.com/custodia-labs/hrwatch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/hrwatch/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
	"github.com/custodia-labs/hrwatch/internal/core/services"
	"github.com/custodia-labs/hrwatch/internal/logger"
)

// App holds the services wired for one command invocation.
type App struct {
	Config      *file.Store
	Repo        *services.Repository
	Credentials *services.CredentialsService
	Samples     *services.SampleService
	Tokens      *services.TokenManager
	Scheduler   *services.Scheduler
	OAuth       *oauth.Client
	API         *oura.Client

	policy  *reloadablePolicy
	log     *zap.Logger
	closers []func() error
}

type appOptions struct {
	// ephemeral keeps every store in memory; nothing touches disk.
	ephemeral bool
}

// openApp builds the App for a command. Tests replace it.
var openApp = defaultOpenApp

func defaultOpenApp(opts appOptions) (*App, error) {
	log := logger.L()

	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfgStore, err := file.NewStore(path, log.Named("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if opts.ephemeral {
		samples := memory.NewSampleStore()
		repo := services.NewRepository(memory.NewCredentialStore(), samples, samples, memory.NewPollStateStore())
		return newApp(cfgStore, repo, log)
	}

	dir, err := resolveDataDir(cfgStore.Config())
	if err != nil {
		return nil, err
	}
	authStore, err := sqlite.OpenAuthStore(dir)
	if err != nil {
		return nil, err
	}
	hrStore, err := sqlite.OpenHeartRateStore(dir)
	if err != nil {
		_ = authStore.Close()
		return nil, err
	}

	repo := services.NewRepository(
		authStore.CredentialStore(),
		hrStore.SampleStore(),
		hrStore.BaselineStore(),
		hrStore.PollStateStore(),
	)
	app, err := newApp(cfgStore, repo, log)
	if err != nil {
		_ = hrStore.Close()
		_ = authStore.Close()
		return nil, err
	}
	app.closers = append(app.closers, hrStore.Close, authStore.Close)
	return app, nil
}

// resolveDataDir picks --data-dir, then data_dir from the config file,
// then the default.
func resolveDataDir(cfg file.Config) (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	return sqlite.DefaultDataDir()
}

// newApp wires services on top of repo.
func newApp(cfgStore *file.Store, repo *services.Repository, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)
	cfg := cfgStore.Config()

	policy, err := newReloadablePolicy(cfg.QuietHoursConfig())
	if err != nil {
		return nil, fmt.Errorf("quiet hours: %w", err)
	}
	notifier, closeNotifier, err := buildNotifier(cfg.Notify, log)
	if err != nil {
		return nil, err
	}

	oauthClient := oauth.NewClient(oauthConfig(cfg), nil)
	api := oura.NewClient(oura.Config{BaseURL: cfg.API.BaseURL, RateBudget: cfg.Polling.RateBudget}, nil)
	tokens := services.NewTokenManager(repo.Credentials(), oauthClient, cfgStore, log)
	tracker := services.NewBaselineTracker(repo.Samples(), repo.Baselines(), cfgStore)

	app := &App{
		Config:      cfgStore,
		Repo:        repo,
		Credentials: services.NewCredentialsService(repo),
		Samples:     services.NewSampleService(repo),
		Tokens:      tokens,
		Scheduler:   services.NewScheduler(repo, tokens, tracker, api, notifier, policy, cfgStore, log),
		OAuth:       oauthClient,
		API:         api,
		policy:      policy,
		log:         log,
	}
	if closeNotifier != nil {
		app.closers = append(app.closers, closeNotifier)
	}
	cfgStore.OnReload(app.applyReload)
	return app, nil
}

// applyReload pushes settings that services do not re-read on their own.
func (a *App) applyReload(cfg file.Config) {
	if err := a.policy.Update(cfg.QuietHoursConfig()); err != nil {
		a.log.Warn("keeping previous quiet hours", zap.Error(err))
	}
	a.API.RateLimiter().SetBudget(cfg.Polling.RateBudget)
}

// Close releases the App's stores and connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func oauthConfig(cfg file.Config) oauth.Config {
	return oauth.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		AuthURL:      cfg.OAuth.AuthURL,
		TokenURL:     cfg.OAuth.TokenURL,
		Scopes:       cfg.OAuth.Scopes,
	}
}

// buildNotifier fans out to every configured channel. The returned
// notifier is nil when none is configured.
func buildNotifier(n file.NotifySection, log *zap.Logger) (driven.Notifier, func() error, error) {
	var (
		out     notify.Multi
		closeFn func() error
	)
	if n.Log {
		out = append(out, notify.NewLogNotifier(log.Named("anomaly")))
	}
	if n.WebhookURL != "" {
		out = append(out, notify.NewWebhookNotifier(n.WebhookURL, n.WebhookToken, nil))
	}
	if n.RedisURL != "" {
		client, err := notify.NewRedisClient(n.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, notify.NewRedisNotifier(client, n.RedisChannel))
		closeFn = client.Close
	}
	if len(out) == 0 {
		return nil, closeFn, nil
	}
	return out, closeFn, nil
}
