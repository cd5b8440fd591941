package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/techtrends"
	"github.com/aretw0/techtrends/internal/adapters/file"
	"github.com/aretw0/techtrends/internal/adapters/postgres"
	"github.com/aretw0/techtrends/internal/adapters/redis"
	"github.com/aretw0/techtrends/internal/config"
	"github.com/aretw0/techtrends/internal/logging"
	"github.com/aretw0/techtrends/internal/metrics"
	"github.com/aretw0/techtrends/internal/prompts"
	"github.com/aretw0/techtrends/pkg/adapters/blob"
	"github.com/aretw0/techtrends/pkg/adapters/convert"
	"github.com/aretw0/techtrends/pkg/adapters/memory"
	"github.com/aretw0/techtrends/pkg/adapters/openai"
	"github.com/aretw0/techtrends/pkg/adapters/rag"
	"github.com/aretw0/techtrends/pkg/adapters/search"
	"github.com/aretw0/techtrends/pkg/documents"
	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/persistence/middleware"
	"github.com/aretw0/techtrends/pkg/ports"
	"github.com/aretw0/techtrends/pkg/runs"
)

// App bundles what the commands share, built once from the configuration.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Documents *documents.Registry
	Prompts   *prompts.Library

	// Runs is nil when the checkpoint backend is "none".
	Runs *runs.Manager

	collaborators techtrends.Collaborators
	debug         bool
	closers       []func() error
}

// Option customizes Build.
type Option func(*buildOptions)

type buildOptions struct {
	debug     bool
	generator ports.Generator
	searcher  ports.Searcher
	publisher ports.Publisher
}

// WithDebug logs at debug level and traces every stage.
func WithDebug(debug bool) Option {
	return func(o *buildOptions) { o.debug = debug }
}

// WithGenerator replaces the configured generation client.
func WithGenerator(g ports.Generator) Option {
	return func(o *buildOptions) { o.generator = g }
}

// WithSearcher replaces the configured search client.
// A *search.Throttled is used as given; any other searcher is throttled.
func WithSearcher(s ports.Searcher) Option {
	return func(o *buildOptions) { o.searcher = s }
}

// WithPublisher replaces the configured blob publisher.
func WithPublisher(p ports.Publisher) Option {
	return func(o *buildOptions) { o.publisher = p }
}

// Build wires collaborators, stores and observability from cfg.
// A missing OpenAI key is not fatal here: runs report it as a configuration error.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := cfg.Logger()
	if o.debug {
		logger = logging.NewWithOptions(logging.Options{Level: slog.LevelDebug, Format: logging.Format(cfg.Log.Format)})
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics.New(true),
		Documents: documents.New(cfg.DataDir, documents.WithLogger(logger)),
		debug:     o.debug,
	}

	if err := app.buildCollaborators(ctx, o); err != nil {
		return nil, err
	}

	store, locker, err := app.openStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	if store != nil {
		managerOpts := []runs.Option{runs.WithLogger(logger)}
		if locker != nil {
			managerOpts = append(managerOpts, runs.WithLocker(locker))
		}
		app.Runs = runs.NewManager(store, managerOpts...)
	}
	return app, nil
}

func (a *App) buildCollaborators(ctx context.Context, o buildOptions) error {
	cfg := a.Config
	c := &a.collaborators

	var client *openai.Client
	if cfg.OpenAI.APIKey != "" {
		var err error
		client, err = openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Options()...)
		if err != nil {
			return fmt.Errorf("openai client: %w", err)
		}
		c.Generator = client
	} else {
		a.Logger.Debug("no OpenAI key configured; generation is unavailable")
	}
	if o.generator != nil {
		c.Generator = o.generator
	}

	searcher := o.searcher
	if searcher == nil {
		searcher = search.New(cfg.Search.BraveAPIKey,
			search.WithEndpoint(cfg.Search.Endpoint),
			search.WithStrict(cfg.Search.Strict),
			search.WithLogger(a.Logger.With("component", "search")),
		)
	}
	if t, ok := searcher.(*search.Throttled); ok {
		c.Searcher = t
	} else {
		c.Searcher = search.Throttle(searcher, cfg.Search.IntervalDuration())
	}

	var embedder rag.Embedder
	if cfg.OpenAI.Embeddings && client != nil {
		embedder = client
	}
	c.Retriever = rag.NewIndex(embedder, rag.WithLogger(a.Logger.With("component", "rag")))

	c.Converter = convert.New(cfg.OutputDir, convert.WithPDFFont(cfg.PDFFont))

	switch {
	case o.publisher != nil:
		c.Publisher = o.publisher
	case cfg.Publish.Enabled():
		pub, err := blob.New(cfg.Publish, a.Logger.With("component", "blob"))
		if err != nil {
			return fmt.Errorf("blob publisher: %w", err)
		}
		c.Publisher = pub
	}

	lib, err := prompts.New()
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(cfg.PromptDir); statErr == nil {
		n, err := lib.LoadOverrides(ctx, cfg.PromptDir)
		if err != nil {
			return fmt.Errorf("load prompt overrides: %w", err)
		}
		a.Logger.Debug("prompt overrides loaded", "dir", cfg.PromptDir, "count", n)
	}
	a.Prompts = lib
	return nil
}

// openStore returns a nil store for the "none" backend.
func (a *App) openStore(ctx context.Context) (ports.CheckpointStore, ports.DistributedLocker, error) {
	cfg := a.Config.Checkpoint

	var (
		store  ports.CheckpointStore
		locker ports.DistributedLocker
	)
	switch cfg.Backend {
	case config.BackendNone:
		return nil, nil, nil
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendFile:
		store = file.New(cfg.Dir)
	case config.BackendRedis:
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redis.WithPrefix(cfg.RedisPrefix),
			redis.WithTTL(cfg.TTLDuration()),
		)
		a.closers = append(a.closers, rs.Close)
		store = rs
		if cfg.DistributedLock {
			locker = redis.NewLocker(rs.Client(), cfg.RedisPrefix)
		}
	case config.BackendPostgres:
		ps, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres checkpoint store: %w", err)
		}
		a.closers = append(a.closers, ps.Close)
		store = ps
	default:
		return nil, nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}

	var mws []middleware.Middleware
	if cfg.Redact {
		redact, err := middleware.NewRedactionMiddleware(middleware.DefaultSecretPatterns)
		if err != nil {
			return nil, nil, err
		}
		mws = append(mws, redact)
	}
	if cfg.EncryptionKey != "" {
		keys, err := cfg.Encryption()
		if err != nil {
			return nil, nil, err
		}
		seal, err := middleware.NewEncryptionMiddleware(keys)
		if err != nil {
			return nil, nil, err
		}
		mws = append(mws, seal)
	}
	return middleware.Chain(store, mws...), locker, nil
}

// Collaborators returns the wired collaborators.
func (a *App) Collaborators() techtrends.Collaborators {
	return a.collaborators
}

// NewWorkflow creates a workflow sharing the app collaborators, run manager and hooks.
func (a *App) NewWorkflow(opts ...techtrends.Option) *techtrends.Workflow {
	base := []techtrends.Option{
		techtrends.WithLogger(a.Logger),
		techtrends.WithPrompts(a.Prompts),
		techtrends.WithLifecycleHooks(a.Metrics.Hooks()),
	}
	if a.debug {
		base = append(base, techtrends.WithLifecycleHooks(createDebugHooks(a.Logger)))
	}
	if a.Runs != nil {
		base = append(base, techtrends.WithRunManager(a.Runs))
	}
	return techtrends.New(a.collaborators, append(base, opts...)...)
}

// Defaults returns the configured run defaults. They are validated by config.Load.
func (a *App) Defaults() domain.Params {
	format, _ := domain.ParseFormat(a.Config.Defaults.Format)
	return domain.Params{
		Format:   format,
		Language: domain.Language(a.Config.Defaults.Language),
		Depth:    domain.Depth(a.Config.Defaults.Depth),
	}
}

// Params applies o over the configured defaults. RAG-enabled runs use every registered document.
func (a *App) Params(o domain.Overrides) (domain.Params, error) {
	defaults := a.Defaults()
	if o.RAGEnabled {
		paths, err := a.Documents.Paths()
		if err != nil {
			return domain.Params{}, err
		}
		if len(paths) == 0 {
			return domain.Params{}, errors.New("RAG is enabled but no reference documents are registered (see: techtrends docs add)")
		}
		defaults.RAGDocuments = paths
	}
	return o.Apply(defaults)
}

// Close releases store connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
