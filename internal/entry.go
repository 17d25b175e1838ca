// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/docdustry/internal/api"
	"github.com/starford/docdustry/internal/docservice"
	"github.com/starford/docdustry/internal/index"
	"github.com/starford/docdustry/internal/mcpserver"
	"github.com/starford/docdustry/internal/metrics"
	"github.com/starford/docdustry/internal/site"
	"github.com/starford/docdustry/internal/spam"
	"github.com/starford/docdustry/internal/sse"
	"github.com/starford/docdustry/internal/storage"
	"github.com/starford/docdustry/internal/watch"
)

var errConfigRequired = errors.New("config is required")

func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func (a *application) writer(logger *slog.Logger) (*site.Writer, error) {
	cfg := a.config.Site
	opts := []site.Option{site.WithLogger(logger), site.WithFrontpage(cfg.Frontpage)}
	if cfg.Theme != "" {
		theme, err := storage.NewFS(cfg.Theme)
		if err != nil {
			return nil, fmt.Errorf("init theme: %w", err)
		}
		opts = append(opts, site.WithTheme(theme))
	}
	w, err := site.NewWriter(cfg.Output, opts...)
	if err != nil {
		return nil, fmt.Errorf("init output: %w", err)
	}
	return w, nil
}

func (a *application) service(w *site.Writer, db *index.DB, rec metrics.Recorder, logger *slog.Logger) *docservice.Service {
	cfg := a.config
	return docservice.NewService(docservice.Options{
		Sources:     cfg.Site.Sources,
		Workers:     cfg.Build.Workers,
		MaxAttempts: cfg.Build.MaxAttempts,
		KeepSource:  cfg.Build.KeepSource,
	}, w, db, rec, logger)
}

// Generate builds the static site once.
func Generate(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()
	logger.Info("Generating site",
		slog.Any("sources", app.config.Site.Sources),
		slog.String("output", app.config.Site.Output))

	w, err := app.writer(logger)
	if err != nil {
		return err
	}
	_, err = app.service(w, nil, nil, logger).Build(ctx)
	return err
}

// GenerateDB builds the corpus once and persists it to SQLite.
func GenerateDB(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()
	logger.Info("Generating database",
		slog.Any("sources", app.config.Site.Sources),
		slog.String("sqlite_path", app.config.SQLite.Path))

	db, err := index.Open(app.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	_, err = app.service(nil, db, nil, logger).Build(ctx)
	return err
}

// ServeMCP exposes the persisted corpus over MCP on stdin/stdout.
// Logs go to stderr so they do not corrupt the protocol stream.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append(opts, WithLogOutput(os.Stderr)))
	if err != nil {
		return err
	}
	logger := app.logger()

	db, err := index.Open(app.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	logger.Info("MCP server starting", slog.String("sqlite_path", app.config.SQLite.Path))
	return mcpserver.New(db, app.version).ServeStdio()
}

// Spam writes a synthetic corpus to output.
func Spam(_ context.Context, output string, so spam.Options, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	_, err = spam.Generate(output, so, app.logger())
	return err
}

// Serve builds the site and the database, then serves the site, the API and
// metrics while rebuilding on source changes.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Any("sources", cfg.Site.Sources),
		slog.String("output", cfg.Site.Output),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	w, err := app.writer(logger)
	if err != nil {
		return err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	rec := metrics.NewPrometheusRecorder(nil)
	svc := app.service(w, db, rec, logger)

	// Initial build; a failure is logged and the server still starts so a
	// fixed source can trigger a rebuild.
	if _, err := svc.Build(ctx); err != nil {
		logger.Error("Initial build failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if svc.Summary() == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"building"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", rec.Handler())
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	r.Handle("/*", http.FileServer(http.Dir(w.Root())))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Rebuild on source changes.
	g.Go(func() error {
		err := watch.Watch(gCtx, svc.Sources(), watch.DefaultDebounce, logger, func(changes []watch.Change) {
			for _, c := range changes {
				broker.PublishSourceEvent(c.Kind, c.Path)
			}
			summary, err := svc.Build(gCtx)
			if err != nil {
				logger.Error("Rebuild failed", slog.String("error", err.Error()))
				return
			}
			broker.PublishRebuilt(summary)
		})
		if err != nil {
			logger.Warn("Watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		cancel()
		// Closing the broker ends open event streams so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
