package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vmunix/dubwatch/internal/catalog"
	"github.com/vmunix/dubwatch/internal/collection"
	"github.com/vmunix/dubwatch/internal/config"
	"github.com/vmunix/dubwatch/internal/history"
	"github.com/vmunix/dubwatch/internal/ledger"
	"github.com/vmunix/dubwatch/internal/resolve"
	"github.com/vmunix/dubwatch/internal/router"
	"github.com/vmunix/dubwatch/internal/webhook"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 200 { // Only capture first WriteHeader call
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func runServer(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	// Ensure data directories exist
	for _, p := range []string{cfg.Database.Path, cfg.Ledger.Path} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	historyStore := history.NewStore(db)
	if err := historyStore.Init(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var led ledger.Ledger
	switch cfg.Ledger.Backend {
	case "file":
		led = ledger.NewFile(cfg.Ledger.Path, cfg.Ledger.Capacity)
	default:
		led = ledger.NewMemory(cfg.Ledger.Capacity)
	}

	plex := catalog.NewClient(cfg.Plex.URL, cfg.Plex.Token)

	resolver := resolve.New(plex, resolve.Config{
		FuzzyCutoff:  cfg.Processing.FuzzyCutoff,
		ShowRetries:  cfg.Processing.ShowRetries,
		MovieRetries: cfg.Processing.MovieRetries,
		RetryDelay:   cfg.Processing.Delay(),
		EpisodeMatch: resolve.EpisodeMatchMode(cfg.Processing.EpisodeMatch),
	}, logger)

	reconciler := collection.New(plex, collection.Config{
		Name:      cfg.Processing.CollectionName,
		MaxSize:   cfg.Processing.MaxCollectionSize,
		Repromote: cfg.Processing.Repromote,
	}, logger)

	classifier := webhook.Classifier{RecentDays: cfg.Processing.RecentDays}

	var tvRouter, movieRouter *router.Router
	if cfg.Libraries.Series != "" {
		tvRouter = router.New(router.Config{
			Source:  webhook.SourceTV,
			Section: cfg.Libraries.Series,
			Async:   cfg.Processing.Async,
		}, classifier, led, resolver, reconciler, historyStore, logger)
	}
	if cfg.Libraries.Movies != "" {
		movieRouter = router.New(router.Config{
			Source:  webhook.SourceMovie,
			Section: cfg.Libraries.Movies,
			Async:   cfg.Processing.Async,
		}, classifier, led, resolver, reconciler, historyStore, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runHistoryPruner(ctx, historyStore, logger.With("component", "pruner"))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/sonarr", webhookHandler(webhook.SourceTV, tvRouter, logger))
	mux.HandleFunc("POST /webhook/radarr", webhookHandler(webhook.SourceMovie, movieRouter, logger))
	mux.HandleFunc("GET /api/history", historyHandler(historyStore))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting",
		"addr", addr,
		"database", cfg.Database.Path,
		"ledger", cfg.Ledger.Backend,
		"series", cfg.Libraries.Series,
		"movies", cfg.Libraries.Movies,
		"log_level", cfg.Server.LogLevel,
	)

	srv := &http.Server{Addr: addr, Handler: logRequests(mux, logger)}

	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())

	cancel()

	// Let in-flight async processing finish before the catalog client goes away.
	for _, r := range []*router.Router{tvRouter, movieRouter} {
		if r != nil {
			r.Wait()
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// webhookHandler decodes the payload and hands it to the router. The
// response is always 200: upstream senders do not retry on application
// failures, so the contract is acknowledge receipt, best-effort process.
func webhookHandler(source webhook.Source, rt *router.Router, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("Webhook received\n"))
		}()

		if rt == nil {
			logger.Warn("webhook received for unconfigured source", "source", string(source))
			return
		}

		event, err := webhook.Decode(source, r.Body)
		if err != nil {
			logger.Warn("malformed webhook payload", "source", string(source), "error", err)
			return
		}
		rt.Handle(r.Context(), event)
	}
}

func historyHandler(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := store.Recent(50)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(records)
	}
}

func runHistoryPruner(ctx context.Context, store *history.Store, log *slog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := store.Prune(30 * 24 * time.Hour)
			if err != nil {
				log.Error("prune failed", "error", err)
				continue
			}
			if pruned > 0 {
				log.Info("pruned history", "records", pruned)
			}
		}
	}
}
