// Package resolve maps loosely-specified show/episode and movie references
// to concrete library items, with bounded retries and fuzzy-match fallback.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/dubwatch/internal/catalog"
)

// EpisodeMatchMode selects how episodes are located within a resolved show.
type EpisodeMatchMode string

const (
	// MatchByNumber locates episodes by (season, episode). Numbers are
	// exact integers, so there is no fuzzy fallback.
	MatchByNumber EpisodeMatchMode = "number"
	// MatchByTitle fuzzy-matches the free-text episode title; some upstream
	// payloads populate the title but not usable numbers.
	MatchByTitle EpisodeMatchMode = "title"
)

// Catalog is the library surface the resolver depends on.
type Catalog interface {
	SectionItems(ctx context.Context, section string) ([]catalog.Item, error)
	FindByTitle(ctx context.Context, section, title string) (*catalog.Item, error)
	FindEpisode(ctx context.Context, showKey string, season, episode int) (*catalog.Item, error)
	Episodes(ctx context.Context, showKey string) ([]catalog.Episode, error)
}

// Config carries the resolver's tunables.
type Config struct {
	// FuzzyCutoff is the minimum 0-100 similarity score accepted from a
	// fuzzy match.
	FuzzyCutoff int
	// ShowRetries bounds exact-lookup attempts on the TV path; the
	// download tool's webhook can fire before Plex finishes scanning.
	ShowRetries int
	// MovieRetries bounds exact-lookup attempts on the movie path.
	MovieRetries int
	// RetryDelay is the fixed wait between attempts.
	RetryDelay time.Duration
	// EpisodeMatch selects number-based or title-based episode lookup.
	EpisodeMatch EpisodeMatchMode
}

// Resolver resolves media references against the library catalog.
type Resolver struct {
	catalog Catalog
	cfg     Config
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// New creates a resolver.
func New(cat Catalog, cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		catalog: cat,
		cfg:     cfg,
		logger:  logger.With("component", "resolver"),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ResolveEpisode resolves a (show, season, episode) reference in the named
// section. Returns catalog.ErrNotFound when the show or episode cannot be
// located after retries and fuzzy fallback.
func (r *Resolver) ResolveEpisode(ctx context.Context, section, show, episodeTitle string, season, episode int) (*catalog.Item, error) {
	showItem, err := r.resolveShow(ctx, section, show)
	if err != nil {
		return nil, err
	}

	if r.cfg.EpisodeMatch == MatchByTitle {
		return r.episodeByTitle(ctx, showItem, episodeTitle)
	}
	return r.episodeByNumber(ctx, showItem, season, episode)
}

// resolveShow tries exact lookup with retries, then a fuzzy pass over every
// title in the section.
func (r *Resolver) resolveShow(ctx context.Context, section, show string) (*catalog.Item, error) {
	item, err := r.withRetries(ctx, r.cfg.ShowRetries, func() (*catalog.Item, error) {
		return r.catalog.FindByTitle(ctx, section, show)
	})
	if err == nil {
		r.logger.Info("resolved show", "show", show, "title", item.Title)
		return item, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}

	r.logger.Info("exact lookup failed, attempting fuzzy match", "show", show)
	return r.fuzzyLookup(ctx, section, show)
}

// fuzzyLookup scores every title in the section and accepts the best match
// only above the cutoff.
func (r *Resolver) fuzzyLookup(ctx context.Context, section, query string) (*catalog.Item, error) {
	items, err := r.catalog.SectionItems(ctx, section)
	if err != nil {
		return nil, err
	}

	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = item.Title
	}

	best := BestMatch(query, titles)
	if best.Score < r.cfg.FuzzyCutoff {
		r.logger.Error("no close match above cutoff",
			"query", query, "best", best.Title, "score", best.Score, "cutoff", r.cfg.FuzzyCutoff)
		return nil, fmt.Errorf("fuzzy match %q: %w", query, catalog.ErrNotFound)
	}

	for i := range items {
		if items[i].Title == best.Title {
			r.logger.Info("resolved by fuzzy match", "query", query, "title", best.Title, "score", best.Score)
			return &items[i], nil
		}
	}
	return nil, fmt.Errorf("fuzzy match %q: %w", query, catalog.ErrNotFound)
}

func (r *Resolver) episodeByNumber(ctx context.Context, show *catalog.Item, season, episode int) (*catalog.Item, error) {
	item, err := r.withRetries(ctx, r.cfg.ShowRetries, func() (*catalog.Item, error) {
		return r.catalog.FindEpisode(ctx, show.RatingKey, season, episode)
	})
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			r.logger.Error("episode not found after retries",
				"show", show.Title, "season", season, "episode", episode)
		}
		return nil, err
	}
	r.logger.Info("resolved episode", "show", show.Title, "season", season, "episode", episode, "title", item.Title)
	return item, nil
}

func (r *Resolver) episodeByTitle(ctx context.Context, show *catalog.Item, title string) (*catalog.Item, error) {
	episodes, err := r.catalog.Episodes(ctx, show.RatingKey)
	if err != nil {
		return nil, err
	}

	titles := make([]string, len(episodes))
	for i, ep := range episodes {
		titles[i] = ep.Title
	}

	best := BestMatch(title, titles)
	if best.Score < r.cfg.FuzzyCutoff {
		r.logger.Error("no episode title above cutoff",
			"show", show.Title, "query", title, "best", best.Title, "score", best.Score)
		return nil, fmt.Errorf("episode %q: %w", title, catalog.ErrNotFound)
	}

	for i := range episodes {
		if episodes[i].Title == best.Title {
			item := episodes[i].Item
			r.logger.Info("resolved episode by title", "show", show.Title, "title", item.Title, "score", best.Score)
			return &item, nil
		}
	}
	return nil, fmt.Errorf("episode %q: %w", title, catalog.ErrNotFound)
}

// ResolveMovie resolves a movie title in the named section with the same
// exact-then-fuzzy policy as shows.
func (r *Resolver) ResolveMovie(ctx context.Context, section, title string) (*catalog.Item, error) {
	item, err := r.withRetries(ctx, r.cfg.MovieRetries, func() (*catalog.Item, error) {
		return r.catalog.FindByTitle(ctx, section, title)
	})
	if err == nil {
		r.logger.Info("resolved movie", "title", item.Title)
		return item, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}
	return r.fuzzyLookup(ctx, section, title)
}

// withRetries runs fn up to attempts times, sleeping the configured delay
// between tries. Only ErrNotFound is retried; other errors return
// immediately.
func (r *Resolver) withRetries(ctx context.Context, attempts int, fn func() (*catalog.Item, error)) (*catalog.Item, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := r.sleep(ctx, r.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
		item, err := fn()
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
