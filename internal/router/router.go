// Package router orchestrates the per-event pipeline: classify, consult the
// dedup ledger, resolve against the catalog, and reconcile the collection.
package router

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/dubwatch/internal/catalog"
	"github.com/vmunix/dubwatch/internal/history"
	"github.com/vmunix/dubwatch/internal/ledger"
	"github.com/vmunix/dubwatch/internal/webhook"
)

// reasonUpgrade is the delete reason that marks a file-replace cycle.
const reasonUpgrade = "upgrade"

// Resolver maps event references to catalog items.
type Resolver interface {
	ResolveEpisode(ctx context.Context, section, show, episodeTitle string, season, episode int) (*catalog.Item, error)
	ResolveMovie(ctx context.Context, section, title string) (*catalog.Item, error)
}

// Reconciler applies the collection invariants for a resolved item.
type Reconciler interface {
	Reconcile(ctx context.Context, section string, item catalog.Item) error
}

// History records terminal event outcomes. May be nil.
type History interface {
	Append(r *history.Record) (int64, error)
}

// Config carries per-source routing settings.
type Config struct {
	// Source is the upstream tool this router serves.
	Source webhook.Source
	// Section is the library section events from this source resolve in.
	Section string
	// Async offloads the download branch so the webhook response returns
	// immediately.
	Async bool
	// Workers bounds concurrent async download processing.
	Workers int
}

// Router handles events from one upstream source. Routers for different
// sources share the classifier and ledger.
type Router struct {
	cfg        Config
	classifier webhook.Classifier
	ledger     ledger.Ledger
	resolver   Resolver
	reconciler Reconciler
	history    History
	logger     *slog.Logger
	now        func() time.Time

	group *errgroup.Group
}

// New creates a router for one source.
func New(cfg Config, cls webhook.Classifier, led ledger.Ledger, res Resolver, rec Reconciler, hist History, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	group := &errgroup.Group{}
	group.SetLimit(cfg.Workers)
	return &Router{
		cfg:        cfg,
		classifier: cls,
		ledger:     led,
		resolver:   res,
		reconciler: rec,
		history:    hist,
		logger:     logger.With("component", "router", "source", string(cfg.Source)),
		now:        time.Now,
		group:      group,
	}
}

// Handle runs the event through the pipeline. It never returns an error:
// webhook senders are fire-and-forget, so every internal failure degrades to
// a logged outcome.
func (r *Router) Handle(ctx context.Context, e *webhook.Event) {
	cls := r.classifier.Classify(e, r.now())
	r.logger.Info("event classified",
		"kind", e.Kind.String(),
		"title", e.Title(),
		"media_id", e.MediaID,
		"release_date", releaseDateField(e),
		"dubbed", cls.Dubbed,
		"upgrade", e.IsUpgrade,
	)

	if e.Kind == webhook.KindFileDelete {
		r.handleDeletion(e, cls)
		return
	}
	if e.Kind != webhook.KindDownload {
		r.logger.Info("skipping event", "reason", "unrecognized event type")
		return
	}

	deleted, err := r.ledger.WasRecentlyDeleted(e.MediaID)
	if err != nil {
		// Ledger storage trouble must not fail the event; fall through to
		// best-effort processing.
		r.logger.Error("ledger lookup failed", "media_id", e.MediaID, "error", err)
	}
	if deleted {
		r.logger.Info("skipping event", "reason", "previous upgrade of a dubbed release", "media_id", e.MediaID)
		r.record(e, history.OutcomeSkipped, "recently deleted for upgrade")
		return
	}

	if !cls.EligibleDownload {
		r.logger.Info("skipping event", "reason", "not dubbed, or neither upgrade nor recent release")
		r.record(e, history.OutcomeSkipped, "not eligible")
		return
	}

	if r.cfg.Async {
		// The request context dies when the webhook response is written.
		taskCtx := context.WithoutCancel(ctx)
		r.group.Go(func() error {
			r.process(taskCtx, e)
			return nil
		})
		return
	}
	r.process(ctx, e)
}

func (r *Router) handleDeletion(e *webhook.Event, cls webhook.Classification) {
	if e.DeleteReason != reasonUpgrade || !cls.Dubbed {
		r.logger.Info("skipping event", "reason", "deletion not a dubbed upgrade")
		return
	}
	if e.MediaID == 0 {
		r.logger.Warn("deletion event without media id", "title", e.Title())
		return
	}
	if err := r.ledger.RecordDeletion(e.MediaID); err != nil {
		r.logger.Error("recording deletion failed", "media_id", e.MediaID, "error", err)
		r.record(e, history.OutcomeFailed, err.Error())
		return
	}
	r.logger.Info("marked dubbed media as deleted for upgrade", "media_id", e.MediaID)
	r.record(e, history.OutcomeDeletionRecorded, "")
}

// process runs the resolve and reconcile stages. Failures terminate the
// event with a logged outcome; nothing propagates to the HTTP boundary.
func (r *Router) process(ctx context.Context, e *webhook.Event) {
	item, err := r.resolve(ctx, e)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			r.logger.Error("resolution failed", "title", e.Title(), "error", err)
			r.record(e, history.OutcomeResolutionFailed, err.Error())
			return
		}
		r.logger.Error("catalog error", "title", e.Title(), "error", err)
		r.record(e, history.OutcomeFailed, err.Error())
		return
	}

	if err := r.reconciler.Reconcile(ctx, r.cfg.Section, *item); err != nil {
		r.logger.Error("reconciliation failed", "title", item.Title, "error", err)
		r.record(e, history.OutcomeFailed, err.Error())
		return
	}
	r.logger.Info("event reconciled", "title", item.Title, "media_id", e.MediaID)
	r.record(e, history.OutcomeReconciled, item.Title)
}

func (r *Router) resolve(ctx context.Context, e *webhook.Event) (*catalog.Item, error) {
	if e.Source == webhook.SourceMovie {
		return r.resolver.ResolveMovie(ctx, r.cfg.Section, e.MovieTitle)
	}
	return r.resolver.ResolveEpisode(ctx, r.cfg.Section, e.ShowTitle, e.EpisodeTitle, e.SeasonNumber, e.EpisodeNumber)
}

func (r *Router) record(e *webhook.Event, outcome history.Outcome, detail string) {
	if r.history == nil {
		return
	}
	_, err := r.history.Append(&history.Record{
		Source:     string(e.Source),
		EventKind:  e.Kind.String(),
		MediaID:    e.MediaID,
		Title:      e.Title(),
		Outcome:    outcome,
		Detail:     detail,
		OccurredAt: r.now(),
	})
	if err != nil {
		r.logger.Error("recording history failed", "error", err)
	}
}

// Wait blocks until in-flight async processing finishes.
func (r *Router) Wait() {
	_ = r.group.Wait()
}

func releaseDateField(e *webhook.Event) string {
	if e.ReleaseDate == nil {
		return ""
	}
	return e.ReleaseDate.Format("2006-01-02")
}
