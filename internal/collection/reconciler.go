// Package collection keeps the "Latest Dubs" collection consistent: present,
// front-loaded with the newest item, and never over its size cap.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/vmunix/dubwatch/internal/catalog"
)

// Catalog is the library surface the reconciler depends on.
type Catalog interface {
	Collections(ctx context.Context, section string) ([]catalog.Collection, error)
	CollectionItems(ctx context.Context, col catalog.Collection) ([]catalog.Item, error)
	CreateCollection(ctx context.Context, section, name string, item catalog.Item) (*catalog.Collection, error)
	AddToCollection(ctx context.Context, col catalog.Collection, item catalog.Item) error
	MoveToFront(ctx context.Context, col catalog.Collection, item catalog.Item) error
	RemoveFromCollection(ctx context.Context, col catalog.Collection, items []catalog.Item) error
	SetCustomSort(ctx context.Context, col catalog.Collection) error
}

// Config carries the reconciler's tunables.
type Config struct {
	// Name is the collection title, "Latest Dubs" by default.
	Name string
	// MaxSize caps collection membership; excess items are trimmed oldest
	// release date first.
	MaxSize int
	// Repromote moves an already-present item back to the front instead of
	// leaving it in place.
	Repromote bool
}

// Reconciler applies the collection invariants after an item qualifies.
type Reconciler struct {
	catalog Catalog
	cfg     Config
	logger  *slog.Logger
}

// New creates a reconciler.
func New(cat Catalog, cfg Config, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "Latest Dubs"
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 100
	}
	return &Reconciler{
		catalog: cat,
		cfg:     cfg,
		logger:  logger.With("component", "reconciler"),
	}
}

// Reconcile ensures the collection exists in the section, contains item at
// the front, and is within the size cap. The calls are remote writes and not
// transactional: a failure partway can leave the collection over-size or
// missing the front promotion until the next reconciliation, but the newly
// added item itself is never dropped.
func (r *Reconciler) Reconcile(ctx context.Context, section string, item catalog.Item) error {
	col, err := r.find(ctx, section)
	if err != nil {
		return err
	}

	if col == nil {
		created, err := r.catalog.CreateCollection(ctx, section, r.cfg.Name, item)
		if err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		if err := r.catalog.SetCustomSort(ctx, *created); err != nil {
			return fmt.Errorf("set sort mode: %w", err)
		}
		r.logger.Info("created collection", "collection", r.cfg.Name, "title", item.Title)
		return nil
	}

	items, err := r.catalog.CollectionItems(ctx, *col)
	if err != nil {
		return fmt.Errorf("list collection items: %w", err)
	}

	if member(items, item) {
		r.logger.Info("already in collection", "collection", r.cfg.Name, "title", item.Title)
		if r.cfg.Repromote {
			if err := r.catalog.MoveToFront(ctx, *col, item); err != nil {
				return fmt.Errorf("repromote: %w", err)
			}
			r.logger.Info("repromoted to front", "collection", r.cfg.Name, "title", item.Title)
		}
	} else {
		if err := r.catalog.AddToCollection(ctx, *col, item); err != nil {
			return fmt.Errorf("add to collection: %w", err)
		}
		if err := r.catalog.MoveToFront(ctx, *col, item); err != nil {
			return fmt.Errorf("move to front: %w", err)
		}
		r.logger.Info("added to collection", "collection", r.cfg.Name, "title", item.Title)
		items = append(items, item)
	}

	return r.trim(ctx, *col, items, item)
}

func (r *Reconciler) find(ctx context.Context, section string) (*catalog.Collection, error) {
	cols, err := r.catalog.Collections(ctx, section)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	for i := range cols {
		if cols[i].Title == r.cfg.Name {
			return &cols[i], nil
		}
	}
	return nil, nil
}

// trim removes the items beyond the cap, oldest release date first, in one
// bulk removal. The just-reconciled item is never a trim candidate. Trimming
// is idempotent: running it redundantly under concurrent reconciliations
// converges on the same membership.
func (r *Reconciler) trim(ctx context.Context, col catalog.Collection, items []catalog.Item, keep catalog.Item) error {
	excess := len(items) - r.cfg.MaxSize
	if excess <= 0 {
		return nil
	}

	candidates := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		if it.RatingKey != keep.RatingKey {
			candidates = append(candidates, it)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return releaseDate(candidates[i]).Before(releaseDate(candidates[j]))
	})

	if excess > len(candidates) {
		excess = len(candidates)
	}
	remove := candidates[:excess]
	for _, it := range remove {
		r.logger.Info("trimming from collection", "collection", col.Title, "title", it.Title)
	}

	if err := r.catalog.RemoveFromCollection(ctx, col, remove); err != nil {
		return fmt.Errorf("trim collection: %w", err)
	}
	return nil
}

// releaseDate orders items with no date as oldest.
func releaseDate(item catalog.Item) time.Time {
	if item.ReleaseDate == nil {
		return time.Time{}
	}
	return *item.ReleaseDate
}

func member(items []catalog.Item, item catalog.Item) bool {
	for _, it := range items {
		if it.RatingKey == item.RatingKey {
			return true
		}
	}
	return false
}
