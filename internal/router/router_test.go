package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/dubwatch/internal/catalog"
	"github.com/vmunix/dubwatch/internal/history"
	"github.com/vmunix/dubwatch/internal/ledger"
	"github.com/vmunix/dubwatch/internal/webhook"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeResolver struct {
	item  *catalog.Item
	err   error
	calls int
}

func (f *fakeResolver) ResolveEpisode(ctx context.Context, section, show, episodeTitle string, season, episode int) (*catalog.Item, error) {
	f.calls++
	return f.item, f.err
}

func (f *fakeResolver) ResolveMovie(ctx context.Context, section, title string) (*catalog.Item, error) {
	f.calls++
	return f.item, f.err
}

type fakeReconciler struct {
	err   error
	calls int
	items []catalog.Item
}

func (f *fakeReconciler) Reconcile(ctx context.Context, section string, item catalog.Item) error {
	f.calls++
	f.items = append(f.items, item)
	return f.err
}

type fakeHistory struct {
	records []history.Record
}

func (f *fakeHistory) Append(r *history.Record) (int64, error) {
	f.records = append(f.records, *r)
	return int64(len(f.records)), nil
}

type errLedger struct{}

func (errLedger) RecordDeletion(int64) error            { return errors.New("lock contention") }
func (errLedger) WasRecentlyDeleted(int64) (bool, error) { return false, errors.New("lock contention") }

func testRouter(source webhook.Source, led ledger.Ledger, res *fakeResolver, rec *fakeReconciler, hist History) *Router {
	return New(
		Config{Source: source, Section: "TV Shows"},
		webhook.Classifier{RecentDays: 3},
		led, res, rec, hist, testLogger(),
	)
}

func recentDate() *time.Time {
	d := time.Now().UTC().AddDate(0, 0, -2)
	return &d
}

func downloadEvent(mediaID int64) *webhook.Event {
	return &webhook.Event{
		Source:         webhook.SourceTV,
		Kind:           webhook.KindDownload,
		MediaID:        mediaID,
		ShowTitle:      "Frieren: Beyond Journey's End",
		EpisodeTitle:   "The Journey's End",
		SeasonNumber:   1,
		EpisodeNumber:  28,
		ReleaseDate:    recentDate(),
		AudioLanguages: []string{"eng"},
	}
}

func TestHandle_DownloadResolvedAndReconciled(t *testing.T) {
	res := &fakeResolver{item: &catalog.Item{RatingKey: "200", Title: "The Journey's End"}}
	rec := &fakeReconciler{}
	hist := &fakeHistory{}
	r := testRouter(webhook.SourceTV, ledger.NewMemory(100), res, rec, hist)

	r.Handle(context.Background(), downloadEvent(4242))

	assert.Equal(t, 1, res.calls)
	require.Equal(t, 1, rec.calls)
	assert.Equal(t, "200", rec.items[0].RatingKey)

	require.Len(t, hist.records, 1)
	assert.Equal(t, history.OutcomeReconciled, hist.records[0].Outcome)
}

func TestHandle_UpgradeCycleSkipsRedownload(t *testing.T) {
	res := &fakeResolver{item: &catalog.Item{RatingKey: "200"}}
	rec := &fakeReconciler{}
	hist := &fakeHistory{}
	led := ledger.NewMemory(100)
	r := testRouter(webhook.SourceTV, led, res, rec, hist)

	// Deletion due to upgrade, then the replacement download for the same id.
	deletion := &webhook.Event{
		Source:         webhook.SourceTV,
		Kind:           webhook.KindFileDelete,
		DeleteReason:   "upgrade",
		MediaID:        42,
		ShowTitle:      "Spice and Wolf",
		AudioLanguages: []string{"eng"},
	}
	r.Handle(context.Background(), deletion)

	download := downloadEvent(42)
	download.IsUpgrade = true
	r.Handle(context.Background(), download)

	assert.Zero(t, res.calls, "download after an upgrade deletion must not resolve")
	assert.Zero(t, rec.calls, "collection must stay unchanged")

	require.Len(t, hist.records, 2)
	assert.Equal(t, history.OutcomeDeletionRecorded, hist.records[0].Outcome)
	assert.Equal(t, history.OutcomeSkipped, hist.records[1].Outcome)
}

func TestHandle_DeletionWithoutUpgradeReasonIgnored(t *testing.T) {
	res := &fakeResolver{}
	rec := &fakeReconciler{}
	led := ledger.NewMemory(100)
	r := testRouter(webhook.SourceTV, led, res, rec, nil)

	deletion := &webhook.Event{
		Source:         webhook.SourceTV,
		Kind:           webhook.KindFileDelete,
		DeleteReason:   "manual",
		MediaID:        42,
		ShowTitle:      "Spice and Wolf",
		AudioLanguages: []string{"eng"},
	}
	r.Handle(context.Background(), deletion)

	hit, err := led.WasRecentlyDeleted(42)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestHandle_NotDubbedSkipsWithoutCatalogCalls(t *testing.T) {
	res := &fakeResolver{}
	rec := &fakeReconciler{}
	hist := &fakeHistory{}
	r := testRouter(webhook.SourceTV, ledger.NewMemory(100), res, rec, hist)

	e := downloadEvent(7)
	e.AudioLanguages = []string{"jpn"}
	r.Handle(context.Background(), e)

	assert.Zero(t, res.calls)
	assert.Zero(t, rec.calls)
	require.Len(t, hist.records, 1)
	assert.Equal(t, history.OutcomeSkipped, hist.records[0].Outcome)
}

func TestHandle_StaleReleaseSkipped(t *testing.T) {
	res := &fakeResolver{}
	rec := &fakeReconciler{}
	r := testRouter(webhook.SourceTV, ledger.NewMemory(100), res, rec, nil)

	e := downloadEvent(7)
	old := time.Now().UTC().AddDate(0, 0, -30)
	e.ReleaseDate = &old
	r.Handle(context.Background(), e)

	assert.Zero(t, res.calls)
}

func TestHandle_ResolutionFailureIsTerminal(t *testing.T) {
	res := &fakeResolver{err: catalog.ErrNotFound}
	rec := &fakeReconciler{}
	hist := &fakeHistory{}
	r := testRouter(webhook.SourceTV, ledger.NewMemory(100), res, rec, hist)

	r.Handle(context.Background(), downloadEvent(7))

	assert.Zero(t, rec.calls)
	require.Len(t, hist.records, 1)
	assert.Equal(t, history.OutcomeResolutionFailed, hist.records[0].Outcome)
}

func TestHandle_ReconcileFailureRecorded(t *testing.T) {
	res := &fakeResolver{item: &catalog.Item{RatingKey: "200"}}
	rec := &fakeReconciler{err: errors.New("plex timeout")}
	hist := &fakeHistory{}
	r := testRouter(webhook.SourceTV, ledger.NewMemory(100), res, rec, hist)

	r.Handle(context.Background(), downloadEvent(7))

	require.Len(t, hist.records, 1)
	assert.Equal(t, history.OutcomeFailed, hist.records[0].Outcome)
}

func TestHandle_LedgerErrorFallsThroughToProcessing(t *testing.T) {
	res := &fakeResolver{item: &catalog.Item{RatingKey: "200"}}
	rec := &fakeReconciler{}
	r := testRouter(webhook.SourceTV, errLedger{}, res, rec, nil)

	r.Handle(context.Background(), downloadEvent(7))

	assert.Equal(t, 1, rec.calls, "ledger trouble must not block best-effort processing")
}

func TestHandle_MovieEventUsesMoviePath(t *testing.T) {
	res := &fakeResolver{item: &catalog.Item{RatingKey: "500", Title: "The Great Escape"}}
	rec := &fakeReconciler{}
	r := testRouter(webhook.SourceMovie, ledger.NewMemory(100), res, rec, nil)

	e := &webhook.Event{
		Source:         webhook.SourceMovie,
		Kind:           webhook.KindDownload,
		MediaID:        99,
		MovieTitle:     "The Great Escape",
		ReleaseDate:    recentDate(),
		AudioLanguages: []string{"eng"},
	}
	r.Handle(context.Background(), e)

	assert.Equal(t, 1, res.calls)
	assert.Equal(t, 1, rec.calls)
}

func TestHandle_AsyncCompletesAfterWait(t *testing.T) {
	res := &fakeResolver{item: &catalog.Item{RatingKey: "200"}}
	rec := &fakeReconciler{}
	r := New(
		Config{Source: webhook.SourceTV, Section: "TV Shows", Async: true, Workers: 2},
		webhook.Classifier{RecentDays: 3},
		ledger.NewMemory(100), res, rec, nil, testLogger(),
	)

	r.Handle(context.Background(), downloadEvent(7))
	r.Wait()

	assert.Equal(t, 1, rec.calls)
}

func TestHandle_IgnoredEventKind(t *testing.T) {
	res := &fakeResolver{}
	rec := &fakeReconciler{}
	r := testRouter(webhook.SourceTV, ledger.NewMemory(100), res, rec, nil)

	r.Handle(context.Background(), &webhook.Event{
		Source:    webhook.SourceTV,
		Kind:      webhook.KindIgnored,
		ShowTitle: "Whatever",
	})

	assert.Zero(t, res.calls)
	assert.Zero(t, rec.calls)
}
