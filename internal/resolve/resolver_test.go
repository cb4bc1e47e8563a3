package resolve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/dubwatch/internal/catalog"
	"github.com/vmunix/dubwatch/internal/resolve/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResolver(cat Catalog, cfg Config) (*Resolver, *int) {
	r := New(cat, cfg, testLogger())
	sleeps := 0
	r.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return nil
	}
	return r, &sleeps
}

var defaultCfg = Config{
	FuzzyCutoff:  75,
	ShowRetries:  3,
	MovieRetries: 1,
	RetryDelay:   10 * time.Second,
	EpisodeMatch: MatchByNumber,
}

func TestResolveEpisode_ExactFirstTry(t *testing.T) {
	ctrl := gomock.NewController(t)
	cat := mocks.NewMockCatalog(ctrl)

	show := &catalog.Item{RatingKey: "100", Title: "Frieren: Beyond Journey's End", Type: "show"}
	episode := &catalog.Item{RatingKey: "200", Title: "The Journey's End", Type: "episode"}

	cat.EXPECT().
		FindByTitle(gomock.Any(), "TV Shows", "Frieren: Beyond Journey's End").
		Return(show, nil)
	cat.EXPECT().
		FindEpisode(gomock.Any(), "100", 1, 28).
		Return(episode, nil)

	r, sleeps := testResolver(cat, defaultCfg)
	item, err := r.ResolveEpisode(context.Background(), "TV Shows", "Frieren: Beyond Journey's End", "", 1, 28)

	require.NoError(t, err)
	assert.Equal(t, "200", item.RatingKey)
	assert.Zero(t, *sleeps, "no retries means no waiting")
}

func TestResolveEpisode_RetriesThenFinds(t *testing.T) {
	ctrl := gomock.NewController(t)
	cat := mocks.NewMockCatalog(ctrl)

	show := &catalog.Item{RatingKey: "100", Title: "Spice and Wolf"}
	episode := &catalog.Item{RatingKey: "201", Title: "Wolf and Best Clothes"}

	// Show found immediately; the episode appears only on the third
	// attempt, as when the webhook outruns the library scan.
	cat.EXPECT().FindByTitle(gomock.Any(), "TV Shows", "Spice and Wolf").Return(show, nil)
	notFound := cat.EXPECT().FindEpisode(gomock.Any(), "100", 1, 2).
		Return(nil, catalog.ErrNotFound).Times(2)
	cat.EXPECT().FindEpisode(gomock.Any(), "100", 1, 2).
		Return(episode, nil).After(notFound)

	r, sleeps := testResolver(cat, defaultCfg)
	item, err := r.ResolveEpisode(context.Background(), "TV Shows", "Spice and Wolf", "", 1, 2)

	require.NoError(t, err)
	assert.Equal(t, "201", item.RatingKey)
	assert.Equal(t, 2, *sleeps)
}

func TestResolveEpisode_FuzzyFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	cat := mocks.NewMockCatalog(ctrl)

	episode := &catalog.Item{RatingKey: "210", Title: "First Episode"}

	cat.EXPECT().FindByTitle(gomock.Any(), "TV Shows", "Frieren Beyond Journeys End (2023)").
		Return(nil, catalog.ErrNotFound).Times(3)
	cat.EXPECT().SectionItems(gomock.Any(), "TV Shows").Return([]catalog.Item{
		{RatingKey: "100", Title: "Frieren: Beyond Journey's End"},
		{RatingKey: "101", Title: "Bocchi the Rock!"},
	}, nil)
	cat.EXPECT().FindEpisode(gomock.Any(), "100", 1, 1).Return(episode, nil)

	r, _ := testResolver(cat, defaultCfg)
	item, err := r.ResolveEpisode(context.Background(), "TV Shows", "Frieren Beyond Journeys End (2023)", "", 1, 1)

	require.NoError(t, err)
	assert.Equal(t, "210", item.RatingKey)
}

func TestResolveEpisode_FuzzyBelowCutoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	cat := mocks.NewMockCatalog(ctrl)

	cat.EXPECT().FindByTitle(gomock.Any(), "TV Shows", "Mushoku Tensei").
		Return(nil, catalog.ErrNotFound).Times(3)
	cat.EXPECT().SectionItems(gomock.Any(), "TV Shows").Return([]catalog.Item{
		{RatingKey: "101", Title: "Bocchi the Rock!"},
	}, nil)

	r, _ := testResolver(cat, defaultCfg)
	_, err := r.ResolveEpisode(context.Background(), "TV Shows", "Mushoku Tensei", "", 1, 1)

	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestResolveEpisode_NoFuzzyForNumbers(t *testing.T) {
	ctrl := gomock.NewController(t)
	cat := mocks.NewMockCatalog(ctrl)

	show := &catalog.Item{RatingKey: "100", Title: "Spice and Wolf"}

	cat.EXPECT().FindByTitle(gomock.Any(), "TV Shows", "Spice and Wolf").Return(show, nil)
	// Season/episode numbers are exact; after retries the resolver gives up
	// without consulting section titles.
	cat.EXPECT().FindEpisode(gomock.Any(), "100", 9, 9).
		Return(nil, catalog.ErrNotFound).Times(3)

	r, _ := testResolver(cat, defaultCfg)
	_, err := r.ResolveEpisode(context.Background(), "TV Shows", "Spice and Wolf", "", 9, 9)

	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestResolveEpisode_ByTitleMode(t *testing.T) {
	ctrl := gomock.NewController(t)
	cat := mocks.NewMockCatalog(ctrl)

	show := &catalog.Item{RatingKey: "100", Title: "Frieren: Beyond Journey's End"}

	cfg := defaultCfg
	cfg.EpisodeMatch = MatchByTitle

	cat.EXPECT().FindByTitle(gomock.Any(), "TV Shows", "Frieren: Beyond Journey's End").Return(show, nil)
	cat.EXPECT().Episodes(gomock.Any(), "100").Return([]catalog.Episode{
		{Item: catalog.Item{RatingKey: "200", Title: "The Journey's End"}, SeasonNumber: 1, EpisodeNumber: 1},
		{Item: catalog.Item{RatingKey: "201", Title: "It Would Be Embarrassing"}, SeasonNumber: 1, EpisodeNumber: 2},
	}, nil)

	r, _ := testResolver(cat, cfg)
	item, err := r.ResolveEpisode(context.Background(), "TV Shows", "Frieren: Beyond Journey's End", "The Journeys End", 0, 0)

	require.NoError(t, err)
	assert.Equal(t, "200", item.RatingKey)
}

func TestResolveEpisode_CatalogErrorNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	cat := mocks.NewMockCatalog(ctrl)

	boom := errors.New("plex timeout")
	cat.EXPECT().FindByTitle(gomock.Any(), "TV Shows", "Frieren").Return(nil, boom)

	r, sleeps := testResolver(cat, defaultCfg)
	_, err := r.ResolveEpisode(context.Background(), "TV Shows", "Frieren", "", 1, 1)

	require.ErrorIs(t, err, boom)
	assert.Zero(t, *sleeps)
}

func TestResolveMovie_Exact(t *testing.T) {
	ctrl := gomock.NewController(t)
	cat := mocks.NewMockCatalog(ctrl)

	movie := &catalog.Item{RatingKey: "500", Title: "The Great Escape", Type: "movie"}
	cat.EXPECT().FindByTitle(gomock.Any(), "Movies", "The Great Escape").Return(movie, nil)

	r, _ := testResolver(cat, defaultCfg)
	item, err := r.ResolveMovie(context.Background(), "Movies", "The Great Escape")

	require.NoError(t, err)
	assert.Equal(t, "500", item.RatingKey)
}

func TestResolveMovie_SingleAttemptThenFuzzy(t *testing.T) {
	ctrl := gomock.NewController(t)
	cat := mocks.NewMockCatalog(ctrl)

	// One exact attempt only on the movie path, then straight to fuzzy.
	cat.EXPECT().FindByTitle(gomock.Any(), "Movies", "The Great Escape (2020)").
		Return(nil, catalog.ErrNotFound)
	cat.EXPECT().SectionItems(gomock.Any(), "Movies").Return([]catalog.Item{
		{RatingKey: "500", Title: "The Great Escape"},
		{RatingKey: "501", Title: "Escape Room"},
	}, nil)

	r, sleeps := testResolver(cat, defaultCfg)
	item, err := r.ResolveMovie(context.Background(), "Movies", "The Great Escape (2020)")

	require.NoError(t, err)
	assert.Equal(t, "500", item.RatingKey)
	assert.Zero(t, *sleeps)
}

func TestResolveMovie_StrictCutoffRejectsYearSuffix(t *testing.T) {
	ctrl := gomock.NewController(t)
	cat := mocks.NewMockCatalog(ctrl)

	cat.EXPECT().FindByTitle(gomock.Any(), "Movies", "The Great Escape (2020)").
		Return(nil, catalog.ErrNotFound)
	cat.EXPECT().SectionItems(gomock.Any(), "Movies").Return([]catalog.Item{
		{RatingKey: "500", Title: "The Great Escape"},
	}, nil)

	cfg := defaultCfg
	cfg.FuzzyCutoff = 95
	r, _ := testResolver(cat, cfg)
	_, err := r.ResolveMovie(context.Background(), "Movies", "The Great Escape (2020)")

	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestResolver_CanceledContextStopsRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	cat := mocks.NewMockCatalog(ctrl)

	cat.EXPECT().FindByTitle(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, catalog.ErrNotFound)

	r := New(cat, defaultCfg, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ResolveEpisode(ctx, "TV Shows", "Frieren", "", 1, 1)
	require.ErrorIs(t, err, context.Canceled)
}
