// Package service holds the catalog's business logic: feeds, ratings and
// viewing history.  It talks to storage through the small interfaces below so
// the ranking rules can be exercised without a database.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/movie-catalog/internal/config"
	"github.com/iliyamo/movie-catalog/internal/logging"
	"github.com/iliyamo/movie-catalog/internal/metrics"
	"github.com/iliyamo/movie-catalog/internal/model"
)

// MovieStore is the movie persistence used by MovieService.
type MovieStore interface {
	Create(ctx context.Context, m *model.Movie) error
	Update(ctx context.Context, m *model.Movie) error
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]*model.Movie, error)
	List(ctx context.Context) ([]*model.Movie, error)
	Newest(ctx context.Context, limit int) ([]*model.Movie, error)
	ListByCategories(ctx context.Context, categories []string, exclude []uint64) ([]*model.Movie, error)
}

// RatingStore replaces a reviewer's rating atomically.
type RatingStore interface {
	Upsert(ctx context.Context, movieID uint64, rt model.Rating) (*model.Rating, error)
}

// SeenStore is the append-only viewing history.
type SeenStore interface {
	Record(ctx context.Context, e *model.SeenEvent) error
	Recent(ctx context.Context, username string, limit int) ([]model.SeenEvent, error)
	LastSeenMovieIDs(ctx context.Context, username string, limit int) ([]uint64, error)
	SeenMovieIDs(ctx context.Context, username string) ([]uint64, error)
	CountSince(ctx context.Context, cutoff time.Time, distinctViewers bool, limit int) ([]model.ViewCount, error)
}

// WatchPublisher announces recorded watch events.  Failures never fail the
// request.
type WatchPublisher interface {
	PublishWatched(ctx context.Context, e model.SeenEvent, movieTitle string) error
}

// MovieService implements every catalog operation behind the HTTP handlers.
type MovieService struct {
	movies    MovieStore
	ratings   RatingStore
	seen      SeenStore
	publisher WatchPublisher
	feed      config.FeedConfig
	now       func() time.Time
}

// Option customizes a MovieService.
type Option func(*MovieService)

// WithClock replaces time.Now, used for window and timestamp computations.
func WithClock(now func() time.Time) Option { return func(s *MovieService) { s.now = now } }

// WithPublisher attaches a watch event publisher.
func WithPublisher(p WatchPublisher) Option { return func(s *MovieService) { s.publisher = p } }

// NewMovieService wires the service to its stores.  It panics on a nil store.
func NewMovieService(movies MovieStore, ratings RatingStore, seen SeenStore, feed config.FeedConfig, opts ...Option) *MovieService {
	if movies == nil || ratings == nil || seen == nil {
		panic("nil store passed to NewMovieService")
	}
	s := &MovieService{
		movies:  movies,
		ratings: ratings,
		seen:    seen,
		feed:    feed,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create stores m, stamping DateAdded with the current time when unset.
func (s *MovieService) Create(ctx context.Context, m *model.Movie) error {
	if m.DateAdded.IsZero() {
		m.DateAdded = s.now()
	}
	return s.movies.Create(ctx, m)
}

// Update replaces the stored movie with m.ID by m.
func (s *MovieService) Update(ctx context.Context, m *model.Movie) error {
	return s.movies.Update(ctx, m)
}

// Delete removes a movie along with its ratings and watch events.
func (s *MovieService) Delete(ctx context.Context, id uint64) error {
	return s.movies.Delete(ctx, id)
}

// Get returns one movie; an unknown id surfaces the store's not-found error.
func (s *MovieService) Get(ctx context.Context, id uint64) (*model.Movie, error) {
	return s.movies.GetByID(ctx, id)
}

// List returns the whole catalog.
func (s *MovieService) List(ctx context.Context) ([]*model.Movie, error) {
	return s.movies.List(ctx)
}

// Newest returns the most recently added movies.
func (s *MovieService) Newest(ctx context.Context) ([]*model.Movie, error) {
	out, err := s.movies.Newest(ctx, s.feed.Limit)
	if err != nil {
		return nil, err
	}
	metrics.RecordFeed("new", len(out))
	return out, nil
}

// LastSeen returns the distinct movies the user watched most recently,
// newest first.
func (s *MovieService) LastSeen(ctx context.Context, username string) ([]*model.Movie, error) {
	ids, err := s.seen.LastSeenMovieIDs(ctx, username, s.feed.Limit)
	if err != nil {
		return nil, err
	}
	movies, err := s.movies.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := OrderByIDs(movies, ids)
	metrics.RecordFeed("last_seen", len(out))
	return out, nil
}

// Recommendations ranks movies the user has not seen by how many categories
// they share with the user's most recent watches.
func (s *MovieService) Recommendations(ctx context.Context, username string) ([]*model.Movie, error) {
	events, err := s.seen.Recent(ctx, username, s.feed.RecentHistory)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		metrics.RecordFeed("recommendations", 0)
		return []*model.Movie{}, nil
	}

	recentIDs := distinctMovieIDs(events)
	recent, err := s.movies.GetByIDs(ctx, recentIDs)
	if err != nil {
		return nil, err
	}
	categories := CategoryUnion(OrderByIDs(recent, recentIDs))
	if len(categories) == 0 {
		metrics.RecordFeed("recommendations", 0)
		return []*model.Movie{}, nil
	}

	seenIDs, err := s.seen.SeenMovieIDs(ctx, username)
	if err != nil {
		return nil, err
	}
	exclude := make(map[uint64]bool, len(seenIDs)+len(recentIDs))
	for _, id := range seenIDs {
		exclude[id] = true
	}
	for _, id := range recentIDs {
		exclude[id] = true
	}

	candidates, err := s.movies.ListByCategories(ctx, categories, seenIDs)
	if err != nil {
		return nil, err
	}
	out := RankByOverlap(candidates, categories, exclude, s.feed.Limit)
	logging.Ctx(ctx).Debug().
		Str("user", username).
		Strs("categories", categories).
		Int("candidates", len(candidates)).
		Int("results", len(out)).
		Msg("recommendations computed")
	metrics.RecordFeed("recommendations", len(out))
	return out, nil
}

// MostPopular ranks movies by how often they were seen during the last
// PopularWindow.  An event exactly at the window edge counts.
func (s *MovieService) MostPopular(ctx context.Context) ([]*model.Movie, error) {
	cutoff := s.now().Add(-s.feed.PopularWindow)
	counts, err := s.seen.CountSince(ctx, cutoff, s.feed.DistinctViewers, s.feed.Limit)
	if err != nil {
		return nil, err
	}
	ranked := RankViewCounts(counts, s.feed.Limit)
	ids := make([]uint64, len(ranked))
	for i, vc := range ranked {
		ids[i] = vc.MovieID
	}
	movies, err := s.movies.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := OrderByIDs(movies, ids)
	metrics.RecordFeed("most_popular", len(out))
	return out, nil
}

// Rate stores who's rating of movie, replacing any earlier one by the same
// username, and returns the stored rating.
func (s *MovieService) Rate(ctx context.Context, movie *model.Movie, who model.Identity, value float64, comment string) (*model.Rating, error) {
	return s.ratings.Upsert(ctx, movie.ID, model.Rating{
		MovieID:          movie.ID,
		Value:            value,
		Comment:          comment,
		ReviewerUsername: who.Username,
		ReviewerName:     who.Name,
		PostDate:         s.now(),
	})
}

// Watch appends a seen event for who on movie.  Re-watches are recorded as
// separate events.
func (s *MovieService) Watch(ctx context.Context, movie *model.Movie, who model.Identity) (*model.SeenEvent, error) {
	e := &model.SeenEvent{
		MovieID:        movie.ID,
		ViewerUsername: who.Username,
		DateSeen:       s.now(),
	}
	if err := s.seen.Record(ctx, e); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishWatched(ctx, *e, movie.Title); err != nil {
			metrics.WatchEventsPublished.WithLabelValues("error").Inc()
			logging.Ctx(ctx).Warn().Err(err).Uint64("movie_id", e.MovieID).Msg("publish watch event failed")
		} else {
			metrics.WatchEventsPublished.WithLabelValues("ok").Inc()
		}
	}
	return e, nil
}
