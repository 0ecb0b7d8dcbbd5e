// Package testinfra provides in-memory stand-ins for the MySQL repositories
// so handler and service tests run without a database.
package testinfra

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/repository"
)

// Store satisfies service.MovieStore, service.RatingStore and
// service.SeenStore with the same observable semantics as the SQL
// repositories, including cascade delete of ratings and seen events.
type Store struct {
	mu         sync.Mutex
	movies     map[uint64]*model.Movie
	events     []model.SeenEvent
	nextMovie  uint64
	nextRating uint64
	nextEvent  uint64
}

func NewStore() *Store {
	return &Store{movies: map[uint64]*model.Movie{}}
}

func clone(m *model.Movie) *model.Movie {
	c := *m
	c.Categories = append([]string{}, m.Categories...)
	c.Ratings = append([]model.Rating{}, m.Ratings...)
	return &c
}

func (s *Store) sortedLocked() []*model.Movie {
	out := make([]*model.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Create(_ context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMovie++
	m.ID = s.nextMovie
	if m.DateAdded.IsZero() {
		m.DateAdded = time.Now().UTC()
	}
	if m.Categories == nil {
		m.Categories = []string{}
	}
	m.Ratings = []model.Rating{}
	s.movies[m.ID] = clone(m)
	return nil
}

func (s *Store) Update(_ context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.movies[m.ID]
	if !ok {
		return repository.ErrMovieNotFound
	}
	cur.Title, cur.Description, cur.Director = m.Title, m.Description, m.Director
	cur.ReleaseDate, cur.PhotoURL = m.ReleaseDate, m.PhotoURL
	cur.Categories = append([]string{}, m.Categories...)
	return nil
}

func (s *Store) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[id]; !ok {
		return repository.ErrMovieNotFound
	}
	delete(s.movies, id)
	kept := s.events[:0]
	for _, e := range s.events {
		if e.MovieID != id {
			kept = append(kept, e)
		}
	}
	s.events = kept
	return nil
}

func (s *Store) GetByID(_ context.Context, id uint64) (*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[id]
	if !ok {
		return nil, repository.ErrMovieNotFound
	}
	return clone(m), nil
}

func (s *Store) GetByIDs(_ context.Context, ids []uint64) ([]*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[uint64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []*model.Movie{}
	for _, m := range s.sortedLocked() {
		if want[m.ID] {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

func (s *Store) List(_ context.Context) ([]*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Movie{}
	for _, m := range s.sortedLocked() {
		out = append(out, clone(m))
	}
	return out, nil
}

func (s *Store) Newest(_ context.Context, limit int) ([]*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sortedLocked()
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].DateAdded.Equal(all[j].DateAdded) {
			return all[i].DateAdded.After(all[j].DateAdded)
		}
		return all[i].ID > all[j].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]*model.Movie, len(all))
	for i, m := range all {
		out[i] = clone(m)
	}
	return out, nil
}

func (s *Store) ListByCategories(_ context.Context, categories []string, exclude []uint64) ([]*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skip := map[uint64]bool{}
	for _, id := range exclude {
		skip[id] = true
	}
	out := []*model.Movie{}
	for _, m := range s.sortedLocked() {
		if skip[m.ID] {
			continue
		}
		for _, c := range categories {
			if m.HasCategory(c) {
				out = append(out, clone(m))
				break
			}
		}
	}
	return out, nil
}

func (s *Store) Upsert(_ context.Context, movieID uint64, rt model.Rating) (*model.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[movieID]
	if !ok {
		return nil, repository.ErrMovieNotFound
	}
	if rt.PostDate.IsZero() {
		rt.PostDate = time.Now().UTC()
	}
	rt.MovieID = movieID
	kept := m.Ratings[:0]
	for _, r := range m.Ratings {
		if r.ReviewerUsername == rt.ReviewerUsername {
			rt.ID = r.ID
			continue
		}
		kept = append(kept, r)
	}
	if rt.ID == 0 {
		s.nextRating++
		rt.ID = s.nextRating
	}
	m.Ratings = append(kept, rt)
	out := rt
	return &out, nil
}

func (s *Store) Record(_ context.Context, e *model.SeenEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[e.MovieID]; !ok {
		return repository.ErrMovieNotFound
	}
	if e.DateSeen.IsZero() {
		e.DateSeen = time.Now().UTC()
	}
	s.nextEvent++
	e.ID = s.nextEvent
	s.events = append(s.events, *e)
	return nil
}

// AddEvent appends e as is, bypassing the movie check; tests use it to
// seed history at chosen timestamps.
func (s *Store) AddEvent(e model.SeenEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEvent++
	e.ID = s.nextEvent
	s.events = append(s.events, e)
}

// Events returns a copy of the recorded history.
func (s *Store) Events() []model.SeenEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SeenEvent{}, s.events...)
}

// byRecency returns the viewer's events newest first (date, then id).
func (s *Store) byRecency(username string) []model.SeenEvent {
	var out []model.SeenEvent
	for _, e := range s.events {
		if e.ViewerUsername == username {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DateSeen.Equal(out[j].DateSeen) {
			return out[i].DateSeen.After(out[j].DateSeen)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) Recent(_ context.Context, username string, limit int) ([]model.SeenEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.byRecency(username)
	if len(out) > limit {
		out = out[:limit]
	}
	return append([]model.SeenEvent{}, out...), nil
}

func (s *Store) LastSeenMovieIDs(_ context.Context, username string, limit int) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []uint64{}
	seen := map[uint64]bool{}
	for _, e := range s.byRecency(username) {
		if len(out) == limit {
			break
		}
		if !seen[e.MovieID] {
			seen[e.MovieID] = true
			out = append(out, e.MovieID)
		}
	}
	return out, nil
}

func (s *Store) SeenMovieIDs(_ context.Context, username string) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := map[uint64]bool{}
	for _, e := range s.events {
		if e.ViewerUsername == username {
			set[e.MovieID] = true
		}
	}
	out := make([]uint64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// CountSince returns counts in arbitrary order; ranking is the caller's job.
func (s *Store) CountSince(_ context.Context, cutoff time.Time, distinctViewers bool, limit int) ([]model.ViewCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[uint64]*model.ViewCount{}
	viewers := map[uint64]map[string]bool{}
	for _, e := range s.events {
		if e.DateSeen.Before(cutoff) {
			continue
		}
		vc := counts[e.MovieID]
		if vc == nil {
			vc = &model.ViewCount{MovieID: e.MovieID}
			counts[e.MovieID] = vc
			viewers[e.MovieID] = map[string]bool{}
		}
		if distinctViewers {
			if !viewers[e.MovieID][e.ViewerUsername] {
				viewers[e.MovieID][e.ViewerUsername] = true
				vc.Count++
			}
		} else {
			vc.Count++
		}
		if e.DateSeen.After(vc.LastSeen) {
			vc.LastSeen = e.DateSeen
		}
	}
	out := make([]model.ViewCount, 0, len(counts))
	for _, vc := range counts {
		out = append(out, *vc)
	}
	return out, nil
}
