package service

import (
	"sort"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// distinctMovieIDs returns the movie ids referenced by events, first
// occurrence wins.
func distinctMovieIDs(events []model.SeenEvent) []uint64 {
	seen := make(map[uint64]bool, len(events))
	out := make([]uint64, 0, len(events))
	for _, e := range events {
		if !seen[e.MovieID] {
			seen[e.MovieID] = true
			out = append(out, e.MovieID)
		}
	}
	return out
}

// OrderByIDs arranges movies in the order of ids.  Ids without a matching
// movie and repeated ids are skipped.
func OrderByIDs(movies []*model.Movie, ids []uint64) []*model.Movie {
	byID := make(map[uint64]*model.Movie, len(movies))
	for _, m := range movies {
		byID[m.ID] = m
	}
	out := make([]*model.Movie, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
			delete(byID, id)
		}
	}
	return out
}

// CategoryUnion collects the categories of movies without duplicates,
// keeping the order in which they are first met.
func CategoryUnion(movies []*model.Movie) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, m := range movies {
		for _, c := range m.Categories {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// OverlapScore is the size of the intersection between the movie's category
// set and ref.  Duplicate categories on the movie count once.
func OverlapScore(m *model.Movie, ref map[string]bool) int {
	counted := map[string]bool{}
	n := 0
	for _, c := range m.Categories {
		if ref[c] && !counted[c] {
			counted[c] = true
			n++
		}
	}
	return n
}

type scoredMovie struct {
	movie *model.Movie
	score int
}

// RankByOverlap scores candidates against categories, drops excluded ids and
// zero scores, and returns at most limit movies ordered by score desc, then
// DateAdded desc, then ID desc.
func RankByOverlap(candidates []*model.Movie, categories []string, exclude map[uint64]bool, limit int) []*model.Movie {
	ref := make(map[string]bool, len(categories))
	for _, c := range categories {
		ref[c] = true
	}
	scored := make([]scoredMovie, 0, len(candidates))
	for _, m := range candidates {
		if exclude[m.ID] {
			continue
		}
		if s := OverlapScore(m, ref); s > 0 {
			scored = append(scored, scoredMovie{movie: m, score: s})
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.movie.DateAdded.Equal(b.movie.DateAdded) {
			return a.movie.DateAdded.After(b.movie.DateAdded)
		}
		return a.movie.ID > b.movie.ID
	})
	if limit >= 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]*model.Movie, len(scored))
	for i, s := range scored {
		out[i] = s.movie
	}
	return out
}

// RankViewCounts orders counts by count desc, latest view desc, movie id asc
// and keeps at most limit entries.
func RankViewCounts(counts []model.ViewCount, limit int) []model.ViewCount {
	out := append([]model.ViewCount(nil), counts...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if !a.LastSeen.Equal(b.LastSeen) {
			return a.LastSeen.After(b.LastSeen)
		}
		return a.MovieID < b.MovieID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
