package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// SeenRepo reads and appends viewing history.  There is deliberately no
// update or delete: events are immutable facts.
type SeenRepo struct{ db *sql.DB }

func NewSeenRepo(db *sql.DB) *SeenRepo { return &SeenRepo{db: db} }

// Record appends e.  DateSeen defaults to now; ID is populated.
func (r *SeenRepo) Record(ctx context.Context, e *model.SeenEvent) error {
	if e.DateSeen.IsZero() {
		e.DateSeen = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO seen_events (movie_id, viewer_username, date_seen) VALUES (?,?,?)",
		e.MovieID, e.ViewerUsername, e.DateSeen)
	if err != nil {
		if isMissingParent(err) {
			return ErrMovieNotFound
		}
		return fmt.Errorf("insert seen event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// Recent returns the viewer's latest limit events, newest first.
func (r *SeenRepo) Recent(ctx context.Context, username string, limit int) ([]model.SeenEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, movie_id, viewer_username, date_seen FROM seen_events
		 WHERE viewer_username = ? ORDER BY date_seen DESC, id DESC LIMIT ?`,
		username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.SeenEvent{}
	for rows.Next() {
		var e model.SeenEvent
		if err := rows.Scan(&e.ID, &e.MovieID, &e.ViewerUsername, &e.DateSeen); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LastSeenMovieIDs returns up to limit distinct movie ids the viewer has
// watched, ordered by their latest watch, newest first.
func (r *SeenRepo) LastSeenMovieIDs(ctx context.Context, username string, limit int) ([]uint64, error) {
	return r.queryIDs(ctx,
		`SELECT movie_id FROM seen_events WHERE viewer_username = ?
		 GROUP BY movie_id ORDER BY MAX(date_seen) DESC, MAX(id) DESC LIMIT ?`,
		username, limit)
}

// SeenMovieIDs returns every distinct movie id the viewer has watched.
func (r *SeenRepo) SeenMovieIDs(ctx context.Context, username string) ([]uint64, error) {
	return r.queryIDs(ctx,
		"SELECT DISTINCT movie_id FROM seen_events WHERE viewer_username = ? ORDER BY movie_id",
		username)
}

// CountSince aggregates events with date_seen >= cutoff per movie.  With
// distinctViewers the count is the number of different viewers; otherwise
// every event (re-watches included) counts.  Rows come back ranked by count
// desc, latest view desc, movie id asc and capped at limit.
func (r *SeenRepo) CountSince(ctx context.Context, cutoff time.Time, distinctViewers bool, limit int) ([]model.ViewCount, error) {
	agg := "COUNT(*)"
	if distinctViewers {
		agg = "COUNT(DISTINCT viewer_username)"
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT movie_id, "+agg+" AS views, MAX(date_seen) AS last_seen FROM seen_events"+
			" WHERE date_seen >= ? GROUP BY movie_id ORDER BY views DESC, last_seen DESC, movie_id ASC LIMIT ?",
		cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ViewCount{}
	for rows.Next() {
		var vc model.ViewCount
		if err := rows.Scan(&vc.MovieID, &vc.Count, &vc.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}

func (r *SeenRepo) queryIDs(ctx context.Context, q string, args ...any) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
