package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/movie-catalog/internal/model"
)

const movieColumns = "m.id, m.title, m.description, m.director, m.date_added, m.release_date, m.photo_url"

// MovieRepo encapsulates the queries over movies and the category and
// rating rows they own.
type MovieRepo struct {
	db *sql.DB
}

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// Create inserts the movie and its categories in one transaction.  ID is
// populated on success and DateAdded defaults to now when zero.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	if m.DateAdded.IsZero() {
		m.DateAdded = time.Now().UTC()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO movies (title, description, director, date_added, release_date, photo_url) VALUES (?,?,?,?,?,?)",
		m.Title, m.Description, m.Director, m.DateAdded, m.ReleaseDate, m.PhotoURL)
	if err != nil {
		return fmt.Errorf("insert movie: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := insertCategories(ctx, tx, uint64(id), m.Categories); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	m.ID = uint64(id)
	if m.Categories == nil {
		m.Categories = []string{}
	}
	if m.Ratings == nil {
		m.Ratings = []model.Rating{}
	}
	return nil
}

// Update overwrites the editable columns and replaces the category list.
// Ratings and DateAdded are left untouched.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE movies SET title = ?, description = ?, director = ?, release_date = ?, photo_url = ? WHERE id = ?",
		m.Title, m.Description, m.Director, m.ReleaseDate, m.PhotoURL, m.ID)
	if err != nil {
		return fmt.Errorf("update movie: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrMovieNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM movie_categories WHERE movie_id = ?", m.ID); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	if err := insertCategories(ctx, tx, m.ID, m.Categories); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the movie.  Categories, ratings and seen events go with it
// through ON DELETE CASCADE.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM movies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// GetByID fetches one fully hydrated movie or ErrMovieNotFound.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	var m model.Movie
	err := r.db.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies m WHERE m.id = ?", id).
		Scan(&m.ID, &m.Title, &m.Description, &m.Director, &m.DateAdded, &m.ReleaseDate, &m.PhotoURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	out := []*model.Movie{&m}
	if err := r.hydrate(ctx, out); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByIDs returns the movies that exist among ids, ordered by id.  Callers
// that need a specific order reorder the result themselves.
func (r *MovieRepo) GetByIDs(ctx context.Context, ids []uint64) ([]*model.Movie, error) {
	if len(ids) == 0 {
		return []*model.Movie{}, nil
	}
	q := "SELECT " + movieColumns + " FROM movies m WHERE m.id IN (" + placeholders(len(ids)) + ") ORDER BY m.id"
	return r.queryMovies(ctx, q, uint64Args(ids)...)
}

// List returns the whole catalog in insertion order.
func (r *MovieRepo) List(ctx context.Context) ([]*model.Movie, error) {
	return r.queryMovies(ctx, "SELECT "+movieColumns+" FROM movies m ORDER BY m.id")
}

// Newest returns up to limit movies, most recently added first.
func (r *MovieRepo) Newest(ctx context.Context, limit int) ([]*model.Movie, error) {
	return r.queryMovies(ctx,
		"SELECT "+movieColumns+" FROM movies m ORDER BY m.date_added DESC, m.id DESC LIMIT ?", limit)
}

// ListByCategories returns every movie carrying at least one of categories,
// skipping the ids in exclude.  Scoring happens in the caller.
func (r *MovieRepo) ListByCategories(ctx context.Context, categories []string, exclude []uint64) ([]*model.Movie, error) {
	if len(categories) == 0 {
		return []*model.Movie{}, nil
	}
	q := "SELECT DISTINCT " + movieColumns + " FROM movies m JOIN movie_categories mc ON mc.movie_id = m.id" +
		" WHERE mc.category IN (" + placeholders(len(categories)) + ")"
	args := stringArgs(categories)
	if len(exclude) > 0 {
		q += " AND m.id NOT IN (" + placeholders(len(exclude)) + ")"
		args = append(args, uint64Args(exclude)...)
	}
	q += " ORDER BY m.id"
	return r.queryMovies(ctx, q, args...)
}

func (r *MovieRepo) queryMovies(ctx context.Context, q string, args ...any) ([]*model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Movie{}
	for rows.Next() {
		m := new(model.Movie)
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Director, &m.DateAdded, &m.ReleaseDate, &m.PhotoURL); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// hydrate fills Categories and Ratings for movies with two IN queries.
func (r *MovieRepo) hydrate(ctx context.Context, movies []*model.Movie) error {
	if len(movies) == 0 {
		return nil
	}
	byID := make(map[uint64]*model.Movie, len(movies))
	ids := make([]uint64, 0, len(movies))
	for _, m := range movies {
		m.Categories = []string{}
		m.Ratings = []model.Rating{}
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}
	in := placeholders(len(ids))

	rows, err := r.db.QueryContext(ctx,
		"SELECT movie_id, category FROM movie_categories WHERE movie_id IN ("+in+") ORDER BY movie_id, position",
		uint64Args(ids)...)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	for rows.Next() {
		var id uint64
		var c string
		if err := rows.Scan(&id, &c); err != nil {
			rows.Close()
			return err
		}
		if m := byID[id]; m != nil {
			m.Categories = append(m.Categories, c)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx,
		"SELECT "+ratingColumns+" FROM ratings WHERE movie_id IN ("+in+") ORDER BY post_date, id",
		uint64Args(ids)...)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		rt, err := scanRating(rows)
		if err != nil {
			return err
		}
		if m := byID[rt.MovieID]; m != nil {
			m.Ratings = append(m.Ratings, rt)
		}
	}
	return rows.Err()
}

func insertCategories(ctx context.Context, tx *sql.Tx, movieID uint64, categories []string) error {
	if len(categories) == 0 {
		return nil
	}
	q := "INSERT INTO movie_categories (movie_id, position, category) VALUES "
	args := make([]any, 0, len(categories)*3)
	for i, c := range categories {
		if i > 0 {
			q += ","
		}
		q += "(?,?,?)"
		args = append(args, movieID, i, c)
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert categories: %w", err)
	}
	return nil
}
