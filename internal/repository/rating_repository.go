package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/movie-catalog/internal/model"
)

const ratingColumns = "id, movie_id, rating, comment, reviewer_username, reviewer_name, post_date"

// RatingRepo persists ratings.  The (movie_id, reviewer_username) unique key
// turns "replace my previous rating" into one atomic statement.
type RatingRepo struct{ db *sql.DB }

func NewRatingRepo(db *sql.DB) *RatingRepo { return &RatingRepo{db: db} }

// Upsert stores rt as the reviewer's only rating on movieID and returns the
// stored row.  PostDate defaults to now.  A replaced rating gets the new
// post date, so it sorts last like a freshly appended one.
func (r *RatingRepo) Upsert(ctx context.Context, movieID uint64, rt model.Rating) (*model.Rating, error) {
	if rt.PostDate.IsZero() {
		rt.PostDate = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings (movie_id, rating, comment, reviewer_username, reviewer_name, post_date)
		 VALUES (?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE rating = VALUES(rating), comment = VALUES(comment),
		   reviewer_name = VALUES(reviewer_name), post_date = VALUES(post_date)`,
		movieID, rt.Value, rt.Comment, rt.ReviewerUsername, rt.ReviewerName, rt.PostDate)
	if err != nil {
		if isMissingParent(err) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("upsert rating: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		"SELECT "+ratingColumns+" FROM ratings WHERE movie_id = ? AND reviewer_username = ?",
		movieID, rt.ReviewerUsername)
	stored, err := scanRating(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &stored, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRating(s rowScanner) (model.Rating, error) {
	var rt model.Rating
	err := s.Scan(&rt.ID, &rt.MovieID, &rt.Value, &rt.Comment, &rt.ReviewerUsername, &rt.ReviewerName, &rt.PostDate)
	return rt, err
}
