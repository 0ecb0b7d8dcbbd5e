package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-catalog/internal/model"
)

var (
	movieCols  = []string{"id", "title", "description", "director", "date_added", "release_date", "photo_url"}
	ratingCols = []string{"id", "movie_id", "rating", "comment", "reviewer_username", "reviewer_name", "post_date"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestMovieGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("FROM movies m WHERE m.id = ?")).WithArgs(42).
		WillReturnRows(sqlmock.NewRows(movieCols))

	_, err := NewMovieRepo(db).GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestMovieGetByIDHydrates(t *testing.T) {
	db, mock := newMock(t)
	added := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	release := time.Date(1999, 3, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("FROM movies m WHERE m.id = ?")).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(movieCols).AddRow(1, "The Matrix", "desc", "Wachowski", added, release, "http://p/1.jpg"))
	mock.ExpectQuery(q("SELECT movie_id, category FROM movie_categories WHERE movie_id IN (?) ORDER BY movie_id, position")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "category"}).AddRow(1, "sci-fi").AddRow(1, "action"))
	mock.ExpectQuery(q("FROM ratings WHERE movie_id IN (?) ORDER BY post_date, id")).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(ratingCols).AddRow(9, 1, 4.5, "great", "ana", "Ana", added))

	m, err := NewMovieRepo(db).GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", m.Title)
	assert.Equal(t, []string{"sci-fi", "action"}, m.Categories)
	require.Len(t, m.Ratings, 1)
	assert.Equal(t, "ana", m.Ratings[0].ReviewerUsername)
	assert.Equal(t, 4.5, m.Ratings[0].Value)
}

func TestMovieCreateInsertsCategoriesInTx(t *testing.T) {
	db, mock := newMock(t)
	release := time.Date(2010, 7, 16, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO movies (title, description, director, date_added, release_date, photo_url)")).
		WithArgs("Inception", "dreams", "Nolan", sqlmock.AnyArg(), release, "http://p/2.jpg").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(q("INSERT INTO movie_categories (movie_id, position, category) VALUES (?,?,?),(?,?,?)")).
		WithArgs(7, 0, "sci-fi", 7, 1, "thriller").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	m := &model.Movie{Title: "Inception", Description: "dreams", Director: "Nolan", ReleaseDate: release,
		PhotoURL: "http://p/2.jpg", Categories: []string{"sci-fi", "thriller"}}
	require.NoError(t, NewMovieRepo(db).Create(context.Background(), m))
	assert.Equal(t, uint64(7), m.ID)
	assert.False(t, m.DateAdded.IsZero())
	assert.NotNil(t, m.Ratings)
}

func TestMovieUpdateMissingRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE movies SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := NewMovieRepo(db).Update(context.Background(), &model.Movie{ID: 5, Title: "x"})
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestMovieUpdateReplacesCategories(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE movies SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM movie_categories WHERE movie_id = ?")).WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q("INSERT INTO movie_categories")).WithArgs(5, 0, "noir").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewMovieRepo(db).Update(context.Background(), &model.Movie{ID: 5, Categories: []string{"noir"}})
	assert.NoError(t, err)
}

func TestMovieDeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("DELETE FROM movies WHERE id = ?")).WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewMovieRepo(db).Delete(context.Background(), 3), ErrMovieNotFound)
}

func TestMovieEmptyInputsSkipQueries(t *testing.T) {
	db, _ := newMock(t)
	repo := NewMovieRepo(db)

	got, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.ListByCategories(context.Background(), nil, []uint64{1})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMovieListByCategoriesExcludes(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("WHERE mc.category IN (?,?) AND m.id NOT IN (?) ORDER BY m.id")).
		WithArgs("drama", "crime", 4).
		WillReturnRows(sqlmock.NewRows(movieCols))

	got, err := NewMovieRepo(db).ListByCategories(context.Background(), []string{"drama", "crime"}, []uint64{4})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRatingUpsertReturnsStoredRow(t *testing.T) {
	db, mock := newMock(t)
	posted := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(q("ON DUPLICATE KEY UPDATE")).
		WithArgs(1, 3.0, "meh", "bob", "Bob", posted).
		WillReturnResult(sqlmock.NewResult(11, 2))
	mock.ExpectQuery(q("FROM ratings WHERE movie_id = ? AND reviewer_username = ?")).WithArgs(1, "bob").
		WillReturnRows(sqlmock.NewRows(ratingCols).AddRow(11, 1, 3.0, "meh", "bob", "Bob", posted))

	got, err := NewRatingRepo(db).Upsert(context.Background(), 1, model.Rating{
		Value: 3, Comment: "meh", ReviewerUsername: "bob", ReviewerName: "Bob", PostDate: posted,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), got.ID)
	assert.Equal(t, "meh", got.Comment)
}

func TestRatingUpsertMissingMovie(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO ratings")).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "a foreign key constraint fails"})

	_, err := NewRatingRepo(db).Upsert(context.Background(), 99, model.Rating{ReviewerUsername: "bob"})
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestSeenRecordDefaultsDate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO seen_events (movie_id, viewer_username, date_seen) VALUES (?,?,?)")).
		WithArgs(2, "ana", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(31, 1))

	e := &model.SeenEvent{MovieID: 2, ViewerUsername: "ana"}
	require.NoError(t, NewSeenRepo(db).Record(context.Background(), e))
	assert.Equal(t, uint64(31), e.ID)
	assert.False(t, e.DateSeen.IsZero())
}

func TestSeenCountSinceInclusiveCutoff(t *testing.T) {
	db, mock := newMock(t)
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("SELECT movie_id, COUNT(DISTINCT viewer_username) AS views, MAX(date_seen) AS last_seen FROM seen_events WHERE date_seen >= ?")).
		WithArgs(cutoff, 12).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "views", "last_seen"}).
			AddRow(3, 5, cutoff.Add(time.Hour)).
			AddRow(1, 2, cutoff))

	got, err := NewSeenRepo(db).CountSince(context.Background(), cutoff, true, 12)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.ViewCount{MovieID: 3, Count: 5, LastSeen: cutoff.Add(time.Hour)}, got[0])
}

func TestSeenLastSeenMovieIDs(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("GROUP BY movie_id ORDER BY MAX(date_seen) DESC")).WithArgs("ana", 12).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id"}).AddRow(5).AddRow(2))

	ids, err := NewSeenRepo(db).LastSeenMovieIDs(context.Background(), "ana", 12)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 2}, ids)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}
