package handler

import (
    "strings"
    "time"

    "github.com/iliyamo/movie-catalog/internal/model"
)

// movieRequest is the payload of POST /movies and PUT /movies/:movieId.
type movieRequest struct {
    Title       string     `json:"title" validate:"required,notblank"`
    Description string     `json:"description" validate:"required,notblank"`
    Director    string     `json:"director" validate:"required,notblank"`
    ReleaseDate string     `json:"releaseDate" validate:"required,notblank"`
    Categories  []string   `json:"categories"`
    PhotoURL    string     `json:"photoUrl" validate:"required,notblank"`
    DateAdded   *time.Time `json:"dateAdded"`
}

// ratingRequest is the payload of POST /movies/:movieId/ratings.  Rating is a
// pointer so an explicit 0 is accepted while a missing value is not.
type ratingRequest struct {
    Rating  *float64 `json:"rating" validate:"required"`
    Comment string   `json:"comment" validate:"required,notblank"`
}

// dateLayouts are tried in order for releaseDate.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
    s = strings.TrimSpace(s)
    for _, l := range dateLayouts {
        if t, err := time.Parse(l, s); err == nil {
            return t.UTC(), true
        }
    }
    return time.Time{}, false
}

// toMovie converts a validated request into a model.Movie.
func (r movieRequest) toMovie() (*model.Movie, error) {
    released, ok := parseDate(r.ReleaseDate)
    if !ok {
        return nil, fieldErrors{"releaseDate": "must be a date (YYYY-MM-DD or RFC 3339)"}
    }
    m := &model.Movie{
        Title:       strings.TrimSpace(r.Title),
        Description: r.Description,
        Director:    strings.TrimSpace(r.Director),
        ReleaseDate: released,
        Categories:  []string{},
        PhotoURL:    strings.TrimSpace(r.PhotoURL),
        Ratings:     []model.Rating{},
    }
    for _, c := range r.Categories {
        if c = strings.TrimSpace(c); c != "" {
            m.Categories = append(m.Categories, c)
        }
    }
    if r.DateAdded != nil {
        m.DateAdded = r.DateAdded.UTC()
    }
    return m, nil
}
