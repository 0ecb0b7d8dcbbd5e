package model

import "time"

// Movie is a catalog entry together with the ratings it owns.  Rows live in
// the `movies` table; Categories come from `movie_categories` (ordered by
// position) and Ratings from `ratings` (ordered by post date).
//
// Fields:
//  ID          – primary key identifier.
//  Title       – display title.
//  Description – free-form synopsis.
//  Director    – director's name.
//  DateAdded   – when the movie entered the catalog.
//  ReleaseDate – theatrical release date.
//  Categories  – ordered category labels (genres).
//  PhotoURL    – poster location.
//  Ratings     – one rating per reviewer username.
type Movie struct {
    ID          uint64    `json:"id"`          // movies.id
    Title       string    `json:"title"`       // movies.title
    Description string    `json:"description"` // movies.description
    Director    string    `json:"director"`    // movies.director
    DateAdded   time.Time `json:"dateAdded"`   // movies.date_added
    ReleaseDate time.Time `json:"releaseDate"` // movies.release_date
    Categories  []string  `json:"categories"`  // movie_categories.category
    PhotoURL    string    `json:"photoUrl"`    // movies.photo_url
    Ratings     []Rating  `json:"ratings"`     // ratings.*
}

// Rating is a single reviewer's opinion of a movie.  The pair
// (MovieID, ReviewerUsername) is unique.
type Rating struct {
    ID               uint64    `json:"id"`               // ratings.id
    MovieID          uint64    `json:"movieId"`          // ratings.movie_id
    Value            float64   `json:"rating"`           // ratings.rating
    Comment          string    `json:"comment"`          // ratings.comment
    ReviewerUsername string    `json:"reviewerUsername"` // ratings.reviewer_username
    ReviewerName     string    `json:"reviewerName"`     // ratings.reviewer_name
    PostDate         time.Time `json:"postDate"`         // ratings.post_date
}

// HasCategory reports whether c is one of the movie's categories.
func (m *Movie) HasCategory(c string) bool {
    for _, mc := range m.Categories {
        if mc == c {
            return true
        }
    }
    return false
}
