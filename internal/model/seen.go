package model

import "time"

// SeenEvent records that a viewer watched a movie at a point in time.  Rows
// in `seen_events` are append-only; a re-watch produces a new row.
type SeenEvent struct {
    ID             uint64    `json:"id"`             // seen_events.id
    MovieID        uint64    `json:"movieId"`        // seen_events.movie_id
    ViewerUsername string    `json:"viewerUsername"` // seen_events.viewer_username
    DateSeen       time.Time `json:"dateSeen"`       // seen_events.date_seen
}

// ViewCount is one row of the popularity aggregation: how often a movie was
// seen inside the window and when it was last seen.
type ViewCount struct {
    MovieID  uint64
    Count    int
    LastSeen time.Time
}
