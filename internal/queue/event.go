// Package queue defines message payloads exchanged over the message broker.
package queue

// WatchedQueueName is the durable queue movie.watched events go to.
const WatchedQueueName = "movie.watched"

// MovieWatchedEvent is published whenever a viewer records a watch.  It
// carries enough for consumers to log or aggregate without querying MySQL.
type MovieWatchedEvent struct {
    EventID        uint64 `json:"event_id"`
    MovieID        uint64 `json:"movie_id"`
    MovieTitle     string `json:"movie_title"`
    ViewerUsername string `json:"viewer_username"`
    DateSeen       string `json:"date_seen"` // RFC3339
}
