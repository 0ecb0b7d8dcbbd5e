package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/movie-catalog/internal/logging"
    "github.com/iliyamo/movie-catalog/internal/model"
)

// Publisher sends movie.watched events to RabbitMQ.  Each publish opens its
// own connection so a broker outage never poisons later requests; errors are
// logged and returned for the caller to ignore.
type Publisher struct {
    url string
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// NewWatchedEvent converts a stored seen event into its wire form.
func NewWatchedEvent(e model.SeenEvent, movieTitle string) MovieWatchedEvent {
    return MovieWatchedEvent{
        EventID:        e.ID,
        MovieID:        e.MovieID,
        MovieTitle:     movieTitle,
        ViewerUsername: e.ViewerUsername,
        DateSeen:       e.DateSeen.UTC().Format(time.RFC3339),
    }
}

// PublishWatched publishes a persistent MovieWatchedEvent to the
// movie.watched queue.
func (p *Publisher) PublishWatched(ctx context.Context, e model.SeenEvent, movieTitle string) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        logging.Warn().Err(err).Msg("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        logging.Warn().Err(err).Msg("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := declareWatched(ch); err != nil {
        logging.Warn().Err(err).Msg("rabbitmq: queue declare failed")
        return err
    }

    body, err := json.Marshal(NewWatchedEvent(e, movieTitle))
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",               // default exchange
        WatchedQueueName, // routing key = queue name
        false,            // mandatory
        false,            // immediate
        pub,
    ); err != nil {
        logging.Warn().Err(err).Msg("rabbitmq: publish failed")
        return err
    }
    return nil
}

// declareWatched makes sure the durable queue exists (idempotent).
func declareWatched(ch *amqp.Channel) (amqp.Queue, error) {
    return ch.QueueDeclare(
        WatchedQueueName, // name
        true,             // durable
        false,            // autoDelete
        false,            // exclusive
        false,            // noWait
        nil,              // args
    )
}
