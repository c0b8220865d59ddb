// Package queue_publisher publishes engagement events to the broker.  The
// publisher is fail-open by contract: a reader's page load or vote must
// never fail because RabbitMQ is down, so errors are logged and returned
// for the caller to drop.
package queue_publisher

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/Jotasiete7/wurm-analytics-journal/internal/queue"
)

// publishTimeout caps how long a single publish may hold a connection when
// the caller's context carries no deadline of its own.
const publishTimeout = 10 * time.Second

// PublishEngagement delivers one event to the engagement queue.  Handlers
// call this from a goroutine after the HTTP response is already decided;
// the event is marked persistent so an accepted message survives a broker
// restart, but a failure before acceptance is simply lost (the view count
// is advisory and votes are already committed in MySQL).
func PublishEngagement(ctx context.Context, event q.EngagementEvent) error {
    body, err := json.Marshal(event)
    if err != nil {
        // Programming error, not a broker problem; still fail open.
        log.Printf("engagement-publisher: marshal failed: %v", err)
        return err
    }

    if _, ok := ctx.Deadline(); !ok {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, publishTimeout)
        defer cancel()
    }

    ch, closeAll, err := openChannel()
    if err != nil {
        log.Printf("engagement-publisher: %v", err)
        return err
    }
    defer closeAll()

    // Declaring on every publish keeps the publisher independent of consumer
    // startup order; the declaration is idempotent because both sides use
    // q.EngagementQueue with the same durable settings.
    if _, err := ch.QueueDeclare(q.EngagementQueue, true, false, false, false, nil); err != nil {
        log.Printf("engagement-publisher: queue declare failed: %v", err)
        return err
    }

    err = ch.PublishWithContext(ctx, "", q.EngagementQueue, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    event.OccurredAt,
        Body:         body,
    })
    if err != nil {
        log.Printf("engagement-publisher: publish %s for article %s failed: %v",
            event.Kind, event.ArticleID, err)
        return err
    }
    return nil
}

// openChannel dials the broker and opens a channel, returning a single
// cleanup that tears down both.  Publishes are rare enough (one per view or
// vote) that a fresh short-lived connection is simpler than pooling one
// across handler goroutines.
func openChannel() (*amqp.Channel, func(), error) {
    conn, err := amqp.Dial(q.BrokerURL())
    if err != nil {
        return nil, nil, fmt.Errorf("dial broker: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, nil, fmt.Errorf("open channel: %w", err)
    }
    return ch, func() {
        _ = ch.Close()
        _ = conn.Close()
    }, nil
}
