// This file contains the background consumer that listens to the
// article.engagement queue, applies view counters to the database and
// appends structured lines to logs/engagement.log.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// ViewApplier is the slice of the article repository the consumer needs.
type ViewApplier interface {
    IncrementViews(ctx context.Context, id string, n uint64) error
}

// StartEngagementConsumer connects to RabbitMQ, declares the
// article.engagement queue (durable), and starts consuming messages.  View
// events increment the article's counter; every event is appended to
// logs/engagement.log for the analytics dashboard's raw feed.  The function
// runs a reconnect loop with exponential backoff and keeps running through
// broker restarts; processing errors are logged and the offending message
// rejected so the server continues operating.
func StartEngagementConsumer(views ViewApplier) error {
    url := BrokerURL()

    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("engagement-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := consumeLoop(conn, views); err != nil {
            log.Printf("engagement-consumer: consume loop ended: %v; reconnecting", err)
            time.Sleep(2 * time.Second)
            continue
        }
    }
}

func consumeLoop(conn *amqp.Connection, views ViewApplier) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("engagement-consumer: set QoS failed: %v", err)
    }

    _, err = ch.QueueDeclare(EngagementQueue, true, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(EngagementQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := handleMessage(d.Body, views); err != nil {
            log.Printf("engagement-consumer: handle message failed: %v", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, views ViewApplier) error {
    var ev EngagementEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.ArticleID == "" {
        return errors.New("event missing article_id")
    }

    if ev.Kind == KindView {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        err := views.IncrementViews(ctx, ev.ArticleID, 1)
        cancel()
        if err != nil {
            return fmt.Errorf("apply view: %w", err)
        }
    }

    return appendLog(ev)
}

func appendLog(ev EngagementEvent) error {
    if err := os.MkdirAll("logs", 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    fpath := filepath.Join("logs", "engagement.log")
    f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("[%s] Engagement | kind=%s | article_id=%s | lang=%s\n",
        ev.OccurredAt.Format(time.RFC3339Nano), ev.Kind, ev.ArticleID, ev.Lang)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
