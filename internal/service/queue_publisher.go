// Package queue_publisher provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/yiyuan-he/agentic-enablement-eval/internal/queue"
)

// ListingPublisher publishes BucketsListedEvent messages to a durable queue.
// A connection is dialed per event; listing traffic is low and this keeps the
// publisher free of reconnect state.
type ListingPublisher struct {
    URL   string
    Queue string
}

// NewListingPublisher returns a publisher for the given broker URL and queue.
func NewListingPublisher(url, queue string) *ListingPublisher {
    return &ListingPublisher{URL: url, Queue: queue}
}

// RecordListing publishes event to the configured queue.  Dial, handshake
// and publish all finish by ctx's deadline.  The function never panics; any
// error is logged and returned so the caller can choose to ignore it.
// Messages are marked as persistent.
func (p *ListingPublisher) RecordListing(ctx context.Context, event q.BucketsListedEvent) error {
    conn, err := dialContext(ctx, p.URL)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        p.Queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    event.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.Queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }

    return nil
}

// dialContext dials the broker within ctx's deadline.  amqp.Dial applies its
// own 30s limit to the TCP connect and the AMQP handshake; a shorter caller
// deadline replaces it so a silent broker cannot hold the goroutine.
func dialContext(ctx context.Context, url string) (*amqp.Connection, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    deadline, ok := ctx.Deadline()
    if !ok {
        return amqp.Dial(url)
    }
    timeout := time.Until(deadline)
    if timeout <= 0 {
        return nil, context.DeadlineExceeded
    }
    return amqp.DialConfig(url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    })
}
