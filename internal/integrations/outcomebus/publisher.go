// Package outcomebus publishes booking attempt outcomes to RabbitMQ so other
// systems can follow what users booked in a session.
package outcomebus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"wanderlust/internal/domain"
)

const DefaultQueue = "booking.outcomes"

// channel is the subset of *amqp.Channel used here.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends one persistent JSON message per outcome to a durable queue.
type Publisher struct {
	conn  io.Closer
	queue string
	now   func() time.Time

	mu sync.Mutex
	ch channel
}

// Dial connects to url and declares queue.
func Dial(url, queue string) (*Publisher, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("outcomebus: url must not be empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("outcomebus: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("outcomebus: open channel: %w", err)
	}
	p, err := newPublisher(ch, conn, queue)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(ch channel, conn io.Closer, queue string) (*Publisher, error) {
	if ch == nil {
		return nil, errors.New("outcomebus: channel must not be nil")
	}
	queue = strings.TrimSpace(queue)
	if queue == "" {
		queue = DefaultQueue
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return nil, fmt.Errorf("outcomebus: declare queue %q: %w", queue, err)
	}
	return &Publisher{conn: conn, queue: queue, now: time.Now, ch: ch}, nil
}

func (p *Publisher) PublishOutcome(ctx context.Context, ev domain.OutcomeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("outcomebus: marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return errors.New("outcomebus: publisher closed")
	}
	err = p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.Token,
			Timestamp:    p.now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("outcomebus: publish: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}
