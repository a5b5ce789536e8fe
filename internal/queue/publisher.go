// Package queue publishes booking events to RabbitMQ for downstream
// consumers such as the analytics service.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
	amqp "github.com/rabbitmq/amqp091-go"
)

const BookingConfirmedQueue = "booking.confirmed"

type BookingConfirmedEvent struct {
	BookingID   uuid.UUID `json:"bookingId"`
	UserID      uuid.UUID `json:"userId"`
	ShowtimeID  uuid.UUID `json:"showtimeId"`
	MovieID     uuid.UUID `json:"movieId"`
	VenueID     uuid.UUID `json:"venueId"`
	Seats       []string  `json:"seats"`
	TotalCents  int64     `json:"totalCents"`
	TicketRef   string    `json:"ticketRef"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// Publisher keeps one connection and channel open and re-dials after the
// broker drops them.
type Publisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string) *Publisher {
	return &Publisher{
		url:   url,
		queue: BookingConfirmedQueue,
	}
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	p.closeLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}

	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}

	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev ports.BookingConfirmed) error {
	const op = "queue.Publisher.PublishBookingConfirmed"

	body, err := json.Marshal(BookingConfirmedEvent{
		BookingID:   ev.BookingID,
		UserID:      ev.UserID,
		ShowtimeID:  ev.ShowtimeID,
		MovieID:     ev.MovieID,
		VenueID:     ev.VenueID,
		Seats:       ev.Seats,
		TotalCents:  ev.TotalCents,
		TicketRef:   ev.TicketRef,
		ConfirmedAt: ev.ConfirmedAt,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.BookingID.String(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.closeLocked()
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
