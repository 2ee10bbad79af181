// Package notification delivers booking lifecycle emails off the request
// path. Events are queued on a buffered channel and sent by a single
// worker goroutine; a full queue drops the event rather than blocking a
// commit or cancel.
package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type EventType string

const (
	EventBookingConfirmed EventType = "booking_confirmed"
	EventBookingCancelled EventType = "booking_cancelled"
)

// Event carries everything a template needs. Recipient addresses travel
// with the event because bookings do not store emails.
type Event struct {
	Type            EventType
	BookingID       string
	SessionKind     string
	MentorName      string
	ScheduledAt     time.Time
	DurationMinutes int
	SessionLink     string
	StudentEmail    string
	MentorEmail     string
	CancelledBy     string
	CancelReason    string
}

// Sender delivers a single email.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

type Dispatcher struct {
	sender Sender
	queue  chan Event
	logger *zap.Logger
}

const defaultQueueSize = 256

func NewDispatcher(sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		queue:  make(chan Event, defaultQueueSize),
		logger: logger,
	}
}

// Dispatch enqueues an event without blocking. Delivery is best effort:
// booking state never depends on email.
func (d *Dispatcher) Dispatch(event Event) {
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("notification queue full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("booking_id", event.BookingID),
		)
	}
}

// Run drains the queue until ctx is cancelled, then delivers whatever is
// still buffered before returning.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case event := <-d.queue:
			d.deliver(event)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	for _, m := range renderEvent(event) {
		if err := d.sender.Send(m.to, m.subject, m.body); err != nil {
			d.logger.Error("send notification failed",
				zap.String("type", string(event.Type)),
				zap.String("booking_id", event.BookingID),
				zap.String("to", m.to),
				zap.Error(err),
			)
		}
	}
}
