package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureSender struct {
	mu   sync.Mutex
	sent []message
}

func (c *captureSender) Send(to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, message{to: to, subject: subject, body: body})
	return nil
}

func (c *captureSender) all() []message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message(nil), c.sent...)
}

func confirmedEvent() Event {
	return Event{
		Type:            EventBookingConfirmed,
		BookingID:       "bk-1",
		SessionKind:     "YOGA",
		MentorName:      "Asha",
		ScheduledAt:     time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		SessionLink:     "https://meet.example.com/asha",
		StudentEmail:    "student@example.com",
		MentorEmail:     "asha@example.com",
	}
}

func TestDispatcherDeliversToBothParties(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(confirmedEvent())
	cancel()
	d.Run(ctx) // cancelled context: Run drains the queue and returns

	sent := sender.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "student@example.com", sent[0].to)
	assert.Contains(t, sent[0].body, "https://meet.example.com/asha")
	assert.Equal(t, "asha@example.com", sent[1].to)
}

func TestDispatcherSkipsMissingRecipients(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender, zap.NewNop())

	event := confirmedEvent()
	event.MentorEmail = ""

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(event)
	cancel()
	d.Run(ctx)

	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "student@example.com", sent[0].to)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender, zap.NewNop())

	// Nothing consumes the queue, so overflow must not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := 0; n < defaultQueueSize+10; n++ {
			d.Dispatch(confirmedEvent())
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
}

func TestCancelledTemplatesNameTheCanceller(t *testing.T) {
	event := Event{
		Type:            EventBookingCancelled,
		BookingID:       "bk-1",
		SessionKind:     "MEDITATION",
		MentorName:      "Asha",
		ScheduledAt:     time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		StudentEmail:    "student@example.com",
		MentorEmail:     "asha@example.com",
		CancelledBy:     "mentor",
		CancelReason:    "illness",
	}

	msgs := renderEvent(event)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Contains(t, m.body, "cancelled by the mentor")
		assert.Contains(t, m.body, "illness")
	}
}
