package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"atlab/internal/booking"
	"atlab/internal/metrics"
	"atlab/internal/queue"
)

// Mailer delivers a confirmation email.
type Mailer interface {
	Send(ctx context.Context, c booking.Confirmation) error
}

// Recorder mirrors a booking into the course gradebook.
type Recorder interface {
	RecordSignup(ctx context.Context, email, exam, slot, note string) (int64, error)
}

// Processor handles confirmation messages for the worker.
type Processor struct {
	Mailer      Mailer
	Recorder    Recorder
	Retry       queue.Queue
	MaxAttempts int
}

// Run handles messages until the channel closes.
func (p *Processor) Run(ctx context.Context, msgs <-chan queue.Message) {
	for msg := range msgs {
		if err := p.Handle(ctx, msg); err != nil {
			log.Printf("notification failed: %v", err)
		}
	}
}

// Handle delivers one message. Failed deliveries are republished until
// MaxAttempts is reached; a gradebook failure alone never resends the email.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != TypeConfirmed {
		return nil
	}
	var c booking.Confirmation
	if err := json.Unmarshal(msg.Body, &c); err != nil {
		return fmt.Errorf("decode confirmation: %w", err)
	}

	if p.Mailer != nil {
		err := p.Mailer.Send(ctx, c)
		metrics.Notifications.WithLabelValues("email", metrics.Outcome(err)).Inc()
		if err != nil {
			return p.retry(ctx, msg, fmt.Errorf("email %s: %w", c.Email, err))
		}
		log.Printf("confirmation sent to %s for %s", c.Email, c.Slot)
	}

	if p.Recorder != nil {
		note := ""
		if c.DSPS {
			note = "DSPS double block: " + c.Slot
		}
		_, err := p.Recorder.RecordSignup(ctx, c.Email, c.Exam, c.Slot, note)
		metrics.Notifications.WithLabelValues("gradebook", metrics.Outcome(err)).Inc()
		if err != nil {
			return fmt.Errorf("gradebook %s: %w", c.Email, err)
		}
	}
	return nil
}

func (p *Processor) retry(ctx context.Context, msg queue.Message, cause error) error {
	msg.Attempts++
	if p.Retry == nil || msg.Attempts >= p.MaxAttempts {
		return fmt.Errorf("giving up after %d attempts: %w", msg.Attempts, cause)
	}
	if err := p.Retry.Publish(ctx, msg); err != nil {
		return fmt.Errorf("requeue: %v: %w", err, cause)
	}
	return cause
}
