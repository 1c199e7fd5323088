package notify

import (
	"context"
	"encoding/json"

	"atlab/internal/booking"
	"atlab/internal/queue"
)

// TypeConfirmed marks a booking confirmation message.
const TypeConfirmed = "booking.confirmed"

// QueueNotifier hands confirmations to the background worker.
type QueueNotifier struct {
	q queue.Queue
}

// NewQueueNotifier publishes confirmations on q.
func NewQueueNotifier(q queue.Queue) *QueueNotifier {
	return &QueueNotifier{q: q}
}

// Notify enqueues c. Delivery happens in the worker.
func (n *QueueNotifier) Notify(ctx context.Context, c booking.Confirmation) error {
	body, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return n.q.Publish(ctx, queue.Message{Type: TypeConfirmed, Body: body})
}
