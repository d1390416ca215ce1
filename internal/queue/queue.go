// Package queue provides the job queue capability: at-least-once delivery
// with explicit acknowledgement by receipt handle.
package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Message is one delivered queue message. ReceiptHandle acknowledges this
// specific delivery, not the message identity.
type Message struct {
	Body          []byte
	ReceiptHandle string
}

// Queue defines the queue operations the intake and the worker consume.
type Queue interface {
	// Send enqueues a message body.
	Send(ctx context.Context, body []byte) error

	// Receive long-polls for the next message. It returns (nil, nil) when
	// the poll window elapses without a delivery.
	Receive(ctx context.Context) (*Message, error)

	// Delete acknowledges a delivery, removing the message from the queue.
	Delete(ctx context.Context, receiptHandle string) error
}

// MemoryQueue is an in-memory Queue for development and tests. Messages are
// redelivered until deleted, matching the at-least-once contract.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  []*Message
	inflight map[string]*Message
}

// Compile-time check that MemoryQueue implements Queue.
var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{inflight: make(map[string]*Message)}
}

// Send enqueues a copy of body.
func (q *MemoryQueue) Send(_ context.Context, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	b := make([]byte, len(body))
	copy(b, body)
	q.pending = append(q.pending, &Message{Body: b})
	return nil
}

// Receive returns the next pending message, or (nil, nil) when empty.
// In-memory delivery has no lease timeout; undeleted messages stay in flight.
func (q *MemoryQueue) Receive(ctx context.Context) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	msg.ReceiptHandle = uuid.NewString()
	q.inflight[msg.ReceiptHandle] = msg
	return msg, nil
}

// Delete acknowledges a delivery. Unknown handles are ignored, matching
// SQS semantics for expired receipts.
func (q *MemoryQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, receiptHandle)
	return nil
}

// Len reports how many messages are pending delivery.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
