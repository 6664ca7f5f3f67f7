// Package queue implements the named background job queues on Redis and the
// worker that consumes them.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/google/uuid"
)

// Message is one job on a queue
type Message struct {
	ID         string            `json:"id"`
	Queue      string            `json:"queue"`
	Name       string            `json:"name"`
	Payload    map[string]string `json:"payload"`
	Attempt    int               `json:"attempt"`
	EnqueuedAt time.Time         `json:"enqueued_at"`

	// raw is the encoded form the broker holds while the message is in flight
	raw string
}

func newMessage(queue, name string, payload map[string]string, now time.Time) *Message {
	return &Message{
		ID:         uuid.NewString(),
		Queue:      queue,
		Name:       name,
		Payload:    payload,
		Attempt:    1,
		EnqueuedAt: now.UTC(),
	}
}

func (m *Message) encode() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode job %s: %w", m.Name, err)
	}
	return string(b), nil
}

func decodeMessage(raw string) (*Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	m.raw = raw
	return &m, nil
}

// Broker stores messages between producers and the worker. Delivery is at
// least once: a message taken by Dequeue stays in flight until Ack or Retry,
// and Recover hands in-flight messages of a crashed worker back to the queue.
type Broker interface {
	core.JobQueue

	// Dequeue waits up to wait for the next ready message. It returns nil
	// without error when none arrived.
	Dequeue(ctx context.Context, queue string, wait time.Duration) (*Message, error)
	Ack(ctx context.Context, msg *Message) error
	// Retry acknowledges msg and schedules its next attempt after delay
	Retry(ctx context.Context, msg *Message, delay time.Duration) error
	Recover(ctx context.Context, queue string) (int, error)
}
