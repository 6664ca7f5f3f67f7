package queue

import (
	"context"
	"sync"
	"time"
)

type delayedMessage struct {
	msg *Message
	due time.Time
}

// MemoryBroker is a process-local Broker for tests and single-process
// development runs. Messages are lost when the process exits.
type MemoryBroker struct {
	mu       sync.Mutex
	ready    map[string][]*Message
	inflight map[string][]*Message
	delayed  map[string][]delayedMessage
	signal   chan struct{}
	now      func() time.Time
}

// NewMemoryBroker creates an empty broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		ready:    make(map[string][]*Message),
		inflight: make(map[string][]*Message),
		delayed:  make(map[string][]delayedMessage),
		signal:   make(chan struct{}, 1),
		now:      time.Now,
	}
}

func (b *MemoryBroker) notify() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// Enqueue implements core.JobQueue
func (b *MemoryBroker) Enqueue(_ context.Context, queue, name string, payload map[string]string) error {
	b.mu.Lock()
	b.ready[queue] = append(b.ready[queue], newMessage(queue, name, payload, b.now()))
	b.mu.Unlock()
	b.notify()
	return nil
}

// EnqueueIn implements core.JobQueue
func (b *MemoryBroker) EnqueueIn(ctx context.Context, queue, name string, payload map[string]string, delay time.Duration) error {
	if delay <= 0 {
		return b.Enqueue(ctx, queue, name, payload)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	msg := newMessage(queue, name, payload, b.now())
	b.delayed[queue] = append(b.delayed[queue], delayedMessage{msg: msg, due: b.now().Add(delay)})
	return nil
}

func (b *MemoryBroker) take(queue string) *Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	pending := b.delayed[queue][:0]
	for _, d := range b.delayed[queue] {
		if d.due.After(now) {
			pending = append(pending, d)
			continue
		}
		b.ready[queue] = append(b.ready[queue], d.msg)
	}
	b.delayed[queue] = pending

	if len(b.ready[queue]) == 0 {
		return nil
	}
	msg := b.ready[queue][0]
	b.ready[queue] = b.ready[queue][1:]
	b.inflight[queue] = append(b.inflight[queue], msg)
	return msg
}

// Dequeue implements Broker
func (b *MemoryBroker) Dequeue(ctx context.Context, queue string, wait time.Duration) (*Message, error) {
	if msg := b.take(queue); msg != nil {
		return msg, nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return b.take(queue), nil
		case <-b.signal:
			if msg := b.take(queue); msg != nil {
				return msg, nil
			}
		}
	}
}

func (b *MemoryBroker) removeInflight(msg *Message) {
	list := b.inflight[msg.Queue]
	for i, m := range list {
		if m == msg {
			b.inflight[msg.Queue] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Ack implements Broker
func (b *MemoryBroker) Ack(_ context.Context, msg *Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeInflight(msg)
	return nil
}

// Retry implements Broker
func (b *MemoryBroker) Retry(_ context.Context, msg *Message, delay time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeInflight(msg)
	next := *msg
	next.Attempt++
	b.delayed[msg.Queue] = append(b.delayed[msg.Queue], delayedMessage{msg: &next, due: b.now().Add(delay)})
	return nil
}

// Recover implements Broker
func (b *MemoryBroker) Recover(_ context.Context, queue string) (int, error) {
	b.mu.Lock()
	moved := len(b.inflight[queue])
	b.ready[queue] = append(b.inflight[queue], b.ready[queue]...)
	b.inflight[queue] = nil
	b.mu.Unlock()
	if moved > 0 {
		b.notify()
	}
	return moved, nil
}

// Len returns the number of ready, in-flight and delayed messages on queue
func (b *MemoryBroker) Len(queue string) (ready, inflight, delayed int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ready[queue]), len(b.inflight[queue]), len(b.delayed[queue])
}

var _ Broker = (*MemoryBroker)(nil)
