package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "zone:queue:"

// promoteScript moves delayed messages whose time has come onto the ready list
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, m in ipairs(due) do
	redis.call('ZREM', KEYS[1], m)
	redis.call('LPUSH', KEYS[2], m)
end
return #due
`)

// RedisBroker keeps each queue as three keys: a ready list, an in-flight
// list and a sorted set of delayed messages scored by their due time.
type RedisBroker struct {
	client       *redis.Client
	promoteBatch int
	now          func() time.Time
}

// NewRedisBroker creates a broker on an existing client
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client, promoteBatch: 100, now: time.Now}
}

func readyKey(queue string) string    { return keyPrefix + queue }
func inflightKey(queue string) string { return keyPrefix + queue + ":inflight" }
func delayedKey(queue string) string  { return keyPrefix + queue + ":delayed" }

// Enqueue implements core.JobQueue
func (b *RedisBroker) Enqueue(ctx context.Context, queue, name string, payload map[string]string) error {
	raw, err := newMessage(queue, name, payload, b.now()).encode()
	if err != nil {
		return err
	}
	if err := b.client.LPush(ctx, readyKey(queue), raw).Err(); err != nil {
		return fmt.Errorf("failed to enqueue %s on %s: %w", name, queue, err)
	}
	return nil
}

// EnqueueIn implements core.JobQueue
func (b *RedisBroker) EnqueueIn(ctx context.Context, queue, name string, payload map[string]string, delay time.Duration) error {
	if delay <= 0 {
		return b.Enqueue(ctx, queue, name, payload)
	}
	return b.schedule(ctx, b.client, newMessage(queue, name, payload, b.now()), delay)
}

func (b *RedisBroker) schedule(ctx context.Context, cmd redis.Cmdable, msg *Message, delay time.Duration) error {
	raw, err := msg.encode()
	if err != nil {
		return err
	}
	due := float64(b.now().Add(delay).UnixMilli())
	if err := cmd.ZAdd(ctx, delayedKey(msg.Queue), redis.Z{Score: due, Member: raw}).Err(); err != nil {
		return fmt.Errorf("failed to schedule %s on %s: %w", msg.Name, msg.Queue, err)
	}
	return nil
}

// Dequeue implements Broker
func (b *RedisBroker) Dequeue(ctx context.Context, queue string, wait time.Duration) (*Message, error) {
	now := strconv.FormatInt(b.now().UnixMilli(), 10)
	if err := promoteScript.Run(ctx, b.client, []string{delayedKey(queue), readyKey(queue)}, now, b.promoteBatch).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to promote delayed jobs on %s: %w", queue, err)
	}

	raw, err := b.client.BLMove(ctx, readyKey(queue), inflightKey(queue), "RIGHT", "LEFT", wait).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue from %s: %w", queue, err)
	}
	msg, err := decodeMessage(raw)
	if err != nil {
		// a message nobody can read would otherwise come back on every Recover
		_ = b.client.LRem(ctx, inflightKey(queue), 1, raw).Err()
		return nil, err
	}
	return msg, nil
}

// Ack implements Broker
func (b *RedisBroker) Ack(ctx context.Context, msg *Message) error {
	if err := b.client.LRem(ctx, inflightKey(msg.Queue), 1, msg.raw).Err(); err != nil {
		return fmt.Errorf("failed to ack job %s: %w", msg.ID, err)
	}
	return nil
}

// Retry implements Broker
func (b *RedisBroker) Retry(ctx context.Context, msg *Message, delay time.Duration) error {
	next := *msg
	next.Attempt++
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, inflightKey(msg.Queue), 1, msg.raw)
		return b.schedule(ctx, pipe, &next, delay)
	})
	if err != nil {
		return fmt.Errorf("failed to retry job %s: %w", msg.ID, err)
	}
	return nil
}

// Recover implements Broker
func (b *RedisBroker) Recover(ctx context.Context, queue string) (int, error) {
	var moved int
	for {
		err := b.client.LMove(ctx, inflightKey(queue), readyKey(queue), "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to recover jobs on %s: %w", queue, err)
		}
		moved++
	}
}

var _ Broker = (*RedisBroker)(nil)
