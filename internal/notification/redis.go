package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	inboxPrefix = "payphone:inbox:"
	// InboxSize caps how many messages are kept per user.
	InboxSize = 50
	// InboxTTL is how long an idle inbox survives.
	InboxTTL = 24 * time.Hour
)

// RedisNotifier keeps a capped per-user list of messages in Redis.
type RedisNotifier struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisNotifier builds a Redis-backed inbox.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client, now: time.Now}
}

// Send pushes message onto the user's inbox.
func (n *RedisNotifier) Send(ctx context.Context, message Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = n.now().UTC()
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	key := inboxPrefix + message.UserID
	pipe := n.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, InboxSize-1)
	pipe.Expire(ctx, key, InboxTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

// Recent returns up to limit messages, newest first.
func (n *RedisNotifier) Recent(ctx context.Context, userID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > InboxSize {
		limit = InboxSize
	}
	raw, err := n.client.LRange(ctx, inboxPrefix+userID, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}
