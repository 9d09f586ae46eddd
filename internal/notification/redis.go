package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChannelPrefix prefixes the per-account pub/sub channel the socket layer listens on.
const ChannelPrefix = "notifications:"

// RedisNotifier publishes messages on the account's Redis channel.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier binds the notifier to a Redis client.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// Channel returns the pub/sub channel for an account.
func Channel(accountID string) string {
	return ChannelPrefix + accountID
}

// Send publishes the JSON encoded message.
func (n *RedisNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.client == nil {
		return nil
	}
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return n.client.Publish(ctx, Channel(message.AccountID), body).Err()
}
