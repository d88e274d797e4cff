package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"estatehub/pipeline-service/internal/model"
)

// Strategy is a pluggable delivery sink. Exactly one concrete strategy is
// active per dispatch; a failed delivery never rolls back the persisted
// Notification.
type Strategy interface {
	Notify(ctx context.Context, notification model.Notification) error
}

// ─── Email ───────────────────────────────────────────────────────────────────

// EmailStrategy hands the digest to the mail collaborator. The outbound
// mail transport lives outside this service; here the handoff is logged.
type EmailStrategy struct{}

// NewEmailStrategy returns the email delivery strategy.
func NewEmailStrategy() *EmailStrategy { return &EmailStrategy{} }

// Notify implements Strategy.
func (s *EmailStrategy) Notify(_ context.Context, n model.Notification) error {
	log.Printf("[email] Sending notification %q to user %s: %s", n.Title, n.UserID, n.Message)
	return nil
}

// ─── Redis pub/sub ───────────────────────────────────────────────────────────

// RedisStrategy publishes a notification event on a Redis channel, where a
// gateway or mailer picks it up.
type RedisStrategy struct {
	rdb     *redis.Client
	channel string
}

// NewRedisStrategy returns a strategy publishing on the given channel.
func NewRedisStrategy(rdb *redis.Client, channel string) *RedisStrategy {
	return &RedisStrategy{rdb: rdb, channel: channel}
}

// Notify implements Strategy.
func (s *RedisStrategy) Notify(ctx context.Context, n model.Notification) error {
	event, err := json.Marshal(map[string]any{
		"type":           "EVENT_NOTIFICATION_CREATED",
		"notificationId": n.ID,
		"userId":         n.UserID,
		"title":          n.Title,
		"message":        n.Message,
		"offerIds":       n.OfferIDs,
	})
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}

	if err := s.rdb.Publish(ctx, s.channel, event).Err(); err != nil {
		return fmt.Errorf("publish notification event: %w", err)
	}
	return nil
}
