// Package notifications publishes domain events to Redis pub/sub channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"agora/internal/middleware"
	"agora/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// Event types published after a successful mutation.
const (
	EventPostCreated    = "post_created"
	EventPostApproved   = "post_approved"
	EventCommentCreated = "comment_created"
	EventVoteChanged    = "vote_changed"
	EventLikeToggled    = "like_toggled"
	EventContentDeleted = "content_deleted"
	EventUserBlocked    = "user_blocked"
)

// BroadcastChannel receives every event.
const BroadcastChannel = "notifications:broadcast"

// Event is the JSON envelope written to the channels.
type Event struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Notifier provides helpers to publish events into Redis channels. A nil
// client turns every call into a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends the event to the broadcast channel and, when recipients are
// given, to each recipient's user channel.
func (n *Notifier) Publish(ctx context.Context, eventType string, payload map[string]interface{}, recipients ...uint) (err error) {
	if n == nil || n.rdb == nil {
		return nil
	}
	ctx, span := observability.TraceRedisOperation(ctx, "publish", attribute.String("event.type", eventType))
	defer func() {
		observability.EventsPublished.WithLabelValues(eventType, observability.ResultLabel(err)).Inc()
		observability.EndSpan(span, err)
	}()

	msg, err := json.Marshal(Event{Type: eventType, Payload: payload, OccurredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	if err := n.rdb.Publish(ctx, BroadcastChannel, msg).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	for _, userID := range recipients {
		if userID == 0 {
			continue
		}
		if err := n.rdb.Publish(ctx, UserChannel(userID), msg).Err(); err != nil {
			return fmt.Errorf("publish %s to user %d: %w", eventType, userID, err)
		}
	}
	return nil
}

// Subscribe listens on the broadcast channel and every user channel until
// ctx is cancelled, decoding each message before handing it to onEvent.
// Malformed messages are logged and skipped.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(channel string, event Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*", BroadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					middleware.Logger.Warn("Skipping malformed event",
						slog.String("channel", msg.Channel),
						slog.String("error", err.Error()),
					)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("Panic in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onEvent(msg.Channel, event)
				}()
			}
		}
	}()
	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
