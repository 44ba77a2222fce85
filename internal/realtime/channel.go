package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/project-console/internal/core/events"
	"github.com/frahmantamala/project-console/pkg/logger"
)

// Topics pushed by the backend. Payloads are advisory: events trigger
// refetches, they never carry authoritative state themselves.
const (
	TopicNewMail            = "new-mail"
	TopicMailReply          = "mail-reply"
	TopicMailDeleted        = "mail-deleted"
	TopicNotificationUpdate = "notification-update"
	TopicProjectAssignment  = "project-assignment"
)

const (
	topicChannelPrefix = "console:events:"
	userRoomPrefix     = "console:user:"
)

var allTopics = []string{
	TopicNewMail,
	TopicMailReply,
	TopicMailDeleted,
	TopicNotificationUpdate,
	TopicProjectAssignment,
}

// Connect initializes a redis client from URL or host:port input. Supporting
// both formats keeps local and container config paths simple. Reconnection
// and backoff are go-redis's responsibility.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// Channel is the shared push connection: one redis pub/sub subscription
// feeding an in-process topic bus. Subscribers register per topic and get a
// cancel func back; joining the per-user room is a separate, explicit
// operation. A nil redis client leaves the channel in local-only mode, where
// events arrive via Deliver (tests, offline mode).
type Channel struct {
	bus    *events.Bus
	client *redis.Client
	logger *slog.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	room   string
}

func NewChannel(client *redis.Client, logger *slog.Logger) *Channel {
	return &Channel{
		bus:    events.NewBus(logger),
		client: client,
		logger: logger,
	}
}

// Start opens the transport subscription for all topics and begins
// dispatching. Safe to skip in local-only mode.
func (c *Channel) Start(ctx context.Context) error {
	if c.client == nil {
		c.logger.Debug("realtime channel running in local-only mode")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pubsub != nil {
		return nil
	}

	channels := make([]string, len(allTopics))
	for i, topic := range allTopics {
		channels[i] = topicChannelPrefix + topic
	}

	pubsub := c.client.Subscribe(ctx, channels...)
	runCtx, cancel := context.WithCancel(ctx)
	c.pubsub = pubsub
	c.cancel = cancel

	go c.dispatchLoop(runCtx, pubsub)
	c.logger.Info("realtime channel started", "topics", len(channels))
	return nil
}

// Subscribe registers handler for one topic and returns its unsubscribe
// func. Every subscribe must be paired with an unsubscribe on teardown.
func (c *Channel) Subscribe(topic string, handler events.Handler) (unsubscribe func()) {
	return c.bus.Subscribe(topic, handler)
}

// JoinUserRoom subscribes the transport to the caller's user room so
// user-scoped pushes arrive. Call once per session, undo with LeaveUserRoom.
func (c *Channel) JoinUserRoom(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	room := userRoomPrefix + userID
	if c.room == room {
		return nil
	}
	if c.pubsub != nil {
		if c.room != "" {
			if err := c.pubsub.Unsubscribe(ctx, c.room); err != nil {
				c.logger.Warn("failed to leave previous user room", "room", c.room, "error", err)
			}
		}
		if err := c.pubsub.Subscribe(ctx, room); err != nil {
			return fmt.Errorf("join user room: %w", err)
		}
	}
	c.room = room
	c.logger.Debug("joined user room", "room", room)
	return nil
}

func (c *Channel) LeaveUserRoom(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.room == "" {
		return
	}
	if c.pubsub != nil {
		if err := c.pubsub.Unsubscribe(ctx, c.room); err != nil {
			c.logger.Warn("failed to leave user room", "room", c.room, "error", err)
		}
	}
	c.logger.Debug("left user room", "room", c.room)
	c.room = ""
}

// Deliver injects an event into local dispatch, bypassing the transport.
func (c *Channel) Deliver(ctx context.Context, event events.Event) {
	if err := c.bus.PublishSync(ctx, event); err != nil {
		c.logger.Debug("local event delivery reported failure", "event_type", event.EventType(), "error", err)
	}
}

func (c *Channel) Close() {
	c.mu.Lock()
	cancel := c.cancel
	pubsub := c.pubsub
	c.cancel = nil
	c.pubsub = nil
	c.room = ""
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if pubsub != nil {
		if err := pubsub.Close(); err != nil {
			c.logger.Warn("failed to close pubsub", "error", err)
		}
	}
}

func (c *Channel) dispatchLoop(ctx context.Context, pubsub *redis.PubSub) {
	messages := pubsub.Channel()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.dispatch(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Channel) dispatch(ctx context.Context, msg *redis.Message) {
	event := decodeEvent(msg)
	if event.Type == "" {
		c.logger.Warn("dropping push event with no topic", "channel", msg.Channel)
		return
	}
	c.logger.Debug("push event received", "topic", event.Type, "event_id", event.ID)
	// Handlers log through logger.From(ctx), so the event identity rides
	// along into every line they emit.
	c.bus.Publish(logger.With(ctx, "topic", event.Type, "event_id", event.ID), event)
}

// decodeEvent tolerates both the enveloped `{id,type,timestamp,data}` shape
// and bare payloads published straight to a topic channel.
func decodeEvent(msg *redis.Message) events.BaseEvent {
	var event events.BaseEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil || event.Type == "" {
		event = events.BaseEvent{Data: map[string]any{}}
		var data map[string]any
		if err := json.Unmarshal([]byte(msg.Payload), &data); err == nil {
			event.Data = data
		}
		event.Type = strings.TrimPrefix(msg.Channel, topicChannelPrefix)
		if strings.HasPrefix(msg.Channel, userRoomPrefix) {
			// Room messages carry their topic in the payload only;
			// without one there is nothing to dispatch on.
			event.Type = ""
			if t, ok := data["type"].(string); ok {
				event.Type = t
			}
		}
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Data == nil {
		event.Data = map[string]any{}
	}
	return event
}
