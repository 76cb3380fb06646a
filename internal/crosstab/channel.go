package crosstab

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler is the local-state surface the channel dispatches into.
// RefreshUser re-fetches the authoritative profile and credit balance;
// LogOut clears local auth state. Both must be idempotent: the same message
// may be applied more than once.
type Handler interface {
	RefreshUser(ctx context.Context) error
	LogOut(ctx context.Context) error
}

// Channel binds one instance to the broadcast transport. It rejects stale and
// self-originated messages and maps the rest onto the Handler.
type Channel struct {
	id        string
	transport Transport
	handler   Handler
	logger    zerolog.Logger
	now       func() time.Time

	inbox chan Message

	mu      sync.Mutex
	started bool
	stop    context.CancelFunc
	done    chan struct{}
}

// NewChannel creates a channel with a freshly generated instance id.
// Transport may be nil; every send then becomes a silent no-op.
func NewChannel(transport Transport, handler Handler, logger zerolog.Logger) *Channel {
	return &Channel{
		id:        uuid.NewString(),
		transport: transport,
		handler:   handler,
		logger:    logger,
		now:       time.Now,
		inbox:     make(chan Message, 16),
	}
}

// ID returns the instance id embedded in outgoing messages.
func (c *Channel) ID() string {
	return c.id
}

// Start subscribes to the transport and begins dispatching inbound messages
// until the context is cancelled or Close is called.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	if c.transport != nil {
		if err := c.transport.Subscribe(c.id, c.inbox); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	c.stop = cancel
	c.done = make(chan struct{})
	c.started = true
	go c.listen(ctx)
	return nil
}

// Close unsubscribes and stops the dispatch loop.
func (c *Channel) Close() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	stop := c.stop
	done := c.done
	c.mu.Unlock()

	if c.transport != nil {
		_ = c.transport.Unsubscribe(c.id)
	}
	stop()
	<-done
}

func (c *Channel) listen(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.inbox:
			c.handle(ctx, msg)
		}
	}
}

// handle applies one inbound message. Refresh failures are logged and
// swallowed so a flaky backend cannot crash the listener; logout messages are
// never re-broadcast, which would loop across instances.
func (c *Channel) handle(ctx context.Context, msg Message) {
	if msg.Origin == c.id {
		return
	}
	age := c.now().Sub(time.UnixMilli(msg.Timestamp))
	if age > StaleAfter {
		c.logger.Debug().Str("type", string(msg.Type)).Dur("age", age).Msg("crosstab: ignoring stale message")
		return
	}

	switch msg.Type {
	case MessageAuthUpdate, MessageCreditsUpdate:
		if err := c.handler.RefreshUser(ctx); err != nil {
			c.logger.Warn().Err(err).Str("type", string(msg.Type)).Msg("crosstab: refresh after broadcast failed")
		}
	case MessageSessionExpired, MessageUserLogout:
		if err := c.handler.LogOut(ctx); err != nil {
			c.logger.Warn().Err(err).Str("type", string(msg.Type)).Msg("crosstab: logout after broadcast failed")
		}
	default:
		c.logger.Debug().Str("type", string(msg.Type)).Msg("crosstab: unknown message type")
	}
}

// Send broadcasts a message to the other instances. With no transport
// configured it silently does nothing.
func (c *Channel) Send(msgType MessageType, data map[string]any) {
	if c.transport == nil {
		return
	}
	c.transport.Publish(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: c.now().UnixMilli(),
		Origin:    c.id,
	})
}

// NotifyAuthUpdate announces that the local user id or credit balance changed.
func (c *Channel) NotifyAuthUpdate(userID string, credits int) {
	c.Send(MessageAuthUpdate, map[string]any{"userId": userID, "credits": credits})
}

// NotifyCreditsUpdate announces an explicit credit-changing operation.
func (c *Channel) NotifyCreditsUpdate(credits int) {
	c.Send(MessageCreditsUpdate, map[string]any{"credits": credits})
}

// NotifyUserLogout announces a local logout. Callers clear local state first
// and notify second, so other instances never refresh against a half-cleared
// session.
func (c *Channel) NotifyUserLogout() {
	c.Send(MessageUserLogout, nil)
}

// NotifySessionExpired announces that the backend rejected the session.
func (c *Channel) NotifySessionExpired() {
	c.Send(MessageSessionExpired, nil)
}
