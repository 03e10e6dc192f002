package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/n0ko/message-feed/internal/feed"
	"github.com/n0ko/message-feed/internal/ledger"
	"github.com/n0ko/message-feed/internal/store"
)

const resubscribeDelay = 2 * time.Second

var (
	ErrNotConnected = errors.New("client not connected")
	// ErrFeedNotLoaded is returned when posting before any message is known
	ErrFeedNotLoaded = errors.New("feed not loaded yet")
)

// Client ties the feed operations to one ledger node, keeps the offline
// cache current and forwards node notifications as events.
type Client struct {
	mu        sync.RWMutex
	store     *store.Store
	poster    *ledger.Keypair
	configURL string
	conn      *ledger.Client
	cfg       feed.Config
	eventChan chan Event
	connected bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Client posting as poster
func New(st *store.Store, configURL string, poster *ledger.Keypair) *Client {
	return &Client{
		store:     st,
		poster:    poster,
		configURL: configURL,
		eventChan: make(chan Event, 100),
	}
}

// EventChannel returns the channel for receiving events
func (c *Client) EventChannel() <-chan Event {
	return c.eventChan
}

// IsConnected reports whether the notification stream is up
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// ConfigURL returns the config.json location
func (c *Client) ConfigURL() string {
	return c.configURL
}

// Poster returns the public key messages are posted from
func (c *Client) Poster() ledger.PublicKey {
	return c.poster.Public
}

// Cached returns the feed saved by a previous run against the same node
func (c *Client) Cached() ([]feed.Message, ledger.PublicKey) {
	cache, err := c.store.LoadCache()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load feed cache")
		return nil, ledger.PublicKey{}
	}
	if cache == nil || cache.ConfigURL != c.configURL {
		return nil, ledger.PublicKey{}
	}
	return cache.Messages, cache.FirstMessage
}

// Connect fetches config.json and starts following the node's notifications.
// Calling it again after success is a no-op.
func (c *Client) Connect(ctx context.Context) (feed.Config, error) {
	c.mu.RLock()
	if c.conn != nil {
		cfg := c.cfg
		c.mu.RUnlock()
		return cfg, nil
	}
	c.mu.RUnlock()

	cfg, err := feed.GetFirstMessage(ctx, c.configURL)
	if err != nil {
		return cfg, err
	}

	if cache := c.store.GetCache(); cache != nil && cache.FirstMessage != cfg.FirstMessage {
		log.Info().Str("first_message", cfg.FirstMessage.String()).Msg("node has a new feed, dropping cache")
		if err := c.store.ClearCache(); err != nil {
			log.Warn().Err(err).Msg("failed to clear feed cache")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.cfg, nil
	}
	c.cfg = cfg
	c.conn = ledger.NewClient(cfg.URL)

	lctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	go c.listen(lctx)

	return cfg, nil
}

func (c *Client) connection() (*ledger.Client, feed.Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return nil, c.cfg, ErrNotConnected
	}
	return c.conn, c.cfg, nil
}

// Refresh extends messages with everything posted since its last entry and
// saves the result to the cache.
func (c *Client) Refresh(ctx context.Context, messages []feed.Message) ([]feed.Message, error) {
	conn, cfg, err := c.connection()
	if err != nil {
		return messages, err
	}

	before := len(messages)
	messages, err = feed.RefreshMessageFeed(ctx, conn, messages, cfg.FirstMessage)
	if len(messages) > before {
		c.save(cfg, messages)
	}
	return messages, err
}

// Post publishes text after the last message of messages and returns the
// refreshed feed.
func (c *Client) Post(ctx context.Context, text string, messages []feed.Message) ([]feed.Message, error) {
	conn, _, err := c.connection()
	if err != nil {
		return messages, err
	}
	if len(messages) == 0 {
		return messages, ErrFeedNotLoaded
	}

	prev := messages[len(messages)-1].PublicKey
	key, err := feed.PostMessage(ctx, conn, c.poster, text, prev)
	if err != nil {
		return messages, fmt.Errorf("failed to post message: %w", err)
	}
	log.Info().Str("message", key.String()).Msg("message posted")

	return c.Refresh(ctx, messages)
}

func (c *Client) save(cfg feed.Config, messages []feed.Message) {
	err := c.store.SaveCache(&store.Cache{
		ConfigURL:    c.configURL,
		FirstMessage: cfg.FirstMessage,
		Messages:     messages,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to save feed cache")
	}
}

// listen keeps a websocket subscription open, reconnecting until ctx is done
func (c *Client) listen(ctx context.Context) {
	defer c.wg.Done()

	for {
		conn, _, err := c.connection()
		if err != nil {
			return
		}
		notes, err := conn.Subscribe(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("subscribe failed")
		} else {
			c.setConnected(true)
			c.emit(Event{Type: EventTypeConnected})

			for n := range notes {
				if len(n.Accounts) > 0 {
					c.emit(Event{Type: EventTypeNewMessages, Slot: n.Slot})
				}
			}

			c.setConnected(false)
			if ctx.Err() != nil {
				return
			}
			c.emit(Event{Type: EventTypeDisconnected})
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}

func (c *Client) setConnected(connected bool) {
	c.mu.Lock()
	c.connected = connected
	c.mu.Unlock()
}

// emit drops the event if the UI is not keeping up
func (c *Client) emit(evt Event) {
	select {
	case c.eventChan <- evt:
	default:
		log.Debug().Stringer("event", evt.Type).Msg("event channel full, dropping")
	}
}

// Close stops the notification stream and closes the event channel
func (c *Client) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	close(c.eventChan)
}
