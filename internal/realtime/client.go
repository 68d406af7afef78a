// Package realtime subscribes to row changes of the projects table over the
// hosted database's websocket change feed.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"wisp/internal/store"
)

// Status is the subscription state reported to Config.OnStatus.
type Status int

const (
	StatusConnecting Status = iota
	StatusSubscribed
	StatusDisconnected
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusSubscribed:
		return "subscribed"
	case StatusDisconnected:
		return "disconnected"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrJoinTimeout is returned when the channel join is not acknowledged.
	ErrJoinTimeout = errors.New("realtime: join timed out")
	// ErrHeartbeatTimeout is returned when a heartbeat goes unanswered for a
	// full interval.
	ErrHeartbeatTimeout = errors.New("realtime: heartbeat timed out")
	// ErrChannelClosed is returned when the server closes the channel.
	ErrChannelClosed = errors.New("realtime: channel closed by server")
)

const (
	DefaultHeartbeatInterval = 25 * time.Second
	DefaultJoinTimeout       = 10 * time.Second
	defaultMinBackoff        = time.Second
	defaultMaxBackoff        = 30 * time.Second
)

// Config describes a subscription.
type Config struct {
	// URL is the service base URL (http or https).
	URL    string
	APIKey string
	// Token returns the user's access token at join time. May be nil.
	Token func() string

	Channel string
	Filter  ChangeFilter

	HeartbeatInterval time.Duration
	JoinTimeout       time.Duration
	MinBackoff        time.Duration
	MaxBackoff        time.Duration

	Dialer   *websocket.Dialer
	Logger   *slog.Logger
	OnStatus func(Status, error)
}

// Client holds one subscription. Run drives it; Close stops it.
type Client struct {
	cfg Config

	ref atomic.Uint64

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// New returns a client for cfg with defaults filled in.
func New(cfg Config) *Client {
	if cfg.Channel == "" {
		cfg.Channel = "projects"
	}
	if cfg.Filter.Event == "" {
		cfg.Filter.Event = "*"
	}
	if cfg.Filter.Schema == "" {
		cfg.Filter.Schema = "public"
	}
	if cfg.Filter.Table == "" {
		cfg.Filter.Table = "projects"
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = defaultMinBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{cfg: cfg, done: make(chan struct{})}
}

// Topic is the channel topic joined on the socket.
func (c *Client) Topic() string {
	return "realtime:" + c.cfg.Channel
}

// Endpoint returns the websocket URL derived from the base URL.
func Endpoint(base, apiKey string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("vsn", protocolVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run connects, joins and delivers decoded change events to handler until
// ctx is done or Close is called. Dropped connections are retried with
// exponential backoff. Run returns nil on a clean stop.
func (c *Client) Run(ctx context.Context, handler func(store.ChangeEvent)) error {
	endpoint, err := Endpoint(c.cfg.URL, c.cfg.APIKey)
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.MinBackoff
	b.MaxInterval = c.cfg.MaxBackoff

	for {
		c.setStatus(StatusConnecting, nil)
		err := c.session(ctx, endpoint, handler, b)
		if c.stopped(ctx) {
			c.setStatus(StatusClosed, nil)
			return nil
		}
		c.setStatus(StatusDisconnected, err)

		wait := b.NextBackOff()
		c.cfg.Logger.Warn("realtime disconnected", "error", err, "retry_in", wait)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			c.setStatus(StatusClosed, nil)
			return nil
		case <-c.done:
			t.Stop()
			c.setStatus(StatusClosed, nil)
			return nil
		case <-t.C:
		}
	}
}

// Close leaves the channel and closes the socket. It is safe to call more
// than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = c.send(conn, Message{Topic: c.Topic(), Event: EventLeave, Payload: json.RawMessage(`{}`), Ref: c.nextRef()})
	return conn.Close()
}

func (c *Client) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) session(ctx context.Context, endpoint string, handler func(store.ChangeEvent), b *backoff.ExponentialBackOff) error {
	conn, _, err := c.cfg.Dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	msgs := make(chan Message)
	readErr := make(chan error, 1)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			var m Message
			if err := conn.ReadJSON(&m); err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- m:
			case <-quit:
				return
			}
		}
	}()

	token := ""
	if c.cfg.Token != nil {
		token = c.cfg.Token()
	}
	payload, err := json.Marshal(newJoinPayload(c.cfg.Filter, token))
	if err != nil {
		return fmt.Errorf("encode join: %w", err)
	}
	joinRef := c.nextRef()
	if err := c.send(conn, Message{Topic: c.Topic(), Event: EventJoin, Payload: payload, Ref: joinRef}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	joinTimer := time.NewTimer(c.cfg.JoinTimeout)
	defer joinTimer.Stop()
	heartbeat := time.NewTicker(c.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	joined := false
	pendingHeartbeat := ""

	for {
		select {
		case <-c.done:
			return nil
		case err := <-readErr:
			if c.stopped(ctx) {
				return nil
			}
			return fmt.Errorf("read: %w", err)

		case <-joinTimer.C:
			if !joined {
				return ErrJoinTimeout
			}

		case <-heartbeat.C:
			if pendingHeartbeat != "" {
				return ErrHeartbeatTimeout
			}
			pendingHeartbeat = c.nextRef()
			if err := c.send(conn, Message{Topic: PhoenixTopic, Event: EventHeartbeat, Payload: json.RawMessage(`{}`), Ref: pendingHeartbeat}); err != nil {
				return fmt.Errorf("send heartbeat: %w", err)
			}

		case m := <-msgs:
			if m.Topic == PhoenixTopic {
				if m.Event == EventReply && m.Ref == pendingHeartbeat {
					pendingHeartbeat = ""
				}
				continue
			}
			if m.Topic != c.Topic() {
				continue
			}

			switch m.Event {
			case EventReply:
				if m.Ref != joinRef {
					continue
				}
				var r reply
				if err := json.Unmarshal(m.Payload, &r); err != nil {
					return fmt.Errorf("decode join reply: %w", err)
				}
				if r.Status != "ok" {
					return fmt.Errorf("join rejected: %s %s", r.Status, string(r.Response))
				}
				joined = true
				b.Reset()
				c.setStatus(StatusSubscribed, nil)

			case EventPostgresChanges:
				ev, err := DecodeChange(m.Payload)
				if err != nil {
					c.cfg.Logger.Warn("dropping undecodable change", "error", err)
					continue
				}
				handler(ev)

			case EventSystem:
				var sp systemPayload
				if err := json.Unmarshal(m.Payload, &sp); err == nil && sp.Status == "error" {
					return fmt.Errorf("subscription error: %s", sp.Message)
				}
				c.cfg.Logger.Debug("realtime system message", "payload", string(m.Payload))

			case EventError:
				return fmt.Errorf("channel error: %s", string(m.Payload))

			case EventClose:
				return ErrChannelClosed
			}
		}
	}
}

func (c *Client) send(conn *websocket.Conn, m Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(m)
}

func (c *Client) nextRef() string {
	return strconv.FormatUint(c.ref.Add(1), 10)
}

func (c *Client) setStatus(s Status, err error) {
	c.cfg.Logger.Debug("realtime status", "status", s.String(), "error", err)
	if c.cfg.OnStatus != nil {
		c.cfg.OnStatus(s, err)
	}
}
