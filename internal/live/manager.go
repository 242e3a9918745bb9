// Package live manages the persistent publish/subscribe connection used for
// realtime chat: one connection per session, at most one room subscription,
// automatic reconnect.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
)

const (
	DefaultTopicPrefix    = "/topic/rooms/"
	DefaultSendPrefix     = "/app/rooms/"
	DefaultReconnectDelay = 2 * time.Second

	eventBuffer = 256
)

// Options configures a Manager.
type Options struct {
	// TopicPrefix + roomId is the inbound topic of a room.
	TopicPrefix string
	// SendPrefix + roomId + "/send" is the publish destination of a room.
	SendPrefix string
	// ReconnectDelay is the fixed delay between connection attempts.
	ReconnectDelay time.Duration
	// Backoff overrides the reconnect policy. Returning backoff.Stop from
	// NextBackOff ends Run.
	Backoff func() backoff.BackOff
}

type subscription struct {
	id     string
	roomID chat.RoomID
}

// Manager owns the live connection and the active room subscription. All
// state lives on the Manager and is read at the moment it is needed, so a
// connect that races a room switch always subscribes the latest room.
type Manager struct {
	dialer Dialer
	opts   Options
	log    zerolog.Logger
	events chan Event

	mu           sync.Mutex
	state        State
	conn         Conn
	active       chat.RoomID
	sub          *subscription
	nextSub      uint64
	running      bool
	closed       bool
	eventsClosed bool
	cancel       context.CancelFunc
}

// NewManager creates a Manager. Call Run to connect.
func NewManager(dialer Dialer, opts Options, log zerolog.Logger) *Manager {
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = DefaultTopicPrefix
	}
	if opts.SendPrefix == "" {
		opts.SendPrefix = DefaultSendPrefix
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}

	return &Manager{
		dialer: dialer,
		opts:   opts,
		log:    log,
		events: make(chan Event, eventBuffer),
	}
}

// Events returns the channel inbound messages and status changes are
// delivered on. It is closed when Run returns.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ActiveRoom returns the room the caller last selected, or zero.
func (m *Manager) ActiveRoom() chat.RoomID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SubscribedRoom returns the room with a live subscription, or zero.
func (m *Manager) SubscribedRoom() chat.RoomID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub == nil {
		return 0
	}
	return m.sub.roomID
}

// Run connects and keeps the connection alive until ctx is cancelled or
// Close is called. It must be called at most once.
func (m *Manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	if m.running || m.closed {
		m.mu.Unlock()
		return fmt.Errorf("live: manager already started or closed")
	}
	m.running = true
	m.cancel = cancel
	m.mu.Unlock()

	defer m.closeEvents()

	policy := m.newBackOff()

	for {
		if ctx.Err() != nil {
			m.setState(StateDisconnected, nil)
			return nil
		}

		m.setState(StateConnecting, nil)

		conn, err := m.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				m.setState(StateDisconnected, nil)
				return nil
			}
			m.log.Warn().Err(err).Msg("connect failed")
			m.setState(StateDisconnected, err)
			if !m.wait(ctx, policy) {
				return nil
			}
			continue
		}

		if !m.attach(conn) {
			_ = conn.Close()
			return nil
		}
		policy.Reset()

		err = m.receive(ctx, conn)

		if !m.detach(conn, err) {
			return nil
		}
		if !m.wait(ctx, policy) {
			return nil
		}
	}
}

// SwitchActiveRoom unsubscribes the previous room, if any, then subscribes
// roomID when connected. A zero roomID only tears down.
func (m *Manager) SwitchActiveRoom(roomID chat.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unsubscribeLocked()
	m.active = roomID

	if roomID != 0 && m.state == StateConnected && m.conn != nil {
		m.subscribeLocked()
	}
}

// Send publishes content to the room. It does not wait for delivery; the
// message comes back as a MessageEvent. Returns chat.ErrNotConnected when the
// live channel is down. Nothing is queued.
func (m *Manager) Send(roomID chat.RoomID, senderID chat.UserID, content string) error {
	body, err := json.Marshal(chat.OutboundMessage{SenderID: senderID, Content: content})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected || m.conn == nil {
		return chat.ErrNotConnected
	}

	if err := m.conn.Publish(m.sendDestination(roomID), body); err != nil {
		return fmt.Errorf("publish to room %d: %w", roomID, err)
	}

	return nil
}

// Close unsubscribes, then deactivates the connection. Safe to call more
// than once and before Run.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true

	m.unsubscribeLocked()
	conn := m.conn
	m.conn = nil
	cancel := m.cancel
	running := m.running
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if conn != nil {
		err = conn.Close()
	}

	if !running {
		m.closeEvents()
	}

	return err
}

// attach installs a fresh connection and rebuilds the subscription for the
// active room. Returns false when the manager was closed meanwhile.
func (m *Manager) attach(conn Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	m.conn = conn
	m.sub = nil
	m.setStateLocked(StateConnected, nil)
	m.log.Info().Msg("connected")

	if m.active != 0 {
		m.subscribeLocked()
	}

	return true
}

// detach drops a connection that stopped delivering. Subscription state is
// discarded; the next attach rebuilds it.
func (m *Manager) detach(conn Conn, cause error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == conn {
		m.conn = nil
		m.sub = nil
		_ = conn.Close()
	}

	if m.closed {
		m.setStateLocked(StateDisconnected, nil)
		return false
	}

	m.log.Warn().Err(cause).Msg("connection lost")
	m.setStateLocked(StateDisconnected, cause)
	return true
}

func (m *Manager) receive(ctx context.Context, conn Conn) error {
	for {
		d, err := conn.Receive()
		if err != nil {
			return err
		}

		msg, err := m.decode(d)
		if err != nil {
			m.log.Warn().Err(err).Str("destination", d.Destination).Msg("dropping malformed frame")
			continue
		}

		select {
		case m.events <- MessageEvent{Message: msg}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// decode parses a delivery. The room comes from the destination the frame
// was delivered on, falling back to the body.
func (m *Manager) decode(d Delivery) (chat.Message, error) {
	var msg chat.Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return chat.Message{}, fmt.Errorf("decode message: %w", err)
	}

	if roomID, ok := m.roomFromTopic(d.Destination); ok {
		msg.RoomID = roomID
	}
	if msg.RoomID == 0 {
		return chat.Message{}, fmt.Errorf("decode message: no room for destination %q", d.Destination)
	}

	return msg, nil
}

func (m *Manager) subscribeLocked() {
	id := "sub-" + strconv.FormatUint(m.nextSub, 10)
	m.nextSub++
	roomID := m.active

	if err := m.conn.Subscribe(id, m.topic(roomID)); err != nil {
		m.log.Warn().Err(err).Int64("room_id", int64(roomID)).Msg("subscribe failed")
		m.emitLocked(SubscriptionErrorEvent{
			RoomID: roomID,
			Err:    fmt.Errorf("%w: room %d: %v", chat.ErrSubscription, roomID, err),
		})
		return
	}

	m.sub = &subscription{id: id, roomID: roomID}
	m.log.Debug().Int64("room_id", int64(roomID)).Str("id", id).Msg("subscribed")
}

func (m *Manager) unsubscribeLocked() {
	if m.sub == nil {
		return
	}

	if m.conn != nil {
		if err := m.conn.Unsubscribe(m.sub.id); err != nil {
			m.log.Debug().Err(err).Str("id", m.sub.id).Msg("unsubscribe failed")
		}
	}

	m.log.Debug().Int64("room_id", int64(m.sub.roomID)).Msg("unsubscribed")
	m.sub = nil
}

func (m *Manager) setState(s State, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setStateLocked(s, err)
}

func (m *Manager) setStateLocked(s State, err error) {
	if m.state == s && err == nil {
		return
	}
	m.state = s
	m.emitLocked(StatusEvent{State: s, Err: err})
}

// emitLocked queues an event without blocking. Callers on the UI goroutine
// must never block on the channel they drain.
func (m *Manager) emitLocked(ev Event) {
	if m.eventsClosed {
		return
	}
	select {
	case m.events <- ev:
	default:
		m.log.Warn().Type("event", ev).Msg("event buffer full, dropping")
	}
}

func (m *Manager) closeEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.eventsClosed {
		return
	}
	m.eventsClosed = true
	close(m.events)
}

func (m *Manager) wait(ctx context.Context, policy backoff.BackOff) bool {
	delay := policy.NextBackOff()
	if delay == backoff.Stop {
		m.log.Warn().Msg("reconnect policy exhausted")
		m.setState(StateDisconnected, nil)
		return false
	}

	m.log.Debug().Dur("delay", delay).Msg("reconnecting")

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		m.setState(StateDisconnected, nil)
		return false
	case <-t.C:
		return true
	}
}

func (m *Manager) newBackOff() backoff.BackOff {
	if m.opts.Backoff != nil {
		return m.opts.Backoff()
	}
	return backoff.NewConstantBackOff(m.opts.ReconnectDelay)
}

func (m *Manager) topic(roomID chat.RoomID) string {
	return m.opts.TopicPrefix + roomID.String()
}

func (m *Manager) sendDestination(roomID chat.RoomID) string {
	return m.opts.SendPrefix + roomID.String() + "/send"
}

func (m *Manager) roomFromTopic(destination string) (chat.RoomID, bool) {
	rest, ok := strings.CutPrefix(destination, m.opts.TopicPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return chat.RoomID(id), true
}

// ExponentialBackOff returns a reconnect policy that starts at initial and
// never gives up.
func ExponentialBackOff(initial time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = 30 * time.Second
		b.MaxElapsedTime = 0
		b.Reset()
		return b
	}
}
