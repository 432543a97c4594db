package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
)

// State identifies the lifecycle phase of the managed channel.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateClosed // terminal; only a manual Reconnect leaves it
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Status is a read-only snapshot of the manager's observable state, updated
// synchronously on every transition.
type Status struct {
	State        State
	Connected    bool
	Reconnecting bool
	Attempt      int
	Err          string
}

// Options configure a Manager.
type Options struct {
	// URL is an explicit channel address. When set it overrides Origin.
	URL string

	// Origin is the application origin (e.g. "https://dash.example.com");
	// the channel address derives from it when URL is empty.
	Origin string

	// Token is an optional bearer credential attached to the handshake.
	Token string

	Logger *slog.Logger

	// Clock drives the heartbeat and reconnect timers. Nil means wall clock.
	Clock clock.Clock
}

// Manager owns the push channel and its recovery lifecycle: one live handle
// at a time, heartbeat while open, policy-driven reconnects after failures,
// and fan-out of inbound events to subscribers.
//
// Every timer and transport callback carries the generation it was created
// under; a bumped generation structurally invalidates stale callbacks, so
// nothing ever acts on a superseded channel.
type Manager struct {
	logger *slog.Logger
	clk    clock.Clock
	addr   string
	token  string

	disp *dispatcher

	mu      sync.Mutex
	state   State
	gen     uint64
	conn    *conn
	hb      *heartbeat
	attempt int
	lastErr string
	retry   *clock.Timer // pending scheduled reconnect
	down    bool         // shutdown requested
}

// New creates a Manager. It resolves the channel address immediately but does
// not connect; call Connect to open the channel.
func New(opts Options) (*Manager, error) {
	addr, err := resolveEndpoint(opts.URL, opts.Origin)
	if err != nil {
		return nil, fmt.Errorf("resolve channel endpoint: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Manager{
		logger: logger,
		clk:    clk,
		addr:   addr,
		token:  opts.Token,
		disp:   newDispatcher(logger),
		state:  StateIdle,
	}, nil
}

// Addr returns the resolved channel address.
func (m *Manager) Addr() string {
	return m.addr
}

// Connect opens the channel. It is idempotent and non-blocking: a no-op when
// a connect or reconnect sequence is already in flight, after Shutdown, or
// from the terminal state (which requires an explicit Reconnect). Outcomes
// surface through Status and subscriber callbacks.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down || m.state != StateIdle {
		return
	}
	m.dialLocked()
}

// Send encodes v as a JSON text frame and writes it to the channel. It
// returns false without blocking or queueing when the channel is not open or
// the write fails; callers retry at the application level if they care.
func (m *Manager) Send(v any) bool {
	m.mu.Lock()
	c := m.conn
	open := m.state == StateOpen
	m.mu.Unlock()

	if !open || c == nil {
		return false
	}

	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn("send: encode failed", "error", err)
		return false
	}
	if err := c.writeText(data); err != nil {
		m.logger.Warn("send: write failed", "error", err)
		return false
	}
	return true
}

// Subscribe registers a handler for inbound application events and returns
// its cancellation closure. Safe before the channel opens; the handler simply
// receives nothing until frames arrive.
func (m *Manager) Subscribe(h Handler) func() {
	return m.disp.subscribe(h)
}

// Reconnect is the manual override: it cancels any pending scheduled
// reconnect, resets the attempt counter and error state, force-closes the
// current channel, and dials fresh. Valid from every state, including the
// terminal one.
func (m *Manager) Reconnect() {
	m.mu.Lock()
	m.gen++ // invalidate pending timers, dials, and read loops
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.hb != nil {
		m.hb.stop()
		m.hb = nil
	}
	c := m.conn
	m.conn = nil
	m.attempt = 0
	m.lastErr = ""
	m.down = false
	m.dialLocked()
	m.mu.Unlock()

	if c != nil {
		c.close(websocket.CloseNormalClosure, "client requested reconnect")
	}
	m.logger.Info("manual reconnect requested")
}

// Shutdown is the terminal teardown: it disables all future reconnection,
// cancels every pending timer, and closes the channel with a normal-closure
// reason. Safe to call repeatedly and from any state.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.gen++
	m.down = true
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.hb != nil {
		m.hb.stop()
		m.hb = nil
	}
	c := m.conn
	m.conn = nil
	already := m.state == StateClosed
	m.state = StateClosed
	m.mu.Unlock()

	if c != nil {
		c.close(websocket.CloseNormalClosure, "client shutdown")
	}
	if !already {
		m.logger.Info("channel shut down")
	}
}

// Status returns the current observable state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:        m.state,
		Connected:    m.state == StateOpen,
		Reconnecting: m.state == StateReconnecting,
		Attempt:      m.attempt,
		Err:          m.lastErr,
	}
}

// dialLocked starts a dial attempt under a fresh generation. Caller holds mu.
func (m *Manager) dialLocked() {
	m.gen++
	gen := m.gen
	m.state = StateConnecting
	go m.dialAttempt(gen)
}

// dialAttempt performs the handshake off the caller's goroutine.
func (m *Manager) dialAttempt(gen uint64) {
	c, err := dial(context.Background(), m.addr, m.token)
	if err != nil {
		m.logger.Warn("channel dial failed", "addr", m.addr, "error", err)
		m.channelDown(gen, websocket.CloseAbnormalClosure, err.Error())
		return
	}
	m.channelOpen(gen, c)
}

// channelOpen installs a freshly dialed handle: resets the attempt counter
// and error, starts the heartbeat, and begins pumping frames.
func (m *Manager) channelOpen(gen uint64, c *conn) {
	m.mu.Lock()
	if gen != m.gen || m.down {
		m.mu.Unlock()
		c.close(websocket.CloseNormalClosure, "superseded")
		return
	}

	m.conn = c
	m.state = StateOpen
	m.attempt = 0
	m.lastErr = ""
	m.hb = startHeartbeat(m.clk, m.logger,
		func(p pingFrame) bool {
			data, _ := json.Marshal(p)
			return c.writeText(data) == nil
		},
		func() { m.expireChannel(gen) },
	)
	m.mu.Unlock()

	m.logger.Info("channel open", "addr", m.addr)

	go c.readLoop(
		func(frame []byte) { m.inbound(gen, frame) },
		func(code int, err error) { m.channelDown(gen, code, err.Error()) },
	)
}

// expireChannel is the heartbeat's verdict that the channel is silently dead.
// Killing the handle without a close handshake makes the read loop report an
// abnormal closure, which flows through the same classification as a
// network-initiated one.
func (m *Manager) expireChannel(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateOpen {
		m.mu.Unlock()
		return
	}
	c := m.conn
	m.mu.Unlock()

	c.kill()
}

// channelDown handles a closed or failed channel: tear down the heartbeat,
// then either schedule a policy-approved reconnect or go terminal.
func (m *Manager) channelDown(gen uint64, code int, cause string) {
	m.mu.Lock()
	if gen != m.gen || m.down {
		m.mu.Unlock()
		return
	}

	if m.hb != nil {
		m.hb.stop()
		m.hb = nil
	}
	m.conn = nil

	d := Decide(code, m.attempt)
	if !d.Retry {
		m.state = StateClosed
		if m.attempt >= MaxReconnectAttempts {
			m.lastErr = fmt.Sprintf("gave up after %d reconnect attempts: %s", MaxReconnectAttempts, cause)
		} else {
			m.lastErr = fmt.Sprintf("channel closed (code %d): %s", code, cause)
		}
		m.mu.Unlock()
		m.logger.Error("channel closed, not reconnecting", "code", code, "cause", cause)
		return
	}

	m.state = StateReconnecting
	m.lastErr = fmt.Sprintf("connection lost (code %d): %s", code, cause)
	attempt := m.attempt
	m.attempt++
	m.retry = m.clk.AfterFunc(d.Delay, func() { m.retryFire(gen) })
	m.mu.Unlock()

	m.logger.Warn("channel down, reconnect scheduled",
		"code", code,
		"attempt", attempt+1,
		"delay", d.Delay,
		"cause", cause,
	)
}

// retryFire is the delayed reconnect firing. Stale generations and cancelled
// schedules fall through without effect.
func (m *Manager) retryFire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.down || m.state != StateReconnecting {
		return
	}
	m.retry = nil
	m.dialLocked()
}

// inbound routes one raw frame: pongs feed the heartbeat, pings are reserved
// and ignored, everything else goes to the dispatcher.
func (m *Manager) inbound(gen uint64, frame []byte) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &probe); err == nil {
		switch probe.Type {
		case TypePong:
			m.mu.Lock()
			hb := m.hb
			current := gen == m.gen
			m.mu.Unlock()
			if current && hb != nil {
				hb.pong()
			}
			return
		case TypePing:
			m.logger.Debug("ignoring server ping frame")
			return
		}
	}
	m.disp.dispatch(frame)
}
