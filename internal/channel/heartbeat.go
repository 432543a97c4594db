package channel

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Heartbeat protocol constants.
const (
	heartbeatInterval = 30 * time.Second
	pongTimeout       = 10 * time.Second
)

// heartbeat probes one open channel for liveness. It sends an application
// ping every heartbeatInterval and expects a pong within pongTimeout; a
// missed pong declares the channel dead via the expire callback, which the
// manager treats exactly like a network-initiated closure.
//
// A heartbeat lives exactly as long as its channel is open. stop cancels both
// timers, after which no callback fires.
type heartbeat struct {
	clk    clock.Clock
	logger *slog.Logger

	sendPing func(pingFrame) bool // writes a ping frame to the channel
	expire   func()               // force-closes the channel as dead

	mu          sync.Mutex
	interval    *clock.Timer // next probe
	deadline    *clock.Timer // outstanding pong deadline, nil when answered
	lastPong    time.Time
	outstanding bool
	stopped     bool
}

// startHeartbeat arms the probe timer for a freshly opened channel.
func startHeartbeat(clk clock.Clock, logger *slog.Logger, sendPing func(pingFrame) bool, expire func()) *heartbeat {
	if logger == nil {
		logger = slog.Default()
	}
	hb := &heartbeat{
		clk:      clk,
		logger:   logger,
		sendPing: sendPing,
		expire:   expire,
		lastPong: clk.Now(),
	}
	hb.mu.Lock()
	hb.interval = clk.AfterFunc(heartbeatInterval, hb.probe)
	hb.mu.Unlock()
	return hb
}

// probe fires on the interval timer: declares the channel dead when the last
// ping is still unanswered past the liveness window, otherwise sends the next
// ping and arms its pong deadline.
func (hb *heartbeat) probe() {
	hb.mu.Lock()
	if hb.stopped {
		hb.mu.Unlock()
		return
	}

	if hb.outstanding && hb.clk.Now().Sub(hb.lastPong) > pongTimeout {
		hb.mu.Unlock()
		hb.logger.Warn("heartbeat unanswered, channel presumed dead")
		hb.expire()
		return
	}

	ping := pingFrame{Type: TypePing, Timestamp: hb.clk.Now().UnixMilli()}
	hb.outstanding = true
	hb.deadline = hb.clk.AfterFunc(pongTimeout, hb.deadlineExpired)
	hb.interval = hb.clk.AfterFunc(heartbeatInterval, hb.probe)
	send := hb.sendPing
	hb.mu.Unlock()

	if !send(ping) {
		// The write failure will surface through the read loop shortly; the
		// pong deadline covers the case where it does not.
		hb.logger.Debug("heartbeat ping write failed")
	}
}

// deadlineExpired fires when a ping went unanswered for pongTimeout.
func (hb *heartbeat) deadlineExpired() {
	hb.mu.Lock()
	if hb.stopped || !hb.outstanding {
		hb.mu.Unlock()
		return
	}
	hb.mu.Unlock()

	hb.logger.Warn("pong deadline elapsed, channel presumed dead")
	hb.expire()
}

// pong records a pong from the server and disarms the outstanding deadline.
// Pong frames are consumed here and never reach the dispatcher.
func (hb *heartbeat) pong() {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	if hb.stopped {
		return
	}
	hb.lastPong = hb.clk.Now()
	hb.outstanding = false
	if hb.deadline != nil {
		hb.deadline.Stop()
		hb.deadline = nil
	}
}

// stop cancels both timers. Idempotent; called the instant the channel
// closes for any reason so no orphaned timer fires against a stale channel.
func (hb *heartbeat) stop() {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	if hb.stopped {
		return
	}
	hb.stopped = true
	if hb.interval != nil {
		hb.interval.Stop()
		hb.interval = nil
	}
	if hb.deadline != nil {
		hb.deadline.Stop()
		hb.deadline = nil
	}
}
