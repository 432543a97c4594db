package channel

import (
	"math"
	"time"

	"github.com/gorilla/websocket"
)

// Reconnect policy constants.
const (
	// MaxReconnectAttempts is the automatic retry budget for one outage.
	// Past it the manager goes terminal and waits for a manual Reconnect.
	MaxReconnectAttempts = 10

	backoffBase   = 3 * time.Second
	backoffFactor = 1.5
	backoffCap    = 30 * time.Second
)

// reconnectableCodes are the close codes after which reopening the channel is
// worthwhile. Anything else means the server deliberately refused us.
var reconnectableCodes = map[int]struct{}{
	websocket.CloseNormalClosure:     {}, // 1000
	websocket.CloseGoingAway:         {}, // 1001
	websocket.CloseAbnormalClosure:   {}, // 1006
	websocket.CloseInternalServerErr: {}, // 1011
	websocket.CloseServiceRestart:    {}, // 1012
	websocket.CloseTryAgainLater:     {}, // 1013
	websocket.CloseTLSHandshake:      {}, // 1015
}

// Decision is the outcome of classifying a channel closure.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Decide reports whether a closed channel should be reopened and after what
// delay. attempt is the number of reconnects already scheduled for this
// outage, so the first retry after a failure uses attempt 0.
func Decide(closeCode, attempt int) Decision {
	if attempt >= MaxReconnectAttempts {
		return Decision{}
	}

	// Abnormal closure is always eligible, even when a non-standard code got
	// folded into it. Checked on its own rather than relying on the table.
	if closeCode != websocket.CloseAbnormalClosure {
		if _, ok := reconnectableCodes[closeCode]; !ok {
			return Decision{}
		}
	}

	delay := float64(backoffBase) * math.Pow(backoffFactor, float64(attempt))
	if delay > float64(backoffCap) {
		delay = float64(backoffCap)
	}

	return Decision{Retry: true, Delay: time.Duration(delay)}
}
