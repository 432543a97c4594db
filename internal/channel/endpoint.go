package channel

import (
	"fmt"
	"net/url"
	"strings"
)

// channelPath is the fixed path suffix of the push-channel endpoint.
const channelPath = "/ws"

// resolveEndpoint returns the channel address. An explicit override wins;
// otherwise the address derives from the application origin with the scheme
// upgraded (http→ws, https→wss) and the channel path appended.
func resolveEndpoint(override, origin string) (string, error) {
	if override != "" {
		return override, nil
	}
	if origin == "" {
		return "", fmt.Errorf("no channel address: neither override nor origin configured")
	}

	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse origin %q: %w", origin, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a channel scheme
	default:
		return "", fmt.Errorf("origin %q has unsupported scheme %q", origin, u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + channelPath
	return u.String(), nil
}
