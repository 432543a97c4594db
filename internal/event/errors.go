package event

import "errors"

// ErrUnknownType marks an envelope type outside the known broadcast vocabulary.
var ErrUnknownType = errors.New("unknown event type")
