package sem

import "errors"

// ErrTimeout indicates the wait timeout elapsed before a signal.
var ErrTimeout = errors.New("sem: wait timeout")
