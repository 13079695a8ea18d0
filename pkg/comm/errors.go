package comm

import "errors"

// ErrBufferFull indicates the outgoing buffer rejected a frame byte.
// Bytes already written are not retracted; the receiver resynchronizes
// over the partial frame.
var ErrBufferFull = errors.New("comm: transmit buffer full")
