package core

import "errors"

// Frame is one encoded protocol message.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts the messaging transport of one member.
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: a full queue returns ErrBackpressure.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
