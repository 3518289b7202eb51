package harvest

import "errors"

// ErrAuthRejected marks a request the source refused because its session
// state is no longer valid. Sessions are regenerated, never repaired: the
// walker invalidates the cached session and performs a fresh handshake.
var ErrAuthRejected = errors.New("session rejected by source")

// ErrProtocolViolation marks a source behaving outside its expected
// contract, e.g. feeding pages forever without ever signaling the end of
// pagination. The offending partition is abandoned.
var ErrProtocolViolation = errors.New("source violated pagination protocol")
