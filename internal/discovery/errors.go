package discovery

import "errors"

// Domain errors for the discovery package.
var (
	// ErrBadDatagram is returned when a broadcast datagram is too short or
	// its body cannot be decrypted or parsed.
	ErrBadDatagram = errors.New("discovery: malformed datagram")

	// ErrListenFailed is returned when a broadcast socket cannot be bound.
	ErrListenFailed = errors.New("discovery: listen failed")
)
