// File: errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Terminal error taxonomy. Operations finish exactly once, with nil or one
// of these sentinels; OS errors without a mapping collapse into
// ErrUnexpected.

package winaio

import "errors"

var (
	// ErrNotOpenForReading means the handle lacks read access.
	ErrNotOpenForReading = errors.New("handle is not open for reading")
	// ErrNotOpenForWriting means the handle lacks write access.
	ErrNotOpenForWriting = errors.New("handle is not open for writing")

	// ErrConnectionReset corresponds to a peer reset.
	ErrConnectionReset = errors.New("connection reset by peer")
	// ErrNetworkUnreachable corresponds to an unreachable network or host.
	ErrNetworkUnreachable = errors.New("network is unreachable")
	// ErrMessageTooBig means the datagram exceeded the transport limit.
	ErrMessageTooBig = errors.New("message too big")
	// ErrSocketShutdown means the socket direction was already shut down.
	ErrSocketShutdown = errors.New("socket has been shut down")
	// ErrNotConnected means the socket is not connected.
	ErrNotConnected = errors.New("socket is not connected")
	// ErrAccessDenied maps permission failures.
	ErrAccessDenied = errors.New("access denied")
	// ErrAddressNotAvailable means the requested address cannot be used.
	ErrAddressNotAvailable = errors.New("address not available")
	// ErrNotASocket means the handle is not a socket.
	ErrNotASocket = errors.New("handle is not a socket")
	// ErrAddressFamilyUnsupported means the address family is not supported.
	ErrAddressFamilyUnsupported = errors.New("address family not supported")
	// ErrSystemResources maps exhausted system resources or buffers.
	ErrSystemResources = errors.New("insufficient system resources")

	// ErrCanceled is the default cancellation reason.
	ErrCanceled = errors.New("operation canceled")
	// ErrNotSupported marks operations this backend cannot drive.
	ErrNotSupported = errors.New("operation not supported")
	// ErrUnexpected is the single sentinel for untranslated OS errors.
	ErrUnexpected = errors.New("unexpected OS error")

	// ErrShutdown is returned by Complete when the driver is tearing down.
	ErrShutdown = errors.New("driver is shutting down")
	// ErrInvalidArgument rejects structurally invalid operations at queue
	// time, before they become in-flight.
	ErrInvalidArgument = errors.New("invalid argument")
)
