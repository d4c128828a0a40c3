// File: ops_windows.go
//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Operation descriptors and completion records. An Operation is a flat
// request in the classic aiocb manner: one struct, with the fields relevant
// to its Kind populated and the rest left zero.

package winaio

import (
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// OffsetCurrent submits file I/O at the handle's current file position.
const OffsetCurrent = ^uint64(0)

// Operation describes one submission. Handles passed in are borrowed: the
// driver re-opens file handles in overlapped mode internally and releases
// its duplicates itself.
type Operation struct {
	Kind OpKind

	// Handle is the file handle (read/write/readv/writev/fsync) or socket
	// (accept/recv/send/recv_msg/send_msg) the operation targets.
	Handle windows.Handle

	// Buffer is the data slice for read/write/recv/send.
	Buffer []byte
	// Buffers feeds the vectored kinds. Only the first element is
	// submitted per operation; an empty vector completes with zero bytes.
	Buffers [][]byte
	// Offset positions file I/O; OffsetCurrent uses the handle's position.
	Offset uint64

	// Timeout is the delay for OpTimeout and OpLinkTimeout.
	Timeout time.Duration

	// Process is the child tracked by OpChildExit.
	Process *os.Process
	// Source is the event source for the event-source kinds.
	Source *EventSource
	// Msg describes the transfer for OpRecvMsg and OpSendMsg.
	Msg *MsgHdr

	// OutBytes, when non-nil, receives the transferred byte count.
	OutBytes *uint32
	// OutSocket receives the accepted connection. Required for OpAccept;
	// on failure the driver closes the socket it allocated.
	OutSocket *windows.Handle
	// OutAddr and OutAddrLen, when non-nil, receive the accepted peer's
	// address as written by the kernel.
	OutAddr    *windows.RawSockaddrAny
	OutAddrLen *int32
	// OutTerm, when non-nil, receives how the child of OpChildExit
	// terminated.
	OutTerm *ProcessTermination

	// Userdata is echoed back on the completion record.
	Userdata uint64
}

// MsgHdr describes a message-style scatter/gather transfer.
type MsgHdr struct {
	// Name is the peer address record; NameLen its length in bytes.
	Name    *windows.RawSockaddrAny
	NameLen int32
	// Buffers is the scatter/gather list, passed through whole.
	Buffers []windows.WSABuf
	// Control is the ancillary data buffer.
	Control []byte
	// Flags are the message flags, updated in place on receive.
	Flags uint32
}

// TermKind classifies how a tracked child process ended.
type TermKind uint8

const (
	// TermUnknown means the exit code could not be read.
	TermUnknown TermKind = iota
	// TermExited carries the process exit code.
	TermExited
	// TermStopped means the process was terminated abnormally.
	TermStopped
)

// ProcessTermination is the child-exit out record.
type ProcessTermination struct {
	Kind TermKind
	Code uint32
}

// Completion is delivered once per drained operation.
type Completion struct {
	// ID is the stable operation id returned by Queue.
	ID uint64
	// Userdata echoes Operation.Userdata.
	Userdata uint64
	// Kind echoes the operation kind.
	Kind OpKind
	// Err is nil on success or one terminal taxonomy error.
	Err error
}

// CompletionHandler consumes drained completions.
type CompletionHandler func(Completion)
