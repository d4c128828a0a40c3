// File: internal/coord/table_windows.go
//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-operation backend state stored column-wise by the coordinator. The
// IoContext column is contiguous so the completion dequeuer can recover a
// slot index from the overlapped pointer the kernel hands back.

package coord

import (
	"golang.org/x/sys/windows"
)

// OwnedKind tags a kernel object the driver created on behalf of an
// operation and must release exactly once at completion drain.
type OwnedKind uint8

const (
	// OwnedNone means the context wraps no kernel object.
	OwnedNone OwnedKind = iota
	// OwnedHandle is a file handle re-opened in overlapped mode.
	OwnedHandle
	// OwnedJob is a job object created for child-exit tracking.
	OwnedJob
)

// IoContext carries the overlapped record for one in-flight operation. The
// overlapped must stay the first field: its address is what the kernel
// returns on completion and what SlotFromCtx inverts.
type IoContext struct {
	Ov    windows.Overlapped
	Owned OwnedKind
	// Handle is the owned kernel object; valid when Owned != OwnedNone.
	Handle windows.Handle
	// Bytes is the transferred byte count, populated on success.
	Bytes uint32
}

// Release closes the owned kernel object, if any. The owner guarantees a
// valid handle; a close failure is an invariant violation, not a leak to
// tolerate.
func (c *IoContext) Release() {
	if c.Owned == OwnedNone {
		return
	}
	if err := windows.CloseHandle(c.Handle); err != nil {
		panic("coord: owned handle close failed: " + err.Error())
	}
	c.Owned = OwnedNone
	c.Handle = windows.InvalidHandle
}

// EventWaiter is the intrusive node linking an operation slot into an event
// source's waiter list. The node lives in slot scratch, so it outlives its
// list membership: cancel and completion both remove it before the slot is
// released, and release asserts as much.
type EventWaiter struct {
	Next *EventWaiter
	// Port is the driver port to wake; Key is the pre-encoded completion
	// key addressing this slot.
	Port windows.Handle
	Key  uintptr
	// Queued is true while the node sits in a waiter list. Guarded by the
	// owning event source's lock.
	Queued bool
}

const (
	sockaddrStorageLen = 128
	// AcceptAddrLen is the per-address buffer length AcceptEx requires:
	// one sockaddr-storage record plus 16 bytes of slack.
	AcceptAddrLen = sockaddrStorageLen + 16
	// acceptScratchLen holds the local and the remote address.
	acceptScratchLen = 2 * AcceptAddrLen
)

// Scratch is the op-kind-specific backend scratch for one slot: a WSABuf
// for stream send/recv, a message header for send_msg/recv_msg, the
// AcceptEx address buffer, or the event-source waiter link. Unused fields
// stay zero.
type Scratch struct {
	WSA    windows.WSABuf
	Msg    MsgScratch
	Accept [acceptScratchLen]byte
	Waiter EventWaiter
}

// MsgScratch mirrors the WSAMSG layout expected by WSASendMsg/WSARecvMsg.
// It must stay stable in memory while the overlapped call is pending, which
// is why it lives in the slot scratch column.
type MsgScratch struct {
	Name        *windows.RawSockaddrAny
	NameLen     int32
	Buffers     *windows.WSABuf
	BufferCount uint32
	Control     windows.WSABuf
	Flags       uint32
}
