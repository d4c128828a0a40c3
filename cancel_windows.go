// File: cancel_windows.go
//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cancellation and completion finalization. Cancel is advisory: a true
// result means the slot already finished with the caller's reason, false
// means the natural completion is on its way. Finalization runs once per
// drained slot and releases everything the operation owned.

package winaio

import (
	"golang.org/x/sys/windows"

	"github.com/momentics/winaio/internal/coord"
)

// cancelStarted handles cancellation of operations that already started.
func (d *Driver) cancelStarted(id uint64, reason error) bool {
	row := d.u.Row(id)
	ctx := d.u.Ctx(id)
	switch row.op.Kind {
	case OpRead, OpWrite, OpReadv, OpWritev:
		if ctx.Owned != coord.OwnedHandle {
			return false
		}
		if windows.CancelIoEx(ctx.Handle, &ctx.Ov) != nil {
			return false
		}
		d.finishInline(id, reason)
		return true
	case OpAccept, OpRecv, OpSend, OpRecvMsg, OpSendMsg:
		if windows.CancelIoEx(row.op.Handle, &ctx.Ov) != nil {
			return false
		}
		d.finishInline(id, reason)
		return true
	case OpChildExit:
		// Closing the job ends the port association; no further messages
		// arrive for this slot.
		ctx.Release()
		d.finishInline(id, reason)
		return true
	case OpTimeout, OpLinkTimeout:
		if !d.timers.Disarm(id) {
			// Lost the race: the timer fired, let its completion run.
			return false
		}
		d.finishInline(id, reason)
		return true
	case OpWaitEventSource:
		if !row.op.Source.removeWaiter(&d.u.Scratch(id).Waiter) {
			// A concurrent notify already claimed the waiter.
			return false
		}
		d.finishInline(id, reason)
		return true
	default:
		// The blocking executor reports when the underlying call returns.
		return false
	}
}

// Finalize is the coordinator's drain hook: release owned kernel objects,
// write caller outputs on success, invalidate them on failure.
func (d *Driver) Finalize(id uint64, opErr error) {
	row := d.u.Row(id)
	ctx := d.u.Ctx(id)
	defer ctx.Release()
	if row.proc != 0 {
		_ = windows.CloseHandle(row.proc)
		row.proc = 0
	}

	op := &row.op
	if opErr != nil {
		if op.Kind == OpAccept && op.OutSocket != nil &&
			*op.OutSocket != 0 && *op.OutSocket != windows.InvalidHandle {
			_ = windows.Closesocket(*op.OutSocket)
			*op.OutSocket = windows.InvalidHandle
		}
		return
	}

	switch op.Kind {
	case OpAccept:
		if op.OutAddr == nil && op.OutAddrLen == nil {
			return
		}
		sc := d.u.Scratch(id)
		var local, remote *windows.RawSockaddrAny
		var localLen, remoteLen int32
		getAcceptExSockaddrs(&sc.Accept[0], coord.AcceptAddrLen,
			&local, &localLen, &remote, &remoteLen)
		if op.OutAddr != nil && remote != nil {
			*op.OutAddr = *remote
		}
		if op.OutAddrLen != nil {
			*op.OutAddrLen = remoteLen
		}
	case OpRead, OpReadv, OpRecv, OpRecvMsg,
		OpWrite, OpWritev, OpSend, OpSendMsg:
		if op.OutBytes != nil {
			*op.OutBytes = ctx.Bytes
		}
		if op.Kind == OpRecvMsg {
			op.Msg.Flags = d.u.Scratch(id).Msg.Flags
		}
	}
}
