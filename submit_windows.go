// File: submit_windows.go
//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-kind submission. Start either kicks off overlapped kernel I/O, arms a
// timer, registers an event-source waiter, or hands the blocking equivalent
// to the worker pool. Immediate outcomes finish inline; pending ones wait
// for the port.

package winaio

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/momentics/winaio/internal/coord"
	"github.com/momentics/winaio/internal/iocp"
)

// Start is the coordinator's submission hook.
func (d *Driver) Start(id uint64) {
	row := d.u.Row(id)
	switch row.op.Kind {
	case OpRead, OpReadv:
		d.startFile(id, row, false)
	case OpWrite, OpWritev:
		d.startFile(id, row, true)
	case OpAccept:
		d.startAccept(id, row)
	case OpRecv, OpSend:
		d.startStream(id, row)
	case OpRecvMsg, OpSendMsg:
		d.startMsg(id, row)
	case OpTimeout, OpLinkTimeout:
		d.timers.Schedule(row.op.Timeout, id)
	case OpChildExit:
		d.startChildExit(id, row)
	case OpWaitEventSource:
		d.startWaitEvent(id, row)
	case OpNotifyEventSource, OpCloseEventSource:
		// These never block in practice; run the blocking executor on the
		// calling thread.
		d.performBlocking(id, coord.ThreadUnsafe)
	case OpPoll:
		d.finishInline(id, ErrNotSupported)
	default:
		d.dispatchBlocking(id)
	}
}

func (d *Driver) startFile(id uint64, row *opRow, write bool) {
	op := &row.op
	buf := op.Buffer
	if op.Kind == OpReadv || op.Kind == OpWritev {
		if len(op.Buffers) == 0 {
			d.finishInline(id, nil)
			return
		}
		// Only the first element is submitted; the front end issues
		// follow-up operations for the rest.
		buf = op.Buffers[0]
	}

	access, err := queryFileAccess(op.Handle)
	if err != nil {
		d.finishInline(id, ErrUnexpected)
		return
	}
	if write && access&fileWriteData == 0 {
		d.finishInline(id, ErrNotOpenForWriting)
		return
	}
	if !write && access&fileReadData == 0 {
		d.finishInline(id, ErrNotOpenForReading)
		return
	}

	mode := uint32(windows.GENERIC_READ)
	if write {
		mode = windows.GENERIC_WRITE
	}
	dup, err := reopenOverlapped(op.Handle, mode)
	if err != nil {
		d.finishInline(id, translateError(err))
		return
	}
	if err := d.port.AssociateHandle(dup); err != nil {
		_ = windows.CloseHandle(dup)
		d.finishInline(id, translateError(err))
		return
	}
	ctx := d.u.Ctx(id)
	ctx.Owned = coord.OwnedHandle
	ctx.Handle = dup

	off := op.Offset
	if off == OffsetCurrent {
		// The caller's file position lives on the original handle, not on
		// the overlapped duplicate.
		var hi int32
		lo, perr := windows.SetFilePointer(op.Handle, 0, &hi, windows.FILE_CURRENT)
		if perr != nil {
			off = 0
		} else {
			off = uint64(uint32(hi))<<32 | uint64(lo)
		}
	}
	ctx.Ov.Offset = uint32(off)
	ctx.Ov.OffsetHigh = uint32(off >> 32)

	var done uint32
	if write {
		err = windows.WriteFile(dup, buf, &done, &ctx.Ov)
	} else {
		err = windows.ReadFile(dup, buf, &done, &ctx.Ov)
	}
	switch {
	case err == nil:
		// Skip-on-success is set on the duplicate: the port will not see
		// this completion, report it inline.
		ctx.Bytes = done
		d.finishInline(id, nil)
	case err == windows.ERROR_IO_PENDING:
	case err == windows.ERROR_HANDLE_EOF && !write:
		ctx.Bytes = 0
		d.finishInline(id, nil)
	default:
		d.finishInline(id, translateError(err))
	}
}

func (d *Driver) startStream(id uint64, row *opRow) {
	op := &row.op
	if err := d.port.AssociateSocket(op.Handle); err != nil {
		d.finishInline(id, translateError(err))
		return
	}
	sc := d.u.Scratch(id)
	sc.WSA.Len = uint32(len(op.Buffer))
	if len(op.Buffer) > 0 {
		sc.WSA.Buf = &op.Buffer[0]
	}
	ctx := d.u.Ctx(id)
	var done uint32
	var err error
	if op.Kind == OpSend {
		err = windows.WSASend(op.Handle, &sc.WSA, 1, &done, 0, &ctx.Ov, nil)
	} else {
		var flags uint32
		err = windows.WSARecv(op.Handle, &sc.WSA, 1, &done, &flags, &ctx.Ov, nil)
	}
	switch {
	case err == nil:
		ctx.Bytes = done
		d.finishInline(id, nil)
	case err == windows.ERROR_IO_PENDING:
	default:
		d.finishInline(id, translateError(err))
	}
}

func (d *Driver) startMsg(id uint64, row *opRow) {
	op := &row.op
	if err := d.port.AssociateSocket(op.Handle); err != nil {
		d.finishInline(id, translateError(err))
		return
	}
	sc := d.u.Scratch(id)
	m := &sc.Msg
	m.Name = op.Msg.Name
	m.NameLen = op.Msg.NameLen
	m.BufferCount = uint32(len(op.Msg.Buffers))
	if m.BufferCount > 0 {
		m.Buffers = &op.Msg.Buffers[0]
	}
	if len(op.Msg.Control) > 0 {
		m.Control = windows.WSABuf{Len: uint32(len(op.Msg.Control)), Buf: &op.Msg.Control[0]}
	}
	m.Flags = op.Msg.Flags

	ctx := d.u.Ctx(id)
	var done uint32
	var err error
	if op.Kind == OpSendMsg {
		err = wsaSendMsg(op.Handle, m, op.Msg.Flags, &done, &ctx.Ov)
	} else {
		err = wsaRecvMsg(op.Handle, m, &done, &ctx.Ov)
	}
	switch {
	case err == nil:
		ctx.Bytes = done
		d.finishInline(id, nil)
	case err == windows.ERROR_IO_PENDING:
	default:
		d.finishInline(id, translateError(err))
	}
}

func (d *Driver) startAccept(id uint64, row *opRow) {
	op := &row.op
	if err := d.port.AssociateSocket(op.Handle); err != nil {
		d.finishInline(id, translateError(err))
		return
	}
	family := int32(windows.AF_INET)
	if sa, err := windows.Getsockname(op.Handle); err == nil {
		if _, ok := sa.(*windows.SockaddrInet6); ok {
			family = windows.AF_INET6
		}
	}
	s, err := windows.WSASocket(family, windows.SOCK_STREAM, 0, nil, 0, windows.WSA_FLAG_OVERLAPPED)
	if err != nil {
		d.finishInline(id, translateError(err))
		return
	}
	// Ownership of the accepted socket rides on the out pointer: the drain
	// path closes it on failure, the caller takes it on success.
	*op.OutSocket = s

	sc := d.u.Scratch(id)
	ctx := d.u.Ctx(id)
	var recvd uint32
	err = acceptEx(op.Handle, s, &sc.Accept[0], coord.AcceptAddrLen, &recvd, &ctx.Ov)
	switch {
	case err == nil:
		d.finishInline(id, nil)
	case err == windows.ERROR_IO_PENDING:
	default:
		d.finishInline(id, translateError(err))
	}
}

func (d *Driver) startChildExit(id uint64, row *opRow) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		d.finishInline(id, translateError(err))
		return
	}
	ctx := d.u.Ctx(id)
	ctx.Owned = coord.OwnedJob
	ctx.Handle = job

	// Associate before assigning so an exit between the two cannot lose
	// its message.
	assoc := jobAssociateCompletionPort{
		CompletionKey:  iocp.EncodeKey(iocp.KeyChildExit, uint32(id)),
		CompletionPort: d.port.Handle,
	}
	if _, err := windows.SetInformationJobObject(job,
		jobObjectAssociateCompletionPortInformation,
		uintptr(unsafe.Pointer(&assoc)), uint32(unsafe.Sizeof(assoc))); err != nil {
		d.finishInline(id, translateError(err))
		return
	}

	ph, err := windows.OpenProcess(
		processTerminate|processSetQuota|processQueryLimitedInformation,
		false, uint32(row.op.Process.Pid))
	if err != nil {
		d.finishInline(id, translateError(err))
		return
	}
	row.proc = ph
	if err := windows.AssignProcessToJobObject(job, ph); err != nil {
		d.finishInline(id, translateError(err))
		return
	}
}

func (d *Driver) startWaitEvent(id uint64, row *opRow) {
	src := row.op.Source
	if src.TryWait() {
		d.finishInline(id, nil)
		return
	}
	w := &d.u.Scratch(id).Waiter
	w.Port = d.port.Handle
	w.Key = iocp.EncodeKey(iocp.KeyEventSource, uint32(id))
	src.addWaiter(w)
}
