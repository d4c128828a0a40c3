// File: loop_windows.go
//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The completion loop: submit what is queued, dequeue one port completion
// bounded by the next timer fire, route it by key kind, fire due timers,
// then drain finished slots while the signaled flag stays set.

package winaio

import (
	"math"
	"syscall"
	"time"
	"unsafe"

	"github.com/kolesnikovae/go-winjob/jobapi"
	"golang.org/x/sys/windows"

	"github.com/momentics/winaio/internal/coord"
	"github.com/momentics/winaio/internal/iocp"
)

// Complete runs one iteration of the completion loop. In blocking mode it
// returns once at least one completion or error has drained; nonblocking
// mode returns immediately with whatever was ready. Completions within one
// drain may be reported in any order, but anything reported has been fully
// finalized.
func (d *Driver) Complete(mode CompleteMode, handler CompletionHandler) (CompleteResult, error) {
	var res CompleteResult
	for {
		d.u.Submit(d)
		d.timers.Fire(d.onTimeout)

		if d.u.InFlight() == 0 && !d.signaled {
			return res, nil
		}

		n, key, ov, err := d.port.Wait(d.waitBound(mode))
		switch {
		case ov == nil && err != nil:
			if err != syscall.Errno(windows.WAIT_TIMEOUT) {
				if err == windows.ERROR_ABANDONED_WAIT_0 || err == windows.ERROR_INVALID_HANDLE {
					return res, ErrShutdown
				}
				return res, ErrUnexpected
			}
		default:
			if d.route(n, key, ov, err) {
				return res, ErrShutdown
			}
		}

		d.timers.Fire(d.onTimeout)

		for d.signaled {
			d.signaled = false
			done, failed := d.u.Drain(d, func(id uint64, opErr error) {
				row := d.u.Row(id)
				h := row.handler
				if h == nil {
					h = handler
				}
				if h != nil {
					h(Completion{ID: id, Userdata: row.op.Userdata, Kind: row.op.Kind, Err: opErr})
				}
			})
			res.Completed += done
			res.Errors += failed
		}

		if res.Completed > 0 || mode == CompleteNonblocking {
			return res, nil
		}
	}
}

// waitBound computes the port dequeue timeout: zero when a drain is already
// due or the caller refuses to block, otherwise the next timer fire capped
// to the 32-bit tick space.
func (d *Driver) waitBound(mode CompleteMode) uint32 {
	if d.signaled || mode == CompleteNonblocking {
		return 0
	}
	delay, ok := d.timers.NextDelay()
	if !ok {
		return windows.INFINITE
	}
	ms := (delay + time.Millisecond - 1) / time.Millisecond
	if ms >= math.MaxUint32 {
		return math.MaxUint32 - 1
	}
	return uint32(ms)
}

// route dispatches one dequeued completion by key kind. The return value
// reports whether a shutdown message was consumed.
func (d *Driver) route(n uint32, key uintptr, ov *windows.Overlapped, portErr error) bool {
	kind, slot := iocp.DecodeKey(key)
	switch kind {
	case iocp.KeyNop:
		// A worker finished something through the thread-safe path.
		d.signaled = true
	case iocp.KeyShutdown:
		return true
	case iocp.KeyEventSource:
		id := d.u.IDFromSlot(slot)
		if !d.u.Lookup(id) || d.u.Row(id).op.Kind != OpWaitEventSource {
			d.log.Debug().Uint64("id", id).Msg("dropped stale event-source wakeup")
			return false
		}
		d.finishInline(id, nil)
	case iocp.KeyChildExit:
		d.routeChildExit(n, slot, uintptr(unsafe.Pointer(ov)))
	case iocp.KeyOverlapped:
		d.routeOverlapped(n, ov, portErr)
	}
	return false
}

// routeChildExit handles job-object messages. Only process-exit messages
// finish the slot; everything else the job reports is ignored.
func (d *Driver) routeChildExit(msg uint32, slot uint32, pid uintptr) {
	id := d.u.IDFromSlot(slot)
	if !d.u.Lookup(id) {
		return
	}
	row := d.u.Row(id)
	if row.op.Kind != OpChildExit || uint32(row.op.Process.Pid) != uint32(pid) {
		return
	}
	abnormal := false
	switch jobapi.CompletionPortMessage(msg) {
	case jobapi.JOB_OBJECT_MSG_EXIT_PROCESS:
	case jobapi.JOB_OBJECT_MSG_ABNORMAL_EXIT_PROCESS:
		abnormal = true
	default:
		return
	}
	if row.op.OutTerm != nil {
		term := ProcessTermination{Kind: TermUnknown}
		var code uint32
		if row.proc != 0 && windows.GetExitCodeProcess(row.proc, &code) == nil {
			if abnormal {
				term = ProcessTermination{Kind: TermStopped, Code: code}
			} else {
				term = ProcessTermination{Kind: TermExited, Code: code}
			}
		}
		*row.op.OutTerm = term
	}
	d.finishInline(id, nil)
}

// routeOverlapped recovers the slot from the overlapped pointer the kernel
// handed back. Completions for released slots raced a cancel and are
// dropped.
func (d *Driver) routeOverlapped(n uint32, ov *windows.Overlapped, portErr error) {
	slot, ok := d.u.SlotFromCtx((*coord.IoContext)(unsafe.Pointer(ov)))
	if !ok {
		d.log.Debug().Msg("dropped completion with foreign overlapped")
		return
	}
	id := d.u.IDFromSlot(slot)
	if !d.u.Lookup(id) {
		return
	}
	ctx := d.u.Ctx(id)
	if portErr == nil {
		ctx.Bytes = n
		d.finishInline(id, nil)
		return
	}
	if portErr == windows.ERROR_HANDLE_EOF && isReadKind(d.u.Row(id).op.Kind) {
		ctx.Bytes = 0
		d.finishInline(id, nil)
		return
	}
	d.finishInline(id, translateError(portErr))
}

// onTimeout finishes a timer slot with success; the coordinator handles the
// link-timeout side effect on the partner operation.
func (d *Driver) onTimeout(word uint64) {
	if !d.u.Lookup(word) {
		return
	}
	d.finishInline(word, nil)
}

func isReadKind(k OpKind) bool {
	switch k {
	case OpRead, OpReadv, OpRecv, OpRecvMsg:
		return true
	}
	return false
}
