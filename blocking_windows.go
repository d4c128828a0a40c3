// File: blocking_windows.go
//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The blocking executor: operations the port cannot drive run their
// synchronous equivalent on a pool worker, or inline when the pool is
// disabled. Would-block outcomes retry; the first terminal outcome is
// reported through the coordinator.

package winaio

import (
	"golang.org/x/sys/windows"

	"github.com/momentics/winaio/internal/coord"
	"github.com/momentics/winaio/internal/iocp"
)

// dispatchBlocking routes one port-ineligible operation to the worker pool,
// or runs it inline in single-threaded configurations.
func (d *Driver) dispatchBlocking(id uint64) {
	if d.pool == nil {
		d.performBlocking(id, coord.ThreadUnsafe)
		return
	}
	if err := d.pool.Spawn(func() { d.performBlocking(id, coord.ThreadSafe) }); err != nil {
		d.finishInline(id, ErrUnexpected)
	}
}

// performBlocking executes the synchronous equivalent and reports the
// terminal outcome. Worker-thread finishes go through the thread-safe path
// and wake the driver with a nop port post instead of touching its state.
func (d *Driver) performBlocking(id uint64, safety coord.Safety) {
	row := d.u.Row(id)
	var err error
	for {
		err = d.blockingCall(row)
		if err != windows.WSAEWOULDBLOCK {
			break
		}
	}
	if err != nil {
		err = translateError(err)
	}
	d.u.Finish(id, err, safety)
	if safety == coord.ThreadSafe {
		_ = d.port.Post(iocp.EncodeKey(iocp.KeyNop, 0), nil)
	} else {
		d.signaled = true
	}
}

func (d *Driver) blockingCall(row *opRow) error {
	op := &row.op
	switch op.Kind {
	case OpNotifyEventSource:
		op.Source.Notify()
		return nil
	case OpCloseEventSource:
		op.Source.Close()
		return nil
	case OpFsync:
		return windows.FlushFileBuffers(op.Handle)
	default:
		return ErrNotSupported
	}
}
