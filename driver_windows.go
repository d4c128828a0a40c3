// File: driver_windows.go
//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Driver lifecycle and the submission surface. One driver thread runs the
// Complete loop; worker threads only ever touch the coordinator through the
// thread-safe finish path and wake the loop with a nop port post.

package winaio

import (
	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"

	"github.com/momentics/winaio/internal/coord"
	"github.com/momentics/winaio/internal/iocp"
	"github.com/momentics/winaio/internal/timerq"
	"github.com/momentics/winaio/internal/wpool"
)

// opRow is the coordinator row: the caller's request plus driver-private
// bookkeeping.
type opRow struct {
	op      Operation
	handler CompletionHandler
	// proc is the opened child-process handle for OpChildExit.
	proc windows.Handle
}

// Driver is the submission/completion engine. Queue, Cancel, Complete and
// Destroy must run on one thread; completions may originate anywhere.
type Driver struct {
	cfg    Config
	log    zerolog.Logger
	port   *iocp.Port
	pool   *wpool.Pool // nil when the worker pool is disabled
	timers *timerq.Queue
	u      *coord.Coordinator[opRow]

	// signaled means at least one slot finished inline this iteration, so
	// the next port dequeue must not block.
	signaled bool
}

// New builds a driver.
func New(opts ...Option) (*Driver, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	ensureWinsock()
	port, err := iocp.New(1)
	if err != nil {
		return nil, translateError(err)
	}
	d := &Driver{
		cfg:    cfg,
		log:    cfg.Logger,
		port:   port,
		timers: timerq.New(),
		u:      coord.New[opRow](cfg.Capacity),
	}
	d.u.CancelReason = ErrCanceled
	if cfg.MaxWorkers > 0 {
		d.pool = wpool.New(cfg.MaxWorkers, cfg.WorkerIdleTimeout, cfg.WorkerName, cfg.Logger)
	}
	return d, nil
}

// Queue validates and enqueues a batch. Every operation is allocated a slot
// and submitted on the next Complete call; the returned ids are stable until
// the matching completions drain. handler, when non-nil, receives this
// batch's completions in preference to the Complete-time handler.
func (d *Driver) Queue(ops []Operation, handler CompletionHandler) ([]uint64, error) {
	for i := range ops {
		if err := validateOp(&ops[i], i); err != nil {
			return nil, err
		}
	}
	if len(ops) > d.cfg.Capacity-d.u.InFlight() {
		return nil, coord.ErrCapacity
	}
	ids := make([]uint64, 0, len(ops))
	for i := range ops {
		id, err := d.u.Queue(opRow{op: ops[i], handler: handler})
		if err != nil {
			return ids, err
		}
		if ops[i].Kind == OpLinkTimeout {
			d.u.Link(ids[i-1], id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func validateOp(op *Operation, batchIndex int) error {
	switch op.Kind {
	case OpAccept:
		if op.OutSocket == nil {
			return ErrInvalidArgument
		}
	case OpChildExit:
		if op.Process == nil {
			return ErrInvalidArgument
		}
	case OpWaitEventSource, OpNotifyEventSource, OpCloseEventSource:
		if op.Source == nil {
			return ErrInvalidArgument
		}
	case OpRecvMsg, OpSendMsg:
		if op.Msg == nil {
			return ErrInvalidArgument
		}
	case OpLinkTimeout:
		if batchIndex == 0 {
			return ErrInvalidArgument
		}
	}
	return nil
}

// Cancel tries to terminate an in-flight operation. True means the slot is
// already finished with reason (ErrCanceled when nil) and will drain on the
// next Complete call; false means the natural completion must be awaited.
func (d *Driver) Cancel(id uint64, reason error) bool {
	if reason == nil {
		reason = ErrCanceled
	}
	if !d.u.Lookup(id) {
		return false
	}
	if d.u.Queued(id) {
		d.finishInline(id, reason)
		return true
	}
	return d.cancelStarted(id, reason)
}

// Destroy quiesces in-flight operations, joins the worker pool, and tears
// down the port.
func (d *Driver) Destroy() {
	d.u.Shutdown(d)
	for d.u.InFlight() > 0 {
		if _, err := d.Complete(CompleteBlocking, nil); err != nil {
			break
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
	d.port.Destroy()
	d.log.Debug().Msg("driver destroyed")
}

// Immediate queues a batch on a private driver, drains it to completion and
// tears the driver down. Returns how many operations finished with an error.
func Immediate(ops []Operation) (int, error) {
	d, err := New(WithCapacity(len(ops)))
	if err != nil {
		return 0, err
	}
	defer d.Destroy()
	if _, err := d.Queue(ops, nil); err != nil {
		return 0, err
	}
	failed := 0
	for d.u.InFlight() > 0 {
		res, err := d.Complete(CompleteBlocking, nil)
		if err != nil {
			return failed, err
		}
		failed += res.Errors
	}
	return failed, nil
}

// finishInline records a completion from the driver thread and arms the
// signaled flag so the loop drains before blocking again.
func (d *Driver) finishInline(id uint64, opErr error) {
	d.u.Finish(id, opErr, coord.ThreadUnsafe)
	d.signaled = true
}

// coord.Backend: Start lives in submit_windows.go, Cancel/Finalize in
// cancel_windows.go.
var _ coord.Backend = (*Driver)(nil)
