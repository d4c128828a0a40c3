// File: internal/iocp/port_windows.go
//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thin owner of the native completion port. The driver is the only dequeuer;
// worker threads and event sources reach the port through Post.

package iocp

import (
	"golang.org/x/sys/windows"
)

// Port wraps a completion-port handle together with the number of threads
// expected to drain it. The thread count only matters at teardown: one
// shutdown message is posted per dequeuer because some kernels (WINE,
// notably) do not wake blocked dequeuers when the port handle is closed.
type Port struct {
	Handle  windows.Handle
	threads uint32
}

// New creates a completion port sized for numThreads concurrent dequeuers.
func New(numThreads uint32) (*Port, error) {
	h, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, numThreads)
	if err != nil {
		return nil, err
	}
	return &Port{Handle: h, threads: numThreads}, nil
}

// AssociateHandle binds a file handle to the port under the overlapped key.
// Skip-on-success is enabled first so synchronously completed overlapped I/O
// is reported inline by the submitter instead of enqueueing a completion.
// Associating a handle that is already bound to this port reports success.
func (p *Port) AssociateHandle(h windows.Handle) error {
	err := windows.SetFileCompletionNotificationModes(h,
		windows.FILE_SKIP_COMPLETION_PORT_ON_SUCCESS|windows.FILE_SKIP_SET_EVENT_ON_HANDLE)
	if err != nil {
		return err
	}
	_, err = windows.CreateIoCompletionPort(h, p.Handle, EncodeKey(KeyOverlapped, 0), 0)
	if err == windows.ERROR_INVALID_PARAMETER {
		// Already associated with this port.
		return nil
	}
	return err
}

// AssociateSocket binds a socket to the port. Same rules as AssociateHandle.
func (p *Port) AssociateSocket(s windows.Handle) error {
	return p.AssociateHandle(s)
}

// Post enqueues a zero-byte completion carrying key and an opaque pointer in
// the overlapped position. Used for custom wakeups: nop, shutdown and
// event-source notifications.
func (p *Port) Post(key uintptr, opaque *windows.Overlapped) error {
	return windows.PostQueuedCompletionStatus(p.Handle, 0, key, opaque)
}

// Wait dequeues one completion. A nil overlapped with a non-nil error means
// the dequeue itself failed (timeout included); a non-nil overlapped with an
// error is a completed-with-failure I/O.
func (p *Port) Wait(timeout uint32) (n uint32, key uintptr, ov *windows.Overlapped, err error) {
	err = windows.GetQueuedCompletionStatus(p.Handle, &n, &key, &ov, timeout)
	return n, key, ov, err
}

// Destroy posts one shutdown message per expected dequeuer, then closes the
// port handle.
func (p *Port) Destroy() {
	for i := uint32(0); i < p.threads; i++ {
		_ = windows.PostQueuedCompletionStatus(p.Handle, 0, EncodeKey(KeyShutdown, 0), nil)
	}
	_ = windows.CloseHandle(p.Handle)
	p.Handle = windows.InvalidHandle
}
