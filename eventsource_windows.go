// File: eventsource_windows.go
//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// User-level event source: a kernel semaphore plus a waiter list. Notify
// either consumes one registered async waiter (waking the driver through a
// port message addressed to the waiter's slot) or bumps the semaphore —
// never both, so a listed waiter is not also counted against the semaphore.

package winaio

import (
	"math"
	"sync"

	"golang.org/x/sys/windows"

	"github.com/momentics/winaio/internal/coord"
)

// EventSource synchronizes user code with in-flight wait operations.
type EventSource struct {
	sem    windows.Handle
	mu     sync.Mutex
	head   *coord.EventWaiter
	closed bool
}

// NewEventSource creates an event source with a zero initial count.
func NewEventSource() (*EventSource, error) {
	sem, err := createSemaphore(0, math.MaxInt32)
	if err != nil {
		return nil, translateError(err)
	}
	return &EventSource{sem: sem}, nil
}

// Notify wakes one waiter. A registered async waiter is popped and woken
// through its driver port; with no waiter present the semaphore is posted.
func (e *EventSource) Notify() {
	e.mu.Lock()
	w := e.head
	if w != nil {
		e.head = w.Next
		w.Next = nil
		w.Queued = false
	}
	e.mu.Unlock()
	if w != nil {
		_ = windows.PostQueuedCompletionStatus(w.Port, 0, w.Key, nil)
		return
	}
	_ = releaseSemaphore(e.sem)
}

// Wait blocks until the source is notified.
func (e *EventSource) Wait() {
	_, _ = windows.WaitForSingleObject(e.sem, windows.INFINITE)
}

// TryWait consumes one notification without blocking, reporting whether
// one was pending.
func (e *EventSource) TryWait() bool {
	ev, err := windows.WaitForSingleObject(e.sem, 0)
	return err == nil && ev == windows.WAIT_OBJECT_0
}

// Close destroys the source. Destroying a source with registered waiters is
// an invariant violation and panics.
func (e *EventSource) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if e.head != nil {
		e.mu.Unlock()
		panic("winaio: event source closed with registered waiters")
	}
	e.closed = true
	e.mu.Unlock()
	_ = windows.CloseHandle(e.sem)
}

// addWaiter registers an operation slot's waiter node.
func (e *EventSource) addWaiter(w *coord.EventWaiter) {
	e.mu.Lock()
	w.Queued = true
	w.Next = e.head
	e.head = w
	e.mu.Unlock()
}

// removeWaiter unlinks w. Not-found reports false, which cancel uses to
// detect a race against a concurrent notify.
func (e *EventSource) removeWaiter(w *coord.EventWaiter) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for p := &e.head; *p != nil; p = &(*p).Next {
		if *p == w {
			*p = w.Next
			w.Next = nil
			w.Queued = false
			return true
		}
	}
	return false
}
