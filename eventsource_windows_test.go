//go:build windows

package winaio

import (
	"sync"
	"testing"

	"github.com/momentics/winaio/internal/coord"
)

func TestEventSourceSemaphore(t *testing.T) {
	src, err := NewEventSource()
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	if src.TryWait() {
		t.Fatal("fresh source must have no pending notification")
	}
	src.Notify()
	if !src.TryWait() {
		t.Fatal("notify without waiters must bump the semaphore")
	}
	if src.TryWait() {
		t.Fatal("one notify must satisfy exactly one wait")
	}
}

func TestEventSourceWaitBlocksUntilNotify(t *testing.T) {
	src, err := NewEventSource()
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		src.Wait()
	}()
	src.Notify()
	wg.Wait()
}

func TestEventSourceWaiterRemoval(t *testing.T) {
	src, err := NewEventSource()
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	var w coord.EventWaiter
	src.addWaiter(&w)
	if !w.Queued {
		t.Fatal("added waiter must be marked queued")
	}
	if !src.removeWaiter(&w) {
		t.Fatal("removal of a listed waiter failed")
	}
	if w.Queued {
		t.Fatal("removed waiter still marked queued")
	}
	if src.removeWaiter(&w) {
		t.Fatal("second removal must report not found")
	}
}

func TestEventSourceNotifyConsumesWaiterOrSemaphore(t *testing.T) {
	src, err := NewEventSource()
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	// A registered waiter absorbs the notify; the semaphore must stay
	// untouched. The waiter's port is zero so the post goes nowhere.
	var w coord.EventWaiter
	src.addWaiter(&w)
	src.Notify()
	if w.Queued {
		t.Fatal("notify must pop the waiter")
	}
	if src.TryWait() {
		t.Fatal("notify consumed by a waiter must not bump the semaphore")
	}
}

func TestEventSourceCloseWithWaitersPanics(t *testing.T) {
	src, err := NewEventSource()
	if err != nil {
		t.Fatal(err)
	}
	var w coord.EventWaiter
	src.addWaiter(&w)
	defer func() {
		if recover() == nil {
			t.Fatal("close with registered waiters must panic")
		}
		src.removeWaiter(&w)
		src.Close()
	}()
	src.Close()
}
