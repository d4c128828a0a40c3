package timerq

import (
	"testing"
	"time"
)

func TestFireOrder(t *testing.T) {
	q := New()
	q.Schedule(2*time.Millisecond, 2)
	q.Schedule(1*time.Millisecond, 1)
	q.Schedule(3*time.Millisecond, 3)
	time.Sleep(10 * time.Millisecond)

	var got []uint64
	n := q.Fire(func(w uint64) { got = append(got, w) })
	if n != 3 {
		t.Fatalf("fired %d, want 3", n)
	}
	for i, w := range []uint64{1, 2, 3} {
		if got[i] != w {
			t.Fatalf("fire order %v", got)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("len %d after drain", q.Len())
	}
}

func TestDisarm(t *testing.T) {
	q := New()
	q.Schedule(time.Hour, 7)
	if !q.Disarm(7) {
		t.Fatal("disarm of armed timer failed")
	}
	if q.Disarm(7) {
		t.Fatal("second disarm must report not found")
	}
	if q.Fire(func(uint64) {}) != 0 {
		t.Fatal("disarmed timer fired")
	}
}

func TestDisarmAfterFire(t *testing.T) {
	q := New()
	q.Schedule(0, 9)
	time.Sleep(time.Millisecond)
	if q.Fire(func(uint64) {}) != 1 {
		t.Fatal("due timer did not fire")
	}
	// Fire already consumed the word: the disarm race resolves to not-found.
	if q.Disarm(9) {
		t.Fatal("disarm after fire must report not found")
	}
}

func TestNextDelay(t *testing.T) {
	q := New()
	if _, ok := q.NextDelay(); ok {
		t.Fatal("empty queue reported a delay")
	}
	q.Schedule(time.Hour, 1)
	q.Schedule(time.Millisecond, 2)
	d, ok := q.NextDelay()
	if !ok || d > time.Millisecond {
		t.Fatalf("next delay %v ok=%v", d, ok)
	}
}

func TestRearmReplaces(t *testing.T) {
	q := New()
	q.Schedule(time.Hour, 5)
	q.Schedule(time.Millisecond, 5)
	if q.Len() != 1 {
		t.Fatalf("re-arm duplicated the timer: len %d", q.Len())
	}
	d, _ := q.NextDelay()
	if d > time.Millisecond {
		t.Fatalf("re-arm kept the old deadline: %v", d)
	}
}
