// File: internal/iocp/key.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Tagged completion-key encoding. Every dequeued port completion carries one
// machine word that routes it to the correct handler; the word packs a small
// kind tag and, for post-queued messages, the slot index of the addressed
// operation.

package iocp

// KeyKind discriminates the origin of a port completion.
type KeyKind uintptr

const (
	// KeyNop is a pure wakeup: the dequeuer should re-check its local state.
	KeyNop KeyKind = iota
	// KeyShutdown tells a dequeuer to stop draining the port.
	KeyShutdown
	// KeyEventSource addresses an operation waiting on an event source.
	KeyEventSource
	// KeyChildExit carries job-object messages for a child-exit operation.
	KeyChildExit
	// KeyOverlapped marks kernel overlapped I/O; the slot is recovered from
	// the overlapped pointer, not from the key.
	KeyOverlapped
)

const (
	kindBits = 3
	kindMask = 1<<kindBits - 1
)

// EncodeKey packs kind and slot into one completion-key word. The encoding
// is reversible by DecodeKey on the same target. Slot indices are bounded by
// the operation-table capacity and fit the remaining word bits even on
// 32-bit targets.
func EncodeKey(kind KeyKind, slot uint32) uintptr {
	return uintptr(kind) | uintptr(slot)<<kindBits
}

// DecodeKey is the inverse of EncodeKey.
func DecodeKey(key uintptr) (KeyKind, uint32) {
	return KeyKind(key & kindMask), uint32(key >> kindBits)
}
