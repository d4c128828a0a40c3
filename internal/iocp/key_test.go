package iocp

import "testing"

func TestKeyRoundTrip(t *testing.T) {
	kinds := []KeyKind{KeyNop, KeyShutdown, KeyEventSource, KeyChildExit, KeyOverlapped}
	slots := []uint32{0, 1, 7, 255, 4095, 1 << 20}
	for _, k := range kinds {
		for _, s := range slots {
			gotK, gotS := DecodeKey(EncodeKey(k, s))
			if gotK != k || gotS != s {
				t.Fatalf("round trip (%d,%d) -> (%d,%d)", k, s, gotK, gotS)
			}
		}
	}
}

func TestKeyKindsDistinct(t *testing.T) {
	seen := map[uintptr]KeyKind{}
	for _, k := range []KeyKind{KeyNop, KeyShutdown, KeyEventSource, KeyChildExit, KeyOverlapped} {
		key := EncodeKey(k, 42)
		if prev, dup := seen[key]; dup {
			t.Fatalf("kind %d and %d encode to the same key", prev, k)
		}
		seen[key] = k
	}
}

func TestKeyZeroSlot(t *testing.T) {
	if EncodeKey(KeyNop, 0) != 0 {
		t.Fatal("nop key with slot 0 must be the zero word")
	}
}
