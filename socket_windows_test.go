//go:build windows

package winaio

import (
	"testing"

	"golang.org/x/sys/windows"
)

// listenLoopback builds an overlapped listening socket on 127.0.0.1 with an
// ephemeral port. The net package is avoided on purpose: its sockets are
// already bound to the runtime's own completion port.
func listenLoopback(t *testing.T) (windows.Handle, *windows.SockaddrInet4) {
	t.Helper()
	s, err := windows.WSASocket(windows.AF_INET, windows.SOCK_STREAM, 0, nil, 0, windows.WSA_FLAG_OVERLAPPED)
	if err != nil {
		t.Fatalf("socket: %v", err)
	}
	t.Cleanup(func() { windows.Closesocket(s) })
	if err := windows.Bind(s, &windows.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := windows.Listen(s, 4); err != nil {
		t.Fatalf("listen: %v", err)
	}
	sa, err := windows.Getsockname(s)
	if err != nil {
		t.Fatalf("getsockname: %v", err)
	}
	return s, sa.(*windows.SockaddrInet4)
}

func dialLoopback(t *testing.T, sa *windows.SockaddrInet4) windows.Handle {
	t.Helper()
	c, err := windows.WSASocket(windows.AF_INET, windows.SOCK_STREAM, 0, nil, 0, windows.WSA_FLAG_OVERLAPPED)
	if err != nil {
		t.Fatalf("socket: %v", err)
	}
	t.Cleanup(func() { windows.Closesocket(c) })
	if err := windows.Connect(c, sa); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return c
}

// acceptOne drives one accept to completion and returns the server-side
// socket together with the dialing client.
func acceptOne(t *testing.T, d *Driver) (server, client windows.Handle) {
	t.Helper()
	ls, sa := listenLoopback(t)

	var acc windows.Handle
	var peer windows.RawSockaddrAny
	var peerLen int32
	var done []Completion
	_, err := d.Queue([]Operation{{
		Kind:       OpAccept,
		Handle:     ls,
		OutSocket:  &acc,
		OutAddr:    &peer,
		OutAddrLen: &peerLen,
	}}, func(c Completion) { done = append(done, c) })
	if err != nil {
		t.Fatalf("queue accept: %v", err)
	}
	if _, err := d.Complete(CompleteNonblocking, nil); err != nil {
		t.Fatalf("submit accept: %v", err)
	}
	client = dialLoopback(t, sa)
	drainAll(t, d, 1, &done)
	if done[0].Err != nil {
		t.Fatalf("accept finished with %v", done[0].Err)
	}
	if acc == 0 || acc == windows.InvalidHandle {
		t.Fatal("accept reported success without a socket")
	}
	if peerLen <= 0 {
		t.Fatalf("peer address length %d", peerLen)
	}
	t.Cleanup(func() { windows.Closesocket(acc) })
	return acc, client
}

func TestAcceptReportsPeer(t *testing.T) {
	d := newTestDriver(t)
	acceptOne(t, d)
}

func TestSendRecvRoundTrip(t *testing.T) {
	d := newTestDriver(t)
	server, client := acceptOne(t, d)

	var done []Completion
	handler := func(c Completion) { done = append(done, c) }

	var sent uint32
	if _, err := d.Queue([]Operation{{
		Kind: OpSend, Handle: client, Buffer: []byte("ping"), OutBytes: &sent,
	}}, handler); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 16)
	var recvd uint32
	if _, err := d.Queue([]Operation{{
		Kind: OpRecv, Handle: server, Buffer: buf, OutBytes: &recvd,
	}}, handler); err != nil {
		t.Fatal(err)
	}
	drainAll(t, d, 2, &done)
	for _, c := range done {
		if c.Err != nil {
			t.Fatalf("%v finished with %v", c.Kind, c.Err)
		}
	}
	if sent != 4 || recvd != 4 || string(buf[:recvd]) != "ping" {
		t.Fatalf("sent=%d recvd=%d data=%q", sent, recvd, buf[:recvd])
	}
}

func TestCancelPendingRecv(t *testing.T) {
	d := newTestDriver(t)
	server, _ := acceptOne(t, d)

	var done []Completion
	ids, err := d.Queue([]Operation{{
		Kind: OpRecv, Handle: server, Buffer: make([]byte, 16),
	}}, func(c Completion) { done = append(done, c) })
	if err != nil {
		t.Fatal(err)
	}
	// Submit; no data is coming, the recv stays pending on the port.
	if _, err := d.Complete(CompleteNonblocking, nil); err != nil {
		t.Fatal(err)
	}
	// Either the cancel terminates the slot immediately or the canceled
	// completion arrives through the port; both drain as ErrCanceled.
	d.Cancel(ids[0], ErrCanceled)
	drainAll(t, d, 1, &done)
	if done[0].Err != ErrCanceled {
		t.Fatalf("canceled recv finished with %v", done[0].Err)
	}
}

func TestManyRecvWithTargetedCancels(t *testing.T) {
	const pairs = 16
	d := newTestDriver(t, WithCapacity(64))

	var done []Completion
	handler := func(c Completion) { done = append(done, c) }
	ids := make([]uint64, 0, pairs)
	clients := make([]windows.Handle, 0, pairs)
	for i := 0; i < pairs; i++ {
		server, client := acceptOne(t, d)
		clients = append(clients, client)
		batch, err := d.Queue([]Operation{{
			Kind: OpRecv, Handle: server, Buffer: make([]byte, 8),
		}}, handler)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, batch[0])
	}
	if _, err := d.Complete(CompleteNonblocking, nil); err != nil {
		t.Fatal(err)
	}

	targets := map[int]bool{0: true, 7: true, pairs - 1: true}
	for i := range targets {
		d.Cancel(ids[i], nil)
	}
	for i, c := range clients {
		if !targets[i] {
			var sent uint32
			if _, err := d.Queue([]Operation{{
				Kind: OpSend, Handle: c, Buffer: []byte("x"), OutBytes: &sent,
			}}, handler); err != nil {
				t.Fatal(err)
			}
		}
	}

	// Every recv and every send completes exactly once.
	total := pairs + (pairs - len(targets))
	drainAll(t, d, total, &done)
	byID := map[uint64]error{}
	for _, c := range done {
		byID[c.ID] = c.Err
	}
	for i, id := range ids {
		err, ok := byID[id]
		if !ok {
			t.Fatalf("recv %d never completed", i)
		}
		if targets[i] && err != ErrCanceled {
			t.Fatalf("recv %d: got %v, want ErrCanceled", i, err)
		}
		if !targets[i] && err != nil {
			t.Fatalf("recv %d: %v", i, err)
		}
	}
}
