package winaio

import "testing"

func TestIsSupported(t *testing.T) {
	if IsSupported([]OpKind{OpPoll}) {
		t.Fatal("poll must be unsupported")
	}
	if IsSupported([]OpKind{OpRead, OpTimeout, OpPoll, OpSend}) {
		t.Fatal("batch containing poll must be unsupported")
	}
	all := []OpKind{
		OpRead, OpWrite, OpReadv, OpWritev, OpAccept, OpRecv, OpSend,
		OpRecvMsg, OpSendMsg, OpTimeout, OpLinkTimeout, OpChildExit,
		OpWaitEventSource, OpNotifyEventSource, OpCloseEventSource, OpFsync,
	}
	if !IsSupported(all) {
		t.Fatal("every kind except poll must be supported")
	}
	if !IsSupported(nil) {
		t.Fatal("empty batch must be supported")
	}
}

func TestOpKindString(t *testing.T) {
	cases := map[OpKind]string{
		OpRead:            "read",
		OpLinkTimeout:     "link_timeout",
		OpWaitEventSource: "wait_event_source",
		OpPoll:            "poll",
		OpKind(200):       "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", k, got, want)
		}
	}
}
