// File: ops.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package winaio

// OpKind identifies the requested operation.
type OpKind uint8

const (
	// OpRead reads from a file handle at Offset into Buffer.
	OpRead OpKind = iota
	// OpWrite writes Buffer to a file handle at Offset.
	OpWrite
	// OpReadv is the vectored read. Only the first element of Buffers is
	// submitted per operation; issue follow-up operations for the rest.
	OpReadv
	// OpWritev is the vectored write, with the same first-element contract.
	OpWritev
	// OpAccept accepts one connection on a listening socket.
	OpAccept
	// OpRecv receives from a stream socket into Buffer.
	OpRecv
	// OpSend sends Buffer on a stream socket.
	OpSend
	// OpRecvMsg receives a scatter/gather message described by Msg.
	OpRecvMsg
	// OpSendMsg sends a scatter/gather message described by Msg.
	OpSendMsg
	// OpTimeout completes successfully after Timeout elapses.
	OpTimeout
	// OpLinkTimeout bounds the operation queued immediately before it:
	// whichever side completes first cancels the other.
	OpLinkTimeout
	// OpChildExit completes when Process terminates, reporting how.
	OpChildExit
	// OpWaitEventSource completes when Source is notified.
	OpWaitEventSource
	// OpNotifyEventSource notifies Source.
	OpNotifyEventSource
	// OpCloseEventSource closes Source.
	OpCloseEventSource
	// OpFsync flushes a file handle's buffers through the worker pool.
	OpFsync
	// OpPoll is not supported by this backend.
	OpPoll
)

var opNames = [...]string{
	OpRead:              "read",
	OpWrite:             "write",
	OpReadv:             "readv",
	OpWritev:            "writev",
	OpAccept:            "accept",
	OpRecv:              "recv",
	OpSend:              "send",
	OpRecvMsg:           "recv_msg",
	OpSendMsg:           "send_msg",
	OpTimeout:           "timeout",
	OpLinkTimeout:       "link_timeout",
	OpChildExit:         "child_exit",
	OpWaitEventSource:   "wait_event_source",
	OpNotifyEventSource: "notify_event_source",
	OpCloseEventSource:  "close_event_source",
	OpFsync:             "fsync",
	OpPoll:              "poll",
}

func (k OpKind) String() string {
	if int(k) < len(opNames) {
		return opNames[k]
	}
	return "unknown"
}

// IsSupported reports whether every operation kind in the batch can be
// driven by this backend. Poll is the only unsupported kind.
func IsSupported(kinds []OpKind) bool {
	for _, k := range kinds {
		if k == OpPoll {
			return false
		}
	}
	return true
}

// CompleteMode selects whether Complete blocks for at least one completion.
type CompleteMode uint8

const (
	// CompleteNonblocking drains whatever is ready and returns.
	CompleteNonblocking CompleteMode = iota
	// CompleteBlocking waits until at least one completion or error drains.
	CompleteBlocking
)

// CompleteResult counts what one Complete call drained.
type CompleteResult struct {
	// Completed is the total number of drained operations, failed included.
	Completed int
	// Errors is how many of them carried a terminal error.
	Errors int
}
