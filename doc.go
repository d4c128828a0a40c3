// Package winaio is a proactor-mode asynchronous I/O engine for Windows.
//
// Callers submit batches of operation descriptors and drain completion
// notifications, in no guaranteed order across operations. Operations the completion port can express
// natively (overlapped file and socket I/O, job-object child tracking) are
// driven by the port; timeouts come from a monotonic timer queue, user-level
// event sources wake specific operations through port messages, and
// everything else falls back to an elastic worker pool running the blocking
// equivalent.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package winaio
