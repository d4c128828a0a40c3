// File: syscall_windows.go
//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lazily resolved system procedures that golang.org/x/sys/windows does not
// export, plus the WSARecvMsg extension function fetched through the
// winsock ioctl on first use.

package winaio

import (
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/momentics/winaio/internal/coord"
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")
	modntdll    = windows.NewLazySystemDLL("ntdll.dll")
	modws2_32   = windows.NewLazySystemDLL("ws2_32.dll")
	modmswsock  = windows.NewLazySystemDLL("mswsock.dll")

	procReOpenFile             = modkernel32.NewProc("ReOpenFile")
	procCreateSemaphoreW       = modkernel32.NewProc("CreateSemaphoreW")
	procReleaseSemaphore       = modkernel32.NewProc("ReleaseSemaphore")
	procNtQueryInformationFile = modntdll.NewProc("NtQueryInformationFile")
	procWSASendMsg             = modws2_32.NewProc("WSASendMsg")
	procAcceptEx               = modmswsock.NewProc("AcceptEx")
	procGetAcceptExSockaddrs   = modmswsock.NewProc("GetAcceptExSockaddrs")
)

const (
	fileAccessInformation = 8
	fileReadData          = 0x0001
	fileWriteData         = 0x0002

	processTerminate               = 0x0001
	processSetQuota                = 0x0100
	processQueryLimitedInformation = 0x1000

	jobObjectAssociateCompletionPortInformation = 7

	socketError = ^uintptr(0)
)

type ioStatusBlock struct {
	Status      uintptr
	Information uintptr
}

// jobAssociateCompletionPort mirrors JOBOBJECT_ASSOCIATE_COMPLETION_PORT.
type jobAssociateCompletionPort struct {
	CompletionKey  uintptr
	CompletionPort windows.Handle
}

// callErr normalizes the errno convention of LazyProc.Call failures.
func callErr(e error) error {
	if errno, ok := e.(syscall.Errno); ok && errno != 0 {
		return errno
	}
	return ErrUnexpected
}

// queryFileAccess reads the granted-access bits of a handle through
// NtQueryInformationFile(FileAccessInformation).
func queryFileAccess(h windows.Handle) (uint32, error) {
	var iosb ioStatusBlock
	var access uint32
	st, _, _ := procNtQueryInformationFile.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(&iosb)),
		uintptr(unsafe.Pointer(&access)),
		unsafe.Sizeof(access),
		fileAccessInformation,
	)
	if st != 0 {
		return 0, ErrUnexpected
	}
	return access, nil
}

// reopenOverlapped opens a new overlapped-mode handle to the file behind h
// with full sharing. The caller owns the duplicate.
func reopenOverlapped(h windows.Handle, access uint32) (windows.Handle, error) {
	r, _, e := procReOpenFile.Call(
		uintptr(h),
		uintptr(access),
		uintptr(windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE),
		uintptr(windows.FILE_FLAG_OVERLAPPED),
	)
	if windows.Handle(r) == windows.InvalidHandle {
		return windows.InvalidHandle, callErr(e)
	}
	return windows.Handle(r), nil
}

func createSemaphore(initial, max int32) (windows.Handle, error) {
	r, _, e := procCreateSemaphoreW.Call(0, uintptr(initial), uintptr(max), 0)
	if r == 0 {
		return 0, callErr(e)
	}
	return windows.Handle(r), nil
}

func releaseSemaphore(h windows.Handle) error {
	r, _, e := procReleaseSemaphore.Call(uintptr(h), 1, 0)
	if r == 0 {
		return callErr(e)
	}
	return nil
}

func acceptEx(listen, conn windows.Handle, buf *byte, addrLen uint32, recvd *uint32, ov *windows.Overlapped) error {
	r, _, e := procAcceptEx.Call(
		uintptr(listen),
		uintptr(conn),
		uintptr(unsafe.Pointer(buf)),
		0,
		uintptr(addrLen),
		uintptr(addrLen),
		uintptr(unsafe.Pointer(recvd)),
		uintptr(unsafe.Pointer(ov)),
	)
	if r == 0 {
		return callErr(e)
	}
	return nil
}

func getAcceptExSockaddrs(buf *byte, addrLen uint32, local **windows.RawSockaddrAny, localLen *int32, remote **windows.RawSockaddrAny, remoteLen *int32) {
	_, _, _ = procGetAcceptExSockaddrs.Call(
		uintptr(unsafe.Pointer(buf)),
		0,
		uintptr(addrLen),
		uintptr(addrLen),
		uintptr(unsafe.Pointer(local)),
		uintptr(unsafe.Pointer(localLen)),
		uintptr(unsafe.Pointer(remote)),
		uintptr(unsafe.Pointer(remoteLen)),
	)
}

func wsaSendMsg(s windows.Handle, msg *coord.MsgScratch, flags uint32, sent *uint32, ov *windows.Overlapped) error {
	r, _, e := procWSASendMsg.Call(
		uintptr(s),
		uintptr(unsafe.Pointer(msg)),
		uintptr(flags),
		uintptr(unsafe.Pointer(sent)),
		uintptr(unsafe.Pointer(ov)),
		0,
	)
	if r == socketError {
		return callErr(e)
	}
	return nil
}

// WSAID_WSARECVMSG identifies the WSARecvMsg extension function.
var wsaidWSARecvMsg = windows.GUID{
	Data1: 0xf689d7c8,
	Data2: 0x6f1f,
	Data3: 0x436b,
	Data4: [8]byte{0x8a, 0x53, 0xe5, 0x4f, 0xe3, 0x51, 0xc3, 0x22},
}

var (
	wsaRecvMsgOnce sync.Once
	wsaRecvMsgPtr  uintptr
	wsaRecvMsgErr  error
)

// loadWSARecvMsg resolves the extension function pointer once per process.
func loadWSARecvMsg(s windows.Handle) (uintptr, error) {
	wsaRecvMsgOnce.Do(func() {
		var n uint32
		wsaRecvMsgErr = windows.WSAIoctl(
			s,
			windows.SIO_GET_EXTENSION_FUNCTION_POINTER,
			(*byte)(unsafe.Pointer(&wsaidWSARecvMsg)),
			uint32(unsafe.Sizeof(wsaidWSARecvMsg)),
			(*byte)(unsafe.Pointer(&wsaRecvMsgPtr)),
			uint32(unsafe.Sizeof(wsaRecvMsgPtr)),
			&n,
			nil,
			0,
		)
	})
	return wsaRecvMsgPtr, wsaRecvMsgErr
}

func wsaRecvMsg(s windows.Handle, msg *coord.MsgScratch, recvd *uint32, ov *windows.Overlapped) error {
	fn, err := loadWSARecvMsg(s)
	if err != nil {
		return ErrNotSupported
	}
	r, _, e := syscall.SyscallN(fn,
		uintptr(s),
		uintptr(unsafe.Pointer(msg)),
		uintptr(unsafe.Pointer(recvd)),
		uintptr(unsafe.Pointer(ov)),
		0,
	)
	if r == socketError {
		return callErr(e)
	}
	return nil
}

var wsaOnce sync.Once

// ensureWinsock performs the one-time WSAStartup this library needs when
// the process has not touched the net package.
func ensureWinsock() {
	wsaOnce.Do(func() {
		var data windows.WSAData
		_ = windows.WSAStartup(uint32(0x202), &data)
	})
}
