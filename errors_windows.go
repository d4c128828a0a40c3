// File: errors_windows.go
//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package winaio

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// translateError collapses a raw OS error into the terminal taxonomy. Codes
// without a mapping become the single ErrUnexpected sentinel.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	errno, ok := err.(syscall.Errno)
	if !ok {
		if err == ErrNotSupported || err == ErrUnexpected || err == ErrCanceled {
			return err
		}
		return ErrUnexpected
	}
	switch errno {
	case windows.WSAECONNRESET, windows.WSAECONNABORTED:
		return ErrConnectionReset
	case windows.WSAENETUNREACH, windows.WSAEHOSTUNREACH, windows.WSAENETDOWN:
		return ErrNetworkUnreachable
	case windows.WSAEMSGSIZE:
		return ErrMessageTooBig
	case windows.WSAESHUTDOWN:
		return ErrSocketShutdown
	case windows.WSAENOTCONN:
		return ErrNotConnected
	case windows.WSAEACCES, windows.ERROR_ACCESS_DENIED:
		return ErrAccessDenied
	case windows.WSAEADDRNOTAVAIL:
		return ErrAddressNotAvailable
	case windows.WSAENOTSOCK:
		return ErrNotASocket
	case windows.WSAEAFNOSUPPORT:
		return ErrAddressFamilyUnsupported
	case windows.WSAENOBUFS, windows.ERROR_NOT_ENOUGH_MEMORY, windows.ERROR_NO_SYSTEM_RESOURCES:
		return ErrSystemResources
	case windows.ERROR_OPERATION_ABORTED:
		return ErrCanceled
	default:
		return ErrUnexpected
	}
}
