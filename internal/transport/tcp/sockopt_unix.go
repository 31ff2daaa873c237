//go:build unix

package tcp

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// control sets SO_REUSEADDR on the listening socket.
func control(_, _ string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return sockErr
}
