//go:build !unix

package artnet

import "syscall"

// Windows sockets allow broadcast by default; address reuse is left off.
func socketControl(bool) func(network, address string, c syscall.RawConn) error {
	return nil
}
