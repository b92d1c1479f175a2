//go:build !unix

package server

import "syscall"

// reuseAddrAndPort is a no-op where the socket options are unavailable.
func reuseAddrAndPort(network, address string, c syscall.RawConn) error {
	return nil
}
