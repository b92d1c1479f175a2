// Package server implements the TCP side of the department file transfer
// service: the connection dispatcher, the per-connection session state
// machine, the lock-guarded disk writer that stores uploads with an
// attribution record, and the optional admin HTTP surface used for health
// and metrics.
package server
