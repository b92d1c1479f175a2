// Package client implements the client role of the transfer protocol: one
// connection, one authentication exchange, at most one file upload. It is
// the programmatic driver behind cmd/client and the end-to-end tests; all
// prompting lives in the binary.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"strings"
	"time"

	"dept-file-transfer/internal/protocol"
)

// uploadChunkSize bounds the buffer used while streaming the file.
const uploadChunkSize = 32 * 1024

var (
	// ErrAuthRejected reports a server response without the
	// authentication success marker.
	ErrAuthRejected = errors.New("client: authentication rejected")
	// ErrTransferRejected reports a final response without the transfer
	// success marker.
	ErrTransferRejected = errors.New("client: transfer rejected")
	// ErrFileTooLarge reports a file whose size does not fit the wire's
	// 4-byte length field.
	ErrFileTooLarge = errors.New("client: file exceeds 4 GiB transfer limit")
)

// Client drives one transfer session. Not safe for concurrent use; the
// protocol is strictly sequential.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to the server. There is no retry: a connect failure is
// final and the caller reports it.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: connect to %s: %w", addr, err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// DialTimeout is Dial with a connect timeout.
func DialTimeout(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("client: connect to %s: %w", addr, err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Authenticate sends the credentials and returns the department the server
// resolved for the account. The raw server response is returned either way
// so the binary can show it to the user; on rejection err wraps
// ErrAuthRejected.
func (c *Client) Authenticate(username, password string) (department, response string, err error) {
	if err := protocol.WriteString(c.conn, username); err != nil {
		return "", "", fmt.Errorf("client: send username: %w", err)
	}
	if err := protocol.WriteString(c.conn, password); err != nil {
		return "", "", fmt.Errorf("client: send password: %w", err)
	}

	resp, err := protocol.ReadString(c.r)
	if err != nil {
		return "", "", fmt.Errorf("client: read auth response: %w", err)
	}
	if !strings.Contains(resp, protocol.MarkerAuthOK) {
		return "", resp, fmt.Errorf("%w: %s", ErrAuthRejected, resp)
	}
	dept, _ := protocol.ParseAuthDepartment(resp)
	return dept, resp, nil
}

// Upload transfers the file at path into the named department. The
// declared length is the file's current size; progress, when non-nil, is
// invoked with cumulative sent bytes after every chunk. The server's final
// response is returned; on rejection err wraps ErrTransferRejected.
func (c *Client) Upload(department, path string, progress func(sent, total int64)) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("client: cannot access file %q: %w", path, err)
	}
	if fi.Size() > math.MaxUint32 {
		return "", ErrFileTooLarge
	}
	total := fi.Size()

	if err := protocol.WriteString(c.conn, department); err != nil {
		return "", fmt.Errorf("client: send department: %w", err)
	}
	if err := protocol.WriteString(c.conn, path); err != nil {
		return "", fmt.Errorf("client: send filename: %w", err)
	}
	if err := protocol.WriteFileSize(c.conn, uint32(total)); err != nil {
		return "", fmt.Errorf("client: send file size: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("client: open file %q: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, uploadChunkSize)
	var sent int64
	for sent < total {
		n, readErr := f.Read(buf)
		if n > 0 {
			if _, err := c.conn.Write(buf[:n]); err != nil {
				return "", fmt.Errorf("client: send file data: %w", err)
			}
			sent += int64(n)
			if progress != nil {
				progress(sent, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("client: read file: %w", readErr)
		}
	}
	if sent != total {
		// The file shrank underneath us; the server will see a short
		// stream and record the transfer as incomplete.
		return "", fmt.Errorf("client: sent %d of %d declared bytes", sent, total)
	}

	resp, err := protocol.ReadString(c.r)
	if err != nil {
		return "", fmt.Errorf("client: read transfer response: %w", err)
	}
	if !strings.Contains(resp, protocol.MarkerTransferOK) {
		return resp, fmt.Errorf("%w: %s", ErrTransferRejected, resp)
	}
	return resp, nil
}
