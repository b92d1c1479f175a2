// Package protocol defines the wire format shared by the transfer client
// and server. Every message before the file payload is a discrete field:
// a 4-byte big-endian length prefix followed by that many bytes. The file
// size itself travels as a bare 4-byte big-endian unsigned integer, and the
// payload follows as exactly that many raw bytes.
//
// The explicit length prefixes make the exchange robust to coalescing or
// fragmentation by the transport; neither side may rely on send/receive
// call boundaries to separate fields.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFieldLen bounds a single framed field (usernames, passwords,
// department names, filenames, status text). A prefix above this is
// treated as a malformed stream, not an allocation request.
const MaxFieldLen = 4096

var (
	// ErrFieldTooLong reports a length prefix above MaxFieldLen.
	ErrFieldTooLong = errors.New("protocol: field exceeds maximum length")
	// ErrEmptyField reports a zero-length field where content is required.
	ErrEmptyField = errors.New("protocol: empty field")
)

// WriteField frames b with a 4-byte big-endian length prefix.
func WriteField(w io.Writer, b []byte) error {
	if len(b) > MaxFieldLen {
		return ErrFieldTooLong
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(b)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// WriteString frames s with a 4-byte big-endian length prefix.
func WriteString(w io.Writer, s string) error {
	return WriteField(w, []byte(s))
}

// ReadField reads one length-prefixed field. It fails on a prefix above
// MaxFieldLen and on a short read of either the prefix or the body.
func ReadField(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > MaxFieldLen {
		return nil, ErrFieldTooLong
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadString reads one length-prefixed field as a string, rejecting
// empty fields. All of the protocol's text fields require content.
func ReadString(r io.Reader) (string, error) {
	b, err := ReadField(r)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", ErrEmptyField
	}
	return string(b), nil
}

// WriteFileSize sends the declared payload length as a bare 4-byte
// big-endian unsigned integer, matching the original wire shape.
func WriteFileSize(w io.Writer, size uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], size)
	_, err := w.Write(buf[:])
	return err
}

// ReadFileSize reads the declared payload length.
func ReadFileSize(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// Server status texts. Clients decide success by substring match against
// the two markers, so the marker portions must never change.
const (
	// MarkerAuthOK appears in every successful authentication response.
	MarkerAuthOK = "Authentication successful"
	// MarkerTransferOK appears in every successful transfer response.
	MarkerTransferOK = "successfully transferred"

	// authOKPrefix precedes the resolved department name in the
	// authentication response; clients parse the department after it.
	authOKPrefix = MarkerAuthOK + ". Department: "

	// RespUserNotFound is sent when no host account matches the username.
	RespUserNotFound = "Authentication failed: User not found"
	// RespNotInGroups is sent when the account is in neither department group.
	RespNotInGroups = "Authentication failed: User not in required groups"
)

// AuthSuccess builds the authentication success response naming the
// resolved department.
func AuthSuccess(department string) string {
	return authOKPrefix + department
}

// ParseAuthDepartment extracts the department from an authentication
// success response. ok is false when the response is not a success.
func ParseAuthDepartment(resp string) (department string, ok bool) {
	if len(resp) <= len(authOKPrefix) || resp[:len(authOKPrefix)] != authOKPrefix {
		return "", false
	}
	return resp[len(authOKPrefix):], true
}

// AccessDenied builds the response for an upload into a department the
// authenticated identity does not belong to.
func AccessDenied(department string) string {
	return fmt.Sprintf("Error: You don't have access to the %s department", department)
}

// CreateFailed builds the response for a destination file that could not
// be created or written.
func CreateFailed(err error) string {
	return fmt.Sprintf("Error: Cannot create file: %v", err)
}

// TransferSuccess builds the final response naming the stored file and
// its department.
func TransferSuccess(filename, department string) string {
	return fmt.Sprintf("File '%s' successfully transferred to %s department", filename, department)
}
