package server

import (
	"bufio"
	"errors"
	"net"
	"os"
	"time"

	"dept-file-transfer/internal/identity"
	"dept-file-transfer/internal/protocol"
)

// Outcome is the terminal state of one session.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeForbidden       Outcome = "forbidden"
	OutcomeIncomplete      Outcome = "incomplete"
	OutcomeIOError         Outcome = "io_error"
	OutcomeProtocolError   Outcome = "protocol_error"
)

// session runs the server side of the transfer protocol for a single
// connection: username, password, identity resolution, then at most one
// file transfer. All state is connection-local; the only shared resources
// are the identity store (read-only) and the disk store's write lock.
type session struct {
	id      string
	conn    net.Conn
	r       *bufio.Reader
	store   identity.Store
	disk    *DiskStore
	metrics *Metrics
	log     *SessionLogger
	timeout time.Duration
}

func newSession(id string, conn net.Conn, cfg Config, disk *DiskStore, metrics *Metrics) *session {
	return &session{
		id:      id,
		conn:    conn,
		r:       bufio.NewReader(conn),
		store:   cfg.Store,
		disk:    disk,
		metrics: metrics,
		log:     cfg.Logger.WithSession(id),
		timeout: cfg.IOTimeout,
	}
}

// run drives the session to a terminal outcome. It never panics the
// dispatcher: every failure ends this one session only.
func (s *session) run() Outcome {
	username, err := s.recvString()
	if err != nil {
		s.log.Debug("no username received", map[string]any{"err": err.Error()})
		return OutcomeUnauthenticated
	}

	// The password is read as a well-formed message and then discarded.
	// Authentication in this system is solely "the host account exists
	// and is in a department group"; see the identity package.
	if _, err := s.recvString(); err != nil {
		s.log.Debug("no password received", map[string]any{"err": err.Error()})
		return OutcomeUnauthenticated
	}

	id, err := identity.Resolve(s.store, username)
	if err != nil {
		s.metrics.RecordAuth(false)
		switch {
		case errors.Is(err, identity.ErrUserNotFound):
			_ = s.send(protocol.RespUserNotFound)
		case errors.Is(err, identity.ErrNotAuthorized):
			_ = s.send(protocol.RespNotInGroups)
		default:
			// Store failure: reject the session rather than guess.
			s.log.Error("identity store failure", map[string]any{"username": username}, err)
			_ = s.send(protocol.RespUserNotFound)
		}
		s.log.Info("authentication failed", map[string]any{"username": username})
		return OutcomeUnauthenticated
	}

	s.metrics.RecordAuth(true)
	if err := s.send(protocol.AuthSuccess(string(id.Department))); err != nil {
		return OutcomeUnauthenticated
	}
	s.log.Info("authenticated", map[string]any{
		"username":   id.Username,
		"department": string(id.Department),
	})

	dept, err := s.recvString()
	if err != nil {
		return s.protocolFailure("department", err)
	}
	filename, err := s.recvString()
	if err != nil {
		return s.protocolFailure("filename", err)
	}
	size, err := s.recvFileSize()
	if err != nil {
		return s.protocolFailure("file size", err)
	}

	// Byte-exact comparison against the resolved department; no bytes
	// reach the disk store on a mismatch.
	if dept != string(id.Department) {
		s.metrics.RecordAccessDenied()
		_ = s.send(protocol.AccessDenied(dept))
		s.log.Info("access denied", map[string]any{
			"username":  id.Username,
			"requested": dept,
			"resolved":  string(id.Department),
		})
		return OutcomeForbidden
	}

	written, err := s.disk.Write(id.Department, filename, payloadReader{s}, size, id)
	if err != nil {
		return s.writeFailure(filename, written, err)
	}

	base, _ := baseName(filename)
	if err := s.send(protocol.TransferSuccess(base, dept)); err != nil {
		s.log.Debug("success response not delivered", map[string]any{"err": err.Error()})
	}
	s.metrics.RecordTransfer(written)
	s.log.Info("file transferred", map[string]any{
		"username":   id.Username,
		"department": dept,
		"file":       base,
		"bytes":      written,
	})
	return OutcomeSuccess
}

func (s *session) protocolFailure(field string, err error) Outcome {
	s.log.Info("malformed transfer request", map[string]any{
		"field": field,
		"err":   err.Error(),
	})
	return OutcomeProtocolError
}

// writeFailure classifies a disk store error: a filesystem failure is
// reported to the peer, while a source that ran dry means the peer is gone
// and the session just ends. Partial destination files are left in place
// in both cases.
func (s *session) writeFailure(filename string, written int64, err error) Outcome {
	var pathErr *os.PathError
	switch {
	case errors.Is(err, ErrShortTransfer):
		s.metrics.RecordIncomplete()
		s.log.Warn("transfer incomplete", map[string]any{
			"file":    filename,
			"written": written,
		})
		return OutcomeIncomplete
	case errors.As(err, &pathErr), errors.Is(err, ErrBadFilename), errors.Is(err, ErrUnknownDepartment):
		s.metrics.RecordTransferError()
		_ = s.send(protocol.CreateFailed(err))
		s.log.Error("destination write failed", map[string]any{"file": filename}, err)
		return OutcomeIOError
	default:
		// Connection-level read error mid-stream.
		s.metrics.RecordIncomplete()
		s.log.Warn("connection lost mid-stream", map[string]any{
			"file":    filename,
			"written": written,
			"err":     err.Error(),
		})
		return OutcomeIncomplete
	}
}

// touchRead pushes the read deadline forward when deadlines are enabled.
func (s *session) touchRead() {
	if s.timeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.timeout))
	}
}

func (s *session) recvString() (string, error) {
	s.touchRead()
	return protocol.ReadString(s.r)
}

func (s *session) recvFileSize() (uint32, error) {
	s.touchRead()
	return protocol.ReadFileSize(s.r)
}

func (s *session) send(msg string) error {
	if s.timeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	}
	return protocol.WriteString(s.conn, msg)
}

// payloadReader feeds file bytes to the disk store, refreshing the read
// deadline on every chunk so a slow-but-live peer is not cut off.
type payloadReader struct {
	s *session
}

func (p payloadReader) Read(b []byte) (int, error) {
	p.s.touchRead()
	return p.s.r.Read(b)
}
