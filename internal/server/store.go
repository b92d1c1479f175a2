package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"dept-file-transfer/internal/identity"
)

// copyChunkSize bounds the buffer used while streaming payload bytes to
// disk; the whole file is never held in memory.
const copyChunkSize = 32 * 1024

var (
	// ErrUnknownDepartment reports a department with no storage root.
	ErrUnknownDepartment = errors.New("store: unknown department")
	// ErrBadFilename reports a filename with no usable final component.
	ErrBadFilename = errors.New("store: filename has no usable base name")
	// ErrShortTransfer reports a source that ended before the declared
	// length. The partially written destination file is left in place.
	ErrShortTransfer = errors.New("store: transfer ended before declared length")
)

// baseName extracts the final path component of a requested filename.
// "dir/sub/report.txt" stores as "report.txt"; names that reduce to a
// directory reference have no usable base.
func baseName(filename string) (string, error) {
	base := filepath.Base(filepath.Clean(filename))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrBadFilename, filename)
	}
	return base, nil
}

// DiskStore writes uploads into the per-department directories under a
// single storage root. One process-wide mutex serializes every write: the
// critical section spans create, copy, ownership change and attribution
// record, so the .owner file only ever appears after its data file is
// complete. Serializing all uploads is a deliberate scalability trade-off
// carried over from the original system.
type DiskStore struct {
	mu    sync.Mutex
	roots map[identity.Department]string
	log   *Logger
}

// NewDiskStore maps the two fixed departments to directories under root.
// The directories are expected to exist with correct group ownership;
// provisioning them is an operational concern outside this type.
func NewDiskStore(root string, log *Logger) *DiskStore {
	roots := make(map[identity.Department]string, len(identity.Departments))
	for _, dept := range identity.Departments {
		roots[dept] = filepath.Join(root, string(dept))
	}
	return &DiskStore{roots: roots, log: log}
}

// Root returns the storage directory for a department.
func (d *DiskStore) Root(dept identity.Department) (string, bool) {
	path, ok := d.roots[dept]
	return path, ok
}

// Write stores exactly declared bytes from src as
// <department root>/<basename(filename)>, truncating any previous file of
// the same name, then records the uploader. Directory components in
// filename are stripped, so the destination is always a direct child of
// the department root.
//
// The ownership change to the uploader's uid is best-effort, as is the
// .owner attribution file; neither affects the returned outcome. A src
// that ends early returns the byte count written so far and
// ErrShortTransfer, leaving the partial destination file in place.
func (d *DiskStore) Write(dept identity.Department, filename string, src io.Reader, declared uint32, owner identity.Identity) (int64, error) {
	root, ok := d.roots[dept]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDepartment, dept)
	}

	base, err := baseName(filename)
	if err != nil {
		return 0, err
	}
	dest := filepath.Join(root, base)

	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, copyChunkSize)
	written, copyErr := io.CopyBuffer(f, io.LimitReader(src, int64(declared)), buf)
	if closeErr := f.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return written, copyErr
	}
	if written != int64(declared) {
		return written, fmt.Errorf("%w: wrote %d of %d bytes", ErrShortTransfer, written, declared)
	}

	// Ownership attribution is advisory: the server process usually lacks
	// the privilege to chown, and the transfer is complete either way.
	if err := os.Chown(dest, owner.UID, -1); err != nil {
		d.log.Warn("could not set file ownership", map[string]any{
			"path": dest,
			"uid":  owner.UID,
			"err":  err.Error(),
		})
	}

	if err := os.WriteFile(dest+".owner", []byte(owner.Username), 0o666); err != nil {
		d.log.Debug("could not write attribution record", map[string]any{
			"path": dest + ".owner",
			"err":  err.Error(),
		})
	}

	return written, nil
}
