// config.go - Server configuration and fail-fast startup validation.
package server

import (
	"fmt"
	"os"
	"strings"
	"time"

	"dept-file-transfer/internal/identity"
)

// Config carries everything the transfer server needs. The identity store
// is injected so production can choose the passwd/group files or the
// directory database while tests substitute a fake.
type Config struct {
	// Addr is the TCP listen address, e.g. ":8080".
	Addr string

	// Root is the storage root containing the two department directories.
	// The directories themselves are provisioned externally (or by the
	// server binary's bootstrap); the core only writes into them.
	Root string

	// Store resolves usernames to host accounts and group memberships.
	Store identity.Store

	// IOTimeout, when positive, bounds every read and write on a session
	// connection; each completed operation pushes the deadline forward.
	// Zero disables deadlines, preserving the original blocking behavior.
	IOTimeout time.Duration

	// Logger receives all server events. Nil silences logging.
	Logger *Logger
}

// ConfigValidationError describes one rejected configuration field.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate checks the configuration before the listener starts so that
// misconfiguration fails at boot with a clear message rather than on the
// first upload.
func (c Config) Validate() error {
	var errs []ConfigValidationError
	add := func(field, message string) {
		errs = append(errs, ConfigValidationError{Field: field, Message: message})
	}

	if c.Addr == "" {
		add("Addr", "listen address must not be empty")
	}
	if c.Root == "" {
		add("Root", "storage root must not be empty")
	} else if fi, err := os.Stat(c.Root); err != nil {
		add("Root", fmt.Sprintf("storage root not accessible: %v", err))
	} else if !fi.IsDir() {
		add("Root", "storage root is not a directory")
	}
	if c.Store == nil {
		add("Store", "identity store must be set")
	}
	if c.IOTimeout < 0 {
		add("IOTimeout", "timeout must not be negative")
	}

	if len(errs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d error(s):", len(errs)))
	for _, e := range errs {
		sb.WriteString(" " + e.Error() + ";")
	}
	return fmt.Errorf("%s", strings.TrimSuffix(sb.String(), ";"))
}
