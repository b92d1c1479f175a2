// Package identity resolves an uploader's username to a host account and
// one of the two department authorization scopes. The account and group
// databases are injected behind the Store interface so the server can run
// against the host's passwd/group files, a directory database, or a fake
// in tests.
package identity

import (
	"errors"
	"fmt"
)

// Department is one of the two fixed authorization scopes. The values are
// also the literal group names checked on the host and the directory names
// under the storage root.
type Department string

const (
	Manufacturing Department = "Manufacturing"
	Distribution  Department = "Distribution"
)

// Departments lists the fixed scopes in precedence order: an account that
// belongs to both groups resolves to the first entry. The precedence is a
// documented arbitrary choice carried over from the original system, not a
// negotiated policy.
var Departments = [2]Department{Manufacturing, Distribution}

// Valid reports whether d names one of the two fixed departments.
func (d Department) Valid() bool {
	return d == Manufacturing || d == Distribution
}

// User is a host account: name plus numeric user and primary group ids.
type User struct {
	Name string
	UID  int
	GID  int
}

// Identity is the resolved {user, department} pair established once per
// session. It is session-local and never shared across connections.
type Identity struct {
	Username   string
	UID        int
	GID        int
	Department Department
}

var (
	// ErrUserNotFound means no host account exists for the username.
	ErrUserNotFound = errors.New("identity: user not found")
	// ErrNotAuthorized means the account is in neither department group.
	ErrNotAuthorized = errors.New("identity: user not in any department group")
)

// Store is the injected account/group database capability. Implementations
// are read-only and must be safe for concurrent use.
type Store interface {
	// LookupUser returns the host account for username, or ErrUserNotFound.
	LookupUser(username string) (User, error)

	// IsMember reports whether username belongs to the named group, by
	// either of two independent tests: the username appears in the group's
	// explicit member list, or the group is the account's primary group.
	IsMember(username, group string) (bool, error)
}

// Resolve authenticates username against the store and pins its department.
// Password content plays no part here: authentication is defined solely as
// "a host account with this name exists and is in a department group".
//
// Membership in both groups resolves to Manufacturing, per the precedence
// documented on Departments.
func Resolve(store Store, username string) (Identity, error) {
	u, err := store.LookupUser(username)
	if err != nil {
		return Identity{}, err
	}

	for _, dept := range Departments {
		member, err := store.IsMember(username, string(dept))
		if err != nil {
			return Identity{}, fmt.Errorf("identity: membership check for %q: %w", dept, err)
		}
		if member {
			return Identity{
				Username:   u.Name,
				UID:        u.UID,
				GID:        u.GID,
				Department: dept,
			}, nil
		}
	}
	return Identity{}, ErrNotAuthorized
}
