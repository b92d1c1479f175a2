package identity

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FilesStore reads host accounts from passwd(5)- and group(5)-format files.
// This is the direct rendition of the original getpwnam/getgrnam lookups:
// the files are re-read on every query and treated as an external,
// already-consistent data source, so no locking or caching is applied.
//
// The paths are injectable for tests; the zero value is not usable, use
// NewFilesStore.
type FilesStore struct {
	PasswdPath string
	GroupPath  string
}

// NewFilesStore returns a store reading the system databases at
// /etc/passwd and /etc/group.
func NewFilesStore() *FilesStore {
	return &FilesStore{
		PasswdPath: "/etc/passwd",
		GroupPath:  "/etc/group",
	}
}

// LookupUser scans the passwd file for username.
func (s *FilesStore) LookupUser(username string) (User, error) {
	var found User
	ok, err := scanColonFile(s.PasswdPath, func(fields []string) (bool, error) {
		// name:passwd:uid:gid:gecos:dir:shell
		if len(fields) < 4 || fields[0] != username {
			return false, nil
		}
		uid, err := strconv.Atoi(fields[2])
		if err != nil {
			return false, fmt.Errorf("identity: malformed uid for %q: %w", username, err)
		}
		gid, err := strconv.Atoi(fields[3])
		if err != nil {
			return false, fmt.Errorf("identity: malformed gid for %q: %w", username, err)
		}
		found = User{Name: username, UID: uid, GID: gid}
		return true, nil
	})
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrUserNotFound
	}
	return found, nil
}

// IsMember checks the group's explicit member list first, then falls back
// to comparing the group's gid with the account's primary gid. A group
// that does not exist yields false, matching the original behavior.
func (s *FilesStore) IsMember(username, group string) (bool, error) {
	gid, members, ok, err := s.lookupGroup(group)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	for _, m := range members {
		if m == username {
			return true, nil
		}
	}

	u, err := s.LookupUser(username)
	if err != nil {
		if err == ErrUserNotFound {
			return false, nil
		}
		return false, err
	}
	return u.GID == gid, nil
}

func (s *FilesStore) lookupGroup(group string) (gid int, members []string, ok bool, err error) {
	ok, err = scanColonFile(s.GroupPath, func(fields []string) (bool, error) {
		// name:passwd:gid:member,member,...
		if len(fields) < 3 || fields[0] != group {
			return false, nil
		}
		g, err := strconv.Atoi(fields[2])
		if err != nil {
			return false, fmt.Errorf("identity: malformed gid for group %q: %w", group, err)
		}
		gid = g
		if len(fields) >= 4 && fields[3] != "" {
			members = strings.Split(fields[3], ",")
		}
		return true, nil
	})
	return gid, members, ok, err
}

// scanColonFile walks a colon-separated database line by line, invoking
// match with the split fields until it reports a hit. Blank lines and
// comments are skipped.
func scanColonFile(path string, match func(fields []string) (bool, error)) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hit, err := match(strings.Split(line, ":"))
		if err != nil {
			return false, err
		}
		if hit {
			return true, nil
		}
	}
	return false, sc.Err()
}
