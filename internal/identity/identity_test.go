package identity

import (
	"errors"
	"testing"
)

// fakeStore is an in-memory Store for resolver tests.
type fakeStore struct {
	users  map[string]User
	groups map[string]fakeGroup
}

type fakeGroup struct {
	gid     int
	members []string
}

func (f *fakeStore) LookupUser(username string) (User, error) {
	u, ok := f.users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) IsMember(username, group string) (bool, error) {
	g, ok := f.groups[group]
	if !ok {
		return false, nil
	}
	for _, m := range g.members {
		if m == username {
			return true, nil
		}
	}
	u, ok := f.users[username]
	return ok && u.GID == g.gid, nil
}

func testStore() *fakeStore {
	return &fakeStore{
		users: map[string]User{
			"mfg1":  {Name: "mfg1", UID: 1001, GID: 2001},
			"dist1": {Name: "dist1", UID: 1002, GID: 2002},
			"both":  {Name: "both", UID: 1003, GID: 2001},
			"plain": {Name: "plain", UID: 1004, GID: 100},
		},
		groups: map[string]fakeGroup{
			"Manufacturing": {gid: 2001, members: []string{"mfg1"}},
			"Distribution":  {gid: 2002, members: []string{"dist1", "both"}},
		},
	}
}

func TestResolveUnknownUser(t *testing.T) {
	_, err := Resolve(testStore(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestResolveSingleGroup(t *testing.T) {
	cases := []struct {
		username string
		want     Department
	}{
		{"mfg1", Manufacturing},
		{"dist1", Distribution},
	}
	for _, tc := range cases {
		id, err := Resolve(testStore(), tc.username)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", tc.username, err)
		}
		if id.Department != tc.want {
			t.Errorf("Resolve(%q) department = %s, want %s", tc.username, id.Department, tc.want)
		}
	}
}

func TestResolveBothGroupsPrefersManufacturing(t *testing.T) {
	// "both" is an explicit Distribution member whose primary group is
	// Manufacturing's gid; precedence must still pick Manufacturing.
	for i := 0; i < 10; i++ {
		id, err := Resolve(testStore(), "both")
		if err != nil {
			t.Fatalf("Resolve error: %v", err)
		}
		if id.Department != Manufacturing {
			t.Fatalf("tie-break resolved to %s, want Manufacturing", id.Department)
		}
	}
}

func TestResolveNoGroupMembership(t *testing.T) {
	_, err := Resolve(testStore(), "plain")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestResolveCarriesAccountIDs(t *testing.T) {
	id, err := Resolve(testStore(), "mfg1")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if id.Username != "mfg1" || id.UID != 1001 || id.GID != 2001 {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestDepartmentValid(t *testing.T) {
	if !Manufacturing.Valid() || !Distribution.Valid() {
		t.Fatal("fixed departments must be valid")
	}
	if Department("Shipping").Valid() {
		t.Fatal("unknown department must not be valid")
	}
}
