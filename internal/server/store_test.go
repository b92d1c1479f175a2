package server

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dept-file-transfer/internal/identity"
)

func testDisk(t *testing.T) (*DiskStore, string) {
	t.Helper()
	root := t.TempDir()
	for _, dept := range identity.Departments {
		if err := os.Mkdir(filepath.Join(root, string(dept)), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return NewDiskStore(root, NewLogger(io.Discard, LogLevelError, false)), root
}

var testOwner = identity.Identity{
	Username:   "mfg1",
	UID:        os.Getuid(),
	GID:        os.Getgid(),
	Department: identity.Manufacturing,
}

func TestWriteStoresExactContent(t *testing.T) {
	disk, root := testDisk(t)
	content := []byte("ABCDE")

	n, err := disk.Write(identity.Manufacturing, "a.txt", bytes.NewReader(content), 5, testOwner)
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != 5 {
		t.Fatalf("Write = %d bytes, want 5", n)
	}

	got, err := os.ReadFile(filepath.Join(root, "Manufacturing", "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("stored content %q, want %q", got, content)
	}

	owner, err := os.ReadFile(filepath.Join(root, "Manufacturing", "a.txt.owner"))
	if err != nil {
		t.Fatal(err)
	}
	if string(owner) != "mfg1" {
		t.Fatalf("attribution record %q, want %q", owner, "mfg1")
	}
}

func TestWriteStripsDirectoryComponents(t *testing.T) {
	disk, root := testDisk(t)

	_, err := disk.Write(identity.Distribution, "../../etc/passwd.txt", strings.NewReader("x"), 1, testOwner)
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "Distribution", "passwd.txt")); err != nil {
		t.Fatalf("destination not a direct child of the department root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "..", "etc", "passwd.txt")); !os.IsNotExist(err) {
		t.Fatal("path traversal escaped the department root")
	}
}

func TestWriteOverwritesExisting(t *testing.T) {
	disk, root := testDisk(t)
	dest := filepath.Join(root, "Manufacturing", "a.txt")
	if err := os.WriteFile(dest, []byte("old longer content"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := disk.Write(identity.Manufacturing, "a.txt", strings.NewReader("new"), 3, testOwner); err != nil {
		t.Fatal(err)
	}

	got, _ := os.ReadFile(dest)
	if string(got) != "new" {
		t.Fatalf("stored content %q, want %q (last writer wins, truncated)", got, "new")
	}
}

func TestWriteShortSourceLeavesPartialFile(t *testing.T) {
	disk, root := testDisk(t)

	n, err := disk.Write(identity.Manufacturing, "big.bin", strings.NewReader("AB"), 10, testOwner)
	if !errors.Is(err, ErrShortTransfer) {
		t.Fatalf("expected ErrShortTransfer, got %v", err)
	}
	if n != 2 {
		t.Fatalf("Write = %d bytes, want 2", n)
	}

	// Partial destination stays (no rollback), but no attribution appears.
	got, err := os.ReadFile(filepath.Join(root, "Manufacturing", "big.bin"))
	if err != nil || string(got) != "AB" {
		t.Fatalf("partial file = %q, %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(root, "Manufacturing", "big.bin.owner")); !os.IsNotExist(err) {
		t.Fatal("attribution record must not exist for an incomplete transfer")
	}
}

func TestWriteIgnoresTrailingSourceBytes(t *testing.T) {
	disk, root := testDisk(t)

	n, err := disk.Write(identity.Manufacturing, "a.txt", strings.NewReader("ABCDEFGH"), 5, testOwner)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("Write = %d bytes, want 5", n)
	}
	got, _ := os.ReadFile(filepath.Join(root, "Manufacturing", "a.txt"))
	if string(got) != "ABCDE" {
		t.Fatalf("stored content %q, want exactly the declared length", got)
	}
}

func TestWriteRejectsBadFilename(t *testing.T) {
	disk, _ := testDisk(t)
	for _, name := range []string{".", "..", "/", "dir/"} {
		if _, err := disk.Write(identity.Manufacturing, name, strings.NewReader(""), 0, testOwner); !errors.Is(err, ErrBadFilename) {
			// "dir/" reduces to "dir", which is usable; only the first
			// three must fail.
			if name == "dir/" {
				continue
			}
			t.Errorf("Write(%q) err = %v, want ErrBadFilename", name, err)
		}
	}
}

func TestWriteRejectsUnknownDepartment(t *testing.T) {
	disk, _ := testDisk(t)
	if _, err := disk.Write(identity.Department("Shipping"), "a.txt", strings.NewReader("x"), 1, testOwner); !errors.Is(err, ErrUnknownDepartment) {
		t.Fatalf("expected ErrUnknownDepartment, got %v", err)
	}
}

func TestBaseName(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"a.txt", "a.txt", true},
		{"reports/q3/a.txt", "a.txt", true},
		{"/abs/path/a.txt", "a.txt", true},
		{"..", "", false},
		{".", "", false},
		{"/", "", false},
	}
	for _, tc := range cases {
		got, err := baseName(tc.in)
		if tc.ok != (err == nil) || got != tc.want {
			t.Errorf("baseName(%q) = %q, %v; want %q, ok=%v", tc.in, got, err, tc.want, tc.ok)
		}
	}
}
