package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFieldRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fields := []string{"mfg1", "secret", "Manufacturing", "reports/q3.txt"}
	for _, f := range fields {
		if err := WriteString(&buf, f); err != nil {
			t.Fatalf("WriteString(%q) error: %v", f, err)
		}
	}
	// All fields coalesced into one stream; the prefixes must separate them.
	for _, want := range fields {
		got, err := ReadString(&buf)
		if err != nil {
			t.Fatalf("ReadString error: %v", err)
		}
		if got != want {
			t.Errorf("ReadString = %q, want %q", got, want)
		}
	}
}

func TestReadFieldRejectsOversizedPrefix(t *testing.T) {
	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], MaxFieldLen+1)
	buf.Write(prefix[:])

	if _, err := ReadField(&buf); !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("expected ErrFieldTooLong, got %v", err)
	}
}

func TestWriteFieldRejectsOversized(t *testing.T) {
	err := WriteString(io.Discard, strings.Repeat("x", MaxFieldLen+1))
	if !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("expected ErrFieldTooLong, got %v", err)
	}
}

func TestReadStringRejectsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteField(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadString(&buf); !errors.Is(err, ErrEmptyField) {
		t.Fatalf("expected ErrEmptyField, got %v", err)
	}
}

func TestReadFieldShortBody(t *testing.T) {
	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], 10)
	buf.Write(prefix[:])
	buf.WriteString("short")

	if _, err := ReadField(&buf); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestFileSizeRoundTrip(t *testing.T) {
	for _, size := range []uint32{0, 1, 5, 1 << 20, 1<<32 - 1} {
		var buf bytes.Buffer
		if err := WriteFileSize(&buf, size); err != nil {
			t.Fatal(err)
		}
		if buf.Len() != 4 {
			t.Fatalf("file size field is %d bytes, want 4", buf.Len())
		}
		got, err := ReadFileSize(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if got != size {
			t.Errorf("ReadFileSize = %d, want %d", got, size)
		}
	}
}

func TestFileSizeIsBigEndian(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFileSize(&buf, 5); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0, 0, 0, 5}) {
		t.Fatalf("wire bytes = %v, want big-endian 5", buf.Bytes())
	}
}

func TestAuthResponses(t *testing.T) {
	resp := AuthSuccess("Manufacturing")
	if !strings.Contains(resp, MarkerAuthOK) {
		t.Fatalf("success response %q lacks marker", resp)
	}
	dept, ok := ParseAuthDepartment(resp)
	if !ok || dept != "Manufacturing" {
		t.Fatalf("ParseAuthDepartment = %q, %v", dept, ok)
	}

	for _, reject := range []string{RespUserNotFound, RespNotInGroups, "garbage"} {
		if _, ok := ParseAuthDepartment(reject); ok {
			t.Errorf("ParseAuthDepartment(%q) unexpectedly ok", reject)
		}
		if strings.Contains(reject, MarkerAuthOK) {
			t.Errorf("rejection %q contains success marker", reject)
		}
	}
}

func TestTransferResponses(t *testing.T) {
	resp := TransferSuccess("a.txt", "Manufacturing")
	if !strings.Contains(resp, MarkerTransferOK) {
		t.Fatalf("success response %q lacks marker", resp)
	}
	if !strings.Contains(resp, "a.txt") || !strings.Contains(resp, "Manufacturing") {
		t.Fatalf("success response %q must name file and department", resp)
	}
	if strings.Contains(AccessDenied("Distribution"), MarkerTransferOK) {
		t.Fatal("access denied response contains success marker")
	}
}
