package ustar

import (
	"bytes"
	"strconv"
	"testing"
)

func TestWriteHeaderChecksumAndMagic(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf)
	if err := tw.WriteHeader(&Header{Name: "foo.txt", Mode: 0o644, Size: 0, Typeflag: TypeRegular}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	header := buf.Bytes()[:blockSize]

	if got := string(header[257:263]); got != "ustar\x00" {
		t.Errorf("magic = %q, want %q", got, "ustar\x00")
	}
	if got := string(header[263:265]); got != "00" {
		t.Errorf("version = %q, want %q", got, "00")
	}
	if header[156] != '0' {
		t.Errorf("typeflag = %q, want '0'", header[156])
	}

	recorded, err := strconv.ParseUint(string(bytes.TrimRight(header[148:154], "\x00 ")), 8, 32)
	if err != nil {
		t.Fatalf("parse checksum: %v", err)
	}
	if uint32(recorded) != checksum(header) {
		t.Errorf("recorded checksum %d != recomputed %d", recorded, checksum(header))
	}
}

func TestNumericFieldTerminators(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf)
	hdr := &Header{
		Name: "foo.txt", Mode: 0o644, Size: 42, Mtime: 1234,
		Typeflag: TypeRegular, Devmajor: 1, Devminor: 2,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	header := buf.Bytes()[:blockSize]

	// mode/uid/gid/devmajor/devminor are NUL-terminated.
	if got := header[107]; got != 0 {
		t.Errorf("mode terminator = %q, want NUL", got)
	}
	if got := header[115]; got != 0 {
		t.Errorf("uid terminator = %q, want NUL", got)
	}
	if got := header[123]; got != 0 {
		t.Errorf("gid terminator = %q, want NUL", got)
	}
	if got := header[336]; got != 0 {
		t.Errorf("devmajor terminator = %q, want NUL", got)
	}
	if got := header[344]; got != 0 {
		t.Errorf("devminor terminator = %q, want NUL", got)
	}

	// size/mtime are space-terminated.
	if got := header[135]; got != ' ' {
		t.Errorf("size terminator = %q, want space", got)
	}
	if got := header[147]; got != ' ' {
		t.Errorf("mtime terminator = %q, want space", got)
	}
}

func TestDirectoryNameGetsTrailingSlash(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf)
	if err := tw.WriteHeader(&Header{Name: "sub", Typeflag: TypeDirectory}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	header := buf.Bytes()[:blockSize]
	name := string(bytes.TrimRight(header[0:100], "\x00"))
	if name != "sub/" {
		t.Errorf("name = %q, want %q", name, "sub/")
	}
}

func TestWriteBodyPadsToBlockBoundary(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf)
	body := []byte("hello world")
	if err := tw.WriteHeader(&Header{Name: "f", Size: int64(len(body)), Typeflag: TypeRegular}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if _, err := tw.Write(body); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len()%blockSize != 0 {
		t.Errorf("buf.Len() = %d, not a multiple of %d", buf.Len(), blockSize)
	}
}

func TestClosePadsTo4096(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf)
	if err := tw.WriteHeader(&Header{Name: "f", Typeflag: TypeRegular}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.Len()%paddingMul != 0 {
		t.Errorf("buf.Len() = %d, not a multiple of %d", buf.Len(), paddingMul)
	}
}

func TestModeForMapping(t *testing.T) {
	cases := []struct {
		mode uint32
		want Typeflag
	}{
		{0100644, TypeRegular},
		{0120000 | 0777, TypeSymlink},
		{0020000 | 0644, TypeCharDevice},
		{0060000 | 0644, TypeBlockDevice},
		{0040000 | 0755, TypeDirectory},
		{0010000 | 0644, TypeFIFO},
	}
	for _, c := range cases {
		if got := ModeFor(c.mode); got != c.want {
			t.Errorf("ModeFor(%o) = %c, want %c", c.mode, got, c.want)
		}
	}
}
