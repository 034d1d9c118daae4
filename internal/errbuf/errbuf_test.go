package errbuf

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteFits(t *testing.T) {
	buf := make([]byte, 32)
	n := Write(buf, "bad magnet")
	if n != len("bad magnet") {
		t.Fatalf("n = %d", n)
	}
	if got := string(buf[:n]); got != "bad magnet" {
		t.Fatalf("buf = %q", got)
	}
	if buf[n] != 0 {
		t.Fatalf("missing terminator at %d", n)
	}
}

func TestWriteTruncates(t *testing.T) {
	// A 16-byte buffer holds at most 15 message bytes plus the terminator.
	buf := make([]byte, 16)
	msg := "this message is far longer than the buffer"
	n := Write(buf, msg)
	if n != 15 {
		t.Fatalf("n = %d, want 15", n)
	}
	if got := string(buf[:n]); got != msg[:15] {
		t.Fatalf("buf = %q", got)
	}
	if buf[15] != 0 {
		t.Fatal("missing terminator at 15")
	}
}

func TestWriteZeroLength(t *testing.T) {
	if n := Write(nil, "anything"); n != 0 {
		t.Fatalf("n = %d", n)
	}
	if n := Write([]byte{}, "anything"); n != 0 {
		t.Fatalf("n = %d", n)
	}
}

func TestWriteSingleByte(t *testing.T) {
	buf := []byte{0xff}
	n := Write(buf, "x")
	if n != 0 {
		t.Fatalf("n = %d", n)
	}
	if buf[0] != 0 {
		t.Fatal("terminator not written")
	}
}

func TestWriteEmptyMessageFallback(t *testing.T) {
	buf := make([]byte, 64)
	n := Write(buf, "")
	if got := string(buf[:n]); got != Fallback {
		t.Fatalf("buf = %q, want %q", got, Fallback)
	}
	if buf[n] != 0 {
		t.Fatal("missing terminator")
	}
}

func TestWriteFallbackTruncated(t *testing.T) {
	buf := make([]byte, 8)
	n := Write(buf, "")
	if n != 7 {
		t.Fatalf("n = %d, want 7", n)
	}
	if got := string(buf[:n]); got != Fallback[:7] {
		t.Fatalf("buf = %q", got)
	}
}

func TestWriteNeverSplitsRune(t *testing.T) {
	// "héllo" is h(1) é(2) l l o: cutting at byte 2 lands inside é.
	buf := make([]byte, 3)
	n := Write(buf, "héllo")
	if n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
	if got := string(buf[:n]); got != "h" {
		t.Fatalf("buf = %q", got)
	}
	if buf[1] != 0 {
		t.Fatal("missing terminator")
	}
}

func TestWriteDoesNotClobberTail(t *testing.T) {
	buf := bytes.Repeat([]byte{0xaa}, 16)
	n := Write(buf, "hi")
	if got := string(buf[:n]); got != "hi" {
		t.Fatalf("buf = %q", got)
	}
	if buf[n] != 0 {
		t.Fatal("missing terminator")
	}
	for i := n + 1; i < len(buf); i++ {
		if buf[i] != 0xaa {
			t.Fatalf("byte %d clobbered: %#x", i, buf[i])
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		max  int
		want string
	}{
		{"fits", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"cut", "abcdef", 5, "abcde"},
		{"zero", "abc", 0, ""},
		{"negative", "abc", -1, ""},
		{"rune boundary", "héllo", 2, "h"},
		{"rune fits", "héllo", 3, "hé"},
		{"long ascii", strings.Repeat("x", 100), 10, strings.Repeat("x", 10)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Truncate(c.msg, c.max); got != c.want {
				t.Fatalf("Truncate(%q, %d) = %q, want %q", c.msg, c.max, got, c.want)
			}
		})
	}
}
