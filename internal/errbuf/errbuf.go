// Package errbuf writes error text into fixed-size, NUL-terminated buffers.
//
// Callers compose the full message first and hand it over whole; the package
// truncates exactly once while copying. A destination of length L receives at
// most L-1 message bytes followed by the terminator, so the result is always
// a valid NUL-terminated string. Truncation never splits a UTF-8 rune.
package errbuf

import "unicode/utf8"

// Fallback replaces an empty message so a failed operation never reports
// empty text.
const Fallback = "unknown error"

// Write copies msg into dst, truncated to fit with a trailing NUL byte. It
// returns the number of message bytes written, excluding the terminator.
// A zero-length dst is left untouched and reports zero.
func Write(dst []byte, msg string) int {
	if len(dst) == 0 {
		return 0
	}
	if msg == "" {
		msg = Fallback
	}
	msg = Truncate(msg, len(dst)-1)
	n := copy(dst, msg)
	dst[n] = 0
	return n
}

// Truncate returns msg cut to at most max bytes, backing off so the result
// never ends inside a multi-byte UTF-8 sequence.
func Truncate(msg string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(msg) <= max {
		return msg
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
