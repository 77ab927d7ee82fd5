package relay

import "bytes"

// Framer incrementally splits a byte stream into newline-delimited records.
//
// The transport gives no guarantee that one read yields one complete record:
// a read may end mid-record, or carry several records at once. Framer
// accumulates bytes across reads and only ever emits complete lines.
//
// Not safe for concurrent use; each connection owns one Framer.
type Framer struct {
	buf []byte
}

// Feed appends freshly read bytes to the accumulator.
func (f *Framer) Feed(p []byte) {
	f.buf = append(f.buf, p...)
}

// Next returns the next complete record without its trailing newline. The
// second result is false when no complete record is buffered yet.
func (f *Framer) Next() (string, bool) {
	i := bytes.IndexByte(f.buf, '\n')
	if i < 0 {
		return "", false
	}
	line := string(f.buf[:i])
	f.buf = f.buf[i+1:]
	return line, true
}

// Pending reports whether the accumulator holds a partial record.
func (f *Framer) Pending() bool {
	return len(f.buf) > 0
}
