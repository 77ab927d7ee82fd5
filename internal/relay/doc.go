// Package relay implements parley's transport synchronization loop and the
// relay server core.
//
// The relay is an untrusted intermediary: it forwards opaque framed records
// between peers and buffers them for offline targets. It never sees a private
// key or a plaintext.
//
// Wire protocol: newline-delimited text records, each a directive line
// followed by one JSON payload line.
//
//	client -> relay:  hello\n{peer}        once, after connect
//	                  send\n{encrypted message}
//	relay -> client:  message\n{encrypted message}
//	                  users\n[{peer}, ...]
//
// Client owns one connection and bridges two directions: it drains an
// outbound queue onto the wire and demultiplexes inbound records back into
// the identity layer. Framer makes the inbound side robust against partial
// and coalesced reads. Hub is the server side, used by cmd/relay.
package relay
