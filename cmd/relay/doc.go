// Command relay runs the untrusted store-and-forward relay.
//
// It forwards framed records between announced clients, queues messages for
// offline targets, and pushes the peer roster on membership change. It holds
// no keys and can read nothing but routing envelopes.
package main
