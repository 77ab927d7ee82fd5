package relay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire directives. The first line of every record selects its dispatch.
const (
	// DirectiveHello announces a client to the relay after connecting.
	DirectiveHello = "hello"
	// DirectiveSend carries an outbound encrypted message to the relay.
	DirectiveSend = "send"
	// DirectiveMessage carries an inbound encrypted message from the relay.
	DirectiveMessage = "message"
	// DirectiveUsers carries the relay's known-peer roster.
	DirectiveUsers = "users"
)

// ErrUnknownDirective is returned for a record whose directive token is not
// part of the protocol.
var ErrUnknownDirective = errors.New("unknown wire directive")

// Peer is one entry of the relay roster: the public identifier and nickname a
// client announced with. It carries no key material.
type Peer struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// encodeRecord frames a directive and its JSON payload as one wire record.
func encodeRecord(directive string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", directive, err)
	}
	rec := make([]byte, 0, len(directive)+len(body)+2)
	rec = append(rec, directive...)
	rec = append(rec, '\n')
	rec = append(rec, body...)
	rec = append(rec, '\n')
	return rec, nil
}
