package relay_test

import (
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/identity"
	"parley/internal/relay"
)

// hubConn is one fake client talking to a Hub over a pipe.
type hubConn struct {
	conn   net.Conn
	reader *recordReader
}

func connectPeer(t *testing.T, h *relay.Hub, p relay.Peer) *hubConn {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	go h.HandleConn(serverSide)

	hc := &hubConn{conn: clientSide, reader: newRecordReader(clientSide)}
	hc.write(t, relay.DirectiveHello, p)
	return hc
}

func (hc *hubConn) write(t *testing.T, directive string, payload any) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	_, err = fmt.Fprintf(hc.conn, "%s\n%s\n", directive, body)
	require.NoError(t, err)
}

// expectRoster consumes records until a users record arrives, skipping
// forwarded messages, and returns the roster.
func (hc *hubConn) expectRoster(t *testing.T) []relay.Peer {
	t.Helper()
	for {
		directive := hc.reader.next(t)
		payload := hc.reader.next(t)
		if directive != relay.DirectiveUsers {
			continue
		}
		var roster []relay.Peer
		require.NoError(t, json.Unmarshal([]byte(payload), &roster))
		return roster
	}
}

// expectMessage consumes records until a message record arrives.
func (hc *hubConn) expectMessage(t *testing.T) identity.EncryptedMessage {
	t.Helper()
	for {
		directive := hc.reader.next(t)
		payload := hc.reader.next(t)
		if directive != relay.DirectiveMessage {
			continue
		}
		var em identity.EncryptedMessage
		require.NoError(t, json.Unmarshal([]byte(payload), &em))
		return em
	}
}

func TestHub_RosterOnJoin(t *testing.T) {
	h := relay.NewHub(quietLogger())

	a := connectPeer(t, h, relay.Peer{ID: "a", Nickname: "alice"})
	defer a.conn.Close()
	roster := a.expectRoster(t)
	require.Len(t, roster, 1)
	assert.Equal(t, "a", roster[0].ID)

	b := connectPeer(t, h, relay.Peer{ID: "b", Nickname: "bob"})
	defer b.conn.Close()

	// Both see the two-peer roster, sorted by id.
	roster = b.expectRoster(t)
	require.Len(t, roster, 1+1)
	assert.Equal(t, []relay.Peer{
		{ID: "a", Nickname: "alice"},
		{ID: "b", Nickname: "bob"},
	}, roster)
	roster = a.expectRoster(t)
	require.Len(t, roster, 2)
}

func TestHub_ForwardToOnlineTarget(t *testing.T) {
	h := relay.NewHub(quietLogger())

	a := connectPeer(t, h, relay.Peer{ID: "a", Nickname: "alice"})
	defer a.conn.Close()
	b := connectPeer(t, h, relay.Peer{ID: "b", Nickname: "bob"})
	defer b.conn.Close()

	em := identity.EncryptedMessage{
		ID:         "m1",
		SourceID:   "a",
		TargetID:   "b",
		EncContent: "b3BhcXVl",
		CreatedAt:  time.Now().Unix(),
		Sig:        "c2ln",
	}
	a.write(t, relay.DirectiveSend, em)

	got := b.expectMessage(t)
	assert.Equal(t, em, got)
}

func TestHub_QueuesForOfflineTarget(t *testing.T) {
	h := relay.NewHub(quietLogger())

	a := connectPeer(t, h, relay.Peer{ID: "a", Nickname: "alice"})
	defer a.conn.Close()

	em := identity.EncryptedMessage{ID: "m1", SourceID: "a", TargetID: "c"}
	a.write(t, relay.DirectiveSend, em)

	// The target connects later and receives the backlog before anything else.
	c := connectPeer(t, h, relay.Peer{ID: "c", Nickname: "carol"})
	defer c.conn.Close()
	got := c.expectMessage(t)
	assert.Equal(t, "m1", got.ID)
}

func TestHub_SendBeforeHelloDropsConnection(t *testing.T) {
	h := relay.NewHub(quietLogger())

	clientSide, serverSide := net.Pipe()
	go h.HandleConn(serverSide)
	defer clientSide.Close()

	em := identity.EncryptedMessage{ID: "m1", TargetID: "b"}
	body, err := json.Marshal(em)
	require.NoError(t, err)
	_, err = fmt.Fprintf(clientSide, "%s\n%s\n", relay.DirectiveSend, body)
	require.NoError(t, err)

	// The hub closes the connection on the protocol violation.
	buf := make([]byte, 1)
	require.NoError(t, clientSide.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = clientSide.Read(buf)
	assert.Error(t, err)
}

func TestHub_UnknownDirectiveDropsConnection(t *testing.T) {
	h := relay.NewHub(quietLogger())

	a := connectPeer(t, h, relay.Peer{ID: "a", Nickname: "alice"})
	defer a.conn.Close()
	_ = a.expectRoster(t)

	_, err := a.conn.Write([]byte("bogus\n{}\n"))
	require.NoError(t, err)

	// Connection is torn down; the reader drains to EOF.
	select {
	case _, ok := <-a.reader.lines:
		if ok {
			// A roster push may still be in flight; drain the rest.
			for range a.reader.lines {
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not drop the connection")
	}
}
