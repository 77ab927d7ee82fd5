package relay_test

import (
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/identity"
	"parley/internal/relay"
)

const testKeyBits = 1024

var (
	pairOnce sync.Once
	aliceRef *identity.User
	bobRef   *identity.User
)

// testPair returns two users that know each other, regenerated per test from
// one slow key-generation run.
func testPair(t *testing.T) (*identity.User, *identity.User) {
	t.Helper()
	pairOnce.Do(func() {
		var err error
		if aliceRef, err = identity.NewUserWithKeySize("alice", testKeyBits); err != nil {
			t.Fatalf("new user: %v", err)
		}
		if bobRef, err = identity.NewUserWithKeySize("bob", testKeyBits); err != nil {
			t.Fatalf("new user: %v", err)
		}
	})
	alice := reload(t, aliceRef)
	bob := reload(t, bobRef)

	bobPub, err := bob.ToFriend()
	require.NoError(t, err)
	require.NoError(t, alice.AddFriend(bobPub))
	alicePub, err := alice.ToFriend()
	require.NoError(t, err)
	require.NoError(t, bob.AddFriend(alicePub))
	return alice, bob
}

func reload(t *testing.T, u *identity.User) *identity.User {
	t.Helper()
	raw, err := json.Marshal(u)
	require.NoError(t, err)
	var out identity.User
	require.NoError(t, json.Unmarshal(raw, &out))
	return &out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// recordReader drains one side of a pipe into complete records.
type recordReader struct {
	conn  net.Conn
	lines chan string
}

func newRecordReader(conn net.Conn) *recordReader {
	r := &recordReader{conn: conn, lines: make(chan string, 64)}
	go func() {
		defer close(r.lines)
		var f relay.Framer
		buf := make([]byte, 1024)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				f.Feed(buf[:n])
				for {
					line, ok := f.Next()
					if !ok {
						break
					}
					r.lines <- line
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return r
}

func (r *recordReader) next(t *testing.T) string {
	t.Helper()
	select {
	case line, ok := <-r.lines:
		require.True(t, ok, "connection closed before expected record")
		return line
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for record")
		return ""
	}
}

func startClient(t *testing.T, user *identity.User, opts relay.Options) (*relay.Client, *identity.LockedUser, net.Conn, *recordReader) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 50 * time.Millisecond
	}
	clientSide, relaySide := net.Pipe()
	reader := newRecordReader(relaySide)

	locked := identity.NewLockedUser(user)
	c := relay.NewClient(clientSide, locked, opts)
	require.NoError(t, c.Start())

	// Every session opens with a hello announcing the client.
	assert.Equal(t, relay.DirectiveHello, reader.next(t))
	var hello relay.Peer
	require.NoError(t, json.Unmarshal([]byte(reader.next(t)), &hello))
	assert.Equal(t, user.ID, hello.ID)
	assert.Equal(t, user.Nickname, hello.Nickname)

	return c, locked, relaySide, reader
}

// friendHistory snapshots one friend's messages under the user lock. Once a
// client is running, the bare *User belongs to the sync loop and every test
// read has to go through the guard.
func friendHistory(locked *identity.LockedUser, friendID string) []identity.Message {
	var msgs []identity.Message
	_ = locked.With(func(u *identity.User) error {
		if friend, ok := u.Friend(friendID); ok {
			msgs = friend.Messages()
		}
		return nil
	})
	return msgs
}

func TestClient_OutboundFraming(t *testing.T) {
	alice, bob := testPair(t)

	c, locked, _, reader := startClient(t, alice, relay.Options{})
	defer c.Close()

	em, err := locked.CreateMessage(bob.ID, "over the wire")
	require.NoError(t, err)
	c.Enqueue(em)

	assert.Equal(t, relay.DirectiveSend, reader.next(t))
	var sent identity.EncryptedMessage
	require.NoError(t, json.Unmarshal([]byte(reader.next(t)), &sent))
	assert.Equal(t, em.ID, sent.ID)
	assert.Equal(t, em.EncContent, sent.EncContent)
	assert.Equal(t, em.Sig, sent.Sig)
}

func TestClient_InboundMessageApplied(t *testing.T) {
	alice, bob := testPair(t)

	em, err := alice.CreateMessage(bob.ID, "delivered")
	require.NoError(t, err)

	c, locked, relaySide, _ := startClient(t, bob, relay.Options{})
	defer c.Close()

	payload, err := json.Marshal(em)
	require.NoError(t, err)
	_, err = relaySide.Write(append(append([]byte("message\n"), payload...), '\n'))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(friendHistory(locked, alice.ID)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, "delivered", friendHistory(locked, alice.ID)[0].Content)
}

func TestClient_InboundSplitAcrossReads(t *testing.T) {
	alice, bob := testPair(t)

	em, err := alice.CreateMessage(bob.ID, "in pieces")
	require.NoError(t, err)

	c, locked, relaySide, _ := startClient(t, bob, relay.Options{})
	defer c.Close()

	payload, err := json.Marshal(em)
	require.NoError(t, err)
	frame := append(append([]byte("message\n"), payload...), '\n')

	// Dribble the frame a few bytes at a time across many reads.
	for i := 0; i < len(frame); i += 7 {
		end := i + 7
		if end > len(frame) {
			end = len(frame)
		}
		_, err = relaySide.Write(frame[i:end])
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return len(friendHistory(locked, alice.ID)) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestClient_RejectedMessageDoesNotKillLoop(t *testing.T) {
	alice, bob := testPair(t)

	em, err := alice.CreateMessage(bob.ID, "tampered")
	require.NoError(t, err)
	em.Sig = em.EncContent // guaranteed mismatch

	c, locked, relaySide, _ := startClient(t, bob, relay.Options{})
	defer c.Close()

	payload, err := json.Marshal(em)
	require.NoError(t, err)
	_, err = relaySide.Write(append(append([]byte("message\n"), payload...), '\n'))
	require.NoError(t, err)

	// A good message after the bad one still lands: the loop survived.
	good, err := alice.CreateMessage(bob.ID, "still alive")
	require.NoError(t, err)
	payload, err = json.Marshal(good)
	require.NoError(t, err)
	_, err = relaySide.Write(append(append([]byte("message\n"), payload...), '\n'))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(friendHistory(locked, alice.ID)) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "still alive", friendHistory(locked, alice.ID)[0].Content)
}

func TestClient_RosterCallback(t *testing.T) {
	_, bob := testPair(t)

	rosters := make(chan []relay.Peer, 1)
	c, _, relaySide, _ := startClient(t, bob, relay.Options{
		OnRoster: func(peers []relay.Peer) { rosters <- peers },
	})
	defer c.Close()

	_, err := relaySide.Write([]byte(`users` + "\n" + `[{"id":"u1","nickname":"x"},{"id":"u2","nickname":"y"}]` + "\n"))
	require.NoError(t, err)

	select {
	case peers := <-rosters:
		require.Len(t, peers, 2)
		assert.Equal(t, "u1", peers[0].ID)
	case <-time.After(5 * time.Second):
		t.Fatal("roster callback never fired")
	}
}

func TestClient_UnknownDirectiveTerminatesLoop(t *testing.T) {
	_, bob := testPair(t)

	c, _, relaySide, _ := startClient(t, bob, relay.Options{})

	_, err := relaySide.Write([]byte("bogus\n"))
	require.NoError(t, err)

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not terminate")
	}
	assert.ErrorIs(t, c.Err(), relay.ErrUnknownDirective)
}

func TestClient_CleanShutdownOnQueueClose(t *testing.T) {
	_, bob := testPair(t)

	c, _, _, _ := startClient(t, bob, relay.Options{})

	require.NoError(t, c.Close())
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not terminate")
	}
	assert.NoError(t, c.Err())
}
