package commands

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/identity"
	"parley/internal/relay"
)

// The chat loop must notice a dead sync loop even while stdin stays silent.
func TestChatLoop_ReturnsWhenSyncLoopDies(t *testing.T) {
	user, err := identity.NewUserWithKeySize("alice", 1024)
	require.NoError(t, err)
	locked := identity.NewLockedUser(user)

	clientSide, relaySide := net.Pipe()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	client := relay.NewClient(clientSide, locked, relay.Options{
		ReadTimeout: 50 * time.Millisecond,
		Logger:      logger,
	})
	// Swallow the opening hello, then violate the protocol to kill the loop.
	go func() {
		buf := make([]byte, 1024)
		if _, err := relaySide.Read(buf); err != nil {
			return
		}
		relaySide.Write([]byte("bogus\n"))
	}()
	require.NoError(t, client.Start())

	neverTyped, _ := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- chatLoop(neverTyped, locked, client) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, relay.ErrUnknownDirective)
	case <-time.After(5 * time.Second):
		t.Fatal("chat loop did not notice the dead connection")
	}
}

// A /quit line ends the loop cleanly without touching the connection error.
func TestChatLoop_QuitCommand(t *testing.T) {
	user, err := identity.NewUserWithKeySize("alice", 1024)
	require.NoError(t, err)
	locked := identity.NewLockedUser(user)

	clientSide, relaySide := net.Pipe()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	client := relay.NewClient(clientSide, locked, relay.Options{
		ReadTimeout: 50 * time.Millisecond,
		Logger:      logger,
	})
	go func() {
		buf := make([]byte, 1024)
		for {
			if _, err := relaySide.Read(buf); err != nil {
				return
			}
		}
	}()
	require.NoError(t, client.Start())
	defer client.Close()

	input, typed := io.Pipe()
	go func() {
		typed.Write([]byte("/quit\n"))
		typed.Close()
	}()

	done := make(chan error, 1)
	go func() { done <- chatLoop(input, locked, client) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("chat loop did not return on /quit")
	}
}
