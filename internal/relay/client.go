package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"parley/internal/identity"
)

const (
	// DefaultReadTimeout bounds each blocking read so the loop can notice a
	// drained outbound queue on an otherwise idle connection.
	DefaultReadTimeout = time.Second

	outboundBuffer = 16
	readChunk      = 4096
)

// Options tunes a Client. The zero value is usable.
type Options struct {
	// ReadTimeout bounds each transport read attempt. Defaults to
	// DefaultReadTimeout.
	ReadTimeout time.Duration
	// OnRoster, if set, receives every roster the relay pushes. The default
	// logs the roster size and drops it.
	OnRoster func([]Peer)
	// Logger overrides the process-wide logrus logger.
	Logger *logrus.Logger
}

// Client owns one relay connection and runs the synchronization loop: a
// non-blocking drain of the outbound queue interleaved with reads of whatever
// inbound records are available, multiplexed with a select rather than a
// busy poll.
type Client struct {
	conn net.Conn
	user *identity.LockedUser
	log  *logrus.Entry

	readTimeout time.Duration
	onRoster    func([]Peer)

	out   chan identity.EncryptedMessage
	lines chan string

	closeOnce sync.Once
	done      chan struct{}

	mu      sync.Mutex
	loopErr error
	readErr error
	pending string
}

// NewClient wraps an established connection. Address resolution and
// connection setup are the caller's concern; Dial is a convenience for the
// common case.
func NewClient(conn net.Conn, user *identity.LockedUser, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	timeout := opts.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	return &Client{
		conn:        conn,
		user:        user,
		log:         logger.WithField("component", "relay-client"),
		readTimeout: timeout,
		onRoster:    opts.OnRoster,
		out:         make(chan identity.EncryptedMessage, outboundBuffer),
		lines:       make(chan string),
		done:        make(chan struct{}),
	}
}

// Dial connects to a relay address and starts the sync loop.
func Dial(addr string, user *identity.LockedUser, opts Options) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	c := NewClient(conn, user, opts)
	if err := c.Start(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Start announces the client to the relay and launches the background loop.
func (c *Client) Start() error {
	hello := Peer{ID: c.user.ID(), Nickname: c.user.Nickname()}
	if err := c.writeRecord(DirectiveHello, hello); err != nil {
		return err
	}
	go c.read()
	go c.run()
	return nil
}

// Enqueue hands an outbound message to the loop. It blocks only when the
// queue buffer is full. Enqueue must not be called after Close.
func (c *Client) Enqueue(em identity.EncryptedMessage) {
	c.out <- em
}

// Close signals a clean shutdown by disconnecting the queue's sender half,
// waits for the loop to terminate, and returns the loop's error, if any.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.out) })
	<-c.done
	return c.Err()
}

// Done is closed when the loop has terminated.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns the error that terminated the loop; nil after a clean shutdown.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loopErr
}

// read owns the inbound side: it reads whatever bytes are available within
// the read timeout, feeds the framer, and forwards complete records. It
// closes the lines channel when the connection is done.
func (c *Client) read() {
	defer close(c.lines)

	var framer Framer
	buf := make([]byte, readChunk)
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			c.setReadErr(err)
			return
		}
		n, err := c.conn.Read(buf)
		if n > 0 {
			framer.Feed(buf[:n])
			for {
				line, ok := framer.Next()
				if !ok {
					break
				}
				select {
				case c.lines <- line:
				case <-c.done:
					return
				}
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				c.setReadErr(err)
			}
			return
		}
	}
}

// run is the synchronization loop. It suspends until either the queue has an
// item or the reader produced a record, and terminates when the queue's
// sender half disconnects (clean) or on a transport error (unclean).
func (c *Client) run() {
	defer close(c.done)
	defer c.conn.Close()

	for {
		select {
		case em, ok := <-c.out:
			if !ok {
				c.log.Info("outbound queue disconnected, shutting down")
				return
			}
			if err := c.writeRecord(DirectiveSend, em); err != nil {
				c.fail(err)
				return
			}
			c.log.WithFields(logrus.Fields{
				"message_id": em.ID,
				"target_id":  em.TargetID,
			}).Debug("message sent to relay")
		case line, ok := <-c.lines:
			if !ok {
				c.fail(c.takeReadErr())
				return
			}
			if err := c.dispatch(line); err != nil {
				c.fail(err)
				return
			}
		}
	}
}

// dispatch consumes one inbound line. Records span two lines, so a directive
// line arms the dispatcher and the following payload line completes it.
func (c *Client) dispatch(line string) error {
	if c.pending == "" {
		switch line {
		case DirectiveMessage, DirectiveUsers:
			c.pending = line
			return nil
		case "":
			return nil
		default:
			return fmt.Errorf("%w: %q", ErrUnknownDirective, line)
		}
	}

	directive := c.pending
	c.pending = ""
	switch directive {
	case DirectiveMessage:
		var em identity.EncryptedMessage
		if err := json.Unmarshal([]byte(line), &em); err != nil {
			return fmt.Errorf("decode message payload: %w", err)
		}
		c.apply(em)
	case DirectiveUsers:
		var roster []Peer
		if err := json.Unmarshal([]byte(line), &roster); err != nil {
			return fmt.Errorf("decode roster payload: %w", err)
		}
		if c.onRoster != nil {
			c.onRoster(roster)
			return nil
		}
		c.log.WithField("peers", len(roster)).Debug("roster update")
	}
	return nil
}

// apply feeds one inbound message to the shared identity. A message-level
// failure aborts that message without terminating the loop; a verification
// failure is a security event and is logged as such.
func (c *Client) apply(em identity.EncryptedMessage) {
	msg, err := c.user.ReceiveMessage(em)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"message_id": em.ID,
			"source_id":  em.SourceID,
		}).WithError(err).Warn("rejected inbound message")
		return
	}
	c.log.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"source_id":  msg.SourceID,
	}).Info("message received")
}

func (c *Client) writeRecord(directive string, payload any) error {
	rec, err := encodeRecord(directive, payload)
	if err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := c.conn.Write(rec); err != nil {
		return fmt.Errorf("write %s record: %w", directive, err)
	}
	return nil
}

func (c *Client) fail(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.loopErr = err
	c.mu.Unlock()
	c.log.WithError(err).Error("sync loop terminated")
}

func (c *Client) setReadErr(err error) {
	c.mu.Lock()
	c.readErr = err
	c.mu.Unlock()
}

func (c *Client) takeReadErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}
