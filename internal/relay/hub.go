package relay

import (
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"parley/internal/identity"
)

// Hub is the relay server core: it tracks announced clients, forwards
// message records by target id, queues records for offline targets, and
// pushes the roster to everyone on membership change.
//
// The hub treats every payload as opaque ciphertext; it only reads the
// envelope fields it needs for routing.
type Hub struct {
	log *logrus.Entry

	mu      sync.Mutex
	clients map[string]*hubClient
	queued  map[string][][]byte
}

type hubClient struct {
	peer Peer
	conn net.Conn

	// writeMu serializes writes: roster broadcasts and forwarded messages
	// may race on the same connection.
	writeMu sync.Mutex
}

// NewHub returns an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		log:     logger.WithField("component", "relay-hub"),
		clients: make(map[string]*hubClient),
		queued:  make(map[string][][]byte),
	}
}

// Serve accepts connections until the listener closes.
func (h *Hub) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go h.HandleConn(conn)
	}
}

// HandleConn runs one client connection to completion. The first record must
// be a hello announcing the peer; everything after is dispatched by
// directive. The connection is dropped on the first protocol violation.
func (h *Hub) HandleConn(conn net.Conn) {
	defer conn.Close()

	var (
		framer  Framer
		pending string
		peer    *Peer
	)
	buf := make([]byte, readChunk)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			framer.Feed(buf[:n])
			for {
				line, ok := framer.Next()
				if !ok {
					break
				}
				if pending == "" {
					if line == "" {
						continue
					}
					pending = line
					continue
				}
				directive := pending
				pending = ""
				done, err := h.handleRecord(conn, &peer, directive, line)
				if err != nil {
					h.log.WithError(err).Warn("dropping client")
					done = true
				}
				if done {
					h.unregister(peer)
					return
				}
			}
		}
		if err != nil {
			h.unregister(peer)
			return
		}
	}
}

// handleRecord applies one complete record from a client.
func (h *Hub) handleRecord(conn net.Conn, peer **Peer, directive, payload string) (bool, error) {
	switch directive {
	case DirectiveHello:
		var p Peer
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return false, fmt.Errorf("decode hello: %w", err)
		}
		if p.ID == "" {
			return false, fmt.Errorf("hello with empty id")
		}
		*peer = &p
		h.register(p, conn)
		return false, nil
	case DirectiveSend:
		if *peer == nil {
			return false, fmt.Errorf("send before hello")
		}
		var em identity.EncryptedMessage
		if err := json.Unmarshal([]byte(payload), &em); err != nil {
			return false, fmt.Errorf("decode send: %w", err)
		}
		h.forward(em)
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownDirective, directive)
	}
}

// register adds a client, flushes anything queued for it, and broadcasts the
// new roster.
func (h *Hub) register(p Peer, conn net.Conn) {
	h.mu.Lock()
	client := &hubClient{peer: p, conn: conn}
	h.clients[p.ID] = client
	backlog := h.queued[p.ID]
	delete(h.queued, p.ID)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"peer_id":  p.ID,
		"nickname": p.Nickname,
		"backlog":  len(backlog),
	}).Info("client registered")

	for _, rec := range backlog {
		client.write(rec)
	}
	h.broadcastRoster()
}

// unregister removes a client and broadcasts the shrunken roster. A nil peer
// means the connection never completed a hello.
func (h *Hub) unregister(p *Peer) {
	if p == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.clients[p.ID]
	delete(h.clients, p.ID)
	h.mu.Unlock()
	if !ok {
		return
	}
	h.log.WithField("peer_id", p.ID).Info("client disconnected")
	h.broadcastRoster()
}

// forward routes an encrypted message to its target, queueing the framed
// record when the target is offline.
func (h *Hub) forward(em identity.EncryptedMessage) {
	rec, err := encodeRecord(DirectiveMessage, em)
	if err != nil {
		h.log.WithError(err).Error("encode forwarded message")
		return
	}

	h.mu.Lock()
	target, online := h.clients[em.TargetID]
	if !online {
		h.queued[em.TargetID] = append(h.queued[em.TargetID], rec)
	}
	h.mu.Unlock()

	entry := h.log.WithFields(logrus.Fields{
		"message_id": em.ID,
		"target_id":  em.TargetID,
	})
	if !online {
		entry.Debug("target offline, message queued")
		return
	}
	if err := target.write(rec); err != nil {
		entry.WithError(err).Warn("forward failed")
		return
	}
	entry.Debug("message forwarded")
}

// broadcastRoster pushes the current peer list to every connected client.
func (h *Hub) broadcastRoster() {
	h.mu.Lock()
	roster := make([]Peer, 0, len(h.clients))
	targets := make([]*hubClient, 0, len(h.clients))
	for _, c := range h.clients {
		roster = append(roster, c.peer)
		targets = append(targets, c)
	}
	h.mu.Unlock()

	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })
	rec, err := encodeRecord(DirectiveUsers, roster)
	if err != nil {
		h.log.WithError(err).Error("encode roster")
		return
	}
	for _, c := range targets {
		if err := c.write(rec); err != nil {
			h.log.WithField("peer_id", c.peer.ID).WithError(err).Debug("roster push failed")
		}
	}
}

func (c *hubClient) write(rec []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(rec)
	return err
}
