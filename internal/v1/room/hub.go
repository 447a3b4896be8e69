package room

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// heartbeatInterval is the cadence at which the Hub sweeps for dead
	// subscribers (§4.4).
	heartbeatInterval = 20 * time.Second
	// heartbeatGrace is how long a subscriber may go without sending an
	// app-level ping before it is considered dead (two missed intervals,
	// §4.4 "missing two consecutive pongs").
	heartbeatGrace = 2 * heartbeatInterval

	// sendQueueSize bounds a subscriber's outbound queue; the Hub closes
	// a subscriber whose queue overflows rather than block the Actor
	// (§5 "Suspension points", §9 "Broadcast back-pressure").
	sendQueueSize = 32
)

// Subscriber is one live message-channel connection (§4.4, §6
// "Subscriber"). It is anonymous (PlayerID == "") until identify binds
// it to a player.
type Subscriber struct {
	id       SubscriberID
	playerID PlayerID

	send chan []byte

	mu         sync.Mutex
	lastPingAt time.Time
	closeOnce  sync.Once
	closed     chan struct{}
}

// ID returns the subscriber's id.
func (s *Subscriber) ID() SubscriberID { return s.id }

// Outbox is the channel the websocket write pump drains.
func (s *Subscriber) Outbox() <-chan []byte { return s.send }

// Done is closed when the Hub has removed this subscriber.
func (s *Subscriber) Done() <-chan struct{} { return s.closed }

func newSubscriber(id SubscriberID) *Subscriber {
	return &Subscriber{
		id:         id,
		send:       make(chan []byte, sendQueueSize),
		closed:     make(chan struct{}),
		lastPingAt: time.Now(),
	}
}

func (s *Subscriber) markClosed() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// Hub tracks the subscribers of one room and routes outbound events to
// them (C4). The Room Actor calls Broadcast/Send; Hub delivery never
// blocks the caller for longer than a non-blocking channel send.
type Hub struct {
	mu          sync.Mutex
	subscribers map[SubscriberID]*Subscriber
	log         *zap.Logger
}

// NewHub constructs an empty per-room connection hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[SubscriberID]*Subscriber),
		log:         log,
	}
}

// Add registers a new anonymous subscriber and returns it.
func (h *Hub) Add() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := newSubscriber(NewSubscriberID())
	h.subscribers[s.id] = s
	return s
}

// Bind associates a subscriber with a player id (identify/reconnect,
// §4.4 Handshake).
func (h *Hub) Bind(subID SubscriberID, playerID PlayerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subscribers[subID]; ok {
		s.playerID = playerID
	}
}

// PlayerOf returns the player id bound to a subscriber, if any.
func (h *Hub) PlayerOf(subID SubscriberID) (PlayerID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.subscribers[subID]
	if !ok {
		return "", false
	}
	return s.playerID, s.playerID != ""
}

// Remove drops a subscriber (disconnect, heartbeat timeout, slow
// consumer). Returns the player id it was bound to (if any) and whether
// it was the last subscriber bound to that player id.
func (h *Hub) Remove(subID SubscriberID) (playerID PlayerID, wasLast bool) {
	h.mu.Lock()
	s, ok := h.subscribers[subID]
	if !ok {
		h.mu.Unlock()
		return "", false
	}
	playerID = s.playerID
	delete(h.subscribers, subID)
	wasLast = true
	if playerID != "" {
		for _, other := range h.subscribers {
			if other.playerID == playerID {
				wasLast = false
				break
			}
		}
	}
	h.mu.Unlock()
	s.markClosed()
	return playerID, wasLast
}

// subscriberIDs returns a snapshot of all live subscriber ids.
func (h *Hub) subscriberIDs() []SubscriberID {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]SubscriberID, 0, len(h.subscribers))
	for id := range h.subscribers {
		out = append(out, id)
	}
	return out
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// ConnectedPlayers returns the set of distinct player ids with at least
// one live subscriber bound.
func (h *Hub) ConnectedPlayers() map[PlayerID]bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[PlayerID]bool)
	for _, s := range h.subscribers {
		if s.playerID != "" {
			out[s.playerID] = true
		}
	}
	return out
}

// Broadcast fans a message out to every subscriber (§4.4 broadcast).
// Delivery is best-effort: a subscriber whose queue is full is closed
// rather than allowed to block the caller.
func (h *Hub) Broadcast(msg Message) {
	h.broadcastRaw(mustMarshal(msg), "")
}

// BroadcastExcept fans a message out to every subscriber except the
// given one (used when a direct reply already carries the same content).
func (h *Hub) BroadcastExcept(msg Message, except SubscriberID) {
	h.broadcastRaw(mustMarshal(msg), except)
}

func (h *Hub) broadcastRaw(payload []byte, except SubscriberID) {
	h.mu.Lock()
	targets := make([]*Subscriber, 0, len(h.subscribers))
	for id, s := range h.subscribers {
		if id == except {
			continue
		}
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		h.deliver(s, payload)
	}
}

// Send delivers a message to exactly one subscriber (direct replies,
// e.g. reconnect's full-state broadcast).
func (h *Hub) Send(subID SubscriberID, msg Message) {
	h.mu.Lock()
	s, ok := h.subscribers[subID]
	h.mu.Unlock()
	if !ok {
		return
	}
	h.deliver(s, mustMarshal(msg))
}

func (h *Hub) deliver(s *Subscriber, payload []byte) {
	select {
	case s.send <- payload:
	default:
		// Slow subscriber: drop it rather than block the Actor (§9).
		if h.log != nil {
			h.log.Warn("dropping slow subscriber", zap.String("subscriber_id", string(s.id)))
		}
		h.Remove(s.id)
	}
}

// RecordPing notes a client-originated app-level ping, resetting the
// subscriber's liveness deadline, and replies with pong.
func (h *Hub) RecordPing(subID SubscriberID) {
	h.mu.Lock()
	s, ok := h.subscribers[subID]
	h.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	s.lastPingAt = time.Now()
	s.mu.Unlock()
	h.Send(subID, Message{Type: EventPong})
}

// Sweep reports every subscriber that has not pinged within
// heartbeatGrace (§4.4 Heartbeat), without removing them: the caller
// (Room.Disconnect, via Registry.SweepAll) owns tearing the subscriber
// down so presence bookkeeping and player_left broadcasts stay on one
// code path.
func (h *Hub) Sweep() []SubscriberID {
	h.mu.Lock()
	targets := make([]*Subscriber, 0, len(h.subscribers))
	for _, s := range h.subscribers {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	var dead []SubscriberID
	now := time.Now()
	for _, s := range targets {
		s.mu.Lock()
		stale := now.Sub(s.lastPingAt) > heartbeatGrace
		s.mu.Unlock()
		if stale {
			dead = append(dead, s.id)
		}
	}
	return dead
}

func mustMarshal(msg Message) []byte {
	b, err := json.Marshal(msg)
	if err != nil {
		return []byte(`{"type":"error","code":"INTERNAL","message":"encode failure"}`)
	}
	return b
}
