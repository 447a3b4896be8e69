package room

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is the idle-room eviction window (§3 Lifecycle, §6 TTL).
const DefaultTTL = 10 * time.Minute

// maxCodeAttempts bounds code-collision retries on create (§4.1).
const maxCodeAttempts = 20

// EmojiProviderFactory and friends are not needed: Registry is handed
// already-constructed adapters to inject into every room it creates.

// Registry is the process-wide directory mapping room code -> Room
// (C3). It creates rooms on demand for `create`, looks them up for
// everything else, and evicts rooms whose idle time exceeds ttl once
// they have no subscribers left.
type Registry struct {
	mu    sync.Mutex
	rooms map[Code]*entry

	ttl       time.Duration
	emoji     EmojiProvider
	itemStore ItemStore
	clock     Clock
	log       *zap.Logger
}

type entry struct {
	room        *Room
	cleanupTimer *time.Timer
}

// NewRegistry constructs an empty registry. emoji and itemStore are
// injected into every room it creates.
func NewRegistry(ttl time.Duration, emoji EmojiProvider, itemStore ItemStore, clock Clock, log *zap.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		rooms:     make(map[Code]*entry),
		ttl:       ttl,
		emoji:     emoji,
		itemStore: itemStore,
		clock:     clock,
		log:       log,
	}
}

// Get looks up an existing room by code.
func (reg *Registry) Get(code Code) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.rooms[code]
	if !ok {
		return nil, false
	}
	reg.cancelCleanupLocked(e)
	return e.room, true
}

// GetOrCreate returns the room for code, creating an empty one (status
// lobby, no players yet) if it doesn't exist (§4.3). The caller must
// immediately issue a `create` command against a freshly-made room.
func (reg *Registry) GetOrCreate(code Code) (rm *Room, created bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if e, ok := reg.rooms[code]; ok {
		reg.cancelCleanupLocked(e)
		return e.room, false
	}
	hub := NewHub(reg.log)
	rm = NewRoom(code, hub, reg.emoji, reg.itemStore, reg.clock, reg.log)
	rm.SetOnEmpty(reg.NotifyMaybeEmpty)
	reg.rooms[code] = &entry{room: rm}
	return rm, true
}

// NewCodeWithRetry samples a fresh, unused room code, retrying on
// collision up to maxCodeAttempts times (§4.1).
func (reg *Registry) NewCodeWithRetry() (Code, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := NewCode()
		if err != nil {
			return "", err
		}
		reg.mu.Lock()
		_, exists := reg.rooms[code]
		reg.mu.Unlock()
		if !exists {
			return code, nil
		}
	}
	return "", newErr(ErrCodeExhausted, "could not allocate a unique room code")
}

// Destroy tears a room down immediately, cancelling its timers and
// closing any straggling subscribers with ROOM_CLOSED (§4.3).
func (reg *Registry) Destroy(code Code) {
	reg.mu.Lock()
	e, ok := reg.rooms[code]
	if !ok {
		reg.mu.Unlock()
		return
	}
	delete(reg.rooms, code)
	reg.mu.Unlock()

	reg.cancelCleanupLocked(e)
	e.room.mu.Lock()
	e.room.epoch++ // drops any emoji reservation still in flight
	e.room.mu.Unlock()
	e.room.timers.StopAll()
	e.room.hub.Broadcast(Message{Type: EventError, Code: string(ErrRoomClosed), ErrMsg: "room closed"})
	for _, subID := range e.room.hub.subscriberIDs() {
		e.room.hub.Remove(subID)
	}
}

// NotifyMaybeEmpty is called whenever a room's subscriber count may have
// dropped to zero. If the room is empty, a grace-period eviction timer is
// armed (mirrors the teacher's pending-cleanup pattern); if a subscriber
// reappears before it fires, GetOrCreate/Get cancel it.
func (reg *Registry) NotifyMaybeEmpty(code Code) {
	reg.mu.Lock()
	e, ok := reg.rooms[code]
	if !ok {
		reg.mu.Unlock()
		return
	}
	if e.room.hub.Count() > 0 {
		reg.mu.Unlock()
		return
	}
	if e.cleanupTimer != nil {
		reg.mu.Unlock()
		return // already scheduled
	}
	e.cleanupTimer = time.AfterFunc(reg.ttl, func() {
		reg.evictIfStillIdle(code)
	})
	reg.mu.Unlock()
}

func (reg *Registry) evictIfStillIdle(code Code) {
	reg.mu.Lock()
	e, ok := reg.rooms[code]
	if !ok {
		reg.mu.Unlock()
		return
	}
	if e.room.hub.Count() > 0 || reg.clockNow().Sub(e.room.LastActivity()) < reg.ttl {
		e.cleanupTimer = nil
		reg.mu.Unlock()
		return
	}
	delete(reg.rooms, code)
	reg.mu.Unlock()

	e.room.timers.StopAll()
}

func (reg *Registry) clockNow() time.Time {
	if reg.clock != nil {
		return reg.clock.Now()
	}
	return time.Now()
}

func (reg *Registry) cancelCleanupLocked(e *entry) {
	if e.cleanupTimer != nil {
		e.cleanupTimer.Stop()
		e.cleanupTimer = nil
	}
}

// SweepAll closes every stale message-channel subscriber across all live
// rooms (§4.4 Heartbeat), driven by one process-wide ticker rather than a
// per-room timer.
func (reg *Registry) SweepAll() {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, e := range reg.rooms {
		rooms = append(rooms, e.room)
	}
	reg.mu.Unlock()

	for _, rm := range rooms {
		for _, subID := range rm.hub.Sweep() {
			rm.Disconnect(subID)
		}
	}
}

// Len returns the number of live rooms, for metrics.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}
