package room

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EmojiProvider assigns an emoji to freshly submitted text (C10, §4.10).
// Implementations must never block longer than their own internal
// timeout and must never return an invalid emoji; Room always revalidates
// via ValidateEmoji and falls back itself if the result fails validation.
type EmojiProvider interface {
	EmojiFor(text string) string
}

// ItemStore records a completed item submission for future
// random-item sampling (C9, §4.9). Implementations must never block the
// Room Actor or surface an error to it; failures are the adapter's own
// concern.
type ItemStore interface {
	Add(ctx context.Context, text, emoji string)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Room is the single-writer state machine for one game (C5). All fields
// below the mutex are owned exclusively by the Actor; every exported
// method that mutates state takes the lock for the duration of one
// command, per the single-writer discipline (§5, §9).
type Room struct {
	mu sync.Mutex

	code   Code
	status Status
	config Config

	hostID PlayerID

	players     []PlayerID // insertion order; turn order derives from this
	playerByID  map[PlayerID]*Player
	items       []*Item
	itemByID    map[ItemID]*Item
	foldedNames map[string]PlayerID // case-folded nickname -> player id
	foldedTexts map[string]ItemID   // case-folded item text -> item id

	currentTurnIndex    int
	currentRankingItemID ItemID // item the active ranking window covers

	turnDeadline    *time.Time
	rankingDeadline *time.Time

	// reservedTexts tracks item texts in flight through the split emoji
	// command so a concurrent submit cannot collide with a pending one.
	reservedTexts map[string]reservation

	epoch uint64 // bumped on reset/destroy; guards stale reservations

	createdAt      time.Time
	lastActivityAt time.Time

	hub       *Hub
	timers    *TimerEngine
	emoji     EmojiProvider
	itemStore ItemStore
	clock     Clock
	log       *zap.Logger

	onEmpty func(Code) // notifies the Registry this room became eligible for TTL eviction
}

type reservation struct {
	epoch   uint64
	by      PlayerID
	text    string
}

// NewRoom constructs an empty room with the given code, to be populated
// by the first `create` command. Dependencies (hub, timers, adapters) are
// injected so the Room never constructs its own I/O.
func NewRoom(code Code, hub *Hub, emoji EmojiProvider, itemStore ItemStore, clock Clock, log *zap.Logger) *Room {
	if clock == nil {
		clock = realClock{}
	}
	r := &Room{
		code:          code,
		status:        StatusLobby,
		config:        DefaultConfig(),
		playerByID:    make(map[PlayerID]*Player),
		itemByID:      make(map[ItemID]*Item),
		foldedNames:   make(map[string]PlayerID),
		foldedTexts:   make(map[string]ItemID),
		reservedTexts: make(map[string]reservation),
		hub:           hub,
		emoji:         emoji,
		itemStore:     itemStore,
		clock:         clock,
		log:           log,
	}
	r.createdAt = r.clock.Now()
	r.lastActivityAt = r.createdAt
	r.timers = NewTimerEngine(r)
	return r
}

// Code returns the room's code.
func (r *Room) Code() Code { return r.code }

// Hub returns the room's connection hub, for the websocket upgrade path
// to bind subscribers against (C4, C8).
func (r *Room) Hub() *Hub { return r.hub }

// Snapshot returns the current wire state (§6 `room:{...}`), for the
// HTTP control surface's GET /room/{code}.
func (r *Room) Snapshot() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// SetOnEmpty registers a callback the Registry uses to learn when this
// room's subscriber count may have dropped to zero, so it can arm a TTL
// eviction timer (§4.3).
func (r *Room) SetOnEmpty(fn func(Code)) { r.onEmpty = fn }

// touch updates last_activity_at; called by every mutating command while
// the lock is held (§3 Lifecycle, §5 Cancellation & timeouts).
func (r *Room) touch() {
	r.lastActivityAt = r.clock.Now()
}

// IsEmpty reports whether no player is currently marked connected. TTL
// eviction does not use it; the Registry checks the Hub's subscriber
// count instead.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.players {
		if p := r.playerByID[id]; p != nil && p.Connected {
			return false
		}
	}
	return true
}

// LastActivity returns last_activity_at for TTL comparisons.
func (r *Room) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivityAt
}
