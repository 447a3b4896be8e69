package room

import (
	"sync"
	"time"
)

// timerKind discriminates the two timers a Room drives (§4.6).
type timerKind int

const (
	timerTurn timerKind = iota
	timerRanking
)

// TimerEngine schedules the submission-turn and per-item ranking timers
// for one room (C6). Each timer carries a monotonic epoch, bumped on
// every (re)arm; an expiry delivered with a stale epoch is dropped by
// the Room Actor, eliminating races between reset and fire (§4.6, §9).
// Epochs live under the engine's own mutex rather than the Room's: every
// Arm/Cancel call site is already holding r.mu, and sync.Mutex is not
// reentrant.
type TimerEngine struct {
	mu    sync.Mutex
	room  *Room
	turn  *time.Timer
	rank  *time.Timer

	turnEpoch uint64
	rankEpoch uint64
}

// NewTimerEngine constructs a timer engine bound to the given room.
func NewTimerEngine(r *Room) *TimerEngine {
	return &TimerEngine{room: r}
}

// ArmTurn (re)arms the turn timer for d, bumping its epoch. Returns the
// epoch the timer was armed with.
func (t *TimerEngine) ArmTurn(d time.Duration) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.turn != nil {
		t.turn.Stop()
	}
	t.turnEpoch++
	epoch := t.turnEpoch

	t.turn = time.AfterFunc(d, func() {
		t.room.handleTurnTimerExpired(epoch)
	})
	return epoch
}

// CancelTurn stops the turn timer without posting an expiry.
func (t *TimerEngine) CancelTurn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.turn != nil {
		t.turn.Stop()
		t.turn = nil
	}
	t.turnEpoch++
}

// ArmRanking (re)arms the ranking timer for d, bumping its epoch.
func (t *TimerEngine) ArmRanking(d time.Duration) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rank != nil {
		t.rank.Stop()
	}
	t.rankEpoch++
	epoch := t.rankEpoch

	t.rank = time.AfterFunc(d, func() {
		t.room.handleRankingTimerExpired(epoch)
	})
	return epoch
}

// CancelRanking stops the ranking timer without posting an expiry.
func (t *TimerEngine) CancelRanking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rank != nil {
		t.rank.Stop()
		t.rank = nil
	}
	t.rankEpoch++
}

// IsTurnEpochCurrent reports whether epoch still matches the turn
// timer's live epoch, called by the Room Actor's expiry handler to drop
// stale fires.
func (t *TimerEngine) IsTurnEpochCurrent(epoch uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return epoch == t.turnEpoch
}

// IsRankEpochCurrent reports whether epoch still matches the ranking
// timer's live epoch.
func (t *TimerEngine) IsRankEpochCurrent(epoch uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return epoch == t.rankEpoch
}

// StopAll cancels both timers, e.g. on room destruction (§4.3).
func (t *TimerEngine) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.turn != nil {
		t.turn.Stop()
	}
	if t.rank != nil {
		t.rank.Stop()
	}
}
