package room

import (
	"context"
	"time"
)

func ptrTime(t time.Time) *time.Time { return &t }

// CreateResult is returned by Create.
type CreateResult struct {
	PlayerID PlayerID
	State    RoomState
}

// Create populates a freshly-registered empty room with a host player
// and an optional config patch (§4.5 `create`). The Registry does not
// enforce single use: callers invoke it only on a room that
// GetOrCreate has just reported as created.
func (r *Room) Create(nickname string, patch *ConfigPatch) (CreateResult, error) {
	if err := ValidateNickname(nickname); err != nil {
		return CreateResult{}, err
	}
	cfg := DefaultConfig()
	if patch != nil {
		merged, err := ApplyConfigPatch(cfg, patch)
		if err != nil {
			return CreateResult{}, err
		}
		cfg = merged
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.config = cfg
	p := r.addPlayerLocked(nickname, false)
	r.hostID = p.ID
	r.touch()

	return CreateResult{PlayerID: p.ID, State: r.snapshot()}, nil
}

// Join adds a new player to the room (§4.5 `join`).
func (r *Room) Join(nickname string) (PlayerID, RoomState, error) {
	if err := ValidateNickname(nickname); err != nil {
		return "", RoomState{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == StatusEnded {
		return "", RoomState{}, newErr(ErrRoomEnded, "room has ended")
	}
	if _, taken := r.foldedNames[FoldNickname(nickname)]; taken {
		return "", RoomState{}, newErr(ErrNicknameTaken, "nickname already in use")
	}

	catchingUp := r.status == StatusInProgress && len(r.items) > 0
	p := r.addPlayerLocked(nickname, catchingUp)
	r.touch()

	snap := r.snapshot()
	r.hub.Broadcast(Message{Type: EventPlayerJoined, Player: viewOfPlayer(p)})
	r.hub.Broadcast(Message{Type: EventRoomUpdated, Room: snap})
	return p.ID, snap, nil
}

// Start transitions lobby -> in_progress (§4.5 `start`).
func (r *Room) Start(by PlayerID) (RoomState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isHostAvailableLocked() {
		return RoomState{}, newErr(ErrNoHostAvailable, "no connected player holds host authority")
	}
	if by != r.hostID {
		return RoomState{}, newErr(ErrNotHost, "only the host may start the game")
	}
	if r.status != StatusLobby {
		return RoomState{}, newErr(ErrGameAlreadyStarted, "game already started")
	}
	if len(r.players) < 1 {
		return RoomState{}, newErr(ErrNotEnoughPlayers, "need at least one player")
	}

	r.status = StatusInProgress
	r.currentTurnIndex = 0
	if r.config.TimerEnabled {
		d := time.Duration(r.config.TimerDurationS) * time.Second
		r.turnDeadline = ptrTime(r.clock.Now().Add(d))
		r.timers.ArmTurn(d)
	}
	r.touch()

	snap := r.snapshot()
	r.hub.Broadcast(Message{Type: EventGameStarted})
	r.hub.Broadcast(Message{Type: EventRoomUpdated, Room: snap})
	return snap, nil
}

// SubmitItem validates and reserves a new item, then asynchronously
// resolves its emoji before completing the mutation (§4.5.5, §9 split
// command pattern). The synchronous return only reflects precondition
// failures; success is observed by subscribers via the later broadcasts.
func (r *Room) SubmitItem(by PlayerID, text string) error {
	if err := ValidateItemText(text); err != nil {
		return err
	}
	normText := NormalizeItemText(text)
	folded := FoldItemText(text)

	r.mu.Lock()
	if r.status == StatusEnded {
		r.mu.Unlock()
		return newErr(ErrRoomEnded, "room has ended")
	}
	if r.status != StatusInProgress {
		r.mu.Unlock()
		return newErr(ErrNotYourTurn, "game has not started")
	}
	if _, ok := r.playerByID[by]; !ok {
		r.mu.Unlock()
		return newErr(ErrPlayerNotFound, "unknown player")
	}
	if r.currentSubmitterLocked() != by {
		r.mu.Unlock()
		return newErr(ErrNotYourTurn, "not your turn")
	}
	if _, exists := r.foldedTexts[folded]; exists {
		r.mu.Unlock()
		return newErr(ErrDuplicateItem, "item already submitted")
	}
	if _, reserved := r.reservedTexts[folded]; reserved {
		r.mu.Unlock()
		return newErr(ErrDuplicateItem, "item already submitted")
	}

	epoch := r.epoch
	r.reservedTexts[folded] = reservation{epoch: epoch, by: by, text: normText}
	r.touch()
	r.mu.Unlock()

	go r.resolveEmojiAndComplete(epoch, by, normText, folded)
	return nil
}

// resolveEmojiAndComplete runs off the Actor's lock, per §4.5.5: it
// never holds r.mu while awaiting the Emoji Provider.
func (r *Room) resolveEmojiAndComplete(epoch uint64, by PlayerID, text, folded string) {
	emoji := ""
	if r.emoji != nil {
		emoji = r.emoji.EmojiFor(text)
	}
	if emoji == "" || ValidateEmoji(emoji) != nil {
		emoji = fallbackEmojiFor(text)
	}
	r.completeSubmission(epoch, by, text, folded, emoji)
}

// completeSubmission is the `emoji_resolved` command (§4.5.5, §9): it
// re-enters the Actor and finishes what SubmitItem reserved. A mismatched
// epoch means the room was reset or destroyed while the provider call
// was in flight, so the reservation is simply dropped.
func (r *Room) completeSubmission(epoch uint64, by PlayerID, text, folded, emoji string) {
	r.mu.Lock()

	delete(r.reservedTexts, folded)
	if epoch != r.epoch {
		r.mu.Unlock()
		return
	}

	id := NewItemID()
	item := &Item{ID: id, Text: text, Emoji: emoji, SubmittedBy: by, SubmittedAt: r.clock.Now()}
	r.items = append(r.items, item)
	r.itemByID[id] = item
	r.foldedTexts[folded] = id
	r.touch()

	ended := len(r.items) == r.config.ItemsPerGame
	if ended {
		r.status = StatusEnded
		r.timers.CancelTurn()
		r.timers.CancelRanking()
		r.turnDeadline = nil
	} else {
		if r.config.SubmissionMode == SubmissionRoundRobin {
			r.advanceTurnLocked()
		} else {
			r.advanceTurnIndexModLocked() // Open Question 1: advance internally regardless
		}
		if r.config.TimerEnabled {
			d := time.Duration(r.config.TimerDurationS) * time.Second
			r.turnDeadline = ptrTime(r.clock.Now().Add(d))
			r.timers.ArmTurn(d)
		} else {
			r.turnDeadline = nil
		}
	}

	if !ended && r.config.RankingTimeoutS > 0 {
		d := time.Duration(r.config.RankingTimeoutS) * time.Second
		r.rankingDeadline = ptrTime(r.clock.Now().Add(d))
		r.currentRankingItemID = id
		r.timers.ArmRanking(d)
	} else {
		r.rankingDeadline = nil
		r.currentRankingItemID = ""
	}

	snap := r.snapshot()
	r.hub.Broadcast(Message{Type: EventItemSubmitted, Item: viewOfItem(item)})
	var timerEnd *int64
	if r.turnDeadline != nil {
		timerEnd = toMillisPtr(r.turnDeadline)
	}
	r.hub.Broadcast(Message{Type: EventTurnChanged, PlayerID: string(r.currentSubmitterLocked()), TimerEndAt: timerEnd})
	if ended {
		r.hub.Broadcast(Message{Type: EventGameEnded})
	}
	r.hub.Broadcast(Message{Type: EventRoomUpdated, Room: snap})
	r.mu.Unlock()

	if r.itemStore != nil {
		go r.itemStore.Add(context.Background(), text, emoji)
	}
}

// advanceTurnIndexModLocked advances current_turn_index modulo player
// count unconditionally, used for host_only bookkeeping (§9 Open
// Question 1): nothing reads the result while host_only is active, but
// it stays internally consistent in case the mode is later switched.
func (r *Room) advanceTurnIndexModLocked() {
	if len(r.players) == 0 {
		return
	}
	r.currentTurnIndex = (r.currentTurnIndex + 1) % len(r.players)
}

// RankItem assigns a rank for one item (§4.5 `rank_item`).
func (r *Room) RankItem(by PlayerID, itemID ItemID, rank int) (RoomState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.playerByID[by]
	if !ok {
		return RoomState{}, newErr(ErrPlayerNotFound, "unknown player")
	}
	if err := ValidateRanking(rank, r.config.ItemsPerGame); err != nil {
		return RoomState{}, err
	}
	if _, ok := r.itemByID[itemID]; !ok {
		return RoomState{}, newErr(ErrItemNotFound, "unknown item")
	}
	if _, ok := p.Rankings[itemID]; ok {
		return RoomState{}, newErr(ErrRankingSlotTaken, "item already ranked")
	}
	for _, used := range p.Rankings {
		if used == rank {
			return RoomState{}, newErr(ErrRankingSlotTaken, "rank already used")
		}
	}

	p.Rankings[itemID] = rank
	r.recomputeCatchingUpLocked(p)
	r.touch()

	if r.currentRankingItemID == itemID && r.allRankedLocked(itemID) {
		r.rankingDeadline = nil
		r.currentRankingItemID = ""
		r.timers.CancelRanking()
	}

	snap := r.snapshot()
	r.hub.Broadcast(Message{Type: EventRoomUpdated, Room: snap})
	return snap, nil
}

// Reconnect marks a player connected and binds the given subscriber to
// them, replying with the full current state directly (§4.5 `reconnect`,
// §4.4 Handshake). identify on the message channel calls this.
func (r *Room) Reconnect(sub SubscriberID, playerID PlayerID) (RoomState, error) {
	r.mu.Lock()

	p, ok := r.playerByID[playerID]
	if !ok {
		r.mu.Unlock()
		return RoomState{}, newErr(ErrPlayerNotFound, "unknown player")
	}

	wasDisconnected := !p.Connected
	p.Connected = true
	r.recomputeHostLocked()
	r.touch()
	snap := r.snapshot()
	r.mu.Unlock()

	r.hub.Bind(sub, playerID)
	r.hub.Send(sub, Message{Type: EventRoomUpdated, Room: snap})
	if wasDisconnected {
		r.hub.Broadcast(Message{Type: EventPlayerReconnected, PlayerID: string(playerID)})
		r.hub.Broadcast(Message{Type: EventRoomUpdated, Room: snap})
	}
	return snap, nil
}

// Disconnect handles a subscriber going away (§4.5 `disconnect`). It only
// emits player_left once every subscriber bound to that player id is gone.
func (r *Room) Disconnect(sub SubscriberID) {
	playerID, wasLast := r.hub.Remove(sub)
	if playerID == "" || !wasLast {
		return
	}

	r.mu.Lock()
	if _, ok := r.playerByID[playerID]; !ok {
		r.mu.Unlock()
		return
	}
	r.setConnectedLocked(playerID, false)
	r.recomputeHostLocked()
	r.touch()
	snap := r.snapshot()
	r.mu.Unlock()

	r.hub.Broadcast(Message{Type: EventPlayerLeft, PlayerID: string(playerID)})
	r.hub.Broadcast(Message{Type: EventRoomUpdated, Room: snap})

	if r.onEmpty != nil && r.hub.Count() == 0 {
		r.onEmpty(r.code)
	}
}

// UpdateConfig merges a validated patch into the room's config (§4.5
// `update_config`).
func (r *Room) UpdateConfig(by PlayerID, patch *ConfigPatch) (RoomState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isHostAvailableLocked() {
		return RoomState{}, newErr(ErrNoHostAvailable, "no connected player holds host authority")
	}
	if by != r.hostID {
		return RoomState{}, newErr(ErrNotHost, "only the host may update config")
	}
	if r.status != StatusLobby {
		return RoomState{}, newErr(ErrGameAlreadyStarted, "config can only change in lobby")
	}

	merged, err := ApplyConfigPatch(r.config, patch)
	if err != nil {
		return RoomState{}, err
	}
	r.config = merged
	r.touch()

	snap := r.snapshot()
	r.hub.Broadcast(Message{Type: EventConfigUpdated, Config: r.config})
	r.hub.Broadcast(Message{Type: EventRoomUpdated, Room: snap})
	return snap, nil
}

// Reset wipes items/rankings and returns the room to lobby, preserving
// players and nicknames (§4.5 `reset`).
func (r *Room) Reset(by PlayerID) (RoomState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isHostAvailableLocked() {
		return RoomState{}, newErr(ErrNoHostAvailable, "no connected player holds host authority")
	}
	if by != r.hostID {
		return RoomState{}, newErr(ErrNotHost, "only the host may reset")
	}
	if r.status != StatusEnded {
		return RoomState{}, newErr(ErrGameAlreadyStarted, "room has not ended")
	}

	r.items = nil
	r.itemByID = make(map[ItemID]*Item)
	r.foldedTexts = make(map[string]ItemID)
	r.reservedTexts = make(map[string]reservation)
	for _, pid := range r.players {
		if p := r.playerByID[pid]; p != nil {
			p.Rankings = make(map[ItemID]int)
			p.CatchingUp = false
		}
	}
	r.status = StatusLobby
	r.currentTurnIndex = 0
	r.currentRankingItemID = ""
	r.turnDeadline = nil
	r.rankingDeadline = nil
	r.epoch++ // invalidates any in-flight emoji reservation from before the reset
	r.timers.StopAll()
	r.touch()

	snap := r.snapshot()
	r.hub.Broadcast(Message{Type: EventRoomReset, Room: snap})
	r.hub.Broadcast(Message{Type: EventRoomUpdated, Room: snap})
	return snap, nil
}

// SkipTurn advances the turn without an item (§4.5 `skip_turn`). Allowed
// from the current submitter or the host (§9 Open Question 3).
func (r *Room) SkipTurn(by PlayerID) (RoomState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusInProgress {
		return RoomState{}, newErr(ErrNotYourTurn, "game is not in progress")
	}
	current := r.currentSubmitterLocked()
	if by != current && by != r.hostID {
		return RoomState{}, newErr(ErrNotYourTurn, "only the current submitter or host may skip")
	}

	return r.skipTurnLocked(), nil
}

// skipTurnLocked performs the shared effect of skip_turn and
// turn_timer_expired (§4.5: "Treat as skip_turn from the room itself").
func (r *Room) skipTurnLocked() RoomState {
	if r.config.SubmissionMode == SubmissionRoundRobin {
		r.advanceTurnLocked()
	} else {
		r.advanceTurnIndexModLocked()
	}
	if r.config.TimerEnabled {
		d := time.Duration(r.config.TimerDurationS) * time.Second
		r.turnDeadline = ptrTime(r.clock.Now().Add(d))
		r.timers.ArmTurn(d)
	}
	r.touch()

	snap := r.snapshot()
	r.hub.Broadcast(Message{Type: EventTurnChanged, PlayerID: string(r.currentSubmitterLocked()), TimerEndAt: toMillisPtr(r.turnDeadline)})
	r.hub.Broadcast(Message{Type: EventRoomUpdated, Room: snap})
	return snap
}

// handleTurnTimerExpired is the Timer Engine's callback for the turn
// timer (§4.5 `turn_timer_expired`). A stale epoch is dropped silently.
func (r *Room) handleTurnTimerExpired(epoch uint64) {
	r.mu.Lock()
	if !r.timers.IsTurnEpochCurrent(epoch) || r.status != StatusInProgress {
		r.mu.Unlock()
		return
	}
	r.skipTurnLocked()
	r.mu.Unlock()
}

// handleRankingTimerExpired is the Timer Engine's callback for the
// ranking timer (§4.5 `ranking_timer_expired`). Unset ranks for the item
// being ranked are auto-assigned the lowest free rank per player,
// deterministically by player insertion order.
func (r *Room) handleRankingTimerExpired(epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.timers.IsRankEpochCurrent(epoch) || r.currentRankingItemID == "" {
		return
	}
	itemID := r.currentRankingItemID
	for _, pid := range r.sortedPlayerIDsLocked() {
		p := r.playerByID[pid]
		if p == nil {
			continue
		}
		if _, ok := p.Rankings[itemID]; ok {
			continue
		}
		rank := lowestFreeRankLocked(p, r.config.ItemsPerGame)
		if rank == 0 {
			continue
		}
		p.Rankings[itemID] = rank
		r.recomputeCatchingUpLocked(p)
	}
	r.rankingDeadline = nil
	r.currentRankingItemID = ""
	r.touch()

	snap := r.snapshot()
	r.hub.Broadcast(Message{Type: EventRoomUpdated, Room: snap})
}

func viewOfPlayer(p *Player) PlayerView {
	rankings := make(map[ItemID]int, len(p.Rankings))
	for k, v := range p.Rankings {
		rankings[k] = v
	}
	return PlayerView{
		ID:         string(p.ID),
		Nickname:   p.Nickname,
		Connected:  p.Connected,
		Rankings:   rankings,
		JoinedAt:   p.JoinedAt.UnixMilli(),
		CatchingUp: p.CatchingUp,
	}
}

func viewOfItem(it *Item) ItemView {
	return ItemView{
		ID:          string(it.ID),
		Text:        it.Text,
		Emoji:       it.Emoji,
		SubmittedBy: string(it.SubmittedBy),
		SubmittedAt: it.SubmittedAt.UnixMilli(),
	}
}
