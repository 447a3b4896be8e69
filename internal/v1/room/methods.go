package room

import "sort"

// The helpers in this file assume r.mu is already held by the caller.

// addPlayerLocked appends a new player, wiring its nickname into the
// uniqueness index. Returns the created player.
func (r *Room) addPlayerLocked(nickname string, catchingUp bool) *Player {
	id := NewPlayerID()
	p := &Player{
		ID:         id,
		Nickname:   NormalizeNickname(nickname),
		Connected:  true,
		Rankings:   make(map[ItemID]int),
		JoinedAt:   r.clock.Now(),
		CatchingUp: catchingUp,
	}
	r.players = append(r.players, id)
	r.playerByID[id] = p
	r.foldedNames[FoldNickname(nickname)] = id
	return p
}

// playerIndexLocked returns the position of id within r.players, or -1.
func (r *Room) playerIndexLocked(id PlayerID) int {
	for i, pid := range r.players {
		if pid == id {
			return i
		}
	}
	return -1
}

// setConnectedLocked updates a player's connected flag.
func (r *Room) setConnectedLocked(id PlayerID, connected bool) {
	if p := r.playerByID[id]; p != nil {
		p.Connected = connected
	}
}

// recomputeHostLocked performs host migration (§4.5.6): the new host is
// the earliest-joined still-connected player. If no player is connected,
// the host id is left unchanged so a later reconnect restores them.
func (r *Room) recomputeHostLocked() {
	if r.hostID == "" {
		return
	}
	if host := r.playerByID[r.hostID]; host != nil && host.Connected {
		return // current host still present, no migration needed
	}
	for _, id := range r.players {
		if p := r.playerByID[id]; p != nil && p.Connected {
			r.hostID = id
			return
		}
	}
	// No connected player: host remains formally assigned (§4.5.6).
}

// isHostAvailableLocked reports whether the current host has a connected
// subscriber, per §4.5.6's NO_HOST_AVAILABLE behavior.
func (r *Room) isHostAvailableLocked() bool {
	host := r.playerByID[r.hostID]
	return host != nil && host.Connected
}

// advanceTurnLocked moves current_turn_index to the next connected
// player, modulo player count, skipping disconnected seats. If no player
// is connected, the index is left unchanged (§4.5.2).
func (r *Room) advanceTurnLocked() {
	n := len(r.players)
	if n == 0 {
		return
	}
	anyConnected := false
	for _, id := range r.players {
		if p := r.playerByID[id]; p != nil && p.Connected {
			anyConnected = true
			break
		}
	}
	if !anyConnected {
		return
	}
	idx := r.currentTurnIndex
	for i := 0; i < n; i++ {
		idx = (idx + 1) % n
		if p := r.playerByID[r.players[idx]]; p != nil && p.Connected {
			r.currentTurnIndex = idx
			return
		}
	}
}

// currentSubmitterLocked returns the player id allowed to submit right
// now: the host when submission_mode == host_only, otherwise the player
// at current_turn_index ("" if the index is out of range).
func (r *Room) currentSubmitterLocked() PlayerID {
	if r.config.SubmissionMode == SubmissionHostOnly {
		return r.hostID
	}
	if r.currentTurnIndex < 0 || r.currentTurnIndex >= len(r.players) {
		return ""
	}
	return r.players[r.currentTurnIndex]
}

// lowestFreeRankLocked returns the smallest rank in [1, itemsPerGame] not
// already present in p.Rankings, for deterministic ranking auto-assign
// (§4.5 ranking_timer_expired).
func lowestFreeRankLocked(p *Player, itemsPerGame int) int {
	used := make(map[int]bool, len(p.Rankings))
	for _, rank := range p.Rankings {
		used[rank] = true
	}
	for rank := 1; rank <= itemsPerGame; rank++ {
		if !used[rank] {
			return rank
		}
	}
	return 0
}

// allRankedLocked reports whether every present player has assigned a
// rank to the given item.
func (r *Room) allRankedLocked(itemID ItemID) bool {
	for _, pid := range r.players {
		p := r.playerByID[pid]
		if p == nil {
			continue
		}
		if _, ok := p.Rankings[itemID]; !ok {
			return false
		}
	}
	return true
}

// recomputeCatchingUpLocked clears a player's catching_up flag once they
// have ranked every existing item (§3, §4.5.3).
func (r *Room) recomputeCatchingUpLocked(p *Player) {
	if !p.CatchingUp {
		return
	}
	for _, it := range r.items {
		if _, ok := p.Rankings[it.ID]; !ok {
			return
		}
	}
	p.CatchingUp = false
}

// sortedPlayerIDsLocked returns player ids in insertion order, used by
// the deterministic ranking auto-assign rule.
func (r *Room) sortedPlayerIDsLocked() []PlayerID {
	out := make([]PlayerID, len(r.players))
	copy(out, r.players)
	sort.SliceStable(out, func(i, j int) bool {
		return r.playerIndexLocked(out[i]) < r.playerIndexLocked(out[j])
	})
	return out
}
