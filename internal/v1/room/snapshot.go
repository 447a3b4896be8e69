package room

import "time"

// PlayerView is the wire representation of a Player (§6).
type PlayerView struct {
	ID         string         `json:"id"`
	Nickname   string         `json:"nickname"`
	Connected  bool           `json:"connected"`
	Rankings   map[ItemID]int `json:"rankings"`
	JoinedAt   int64          `json:"joinedAt"`
	CatchingUp bool           `json:"catchingUp"`
}

// ItemView is the wire representation of an Item (§6).
type ItemView struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Emoji       string `json:"emoji"`
	SubmittedBy string `json:"submittedBy"`
	SubmittedAt int64  `json:"submittedAt"`
}

// AggregateView is one row of the Aggregator's output, included in the
// room snapshot once status == ended (§4.5.4).
type AggregateView struct {
	ItemID        string  `json:"itemId"`
	TotalPoints   int     `json:"totalPoints"`
	AverageRank   float64 `json:"averageRank"`
	AggregateRank int     `json:"aggregateRank"`
}

// RoomState is the full wire snapshot of a Room (§6 `room:{...}`).
type RoomState struct {
	Code                 string          `json:"code"`
	HostID               string          `json:"hostId"`
	Status               Status          `json:"status"`
	Config               Config          `json:"config"`
	Players              []PlayerView    `json:"players"`
	Items                []ItemView      `json:"items"`
	CurrentTurnIndex     int             `json:"currentTurnIndex,omitempty"`
	CurrentTurnPlayerID  string          `json:"currentTurnPlayerId,omitempty"`
	TurnDeadline         *int64          `json:"turnDeadline"`
	RankingDeadline      *int64          `json:"rankingDeadline"`
	CreatedAt            int64           `json:"createdAt"`
	LastActivityAt       int64           `json:"lastActivityAt"`
	Aggregate            []AggregateView `json:"aggregate,omitempty"`
}

// snapshot builds a RoomState from the Room's current fields. Must be
// called with r.mu held.
func (r *Room) snapshot() RoomState {
	players := make([]PlayerView, 0, len(r.players))
	for _, id := range r.players {
		p := r.playerByID[id]
		if p == nil {
			continue
		}
		rankings := make(map[ItemID]int, len(p.Rankings))
		for k, v := range p.Rankings {
			rankings[k] = v
		}
		players = append(players, PlayerView{
			ID:         string(p.ID),
			Nickname:   p.Nickname,
			Connected:  p.Connected,
			Rankings:   rankings,
			JoinedAt:   p.JoinedAt.UnixMilli(),
			CatchingUp: p.CatchingUp,
		})
	}

	items := make([]ItemView, 0, len(r.items))
	for _, it := range r.items {
		items = append(items, ItemView{
			ID:          string(it.ID),
			Text:        it.Text,
			Emoji:       it.Emoji,
			SubmittedBy: string(it.SubmittedBy),
			SubmittedAt: it.SubmittedAt.UnixMilli(),
		})
	}

	state := RoomState{
		Code:           string(r.code),
		HostID:         string(r.hostID),
		Status:         r.status,
		Config:         r.config,
		Players:        players,
		Items:          items,
		TurnDeadline:   toMillisPtr(r.turnDeadline),
		RankingDeadline: toMillisPtr(r.rankingDeadline),
		CreatedAt:      r.createdAt.UnixMilli(),
		LastActivityAt: r.lastActivityAt.UnixMilli(),
	}

	if r.status == StatusInProgress {
		state.CurrentTurnIndex = r.currentTurnIndex
		if r.currentTurnIndex >= 0 && r.currentTurnIndex < len(r.players) {
			state.CurrentTurnPlayerID = string(r.players[r.currentTurnIndex])
		}
	}

	if r.status == StatusEnded {
		agg := Aggregate(dereferenceItems(r.items), r.playerByID, r.config.ItemsPerGame)
		views := make([]AggregateView, 0, len(agg))
		for _, e := range agg {
			views = append(views, AggregateView{
				ItemID:        string(e.ItemID),
				TotalPoints:   e.TotalPoints,
				AverageRank:   e.AverageRank,
				AggregateRank: e.AggregateRank,
			})
		}
		state.Aggregate = views
	}

	return state
}

func dereferenceItems(items []*Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = *it
	}
	return out
}

func toMillisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
