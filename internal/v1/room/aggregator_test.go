package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mkPlayer(id PlayerID, rankings map[ItemID]int) *Player {
	return &Player{ID: id, Rankings: rankings}
}

func TestAggregate_TotalPointsAndOrder(t *testing.T) {
	items := []Item{{ID: "i1"}, {ID: "i2"}, {ID: "i3"}}
	players := map[PlayerID]*Player{
		"p1": mkPlayer("p1", map[ItemID]int{"i1": 1, "i2": 2, "i3": 3}),
		"p2": mkPlayer("p2", map[ItemID]int{"i1": 1, "i2": 3, "i3": 2}),
	}

	entries := Aggregate(items, players, 3)
	assert.Len(t, entries, 3)

	byID := make(map[ItemID]AggregateEntry, len(entries))
	for _, e := range entries {
		byID[e.ItemID] = e
	}

	// i1: rank 1 from both => points (3+1-1)*2 = 6
	assert.Equal(t, 6, byID["i1"].TotalPoints)
	assert.Equal(t, 1, byID["i1"].AggregateRank)
}

func TestAggregate_MissingRankContributesZero(t *testing.T) {
	items := []Item{{ID: "i1"}, {ID: "i2"}}
	players := map[PlayerID]*Player{
		"p1": mkPlayer("p1", map[ItemID]int{"i1": 1}),
	}
	entries := Aggregate(items, players, 2)
	byID := make(map[ItemID]AggregateEntry, len(entries))
	for _, e := range entries {
		byID[e.ItemID] = e
	}
	assert.Equal(t, 0, byID["i2"].TotalPoints)
	assert.Equal(t, 0.0, byID["i2"].AverageRank)
}

func TestAggregate_TieBreaksBySubmissionOrder(t *testing.T) {
	items := []Item{{ID: "first"}, {ID: "second"}}
	players := map[PlayerID]*Player{
		"p1": mkPlayer("p1", map[ItemID]int{"first": 1, "second": 1}),
	}
	entries := Aggregate(items, players, 2)
	assert.Equal(t, ItemID("first"), entries[0].ItemID)
	assert.Equal(t, ItemID("second"), entries[1].ItemID)
}

func TestAggregate_ReversedRankingsEqualPoints(t *testing.T) {
	items := []Item{{ID: "a"}, {ID: "b"}}
	players := map[PlayerID]*Player{
		"p1": mkPlayer("p1", map[ItemID]int{"a": 1, "b": 2}),
		"p2": mkPlayer("p2", map[ItemID]int{"a": 2, "b": 1}),
	}
	entries := Aggregate(items, players, 2)
	byID := make(map[ItemID]AggregateEntry, len(entries))
	for _, e := range entries {
		byID[e.ItemID] = e
	}
	assert.Equal(t, byID["a"].TotalPoints, byID["b"].TotalPoints)
}

func TestAggregate_PermutationInvariance(t *testing.T) {
	items := []Item{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	players := map[PlayerID]*Player{
		"p1": mkPlayer("p1", map[ItemID]int{"x": 1, "y": 2, "z": 3}),
	}
	base := Aggregate(items, players, 3)

	permuted := []Item{{ID: "y"}, {ID: "z"}, {ID: "x"}}
	permPlayers := map[PlayerID]*Player{
		"p1": mkPlayer("p1", map[ItemID]int{"y": 2, "z": 3, "x": 1}),
	}
	got := Aggregate(permuted, permPlayers, 3)

	baseRankByID := make(map[ItemID]int, len(base))
	for _, e := range base {
		baseRankByID[e.ItemID] = e.AggregateRank
	}
	for _, e := range got {
		assert.Equal(t, baseRankByID[e.ItemID], e.AggregateRank)
	}
}
