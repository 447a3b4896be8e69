package room

import "sort"

// AggregateEntry is one item's position in the final aggregate ranking
// (§4.7).
type AggregateEntry struct {
	ItemID       ItemID
	TotalPoints  int
	AverageRank  float64
	AggregateRank int
}

// Aggregate computes the final per-item ranking from every player's
// per-item ranks (C7, §4.7). items must be in original submission order;
// players is the full player map. The algorithm is a pure function of its
// inputs: no locking, no I/O.
//
// For each item, points are summed over players as (itemsPerGame+1-rank),
// a missing rank contributing 0. Items are sorted by
// (-totalPoints, averageRankAscending, originalSubmissionOrderAscending)
// and assigned aggregate ranks 1..N in that order.
func Aggregate(items []Item, players map[PlayerID]*Player, itemsPerGame int) []AggregateEntry {
	order := make(map[ItemID]int, len(items))
	for i, it := range items {
		order[it.ID] = i
	}

	entries := make([]AggregateEntry, len(items))
	for i, it := range items {
		var total, rankSum, rankCount int
		for _, p := range players {
			rank, ok := p.Rankings[it.ID]
			if !ok {
				continue
			}
			total += itemsPerGame + 1 - rank
			rankSum += rank
			rankCount++
		}
		avg := 0.0
		if rankCount > 0 {
			avg = float64(rankSum) / float64(rankCount)
		}
		entries[i] = AggregateEntry{ItemID: it.ID, TotalPoints: total, AverageRank: avg}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.AverageRank != b.AverageRank {
			return a.AverageRank < b.AverageRank
		}
		return order[a.ItemID] < order[b.ItemID]
	})

	for i := range entries {
		entries[i].AggregateRank = i + 1
	}
	return entries
}
