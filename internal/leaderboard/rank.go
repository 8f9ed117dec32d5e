package leaderboard

import "sort"

// Rank orders entries by score, breaking ties by who reached the score
// first, then username, then user id, and assigns 1-based ranks.
func Rank(entries []Entry) []Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !sameTime(a, b) {
			switch {
			case a.LastCompletedAt == nil:
				return false
			case b.LastCompletedAt == nil:
				return true
			default:
				return a.LastCompletedAt.Before(*b.LastCompletedAt)
			}
		}
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.UserID < b.UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func sameTime(a, b Entry) bool {
	if a.LastCompletedAt == nil || b.LastCompletedAt == nil {
		return a.LastCompletedAt == nil && b.LastCompletedAt == nil
	}
	return a.LastCompletedAt.Equal(*b.LastCompletedAt)
}
