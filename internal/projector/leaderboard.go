package projector

import (
	"math"
	"sort"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
)

type (
	LeaderboardEntry struct {
		Player         string
		CorrectAnswers uint64
		TotalAttempts  uint64
		TotalEarnings  uint64
		Streak         uint64
		BestStreak     uint64
		// Accuracy is CorrectAnswers / TotalAttempts in percent, rounded to one decimal.
		Accuracy float64
	}

	DiceLeaderboardEntry struct {
		Player        string
		TotalWinnings uint64
		GamesPlayed   uint64
		BiggestWin    uint64
	}

	DiceStats struct {
		HouseBalance uint64
		TotalGames   uint64
		TotalWins    uint64
		// WinRate is TotalWins / TotalGames in percent, rounded to two decimals.
		WinRate     float64
		Paused      bool
		Leaderboard []*DiceLeaderboardEntry
	}
)

// ProjectTriviaLeaderboard merges the entries of every player, in first-seen order,
// and stable-sorts them by TotalEarnings descending.
// Counters are summed; Streak is the last seen value and BestStreak the maximum.
func ProjectTriviaLeaderboard(entries []*LeaderboardEntry) []*LeaderboardEntry {
	players := make(map[string]*LeaderboardEntry, len(entries))
	result := make([]*LeaderboardEntry, 0, len(entries))
	for _, entry := range entries {
		merged, ok := players[entry.Player]
		if !ok {
			merged = &LeaderboardEntry{Player: entry.Player}
			players[entry.Player] = merged
			result = append(result, merged)
		}

		merged.CorrectAnswers += entry.CorrectAnswers
		merged.TotalAttempts += entry.TotalAttempts
		merged.TotalEarnings += entry.TotalEarnings
		merged.Streak = entry.Streak
		if entry.BestStreak > merged.BestStreak {
			merged.BestStreak = entry.BestStreak
		}
		if merged.Streak > merged.BestStreak {
			merged.BestStreak = merged.Streak
		}
	}

	for _, entry := range result {
		entry.Accuracy = percentage(entry.CorrectAnswers, entry.TotalAttempts, 1)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TotalEarnings > result[j].TotalEarnings
	})

	return result
}

// TriviaEntriesFromHub reads the per-player stats kept in the leaderboard of the trivia hub.
func TriviaEntriesFromHub(hub *client.Object) []*LeaderboardEntry {
	if hub == nil || !hub.Exists {
		return nil
	}

	elements := hub.Elements("leaderboard")
	entries := make([]*LeaderboardEntry, 0, len(elements))
	for _, element := range elements {
		entries = append(entries, &LeaderboardEntry{
			Player:         element.String("player"),
			CorrectAnswers: element.U64("correct_answers"),
			TotalAttempts:  element.U64("total_attempts"),
			TotalEarnings:  element.U64("total_earnings"),
			Streak:         element.U64("streak"),
			BestStreak:     element.U64("best_streak"),
		})
	}

	return entries
}

// TriviaEntriesFromEvents turns QuestionAnswered events, in ascending ledger order,
// into one entry per answer. Streaks count consecutive correct answers per player.
func (p *Projector) TriviaEntriesFromEvents(events []*event.RawEvent) []*LeaderboardEntry {
	answers := decodeAll[event.QuestionAnswered](p, events)
	streaks := make(map[string]uint64)
	entries := make([]*LeaderboardEntry, 0, len(answers))
	for _, d := range answers {
		entry := &LeaderboardEntry{
			Player:        d.payload.Player,
			TotalAttempts: 1,
		}

		if d.payload.Correct {
			streaks[d.payload.Player]++
			entry.CorrectAnswers = 1
			entry.TotalEarnings = uint64(d.payload.Reward)
		} else {
			streaks[d.payload.Player] = 0
		}

		entry.Streak = streaks[d.payload.Player]
		entry.BestStreak = entry.Streak
		entries = append(entries, entry)
	}

	return entries
}

// ProjectDiceStats reads the dice house object.
// The leaderboard is stable-sorted by TotalWinnings descending.
func ProjectDiceStats(house *client.Object) *DiceStats {
	if house == nil || !house.Exists {
		return &DiceStats{Leaderboard: []*DiceLeaderboardEntry{}}
	}

	elements := house.Elements("leaderboard")
	leaderboard := make([]*DiceLeaderboardEntry, 0, len(elements))
	for _, element := range elements {
		leaderboard = append(leaderboard, &DiceLeaderboardEntry{
			Player:        element.String("player"),
			TotalWinnings: element.U64("total_winnings"),
			GamesPlayed:   element.U64("games_played"),
			BiggestWin:    element.U64("biggest_win"),
		})
	}

	sort.SliceStable(leaderboard, func(i, j int) bool {
		return leaderboard[i].TotalWinnings > leaderboard[j].TotalWinnings
	})

	stats := &DiceStats{
		HouseBalance: house.U64("balance"),
		TotalGames:   house.U64("total_games"),
		TotalWins:    house.U64("total_wins"),
		Paused:       house.Bool("paused"),
		Leaderboard:  leaderboard,
	}
	stats.WinRate = percentage(stats.TotalWins, stats.TotalGames, 2)
	return stats
}

// percentage returns part / total * 100 rounded to the given number of decimals, 0 when total is 0.
func percentage(part uint64, total uint64, decimals int) float64 {
	if total == 0 {
		return 0
	}

	scale := math.Pow(10, float64(decimals))
	return math.Round(float64(part)/float64(total)*100*scale) / scale
}
