package projector

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

func TestProjectTriviaLeaderboard(t *testing.T) {
	require := testutil.Require(t)

	entries := []*LeaderboardEntry{
		{Player: alice, CorrectAnswers: 1, TotalAttempts: 3, TotalEarnings: 100, Streak: 1, BestStreak: 1},
		{Player: bob, CorrectAnswers: 0, TotalAttempts: 0, TotalEarnings: 500},
		{Player: carol, CorrectAnswers: 2, TotalAttempts: 2, TotalEarnings: 300, Streak: 2, BestStreak: 2},
		{Player: alice, CorrectAnswers: 1, TotalAttempts: 1, TotalEarnings: 200, Streak: 0, BestStreak: 3},
		{Player: dave, CorrectAnswers: 1, TotalAttempts: 2, TotalEarnings: 300},
	}

	leaderboard := ProjectTriviaLeaderboard(entries)
	require.Equal([]*LeaderboardEntry{
		{Player: bob, TotalEarnings: 500, Accuracy: 0},
		{Player: alice, CorrectAnswers: 2, TotalAttempts: 4, TotalEarnings: 300, Streak: 0, BestStreak: 3, Accuracy: 50},
		{Player: carol, CorrectAnswers: 2, TotalAttempts: 2, TotalEarnings: 300, Streak: 2, BestStreak: 2, Accuracy: 100},
		{Player: dave, CorrectAnswers: 1, TotalAttempts: 2, TotalEarnings: 300, Accuracy: 50},
	}, leaderboard)

	// The input is left untouched.
	require.Equal(uint64(100), entries[0].TotalEarnings)
	require.Empty(cmp.Diff(leaderboard, ProjectTriviaLeaderboard(entries)))
}

func TestProjectTriviaLeaderboard_Accuracy(t *testing.T) {
	require := testutil.Require(t)

	leaderboard := ProjectTriviaLeaderboard([]*LeaderboardEntry{
		{Player: alice, CorrectAnswers: 1, TotalAttempts: 3},
		{Player: bob, CorrectAnswers: 2, TotalAttempts: 3},
	})
	require.Equal(33.3, leaderboard[0].Accuracy)
	require.Equal(66.7, leaderboard[1].Accuracy)
}

func TestTriviaEntriesFromHub(t *testing.T) {
	require := testutil.Require(t)

	hub := newObject("0xhub", `{"leaderboard": [
		{"type": "trivia_game::PlayerStats", "fields": {"player": "`+alice+`", "correct_answers": "4", "total_attempts": "5", "total_earnings": "4000", "streak": "2", "best_streak": "3"}},
		{"type": "trivia_game::PlayerStats", "fields": {"player": "`+bob+`", "correct_answers": "1", "total_attempts": "1", "total_earnings": "9000", "streak": "1", "best_streak": "1"}}
	]}`)

	leaderboard := ProjectTriviaLeaderboard(TriviaEntriesFromHub(hub))
	require.Len(leaderboard, 2)
	require.Equal(bob, leaderboard[0].Player)
	require.Equal(100.0, leaderboard[0].Accuracy)
	require.Equal(alice, leaderboard[1].Player)
	require.Equal(80.0, leaderboard[1].Accuracy)
	require.Equal(uint64(3), leaderboard[1].BestStreak)

	require.Empty(TriviaEntriesFromHub(nil))
}

func TestTriviaEntriesFromEvents(t *testing.T) {
	require := testutil.Require(t)

	p, _ := newTestProjector()
	b := &eventBuilder{}
	entries := p.TriviaEntriesFromEvents([]*event.RawEvent{
		b.answered(alice, true, 10),
		b.answered(alice, true, 10),
		b.answered(bob, false, 0),
		b.answered(alice, true, 10),
		b.answered(alice, false, 0),
		b.malformed(event.KindQuestionAnswered),
	})
	require.Len(entries, 5)

	leaderboard := ProjectTriviaLeaderboard(entries)
	require.Equal([]*LeaderboardEntry{
		{Player: alice, CorrectAnswers: 3, TotalAttempts: 4, TotalEarnings: 30, Streak: 0, BestStreak: 3, Accuracy: 75},
		{Player: bob, CorrectAnswers: 0, TotalAttempts: 1, Accuracy: 0},
	}, leaderboard)
}

func TestProjectDiceStats(t *testing.T) {
	require := testutil.Require(t)

	house := newObject("0xhouse", `{
		"balance": "5000000000",
		"total_games": "8",
		"total_wins": "3",
		"paused": false,
		"leaderboard": [
			{"player": "`+alice+`", "total_winnings": "100", "games_played": "4", "biggest_win": "60"},
			{"player": "`+bob+`", "total_winnings": "250", "games_played": "2", "biggest_win": "250"},
			{"player": "`+carol+`", "total_winnings": "100", "games_played": "2", "biggest_win": "100"}
		]
	}`)

	stats := ProjectDiceStats(house)
	require.Equal(&DiceStats{
		HouseBalance: 5_000_000_000,
		TotalGames:   8,
		TotalWins:    3,
		WinRate:      37.5,
		Leaderboard: []*DiceLeaderboardEntry{
			{Player: bob, TotalWinnings: 250, GamesPlayed: 2, BiggestWin: 250},
			{Player: alice, TotalWinnings: 100, GamesPlayed: 4, BiggestWin: 60},
			{Player: carol, TotalWinnings: 100, GamesPlayed: 2, BiggestWin: 100},
		},
	}, stats)
}

func TestProjectDiceStats_NoGames(t *testing.T) {
	require := testutil.Require(t)

	stats := ProjectDiceStats(newObject("0xhouse", `{"balance": "0", "total_games": "0", "total_wins": "0", "paused": true}`))
	require.Equal(0.0, stats.WinRate)
	require.True(stats.Paused)
	require.Empty(stats.Leaderboard)

	require.Equal(0.0, ProjectDiceStats(nil).WinRate)
}

func TestPercentage(t *testing.T) {
	require := testutil.Require(t)

	require.Equal(0.0, percentage(5, 0, 2))
	require.Equal(66.67, percentage(2, 3, 2))
	require.Equal(66.7, percentage(2, 3, 1))
	require.Equal(100.0, percentage(3, 3, 1))
}
