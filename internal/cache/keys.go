package cache

import (
	"strings"
)

// Keys are stable across processes and never collide between families.
const (
	TriviaQuestionKey    = "trivia:current-question"
	TriviaLeaderboardKey = "trivia:leaderboard"
	TriviaStatsKey       = "trivia:stats"
	GroupRegistryKey     = "group:registry"
	SwipesKey            = "swipes:all"
	MatchEventsKey       = "matches:events"
	RegistrationsKey     = "profiles:registrations"
)

const (
	GameDice   = "dice"
	GameTrivia = "trivia"
)

func GameStatsKey(gameType string) string {
	return "game:stats:" + gameType
}

func NFTsKey(owner string) string {
	return "nfts:" + normalize(owner)
}

func BalanceKey(owner string) string {
	return "balance:" + normalize(owner)
}

func MessagesKey(viewer string) string {
	return "messages:" + normalize(viewer)
}

func GroupKey(groupID string) string {
	return "group:" + normalize(groupID)
}

// ProfileKey caches one resolved profile object.
func ProfileKey(profileID string) string {
	return "profile:" + normalize(profileID)
}

// ProfilesFeedKey caches the discovery feed of a viewer, which never contains the viewer.
func ProfilesFeedKey(viewer string) string {
	return "profiles:feed:" + normalize(viewer)
}

func MatchesKey(viewer string) string {
	return "matches:" + normalize(viewer)
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
