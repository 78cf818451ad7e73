package projector

import (
	"testing"
	"time"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

func TestProjectTriviaQuestion(t *testing.T) {
	require := testutil.Require(t)

	activeUntil := now.Add(90 * time.Second)
	hub := newObject("0xhub", `{
		"balance": "700",
		"total_questions_answered": "12",
		"paused": false,
		"current_question": {"vec": [{"type": "trivia_game::Question", "fields": {
			"id": "3",
			"question": "What is the native token of Sui?",
			"options": ["ETH", "SUI", "SOL", "APT"],
			"reward_pool": "500",
			"active_until": "`+millis(activeUntil)+`",
			"total_attempts": "4",
			"correct_attempts": "1"
		}}]}
	}`)

	question := ProjectTriviaQuestion(hub, now)
	require.Equal(&TriviaQuestion{
		ID:              3,
		Question:        "What is the native token of Sui?",
		Options:         []string{"ETH", "SUI", "SOL", "APT"},
		RewardPool:      500,
		ActiveUntil:     activeUntil,
		TotalAttempts:   4,
		CorrectAttempts: 1,
		IsActive:        true,
		TimeRemaining:   90 * time.Second,
	}, question)

	expired := ProjectTriviaQuestion(hub, now.Add(2*time.Minute))
	require.False(expired.IsActive)
	require.Zero(expired.TimeRemaining)

	require.Equal(&TriviaStats{Balance: 700, TotalQuestionsAnswered: 12}, ProjectTriviaStats(hub))
}

func TestProjectTriviaQuestion_None(t *testing.T) {
	require := testutil.Require(t)

	require.Nil(ProjectTriviaQuestion(newObject("0xhub", `{"current_question": {"vec": []}}`), now))
	require.Nil(ProjectTriviaQuestion(newObject("0xhub", `{"current_question": null}`), now))
	require.Nil(ProjectTriviaQuestion(&client.Object{ID: "0xhub"}, now))
}

func TestProjectNFTs(t *testing.T) {
	require := testutil.Require(t)

	sunset := newObject("0xnft1", `{
		"name": "Sunset",
		"description": "raw",
		"image_url": "https://img/raw.png",
		"creator": "`+alice+`",
		"attributes": {"type": "0x2::vec_map::VecMap<String,String>", "fields": {"contents": [
			{"type": "0x2::vec_map::Entry", "fields": {"key": "mood", "value": "golden"}}
		]}}
	}`)
	sunset.Display = map[string]string{"name": "Sunset (display)", "image_url": "https://img/display.png"}
	coffee := newObject("0xnft2", `{"name": "Coffee", "url": "https://img/coffee.png"}`)

	nfts := ProjectNFTs([]*client.Object{sunset, {ID: "0xgone"}, coffee})
	require.Equal([]*NFT{
		{
			ObjectID:    "0xnft1",
			Name:        "Sunset (display)",
			Description: "raw",
			ImageURL:    "https://img/display.png",
			Creator:     alice,
			Attributes:  map[string]string{"mood": "golden"},
		},
		{
			ObjectID:   "0xnft2",
			Name:       "Coffee",
			ImageURL:   "https://img/coffee.png",
			Attributes: map[string]string{},
		},
	}, nfts)
}

func TestProjectBalance(t *testing.T) {
	require := testutil.Require(t)

	balance := ProjectBalance(&client.Balance{Owner: alice, CoinType: client.CoinTypeSUI, TotalBalance: 1_500_000_000, CoinObjectCount: 3})
	require.Equal(1.5, balance.SUI())
	require.Equal(3, balance.CoinObjectCount)
	require.Equal(0.0, ProjectBalance(nil).SUI())
}

func TestProjectGroupInfo(t *testing.T) {
	require := testutil.Require(t)

	group := newObject("0xgroup", `{
		"name": [67, 114, 101, 119],
		"description": "weekend plans",
		"creator": "`+bob+`",
		"is_public": true,
		"max_members": "50",
		"members": ["`+alice+`", "`+bob+`"]
	}`)
	require.Equal(&GroupInfo{
		ID:          "0xgroup",
		Name:        "Crew",
		Description: "weekend plans",
		Creator:     bob,
		IsPublic:    true,
		MaxMembers:  50,
		MemberCount: 2,
	}, ProjectGroupInfo(group))

	require.Equal(7, ProjectGroupInfo(newObject("0xgroup", `{"member_count": "7"}`)).MemberCount)
	require.Nil(ProjectGroupInfo(&client.Object{ID: "0xgroup"}))

	registry := newObject("0xregistry", `{"total_groups": "4", "total_messages": "120"}`)
	require.Equal(&GroupRegistryStats{TotalGroups: 4, TotalMessages: 120}, ProjectGroupRegistry(registry))
}
