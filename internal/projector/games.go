package projector

import (
	"time"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
)

type (
	TriviaQuestion struct {
		ID              uint64
		Question        string
		Options         []string
		RewardPool      uint64
		ActiveUntil     time.Time
		TotalAttempts   uint64
		CorrectAttempts uint64
		IsActive        bool
		TimeRemaining   time.Duration
	}

	TriviaStats struct {
		Balance                uint64
		TotalQuestionsAnswered uint64
		Paused                 bool
	}
)

// ProjectTriviaQuestion reads the current question of the trivia hub.
// It returns nil when the hub has no question; an expired question is returned with IsActive unset.
func ProjectTriviaQuestion(hub *client.Object, now time.Time) *TriviaQuestion {
	if hub == nil || !hub.Exists {
		return nil
	}

	current := hub.Option("current_question")
	if current == nil {
		return nil
	}

	question := &TriviaQuestion{
		ID:              current.U64("id"),
		Question:        current.String("question"),
		Options:         current.Strings("options"),
		RewardPool:      current.U64("reward_pool"),
		ActiveUntil:     event.U64(current.U64("active_until")).Millis(),
		TotalAttempts:   current.U64("total_attempts"),
		CorrectAttempts: current.U64("correct_attempts"),
	}
	if question.Options == nil {
		question.Options = []string{}
	}

	if question.ActiveUntil.After(now) {
		question.IsActive = true
		question.TimeRemaining = question.ActiveUntil.Sub(now)
	}

	return question
}

func ProjectTriviaStats(hub *client.Object) *TriviaStats {
	if hub == nil || !hub.Exists {
		return &TriviaStats{}
	}

	return &TriviaStats{
		Balance:                hub.U64("balance"),
		TotalQuestionsAnswered: hub.U64("total_questions_answered"),
		Paused:                 hub.Bool("paused"),
	}
}
