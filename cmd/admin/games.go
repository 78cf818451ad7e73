package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/views"
)

var (
	leaderboardCmd = &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the trivia leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(s *views.Service) error {
				entries, err := s.TriviaLeaderboard(context.Background())
				if err != nil {
					return err
				}

				if ok, err := printJSON(entries); ok {
					return err
				}

				header("%d players", len(entries))
				for i, e := range entries {
					row(fmt.Sprintf("#%d", i+1), fmt.Sprintf("%v %v %.1f%% (%d/%d)", e.Player, mist(e.TotalEarnings), e.Accuracy, e.CorrectAnswers, e.TotalAttempts))
				}
				return nil
			})
		},
	}

	triviaCmd = &cobra.Command{
		Use:   "trivia",
		Short: "Print the current trivia question and the hub stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(s *views.Service) error {
				ctx := context.Background()
				question, err := s.TriviaQuestion(ctx)
				if err != nil {
					return err
				}

				stats, err := s.TriviaStats(ctx)
				if err != nil {
					return err
				}

				if ok, err := printJSON(map[string]any{"question": question, "stats": stats}); ok {
					return err
				}

				header("trivia")
				row("balance", mist(stats.Balance))
				row("answered", stats.TotalQuestionsAnswered)
				row("paused", stats.Paused)
				if question == nil {
					row("question", color.HiBlackString("none"))
					return nil
				}

				status := color.GreenString("active, %v left", question.TimeRemaining)
				if !question.IsActive {
					status = color.RedString("expired")
				}
				row("question", fmt.Sprintf("#%d %v (%v)", question.ID, question.Question, status))
				for i, option := range question.Options {
					row(fmt.Sprintf("  %d", i), option)
				}
				return nil
			})
		},
	}

	diceCmd = &cobra.Command{
		Use:   "dice",
		Short: "Print the dice house stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(s *views.Service) error {
				stats, err := s.DiceStats(context.Background())
				if err != nil {
					return err
				}

				if ok, err := printJSON(stats); ok {
					return err
				}

				header("dice house")
				row("balance", mist(stats.HouseBalance))
				row("games", stats.TotalGames)
				row("win rate", fmt.Sprintf("%.2f%%", stats.WinRate))
				row("paused", stats.Paused)
				for i, e := range stats.Leaderboard {
					row(fmt.Sprintf("#%d", i+1), fmt.Sprintf("%v %v in %d games", e.Player, mist(e.TotalWinnings), e.GamesPlayed))
				}
				return nil
			})
		},
	}
)

func init() {
	rootCmd.AddCommand(leaderboardCmd, triviaCmd, diceCmd)
}
