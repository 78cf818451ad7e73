package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/utils"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/views"
)

var (
	socialFlags struct {
		viewer  string
		partner string
	}

	conversationsCmd = &cobra.Command{
		Use:   "conversations",
		Short: "List the conversations of a wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(s *views.Service) error {
				conversations, err := s.Conversations(context.Background(), socialFlags.viewer)
				if err != nil {
					return err
				}

				if ok, err := printJSON(conversations); ok {
					return err
				}

				header("%d conversations", len(conversations))
				for _, c := range conversations {
					unread := ""
					if c.UnreadCount > 0 {
						unread = color.YellowString(" (%d unread)", c.UnreadCount)
					}
					row(c.PartnerName, fmt.Sprintf("%v %v%v", color.HiBlackString(c.RelativeTime), c.LastMessage, unread))
				}
				return nil
			})
		},
	}

	threadCmd = &cobra.Command{
		Use:   "thread",
		Short: "Print the messages exchanged with a partner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(s *views.Service) error {
				messages, err := s.Thread(context.Background(), socialFlags.viewer, socialFlags.partner)
				if err != nil {
					return err
				}

				if ok, err := printJSON(messages); ok {
					return err
				}

				partner, err := utils.NormalizeAddress(socialFlags.partner)
				if err != nil {
					return err
				}

				header("%d messages", len(messages))
				for _, m := range messages {
					who := color.GreenString("them")
					if m.Sender != partner {
						who = color.BlueString("you")
					}
					row(m.SentAt.Format("Jan 2 15:04"), fmt.Sprintf("%v: %v", who, m.Content))
				}
				return nil
			})
		},
	}

	profilesCmd = &cobra.Command{
		Use:   "profiles",
		Short: "List the profiles a wallet has not swiped yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(s *views.Service) error {
				profiles, err := s.UnswipedProfiles(context.Background(), socialFlags.viewer)
				if err != nil {
					return err
				}

				if ok, err := printJSON(profiles); ok {
					return err
				}

				header("%d profiles", len(profiles))
				for _, p := range profiles {
					name := p.Name
					if p.IsDemo {
						name += color.HiBlackString(" (demo)")
					}
					row(name, fmt.Sprintf("%d, %v", p.Age, p.Location))
				}
				return nil
			})
		},
	}

	matchesCmd = &cobra.Command{
		Use:   "matches",
		Short: "List the matches of a wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(s *views.Service) error {
				matches, err := s.Matches(context.Background(), socialFlags.viewer)
				if err != nil {
					return err
				}

				if ok, err := printJSON(matches); ok {
					return err
				}

				header("%d matches", len(matches))
				for _, m := range matches {
					row(m.Partner, m.CreatedAt.Format("Jan 2 15:04"))
				}
				return nil
			})
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{conversationsCmd, threadCmd, profilesCmd, matchesCmd} {
		cmd.Flags().StringVar(&socialFlags.viewer, "viewer", "", "wallet address")
		_ = cmd.MarkFlagRequired("viewer")
		rootCmd.AddCommand(cmd)
	}

	threadCmd.Flags().StringVar(&socialFlags.partner, "partner", "", "partner address")
	_ = threadCmd.MarkFlagRequired("partner")
}
