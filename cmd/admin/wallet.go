package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/views"
)

var (
	walletFlags struct {
		owner string
		group string
	}

	nftsCmd = &cobra.Command{
		Use:   "nfts",
		Short: "List the NFTs held by a wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(s *views.Service) error {
				nfts, err := s.NFTs(context.Background(), walletFlags.owner)
				if err != nil {
					return err
				}

				if ok, err := printJSON(nfts); ok {
					return err
				}

				header("%d nfts", len(nfts))
				for _, nft := range nfts {
					row(nft.Name, fmt.Sprintf("%v %v", nft.ObjectID, nft.ImageURL))
				}
				return nil
			})
		},
	}

	balanceCmd = &cobra.Command{
		Use:   "balance",
		Short: "Print the SUI balance of a wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(s *views.Service) error {
				balance, err := s.Balance(context.Background(), walletFlags.owner)
				if err != nil {
					return err
				}

				if ok, err := printJSON(balance); ok {
					return err
				}

				header("balance of %v", balance.Owner)
				row("total", mist(balance.TotalBalance))
				row("coins", balance.CoinObjectCount)
				return nil
			})
		},
	}

	groupCmd = &cobra.Command{
		Use:   "group",
		Short: "Print a group chat, or the group registry without --group",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(s *views.Service) error {
				ctx := context.Background()
				if walletFlags.group == "" {
					stats, err := s.GroupRegistry(ctx)
					if err != nil {
						return err
					}

					if ok, err := printJSON(stats); ok {
						return err
					}

					header("group registry")
					row("groups", stats.TotalGroups)
					row("messages", stats.TotalMessages)
					return nil
				}

				group, err := s.Group(ctx, walletFlags.group)
				if err != nil {
					return err
				}

				if ok, err := printJSON(group); ok {
					return err
				}

				header("%v", group.Name)
				row("description", group.Description)
				row("creator", group.Creator)
				row("members", fmt.Sprintf("%d/%d", group.MemberCount, group.MaxMembers))
				row("public", group.IsPublic)
				return nil
			})
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{nftsCmd, balanceCmd} {
		cmd.Flags().StringVar(&walletFlags.owner, "owner", "", "wallet address")
		_ = cmd.MarkFlagRequired("owner")
		rootCmd.AddCommand(cmd)
	}

	groupCmd.Flags().StringVar(&walletFlags.group, "group", "", "group object id")
	rootCmd.AddCommand(groupCmd)
}
