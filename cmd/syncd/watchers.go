package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/dispatcher"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/projector"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/views"
)

type (
	// Viewer is the address of the connected wallet.
	Viewer string

	WatcherParams struct {
		fx.In
		Lifecycle fx.Lifecycle
		Logger    *zap.Logger
		Service   *views.Service
		Viewer    Viewer
	}

	closer interface {
		Close()
	}
)

// RegisterWatchers opens every live view of the viewer once the app started
// and closes them when it stops.
func RegisterWatchers(params WatcherParams) {
	logger := log.WithPackage(params.Logger).With(zap.String("viewer", string(params.Viewer)))
	var opened []closer

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			opened, err = openViews(params.Service, string(params.Viewer), logger)
			if err != nil {
				closeAll(opened)
				return xerrors.Errorf("failed to open views: %w", err)
			}

			logger.Info("watching views", zap.Int("views", len(opened)))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			closeAll(opened)
			return nil
		},
	})
}

func openViews(s *views.Service, viewer string, logger *zap.Logger) ([]closer, error) {
	var opened []closer
	add := func(view closer, err error) error {
		if err != nil {
			return err
		}
		opened = append(opened, view)
		return nil
	}

	if err := add(s.WatchConversations(viewer, func(snapshot dispatcher.Snapshot[[]*projector.Conversation]) {
		report(logger, "conversations", snapshot, func(conversations []*projector.Conversation) []zap.Field {
			unread := 0
			for _, c := range conversations {
				unread += c.UnreadCount
			}
			return []zap.Field{zap.Int("conversations", len(conversations)), zap.Int("unread", unread)}
		})
	})); err != nil {
		return opened, err
	}

	if err := add(s.WatchMatches(viewer, func(snapshot dispatcher.Snapshot[[]*projector.Match]) {
		report(logger, "matches", snapshot, func(matches []*projector.Match) []zap.Field {
			return []zap.Field{zap.Int("matches", len(matches))}
		})
	})); err != nil {
		return opened, err
	}

	if err := add(s.WatchProfiles(viewer, func(snapshot dispatcher.Snapshot[[]*projector.Profile]) {
		report(logger, "profiles", snapshot, func(profiles []*projector.Profile) []zap.Field {
			return []zap.Field{zap.Int("unswiped", len(profiles))}
		})
	})); err != nil {
		return opened, err
	}

	if err := add(s.WatchNFTs(viewer, func(snapshot dispatcher.Snapshot[[]*projector.NFT]) {
		report(logger, "nfts", snapshot, func(nfts []*projector.NFT) []zap.Field {
			return []zap.Field{zap.Int("nfts", len(nfts))}
		})
	})); err != nil {
		return opened, err
	}

	if err := add(s.WatchBalance(viewer, func(snapshot dispatcher.Snapshot[*projector.Balance]) {
		report(logger, "balance", snapshot, func(balance *projector.Balance) []zap.Field {
			return []zap.Field{zap.Float64("sui", balance.SUI())}
		})
	})); err != nil {
		return opened, err
	}

	if err := add(s.WatchLeaderboard(func(snapshot dispatcher.Snapshot[[]*projector.LeaderboardEntry]) {
		report(logger, "leaderboard", snapshot, func(entries []*projector.LeaderboardEntry) []zap.Field {
			fields := []zap.Field{zap.Int("players", len(entries))}
			if len(entries) > 0 {
				fields = append(fields, zap.String("leader", entries[0].Player))
			}
			return fields
		})
	})); err != nil {
		return opened, err
	}

	if err := add(s.WatchTriviaQuestion(func(snapshot dispatcher.Snapshot[*projector.TriviaQuestion]) {
		report(logger, "trivia_question", snapshot, func(question *projector.TriviaQuestion) []zap.Field {
			if question == nil {
				return []zap.Field{zap.Bool("active", false)}
			}
			return []zap.Field{zap.Uint64("id", question.ID), zap.Bool("active", question.IsActive)}
		})
	})); err != nil {
		return opened, err
	}

	if err := add(s.WatchDiceStats(func(snapshot dispatcher.Snapshot[*projector.DiceStats]) {
		report(logger, "dice", snapshot, func(stats *projector.DiceStats) []zap.Field {
			return []zap.Field{zap.Uint64("games", stats.TotalGames), zap.Float64("win_rate", stats.WinRate)}
		})
	})); err != nil {
		return opened, err
	}

	return opened, nil
}

func report[T any](logger *zap.Logger, name string, snapshot dispatcher.Snapshot[T], summarize func(T) []zap.Field) {
	logger = logger.With(zap.String("view", name))
	if snapshot.Err != nil {
		logger.Warn("view failed to refresh", zap.Error(snapshot.Err))
		return
	}

	logger.Info("view changed", summarize(snapshot.Data)...)
}

func closeAll(views []closer) {
	for _, view := range views {
		view.Close()
	}
}
