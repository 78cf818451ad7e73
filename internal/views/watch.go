package views

import (
	"context"

	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/cache"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/dispatcher"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/projector"
)

// The Watch methods register live views on the dispatcher. onChange may be nil.
// The caller closes the returned view when it is no longer displayed.

func (s *Service) WatchConversations(viewer string, onChange func(dispatcher.Snapshot[[]*projector.Conversation])) (*dispatcher.View[[]*projector.Conversation], error) {
	viewer, err := normalizeAddress("viewer", viewer)
	if err != nil {
		return nil, err
	}

	return watch(s, dispatcher.Spec[[]*projector.Conversation]{
		Name:         "conversations:" + viewer,
		Keys:         []string{cache.MessagesKey(viewer)},
		PollInterval: s.config.Dispatcher.PollInterval.Conversations,
		EventTypes:   s.eventTypes(event.KindMessageSent, event.KindMessageRead),
		Concerns:     s.messageConcerns(viewer),
		Load: func(ctx context.Context) ([]*projector.Conversation, error) {
			return s.Conversations(ctx, viewer)
		},
		OnChange: onChange,
	})
}

func (s *Service) WatchThread(viewer string, partner string, onChange func(dispatcher.Snapshot[[]*projector.Message])) (*dispatcher.View[[]*projector.Message], error) {
	viewer, err := normalizeAddress("viewer", viewer)
	if err != nil {
		return nil, err
	}

	partner, err = normalizeAddress("partner", partner)
	if err != nil {
		return nil, err
	}

	return watch(s, dispatcher.Spec[[]*projector.Message]{
		Name:         "thread:" + viewer + ":" + partner,
		Keys:         []string{cache.MessagesKey(viewer)},
		PollInterval: s.config.Dispatcher.PollInterval.Thread,
		EventTypes:   s.eventTypes(event.KindMessageSent, event.KindMessageRead),
		Concerns:     s.messageConcerns(viewer),
		Load: func(ctx context.Context) ([]*projector.Message, error) {
			return s.Thread(ctx, viewer, partner)
		},
		OnChange: onChange,
	})
}

func (s *Service) WatchMatches(viewer string, onChange func(dispatcher.Snapshot[[]*projector.Match])) (*dispatcher.View[[]*projector.Match], error) {
	viewer, err := normalizeAddress("viewer", viewer)
	if err != nil {
		return nil, err
	}

	return watch(s, dispatcher.Spec[[]*projector.Match]{
		Name:         "matches:" + viewer,
		Keys:         []string{cache.SwipesKey, cache.MatchEventsKey, cache.MatchesKey(viewer)},
		PollInterval: s.config.Dispatcher.PollInterval.Matches,
		EventTypes:   s.eventTypes(event.KindSwipeEvent, event.KindMatchCreated),
		Concerns:     concerns(viewer),
		Load: func(ctx context.Context) ([]*projector.Match, error) {
			return s.Matches(ctx, viewer)
		},
		OnChange: onChange,
	})
}

// WatchProfiles follows the unswiped discovery feed. Any registration may change it.
func (s *Service) WatchProfiles(viewer string, onChange func(dispatcher.Snapshot[[]*projector.Profile])) (*dispatcher.View[[]*projector.Profile], error) {
	viewer, err := normalizeAddress("viewer", viewer)
	if err != nil {
		return nil, err
	}

	return watch(s, dispatcher.Spec[[]*projector.Profile]{
		Name:         "profiles:" + viewer,
		Keys:         []string{cache.RegistrationsKey, cache.ProfilesFeedKey(viewer), cache.SwipesKey},
		PollInterval: s.config.Dispatcher.PollInterval.Profiles,
		EventTypes:   s.eventTypes(event.KindUserRegistered),
		Load: func(ctx context.Context) ([]*projector.Profile, error) {
			return s.UnswipedProfiles(ctx, viewer)
		},
		OnChange: onChange,
	})
}

func (s *Service) WatchLeaderboard(onChange func(dispatcher.Snapshot[[]*projector.LeaderboardEntry])) (*dispatcher.View[[]*projector.LeaderboardEntry], error) {
	return watch(s, dispatcher.Spec[[]*projector.LeaderboardEntry]{
		Name:         "trivia:leaderboard",
		Keys:         []string{cache.TriviaLeaderboardKey},
		PollInterval: s.config.Dispatcher.PollInterval.Leaderboard,
		EventTypes:   s.eventTypes(event.KindQuestionAnswered),
		Load:         s.TriviaLeaderboard,
		OnChange:     onChange,
	})
}

func (s *Service) WatchTriviaQuestion(onChange func(dispatcher.Snapshot[*projector.TriviaQuestion])) (*dispatcher.View[*projector.TriviaQuestion], error) {
	return watch(s, dispatcher.Spec[*projector.TriviaQuestion]{
		Name:         "trivia:question",
		Keys:         []string{cache.TriviaQuestionKey, cache.TriviaStatsKey},
		PollInterval: s.config.Dispatcher.PollInterval.TriviaQuestion,
		EventTypes:   s.eventTypes(event.KindQuestionAnswered),
		Load:         s.TriviaQuestion,
		OnChange:     onChange,
	})
}

func (s *Service) WatchDiceStats(onChange func(dispatcher.Snapshot[*projector.DiceStats])) (*dispatcher.View[*projector.DiceStats], error) {
	return watch(s, dispatcher.Spec[*projector.DiceStats]{
		Name:         "game:dice",
		Keys:         []string{cache.GameStatsKey(cache.GameDice)},
		PollInterval: s.config.Dispatcher.PollInterval.GameStats,
		EventTypes:   s.eventTypes(event.KindDiceRolled),
		Load:         s.DiceStats,
		OnChange:     onChange,
	})
}

func (s *Service) WatchNFTs(owner string, onChange func(dispatcher.Snapshot[[]*projector.NFT])) (*dispatcher.View[[]*projector.NFT], error) {
	owner, err := normalizeAddress("owner", owner)
	if err != nil {
		return nil, err
	}

	return watch(s, dispatcher.Spec[[]*projector.NFT]{
		Name:         "nfts:" + owner,
		Keys:         []string{cache.NFTsKey(owner)},
		PollInterval: s.config.Dispatcher.PollInterval.NFTs,
		EventTypes:   s.eventTypes(event.KindNFTMinted, event.KindNFTTransferred),
		Concerns:     concerns(owner),
		Load: func(ctx context.Context) ([]*projector.NFT, error) {
			return s.NFTs(ctx, owner)
		},
		OnChange: onChange,
	})
}

// WatchBalance is polled only: coin movements emit no Move event.
func (s *Service) WatchBalance(owner string, onChange func(dispatcher.Snapshot[*projector.Balance])) (*dispatcher.View[*projector.Balance], error) {
	owner, err := normalizeAddress("owner", owner)
	if err != nil {
		return nil, err
	}

	return watch(s, dispatcher.Spec[*projector.Balance]{
		Name:         "balance:" + owner,
		Keys:         []string{cache.BalanceKey(owner)},
		PollInterval: s.config.Dispatcher.PollInterval.Balance,
		Load: func(ctx context.Context) (*projector.Balance, error) {
			return s.Balance(ctx, owner)
		},
		OnChange: onChange,
	})
}

func watch[T any](s *Service, spec dispatcher.Spec[T]) (*dispatcher.View[T], error) {
	view, err := dispatcher.Watch(s.dispatcher, spec)
	if err != nil {
		return nil, xerrors.Errorf("failed to watch %v: %w", spec.Name, err)
	}

	return view, nil
}

// messageConcerns also accepts the receipts of messages the viewer sent. A receipt names
// only its reader, so the sender is looked up in the viewer's cached messages.
func (s *Service) messageConcerns(viewer string) func(e *event.RawEvent) bool {
	return func(e *event.RawEvent) bool {
		if event.Concerns(e, viewer) {
			return true
		}

		payload, err := event.Decode(e)
		if err != nil {
			return false
		}

		read, ok := payload.(*event.MessageRead)
		return ok && s.cachedSender(viewer, read.MessageID) == viewer
	}
}

func concerns(address string) func(e *event.RawEvent) bool {
	return func(e *event.RawEvent) bool {
		return event.Concerns(e, address)
	}
}
