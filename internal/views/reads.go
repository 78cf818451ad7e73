package views

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/cache"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/projector"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/syncgroup"
)

// Messages returns the messages the viewer sent or received, ascending by time.
// Messages sent by this process are visible before the ledger confirms them.
func (s *Service) Messages(ctx context.Context, viewer string) ([]*projector.Message, error) {
	viewer, err := normalizeAddress("viewer", viewer)
	if err != nil {
		return nil, err
	}

	projected, err := cache.Fetch(ctx, s.cache, cache.MessagesKey(viewer), s.config.Cache.TTL.Messages, func(ctx context.Context) ([]*projector.Message, error) {
		return s.loadMessages(ctx, viewer)
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load messages of %v: %w", viewer, err)
	}

	return s.spliceMessages(viewer, projected), nil
}

func (s *Service) loadMessages(ctx context.Context, viewer string) ([]*projector.Message, error) {
	limit := s.config.Projector.MessageQueryLimit
	var sent, read []*event.RawEvent
	group, ctx := syncgroup.New(ctx)
	group.Go(func() error {
		var err error
		sent, err = s.client.QueryEvents(ctx, s.eventType(event.KindMessageSent), limit, event.Descending)
		return err
	})
	group.Go(func() error {
		var err error
		read, err = s.client.QueryEvents(ctx, s.eventType(event.KindMessageRead), limit, event.Descending)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, xerrors.Errorf("failed to query message events: %w", err)
	}

	events := make([]*event.RawEvent, 0, len(sent)+len(read))
	events = append(events, sent...)
	events = append(events, read...)

	inScope := involves(viewer)
	all := s.projector.ProjectMessages(events)
	messages := make([]*projector.Message, 0, len(all))
	for _, m := range all {
		if inScope(m) {
			messages = append(messages, m)
		}
	}

	s.messages.ReconcileWhere(messages, inScope)

	receipts := s.projector.ProjectReadReceipts(read)
	s.receipts.ReconcileWhere(receipts, func(r *projector.ReadReceipt) bool {
		return r.Reader == viewer
	})

	return messages, nil
}

// spliceMessages adds the provisional messages and receipts of the viewer to a projection.
func (s *Service) spliceMessages(viewer string, projected []*projector.Message) []*projector.Message {
	read := make(map[string]struct{})
	for _, record := range s.receipts.Pending() {
		if record.Entity.Reader == viewer {
			read[record.Entity.MessageID] = struct{}{}
		}
	}

	inScope := involves(viewer)
	spliced := s.messages.Splice(projected)
	result := make([]*projector.Message, 0, len(spliced))
	for _, m := range spliced {
		if !inScope(m) {
			continue
		}

		if _, ok := read[m.ID]; ok && !m.IsRead && m.Recipient == viewer {
			copied := *m
			copied.IsRead = true
			m = &copied
		}
		result = append(result, m)
	}

	projector.SortMessages(result)
	return result
}

// Conversations lists one entry per partner of the viewer, most recent first.
func (s *Service) Conversations(ctx context.Context, viewer string) ([]*projector.Conversation, error) {
	messages, err := s.Messages(ctx, viewer)
	if err != nil {
		return nil, err
	}

	viewer, _ = normalizeAddress("viewer", viewer)
	return projector.ProjectConversations(viewer, messages, s.partnerNames(ctx), s.timeSource.Now()), nil
}

// Thread returns the messages exchanged between the viewer and the partner.
func (s *Service) Thread(ctx context.Context, viewer string, partner string) ([]*projector.Message, error) {
	partner, err := normalizeAddress("partner", partner)
	if err != nil {
		return nil, err
	}

	messages, err := s.Messages(ctx, viewer)
	if err != nil {
		return nil, err
	}

	viewer, _ = normalizeAddress("viewer", viewer)
	return projector.ThreadWith(viewer, partner, messages), nil
}

// partnerNames maps registered addresses to their display name.
// Conversations still render with short addresses when the registrations cannot be read.
func (s *Service) partnerNames(ctx context.Context) map[string]string {
	registrations, err := s.Registrations(ctx)
	if err != nil {
		log.WithSpan(ctx, s.logger).Warn("failed to resolve partner names", zap.Error(err))
		return nil
	}

	names := make(map[string]string, len(registrations))
	for _, r := range registrations {
		if r.Name != "" {
			names[r.User] = r.Name
		}
	}

	return names
}

// Registrations returns the latest registrations, one per user.
func (s *Service) Registrations(ctx context.Context) ([]*projector.Registration, error) {
	registrations, err := cache.Fetch(ctx, s.cache, cache.RegistrationsKey, s.config.Cache.TTL.Profiles, func(ctx context.Context) ([]*projector.Registration, error) {
		events, err := s.client.QueryEvents(ctx, s.eventType(event.KindUserRegistered), s.config.Projector.RegistrationQueryLimit, event.Descending)
		if err != nil {
			return nil, err
		}

		return s.projector.ProjectRegistrations(events), nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load registrations: %w", err)
	}

	return registrations, nil
}

// Profiles returns the discovery feed of the viewer.
func (s *Service) Profiles(ctx context.Context, viewer string) ([]*projector.Profile, error) {
	viewer, err := normalizeAddress("viewer", viewer)
	if err != nil {
		return nil, err
	}

	profiles, err := cache.Fetch(ctx, s.cache, cache.ProfilesFeedKey(viewer), s.config.Cache.TTL.Profiles, func(ctx context.Context) ([]*projector.Profile, error) {
		registrations, err := s.Registrations(ctx)
		if err != nil {
			return nil, err
		}

		return s.projector.ProjectProfiles(ctx, viewer, registrations, s.resolveProfile, projector.ProfileOptions{
			Parallelism:  s.config.Projector.ResolveParallelism,
			DemoFallback: s.config.Projector.DemoProfiles,
		})
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load profiles for %v: %w", viewer, err)
	}

	return profiles, nil
}

func (s *Service) resolveProfile(ctx context.Context, profileID string) (*client.Object, error) {
	return cache.Fetch(ctx, s.cache, cache.ProfileKey(profileID), s.config.Cache.TTL.Profiles, func(ctx context.Context) (*client.Object, error) {
		return s.client.GetObject(ctx, profileID)
	})
}

// UnswipedProfiles is the feed without the profiles the viewer already swiped,
// including swipes that are still pending.
func (s *Service) UnswipedProfiles(ctx context.Context, viewer string) ([]*projector.Profile, error) {
	profiles, err := s.Profiles(ctx, viewer)
	if err != nil {
		return nil, err
	}

	swipes, err := s.Swipes(ctx)
	if err != nil {
		return nil, err
	}

	viewer, _ = normalizeAddress("viewer", viewer)
	return projector.UnswipedProfiles(viewer, profiles, swipes), nil
}

// SwipeHistory maps every address the viewer swiped to whether it was a like.
func (s *Service) SwipeHistory(ctx context.Context, viewer string) (map[string]bool, error) {
	viewer, err := normalizeAddress("viewer", viewer)
	if err != nil {
		return nil, err
	}

	swipes, err := s.Swipes(ctx)
	if err != nil {
		return nil, err
	}

	return projector.SwipeHistory(viewer, swipes), nil
}

// Swipes returns the swipe stream followed by the swipes still pending in this process.
func (s *Service) Swipes(ctx context.Context) ([]*projector.SwipeRecord, error) {
	swipes, err := s.confirmedSwipes(ctx)
	if err != nil {
		return nil, err
	}

	return s.swipes.Splice(swipes), nil
}

func (s *Service) confirmedSwipes(ctx context.Context) ([]*projector.SwipeRecord, error) {
	swipes, err := cache.Fetch(ctx, s.cache, cache.SwipesKey, s.config.Cache.TTL.Swipes, func(ctx context.Context) ([]*projector.SwipeRecord, error) {
		events, err := s.client.QueryEvents(ctx, s.eventType(event.KindSwipeEvent), s.config.Projector.SwipeQueryLimit, event.Descending)
		if err != nil {
			return nil, err
		}

		swipes := s.projector.ProjectSwipes(events)
		s.swipes.Reconcile(swipes)
		return swipes, nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load swipes: %w", err)
	}

	return swipes, nil
}

// Matches returns the matches of the viewer. Pending swipes never create a match.
func (s *Service) Matches(ctx context.Context, viewer string) ([]*projector.Match, error) {
	viewer, err := normalizeAddress("viewer", viewer)
	if err != nil {
		return nil, err
	}

	matches, err := cache.Fetch(ctx, s.cache, cache.MatchesKey(viewer), s.config.Cache.TTL.Matches, func(ctx context.Context) ([]*projector.Match, error) {
		swipes, err := s.confirmedSwipes(ctx)
		if err != nil {
			return nil, err
		}

		events, err := cache.Fetch(ctx, s.cache, cache.MatchEventsKey, s.config.Cache.TTL.Matches, func(ctx context.Context) ([]*event.RawEvent, error) {
			return s.client.QueryEvents(ctx, s.eventType(event.KindMatchCreated), s.config.Projector.MatchQueryLimit, event.Descending)
		})
		if err != nil {
			return nil, xerrors.Errorf("failed to load match events: %w", err)
		}

		return s.projector.ProjectMatches(viewer, swipes, events), nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load matches of %v: %w", viewer, err)
	}

	return matches, nil
}

// TriviaLeaderboard ranks the trivia players by earnings. The hub's own
// leaderboard is preferred; the answer stream is replayed when the hub keeps none.
func (s *Service) TriviaLeaderboard(ctx context.Context) ([]*projector.LeaderboardEntry, error) {
	entries, err := cache.Fetch(ctx, s.cache, cache.TriviaLeaderboardKey, s.config.Cache.TTL.Leaderboard, func(ctx context.Context) ([]*projector.LeaderboardEntry, error) {
		hub, err := s.getObject(ctx, s.config.Contracts.TriviaHubID)
		if err != nil {
			return nil, err
		}

		entries := projector.TriviaEntriesFromHub(hub)
		if len(entries) == 0 {
			events, err := s.client.QueryEvents(ctx, s.eventType(event.KindQuestionAnswered), s.config.Projector.AnswerQueryLimit, event.Ascending)
			if err != nil {
				return nil, err
			}
			entries = s.projector.TriviaEntriesFromEvents(events)
		}

		return projector.ProjectTriviaLeaderboard(entries), nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load trivia leaderboard: %w", err)
	}

	return entries, nil
}

// TriviaQuestion returns the current question, or nil when the hub has none.
func (s *Service) TriviaQuestion(ctx context.Context) (*projector.TriviaQuestion, error) {
	question, err := cache.Fetch(ctx, s.cache, cache.TriviaQuestionKey, s.config.Cache.TTL.TriviaQuestion, func(ctx context.Context) (*projector.TriviaQuestion, error) {
		hub, err := s.getObject(ctx, s.config.Contracts.TriviaHubID)
		if err != nil {
			return nil, err
		}

		return projector.ProjectTriviaQuestion(hub, s.timeSource.Now()), nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load trivia question: %w", err)
	}

	return question, nil
}

func (s *Service) TriviaStats(ctx context.Context) (*projector.TriviaStats, error) {
	stats, err := cache.Fetch(ctx, s.cache, cache.TriviaStatsKey, s.config.Cache.TTL.TriviaStats, func(ctx context.Context) (*projector.TriviaStats, error) {
		hub, err := s.getObject(ctx, s.config.Contracts.TriviaHubID)
		if err != nil {
			return nil, err
		}

		return projector.ProjectTriviaStats(hub), nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load trivia stats: %w", err)
	}

	return stats, nil
}

func (s *Service) DiceStats(ctx context.Context) (*projector.DiceStats, error) {
	stats, err := cache.Fetch(ctx, s.cache, cache.GameStatsKey(cache.GameDice), s.config.Cache.TTL.GameStats, func(ctx context.Context) (*projector.DiceStats, error) {
		house, err := s.getObject(ctx, s.config.Contracts.GameHouseID)
		if err != nil {
			return nil, err
		}

		return projector.ProjectDiceStats(house), nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load dice stats: %w", err)
	}

	return stats, nil
}

// NFTs lists the collectibles held by the owner.
func (s *Service) NFTs(ctx context.Context, owner string) ([]*projector.NFT, error) {
	owner, err := normalizeAddress("owner", owner)
	if err != nil {
		return nil, err
	}

	nfts, err := cache.Fetch(ctx, s.cache, cache.NFTsKey(owner), s.config.Cache.TTL.NFTs, func(ctx context.Context) ([]*projector.NFT, error) {
		objects, err := s.client.GetOwnedObjects(ctx, owner, s.config.Contracts.NFTType(), s.config.Projector.NFTQueryLimit)
		if err != nil {
			return nil, err
		}

		return projector.ProjectNFTs(objects), nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load nfts of %v: %w", owner, err)
	}

	return nfts, nil
}

// Balance returns the SUI balance of the owner.
func (s *Service) Balance(ctx context.Context, owner string) (*projector.Balance, error) {
	owner, err := normalizeAddress("owner", owner)
	if err != nil {
		return nil, err
	}

	balance, err := cache.Fetch(ctx, s.cache, cache.BalanceKey(owner), s.config.Cache.TTL.Balance, func(ctx context.Context) (*projector.Balance, error) {
		balance, err := s.client.GetBalance(ctx, owner, "")
		if err != nil {
			return nil, err
		}

		return projector.ProjectBalance(balance), nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load balance of %v: %w", owner, err)
	}

	return balance, nil
}

func (s *Service) Group(ctx context.Context, groupID string) (*projector.GroupInfo, error) {
	groupID, err := normalizeAddress("group", groupID)
	if err != nil {
		return nil, err
	}

	group, err := cache.Fetch(ctx, s.cache, cache.GroupKey(groupID), s.config.Cache.TTL.Group, func(ctx context.Context) (*projector.GroupInfo, error) {
		object, err := s.getObject(ctx, groupID)
		if err != nil {
			return nil, err
		}

		return projector.ProjectGroupInfo(object), nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load group %v: %w", groupID, err)
	}

	return group, nil
}

func (s *Service) GroupRegistry(ctx context.Context) (*projector.GroupRegistryStats, error) {
	stats, err := cache.Fetch(ctx, s.cache, cache.GroupRegistryKey, s.config.Cache.TTL.Group, func(ctx context.Context) (*projector.GroupRegistryStats, error) {
		registry, err := s.getObject(ctx, s.config.Contracts.GroupRegistryID)
		if err != nil {
			return nil, err
		}

		return projector.ProjectGroupRegistry(registry), nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to load group registry: %w", err)
	}

	return stats, nil
}
