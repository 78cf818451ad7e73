package views

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/cache"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/overlay"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/projector"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
)

type (
	SendMessageRequest struct {
		Sender    string
		Recipient string
		Content   string `validate:"required,max=1000"`
		// NFTIDs are transferred to the recipient before the message is sent.
		NFTIDs []string `validate:"max=50"`
	}

	ProfileRequest struct {
		Name     string `validate:"required,max=64"`
		Bio      string `validate:"max=500"`
		Age      int    `validate:"min=18,max=255"`
		Location string `validate:"max=100"`
	}

	MintRequest struct {
		Name        string `validate:"required,max=128"`
		Description string `validate:"max=1000"`
		ImageURL    string `validate:"required,url"`
		Attributes  []Attribute
	}

	Attribute struct {
		TraitType string `validate:"required"`
		Value     string
	}

	GroupRequest struct {
		Name        string `validate:"required,max=64"`
		Description string `validate:"max=500"`
		IsPublic    bool
		MaxMembers  uint64 `validate:"min=2"`
	}

	// Outcome is a settled write and the event it emitted, if any.
	Outcome[T any] struct {
		Digest string
		Event  *T
	}
)

const (
	moduleMessaging      = "messaging"
	moduleDatingPlatform = "dating_platform"
	moduleNFT            = "nft"
	moduleDiceGame       = "dice_game"
	moduleTriviaGame     = "trivia_game"
	moduleGroupChat      = "group_chat"

	// TriviaEntryFee is split from the gas coin for every answer, in MIST.
	TriviaEntryFee uint64 = 50_000_000

	minBatchTransferGas uint64 = 100_000_000
)

// SendMessage inserts the message into the sender's and recipient's views and submits it.
// NFTs attached to the message are transferred first; the message is not sent if the transfer fails.
func (s *Service) SendMessage(ctx context.Context, request *SendMessageRequest) (*overlay.Handle[*projector.Message], error) {
	if err := s.validateRequest(request); err != nil {
		return nil, err
	}

	sender, err := normalizeAddress("sender", request.Sender)
	if err != nil {
		return nil, err
	}

	recipient, err := normalizeAddress("recipient", request.Recipient)
	if err != nil {
		return nil, err
	}

	if sender == recipient {
		return nil, xerrors.Errorf("cannot message yourself: %w", ErrInvalidArgument)
	}

	nftIDs, err := normalizeAddresses("nft", request.NFTIDs)
	if err != nil {
		return nil, err
	}

	invalidate := []string{cache.MessagesKey(sender), cache.MessagesKey(recipient)}
	if len(nftIDs) > 0 {
		invalidate = append(invalidate, cache.NFTsKey(sender), cache.NFTsKey(recipient))
	}

	content := request.Content
	handle := s.messages.Apply(ctx, overlay.Mutation[*projector.Message]{
		Kind: "send_message",
		Entity: &projector.Message{
			Sender:      sender,
			Recipient:   recipient,
			Content:     content,
			SentAt:      s.timeSource.Now(),
			Provisional: true,
		},
		Invalidate: invalidate,
		Submit: func(ctx context.Context) (string, error) {
			if len(nftIDs) > 0 {
				if _, err := s.transfer(ctx, nftIDs, recipient); err != nil {
					return "", xerrors.Errorf("failed to attach nfts: %w", err)
				}
			}

			result, err := s.submit(ctx, &client.MoveCall{
				Kind:   "send_message",
				Target: s.config.Contracts.Target(moduleMessaging, "send_message"),
				Arguments: []client.Argument{
					client.ObjectArg(s.config.Contracts.MessageHubID),
					client.PureArg("address", recipient),
					client.PureArg("vector<u8>", []byte(content)),
					client.ObjectArg(s.config.Contracts.ClockID),
				},
				GasBudget: s.config.GasBudget.Message,
			})
			if err != nil {
				return "", err
			}

			outcome, err := outcomeOf[event.MessageSent](result)
			if err != nil || outcome.Event == nil {
				// The provisional copy is dropped on confirmation.
				log.WithSpan(ctx, s.logger).Warn("message id not found in execution result", zap.String("digest", result.Digest), zap.Error(err))
				return "", nil
			}

			return outcome.Event.MessageID, nil
		},
	})

	return handle, nil
}

// MarkAsRead marks a received message as read in the reader's views and submits the receipt.
func (s *Service) MarkAsRead(ctx context.Context, reader string, messageID string) (*overlay.Handle[*projector.ReadReceipt], error) {
	reader, err := normalizeAddress("reader", reader)
	if err != nil {
		return nil, err
	}

	messageID, err = normalizeAddress("message", messageID)
	if err != nil {
		return nil, err
	}

	invalidate := []string{cache.MessagesKey(reader)}
	if sender := s.cachedSender(reader, messageID); sender != "" {
		invalidate = append(invalidate, cache.MessagesKey(sender))
	}

	handle := s.receipts.Apply(ctx, overlay.Mutation[*projector.ReadReceipt]{
		Kind: "mark_as_read",
		Entity: &projector.ReadReceipt{
			MessageID: messageID,
			Reader:    reader,
			At:        s.timeSource.Now(),
		},
		Key:        messageID,
		Invalidate: invalidate,
		Submit: func(ctx context.Context) (string, error) {
			result, err := s.submit(ctx, &client.MoveCall{
				Kind:   "mark_as_read",
				Target: s.config.Contracts.Target(moduleMessaging, "mark_as_read"),
				Arguments: []client.Argument{
					client.ObjectArg(messageID),
					client.ObjectArg(s.config.Contracts.ClockID),
				},
				GasBudget: s.config.GasBudget.Default,
			})
			if err != nil {
				return "", err
			}

			return result.Digest, nil
		},
	})

	return handle, nil
}

// cachedSender looks the sender of a message up in the viewer's cached projection, without reading the ledger.
func (s *Service) cachedSender(viewer string, messageID string) string {
	data, ok := s.cache.Get(cache.MessagesKey(viewer))
	if !ok {
		return ""
	}

	messages, ok := data.([]*projector.Message)
	if !ok {
		return ""
	}

	for _, m := range messages {
		if m.ID == messageID {
			return m.Sender
		}
	}

	return ""
}

// Swipe records a like or a pass. The swiped profile leaves the feed immediately.
// Swiping the same profile twice fails with client.ErrAlreadySwiped.
func (s *Service) Swipe(ctx context.Context, swiper string, target string, isLike bool) (*overlay.Handle[*projector.SwipeRecord], error) {
	swiper, err := normalizeAddress("swiper", swiper)
	if err != nil {
		return nil, err
	}

	target, err = normalizeAddress("target", target)
	if err != nil {
		return nil, err
	}

	if swiper == target {
		return nil, xerrors.Errorf("cannot swipe yourself: %w", ErrInvalidArgument)
	}

	history, err := s.SwipeHistory(ctx, swiper)
	if err != nil {
		// The ledger rejects duplicates anyway.
		log.WithSpan(ctx, s.logger).Warn("failed to check swipe history", zap.Error(err))
	} else if _, ok := history[target]; ok {
		return nil, client.ClassifyError(xerrors.Errorf("%v already swiped %v: %w", swiper, target, client.ErrAlreadySwiped))
	}

	record := &projector.SwipeRecord{
		Swiper:      swiper,
		Swiped:      target,
		IsLike:      isLike,
		At:          s.timeSource.Now(),
		Provisional: true,
	}

	handle := s.swipes.Apply(ctx, overlay.Mutation[*projector.SwipeRecord]{
		Kind:   "swipe",
		Entity: record,
		Key:    swipeKey(record),
		Invalidate: []string{
			cache.SwipesKey,
			cache.MatchEventsKey,
			cache.MatchesKey(swiper),
			cache.MatchesKey(target),
		},
		Submit: func(ctx context.Context) (string, error) {
			result, err := s.submit(ctx, &client.MoveCall{
				Kind:   "swipe",
				Target: s.config.Contracts.Target(moduleDatingPlatform, "swipe"),
				Arguments: []client.Argument{
					client.ObjectArg(s.config.Contracts.UserRegistryID),
					client.ObjectArg(s.config.Contracts.MatchRegistryID),
					client.PureArg("address", target),
					client.PureArg("bool", isLike),
					client.ObjectArg(s.config.Contracts.ClockID),
				},
				GasBudget: s.config.GasBudget.Default,
			})
			if err != nil {
				return "", err
			}

			if result.FindEvent(event.KindMatchCreated) != nil {
				log.WithSpan(ctx, s.logger).Info("match created", zap.String("swiper", swiper), zap.String("target", target))
			}

			return result.Digest, nil
		},
	})

	return handle, nil
}

// RegisterUser creates the profile of the connected user.
func (s *Service) RegisterUser(ctx context.Context, user string, request *ProfileRequest) (*Outcome[event.UserRegistered], error) {
	user, err := normalizeAddress("user", user)
	if err != nil {
		return nil, err
	}

	if err := s.validateRequest(request); err != nil {
		return nil, err
	}

	result, err := s.execute(ctx, &client.MoveCall{
		Kind:   "register_user",
		Target: s.config.Contracts.Target(moduleDatingPlatform, "register_user"),
		Arguments: []client.Argument{
			client.ObjectArg(s.config.Contracts.UserRegistryID),
			client.PureArg("string", request.Name),
			client.PureArg("string", request.Bio),
			client.PureArg("u8", uint8(request.Age)),
			client.PureArg("string", request.Location),
			client.ObjectArg(s.config.Contracts.ClockID),
		},
		GasBudget: s.config.GasBudget.Default,
	}, cache.RegistrationsKey, cache.ProfilesFeedKey(user))
	if err != nil {
		return nil, err
	}

	return outcomeOf[event.UserRegistered](result)
}

// UpdateProfile rewrites the fields of an owned profile.
func (s *Service) UpdateProfile(ctx context.Context, owner string, profileID string, request *ProfileRequest) (*Outcome[struct{}], error) {
	owner, err := normalizeAddress("owner", owner)
	if err != nil {
		return nil, err
	}

	profileID, err = normalizeAddress("profile", profileID)
	if err != nil {
		return nil, err
	}

	if err := s.validateRequest(request); err != nil {
		return nil, err
	}

	result, err := s.execute(ctx, &client.MoveCall{
		Kind:   "update_profile",
		Target: s.config.Contracts.Target(moduleDatingPlatform, "update_profile"),
		Arguments: []client.Argument{
			client.ObjectArg(profileID),
			client.PureArg("string", request.Name),
			client.PureArg("string", request.Bio),
			client.PureArg("u8", uint8(request.Age)),
			client.PureArg("string", request.Location),
			client.ObjectArg(s.config.Contracts.ClockID),
		},
		GasBudget: s.config.GasBudget.Default,
	}, cache.ProfileKey(profileID), cache.ProfilesFeedKey(owner))
	if err != nil {
		return nil, err
	}

	return &Outcome[struct{}]{Digest: result.Digest}, nil
}

// TransferNFTs sends NFTs of the owner to the recipient, batching them in one call.
func (s *Service) TransferNFTs(ctx context.Context, owner string, nftIDs []string, recipient string) (*Outcome[event.NFTTransferred], error) {
	owner, err := normalizeAddress("owner", owner)
	if err != nil {
		return nil, err
	}

	recipient, err = normalizeAddress("recipient", recipient)
	if err != nil {
		return nil, err
	}

	if len(nftIDs) == 0 {
		return nil, xerrors.Errorf("no nft to transfer: %w", ErrInvalidArgument)
	}

	nftIDs, err = normalizeAddresses("nft", nftIDs)
	if err != nil {
		return nil, err
	}

	result, err := s.transfer(ctx, nftIDs, recipient)
	if err != nil {
		return nil, client.ClassifyError(err)
	}

	s.invalidator.Invalidate(cache.NFTsKey(owner), cache.NFTsKey(recipient))
	return outcomeOf[event.NFTTransferred](result)
}

func (s *Service) transfer(ctx context.Context, nftIDs []string, recipient string) (*client.SubmitResult, error) {
	if len(nftIDs) == 1 {
		return s.submit(ctx, &client.MoveCall{
			Kind:   "transfer_nft",
			Target: s.config.Contracts.Target(moduleNFT, "transfer_nft"),
			Arguments: []client.Argument{
				client.ObjectArg(nftIDs[0]),
				client.PureArg("address", recipient),
			},
			GasBudget: s.config.GasBudget.NFTTransfer,
		})
	}

	gasBudget := s.config.GasBudget.NFTTransfer * uint64(len(nftIDs))
	if gasBudget < minBatchTransferGas {
		gasBudget = minBatchTransferGas
	}

	return s.submit(ctx, &client.MoveCall{
		Kind:   "batch_transfer_nfts",
		Target: s.config.Contracts.Target(moduleNFT, "batch_transfer_nfts"),
		Arguments: []client.Argument{
			client.ObjectVecArg(nftIDs),
			client.PureArg("address", recipient),
		},
		GasBudget: gasBudget,
	})
}

// MintNFT mints a collectible to the recipient.
func (s *Service) MintNFT(ctx context.Context, recipient string, request *MintRequest) (*Outcome[event.NFTMinted], error) {
	recipient, err := normalizeAddress("recipient", recipient)
	if err != nil {
		return nil, err
	}

	if err := s.validateRequest(request); err != nil {
		return nil, err
	}

	arguments := []client.Argument{
		client.ObjectArg(s.config.Contracts.NFTCollectionID),
		client.PureArg("vector<u8>", []byte(request.Name)),
		client.PureArg("vector<u8>", []byte(request.Description)),
		client.PureArg("vector<u8>", []byte(request.ImageURL)),
	}

	function := "mint_nft"
	if len(request.Attributes) > 0 {
		function = "mint_nft_with_attributes"
		traitTypes := make([][]byte, len(request.Attributes))
		values := make([][]byte, len(request.Attributes))
		for i, attribute := range request.Attributes {
			traitTypes[i] = []byte(attribute.TraitType)
			values[i] = []byte(attribute.Value)
		}
		arguments = append(arguments,
			client.PureArg("vector<vector<u8>>", traitTypes),
			client.PureArg("vector<vector<u8>>", values),
		)
	}
	arguments = append(arguments, client.PureArg("address", recipient))

	result, err := s.execute(ctx, &client.MoveCall{
		Kind:      function,
		Target:    s.config.Contracts.Target(moduleNFT, function),
		Arguments: arguments,
		GasBudget: s.config.GasBudget.NFTMint,
	}, cache.NFTsKey(recipient))
	if err != nil {
		return nil, err
	}

	return outcomeOf[event.NFTMinted](result)
}

// PlayDice wagers bet MIST on a guess between 1 and 6.
func (s *Service) PlayDice(ctx context.Context, player string, guess uint8, bet uint64) (*Outcome[event.DiceRolled], error) {
	player, err := normalizeAddress("player", player)
	if err != nil {
		return nil, err
	}

	if guess < 1 || guess > 6 {
		return nil, xerrors.Errorf("guess %d out of range: %w", guess, ErrInvalidArgument)
	}

	if bet == 0 {
		return nil, xerrors.Errorf("bet must be positive: %w", ErrInvalidArgument)
	}

	result, err := s.execute(ctx, &client.MoveCall{
		Kind:   "play_dice",
		Target: s.config.Contracts.Target(moduleDiceGame, "play_dice"),
		Arguments: []client.Argument{
			client.ObjectArg(s.config.Contracts.GameHouseID),
			client.PureArg("u8", guess),
			client.SplitGasArg(bet),
			client.ObjectArg(s.config.Contracts.ClockID),
		},
		GasBudget: s.config.GasBudget.GamePlay,
	}, cache.GameStatsKey(cache.GameDice), cache.BalanceKey(player))
	if err != nil {
		return nil, err
	}

	return outcomeOf[event.DiceRolled](result)
}

// AnswerTrivia answers the current question, paying TriviaEntryFee.
func (s *Service) AnswerTrivia(ctx context.Context, player string, answer uint8) (*Outcome[event.QuestionAnswered], error) {
	player, err := normalizeAddress("player", player)
	if err != nil {
		return nil, err
	}

	result, err := s.execute(ctx, &client.MoveCall{
		Kind:   "answer_question",
		Target: s.config.Contracts.Target(moduleTriviaGame, "answer_question"),
		Arguments: []client.Argument{
			client.ObjectArg(s.config.Contracts.TriviaHubID),
			client.PureArg("u8", answer),
			client.SplitGasArg(TriviaEntryFee),
			client.ObjectArg(s.config.Contracts.ClockID),
		},
		GasBudget: s.config.GasBudget.GamePlay,
	}, cache.TriviaQuestionKey, cache.TriviaStatsKey, cache.TriviaLeaderboardKey, cache.BalanceKey(player))
	if err != nil {
		return nil, err
	}

	return outcomeOf[event.QuestionAnswered](result)
}

func (s *Service) CreateGroup(ctx context.Context, creator string, request *GroupRequest) (*Outcome[event.GroupCreated], error) {
	if _, err := normalizeAddress("creator", creator); err != nil {
		return nil, err
	}

	if err := s.validateRequest(request); err != nil {
		return nil, err
	}

	result, err := s.execute(ctx, &client.MoveCall{
		Kind:   "create_group",
		Target: s.config.Contracts.Target(moduleGroupChat, "create_group"),
		Arguments: []client.Argument{
			client.ObjectArg(s.config.Contracts.GroupRegistryID),
			client.PureArg("string", request.Name),
			client.PureArg("string", request.Description),
			client.PureArg("bool", request.IsPublic),
			client.PureArg("u64", request.MaxMembers),
			client.ObjectArg(s.config.Contracts.ClockID),
		},
		GasBudget: s.config.GasBudget.GroupCreate,
	}, cache.GroupRegistryKey)
	if err != nil {
		return nil, err
	}

	return outcomeOf[event.GroupCreated](result)
}

// execute submits a write that has no provisional entity and invalidates the given keys once it succeeds.
func (s *Service) execute(ctx context.Context, call *client.MoveCall, invalidate ...string) (*client.SubmitResult, error) {
	result, err := s.submit(ctx, call)
	if err != nil {
		return nil, client.ClassifyError(err)
	}

	if len(invalidate) > 0 {
		s.invalidator.Invalidate(invalidate...)
	}

	return result, nil
}

func (s *Service) submit(ctx context.Context, call *client.MoveCall) (*client.SubmitResult, error) {
	scope := s.metrics.Tagged(map[string]string{"kind": call.Kind})
	result, err := s.submitter.Submit(ctx, call)
	if err != nil {
		scope.Counter("write_failed").Inc(1)
		return nil, xerrors.Errorf("failed to submit %v: %w", call.Kind, err)
	}

	scope.Counter("write_succeeded").Inc(1)
	return result, nil
}

// outcomeOf decodes the first event of kind T emitted by the write. The event is nil if none was emitted.
func outcomeOf[T any, PT interface {
	*T
	event.Payload
}](result *client.SubmitResult) (*Outcome[T], error) {
	outcome := &Outcome[T]{Digest: result.Digest}
	e := result.FindEvent(PT(new(T)).Kind())
	if e == nil {
		return outcome, nil
	}

	payload, err := event.DecodeAs[T, PT](e)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode result of %v: %w", result.Digest, err)
	}

	outcome.Event = payload
	return outcome, nil
}
