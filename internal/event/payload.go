package event

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/utils"
)

type (
	// Payload is the decoded body of one event kind.
	Payload interface {
		Kind() Kind
	}

	MessageSent struct {
		MessageID string  `json:"message_id" validate:"required"`
		Sender    string  `json:"sender" validate:"required,sui_address"`
		Recipient string  `json:"recipient" validate:"required,sui_address"`
		Content   Text    `json:"content"`
		Timestamp *U64    `json:"timestamp"`
		ReplyTo   *string `json:"reply_to"`
	}

	MessageRead struct {
		MessageID string `json:"message_id" validate:"required"`
		Reader    string `json:"reader" validate:"required,sui_address"`
		Timestamp *U64   `json:"timestamp"`
	}

	UserRegistered struct {
		User      string `json:"user" validate:"required,sui_address"`
		ProfileID string `json:"profile_id" validate:"required,sui_address"`
		Name      string `json:"name"`
		Timestamp *U64   `json:"timestamp"`
	}

	SwipeEvent struct {
		Swiper    string `json:"swiper" validate:"required,sui_address"`
		Swiped    string `json:"swiped" validate:"required,sui_address"`
		IsLike    bool   `json:"is_like"`
		Timestamp *U64   `json:"timestamp"`
	}

	MatchCreated struct {
		MatchID   string `json:"match_id"`
		User1     string `json:"user1" validate:"required,sui_address"`
		User2     string `json:"user2" validate:"required,sui_address,nefield=User1"`
		Timestamp *U64   `json:"timestamp"`
	}

	DiceRolled struct {
		Player    string `json:"player" validate:"required,sui_address"`
		Guess     U64    `json:"guess" validate:"min=1,max=6"`
		Result    U64    `json:"result" validate:"min=1,max=6"`
		Won       bool   `json:"won"`
		BetAmount U64    `json:"bet_amount"`
		Payout    U64    `json:"payout"`
	}

	QuestionAnswered struct {
		Player     string `json:"player" validate:"required,sui_address"`
		QuestionID U64    `json:"question_id"`
		Answer     U64    `json:"answer"`
		Correct    bool   `json:"correct"`
		Reward     U64    `json:"reward"`
	}

	GroupCreated struct {
		GroupID string `json:"group_id" validate:"required,sui_address"`
		Name    Text   `json:"name" validate:"required"`
		Creator string `json:"creator" validate:"required,sui_address"`
	}

	NFTMinted struct {
		ObjectID  string `json:"object_id" validate:"required,sui_address"`
		Creator   string `json:"creator" validate:"omitempty,sui_address"`
		Recipient string `json:"recipient" validate:"omitempty,sui_address"`
		Name      Text   `json:"name"`
	}

	NFTTransferred struct {
		ObjectID string `json:"object_id" validate:"required,sui_address"`
		From     string `json:"from" validate:"required,sui_address"`
		To       string `json:"to" validate:"required,sui_address"`
	}
)

// ErrMalformedPayload is returned when an event body does not match the shape of its kind.
var ErrMalformedPayload = xerrors.New("malformed event payload")

// ErrUnknownKind is returned for event kinds without a decoder.
var ErrUnknownKind = xerrors.New("unknown event kind")

var (
	validateOnce sync.Once
	validate     *validator.Validate

	decoders = map[Kind]func() Payload{
		KindMessageSent:      func() Payload { return new(MessageSent) },
		KindMessageRead:      func() Payload { return new(MessageRead) },
		KindUserRegistered:   func() Payload { return new(UserRegistered) },
		KindSwipeEvent:       func() Payload { return new(SwipeEvent) },
		KindMatchCreated:     func() Payload { return new(MatchCreated) },
		KindDiceRolled:       func() Payload { return new(DiceRolled) },
		KindQuestionAnswered: func() Payload { return new(QuestionAnswered) },
		KindGroupCreated:     func() Payload { return new(GroupCreated) },
		KindNFTMinted:        func() Payload { return new(NFTMinted) },
		KindNFTTransferred:   func() Payload { return new(NFTTransferred) },
	}
)

func (*MessageSent) Kind() Kind      { return KindMessageSent }
func (*MessageRead) Kind() Kind      { return KindMessageRead }
func (*UserRegistered) Kind() Kind   { return KindUserRegistered }
func (*SwipeEvent) Kind() Kind       { return KindSwipeEvent }
func (*MatchCreated) Kind() Kind     { return KindMatchCreated }
func (*DiceRolled) Kind() Kind       { return KindDiceRolled }
func (*QuestionAnswered) Kind() Kind { return KindQuestionAnswered }
func (*GroupCreated) Kind() Kind     { return KindGroupCreated }
func (*NFTMinted) Kind() Kind        { return KindNFTMinted }
func (*NFTTransferred) Kind() Kind   { return KindNFTTransferred }

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("sui_address", func(fl validator.FieldLevel) bool {
			return utils.IsValidAddress(fl.Field().String())
		})
	})
	return validate
}

// Decode decodes the payload of the event into the variant of its kind.
// Any shape mismatch fails closed with ErrMalformedPayload.
func Decode(e *RawEvent) (Payload, error) {
	newPayload, ok := decoders[e.Kind()]
	if !ok {
		return nil, xerrors.Errorf("failed to decode event of type %v: %w", e.Type, ErrUnknownKind)
	}

	payload := newPayload()
	if err := decodeInto(e, payload); err != nil {
		return nil, err
	}

	return payload, nil
}

// DecodeAs decodes the event into a specific variant.
func DecodeAs[T any, PT interface {
	*T
	Payload
}](e *RawEvent) (*T, error) {
	var payload PT = new(T)
	if kind := e.Kind(); kind != payload.Kind() {
		return nil, xerrors.Errorf("expected %v, got %v: %w", payload.Kind(), kind, ErrMalformedPayload)
	}

	if err := decodeInto(e, payload); err != nil {
		return nil, err
	}

	return (*T)(payload), nil
}

func decodeInto(e *RawEvent, payload Payload) error {
	if len(e.Payload) == 0 {
		return xerrors.Errorf("empty payload (event=%v): %w", e.Key(), ErrMalformedPayload)
	}

	if err := json.Unmarshal(e.Payload, payload); err != nil {
		return xerrors.Errorf("%v (event=%v): %w", err, e.Key(), ErrMalformedPayload)
	}

	if err := getValidator().Struct(payload); err != nil {
		return xerrors.Errorf("%v (event=%v): %w", err, e.Key(), ErrMalformedPayload)
	}

	return nil
}

// At returns the payload timestamp, falling back to the ledger timestamp of the event.
func At(e *RawEvent, timestamp *U64) time.Time {
	if timestamp != nil && *timestamp > 0 {
		return timestamp.Millis()
	}

	return e.EmittedAt
}
