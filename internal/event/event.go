package event

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

type (
	// EventID identifies an event on the ledger.
	EventID struct {
		TxDigest string `json:"txDigest"`
		EventSeq string `json:"eventSeq"`
	}

	// RawEvent is an event as returned by the query API or the subscription feed.
	// Events are immutable once emitted; the order of a query page is the ledger order.
	RawEvent struct {
		ID        EventID
		Type      string
		Sender    string
		Payload   json.RawMessage
		EmittedAt time.Time
	}

	// Kind is the `<module>::<Name>` suffix of a Move event type.
	Kind string

	// Order of an event query page.
	Order int

	rawEventJSON struct {
		ID          EventID         `json:"id"`
		Type        string          `json:"type"`
		Sender      string          `json:"sender"`
		ParsedJSON  json.RawMessage `json:"parsedJson"`
		TimestampMs *U64            `json:"timestampMs"`
	}
)

const (
	KindMessageSent      Kind = "messaging::MessageSent"
	KindMessageRead      Kind = "messaging::MessageRead"
	KindUserRegistered   Kind = "dating_platform::UserRegistered"
	KindSwipeEvent       Kind = "dating_platform::SwipeEvent"
	KindMatchCreated     Kind = "dating_platform::MatchCreated"
	KindDiceRolled       Kind = "dice_game::DiceRolled"
	KindQuestionAnswered Kind = "trivia_game::QuestionAnswered"
	KindGroupCreated     Kind = "group_chat::GroupCreated"
	KindNFTMinted        Kind = "nft::NFTMinted"
	KindNFTTransferred   Kind = "nft::NFTTransferred"
)

const (
	Descending Order = iota
	Ascending
)

// Kinds lists every event kind the views consume.
var Kinds = []Kind{
	KindMessageSent,
	KindMessageRead,
	KindUserRegistered,
	KindSwipeEvent,
	KindMatchCreated,
	KindDiceRolled,
	KindQuestionAnswered,
	KindGroupCreated,
	KindNFTMinted,
	KindNFTTransferred,
}

// Type returns the fully qualified Move event type published by the given package.
func (k Kind) Type(packageID string) string {
	return packageID + "::" + string(k)
}

func (k Kind) Module() string {
	module, _, _ := strings.Cut(string(k), "::")
	return module
}

// KindOf extracts the kind from a fully qualified type such as `0x2a::messaging::MessageSent`.
// Type arguments, if any, are ignored.
func KindOf(eventType string) Kind {
	if i := strings.IndexByte(eventType, '<'); i >= 0 {
		eventType = eventType[:i]
	}

	parts := strings.Split(eventType, "::")
	if len(parts) < 2 {
		return Kind(eventType)
	}

	return Kind(parts[len(parts)-2] + "::" + parts[len(parts)-1])
}

func (e *RawEvent) Kind() Kind {
	return KindOf(e.Type)
}

// Key is unique per event and stable across the query and the subscription paths.
func (e *RawEvent) Key() string {
	return e.ID.TxDigest + ":" + e.ID.EventSeq
}

func (e *RawEvent) UnmarshalJSON(data []byte) error {
	var raw rawEventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return xerrors.Errorf("failed to unmarshal event: %w", err)
	}

	*e = RawEvent{
		ID:      raw.ID,
		Type:    raw.Type,
		Sender:  raw.Sender,
		Payload: raw.ParsedJSON,
	}
	if raw.TimestampMs != nil {
		e.EmittedAt = time.UnixMilli(int64(*raw.TimestampMs)).UTC()
	}

	return nil
}

func (e RawEvent) MarshalJSON() ([]byte, error) {
	raw := rawEventJSON{
		ID:         e.ID,
		Type:       e.Type,
		Sender:     e.Sender,
		ParsedJSON: e.Payload,
	}
	if !e.EmittedAt.IsZero() {
		ms := U64(e.EmittedAt.UnixMilli())
		raw.TimestampMs = &ms
	}

	return json.Marshal(raw)
}

func (o Order) Descending() bool {
	return o == Descending
}

func (o Order) String() string {
	if o == Ascending {
		return "ascending"
	}

	return "descending"
}

// ParseOrder accepts "ascending" or "descending".
func ParseOrder(value string) (Order, error) {
	switch strings.ToLower(value) {
	case "descending", "desc":
		return Descending, nil
	case "ascending", "asc":
		return Ascending, nil
	default:
		return 0, xerrors.Errorf("invalid order: %q", value)
	}
}
