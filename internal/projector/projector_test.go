package projector

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
)

const (
	packageID = "0x5b7a4c3e9f1d2a8b6c0e4f7a9d3b1c5e8f2a6d4b9c7e1f3a5d8b2c6e0f4a7d91"

	alice = "0x000000000000000000000000000000000000000000000000000000000000a11c"
	bob   = "0x0000000000000000000000000000000000000000000000000000000000000b0b"
	carol = "0x00000000000000000000000000000000000000000000000000000000000ca201"
	dave  = "0x000000000000000000000000000000000000000000000000000000000000da4e"
)

var now = time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC)

func newTestProjector() (*Projector, tally.TestScope) {
	scope := tally.NewTestScope("", nil)
	cfg := &config.ProjectorConfig{ResolveParallelism: 4}
	return newProjector(cfg, zap.NewNop(), scope), scope
}

type eventBuilder struct {
	seq int
}

func (b *eventBuilder) build(kind event.Kind, payload any) *event.RawEvent {
	b.seq++
	encoded, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}

	return &event.RawEvent{
		ID:        event.EventID{TxDigest: fmt.Sprintf("tx%d", b.seq), EventSeq: "0"},
		Type:      kind.Type(packageID),
		Payload:   encoded,
		EmittedAt: now.Add(-time.Hour),
	}
}

func millis(t time.Time) string {
	return fmt.Sprint(t.UnixMilli())
}

func (b *eventBuilder) messageSent(id string, sender string, recipient string, content string, at time.Time) *event.RawEvent {
	return b.build(event.KindMessageSent, map[string]any{
		"message_id": id,
		"sender":     sender,
		"recipient":  recipient,
		"content":    bytesOf(content),
		"timestamp":  millis(at),
	})
}

// bytesOf renders a string the way the ledger renders a vector<u8>.
func bytesOf(s string) []int {
	result := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		result[i] = int(s[i])
	}
	return result
}

func (b *eventBuilder) messageRead(id string, reader string) *event.RawEvent {
	return b.build(event.KindMessageRead, map[string]any{
		"message_id": id,
		"reader":     reader,
	})
}

func (b *eventBuilder) swipe(swiper string, swiped string, like bool, at time.Time) *event.RawEvent {
	return b.build(event.KindSwipeEvent, map[string]any{
		"swiper":    swiper,
		"swiped":    swiped,
		"is_like":   like,
		"timestamp": millis(at),
	})
}

func (b *eventBuilder) matchCreated(id string, user1 string, user2 string, at time.Time) *event.RawEvent {
	return b.build(event.KindMatchCreated, map[string]any{
		"match_id":  id,
		"user1":     user1,
		"user2":     user2,
		"timestamp": millis(at),
	})
}

func (b *eventBuilder) registered(user string, profileID string) *event.RawEvent {
	return b.build(event.KindUserRegistered, map[string]any{
		"user":       user,
		"profile_id": profileID,
	})
}

func (b *eventBuilder) answered(player string, correct bool, reward uint64) *event.RawEvent {
	return b.build(event.KindQuestionAnswered, map[string]any{
		"player":      player,
		"question_id": "1",
		"answer":      "0",
		"correct":     correct,
		"reward":      fmt.Sprint(reward),
	})
}

func (b *eventBuilder) malformed(kind event.Kind) *event.RawEvent {
	e := b.build(kind, map[string]any{})
	e.Payload = json.RawMessage(`{"sender": 42}`)
	return e
}

func newObject(id string, fields string) *client.Object {
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(fields), &parsed); err != nil {
		panic(err)
	}

	return &client.Object{ID: id, Exists: true, Fields: parsed, Display: map[string]string{}}
}
