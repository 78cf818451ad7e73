package projector

import (
	"fmt"
	"sort"
	"time"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/utils"
)

type (
	Message struct {
		ID        string
		Sender    string
		Recipient string
		Content   string
		SentAt    time.Time
		IsRead    bool
		ReplyTo   *string
		// Provisional marks a message spliced in by the overlay before the ledger confirmed it.
		Provisional bool
	}

	ReadReceipt struct {
		MessageID string
		Reader    string
		At        time.Time
	}

	Conversation struct {
		PartnerAddress string
		PartnerName    string
		LastMessage    string
		LastMessageAt  time.Time
		RelativeTime   string
		UnreadCount    int
	}
)

// ProjectMessages builds the message set from MessageSent and MessageRead events.
// Each message id appears once; the output is ascending by SentAt, then id.
// A message is read once its recipient emitted a receipt for it.
func (p *Projector) ProjectMessages(events []*event.RawEvent) []*Message {
	sent := decodeAll[event.MessageSent](p, events)
	receipts := p.ProjectReadReceipts(events)

	read := make(map[string]string, len(receipts))
	for _, receipt := range receipts {
		read[receipt.MessageID] = receipt.Reader
	}

	processed := make(map[string]struct{}, len(sent))
	messages := make([]*Message, 0, len(sent))
	for _, d := range sent {
		if _, ok := processed[d.payload.MessageID]; ok {
			continue
		}
		processed[d.payload.MessageID] = struct{}{}

		reader, ok := read[d.payload.MessageID]
		messages = append(messages, &Message{
			ID:        d.payload.MessageID,
			Sender:    d.payload.Sender,
			Recipient: d.payload.Recipient,
			Content:   d.payload.Content.String(),
			SentAt:    event.At(d.event, d.payload.Timestamp),
			IsRead:    ok && reader == d.payload.Recipient,
			ReplyTo:   d.payload.ReplyTo,
		})
	}

	SortMessages(messages)
	return messages
}

// ProjectReadReceipts returns one receipt per message id, the first seen wins.
func (p *Projector) ProjectReadReceipts(events []*event.RawEvent) []*ReadReceipt {
	reads := decodeAll[event.MessageRead](p, events)
	seen := make(map[string]struct{}, len(reads))
	receipts := make([]*ReadReceipt, 0, len(reads))
	for _, d := range reads {
		if _, ok := seen[d.payload.MessageID]; ok {
			continue
		}
		seen[d.payload.MessageID] = struct{}{}

		receipts = append(receipts, &ReadReceipt{
			MessageID: d.payload.MessageID,
			Reader:    d.payload.Reader,
			At:        event.At(d.event, d.payload.Timestamp),
		})
	}

	return receipts
}

// SortMessages orders messages ascending by SentAt, then id.
func SortMessages(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].SentAt.Equal(messages[j].SentAt) {
			return messages[i].SentAt.Before(messages[j].SentAt)
		}
		return messages[i].ID < messages[j].ID
	})
}

// ProjectConversations groups the messages of the viewer by partner.
// Messages not involving the viewer are ignored. Each conversation carries the
// latest message, the number of unread messages received by the viewer, and
// the partner name, which defaults to the short address when names has no entry.
// The output is sorted by LastMessageAt descending, ties broken by partner address.
func ProjectConversations(viewer string, messages []*Message, names map[string]string, now time.Time) []*Conversation {
	type group struct {
		conversation *Conversation
		last         *Message
	}

	groups := make(map[string]*group)
	for _, msg := range messages {
		var partner string
		switch viewer {
		case msg.Sender:
			partner = msg.Recipient
		case msg.Recipient:
			partner = msg.Sender
		default:
			continue
		}

		g, ok := groups[partner]
		if !ok {
			name, ok := names[partner]
			if !ok || name == "" {
				name = utils.ShortAddress(partner)
			}
			g = &group{conversation: &Conversation{PartnerAddress: partner, PartnerName: name}}
			groups[partner] = g
		}

		if g.last == nil || isLater(msg, g.last) {
			g.last = msg
		}

		if msg.Sender != viewer && !msg.IsRead {
			g.conversation.UnreadCount++
		}
	}

	conversations := make([]*Conversation, 0, len(groups))
	for _, g := range groups {
		g.conversation.LastMessage = g.last.Content
		g.conversation.LastMessageAt = g.last.SentAt
		g.conversation.RelativeTime = RelativeTime(g.last.SentAt, now)
		conversations = append(conversations, g.conversation)
	}

	sort.Slice(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		if !a.LastMessageAt.Equal(b.LastMessageAt) {
			return a.LastMessageAt.After(b.LastMessageAt)
		}
		return a.PartnerAddress < b.PartnerAddress
	})

	return conversations
}

// ThreadWith returns the messages exchanged between viewer and partner, in the input order.
func ThreadWith(viewer string, partner string, messages []*Message) []*Message {
	thread := make([]*Message, 0)
	for _, msg := range messages {
		if (msg.Sender == viewer && msg.Recipient == partner) || (msg.Sender == partner && msg.Recipient == viewer) {
			thread = append(thread, msg)
		}
	}

	return thread
}

// RelativeTime renders t relative to now: "now", "5m", "3h", "2d", or "Jan 2" past a week.
// Timestamps in the future render as "now".
func RelativeTime(t time.Time, now time.Time) string {
	diff := now.Sub(t)
	minutes := int(diff / time.Minute)
	hours := int(diff / time.Hour)
	days := hours / 24

	switch {
	case minutes < 1:
		return "now"
	case minutes < 60:
		return fmt.Sprintf("%dm", minutes)
	case hours < 24:
		return fmt.Sprintf("%dh", hours)
	case days < 7:
		return fmt.Sprintf("%dd", days)
	default:
		return t.Format("Jan 2")
	}
}

func isLater(a *Message, b *Message) bool {
	if !a.SentAt.Equal(b.SentAt) {
		return a.SentAt.After(b.SentAt)
	}
	return a.ID > b.ID
}
