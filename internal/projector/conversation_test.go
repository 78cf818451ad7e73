package projector

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

func TestProjectMessages(t *testing.T) {
	require := testutil.Require(t)

	p, scope := newTestProjector()
	b := &eventBuilder{}
	first := b.messageSent("0x1001", alice, bob, "hi", now.Add(-10*time.Minute))
	events := []*event.RawEvent{
		b.messageSent("0x1002", bob, alice, "hi back", now.Add(-5*time.Minute)),
		first,
		b.messageRead("0x1001", bob),
		b.messageRead("0x1002", bob),
		b.malformed(event.KindMessageSent),
		first,
	}

	messages := p.ProjectMessages(events)
	require.Len(messages, 2)
	require.Equal("0x1001", messages[0].ID)
	require.Equal("hi", messages[0].Content)
	require.True(messages[0].IsRead)
	require.Equal("0x1002", messages[1].ID)
	require.Equal("hi back", messages[1].Content)
	// Only the recipient can mark a message read.
	require.False(messages[1].IsRead)

	counters := scope.Snapshot().Counters()
	require.Equal(int64(1), counters["projector.skipped+kind=messaging::MessageSent"].Value())
}

func TestProjectMessages_TieBreaksByID(t *testing.T) {
	require := testutil.Require(t)

	p, _ := newTestProjector()
	b := &eventBuilder{}
	at := now.Add(-time.Minute)
	messages := p.ProjectMessages([]*event.RawEvent{
		b.messageSent("0x1003", alice, bob, "c", at),
		b.messageSent("0x1001", alice, bob, "a", at),
		b.messageSent("0x1002", alice, bob, "b", at),
	})
	require.Equal([]string{"a", "b", "c"}, []string{messages[0].Content, messages[1].Content, messages[2].Content})
}

func TestProjectMessages_Idempotent(t *testing.T) {
	require := testutil.Require(t)

	p, _ := newTestProjector()
	b := &eventBuilder{}
	events := []*event.RawEvent{
		b.messageSent("0x1001", alice, bob, "hi", now.Add(-10*time.Minute)),
		b.messageSent("0x1002", bob, alice, "hi back", now.Add(-5*time.Minute)),
		b.messageRead("0x1002", alice),
	}

	first := p.ProjectMessages(events)
	second := p.ProjectMessages(events)
	require.Empty(cmp.Diff(first, second))

	conversations := ProjectConversations(alice, first, nil, now)
	require.Empty(cmp.Diff(conversations, ProjectConversations(alice, second, nil, now)))
}

func TestProjectConversations(t *testing.T) {
	require := testutil.Require(t)

	messages := []*Message{
		{ID: "1", Sender: alice, Recipient: bob, Content: "hi bob", SentAt: now.Add(-3 * time.Hour)},
		{ID: "2", Sender: bob, Recipient: alice, Content: "hey", SentAt: now.Add(-2 * time.Hour)},
		{ID: "3", Sender: bob, Recipient: alice, Content: "you there?", SentAt: now.Add(-90 * time.Minute)},
		{ID: "4", Sender: carol, Recipient: alice, Content: "hello", SentAt: now.Add(-30 * time.Second), IsRead: true},
		{ID: "5", Sender: bob, Recipient: carol, Content: "not ours", SentAt: now},
		{ID: "6", Sender: alice, Recipient: dave, Content: "sup", SentAt: now.Add(-10 * 24 * time.Hour)},
	}

	conversations := ProjectConversations(alice, messages, map[string]string{carol: "Carol"}, now)
	require.Equal([]*Conversation{
		{
			PartnerAddress: carol,
			PartnerName:    "Carol",
			LastMessage:    "hello",
			LastMessageAt:  now.Add(-30 * time.Second),
			RelativeTime:   "now",
		},
		{
			PartnerAddress: bob,
			PartnerName:    "0x0000...0b0b",
			LastMessage:    "you there?",
			LastMessageAt:  now.Add(-90 * time.Minute),
			RelativeTime:   "1h",
			UnreadCount:    2,
		},
		{
			PartnerAddress: dave,
			PartnerName:    "0x0000...da4e",
			LastMessage:    "sup",
			LastMessageAt:  now.Add(-10 * 24 * time.Hour),
			RelativeTime:   "Feb 4",
		},
	}, conversations)
}

func TestProjectConversations_Ordering(t *testing.T) {
	require := testutil.Require(t)

	at := now.Add(-time.Hour)
	messages := []*Message{
		{ID: "1", Sender: dave, Recipient: alice, SentAt: at},
		{ID: "2", Sender: bob, Recipient: alice, SentAt: at},
		{ID: "3", Sender: carol, Recipient: alice, SentAt: now},
	}

	conversations := ProjectConversations(alice, messages, nil, now)
	require.Len(conversations, 3)
	require.Equal(carol, conversations[0].PartnerAddress)
	require.Equal(bob, conversations[1].PartnerAddress)
	require.Equal(dave, conversations[2].PartnerAddress)
	for i := 1; i < len(conversations); i++ {
		require.False(conversations[i].LastMessageAt.After(conversations[i-1].LastMessageAt))
	}

	require.Empty(ProjectConversations(alice, nil, nil, now))
}

func TestThreadWith(t *testing.T) {
	require := testutil.Require(t)

	messages := []*Message{
		{ID: "1", Sender: alice, Recipient: bob},
		{ID: "2", Sender: carol, Recipient: alice},
		{ID: "3", Sender: bob, Recipient: alice},
		{ID: "4", Sender: bob, Recipient: carol},
	}

	thread := ThreadWith(alice, bob, messages)
	require.Len(thread, 2)
	require.Equal("1", thread[0].ID)
	require.Equal("3", thread[1].ID)
	require.Empty(ThreadWith(alice, dave, messages))
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		ago      time.Duration
		expected string
	}{
		{ago: -time.Minute, expected: "now"},
		{ago: 0, expected: "now"},
		{ago: 59 * time.Second, expected: "now"},
		{ago: time.Minute, expected: "1m"},
		{ago: 59*time.Minute + 59*time.Second, expected: "59m"},
		{ago: time.Hour, expected: "1h"},
		{ago: 23*time.Hour + 59*time.Minute, expected: "23h"},
		{ago: 24 * time.Hour, expected: "1d"},
		{ago: 6*24*time.Hour + 23*time.Hour, expected: "6d"},
		{ago: 7 * 24 * time.Hour, expected: "Feb 7"},
		{ago: 45 * 24 * time.Hour, expected: "Dec 31"},
	}
	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			require := testutil.Require(t)
			require.Equal(test.expected, RelativeTime(now.Add(-test.ago), now))
		})
	}
}
