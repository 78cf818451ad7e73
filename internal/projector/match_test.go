package projector

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

func TestProjectMatches_Symmetry(t *testing.T) {
	require := testutil.Require(t)

	p, _ := newTestProjector()
	b := &eventBuilder{}
	swipes := p.ProjectSwipes([]*event.RawEvent{
		b.swipe(alice, bob, true, now.Add(-2*time.Hour)),
		b.swipe(bob, alice, true, now.Add(-time.Hour)),
	})

	forAlice := p.ProjectMatches(alice, swipes, nil)
	forBob := p.ProjectMatches(bob, swipes, nil)
	require.Len(forAlice, 1)
	require.Len(forBob, 1)
	require.Equal(bob, forAlice[0].Partner)
	require.Equal(alice, forBob[0].Partner)
	require.Equal(forAlice[0].A, forBob[0].A)
	require.Equal(forAlice[0].B, forBob[0].B)
	require.Equal(now.Add(-time.Hour), forAlice[0].CreatedAt)
}

func TestProjectMatches_NoFalseMatch(t *testing.T) {
	require := testutil.Require(t)

	p, _ := newTestProjector()
	b := &eventBuilder{}
	swipes := p.ProjectSwipes([]*event.RawEvent{
		b.swipe(alice, bob, true, now.Add(-2*time.Hour)),
		b.swipe(bob, alice, false, now.Add(-time.Hour)),
		b.swipe(alice, carol, true, now.Add(-time.Hour)),
		b.swipe(carol, dave, true, now.Add(-time.Hour)),
		b.swipe(dave, carol, true, now.Add(-time.Hour)),
	})

	require.Empty(p.ProjectMatches(alice, swipes, nil))
	require.Empty(p.ProjectMatches(bob, swipes, nil))
	require.Len(p.ProjectMatches(carol, swipes, nil), 1)
}

func TestProjectMatches_MatchEvents(t *testing.T) {
	require := testutil.Require(t)

	p, _ := newTestProjector()
	b := &eventBuilder{}
	swipes := p.ProjectSwipes([]*event.RawEvent{
		b.swipe(alice, bob, true, now.Add(-3*time.Hour)),
		b.swipe(bob, alice, true, now.Add(-2*time.Hour)),
	})
	matchEvents := []*event.RawEvent{
		b.matchCreated("0xm1", bob, alice, now.Add(-2*time.Hour)),
		b.matchCreated("0xm2", carol, alice, now.Add(-time.Hour)),
		b.matchCreated("0xm3", bob, dave, now),
		b.matchCreated("0xm4", alice, dave, now.Add(-5*time.Hour)),
		b.malformed(event.KindMatchCreated),
	}

	matches := p.ProjectMatches(alice, swipes, matchEvents)
	require.Len(matches, 3)
	require.Equal(carol, matches[0].Partner)
	require.Equal("0xm2", matches[0].MatchID)
	require.Equal(bob, matches[1].Partner)
	require.Equal("0xm1", matches[1].MatchID)
	require.Equal(dave, matches[2].Partner)

	require.Empty(cmp.Diff(matches, p.ProjectMatches(alice, swipes, matchEvents)))
}

func TestSwipeHistory(t *testing.T) {
	require := testutil.Require(t)

	swipes := []*SwipeRecord{
		{Swiper: alice, Swiped: bob, IsLike: true},
		{Swiper: alice, Swiped: carol, IsLike: false},
		{Swiper: dave, Swiped: alice, IsLike: true},
	}

	require.Equal(map[string]bool{bob: true, carol: true}, SwipeHistory(alice, swipes))
	require.Empty(SwipeHistory(bob, swipes))
}
