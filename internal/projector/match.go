package projector

import (
	"sort"
	"time"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
)

type (
	SwipeRecord struct {
		Swiper string
		Swiped string
		IsLike bool
		At     time.Time
		// Provisional marks a swipe spliced in by the overlay before the ledger confirmed it.
		Provisional bool
	}

	// Match is an unordered pair: A < B. Partner is the side that is not the viewer.
	Match struct {
		A         string
		B         string
		Partner   string
		CreatedAt time.Time
		MatchID   string
	}

	pairKey struct {
		a string
		b string
	}
)

func newPairKey(x string, y string) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// ProjectSwipes decodes the swipe stream in the input order.
func (p *Projector) ProjectSwipes(events []*event.RawEvent) []*SwipeRecord {
	swipes := decodeAll[event.SwipeEvent](p, events)
	records := make([]*SwipeRecord, 0, len(swipes))
	for _, d := range swipes {
		records = append(records, &SwipeRecord{
			Swiper: d.payload.Swiper,
			Swiped: d.payload.Swiped,
			IsLike: d.payload.IsLike,
			At:     event.At(d.event, d.payload.Timestamp),
		})
	}

	return records
}

// ProjectMatches returns the matches of the viewer. A pair matches when both
// sides liked each other in the swipe stream, or when a MatchCreated event names
// the viewer on either side. Each pair appears once. The output is sorted by
// CreatedAt descending, ties broken by partner address.
func (p *Projector) ProjectMatches(viewer string, swipes []*SwipeRecord, matchEvents []*event.RawEvent) []*Match {
	likes := make(map[pairKey]time.Time)
	for _, swipe := range swipes {
		if swipe.IsLike && swipe.Swiper != swipe.Swiped {
			key := pairKey{a: swipe.Swiper, b: swipe.Swiped}
			if at, ok := likes[key]; !ok || swipe.At.Before(at) {
				likes[key] = swipe.At
			}
		}
	}

	matches := make(map[pairKey]*Match)
	for key, at := range likes {
		if key.a != viewer {
			continue
		}

		reverse, ok := likes[pairKey{a: key.b, b: key.a}]
		if !ok {
			continue
		}

		// The match forms with the second like.
		if reverse.After(at) {
			at = reverse
		}

		pair := newPairKey(key.a, key.b)
		matches[pair] = &Match{A: pair.a, B: pair.b, Partner: key.b, CreatedAt: at}
	}

	for _, d := range decodeAll[event.MatchCreated](p, matchEvents) {
		var partner string
		switch viewer {
		case d.payload.User1:
			partner = d.payload.User2
		case d.payload.User2:
			partner = d.payload.User1
		default:
			continue
		}

		pair := newPairKey(d.payload.User1, d.payload.User2)
		if match, ok := matches[pair]; ok {
			if match.MatchID == "" {
				match.MatchID = d.payload.MatchID
			}
			continue
		}

		matches[pair] = &Match{
			A:         pair.a,
			B:         pair.b,
			Partner:   partner,
			CreatedAt: event.At(d.event, d.payload.Timestamp),
			MatchID:   d.payload.MatchID,
		}
	}

	result := make([]*Match, 0, len(matches))
	for _, match := range matches {
		result = append(result, match)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].Partner < result[j].Partner
	})

	return result
}

// SwipeHistory returns the set of addresses the viewer has swiped on, liked or not.
func SwipeHistory(viewer string, swipes []*SwipeRecord) map[string]bool {
	history := make(map[string]bool)
	for _, swipe := range swipes {
		if swipe.Swiper == viewer {
			history[swipe.Swiped] = true
		}
	}

	return history
}
