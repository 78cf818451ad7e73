package testutil

import (
	"fmt"

	"go.uber.org/mock/gomock"
)

type funcMatcher struct {
	desc  string
	match func(x any) bool
}

func (m *funcMatcher) Matches(x any) bool {
	return m.match(x)
}

func (m *funcMatcher) String() string {
	return m.desc
}

// MatchFunc builds a gomock matcher from a typed predicate.
func MatchFunc[T any](desc string, match func(v T) bool) gomock.Matcher {
	return &funcMatcher{
		desc: fmt.Sprintf("matches %v", desc),
		match: func(x any) bool {
			v, ok := x.(T)
			return ok && match(v)
		},
	}
}
