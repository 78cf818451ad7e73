package testutil

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

// Assertions extends require.Assertions with go-cmp based comparison.
type Assertions struct {
	*require.Assertions
}

func Require(t require.TestingT) *Assertions {
	return &Assertions{
		Assertions: require.New(t),
	}
}

// Diff fails the test with a readable diff unless expected and actual are equal.
// Nil and empty slices or maps compare equal.
func (a *Assertions) Diff(expected interface{}, actual interface{}, opts ...cmp.Option) {
	opts = append(opts, cmpopts.EquateEmpty())
	if diff := cmp.Diff(expected, actual, opts...); diff != "" {
		a.FailNow("unexpected diff (-want +got):\n" + diff)
	}
}
