package testutil

import (
	"fmt"
	"time"
)

func MustTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		panic(err)
	}
	return t
}

// UnixMilli renders a time the way the ledger reports event timestamps.
func UnixMilli(value string) string {
	return fmt.Sprintf("%d", MustTime(value).UnixMilli())
}
