package cron

import (
	"context"
	"fmt"
	"time"
)

type (
	Task interface {
		Name() string
		Spec() string
		Parallelism() int64
		DelayStartDuration() time.Duration
		Run(ctx context.Context) error
		Enabled() bool
	}
)

// every renders the cron spec of a fixed interval.
func every(interval time.Duration) string {
	return fmt.Sprintf("@every %v", interval)
}
