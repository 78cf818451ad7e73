package timesource

import (
	"sync/atomic"
	"time"
)

type (
	// TimeSource provides the current time.
	TimeSource interface {
		Now() time.Time
	}

	realTimeSource struct{}

	// EventTimeSource serves a fake time that only moves when told to.
	EventTimeSource struct {
		now int64
	}
)

func NewRealTimeSource() TimeSource {
	return &realTimeSource{}
}

func (s *realTimeSource) Now() time.Time {
	return time.Now()
}

func NewEventTimeSource() *EventTimeSource {
	return &EventTimeSource{}
}

func (s *EventTimeSource) Now() time.Time {
	return time.Unix(0, atomic.LoadInt64(&s.now)).UTC()
}

func (s *EventTimeSource) Update(now time.Time) *EventTimeSource {
	atomic.StoreInt64(&s.now, now.UnixNano())
	return s
}

// Advance moves the fake time forward by d.
func (s *EventTimeSource) Advance(d time.Duration) *EventTimeSource {
	atomic.AddInt64(&s.now, int64(d))
	return s
}
