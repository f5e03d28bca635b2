package node

import (
	"context"
	"time"
)

// Subscription is a long-lived message source. Subscriptions are matched by
// ID between updates: a new ID is started, a missing one is stopped.
type Subscription struct {
	ID string

	// Interval and Msg describe a timer that sends Msg every Interval.
	Interval time.Duration
	Msg      Message

	// Run, when set, is a stream that sends until ctx is done.
	Run func(ctx context.Context, send func(Message))
}

// Every is a timer subscription.
func Every(id string, interval time.Duration, msg Message) Subscription {
	return Subscription{ID: id, Interval: interval, Msg: msg}
}

// Stream is a subscription driven by fn.
func Stream(id string, fn func(ctx context.Context, send func(Message))) Subscription {
	return Subscription{ID: id, Run: fn}
}

func (s Subscription) run(ctx context.Context, send func(Message)) {
	if s.Run != nil {
		s.Run(ctx, send)
		return
	}
	if s.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			send(s.Msg)
		}
	}
}
