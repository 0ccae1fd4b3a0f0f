// Package poll defines the shared polling cadence and timeout policy for
// remote generation tasks. Early polls catch fast jobs cheaply; later
// polls back off to reduce request volume for slow jobs.
package poll

import (
	"context"
	"time"
)

// Tier maps an elapsed-time window to a polling interval. A tier applies
// while elapsed < Until.
type Tier struct {
	Until    time.Duration
	Interval time.Duration
}

// Policy is the complete polling policy for one job type.
type Policy struct {
	// Tiers are checked in order; the first tier with elapsed < Until wins.
	Tiers []Tier
	// Final is the interval used once all tiers are exhausted.
	Final time.Duration
	// Budget is the hard wall-clock limit for the whole job. A job still
	// pending at the budget fails with a timeout, never earlier.
	Budget time.Duration
	// RetrySleep is the fixed sleep after a transient poll error. Transient
	// errors consume a retry slot within the same budget; they never reset
	// the elapsed clock.
	RetrySleep time.Duration
}

// Interval returns the poll interval to use at the given elapsed time.
func (p Policy) Interval(elapsed time.Duration) time.Duration {
	for _, tier := range p.Tiers {
		if elapsed < tier.Until {
			return tier.Interval
		}
	}
	return p.Final
}

// ImagePolicy is the cadence used for image generation tasks, which
// typically complete in well under a minute.
func ImagePolicy() Policy {
	return Policy{
		Tiers: []Tier{
			{Until: 30 * time.Second, Interval: 3 * time.Second},
			{Until: 2 * time.Minute, Interval: 5 * time.Second},
		},
		Final:      10 * time.Second,
		Budget:     10 * time.Minute,
		RetrySleep: 5 * time.Second,
	}
}

// VideoPolicy is the cadence used for video generation tasks, which
// typically take two to four minutes.
func VideoPolicy() Policy {
	return Policy{
		Tiers: []Tier{
			{Until: time.Minute, Interval: 10 * time.Second},
			{Until: 3 * time.Minute, Interval: 15 * time.Second},
		},
		Final:      30 * time.Second,
		Budget:     15 * time.Minute,
		RetrySleep: 5 * time.Second,
	}
}

// Wait sleeps for d or until ctx is cancelled, returning the context
// error in the latter case.
func Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
