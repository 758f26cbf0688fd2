// Package dispatch drains the pending set and publishes one message per
// changed path.
//
// A single worker repeatedly snapshots the set, publishes "Event: <path>"
// for each entry and sleeps for Config.Interval. Two removal policies are
// supported:
//
//   - PolicyRemoveAfterPublish (default): the entry is removed only after the
//     publisher confirms, and only if the path did not change again while
//     the publish was in flight. A failed publish leaves the entry pending,
//     so it is retried on the next cycle (at-least-once).
//   - PolicyClaimBeforePublish: the entry is claimed with Remove before the
//     publish. A failed publish is logged and the path is not re-queued until
//     the file changes again (at-most-once per observed change).
//
// Example usage:
//
//	d, err := dispatch.New(dispatch.Config{}, set, publisher, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go d.Run(ctx) // returns after ctx is cancelled and the current pass ends
package dispatch

import (
	"context"
	"time"
)

// Publisher delivers one message. A non-nil error means the message was not
// confirmed.
type Publisher interface {
	Publish(ctx context.Context, message string) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, message string) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, message string) error {
	return f(ctx, message)
}

// Set is the view of the pending set the dispatcher needs.
type Set interface {
	Snapshot() []string
	Remove(path string) bool
	Generation(path string) (uint64, bool)
	RemoveIfUnchanged(path string, gen uint64) bool
	Len() int
}

// Policy selects when an entry leaves the pending set.
type Policy string

const (
	// PolicyRemoveAfterPublish removes an entry only after a confirmed publish.
	PolicyRemoveAfterPublish Policy = "remove-after-publish"

	// PolicyClaimBeforePublish removes an entry before publishing it.
	PolicyClaimBeforePublish Policy = "claim-before-publish"
)

// Defaults applied by New to zero-valued Config fields.
const (
	DefaultInterval       = 500 * time.Millisecond
	DefaultPublishTimeout = 10 * time.Second
	DefaultDrainTimeout   = 30 * time.Second
)

// Config contains dispatcher configuration.
type Config struct {
	// Interval is the pause between drain cycles.
	Interval time.Duration

	// PublishTimeout bounds a single publish, including rate limit waits.
	PublishTimeout time.Duration

	// Policy selects the removal policy. Default: PolicyRemoveAfterPublish.
	Policy Policy

	// DrainOnShutdown keeps cycling after the stop signal until the set is
	// empty or DrainTimeout elapses.
	DrainOnShutdown bool

	// DrainTimeout bounds the shutdown drain.
	DrainTimeout time.Duration

	// RateLimit caps publishes per second. Zero disables throttling.
	RateLimit float64

	// Burst is the limiter bucket size. Default: 1.
	Burst int
}

// CycleResult summarises one drain pass.
type CycleResult struct {
	// Snapshot is the number of paths in the snapshot.
	Snapshot int

	// Published is the number of confirmed publishes.
	Published int

	// Failed is the number of publishes that returned an error.
	Failed int

	// Skipped counts paths already handled elsewhere when their turn came.
	Skipped int

	// Requeued counts confirmed paths left pending because they changed
	// again during the publish.
	Requeued int
}

// Stats are cumulative dispatcher counters.
type Stats struct {
	Cycles    uint64    `json:"cycles"`
	Published uint64    `json:"published"`
	Failed    uint64    `json:"failed"`
	Skipped   uint64    `json:"skipped"`
	Requeued  uint64    `json:"requeued"`
	LastCycle time.Time `json:"last_cycle"`
}
