// Package service wires the watcher, capture adapter, pending set and
// dispatcher into one component with an explicit lifecycle.
//
// Example usage:
//
//	svc, err := service.New(cfg, publisher, log)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := svc.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package service

import (
	"time"

	"github.com/0xmhha/nfs-watcher/pkg/capture"
	"github.com/0xmhha/nfs-watcher/pkg/dispatch"
)

// Status is a point-in-time view of the service.
type Status struct {
	// Timestamp of the snapshot
	Timestamp time.Time `json:"timestamp"`

	// Root is the resolved watch root
	Root string `json:"root"`

	// Running reports whether intake and dispatch are active
	Running bool `json:"running"`

	// Uptime since the last Start
	Uptime time.Duration `json:"uptime"`

	// Pending is the number of paths awaiting publication
	Pending int `json:"pending"`

	// Watched is the number of watched directories
	Watched int `json:"watched"`

	// Capture contains adapter counters
	Capture capture.Stats `json:"capture"`

	// Dispatch contains drain loop counters
	Dispatch dispatch.Stats `json:"dispatch"`
}

// Option configures optional service behaviour.
type Option func(*Service)

// WithStatusInterval emits a Status on Updates and logs it every d.
// Zero disables periodic status.
func WithStatusInterval(d time.Duration) Option {
	return func(s *Service) {
		s.statusInterval = d
	}
}
