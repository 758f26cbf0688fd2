package broker

import (
	"context"
	"sync/atomic"

	"github.com/0xmhha/nfs-watcher/pkg/logger"
)

// LogPublisher logs messages instead of sending them. Used for dry runs.
type LogPublisher struct {
	logger logger.Logger
	count  atomic.Uint64
}

// NewLogPublisher creates a dry-run publisher.
func NewLogPublisher(log logger.Logger) *LogPublisher {
	return &LogPublisher{logger: log.With("component", "broker", "dry_run", true)}
}

// Publish logs message and always succeeds.
func (p *LogPublisher) Publish(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.count.Add(1)
	p.logger.Info("message", "body", message)
	return nil
}

// Count returns the number of messages logged.
func (p *LogPublisher) Count() uint64 {
	return p.count.Load()
}

// Close is a no-op.
func (p *LogPublisher) Close() error {
	return nil
}
