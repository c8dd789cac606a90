package queue

import "context"

// Store is the durable URL queue. A run never holds two representations of
// the same queue: the engine reloads via Load at the top of each credential
// pass and rewrites via Replace at the end of it.
type Store interface {
	// Load returns the pending URLs in order. A queue that does not exist
	// yet loads as empty, not as an error.
	Load(ctx context.Context) ([]string, error)

	// Replace atomically overwrites the persisted queue with urls, in the
	// given order. A crash mid-Replace must leave either the previous queue
	// or the new one, never a torn mix.
	Replace(ctx context.Context, urls []string) error
}
