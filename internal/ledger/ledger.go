package ledger

import (
	"context"
	"time"
)

// ResultLog records successfully submitted URLs. Append-only; this tool
// never reads or compacts it.
type ResultLog interface {
	RecordSuccess(ctx context.Context, url string, day time.Time) error
	Close() error
}

// BadURLLog records URLs that must not be resubmitted, with the reason the
// API gave. Append-only.
type BadURLLog interface {
	RecordRejected(ctx context.Context, url, reason string) error
	Close() error
}
