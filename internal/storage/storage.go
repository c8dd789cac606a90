package storage

import (
	"github.com/shohag/indexpush/internal/ledger"
	"github.com/shohag/indexpush/internal/queue"
)

// Stats summarizes what the database knows about the queue and ledgers.
type Stats struct {
	Pending     int64   `json:"pending"`
	Succeeded   int64   `json:"succeeded"`
	Rejected    int64   `json:"rejected"`
	SuccessRate float64 `json:"success_rate"`
}

var (
	_ queue.Store      = (*SQLiteStorage)(nil)
	_ ledger.ResultLog = (*SQLiteStorage)(nil)
	_ ledger.BadURLLog = (*SQLiteStorage)(nil)
)
