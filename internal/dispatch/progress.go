package dispatch

import "sync/atomic"

// Progress is the engine's live view for the status API. All fields are
// safe to read while the run is in flight.
type Progress struct {
	runID      string
	credential atomic.Value // string

	attempted atomic.Int64
	succeeded atomic.Int64
	rejected  atomic.Int64
	remaining atomic.Int64
}

func NewProgress(runID string) *Progress {
	p := &Progress{runID: runID}
	p.credential.Store("")
	return p
}

func (p *Progress) Attempted() { p.attempted.Add(1) }

func (p *Progress) Succeeded() { p.succeeded.Add(1) }

func (p *Progress) Rejected() { p.rejected.Add(1) }

func (p *Progress) SetRemaining(n int64) { p.remaining.Store(n) }

func (p *Progress) SetCredential(s string) { p.credential.Store(s) }

type Snapshot struct {
	RunID      string `json:"run_id"`
	Credential string `json:"credential"`
	Attempted  int64  `json:"attempted"`
	Succeeded  int64  `json:"succeeded"`
	Rejected   int64  `json:"rejected"`
	Remaining  int64  `json:"remaining"`
}

func (p *Progress) Snapshot() Snapshot {
	cred, _ := p.credential.Load().(string)
	return Snapshot{
		RunID:      p.runID,
		Credential: cred,
		Attempted:  p.attempted.Load(),
		Succeeded:  p.succeeded.Load(),
		Rejected:   p.rejected.Load(),
		Remaining:  p.remaining.Load(),
	}
}
