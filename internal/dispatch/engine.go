package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/shohag/indexpush/internal/credential"
	"github.com/shohag/indexpush/internal/ledger"
	"github.com/shohag/indexpush/internal/outcome"
	"github.com/shohag/indexpush/internal/queue"
	"github.com/shohag/indexpush/internal/submit"
)

// ClientFactory builds the submission client for one credential. In a dry
// run it ignores the credential entirely.
type ClientFactory func(ctx context.Context, cred credential.Credential) (submit.Client, error)

// Engine drains the queue through the credential pool: one credential at a
// time, one URL in flight at a time, with the remainder rewritten durably
// after every credential pass.
type Engine struct {
	queue    queue.Store
	results  ledger.ResultLog
	badURLs  ledger.BadURLLog
	factory  ClientFactory
	limiter  *rate.Limiter
	progress *Progress
	log      zerolog.Logger
	runID    string
	now      func() time.Time
}

func New(store queue.Store, results ledger.ResultLog, badURLs ledger.BadURLLog, factory ClientFactory, delay time.Duration, log zerolog.Logger) *Engine {
	runID := NewRunID()
	return &Engine{
		queue:   store,
		results: results,
		badURLs: badURLs,
		factory: factory,
		// One shared limiter for the whole run: the API's rate policy is
		// global, so the clock does not reset on credential change.
		limiter:  rate.NewLimiter(rate.Every(delay), 1),
		progress: NewProgress(runID),
		log:      log.With().Str("run_id", runID).Logger(),
		runID:    runID,
		now:      time.Now,
	}
}

// Progress exposes the live counters for the status API.
func (e *Engine) Progress() *Progress {
	return e.progress
}

// CredentialReport is the per-credential slice of the run summary.
type CredentialReport struct {
	Credential string
	Processed  int
	Remaining  int
	Skipped    bool
}

type Summary struct {
	RunID          string
	TotalProcessed int
	Reports        []CredentialReport
}

// Run loads the queue once per credential and drains it until the queue
// empties or the pool runs out. Submission-level failures never abort the
// run; queue or ledger write failures do.
func (e *Engine) Run(ctx context.Context, creds []credential.Credential) (*Summary, error) {
	summary := &Summary{RunID: e.runID}
	if len(creds) == 0 {
		return summary, credential.ErrNoCredentials
	}

	for _, cred := range creds {
		urls, err := e.queue.Load(ctx)
		if err != nil {
			return summary, fmt.Errorf("load queue: %w", err)
		}
		if len(urls) == 0 {
			e.log.Info().Msg("queue empty, run complete")
			break
		}

		e.progress.SetCredential(cred.Name())
		e.progress.SetRemaining(int64(len(urls)))
		e.log.Info().Str("credential", cred.Name()).Int("pending", len(urls)).Msg("starting credential pass")

		report, err := e.drain(ctx, cred, urls)
		summary.Reports = append(summary.Reports, report)
		summary.TotalProcessed += report.Processed
		if err != nil {
			return summary, err
		}

		e.log.Info().
			Str("credential", cred.Name()).
			Int("processed", report.Processed).
			Int("remaining", report.Remaining).
			Msg("credential pass complete")
	}

	return summary, nil
}

func (e *Engine) drain(ctx context.Context, cred credential.Credential, urls []string) (CredentialReport, error) {
	report := CredentialReport{Credential: cred.Name(), Remaining: len(urls)}

	client, err := e.factory(ctx, cred)
	if err != nil {
		// Unusable key file. Skip the credential; the queue on disk is
		// untouched, so nothing is lost.
		e.log.Error().Err(err).Str("credential", cred.Name()).Msg("credential unusable, skipping")
		report.Skipped = true
		return report, nil
	}

	remainder := make([]string, 0, len(urls))
	exhausted := false

	for i, url := range urls {
		// Once the credential is out of quota, everything else in this
		// pass is preserved unattempted, in original order.
		if exhausted {
			remainder = append(remainder, url)
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			remainder = append(remainder, urls[i:]...)
			return e.abort(report, remainder, err)
		}

		raw, err := client.Submit(ctx, url)
		if ctx.Err() != nil {
			// Interrupted mid-call: this URL was not resolved, keep it.
			remainder = append(remainder, urls[i:]...)
			return e.abort(report, remainder, ctx.Err())
		}

		out := outcome.Classify(raw, err)
		e.progress.Attempted()

		switch out.Kind {
		case outcome.Success:
			if rerr := e.results.RecordSuccess(ctx, url, e.now()); rerr != nil {
				remainder = append(remainder, urls[i:]...)
				return e.abort(report, remainder, fmt.Errorf("record success: %w", rerr))
			}
			report.Processed++
			e.progress.Succeeded()
			e.log.Info().
				Str("url", url).
				Str("credential", cred.Name()).
				Str("notified", out.NotifiedURL).
				Msg("url submitted")

		case outcome.CredentialExhausted:
			exhausted = true
			remainder = append(remainder, url)
			e.log.Warn().
				Str("credential", cred.Name()).
				Int("code", out.Code).
				Str("status", out.Status).
				Msg("credential quota exhausted, failing over")

		case outcome.URLRejected:
			if rerr := e.badURLs.RecordRejected(ctx, url, out.Reason()); rerr != nil {
				remainder = append(remainder, urls[i:]...)
				return e.abort(report, remainder, fmt.Errorf("record bad url: %w", rerr))
			}
			e.progress.Rejected()
			e.log.Warn().
				Str("url", url).
				Int("code", out.Code).
				Str("status", out.Status).
				Str("message", out.Message).
				Msg("url rejected")

		case outcome.Transient:
			if rerr := e.badURLs.RecordRejected(ctx, url, out.Reason()); rerr != nil {
				remainder = append(remainder, urls[i:]...)
				return e.abort(report, remainder, fmt.Errorf("record bad url: %w", rerr))
			}
			e.progress.Rejected()
			e.log.Warn().
				Str("url", url).
				Str("status", out.Status).
				Str("message", out.Message).
				Msg("transient failure, url logged and dropped")
		}
	}

	if err := e.queue.Replace(ctx, remainder); err != nil {
		return report, fmt.Errorf("persist queue: %w", err)
	}
	report.Remaining = len(remainder)
	e.progress.SetRemaining(int64(len(remainder)))
	return report, nil
}

// abort persists the remainder before surfacing a fatal error, so the run
// stays resumable. The run context may already be cancelled, hence the
// background context for the final write.
func (e *Engine) abort(report CredentialReport, remainder []string, cause error) (CredentialReport, error) {
	if err := e.queue.Replace(context.Background(), remainder); err != nil {
		return report, errors.Join(cause, fmt.Errorf("persist queue: %w", err))
	}
	report.Remaining = len(remainder)
	e.progress.SetRemaining(int64(len(remainder)))
	return report, cause
}
