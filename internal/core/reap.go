package core

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/k8sproject/internal/cluster"
	"github.com/giantswarm/k8sproject/internal/ledger"
	"github.com/giantswarm/k8sproject/internal/metrics"
)

// reapConcurrency caps parallel project deletions during Reap.
const reapConcurrency = 4

// ReapOutcome classifies one ledger entry handled by Reap.
type ReapOutcome string

const (
	ReapDeleted ReapOutcome = "deleted"
	ReapSkipped ReapOutcome = "skipped"
	ReapFailed  ReapOutcome = "failed"
)

// ReapResult reports what Reap did with one ledger entry.
type ReapResult struct {
	ledger.Entry
	Outcome ReapOutcome `json:"outcome"`
	Reason  string      `json:"reason,omitempty"`
}

// ReapLedger is the part of the ledger Reap needs.
type ReapLedger interface {
	List(ctx context.Context, cutoff time.Time) ([]ledger.Entry, error)
	Remove(ctx context.Context, name, server string) error
}

// ReapParams configures Reap.
type ReapParams struct {
	Projects cluster.ProjectClient
	Ledger   ReapLedger
	// Server restricts reaping to entries created against this endpoint.
	Server string
	// OlderThan skips entries younger than this age.
	OlderThan time.Duration
	// Alive reports whether the run that created an entry is still running.
	Alive   func(pid int) bool
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Reap deletes projects recorded in the ledger by runs that are gone,
// typically because they were killed before cleanup could run. Per-entry
// failures are reported in the results, not as an error.
func Reap(ctx context.Context, p ReapParams) ([]ReapResult, error) {
	if p.Projects == nil || p.Ledger == nil {
		panic("k8sproject: reap requires a project client and a ledger")
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	alive := p.Alive
	if alive == nil {
		alive = func(int) bool { return false }
	}
	m := p.Metrics
	if m == nil {
		m = metrics.Discard()
	}

	entries, err := p.Ledger.List(ctx, now().Add(-p.OlderThan))
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}

	var candidates []ledger.Entry
	for _, e := range entries {
		if p.Server == "" || e.Server == p.Server {
			candidates = append(candidates, e)
		}
	}

	results := make([]ReapResult, len(candidates))
	log := Logger()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(reapConcurrency)

	for idx, e := range candidates {
		results[idx] = ReapResult{Entry: e}
		if alive(e.PID) {
			results[idx].Outcome = ReapSkipped
			results[idx].Reason = fmt.Sprintf("run %s (pid %d) is still alive", e.RunID, e.PID)
			continue
		}
		g.Go(func() error {
			if err := p.Projects.Delete(gCtx, e.Name); err != nil {
				log.Warn("reap: delete project failed", "namespace", e.Name, "error", err)
				results[idx].Outcome = ReapFailed
				results[idx].Reason = err.Error()
				return nil
			}
			m.ProjectsReaped.Inc()
			if err := p.Ledger.Remove(gCtx, e.Name, e.Server); err != nil {
				log.Warn("reap: remove ledger entry failed", "namespace", e.Name, "error", err)
			}
			log.Info("reaped project", "namespace", e.Name, "run_id", e.RunID)
			results[idx].Outcome = ReapDeleted
			return nil
		})
	}

	// Every goroutine returns nil; failures are in results.
	_ = g.Wait()
	return results, nil
}
