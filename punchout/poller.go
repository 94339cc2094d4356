package punchout

import (
	"context"
	"log"
	"time"

	"punchlab/backend"
)

// AuditSource supplies audit-log snapshots for one session key.
// backend.Client satisfies it.
type AuditSource interface {
	NetworkRequests(ctx context.Context, sessionKey string) ([]backend.NetworkRequest, error)
}

// PollOutcome is what one bounded poll loop observed.
type PollOutcome struct {
	Entries      []backend.NetworkRequest
	AuthObserved bool
	CatalogEntry *backend.NetworkRequest
	Attempts     int
}

// Signals receives progress notifications as the poll loop observes them.
// AuthObserved fires at most once per loop; CatalogObserved terminates it.
type Signals interface {
	AuthObserved()
	CatalogObserved(entry backend.NetworkRequest)
}

// Poller watches the audit log for the downstream calls triggered by one
// setup dispatch. The gateway's internals are not observable directly, so
// progress is inferred from what the backend logged under the correlation
// token.
//
// Bounded attempts with a fixed cadence: the observed calls settle within a
// few seconds, so a short fixed interval beats a backoff policy here.
type Poller struct {
	source      AuditSource
	preDelay    time.Duration
	interval    time.Duration
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewPoller(source AuditSource, preDelay, interval time.Duration, maxAttempts int) *Poller {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Poller{
		source:      source,
		preDelay:    preDelay,
		interval:    interval,
		maxAttempts: maxAttempts,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Poll runs the bounded loop. One pre-delay lets the backend's asynchronous
// persistence catch up, then up to maxAttempts snapshots are taken at the
// fixed cadence. A failed fetch yields a stale round, not an aborted loop.
// The loop ends early on catalog success; the final attempt's trailing delay
// is never awaited.
func (p *Poller) Poll(ctx context.Context, sessionKey string, signals Signals) PollOutcome {
	outcome := PollOutcome{}

	if err := p.sleep(ctx, p.preDelay); err != nil {
		return outcome
	}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		outcome.Attempts = attempt

		entries, err := p.source.NetworkRequests(ctx, sessionKey)
		if err != nil {
			log.Printf("punchout: poll %s attempt %d/%d: %v", sessionKey, attempt, p.maxAttempts, err)
		} else {
			outcome.Entries = entries

			if !outcome.AuthObserved && hasAuthSuccess(entries) {
				outcome.AuthObserved = true
				if signals != nil {
					signals.AuthObserved()
				}
			}

			if entry := findCatalogSuccess(entries); entry != nil {
				outcome.CatalogEntry = entry
				if signals != nil {
					signals.CatalogObserved(*entry)
				}
				return outcome
			}
		}

		if attempt == p.maxAttempts {
			break
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return outcome
		}
	}

	return outcome
}

func hasAuthSuccess(entries []backend.NetworkRequest) bool {
	for _, e := range entries {
		if e.Destination == backend.DestAuthService && e.Success {
			return true
		}
	}
	return false
}

func findCatalogSuccess(entries []backend.NetworkRequest) *backend.NetworkRequest {
	for i, e := range entries {
		if (e.Destination == backend.DestMuleService || e.Destination == backend.DestCatalogService) && e.Success {
			return &entries[i]
		}
	}
	return nil
}
