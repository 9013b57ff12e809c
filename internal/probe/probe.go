// Package probe decides whether a named fleet service is alive.
//
// A probe is an ordered chain of checks. Each check either produces an
// ALIVE verdict or is inconclusive for the service at hand; only the
// end of the chain produces DEAD. This lets one probe binary serve both
// the HTTP-capable dashboard and plain background workers without
// per-service configuration.
package probe

import (
	"context"
	"time"

	logx "dreamops/pkg/logx"
)

// Check is a single liveness strategy.
//
// Probe returns (true, nil) when the service is definitely alive.
// A non-nil error means the check was inconclusive, not that the
// service is dead; the prober moves on to the next check.
type Check interface {
	Name() string
	Probe(ctx context.Context, service string) (bool, error)
}

// Prober runs checks in order and short-circuits on the first ALIVE.
type Prober struct {
	checks []Check
	log    logx.Logger
}

func New(log logx.Logger, checks ...Check) *Prober {
	return &Prober{checks: checks, log: log}
}

// Default returns the production chain: HTTP health endpoint first,
// raw process-table scan second.
func Default(log logx.Logger, port int, timeout time.Duration) *Prober {
	return New(log,
		NewHTTPCheck(port, timeout),
		NewProcScan(""),
	)
}

// Alive reports whether service is alive. All intermediate failures
// collapse into the boolean; callers translate it to an exit status.
func (p *Prober) Alive(ctx context.Context, service string) bool {
	for _, c := range p.checks {
		ok, err := c.Probe(ctx, service)
		if err != nil {
			p.log.Debug("check inconclusive",
				logx.String("check", c.Name()),
				logx.String("service", service),
				logx.Err(err),
			)
			continue
		}
		if ok {
			p.log.Debug("service alive",
				logx.String("check", c.Name()),
				logx.String("service", service),
			)
			return true
		}
	}
	p.log.Debug("service dead", logx.String("service", service))
	return false
}
