// Package doctor runs health checks over a huddle installation.
package doctor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkTimeout bounds a single check so one unreachable service cannot stall
// the report.
const checkTimeout = 10 * time.Second

// Status represents the result status of a check item.
type Status int

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	if s < StatusPass || s > StatusFail {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(s.String()), nil
}

// CheckItem represents a single line item within a check result.
type CheckItem struct {
	Label   string `json:"label"`
	Status  Status `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Fixable bool   `json:"fixable,omitempty"`
}

// Result represents the outcome of a check containing multiple items.
type Result struct {
	Name  string      `json:"name"`
	Items []CheckItem `json:"items"`
}

// Check defines the interface for a doctor check.
type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// RunAll executes the checks concurrently and returns their results in the
// order given.
func RunAll(ctx context.Context, checks []Check) []Result {
	results := make([]Result, len(checks))

	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			results[i] = check.Run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Summary returns counts of passed, warned, and failed items across all results.
func Summary(results []Result) (passed, warned, failed int) {
	for _, r := range results {
		for _, item := range r.Items {
			switch item.Status {
			case StatusPass:
				passed++
			case StatusWarn:
				warned++
			case StatusFail:
				failed++
			}
		}
	}
	return
}

// CountFixable returns the number of fixable issues across all results.
func CountFixable(results []Result) int {
	count := 0
	for _, r := range results {
		for _, item := range r.Items {
			if item.Fixable && item.Status != StatusPass {
				count++
			}
		}
	}
	return count
}
