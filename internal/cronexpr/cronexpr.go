// Package cronexpr evaluates the 5-field cron expressions used by
// backup schedules. Expressions are validated once at schedule
// creation; evaluation itself never fails.
package cronexpr

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate rejects malformed expressions. Schedules are validated at
// creation time so the scheduler never has to handle a parse error.
func Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("empty cron expression")
	}
	if _, err := parser.Parse(strings.TrimSpace(expr)); err != nil {
		return fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return nil
}

// Next returns the first instant strictly after from that satisfies
// expr. expr must have passed Validate; on a parse error the schedule
// is advanced a day so the caller can never loop on a non-future
// instant.
func Next(expr string, from time.Time) time.Time {
	sched, err := parser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return from.Add(24 * time.Hour)
	}
	next := sched.Next(from)
	if !next.After(from) {
		return from.Add(24 * time.Hour)
	}
	return next
}
