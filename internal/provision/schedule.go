package provision

import (
	"fmt"
	"time"

	cron "github.com/robfig/cron/v3"
)

// cronMirror is the crontab equivalent of calendarExpr, used only to
// preview the next activation for the operator. systemd remains the
// source of truth for the actual trigger.
const cronMirror = "15 3 * * *"

// NextRun returns the next scheduled activation after now, in UTC.
func NextRun(now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(cronMirror)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q: %w", cronMirror, err)
	}
	return sched.Next(now.UTC()), nil
}
