package daemon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"

	"skyreel/internal/config"
)

// Expression converts the posting time and weekdays into a standard
// five-field cron expression.
func Expression(cfg *config.Config) (string, error) {
	hour, minute, err := cfg.PostingClock()
	if err != nil {
		return "", err
	}
	days, err := cfg.PostingDays()
	if err != nil {
		return "", err
	}
	dow := "*"
	if len(days) > 0 {
		seen := make(map[int]bool, len(days))
		parts := make([]string, 0, len(days))
		for _, day := range days {
			if seen[int(day)] {
				continue
			}
			seen[int(day)] = true
			parts = append(parts, strconv.Itoa(int(day)))
		}
		dow = strings.Join(parts, ",")
	}
	return fmt.Sprintf("%d %d * * %s", minute, hour, dow), nil
}

// ParseSchedule builds the cron schedule for cfg.
func ParseSchedule(cfg *config.Config) (cron.Schedule, string, error) {
	expr, err := Expression(cfg)
	if err != nil {
		return nil, "", err
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, "", fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return schedule, expr, nil
}
