package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений (стандартные 5 полей + @every).
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule разбирает расписание janitor'а: либо Go duration
// ("30s", "2m"), либо cron-выражение ("*/5 * * * *", "@every 1m").
func ParseSchedule(expr string) (cron.Schedule, error) {
	if d, err := time.ParseDuration(expr); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("non-positive janitor interval %q", expr)
		}
		return cron.Every(d), nil
	}

	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse janitor schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Run выполняет Tick по расписанию до отмены контекста.
func (j *Janitor) Run(ctx context.Context, sched cron.Schedule) error {
	for {
		next := sched.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			if err := j.Tick(ctx); err != nil {
				j.logger.Error("janitor tick failed", "error", err)
			}
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
