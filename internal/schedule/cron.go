package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/cronexpr"
)

var ErrInvalidCount = errors.New("count must be greater than 0")

// NextRunTimes returns the next n times a cron expression fires, in UTC.
func NextRunTimes(cron string, n int) ([]time.Time, error) {
	return NextRunTimesAfter(cron, time.Now().UTC(), n)
}

// NextRunTimesAfter returns the next n times a cron expression fires after a
// specific time.
func NextRunTimesAfter(cron string, after time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, ErrInvalidCount
	}
	expr, err := parse(cron)
	if err != nil {
		return nil, err
	}
	return expr.NextN(after, uint(n)), nil
}

func ValidateCron(cron string) error {
	_, err := parse(cron)
	return err
}

func parse(cron string) (*cronexpr.Expression, error) {
	expr, err := cronexpr.Parse(cron)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", cron, err)
	}
	return expr, nil
}
