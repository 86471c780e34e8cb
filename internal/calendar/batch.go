// Package calendar manages the span of dates backing the schedule view and
// maps dates to the batch keys schedule data is fetched by.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/mealsync/internal/model"
)

// Granularity is the period a batch (and the window margin) is measured in.
type Granularity int

const (
	Week Granularity = iota
	Month
)

func (g Granularity) String() string {
	if g == Month {
		return "month"
	}
	return "week"
}

func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(s) {
	case "week", "":
		return Week, nil
	case "month":
		return Month, nil
	default:
		return Week, fmt.Errorf("unknown calendar granularity %q (supported: week, month)", s)
	}
}

// ParseDate parses a YYYY-MM-DD date as a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

func FormatDate(d time.Time) string {
	return d.Format(model.DateLayout)
}

// Day truncates t to its calendar date, as a UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PeriodStart returns the first day of the period containing d: the ISO week's
// Monday or the first of the month.
func PeriodStart(d time.Time, g Granularity) time.Time {
	d = Day(d)
	if g == Month {
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// PeriodEnd returns the last day of the period containing d.
func PeriodEnd(d time.Time, g Granularity) time.Time {
	return addPeriods(PeriodStart(d, g), g, 1).AddDate(0, 0, -1)
}

func addPeriods(d time.Time, g Granularity, n int) time.Time {
	if g == Month {
		return d.AddDate(0, n, 0)
	}
	return d.AddDate(0, 0, 7*n)
}

// BatchKey maps a date to the key of the batch it is fetched with: an ISO week
// ("2026-W43") or a month ("2026-10"). The same date always yields the same key.
func BatchKey(d time.Time, g Granularity) string {
	d = Day(d)
	if g == Month {
		return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
	}
	year, week := d.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// BatchKeyOf is BatchKey for a YYYY-MM-DD string.
func BatchKeyOf(date string, g Granularity) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return BatchKey(d, g), nil
}

// BatchRange returns the first and last day covered by a batch key and the
// granularity it encodes.
func BatchRange(key string) (from, to time.Time, g Granularity, err error) {
	if y, w, ok := strings.Cut(key, "-W"); ok {
		year, err1 := strconv.Atoi(y)
		week, err2 := strconv.Atoi(w)
		if err1 != nil || err2 != nil || week < 1 || week > 53 {
			return from, to, Week, fmt.Errorf("invalid week batch key %q", key)
		}
		// January 4th is always in ISO week 1
		from = PeriodStart(time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC), Week).AddDate(0, 0, 7*(week-1))
		if _, got := from.ISOWeek(); got != week {
			return from, to, Week, fmt.Errorf("invalid week batch key %q", key)
		}
		return from, PeriodEnd(from, Week), Week, nil
	}

	d, perr := time.Parse("2006-01", key)
	if perr != nil {
		return from, to, Month, fmt.Errorf("invalid batch key %q", key)
	}
	return d, PeriodEnd(d, Month), Month, nil
}
