package productivity

import (
	"fmt"
	"time"
)

const (
	DefaultDays    = 7
	DefaultMaxDays = 366
)

// RangeRequest selects the days of a report. StartDate wins over Days; an
// empty EndDate means today. Dates accept YYYY-MM-DD or phrases such as
// "yesterday" or "last monday".
type RangeRequest struct {
	Days      int    `json:"days,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type DateRange struct {
	Dates []time.Time
	Start time.Time
	End   time.Time
}

// ValidationError reports unusable range input.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Expand turns req into concrete calendar days relative to now. An explicit
// start walks forward to the end inclusive; a day count walks backward from
// today, newest first. A start after the end yields no days. Ranges longer
// than maxDays are rejected; maxDays <= 0 means DefaultMaxDays.
func Expand(req RangeRequest, now time.Time, maxDays int) (DateRange, error) {
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	today := midnight(now)

	if req.StartDate != "" {
		start, err := ParseDate(req.StartDate, now)
		if err != nil {
			return DateRange{}, &ValidationError{Field: "start_date", Value: req.StartDate, Err: err}
		}
		end := today
		if req.EndDate != "" {
			end, err = ParseDate(req.EndDate, now)
			if err != nil {
				return DateRange{}, &ValidationError{Field: "end_date", Value: req.EndDate, Err: err}
			}
		}

		if span := daySpan(start, end); span > maxDays {
			return DateRange{}, &ValidationError{
				Field: "start_date",
				Value: req.StartDate,
				Err:   fmt.Errorf("range of %d days exceeds the limit of %d", span, maxDays),
			}
		}

		dates := []time.Time{}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			dates = append(dates, d)
		}
		return DateRange{Dates: dates, Start: start, End: end}, nil
	}

	days := req.Days
	if days == 0 {
		days = DefaultDays
	}
	if days < 0 {
		return DateRange{}, &ValidationError{Field: "days", Value: fmt.Sprint(req.Days)}
	}
	if days > maxDays {
		return DateRange{}, &ValidationError{
			Field: "days",
			Value: fmt.Sprint(req.Days),
			Err:   fmt.Errorf("exceeds the limit of %d", maxDays),
		}
	}

	dates := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, today.AddDate(0, 0, -i))
	}
	return DateRange{
		Dates: dates,
		Start: today.AddDate(0, 0, -(days - 1)),
		End:   today,
	}, nil
}

// daySpan counts calendar days from start to end inclusive; zero when start
// is after end.
func daySpan(start, end time.Time) int {
	a := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if a.After(b) {
		return 0
	}
	return int(b.Sub(a)/(24*time.Hour)) + 1
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
