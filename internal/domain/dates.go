package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ISODateLayout is the only accepted calendar date format.
const ISODateLayout = "2006-01-02"

var isoDatePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)

// ParseISODate accepts YYYY-MM-DD and rejects dates that do not exist on the
// calendar (2024-02-30) or use any other layout (29/02/2024).
func ParseISODate(s string) (time.Time, error) {
	if !isoDatePattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("date %q is not in YYYY-MM-DD form", s)
	}
	t, err := time.Parse(ISODateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not a calendar date: %w", s, err)
	}
	return t, nil
}

// YearFromISODate extracts the fiscal year of an ISO date string.
func YearFromISODate(s string) (int, error) {
	t, err := ParseISODate(s)
	if err != nil {
		return 0, err
	}
	return t.Year(), nil
}

// YearBounds returns the half-open [start, end) UTC range of a calendar year.
func YearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// YearPrefix returns the date prefix ("2024-") shared by every ISO date of the year.
func YearPrefix(year int) string {
	return fmt.Sprintf("%04d-", year)
}

// ParseYear validates a year given as text.
func ParseYear(s string) (int, error) {
	y, err := strconv.Atoi(s)
	if err != nil || y < 1900 || y > 9999 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidYear, s)
	}
	return y, nil
}
