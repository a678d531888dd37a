package normalize

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// FailedToFetch is returned by ToAbsoluteTime when a phrase cannot be read.
const FailedToFetch = "Failed to fetch!"

// absolutePhraseMinLen is the length above which a time label is treated as a
// full date rather than a relative phrase such as "3h" or "5 min".
const absolutePhraseMinLen = 5

var (
	leadingNumber = regexp.MustCompile(`\d+`)
	unitWord      = regexp.MustCompile(`[a-z]+`)
	weekdayPrefix = regexp.MustCompile(`(?i)^(monday|tuesday|wednesday|thursday|friday|saturday|sunday),?\s+`)
	fourDigitYear = regexp.MustCompile(`\b\d{4}\b`)
	monthName     = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`)
)

// epoch is the earliest instant a harvested post can carry.
var epoch = time.Unix(0, 0)

// yearlessLayouts read labels once the current year has been filled in, for
// shapes dateparse rejects.
var yearlessLayouts = []string{
	"January 2, 2006 3:04 PM",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"2 January 2006 3:04 PM",
	"2 January 2006 15:04",
	"2 January 2006",
}

type relativeUnit struct {
	words []string
	unit  time.Duration
}

// Checked in this order; the first unit whose word appears in the phrase wins.
var relativeUnits = []relativeUnit{
	{words: []string{"h", "hr", "hrs", "hour", "hours"}, unit: time.Hour},
	{words: []string{"m", "min", "mins", "minute", "minutes"}, unit: time.Minute},
	{words: []string{"s", "sec", "secs", "second", "seconds"}, unit: time.Second},
	{words: []string{"d", "ds", "day", "days"}, unit: 24 * time.Hour},
}

// ParseRelative converts a phrase like "3h" or "5 days" into an instant
// relative to now. ok is false when the phrase has no number or no known unit.
func ParseRelative(phrase string, now time.Time) (t time.Time, ok bool) {
	lower := strings.ToLower(phrase)
	digits := leadingNumber.FindString(lower)
	if digits == "" {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return time.Time{}, false
	}
	words := unitWord.FindAllString(lower, -1)
	for _, ru := range relativeUnits {
		for _, w := range words {
			if !slices.Contains(ru.words, w) {
				continue
			}
			if time.Duration(n) > time.Duration(math.MaxInt64)/ru.unit {
				return time.Time{}, false
			}
			t := now.Add(-time.Duration(n) * ru.unit)
			if t.Before(epoch) {
				return time.Time{}, false
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// ToAbsoluteTime renders ParseRelative as ISO-8601, or FailedToFetch.
func ToAbsoluteTime(phrase string, now time.Time) string {
	t, ok := ParseRelative(phrase, now)
	if !ok {
		return FailedToFetch
	}
	return t.Format(time.RFC3339)
}

// ParseTimestamp reads a free-form date label such as
// "Monday, January 15, 2024 at 10:30 AM". Labels without a year, such as
// "March 3 at 10:15 AM", are taken to be in now's year, or the year before
// when that would put them after now.
func ParseTimestamp(label string, now time.Time) (time.Time, error) {
	cleaned := weekdayPrefix.ReplaceAllString(strings.TrimSpace(label), "")
	datePart, timePart, _ := strings.Cut(cleaned, " at ")
	datePart = strings.TrimSpace(datePart)
	if datePart == "" {
		return time.Time{}, fmt.Errorf("empty date label %q", label)
	}

	if fourDigitYear.MatchString(datePart) {
		t, err := dateparse.ParseIn(joinDateTime(datePart, timePart), now.Location())
		if err != nil {
			return time.Time{}, err
		}
		if t.Year() == 0 {
			return time.Time{}, fmt.Errorf("no year in date label %q", label)
		}
		return t, nil
	}

	if !monthName.MatchString(datePart) {
		return time.Time{}, fmt.Errorf("parsing date label %q: %w", label, errUnparsedDate)
	}
	t, err := parseWithYear(datePart, timePart, now.Year(), now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date label %q: %w", label, err)
	}
	if t.After(now) {
		return parseWithYear(datePart, timePart, now.Year()-1, now.Location())
	}
	return t, nil
}

var errUnparsedDate = errors.New("unrecognised date shape")

// parseWithYear appends year to a yearless date: "March 3" becomes
// "March 3, 2024" and "3 March" becomes "3 March 2024".
func parseWithYear(datePart, timePart string, year int, loc *time.Location) (time.Time, error) {
	sep := ", "
	if datePart[0] >= '0' && datePart[0] <= '9' {
		sep = " "
	}
	full := joinDateTime(datePart+sep+strconv.Itoa(year), timePart)

	if t, err := dateparse.ParseIn(full, loc); err == nil && t.Year() == year {
		return t, nil
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.ParseInLocation(layout, full, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errUnparsedDate
}

func joinDateTime(datePart, timePart string) string {
	if timePart = strings.TrimSpace(timePart); timePart == "" {
		return datePart
	}
	return datePart + " " + timePart
}

// ResolveCreatedAt turns the time label of a fragment into the created_at
// value of a record. Page feeds may carry full dates; group feeds only carry
// relative phrases. It returns "" when nothing can be resolved.
func ResolveCreatedAt(label string, now time.Time, absoluteAllowed bool) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	if absoluteAllowed && len(label) > absolutePhraseMinLen {
		if t, err := ParseTimestamp(label, now); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	if t, ok := ParseRelative(label, now); ok {
		return t.Format(time.RFC3339)
	}
	return ""
}
