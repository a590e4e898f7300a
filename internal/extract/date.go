package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MissingDeadline is substituted when a fragment has no closing-date element.
// It normalizes to 25 December of the current year.
const MissingDeadline = "25 Dec"

var (
	ordinalSuffix = regexp.MustCompile(`^(\d{1,2})(st|nd|rd|th)$`)
	abbrevPeriod  = regexp.MustCompile(`^([a-z]+)\.$`)

	weekdays = map[string]bool{
		"mon": true, "monday": true, "tue": true, "tues": true, "tuesday": true,
		"wed": true, "wednesday": true, "thu": true, "thur": true, "thurs": true,
		"thursday": true, "fri": true, "friday": true, "sat": true, "saturday": true,
		"sun": true, "sunday": true,
	}

	// Layouts carrying a year. Month names match case-insensitively.
	namedLayouts = []string{
		"2 January 2006",
		"2 Jan 2006",
		"2-January-2006",
		"2-Jan-2006",
		"January 2 2006",
		"Jan 2 2006",
		"2006-01-02",
		"2006/01/02",
	}

	// Layouts without a year; the current year is filled in.
	yearlessLayouts = []string{
		"2 January",
		"2 Jan",
		"2-January",
		"2-Jan",
		"January 2",
		"Jan 2",
	}

	monthFirstLayouts = []string{"1/2/2006", "1-2-2006", "1.2.2006", "1/2/06"}
	dayFirstLayouts   = []string{"2/1/2006", "2-1-2006", "2.1.2006", "2/1/06"}
)

// DateParser normalizes the free-form closing dates shown on listings.
type DateParser struct {
	// DayFirst reads ambiguous numeric dates as day/month/year.
	DayFirst bool
	// Now supplies the year for dates that omit it. Defaults to time.Now.
	Now func() time.Time
}

// Parse returns the calendar date in s at UTC midnight.
func (p DateParser) Parse(s string) (time.Time, error) {
	clean := p.clean(s)
	if clean == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	// The configured numeric order wins; the other order is tried after it so
	// "25/11/2025" still parses when months come first.
	layouts := append([]string{}, namedLayouts...)
	if p.DayFirst {
		layouts = append(layouts, dayFirstLayouts...)
		layouts = append(layouts, monthFirstLayouts...)
	} else {
		layouts = append(layouts, monthFirstLayouts...)
		layouts = append(layouts, dayFirstLayouts...)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, clean); err == nil {
			return t, nil
		}
	}

	year := p.now().Year()
	for _, layout := range yearlessLayouts {
		t, err := time.Parse(layout, clean)
		if err != nil {
			continue
		}
		d := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if d.Day() != t.Day() {
			return time.Time{}, fmt.Errorf("day %d out of range for %s %d", t.Day(), t.Month(), year)
		}
		return d, nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date format")
}

func (p DateParser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// clean lowercases s, drops commas and weekday names, strips ordinal
// suffixes ("1st" becomes "1") and trailing periods on words ("nov." becomes "nov").
func (p DateParser) clean(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, ",", " "))
	var out []string
	for _, tok := range strings.Fields(s) {
		if weekdays[strings.TrimSuffix(tok, ".")] {
			continue
		}
		if m := ordinalSuffix.FindStringSubmatch(tok); m != nil {
			tok = m[1]
		}
		if m := abbrevPeriod.FindStringSubmatch(tok); m != nil {
			tok = m[1]
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}
