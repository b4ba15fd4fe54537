// Package timeparse extracts date/time expressions from chat text.
// Parsing is deterministic; the single LLM escalation path lives in
// disambiguate.go and is only reached when the grammar cannot settle on
// one candidate.
package timeparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTimezoneRequired indicates the caller omitted the timezone.
	// There is no silent default; display timezones are user data.
	ErrTimezoneRequired = errors.New("timezone required")

	// ErrInvalidTimezone indicates the timezone is not a valid IANA name.
	ErrInvalidTimezone = errors.New("invalid timezone")
)

// ResultCode classifies non-success outcomes that callers branch on.
type ResultCode string

const (
	CodeNone        ResultCode = ""
	CodePastDate    ResultCode = "PAST_DATE"
	CodeNoDateFound ResultCode = "NO_DATE_FOUND"
)

// Candidate is one possible reading of the text, UTC-normalized.
type Candidate struct {
	Start time.Time
	End   time.Time
	Label string
}

// Result is the outcome of a parse. Exactly one of Success,
// NeedsDisambiguation, or a non-empty Code holds.
type Result struct {
	Success             bool
	Start               time.Time // UTC
	End                 time.Time // UTC
	Confidence          float64
	NeedsDisambiguation bool
	Candidates          []Candidate
	Code                ResultCode
}

// Options tune a parse call.
type Options struct {
	// Reference is the "now" the text is interpreted against.
	// Zero means time.Now().
	Reference time.Time
	// DefaultDuration is used when no explicit end time is parsed.
	// Zero means 60 minutes.
	DefaultDuration time.Duration
}

const maxCandidates = 3

// Parse extracts a date/time from text relative to the reference instant,
// interpreting wall-clock components in the given IANA timezone.
func Parse(text, timezone string, opts Options) (*Result, error) {
	if strings.TrimSpace(timezone) == "" {
		return nil, ErrTimezoneRequired
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, timezone)
	}

	ref := opts.Reference
	if ref.IsZero() {
		ref = time.Now()
	}
	ref = ref.In(loc)

	duration := opts.DefaultDuration
	if duration == 0 {
		duration = 60 * time.Minute
	}

	dates := findDates(text, ref)
	times := findTimes(text)

	if len(dates) == 0 && len(times) == 0 {
		return &Result{Code: CodeNoDateFound}, nil
	}

	candidates := combine(dates, times, ref, loc, duration)
	if len(candidates) == 0 {
		return &Result{Code: CodeNoDateFound}, nil
	}

	// Day-level past check: a candidate on an earlier calendar day than the
	// reference is unusable. Same-day-but-earlier-clock-time is allowed.
	viable := candidates[:0:0]
	for _, c := range candidates {
		if !isPastDay(c.start, ref) {
			viable = append(viable, c)
		}
	}
	if len(viable) == 0 {
		return &Result{Code: CodePastDate}, nil
	}

	if len(viable) == 1 && viable[0].explicitClock {
		start := viable[0].start
		end := viable[0].end
		if end.IsZero() {
			end = start.Add(duration)
		}
		return &Result{
			Success:    true,
			Start:      start.UTC(),
			End:        end.UTC(),
			Confidence: 1.0,
		}, nil
	}

	out := &Result{NeedsDisambiguation: true}
	for i, c := range viable {
		if i >= maxCandidates {
			break
		}
		end := c.end
		if end.IsZero() {
			end = c.start.Add(duration)
		}
		out.Candidates = append(out.Candidates, Candidate{
			Start: c.start.UTC(),
			End:   end.UTC(),
			Label: c.label,
		})
	}
	return out, nil
}

// candidate is the pre-normalization form used while combining.
type candidate struct {
	start         time.Time
	end           time.Time
	explicitClock bool
	label         string
}

type dateMatch struct {
	year, month, day int
	explicitYear     bool
	label            string
}

type timeMatch struct {
	hour, minute int
	// explicit means the clock time is unambiguous: a meridiem was given,
	// the hour was in 24h form, or a word like "noon" fixed it.
	explicit bool
	// ambiguousMeridiem means a bare 1-12 hour with no am/pm.
	ambiguousMeridiem bool
	label             string
	pos               int
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var months = map[string]int{
	"january": 1, "jan": 1, "february": 2, "feb": 2, "march": 3, "mar": 3,
	"april": 4, "apr": 4, "may": 5, "june": 6, "jun": 6, "july": 7, "jul": 7,
	"august": 8, "aug": 8, "september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10, "november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

var (
	weekdayRe  = regexp.MustCompile(`(?i)\b(next\s+|this\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	monthDayRe = regexp.MustCompile(`(?i)\b(january|jan|february|feb|march|mar|april|apr|may|june|jun|july|jul|august|aug|september|sept|sep|october|oct|november|nov|december|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)
	dayMonthRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(january|jan|february|feb|march|mar|april|apr|may|june|jun|july|jul|august|aug|september|sept|sep|october|oct|november|nov|december|dec)\b(?:,?\s*(\d{4}))?`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	clockRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?\b`)
	atClockRe  = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?\b`)
	rangeRe    = regexp.MustCompile(`(?i)\b(?:from\s+)?(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*(?:-|to|until)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
)

func findDates(text string, ref time.Time) []dateMatch {
	var out []dateMatch
	lower := strings.ToLower(text)

	if strings.Contains(lower, "day after tomorrow") {
		d := ref.AddDate(0, 0, 2)
		out = append(out, dateMatch{d.Year(), int(d.Month()), d.Day(), true, "day after tomorrow"})
	} else if strings.Contains(lower, "tomorrow") {
		d := ref.AddDate(0, 0, 1)
		out = append(out, dateMatch{d.Year(), int(d.Month()), d.Day(), true, "tomorrow"})
	}
	if strings.Contains(lower, "today") || strings.Contains(lower, "tonight") {
		out = append(out, dateMatch{ref.Year(), int(ref.Month()), ref.Day(), true, "today"})
	}

	for _, m := range weekdayRe.FindAllStringSubmatch(text, -1) {
		prefix := strings.TrimSpace(strings.ToLower(m[1]))
		wd := weekdays[strings.ToLower(m[2])]
		days := (int(wd) - int(ref.Weekday()) + 7) % 7
		if prefix == "next" && days == 0 {
			days = 7
		}
		d := ref.AddDate(0, 0, days)
		out = append(out, dateMatch{d.Year(), int(d.Month()), d.Day(), true, strings.TrimSpace(m[0])})
	}

	for _, m := range monthDayRe.FindAllStringSubmatch(text, -1) {
		out = append(out, monthDayMatch(months[strings.ToLower(m[1])], m[2], m[3], ref))
	}
	for _, m := range dayMonthRe.FindAllStringSubmatch(text, -1) {
		out = append(out, monthDayMatch(months[strings.ToLower(m[2])], m[1], m[3], ref))
	}

	for _, m := range isoDateRe.FindAllStringSubmatch(text, -1) {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		out = append(out, dateMatch{y, mo, d, true, m[0]})
	}

	return dedupeDates(out)
}

func monthDayMatch(month int, dayStr, yearStr string, ref time.Time) dateMatch {
	day, _ := strconv.Atoi(dayStr)
	if yearStr != "" {
		year, _ := strconv.Atoi(yearStr)
		return dateMatch{year, month, day, true, fmt.Sprintf("%04d-%02d-%02d", year, month, day)}
	}
	// No year given: take this year, rolling to next year if the day has
	// already passed.
	year := ref.Year()
	if month < int(ref.Month()) || (month == int(ref.Month()) && day < ref.Day()) {
		year++
	}
	return dateMatch{year, month, day, false, fmt.Sprintf("%02d-%02d", month, day)}
}

func dedupeDates(in []dateMatch) []dateMatch {
	seen := map[string]bool{}
	var out []dateMatch
	for _, d := range in {
		key := fmt.Sprintf("%d-%d-%d", d.year, d.month, d.day)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

func findTimes(text string) []timeMatch {
	var out []timeMatch
	lower := strings.ToLower(text)

	if idx := strings.Index(lower, "noon"); idx >= 0 {
		out = append(out, timeMatch{hour: 12, explicit: true, label: "noon", pos: idx})
	}
	if idx := strings.Index(lower, "midnight"); idx >= 0 {
		out = append(out, timeMatch{hour: 0, explicit: true, label: "midnight", pos: idx})
	}

	for _, idx := range clockRe.FindAllStringSubmatchIndex(text, -1) {
		m := submatches(text, idx)
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		meridiem := strings.ReplaceAll(strings.ToLower(m[3]), ".", "")

		switch {
		case meridiem == "am":
			if hour == 12 {
				hour = 0
			}
			out = append(out, timeMatch{hour: hour, minute: minute, explicit: true, label: m[0], pos: idx[0]})
		case meridiem == "pm":
			if hour != 12 {
				hour += 12
			}
			out = append(out, timeMatch{hour: hour, minute: minute, explicit: true, label: m[0], pos: idx[0]})
		case m[2] != "" && hour <= 23:
			// HH:MM without meridiem: 24h form is explicit for hour >= 13
			// or hour 0; a 1-12 hour with minutes is still ambiguous.
			if hour >= 13 || hour == 0 {
				out = append(out, timeMatch{hour: hour, minute: minute, explicit: true, label: m[0], pos: idx[0]})
			} else if atClockRe.MatchString(text) {
				out = append(out, timeMatch{hour: hour, minute: minute, ambiguousMeridiem: true, label: m[0], pos: idx[0]})
			}
		case meridiem == "" && m[2] == "" && atClockRe.MatchString(text):
			// "at 3" with no meridiem: keep as ambiguous only when the
			// bare number is attached to "at", otherwise it is more
			// likely a date fragment or quantity.
			if sub := atClockRe.FindStringSubmatch(text); sub != nil && sub[1] == m[1] && sub[3] == "" && hour >= 1 && hour <= 12 {
				out = append(out, timeMatch{hour: hour, minute: minute, ambiguousMeridiem: true, label: sub[0], pos: idx[0]})
			}
		}
	}

	return dedupeTimes(out)
}

func submatches(text string, idx []int) []string {
	out := make([]string, len(idx)/2)
	for i := range out {
		if idx[2*i] >= 0 {
			out[i] = text[idx[2*i]:idx[2*i+1]]
		}
	}
	return out
}

func dedupeTimes(in []timeMatch) []timeMatch {
	seen := map[string]bool{}
	var out []timeMatch
	for _, t := range in {
		key := fmt.Sprintf("%d:%d:%v", t.hour, t.minute, t.ambiguousMeridiem)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func combine(dates []dateMatch, times []timeMatch, ref time.Time, loc *time.Location, duration time.Duration) []candidate {
	var out []candidate

	mk := func(d dateMatch, t timeMatch) time.Time {
		return time.Date(d.year, time.Month(d.month), d.day, t.hour, t.minute, 0, 0, loc)
	}

	switch {
	case len(dates) == 0:
		// Bare time: today, rolling to the next day when the clock time
		// already passed relative to the reference.
		today := dateMatch{ref.Year(), int(ref.Month()), ref.Day(), true, "today"}
		for _, t := range expandMeridiem(times) {
			start := mk(today, t)
			if !start.After(ref) {
				start = start.AddDate(0, 0, 1)
			}
			out = append(out, candidate{start: start, explicitClock: t.explicit, label: t.label})
		}

	case len(times) == 0:
		// Date without a clock time: offer conventional slots, never a
		// confident parse.
		for _, d := range dates {
			for _, hour := range []int{9, 12, 15} {
				start := time.Date(d.year, time.Month(d.month), d.day, hour, 0, 0, 0, loc)
				out = append(out, candidate{
					start: start,
					label: fmt.Sprintf("%s %02d:00", d.label, hour),
				})
			}
		}

	default:
		expanded := expandMeridiem(times)
		for _, d := range dates {
			for _, t := range expanded {
				out = append(out, candidate{
					start:         mk(d, t),
					explicitClock: t.explicit && len(dates) == 1 && len(expanded) == 1,
					label:         d.label + " " + t.label,
				})
			}
		}
	}

	return out
}

// expandMeridiem turns an ambiguous bare hour into its am and pm readings.
func expandMeridiem(times []timeMatch) []timeMatch {
	var out []timeMatch
	for _, t := range times {
		if !t.ambiguousMeridiem {
			out = append(out, t)
			continue
		}
		// 12 o'clock is noon on the pm reading and midnight on the am
		// reading; both share the displayed hour.
		am := t
		am.hour = t.hour % 12
		am.explicit = false
		am.label = fmt.Sprintf("%d:%02d am", t.hour, t.minute)
		pm := t
		pm.hour = t.hour%12 + 12
		pm.explicit = false
		pm.label = fmt.Sprintf("%d:%02d pm", t.hour, t.minute)
		out = append(out, pm, am)
	}
	return out
}

func isPastDay(t, ref time.Time) bool {
	ty, tm, td := t.Date()
	ry, rm, rd := ref.Date()
	if ty != ry {
		return ty < ry
	}
	if tm != rm {
		return tm < rm
	}
	return td < rd
}
