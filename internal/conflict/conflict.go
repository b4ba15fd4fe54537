// Package conflict classifies scheduling collisions between a proposed
// event slot and a user's existing calendar, and proposes replacement
// slots when a collision is found.
package conflict

import (
	"fmt"
	"time"

	"cadence/internal/domain"
)

// Severity ranks how disruptive a detected conflict is.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Type names the kind of collision detected.
type Type string

const (
	TypeOverlap            Type = "overlap"
	TypeBackToBack         Type = "back_to_back"
	TypeInsufficientBuffer Type = "insufficient_buffer"
)

// Options tune conflict classification.
type Options struct {
	// MinimumBufferMinutes is the required gap between adjacent events.
	// Zero means the 15-minute default.
	MinimumBufferMinutes int
	// TravelTimeMinutes is added on top of the minimum buffer.
	TravelTimeMinutes int
	// AllowBackToBack suppresses the medium-severity boundary-touch case.
	AllowBackToBack bool
}

const defaultBufferMinutes = 15

func (o Options) requiredBuffer() time.Duration {
	buffer := o.MinimumBufferMinutes
	if buffer == 0 {
		buffer = defaultBufferMinutes
	}
	return time.Duration(buffer+o.TravelTimeMinutes) * time.Minute
}

// Detected is one collision against a specific existing event.
type Detected struct {
	EventID        string
	EventTitle     string
	Type           Type
	Severity       Severity
	Recommendation string
}

// Result aggregates all collisions for a proposed slot. Severity is the
// highest across the detected conflicts.
type Result struct {
	HasConflict bool
	Severity    Severity
	Conflicts   []Detected
}

var severityRank = map[Severity]int{
	SeverityNone:   0,
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// Check classifies the proposed slot against every existing event.
// Classification per pair, in priority order: overlap (high), back-to-back
// boundary touch (medium, unless allowed), gap smaller than the required
// buffer (low). A zero-duration proposal sharing a start instant with an
// existing event counts as an overlap.
func Check(proposedStart, proposedEnd time.Time, existing []domain.Event, opts Options) Result {
	result := Result{Severity: SeverityNone}
	buffer := opts.requiredBuffer()

	for _, ev := range existing {
		if ev.Status == domain.EventCancelled || ev.Status == domain.EventDeclined {
			continue
		}
		d, ok := classify(proposedStart, proposedEnd, ev, buffer, opts.AllowBackToBack)
		if !ok {
			continue
		}
		result.Conflicts = append(result.Conflicts, d)
		if severityRank[d.Severity] > severityRank[result.Severity] {
			result.Severity = d.Severity
		}
	}

	result.HasConflict = len(result.Conflicts) > 0
	return result
}

func classify(start, end time.Time, ev domain.Event, buffer time.Duration, allowBackToBack bool) (Detected, bool) {
	base := Detected{EventID: ev.ID, EventTitle: ev.Title}

	overlaps := start.Before(ev.End) && ev.Start.Before(end)
	if start.Equal(end) && start.Equal(ev.Start) {
		overlaps = true
	}
	if overlaps {
		base.Type = TypeOverlap
		base.Severity = SeverityHigh
		base.Recommendation = fmt.Sprintf("Overlaps with %q; pick a different time.", ev.Title)
		return base, true
	}

	touches := end.Equal(ev.Start) || start.Equal(ev.End)
	if touches {
		if allowBackToBack {
			return Detected{}, false
		}
		base.Type = TypeBackToBack
		base.Severity = SeverityMedium
		base.Recommendation = fmt.Sprintf("Back-to-back with %q; no transition time.", ev.Title)
		return base, true
	}

	var gap time.Duration
	if end.Before(ev.Start) {
		gap = ev.Start.Sub(end)
	} else {
		gap = start.Sub(ev.End)
	}
	if gap > 0 && gap < buffer {
		base.Type = TypeInsufficientBuffer
		base.Severity = SeverityLow
		base.Recommendation = fmt.Sprintf("Only %d minutes around %q; %d needed.", int(gap.Minutes()), ev.Title, int(buffer.Minutes()))
		return base, true
	}

	return Detected{}, false
}
