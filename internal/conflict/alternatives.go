package conflict

import (
	"sort"
	"time"

	"cadence/internal/domain"
)

// Slot is a candidate replacement time with its desirability score.
type Slot struct {
	Start time.Time
	End   time.Time
	Score int
}

// AlternativeOptions tune replacement slot generation. Zero values take
// the defaults noted per field.
type AlternativeOptions struct {
	WorkdayStartHour int           // default 9
	WorkdayEndHour   int           // default 17
	HorizonDays      int           // default 7
	Step             time.Duration // default 1h
	MaxResults       int           // default 3
	Conflict         Options
}

func (o AlternativeOptions) withDefaults() AlternativeOptions {
	if o.WorkdayStartHour == 0 {
		o.WorkdayStartHour = 9
	}
	if o.WorkdayEndHour == 0 {
		o.WorkdayEndHour = 17
	}
	if o.HorizonDays == 0 {
		o.HorizonDays = 7
	}
	if o.Step == 0 {
		o.Step = time.Hour
	}
	if o.MaxResults == 0 {
		o.MaxResults = 3
	}
	return o
}

// Alternatives scans the working-hours window (Mon-Fri) over the horizon
// following `after`, skipping slots that themselves conflict with existing
// events (buffer included), scores the rest, and returns the top slots by
// score. Ties break toward the earlier slot.
func Alternatives(after time.Time, duration time.Duration, existing []domain.Event, loc *time.Location, opts AlternativeOptions) []Slot {
	opts = opts.withDefaults()
	if loc == nil {
		loc = time.UTC
	}
	local := after.In(loc)

	var slots []Slot
	for day := 0; day <= opts.HorizonDays; day++ {
		date := local.AddDate(0, 0, day)
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}
		dayStart := time.Date(date.Year(), date.Month(), date.Day(), opts.WorkdayStartHour, 0, 0, 0, loc)
		dayEnd := time.Date(date.Year(), date.Month(), date.Day(), opts.WorkdayEndHour, 0, 0, 0, loc)

		for start := dayStart; !start.Add(duration).After(dayEnd); start = start.Add(opts.Step) {
			if !start.After(local) {
				continue
			}
			end := start.Add(duration)
			if Check(start.UTC(), end.UTC(), existing, opts.Conflict).HasConflict {
				continue
			}
			slots = append(slots, Slot{
				Start: start.UTC(),
				End:   end.UTC(),
				Score: ScoreSlot(start),
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Score != slots[j].Score {
			return slots[i].Score > slots[j].Score
		}
		return slots[i].Start.Before(slots[j].Start)
	})

	if len(slots) > opts.MaxResults {
		slots = slots[:opts.MaxResults]
	}
	return slots
}

// ScoreSlot rates a candidate start time by local hour of day. The exact
// numbers are a contract shared with the message templates that explain
// ranked suggestions to the user.
func ScoreSlot(start time.Time) int {
	score := 100
	hour := start.Hour()
	if hour < 10 {
		score -= 20
	}
	if hour >= 16 {
		score -= 30
	}
	if hour >= 11 && hour < 14 {
		score += 10
	}
	return score
}
