// Package tools is the reliability core: a closed set of named operations
// with strict parameter validation, per-run write deduplication, bounded
// retries, and idempotent side effects.
package tools

import "fmt"

// Name identifies one tool operation. The set is closed: the executor
// dispatches with an exhaustive switch, so adding or removing a tool is a
// compile-time-checked change.
type Name string

const (
	NameTimeParse        Name = "time.parse"
	NameCreateEvent      Name = "schedule.create_event"
	NameCheckConflicts   Name = "schedule.check_conflicts"
	NameRecordRSVP       Name = "rsvp.record_response"
	NameCreateInvite     Name = "rsvp.create_invite"
	NameCreateTask       Name = "task.create"
	NameScheduleReminder Name = "reminders.schedule"
	NamePostMessage      Name = "messages.post_system"
)

// AllNames lists every tool in a stable order, used to advertise the tool
// surface to the orchestrating model.
var AllNames = []Name{
	NameTimeParse,
	NameCreateEvent,
	NameCheckConflicts,
	NameRecordRSVP,
	NameCreateInvite,
	NameCreateTask,
	NameScheduleReminder,
	NamePostMessage,
}

// ParseName validates a tool name string against the closed set.
func ParseName(s string) (Name, error) {
	for _, n := range AllNames {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// WriteCategory is the coarse write classification used by the per-run
// guard. Tools in the same category cannot both write within one
// orchestration run.
type WriteCategory string

const (
	WriteNone    WriteCategory = ""
	WriteEvent   WriteCategory = "event-write"
	WriteTask    WriteCategory = "task-write"
	WriteMessage WriteCategory = "message-write"
)

// Category maps each tool to its write category.
func (n Name) Category() WriteCategory {
	switch n {
	case NameCreateEvent:
		return WriteEvent
	case NameCreateTask:
		return WriteTask
	case NamePostMessage, NameCreateInvite:
		return WriteMessage
	case NameTimeParse, NameCheckConflicts, NameRecordRSVP, NameScheduleReminder:
		return WriteNone
	}
	return WriteNone
}

// RequiresTimezone reports whether the tool's parameters must carry a
// valid IANA timezone, checked before any retry attempt is consumed.
func (n Name) RequiresTimezone() bool {
	switch n {
	case NameTimeParse, NameCreateEvent, NameCheckConflicts:
		return true
	}
	return false
}
