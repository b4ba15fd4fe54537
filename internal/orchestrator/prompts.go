package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"cadence/internal/retrieval"
	"cadence/internal/tools"
)

const toolLoopSystemPrompt = `You are the scheduling assistant inside a family chat product.
You act by calling tools; you never invent event ids or timestamps.

Available tools (call by name, parameters as a JSON object):
- time_parse: {text, timezone, reference?} -> resolve a natural-language time to UTC instants.
- schedule_create_event: {conversation_id, title, start, end?, timezone, participant_ids} -> create an event. Posts its own confirmation.
- schedule_check_conflicts: {start, end?, timezone, participant_ids} -> classify calendar conflicts and suggest alternatives.
- rsvp_record_response: {event_id, conversation_id, user_id, response} -> record accept/decline.
- rsvp_create_invite: {conversation_id, event_id, body?} -> post an invite message.
- task_create: {conversation_id, title, due_date?, assignee_id?, task_type?} -> create a task/deadline.
- reminders_schedule: {entity_type, entity_id, target_user_id, reminder_type, title, body, scheduled_for} -> queue a push reminder.
- messages_post_system: {conversation_id, text, entity_id?} -> post an assistant message.

Rules:
- All timestamps are ISO-8601 UTC strings ending in Z.
- Parse times with time_parse before creating events.
- Do not call the same write tool twice.
- When nothing should happen, return an empty tool_calls list.

Respond with ONLY a JSON object:
{"tool_calls": [{"name": "<tool>", "params": {...}}], "done": <true|false>}`

type promptInput struct {
	ConversationID string
	SenderID       string
	Text           string
	Timezone       string
	Reference      time.Time
	Participants   []string
	Context        *retrieval.Context
}

func buildRoundOnePrompt(in promptInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "conversation_id: %s\nsender_id: %s\ntimezone: %s\nreference: %s\n",
		in.ConversationID, in.SenderID, in.Timezone, in.Reference.Format(time.RFC3339))
	if len(in.Participants) > 0 {
		fmt.Fprintf(&b, "participant_ids: %s\n", strings.Join(in.Participants, ", "))
	}
	if in.Context != nil && len(in.Context.Documents) > 0 {
		b.WriteString("\nRecent context:\n")
		for _, doc := range in.Context.Documents {
			fmt.Fprintf(&b, "- %s\n", doc.Content)
		}
	}
	fmt.Fprintf(&b, "\nMessage: %q\n", in.Text)
	return b.String()
}

func buildRoundTwoPrompt(results []Invocation) string {
	var b strings.Builder
	b.WriteString("Tool results from your previous calls:\n")
	for _, inv := range results {
		fmt.Fprintf(&b, "- %s: %s\n", wireName(inv.Name), inv.Summary())
	}
	b.WriteString("\nIssue follow-up tool calls if needed, or an empty tool_calls list if done.\n")
	return b.String()
}

// describe keeps the error surface compact for the model.
func describeError(err *tools.ToolError) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("error %s: %s", err.Code, err.Message)
}
