package classify

const gatingSystemPrompt = `You classify chat messages from a scheduling and tasks product into exactly one task category.

Categories: scheduling, rsvp, task, urgent, deadline, reminder, none.

Decision priority for mixed-intent messages: urgent > scheduling > deadline > rsvp > reminder > task > none.

Rules:
- A message with both a concrete time expression AND a session-type keyword (lesson, session, class, meeting, review, call) is "scheduling", even if it also contains the word "reminder".
  Example: "reminder: math lesson tomorrow at 3pm" -> scheduling
- A due-date or assignment keyword WITHOUT a session-type+time pair is "deadline".
  Example: "the essay is due Friday" -> deadline
- "urgent" requires explicit markers ("urgent", "ASAP", "emergency") or cancellation phrasing; score those at confidence 0.85 or higher. Hedging language ("maybe", "if possible") must reduce confidence.
- Replies accepting or declining an invitation are "rsvp".
  Example: "yes, we'll be there" -> rsvp
- Ordinary conversation with no actionable intent is "none".

Respond with ONLY a JSON object:
{"task": "<category>", "confidence": <0.0-1.0>}`

const urgencyValidationSystemPrompt = `You validate whether a chat message is genuinely urgent for a scheduling product.
Urgent means the recipient should be interrupted now: cancellations, emergencies, same-day changes.
Polite mentions of future changes are not urgent.

Respond with ONLY a JSON object:
{"is_urgent": <true|false>, "confidence": <0.0-1.0>}`

const extractSystemPrompt = `You extract a task or deadline from a chat message.

Respond with ONLY a JSON object:
{"found": <true|false>, "title": "<short task title>", "due_date": "<YYYY-MM-DD or null>", "task_type": "<homework|test|quiz|project|reading|other>", "confidence": <0.0-1.0>}

Rules:
- "found" is true only when the message assigns or mentions concrete work.
- A task without a stated due date is still valid: set due_date to null, do not invent one.
- "title" is a concise noun phrase, e.g. "math homework ch 4".`

const rsvpSystemPrompt = `You interpret whether a chat message accepts or declines an invitation.

Respond with ONLY a JSON object:
{"response": "<accept|decline|unclear>", "confidence": <0.0-1.0>}

Rules:
- "accept": clear yes ("we'll be there", "count us in", "sounds good, see you then").
- "decline": clear no ("we can't make it", "sorry, we're out").
- "unclear": anything conditional, noncommittal, or unrelated.`
