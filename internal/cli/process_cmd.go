package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cadence/internal/cli/formatter"
	"cadence/internal/domain"
	"cadence/internal/tools"
)

func newProcessCmd(app *App) *cobra.Command {
	var conversationID, senderID, timezone, entityID, messageID string
	var participants []string

	cmd := &cobra.Command{
		Use:   "process TEXT...",
		Short: "Run one message through the automation pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := domain.Message{
				ID:             messageID,
				ConversationID: conversationID,
				SenderID:       senderID,
				Text:           strings.Join(args, " "),
				Role:           "user",
				CreatedAt:      time.Now().UTC(),
			}
			if msg.ID == "" {
				msg.ID = uuid.NewString()
			}
			if entityID != "" {
				msg.Metadata = map[string]string{"entity_id": entityID}
			}

			outcome, err := app.Orchestrator.ProcessMessage(cmd.Context(), msg, timezone, participants)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outcome.Silence {
				fmt.Fprintf(out, "No action (category=%s confidence=%.2f)\n",
					outcome.Category, outcome.Confidence)
				return nil
			}

			fmt.Fprintf(out, "Category: %s  Confidence: %.2f\n", outcome.Category, outcome.Confidence)
			if outcome.Urgency != nil {
				fmt.Fprintf(out, "Urgency: urgent=%t notify=%t confidence=%.2f\n",
					outcome.Urgency.IsUrgent, outcome.Urgency.ShouldNotify, outcome.Urgency.Confidence)
			}
			if len(outcome.Invocations) == 0 {
				return nil
			}

			if !app.interactive() {
				for _, inv := range outcome.Invocations {
					fmt.Fprintf(out, "%s\tok=%t\tattempts=%d\t%s\n",
						inv.Name, inv.Result.Success, inv.Result.Attempts, invocationDetail(inv.Result))
				}
				return nil
			}

			headers := []string{"TOOL", "OK", "ATTEMPTS", "TIME", "DETAIL"}
			rows := make([][]string, 0, len(outcome.Invocations))
			for _, inv := range outcome.Invocations {
				rows = append(rows, []string{
					string(inv.Name),
					formatter.OkMark(inv.Result.Success),
					fmt.Sprintf("%d", inv.Result.Attempts),
					fmt.Sprintf("%dms", inv.Result.DurationMs),
					formatter.Truncate(invocationDetail(inv.Result), 60),
				})
			}
			fmt.Fprint(out, formatter.RenderBox("Tool calls", formatter.RenderTable(headers, rows)))
			return nil
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation ID")
	cmd.Flags().StringVar(&senderID, "sender", "", "Sender user ID")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone of the conversation")
	cmd.Flags().StringSliceVar(&participants, "participants", nil, "Participant user IDs")
	cmd.Flags().StringVar(&entityID, "entity", "", "Entity ID the message replies to (e.g. an invite's event)")
	cmd.Flags().StringVar(&messageID, "message-id", "", "Message ID (defaults to a fresh UUID; reuse to test dedup)")
	_ = cmd.MarkFlagRequired("conversation")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

func invocationDetail(result tools.Result) string {
	if result.Error != nil {
		return result.Error.Error()
	}
	if len(result.Data) == 0 {
		return ""
	}
	raw, err := json.Marshal(result.Data)
	if err != nil {
		return ""
	}
	return string(raw)
}
