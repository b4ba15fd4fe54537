// Package cli is the admin surface: feed messages through the pipeline,
// drive the outbox, and inspect the failed-operations audit log.
package cli

import (
	"github.com/spf13/cobra"

	"cadence/internal/orchestrator"
	"cadence/internal/outbox"
	"cadence/internal/repository"
)

// App holds the wired collaborators CLI commands run against.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Scheduler    *outbox.Scheduler
	Worker       *outbox.Worker

	Outbox   repository.OutboxRepo
	Failed   repository.FailedOpRepo
	Messages repository.MessageRepo

	// IsInteractive gates styled table output; plain output otherwise.
	IsInteractive func() bool
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

// NewRootCmd creates the top-level "cadence" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "cadence",
		Short:         "Conversational automation for scheduling chats",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newProcessCmd(app),
		newOutboxCmd(app),
		newFailedOpsCmd(app),
	)

	return root
}
