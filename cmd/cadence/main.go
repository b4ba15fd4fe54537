package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"cadence/internal/classify"
	"cadence/internal/cli"
	"cadence/internal/db"
	"cadence/internal/llm"
	"cadence/internal/logging"
	"cadence/internal/orchestrator"
	"cadence/internal/outbox"
	"cadence/internal/repository"
	"cadence/internal/retrieval"
	"cadence/internal/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Determine DB path: env var or default ~/.cadence/cadence.db
	dbPath := os.Getenv("CADENCE_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".cadence", "cadence.db")
	}

	logger, err := logging.New(os.Getenv("CADENCE_DEBUG") == "1")
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	database, err := db.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	events := repository.NewSQLiteEventRepo(database)
	deadlines := repository.NewSQLiteDeadlineRepo(database)
	outboxRepo := repository.NewSQLiteOutboxRepo(database)
	messages := repository.NewSQLiteMessageRepo(database)
	failed := repository.NewSQLiteFailedOpRepo(database)

	// Wire the completion provider
	llmCfg := llm.LoadConfig()
	var observer llm.Observer = llm.NoopObserver{}
	if llmCfg.LogCalls {
		observer = llm.NewZapObserver(logger)
	}
	client, err := llm.NewClient(llmCfg, observer)
	if err != nil {
		return fmt.Errorf("building llm client: %w", err)
	}

	executor := tools.NewExecutor(tools.Deps{
		Events:    events,
		Deadlines: deadlines,
		Outbox:    outboxRepo,
		Messages:  messages,
		Failed:    failed,
		Logger:    logger,
	})

	orch := orchestrator.New(orchestrator.Deps{
		Gating:    classify.NewGatingClassifier(client, logger),
		Urgency:   classify.NewUrgencyClassifier(client, logger),
		Extractor: classify.NewTaskExtractor(client, logger),
		RSVP:      classify.NewRSVPInterpreter(client, logger),
		Retriever: retrieval.NewKeywordRetriever(messages),
		Executor:  executor,
		Client:    client,
		Logger:    logger,
	})

	provider := outbox.NewHTTPPushProvider(
		os.Getenv("CADENCE_PUSH_ENDPOINT"),
		os.Getenv("CADENCE_PUSH_API_KEY"),
		10*time.Second,
	)

	app := &cli.App{
		Orchestrator: orch,
		Scheduler:    outbox.NewScheduler(events, deadlines, outboxRepo, logger),
		Worker:       outbox.NewWorker(outboxRepo, provider, logger),
		Outbox:       outboxRepo,
		Failed:       failed,
		Messages:     messages,
	}

	// Styled tables only on a real terminal.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	rootCmd := cli.NewRootCmd(app)
	return rootCmd.Execute()
}
