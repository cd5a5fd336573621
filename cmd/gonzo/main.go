// Command gonzo interrogates the Demeter AI assistant with pre-planned
// conversations and writes the captured transcripts for downstream stages.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/gonzobot/gonzo/pkg/browser"
	rodadapter "github.com/gonzobot/gonzo/pkg/browser/adapters/rod"
	"github.com/gonzobot/gonzo/pkg/config"
	"github.com/gonzobot/gonzo/pkg/interrogate"
	"github.com/gonzobot/gonzo/pkg/plan"
	"github.com/gonzobot/gonzo/pkg/runlog"
	"github.com/gonzobot/gonzo/pkg/telemetry"
)

// Version information - set via ldflags during build
var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	plansPath := flag.String("plans", "", "path to conversation plan file (required)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gonzo %s (%s)\n", version, commit)
		return
	}
	if *plansPath == "" {
		fmt.Fprintln(os.Stderr, "usage: gonzo -plans <file> [-config <file>]")
		os.Exit(2)
	}
	if err := run(*configPath, *plansPath); err != nil {
		log.Printf("run failed: %v", err)
		os.Exit(1)
	}
}

func run(configPath, plansPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	plans, err := plan.Load(plansPath)
	if err != nil {
		return err
	}
	log.Printf("loaded %d conversation plans from %s", len(plans), plansPath)

	// Ctrl-C cancels the run; in-flight conversations close their sessions
	// and report whatever they captured.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := telemetry.NewHub()
	defer hub.Close()
	go logTelemetry(hub)

	metrics := browser.NewMetrics()
	metrics.EnableTelemetry(hub, "")

	runtime := rodadapter.NewRuntime(rodadapter.Options{
		Headless:    cfg.Headless(),
		DebuggerURL: cfg.Target.DebuggerURL,
	}, metrics)
	defer func() {
		if err := runtime.Close(); err != nil {
			log.Printf("browser shutdown: %v", err)
		}
	}()

	orchestrator := interrogate.NewOrchestrator(
		runtime,
		cfg.SessionConfig(),
		cfg.WatchConfig(),
		cfg.InterrogationLimits(),
		hub,
	)
	result, err := orchestrator.Run(ctx, plans)
	if err != nil {
		return err
	}

	path, err := runlog.Export(cfg.Logging.RunsDir, result)
	if err != nil {
		return err
	}
	log.Printf("run log written to %s", path)

	if cfg.Logging.DBPath != "" {
		if err := persistRun(cfg.Logging.DBPath, result); err != nil {
			// Persistence failure shouldn't discard a run that already has
			// its JSON export on disk.
			log.Printf("warning: run store: %v", err)
		}
	}

	snapshot := metrics.Snapshot()
	log.Printf("run %s: %d/%d conversations completed, %d sessions opened",
		result.RunID, result.CompletedCount, result.AttemptedCount, snapshot.SessionsOpened)
	for _, transcript := range result.Transcripts {
		log.Printf("  %s [%s] %q: %d exchanges",
			transcript.ConversationID, transcript.TerminalStatus, transcript.Topic, len(transcript.Exchanges))
	}
	return nil
}

func persistRun(dbPath string, result *interrogate.RunResult) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	store, err := runlog.NewSQLiteStore(db)
	if err != nil {
		return err
	}
	return store.SaveRun(result)
}

func logTelemetry(hub *telemetry.Hub) {
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	for event := range events {
		switch event.Type {
		case telemetry.EventConversationStarted,
			telemetry.EventConversationCompleted,
			telemetry.EventConversationPartial,
			telemetry.EventConversationAbandoned,
			telemetry.EventExchangeTimedOut,
			telemetry.EventExchangeFailed,
			telemetry.EventExchangeRetry:
			log.Printf("[telemetry] %s conversation=%s session=%s %v",
				event.Type, event.ConversationID, event.SessionID, event.Data)
		}
	}
}
