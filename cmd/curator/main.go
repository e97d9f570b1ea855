package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reddot-watch/curator/internal/config"
	"reddot-watch/curator/internal/database"
	"reddot-watch/curator/internal/extract"
	"reddot-watch/curator/internal/jobs"
	"reddot-watch/curator/internal/llm"
	"reddot-watch/curator/internal/scheduler"
	"reddot-watch/curator/internal/scrape"
	"reddot-watch/curator/internal/server"
	"reddot-watch/curator/internal/server/api"
	"reddot-watch/curator/internal/sourcesimport"
	"reddot-watch/curator/internal/storage"
)

const usage = `Usage: curator [command] [options]
Commands: import, scrape, rescore, server

For command-specific options, use: curator [command] -h`

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg := config.DefaultConfig()

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importCmd.StringVar(&cfg.SourcesPath, "file", cfg.SourcesPath,
		"Path or http(s) URL of the CSV or YAML sources file (env: CURATOR_SOURCES_PATH)")
	importLevel := commonFlags(importCmd, cfg)

	scrapeCmd := flag.NewFlagSet("scrape", flag.ExitOnError)
	var sourceID int64
	scrapeCmd.Int64Var(&sourceID, "source", 0, "Scrape only the source with this ID, 0 for all sources")
	scrapeLevel := commonFlags(scrapeCmd, cfg)
	scrapeFlags(scrapeCmd, cfg)

	rescoreCmd := flag.NewFlagSet("rescore", flag.ExitOnError)
	rescoreLevel := commonFlags(rescoreCmd, cfg)
	rescoreCmd.IntVar(&cfg.RescoreYieldEvery, "yield-every", cfg.RescoreYieldEvery,
		"Yield to other work after this many rescored articles (env: CURATOR_RESCORE_YIELD_EVERY)")

	serverCmd := flag.NewFlagSet("server", flag.ExitOnError)
	serverCmd.StringVar(&cfg.ServerHost, "host", cfg.ServerHost,
		"Host to bind the server to (env: CURATOR_HOST)")
	serverCmd.IntVar(&cfg.ServerPort, "port", cfg.ServerPort,
		"Port to listen on (env: CURATOR_PORT)")
	serverCmd.StringVar(&cfg.ScrapeSchedule, "schedule", cfg.ScrapeSchedule,
		"Cron expression for periodic scrape of all sources, empty to disable (env: CURATOR_SCRAPE_SCHEDULE)")
	serverCmd.BoolVar(&cfg.ScrapeOnStart, "scrape-on-start", cfg.ScrapeOnStart,
		"Start a scrape of all sources when the server starts (env: CURATOR_SCRAPE_ON_START)")
	serverLevel := commonFlags(serverCmd, cfg)
	scrapeFlags(serverCmd, cfg)

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "import":
		importCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, *importLevel)
		err = runImport(cfg)

	case "scrape":
		scrapeCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, *scrapeLevel)
		err = runScrape(cfg, sourceID)

	case "rescore":
		rescoreCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, *rescoreLevel)
		err = runRescore(cfg)

	case "server":
		serverCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, *serverLevel)
		err = runServer(cfg)

	case "-h", "--help", "help":
		fmt.Println(usage)
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
		os.Exit(1)
	}
}

// commonFlags registers the options every subcommand shares and returns the
// raw log level flag.
func commonFlags(fs *flag.FlagSet, cfg *config.Config) *string {
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath,
		"Path to the SQLite database file (env: CURATOR_DB_PATH)")
	return fs.String("log-level", cfg.LogLevel.String(),
		"Log level: debug, info, warn, error (env: CURATOR_LOG_LEVEL)")
}

func scrapeFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout,
		"Timeout for each page download (env: CURATOR_FETCH_TIMEOUT)")
	fs.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent,
		"User-Agent header sent to origin sites (env: CURATOR_USER_AGENT)")
}

func applyLogLevel(cfg *config.Config, raw string) {
	if level, err := zerolog.ParseLevel(raw); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
}

// app is the wired object graph shared by the subcommands.
type app struct {
	db       *database.DB
	repo     *storage.Repository
	client   *scrape.Client
	enricher *llm.Enricher
	orch     *jobs.Orchestrator
}

func newApp(cfg *config.Config) (*app, error) {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	completer, err := llm.NewCompleter(cfg.LLM)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure completion service: %w", err)
	}

	repo := storage.NewRepository(db.DB)
	client := scrape.NewClient(cfg.FetchTimeout, cfg.UserAgent)
	enricher := llm.NewEnricher(completer)
	orch := jobs.New(
		repo,
		scrape.NewDiscoverer(client, cfg.FetchTimeout),
		scrape.NewFetcher(client, extract.New()),
		enricher,
		jobs.NewRegistry(),
		jobs.Options{RescoreYieldEvery: cfg.RescoreYieldEvery},
	)

	return &app{db: db, repo: repo, client: client, enricher: enricher, orch: orch}, nil
}

// close stops background jobs and closes the database.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.orch.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Jobs did not stop in time")
	}
	if err := a.db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}

// runImport bulk-creates sources from a CSV or YAML file. Rejected rows are
// reported but do not fail the import.
func runImport(cfg *config.Config) error {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	importer := sourcesimport.NewImporter(storage.NewRepository(db.DB))
	result, err := importer.ImportFile(context.Background(), cfg.SourcesPath)
	if err != nil {
		return err
	}

	for _, msg := range result.Errors {
		fmt.Println("skipped:", msg)
	}
	fmt.Printf("Imported %d sources, %d rejected\n", result.Imported, len(result.Errors))
	return nil
}

// runScrape runs one scrape job in the foreground. The first SIGINT or SIGTERM
// requests cancellation; the job stops at its next checkpoint.
func runScrape(cfg *config.Config, sourceID int64) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	var target *int64
	if sourceID > 0 {
		target = &sourceID
	}

	id, err := a.orch.StartScrape(context.Background(), target)
	if err != nil {
		return err
	}

	return a.waitForeground(id, func(sig os.Signal) {
		log.Info().Str("signal", sig.String()).Str("job_id", id).Msg("Cancellation requested")
		if err := a.orch.Cancel(id); err != nil {
			log.Warn().Err(err).Str("job_id", id).Msg("Job could not be canceled")
		}
	})
}

// runRescore re-scores every article in the foreground. Rescoring cannot be
// canceled, so a signal shuts the orchestrator down instead.
func runRescore(cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	id, err := a.orch.StartRescoreAll(context.Background())
	if err != nil {
		return err
	}

	return a.waitForeground(id, func(sig os.Signal) {
		log.Info().Str("signal", sig.String()).Str("job_id", id).Msg("Stopping rescoring")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.orch.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Rescoring did not stop in time")
		}
	})
}

// waitForeground waits for job id, calling onSignal for the first interrupt,
// then prints the final status.
func (a *app) waitForeground(id string, onSignal func(os.Signal)) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case sig := <-sigs:
			onSignal(sig)
		case <-ctx.Done():
		}
	}()

	status, err := a.orch.Await(ctx, id)
	if err != nil {
		return err
	}

	printStatus(status)
	if status.Status == jobs.StateFailed {
		return fmt.Errorf("job %s failed: %s", id, status.Message)
	}
	return nil
}

func printStatus(s jobs.Status) {
	fmt.Printf("Job %s (%s): %s\n", s.ID, s.Type, s.Status)
	fmt.Printf("  %s\n", s.Message)
	if s.Type == jobs.TypeScrape {
		fmt.Printf("  sources: %d/%d\n", s.ProcessedSources, s.TotalSources)
		fmt.Printf("  articles: %d processed, %d new, %d skipped, %d failed (of %d)\n",
			s.ProcessedArticles, s.NewArticles, s.SkippedArticles, s.FailedArticles, s.TotalArticles)
	} else {
		fmt.Printf("  articles: %d/%d rescored\n", s.ProcessedArticles, s.TotalArticles)
	}
	if s.FinishedAt != nil {
		fmt.Printf("  duration: %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}
}

// runServer serves the HTTP API until a shutdown signal, then stops the
// scheduler and waits for running jobs.
func runServer(cfg *config.Config) error {
	log.Debug().Msg("Starting server with debug logging enabled")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	var sched *scheduler.Scheduler
	if cfg.ScrapeSchedule != "" {
		sched, err = scheduler.New(cfg.ScrapeSchedule, a.orch)
		if err != nil {
			return err
		}
		sched.Start()
	}

	if cfg.ScrapeOnStart {
		id, err := a.orch.StartScrape(context.Background(), nil)
		if err != nil {
			log.Error().Err(err).Msg("Failed to start initial scrape")
		} else {
			log.Info().Str("job_id", id).Msg("Initial scrape started")
		}
	}

	routes := api.NewHandler(a.repo, a.orch, a.client, a.enricher)
	err = server.RunServer(cfg.ListenAddr(), server.NewHandler(a.db, routes, log.Logger), log.Logger)

	if sched != nil {
		sched.Stop()
	}
	return err
}
