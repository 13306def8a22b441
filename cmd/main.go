package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"commas-go/internal/config"
	"commas-go/internal/controller"
	"commas-go/internal/handler"
	"commas-go/internal/lint"
	"commas-go/internal/lint/trailingcomma"
	"commas-go/internal/model/report"
	"commas-go/internal/service"
	"commas-go/pkg/mcp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	exitClean    = 0
	exitFindings = 1
	exitError    = 2
)

func main() {
	var sourceConfigPath = flag.String("source", "", "Path to source configuration file")
	var appConfigPath = flag.String("app", "", "Path to app configuration file")
	var workDir = flag.String("workdir", "", "Directory that relative repository paths are resolved against")
	var serve = flag.Bool("serve", false, "Run the HTTP and MCP server")
	var fix = flag.Bool("fix", false, "Insert missing trailing commas in place")
	var repoName = flag.String("repo", "", "Check a configured repository instead of paths")
	var changedOnly = flag.Bool("changed", false, "Only check files modified relative to git HEAD")
	flag.Parse()

	cfg, err := config.LoadConfig(*appConfigPath, *sourceConfigPath)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if *workDir != "" {
		cfg.App.WorkDir = *workDir
	}
	cfg.ResolveRepositoryPaths(cfg.App.WorkDir)

	logger, err := newLogger(cfg.App.LogLevel, *serve)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	logger.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, logger, *serve, *repoName, flag.Args(), controller.CheckOptions{
		Fix:         *fix || cfg.App.Fix,
		ChangedOnly: *changedOnly,
	})
	stop()
	logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, serve bool, repoName string, paths []string, opts controller.CheckOptions) int {
	tokenizers, err := service.NewDefaultTokenizerRegistry()
	if err != nil {
		logger.Error("Failed to initialize tokenizers", zap.Error(err))
		return exitError
	}
	tokenizer, _ := tokenizers.GetTokenizer("python")

	detectors := lint.NewDetectorRegistry(logger)
	detectors.Register(trailingcomma.NewDetector(tokenizer, logger))

	// Runs given as paths on the command line are not persisted
	var store *service.ReportStore
	if serve || repoName != "" || len(paths) == 0 {
		db, err := service.NewGraphDatabase(ctx, cfg, logger)
		if err != nil {
			logger.Error("Failed to open report store", zap.Error(err))
			return exitError
		}
		if db != nil {
			defer db.Close(context.Background())
			store = service.NewReportStore(db, logger)
		}
	}

	processor := controller.NewRepoProcessor(cfg, detectors, tokenizers, store, logger)

	if serve {
		return runServer(ctx, cfg, logger, tokenizer, processor, store)
	}

	var runs []*report.RunReport
	switch {
	case repoName != "":
		repo, err := cfg.GetRepository(repoName)
		if err != nil {
			logger.Error("Unknown repository", zap.Error(err))
			return exitError
		}
		r, err := processor.ProcessRepository(ctx, repo, opts)
		if r == nil {
			logger.Error("Failed to check repository", zap.String("repo", repoName), zap.Error(err))
			return exitError
		}
		if err != nil {
			logger.Warn("Run report was not saved", zap.String("repo", repoName), zap.Error(err))
		}
		runs = append(runs, r)
	case len(paths) > 0:
		r, err := processor.CheckPaths(ctx, paths, opts)
		if err != nil {
			logger.Error("Failed to check paths", zap.Error(err))
			return exitError
		}
		runs = append(runs, r)
	case len(cfg.Source.Repositories) > 0:
		runs, err = processor.ProcessAllRepositories(ctx, opts)
		if err != nil {
			logger.Error("Some repositories could not be checked", zap.Error(err))
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: commas [-fix] [-changed] path ... | -repo name | -serve")
		flag.PrintDefaults()
		return exitError
	}

	return printRuns(runs, opts.Fix)
}

func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, tokenizer service.Tokenizer,
	processor *controller.RepoProcessor, store *service.ReportStore) int {
	finder := trailingcomma.NewFinder(tokenizer)
	lintController := controller.NewLintController(finder, processor, store, cfg, logger)
	mcpServer := mcp.NewCommaServer(finder, processor, cfg, logger)

	router := handler.SetupRouter(lintController, mcpServer, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	logger.Info("Starting server", zap.Int("port", cfg.App.Port))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Failed to start server", zap.Error(err))
		return exitError
	}
	return exitClean
}

// printRuns writes one line per finding and per unreadable file, in the
// usual compiler format, and picks the exit code
func printRuns(runs []*report.RunReport, fixed bool) int {
	code := exitClean
	for _, r := range runs {
		for _, file := range r.Files {
			path := file.Path
			if r.Repo != "" {
				path = r.Repo + ":" + path
			}
			for _, f := range file.Findings {
				verb := f.Message
				if file.Fixed {
					verb = "inserted trailing comma"
				}
				fmt.Printf("%s:%d:%d: %s\n", path, f.Line, f.Column, verb)
			}
			if !fixed && len(file.Findings) > 0 {
				code = exitFindings
			}
		}
		for _, e := range r.Errors {
			fmt.Fprintf(os.Stderr, "%s: %s\n", e.Path, e.Error)
			code = exitError
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(os.Stderr, "%s: %s\n", r.Repo, w)
			code = exitError
		}
	}
	return code
}

func newLogger(level string, serve bool) (*zap.Logger, error) {
	var cfgZap zap.Config
	if serve {
		cfgZap = zap.NewProductionConfig()
		cfgZap.OutputPaths = []string{"stdout"}
	} else {
		cfgZap = zap.NewDevelopmentConfig()
		cfgZap.OutputPaths = []string{"stderr"}
		level = defaultCLILevel(level)
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfgZap.Level.SetLevel(zapLevel)
	return cfgZap.Build()
}

// defaultCLILevel keeps the report on stdout readable unless a level was asked for
func defaultCLILevel(level string) string {
	if level == "info" {
		return "warn"
	}
	return level
}
