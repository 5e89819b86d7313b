// Command seed rebuilds the curriculum topic graph from the syllabus feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"curriculum-graph/internal/config"
	"curriculum-graph/internal/curriculum"
	"curriculum-graph/internal/di"

	"go.uber.org/zap"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	configDir   string
	environment string
	feedPath    string
	sections    string
	wipe        bool
	dump        bool
	list        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, "Usage: seed [options]\n\nRebuilds the curriculum topic graph from the syllabus feed.\n\nOptions:\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.configDir, "config-dir", envOr("CONFIG_DIR", "config"), "Directory holding base/{environment}/local config files.")
	fs.StringVar(&opts.environment, "env", envOr("ENVIRONMENT", "development"), "Deployment environment: development, staging or production.")
	fs.StringVar(&opts.feedPath, "feed", "", "Syllabus feed file. Defaults to the embedded syllabus.")
	fs.StringVar(&opts.sections, "sections", "uni,maths,links", "Comma separated sections or groups to run, in order.")
	fs.BoolVar(&opts.wipe, "wipe", true, "Delete every node and relationship before seeding.")
	fs.BoolVar(&opts.dump, "dump", false, "Print every node name after seeding.")
	fs.BoolVar(&opts.list, "list", false, "List the feed's sections and groups and exit.")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	feed, err := loadFeed(opts.feedPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load syllabus feed: %v\n", err)
		return exitFailure
	}
	if opts.list {
		fmt.Fprintf(stdout, "sections: %s\n", strings.Join(feed.SectionNames(), ", "))
		fmt.Fprintf(stdout, "groups:   %s\n", strings.Join(feed.GroupNames(), ", "))
		return exitOK
	}
	sections, err := feed.Resolve(strings.Split(opts.sections, ",")...)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := config.NewLoader(opts.configDir, config.ParseEnvironment(opts.environment)).Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return exitFailure
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize: %v\n", err)
		return exitFailure
	}
	defer func() {
		if err := container.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(stderr, "shutdown: %v\n", err)
		}
	}()
	logger := container.Logger.Named("seed")
	builder := container.Builder

	if opts.wipe {
		if err := builder.WipeAll(ctx); err != nil {
			logger.Error("failed to wipe graph", zap.Error(err))
			return exitFailure
		}
	}

	summary, err := curriculum.NewRunner(builder, container.Logger).Run(ctx, sections...)
	if err != nil {
		logger.Error("seeding halted", zap.Error(err), zap.Int("steps_completed", summary.Steps))
		return exitFailure
	}

	found, missing := summary.Links.Counts()
	fmt.Fprintf(stdout, "seeded %d sections (%d steps) in %s: %d relationships created, %d skipped, %d nodes renamed\n",
		summary.Sections, summary.Steps, summary.Duration.Round(time.Millisecond), found, missing, summary.Renamed)
	for _, m := range summary.Missing() {
		fmt.Fprintf(stdout, "  unable to link %q -> %q\n", m.From, m.To)
	}

	dups, err := builder.DuplicateNames(ctx)
	if err != nil {
		logger.Error("failed to check duplicate names", zap.Error(err))
		return exitFailure
	}
	for _, d := range dups {
		logger.Warn("topic name used by more than one node",
			zap.String("name", d.Name), zap.Int64("occurrences", d.Occurrences))
	}

	if opts.dump {
		names, err := builder.DumpAllNames(ctx)
		if err != nil {
			logger.Error("failed to dump names", zap.Error(err))
			return exitFailure
		}
		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}
	}
	return exitOK
}

func loadFeed(path string) (*curriculum.Feed, error) {
	if path == "" {
		return curriculum.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return curriculum.Parse(f)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
