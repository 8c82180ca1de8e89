// Package cli is the command-line host for the grouping library: one
// subcommand per registered action plus batch and summary helpers.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/lizgehret/q2-fmt/internal/adapters/blob"
	"github.com/lizgehret/q2-fmt/internal/adapters/repository"
	service "github.com/lizgehret/q2-fmt/internal/app"
	"github.com/lizgehret/q2-fmt/internal/config"
	"github.com/lizgehret/q2-fmt/pkg/logger"
	"github.com/lizgehret/q2-fmt/pkg/metrics"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// errUsage marks errors already reported by a FlagSet.
var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

// env is what every subcommand receives.
type env struct {
	cfg    *config.Config
	svc    *service.Service
	stdout io.Writer
	stderr io.Writer
	logger logger.Logger
	close  func() error
}

func commands() []command {
	return []command{
		{"group-timepoints", groupTimepointsSummary, runGroupTimepoints},
		{"add-blank-column", addBlankColumnSummary, runAddBlankColumn},
		{"summarize", summarizeSummary, runSummarize},
		{"batch", batchSummary, runBatch},
		{"runs", runsSummary, runRuns},
	}
}

// Run executes one subcommand and returns the process exit code. Results go
// to stdout, logs and diagnostics to stderr.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || isHelp(args[0]) {
		writeHelp(stdout)
		if len(args) == 0 {
			return ExitUsage
		}
		return ExitOK
	}
	if args[0] == "help" {
		return runHelp(stdout, stderr, args[1:])
	}

	var cmd *command
	for _, c := range commands() {
		if c.name == args[0] {
			cmd = &c
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		writeHelp(stderr)
		return ExitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config:", err)
		return ExitFailure
	}
	e, err := newEnv(ctx, cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitFailure
	}
	defer func() {
		if err := e.close(); err != nil {
			e.logger.Warn(ctx, "closing run registry", logger.Error(err))
		}
	}()

	code := ExitOK
	if err := cmd.run(ctx, e, args[1:]); err != nil {
		code = ExitFailure
		if errors.Is(err, errUsage) {
			code = ExitUsage
		} else {
			e.logger.Error(ctx, "command failed", logger.String("command", cmd.name), logger.Error(err))
			fmt.Fprintf(stderr, "%s: %v\n", cmd.name, err)
		}
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			e.logger.Warn(ctx, "writing metrics textfile", logger.Error(err))
		}
	}
	return code
}

func newEnv(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (*env, error) {
	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.WithWriter(stderr), logger.WithFormat(format)); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, err
	}
	log := logger.Named("q2-fmt")

	store, err := blob.Open(ctx, cfg.Blob())
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	delim, err := cfg.DelimiterRune()
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithStore(store),
		service.WithPolicy(policy),
		service.WithDelimiter(delim),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
	}
	closeFn := func() error { return nil }
	if cfg.RegistryPath != "" {
		registry, err := repository.OpenSQLite(ctx, cfg.RegistryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open run registry: %w", err)
		}
		opts = append(opts, service.WithRegistry(registry))
		closeFn = registry.Close
	}

	svc := service.New(opts...)
	return &env{cfg: cfg, svc: svc, stdout: stdout, stderr: stderr, logger: log, close: closeFn}, nil
}

// newFlagSet builds a FlagSet that reports to stderr and never exits.
func newFlagSet(e *env, name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "Usage: q2-fmt %s [options]\n\n%s\n\nOptions:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errUsage
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return errUsage
	}
	return nil
}

// required reports the first empty flag value by name.
func required(fs *flag.FlagSet, names ...string) error {
	for _, n := range names {
		if f := fs.Lookup(n); f != nil && f.Value.String() == "" {
			fmt.Fprintf(fs.Output(), "-%s is required\n", n)
			fs.Usage()
			return errUsage
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// createOutput opens path for writing; "-" is stdout.
func createOutput(e *env, path string) (io.Writer, func() error, error) {
	if path == "-" {
		return e.stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "-help" || s == "--help"
}
