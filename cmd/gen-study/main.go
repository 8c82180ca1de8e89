package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/lizgehret/q2-fmt/internal/studygen"
	"github.com/lizgehret/q2-fmt/pkg/logger"
)

// Default study shape.
const (
	defaultDonors     = 2
	defaultRecipients = 4
	defaultTimepoints = 5
	defaultControls   = 6
	defaultSeed       = 1
)

func main() {
	var (
		output     = flag.String("output", "study", "Directory for metadata.tsv, distance-matrix.tsv and alpha-diversity.tsv (empty to skip writing)")
		donors     = flag.Int("donors", defaultDonors, "Number of donors")
		recipients = flag.Int("recipients", defaultRecipients, "Recipients per donor")
		timepoints = flag.Int("timepoints", defaultTimepoints, "Weekly samples per recipient")
		controls   = flag.Int("controls", defaultControls, "Number of healthy control samples")
		seed       = flag.Uint64("seed", defaultSeed, "Random seed; the same seed yields the same study")
		workers    = flag.Int("workers", runtime.NumCPU(), "Goroutines computing the distance matrix")
		verify     = flag.Bool("verify", true, "Group the generated study and check row counts")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := studygen.Run(ctx, &studygen.Config{
		OutputDir:  *output,
		Donors:     *donors,
		Recipients: *recipients,
		Timepoints: *timepoints,
		Controls:   *controls,
		Seed:       *seed,
		Workers:    *workers,
		Verify:     *verify,
		Logger:     logger.Get(),
	})
	if err != nil {
		logger.Get().Error(ctx, "gen-study failed", logger.Error(err))
		stop()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(stats)
}
