package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/lizgehret/q2-fmt/internal/adapters/tsv"
	service "github.com/lizgehret/q2-fmt/internal/app"
	"github.com/lizgehret/q2-fmt/internal/domain/groupdist"
	"github.com/lizgehret/q2-fmt/internal/domain/model"
	"github.com/lizgehret/q2-fmt/internal/domain/types"
)

const groupTimepointsSummary = "Group a diversity measure by timepoint and collect control distributions."

const groupTimepointsUsage = `Groups a distance matrix or alpha diversity series by the integer time
column. timepoint_dists holds one row per treatment sample, compared to its
reference (distance) or taken as is (alpha, raw policy), with subject ids
when a subject column is given. reference_dists holds the control
distribution (alpha) or the pairwise control distances (beta).`

// columnFlags binds the column role flags shared by commands.
func columnFlags(fsFlags *flag.FlagSet, c *model.Columns) {
	fsFlags.StringVar(&c.Time, "time-column", "",
		"The metadata column the diversity measure is grouped by. It should contain simple integer values.")
	fsFlags.StringVar(&c.Reference, "reference-column", "",
		"The metadata column holding the sample to compare against, e.g. the relevant donor sample.")
	fsFlags.StringVar(&c.Subject, "subject-column", "",
		"The metadata column holding the subject id tracked across timepoints (optional).")
	fsFlags.StringVar(&c.Control, "control-column", "",
		"The metadata column holding control group ids; treatment samples leave it empty (optional).")
}

func runGroupTimepoints(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "group-timepoints", groupTimepointsUsage)
	var spec service.JobSpec
	var tpOut, refOut string
	fs.StringVar(&spec.Metadata, "metadata", "", "The sample metadata TSV.")
	fs.StringVar(&spec.Distances, "distance-matrix", "", "A distance matrix TSV (beta diversity).")
	fs.StringVar(&spec.Alpha, "alpha-diversity", "", "An alpha diversity TSV.")
	columnFlags(fs, &spec.Columns)
	fs.StringVar(&spec.Policy, "alpha-policy", "", "Alpha comparison against the reference: raw, difference or ratio (default from config).")
	fs.StringVar(&spec.Output, "output", "", "Blob key prefix to save both results as GroupDist artifacts.")
	fs.StringVar(&spec.ID, "id", "", "Run id recorded in the report (default random).")
	fs.StringVar(&tpOut, "timepoints-out", "", "Write timepoint_dists as TSV to this file ('-' for stdout).")
	fs.StringVar(&refOut, "references-out", "", "Write reference_dists as TSV to this file ('-' for stdout).")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := required(fs, "metadata", "time-column", "reference-column"); err != nil {
		return err
	}
	if spec.Distances == "" && spec.Alpha == "" {
		fmt.Fprintln(fs.Output(), "one of -distance-matrix or -alpha-diversity is required")
		fs.Usage()
		return errUsage
	}

	job, err := e.svc.LoadJob(spec)
	if err != nil {
		return err
	}
	res, err := e.svc.Run(ctx, job)
	if err != nil {
		return err
	}
	if err := writeTable(e, tpOut, res.Timepoints); err != nil {
		return err
	}
	if err := writeTable(e, refOut, res.References); err != nil {
		return err
	}
	if tpOut == "-" || refOut == "-" {
		return nil
	}
	return writeJSON(e.stdout, res.Report)
}

func writeTable(e *env, path string, t *groupdist.Table) error {
	if path == "" {
		return nil
	}
	w, closeFn, err := createOutput(e, path)
	if err != nil {
		return err
	}
	if err := tsv.WriteGroupDist(w, t); err != nil {
		_ = closeFn()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return closeFn()
}

const addBlankColumnSummary = "Add a named blank column to a metadata table."

const addBlankColumnUsage = `Modifies a dataframe with a specified blank column. The column is appended
with every cell missing; other columns are unchanged.`

func runAddBlankColumn(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "add-blank-column", addBlankColumnUsage)
	var in, name, out string
	fs.StringVar(&in, "metadata", "", "The original dataframe to be modified.")
	fs.StringVar(&name, "column-name", "", "The name of the blank column to be added to the dataframe.")
	fs.StringVar(&out, "out", "-", "Where to write the resulting dataframe ('-' for stdout).")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := required(fs, "metadata", "column-name"); err != nil {
		return err
	}

	md, err := e.svc.ReadMetadata(in)
	if err != nil {
		return err
	}
	result, err := e.svc.AddBlankColumn(ctx, md, name)
	if err != nil {
		return err
	}
	w, closeFn, err := createOutput(e, out)
	if err != nil {
		return err
	}
	if err := tsv.WriteMetadata(w, result); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

const summarizeSummary = "Print per-group statistics of a GroupDist artifact or TSV."

const summarizeUsage = `Prints count, mean, median, min, max and standard deviation per group as
JSON. Reads a saved artifact from the configured blob store (-artifact) or a
local GroupDist TSV (-file with -kind).`

type summaryOutput struct {
	UUID   string               `json:"uuid,omitempty"`
	Type   string               `json:"type"`
	Groups []types.GroupSummary `json:"groups"`
}

func runSummarize(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "summarize", summarizeUsage)
	var dir, file, kindName string
	fs.StringVar(&dir, "artifact", "", "Artifact directory key in the blob store.")
	fs.StringVar(&file, "file", "", "A GroupDist TSV file.")
	fs.StringVar(&kindName, "kind", "ordinal", "Kind of -file: ordinal or nominal.")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if (dir == "") == (file == "") {
		fmt.Fprintln(fs.Output(), "exactly one of -artifact or -file is required")
		fs.Usage()
		return errUsage
	}

	if dir != "" {
		m, sums, err := e.svc.Summarize(ctx, dir)
		if err != nil {
			return err
		}
		return writeJSON(e.stdout, summaryOutput{UUID: m.UUID, Type: m.Type, Groups: sums})
	}

	kind, err := groupdist.ParseKind(kindName)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	rc, err := tsv.Open(file)
	if err != nil {
		return err
	}
	defer rc.Close()
	t, err := tsv.ReadGroupDist(rc, kind)
	if err != nil {
		return err
	}
	sums, err := t.Summarize()
	if err != nil {
		return err
	}
	return writeJSON(e.stdout, summaryOutput{Type: kind.SemanticType(), Groups: sums})
}

const batchSummary = "Run the jobs of a YAML manifest on the worker pool."

const batchUsage = `Runs every job of a manifest concurrently (worker_count workers, queue_size
queue). Top-level columns and alpha_policy apply to jobs that leave them
empty; relative paths resolve against the manifest directory. Prints the
run reports as JSON and fails when any job failed or was cancelled.`

var errBatchIncomplete = errors.New("not every job succeeded")

func runBatch(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "batch", batchUsage)
	var path string
	fs.StringVar(&path, "manifest", "", "The batch manifest YAML.")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := required(fs, "manifest"); err != nil {
		return err
	}

	specs, err := LoadManifest(path)
	if err != nil {
		return err
	}
	jobs := make([]model.Job, 0, len(specs))
	for _, spec := range specs {
		job, err := e.svc.LoadJob(spec)
		if err != nil {
			return fmt.Errorf("job %q: %w", spec.Name, err)
		}
		jobs = append(jobs, job)
	}

	reports, runErr := e.svc.RunBatch(ctx, jobs)
	if err := writeJSON(e.stdout, reports); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	for _, r := range reports {
		if r.Outcome != string(model.OutcomeSucceeded) {
			return errBatchIncomplete
		}
	}
	return nil
}

const runsSummary = "List runs recorded in the run registry."

const runsUsage = `Prints the recorded run reports and a count per outcome as JSON. The
registry only outlives the process when registry_path is configured.`

type runsOutput struct {
	Runs     []types.RunReport `json:"runs"`
	Outcomes map[string]int    `json:"outcomes"`
}

func runRuns(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "runs", runsUsage)
	var id, outcome string
	fs.StringVar(&id, "id", "", "Print only the run with this job id.")
	fs.StringVar(&outcome, "outcome", "", "Print only runs with this outcome: succeeded, failed or cancelled.")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	registry := e.svc.Registry()
	if id != "" {
		r, err := registry.Get(ctx, id)
		if err != nil {
			return err
		}
		return writeJSON(e.stdout, r)
	}
	runs := registry.List(ctx)
	if outcome != "" {
		kept := runs[:0]
		for _, r := range runs {
			if r.Outcome == outcome {
				kept = append(kept, r)
			}
		}
		runs = kept
	}
	return writeJSON(e.stdout, runsOutput{Runs: runs, Outcomes: registry.Outcomes(ctx)})
}
