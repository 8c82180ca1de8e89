// Package service wires the grouping engine to text formats, artifact
// storage, the batch worker pool, metrics and logging.
package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime"
	"time"

	"github.com/lizgehret/q2-fmt/internal/adapters/artifact"
	"github.com/lizgehret/q2-fmt/internal/adapters/blob/core"
	"github.com/lizgehret/q2-fmt/internal/adapters/blob/memory"
	"github.com/lizgehret/q2-fmt/internal/adapters/repository"
	"github.com/lizgehret/q2-fmt/internal/domain/comparison"
	"github.com/lizgehret/q2-fmt/internal/domain/dedupe"
	"github.com/lizgehret/q2-fmt/internal/domain/engraftment"
	"github.com/lizgehret/q2-fmt/internal/domain/groupdist"
	"github.com/lizgehret/q2-fmt/internal/domain/model"
	"github.com/lizgehret/q2-fmt/internal/domain/types"
	"github.com/lizgehret/q2-fmt/pkg/logger"
	"github.com/lizgehret/q2-fmt/pkg/metrics"
)

// Artifact directory names under a job's output prefix.
const (
	TimepointsDir = "timepoint_dists"
	ReferencesDir = "reference_dists"
)

// Service runs grouping jobs.
type Service struct {
	store    core.Store
	registry repository.Store
	jobIDs   *dedupe.Tracker[string]

	policy      comparison.Policy
	delimiter   rune
	workerCount int
	queueSize   int

	logger logger.Logger
}

// Result is the output of one grouping run.
type Result struct {
	Timepoints *groupdist.Table
	References *groupdist.Table
	Report     types.RunReport
}

// New constructs a Service. Without options artifacts go to process memory
// and runs are recorded in an in-memory registry.
func New(opts ...Option) *Service {
	s := &Service{
		policy:      comparison.DefaultPolicy,
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = memory.New()
	}
	if s.registry == nil {
		s.registry = repository.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.jobIDs = dedupe.New[string](dedupe.WithCapacity(s.queueSize))

	return s
}

// Store returns the artifact store.
func (s *Service) Store() core.Store { return s.store }

// Registry returns the run registry.
func (s *Service) Registry() repository.Store { return s.registry }

// GroupTimepoints runs the engine for one job. When job.Output is set both
// tables are saved as artifacts under it. The report is filled in on
// failure too; the tables are nil then.
func (s *Service) GroupTimepoints(ctx context.Context, job model.Job) (*Result, error) { //nolint:gocritic // hugeParam
	start := time.Now()
	mode := string(job.Measure.Mode())
	res := &Result{Report: types.RunReport{JobID: job.ID, Name: job.Name, Mode: mode}}

	fail := func(err error) (*Result, error) {
		res.Timepoints, res.References = nil, nil
		res.Report.Outcome = string(model.OutcomeFailed)
		res.Report.Error = err.Error()
		metrics.RecordRun(mode, res.Report.Outcome)
		metrics.RecordErrorByComponent("engine", errorKind(err))
		s.logger.Warn(ctx, "grouping failed",
			logger.String("job", job.ID),
			logger.String("mode", mode),
			logger.Error(err),
		)
		return res, err
	}

	policy := s.policy
	if job.Policy != "" {
		p, err := comparison.ParsePolicy(job.Policy)
		if err != nil {
			return fail(err)
		}
		policy = p
	}

	tp, refs, err := engraftment.GroupTimepoints(job.Measure, job.Metadata, job.Columns, engraftment.WithPolicy(policy))
	if err != nil {
		return fail(err)
	}
	res.Timepoints, res.References = tp, refs
	res.Report.TimepointRows = tp.Len()
	res.Report.ReferenceRows = refs.Len()

	if res.Report.Timepoints, err = tp.Summarize(); err != nil {
		return fail(err)
	}
	if res.Report.References, err = refs.Summarize(); err != nil {
		return fail(err)
	}

	if job.Output != "" {
		tpRef, err := s.save(ctx, job.Output, TimepointsDir, tp)
		if err != nil {
			return fail(err)
		}
		refRef, err := s.save(ctx, job.Output, ReferencesDir, refs)
		if err != nil {
			if rmErr := artifact.Remove(context.WithoutCancel(ctx), s.store, tpRef.Key); rmErr != nil {
				s.logger.Warn(ctx, "removing partial output", logger.String("key", tpRef.Key), logger.Error(rmErr))
			}
			return fail(err)
		}
		res.Report.TimepointsUUID = tpRef.UUID
		res.Report.ReferencesUUID = refRef.UUID
	}

	res.Report.Outcome = string(model.OutcomeSucceeded)
	metrics.RecordRun(mode, res.Report.Outcome)
	metrics.RecordRunDuration(mode, time.Since(start).Seconds())
	metrics.RecordRowsEmitted(tp.Kind().String(), tp.Len())
	metrics.RecordRowsEmitted(refs.Kind().String(), refs.Len())
	s.logger.Info(ctx, "grouped timepoints",
		logger.String("job", job.ID),
		logger.String("mode", mode),
		logger.String("policy", string(policy)),
		logger.Int("timepoint_rows", tp.Len()),
		logger.Int("reference_rows", refs.Len()),
	)
	return res, nil
}

// Run is GroupTimepoints plus a registry record of the report. A job id
// that is already recorded fails with ErrDuplicateJob without running.
func (s *Service) Run(ctx context.Context, job model.Job) (*Result, error) { //nolint:gocritic // hugeParam
	if _, err := s.registry.Get(ctx, job.ID); err == nil {
		metrics.RecordJobDuplicate()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID)
	}
	res, runErr := s.GroupTimepoints(ctx, job)
	if err := s.registry.Put(context.WithoutCancel(ctx), res.Report); err != nil {
		metrics.RecordErrorByComponent("registry", errorKind(err))
		return res, errors.Join(runErr, err)
	}
	return res, runErr
}

func (s *Service) save(ctx context.Context, prefix, name string, t *groupdist.Table) (artifact.Ref, error) {
	ref, err := artifact.Save(ctx, s.store, t, artifact.WithPrefix(path.Join(prefix, name)))
	if err != nil {
		metrics.RecordErrorByComponent("artifact", "save")
		return artifact.Ref{}, fmt.Errorf("save %s: %w", name, err)
	}
	metrics.RecordArtifactWritten(string(s.store.Driver()), ref.Bytes)
	s.logger.Debug(ctx, "artifact saved",
		logger.String("key", ref.Key),
		logger.String("type", t.Kind().SemanticType()),
	)
	return ref, nil
}

// AddBlankColumn appends an all-missing column to table.
func (s *Service) AddBlankColumn(ctx context.Context, table *model.Table, name string) (*model.Table, error) {
	out, err := engraftment.AddBlankColumn(table, name)
	if err != nil {
		metrics.RecordErrorByComponent("engine", errorKind(err))
		return nil, err
	}
	s.logger.Debug(ctx, "added blank column", logger.String("column", name), logger.Int("rows", out.Len()))
	return out, nil
}

// Summarize loads the artifact stored under dir and summarises its groups.
func (s *Service) Summarize(ctx context.Context, dir string) (artifact.Manifest, []types.GroupSummary, error) {
	m, t, err := artifact.Load(ctx, s.store, dir)
	if err != nil {
		metrics.RecordErrorByComponent("artifact", errorKind(err))
		return artifact.Manifest{}, nil, err
	}
	sums, err := t.Summarize()
	if err != nil {
		return artifact.Manifest{}, nil, err
	}
	return m, sums, nil
}

// errorKind maps an error to a low-cardinality metrics label.
func errorKind(err error) string {
	kinds := []struct {
		target error
		kind   string
	}{
		{engraftment.ErrAmbiguousMeasure, "ambiguous_measure"},
		{engraftment.ErrMissingMeasure, "missing_measure"},
		{engraftment.ErrMissingSample, "missing_sample"},
		{engraftment.ErrInvalidTimeValue, "invalid_time_value"},
		{engraftment.ErrControlReferenceOverlap, "control_reference_overlap"},
		{groupdist.ErrDuplicateSubjectTimepoint, "duplicate_subject_timepoint"},
		{groupdist.ErrSchemaMismatch, "schema_mismatch"},
		{model.ErrColumnNotFound, "column_not_found"},
		{model.ErrDuplicateColumn, "duplicate_column"},
		{model.ErrInvalidColumnName, "invalid_column_name"},
		{comparison.ErrUndefinedRatio, "undefined_ratio"},
		{comparison.ErrUnknownPolicy, "unknown_policy"},
		{core.ErrNotFound, "not_found"},
		{repository.ErrDuplicate, "duplicate_run"},
	}
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return "other"
}
