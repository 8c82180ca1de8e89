package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lizgehret/q2-fmt/internal/adapters/mq/queue"
	"github.com/lizgehret/q2-fmt/internal/adapters/mq/worker"
	"github.com/lizgehret/q2-fmt/internal/domain/model"
	"github.com/lizgehret/q2-fmt/internal/domain/types"
	"github.com/lizgehret/q2-fmt/pkg/logger"
	"github.com/lizgehret/q2-fmt/pkg/metrics"
)

const enqueueRetryDelay = 2 * time.Millisecond

// RunBatch runs independent jobs on the worker pool and records every
// outcome in the registry. Jobs whose id was already claimed by this
// service or already present in the registry are skipped. When ctx is
// cancelled the pool is shut down, jobs that never started are recorded as
// cancelled and ctx.Err() is returned with the reports.
// Reports come back in submission order.
func (s *Service) RunBatch(ctx context.Context, jobs []model.Job) ([]types.RunReport, error) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	pool := worker.NewPool(s.workerCount, q, worker.ProcessorFunc(s.process),
		worker.WithPoolLogger(s.logger.Named("pool")))
	pool.Start(ctx)

	accepted := make([]model.Job, 0, len(jobs))
	feedErr := s.feed(ctx, q, jobs, &accepted)
	if ctx.Err() != nil {
		// Workers stop after the job in hand; whatever is still queued is
		// reported as cancelled below.
		if err := pool.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	} else {
		_ = q.Close()
	}
	pool.Wait()

	// Registry writes below must land even after cancellation.
	record := context.WithoutCancel(ctx)
	reports := make([]types.RunReport, 0, len(accepted))
	for i := range accepted {
		job := &accepted[i]
		r, err := s.registry.Get(record, job.ID)
		if err != nil {
			r = types.RunReport{
				JobID:   job.ID,
				Name:    job.Name,
				Mode:    string(job.Measure.Mode()),
				Outcome: string(model.OutcomeCancelled),
			}
			if putErr := s.registry.Put(record, r); putErr != nil {
				s.logger.Error(ctx, "recording cancelled job", logger.String("job", job.ID), logger.Error(putErr))
			}
			metrics.RecordRun(r.Mode, r.Outcome)
		}
		reports = append(reports, r)
	}

	s.logger.Info(ctx, "batch finished",
		logger.Int("submitted", len(jobs)),
		logger.Int("accepted", len(accepted)),
		logger.Int("workers", pool.Size()),
	)
	if feedErr != nil {
		return reports, feedErr
	}
	return reports, ctx.Err()
}

// feed enqueues jobs, waiting while the queue is full. After ctx is done
// the remaining jobs are still claimed and accepted so they are reported as
// cancelled.
func (s *Service) feed(ctx context.Context, q *queue.InMemoryQueue, jobs []model.Job, accepted *[]model.Job) error {
	for i := range jobs {
		job := jobs[i]
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		if prior, taken := s.claim(ctx, job); taken {
			metrics.RecordJobDuplicate()
			s.logger.Warn(ctx, "skipping duplicate job",
				logger.String("job", job.ID),
				logger.String("first", prior),
				logger.Error(ErrDuplicateJob),
			)
			continue
		}
		*accepted = append(*accepted, job)
		if ctx.Err() != nil {
			continue
		}
		if err := enqueue(ctx, q, job); err != nil {
			return err
		}
	}
	return nil
}

// claim reserves job.ID for this service. Ids already in the registry,
// possibly from an earlier process, count as taken.
func (s *Service) claim(ctx context.Context, job model.Job) (string, bool) { //nolint:gocritic // hugeParam
	if prior, err := s.registry.Get(context.WithoutCancel(ctx), job.ID); err == nil {
		s.jobIDs.Claim(job.ID, prior.Name)
		return prior.Name, true
	}
	return s.jobIDs.Claim(job.ID, job.Name)
}

func enqueue(ctx context.Context, q *queue.InMemoryQueue, job model.Job) error { //nolint:gocritic // hugeParam
	for {
		err := q.Enqueue(ctx, job)
		switch {
		case err == nil, ctx.Err() != nil:
			return nil
		case !errors.Is(err, queue.ErrFull):
			return fmt.Errorf("enqueue %s: %w", job.ID, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(enqueueRetryDelay):
		}
	}
}

// process is the worker callback.
func (s *Service) process(ctx context.Context, job model.Job) error { //nolint:gocritic // hugeParam
	_, err := s.Run(ctx, job)
	return err
}
