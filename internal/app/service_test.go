package service_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lizgehret/q2-fmt/internal/adapters/blob/core"
	"github.com/lizgehret/q2-fmt/internal/adapters/blob/memory"
	"github.com/lizgehret/q2-fmt/internal/adapters/repository"
	service "github.com/lizgehret/q2-fmt/internal/app"
	"github.com/lizgehret/q2-fmt/internal/domain/comparison"
	"github.com/lizgehret/q2-fmt/internal/domain/engraftment"
	"github.com/lizgehret/q2-fmt/internal/domain/groupdist"
	"github.com/lizgehret/q2-fmt/internal/domain/model"
	"github.com/lizgehret/q2-fmt/internal/domain/types"
	"github.com/lizgehret/q2-fmt/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const metadataTSV = "id\ttime\treference\tsubject\tcontrol\n" +
	"donor\t\t\t\t\n" +
	"r1_t0\t0\tdonor\tr1\t\n" +
	"r1_t1\t1\tdonor\tr1\t\n" +
	"r2_t0\t0\tdonor\tr2\t\n" +
	"c1\t\t\t\tctrl\n" +
	"c2\t\t\t\tctrl\n"

const distanceTSV = "\tdonor\tr1_t0\tr1_t1\tr2_t0\tc1\tc2\n" +
	"donor\t0\t0.9\t0.4\t0.8\t0.7\t0.7\n" +
	"r1_t0\t0.9\t0\t0.5\t0.3\t0.6\t0.6\n" +
	"r1_t1\t0.4\t0.5\t0\t0.5\t0.6\t0.6\n" +
	"r2_t0\t0.8\t0.3\t0.5\t0\t0.6\t0.6\n" +
	"c1\t0.7\t0.6\t0.6\t0.6\t0\t0.25\n" +
	"c2\t0.7\t0.6\t0.6\t0.6\t0.25\t0\n"

const alphaTSV = "id\tshannon_entropy\n" +
	"donor\t4\n" +
	"r1_t0\t2\n" +
	"r1_t1\t3\n" +
	"r2_t0\t1\n" +
	"c1\t2.5\n" +
	"c2\t3.5\n"

var columns = model.Columns{Time: "time", Reference: "reference", Subject: "subject", Control: "control"}

type fixtures struct {
	metadata, distances, alpha string
}

func writeFixtures(t *testing.T) fixtures {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}
	return fixtures{
		metadata:  write("metadata.tsv", metadataTSV),
		distances: write("distance-matrix.tsv", distanceTSV),
		alpha:     write("alpha-diversity.tsv", alphaTSV),
	}
}

func newService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.Nop()),
		service.WithDelimiter('\t'),
		service.WithWorkerCount(2),
		service.WithQueueSize(2),
	}
	return service.New(append(base, opts...)...)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it uses in-memory storage and registry", func() {
			So(svc, ShouldNotBeNil)
			So(string(svc.Store().Driver()), ShouldEqual, "memory")
			So(svc.Registry().Count(context.Background()), ShouldEqual, 0)
		})
	})
}

func TestService_GroupTimepoints(t *testing.T) {
	Convey("Given fixture files and a service", t, func() {
		fx := writeFixtures(t)
		store := memory.New()
		svc := newService(service.WithStore(store))
		ctx := context.Background()

		Convey("When running a distance job with an output prefix", func() {
			job, err := svc.LoadJob(service.JobSpec{
				ID: "beta", Metadata: fx.metadata, Distances: fx.distances, Columns: columns, Output: "runs/beta",
			})
			So(err, ShouldBeNil)

			res, err := svc.GroupTimepoints(ctx, job)

			Convey("Then both tables and the report are filled", func() {
				So(err, ShouldBeNil)
				So(res.Report.Outcome, ShouldEqual, "succeeded")
				So(res.Report.Mode, ShouldEqual, "distance")
				So(res.Report.TimepointRows, ShouldEqual, 3)
				So(res.Report.ReferenceRows, ShouldEqual, 1)
				So(res.Timepoints.Equal(mustTable(groupdist.Ordinal,
					groupdist.Row{Group: groupdist.OrdinalGroup(0), Value: 0.9, Subject: "r1"},
					groupdist.Row{Group: groupdist.OrdinalGroup(1), Value: 0.4, Subject: "r1"},
					groupdist.Row{Group: groupdist.OrdinalGroup(0), Value: 0.8, Subject: "r2"},
				)), ShouldBeTrue)
				So(res.References.Rows()[0].Value, ShouldEqual, 0.25)
				So(res.Report.Timepoints, ShouldHaveLength, 2)
				So(res.Report.Timepoints[0].Group, ShouldEqual, "0")
				So(res.Report.Timepoints[0].Count, ShouldEqual, 2)
			})

			Convey("Then the saved artifacts can be summarised", func() {
				So(err, ShouldBeNil)
				dir := path.Join("runs/beta", service.TimepointsDir, res.Report.TimepointsUUID)
				m, sums, err := svc.Summarize(ctx, dir)
				So(err, ShouldBeNil)
				So(m.Type, ShouldEqual, "GroupDist[Ordinal]")
				So(sums, ShouldResemble, res.Report.Timepoints)

				dir = path.Join("runs/beta", service.ReferencesDir, res.Report.ReferencesUUID)
				m, _, err = svc.Summarize(ctx, dir)
				So(err, ShouldBeNil)
				So(m.Type, ShouldEqual, "GroupDist[Nominal]")
			})
		})

		Convey("When running an alpha job with the difference policy", func() {
			job, err := svc.LoadJob(service.JobSpec{
				ID: "alpha", Metadata: fx.metadata, Alpha: fx.alpha, Columns: columns, Policy: "difference",
			})
			So(err, ShouldBeNil)

			res, err := svc.GroupTimepoints(ctx, job)

			Convey("Then values are compared against the donor and controls keep raw values", func() {
				So(err, ShouldBeNil)
				So(res.Report.Mode, ShouldEqual, "alpha")
				So(res.Timepoints.Equal(mustTable(groupdist.Ordinal,
					groupdist.Row{Group: groupdist.OrdinalGroup(0), Value: -2, Subject: "r1"},
					groupdist.Row{Group: groupdist.OrdinalGroup(1), Value: -1, Subject: "r1"},
					groupdist.Row{Group: groupdist.OrdinalGroup(0), Value: -3, Subject: "r2"},
				)), ShouldBeTrue)
				So(res.References.Len(), ShouldEqual, 2)
				So(res.Report.TimepointsUUID, ShouldBeEmpty)
			})
		})

		Convey("When both measures are named", func() {
			job, err := svc.LoadJob(service.JobSpec{
				ID: "both", Metadata: fx.metadata, Distances: fx.distances, Alpha: fx.alpha, Columns: columns,
			})
			So(err, ShouldBeNil)

			res, err := svc.GroupTimepoints(ctx, job)

			Convey("Then the engine rejects the job and the report says failed", func() {
				So(errors.Is(err, engraftment.ErrAmbiguousMeasure), ShouldBeTrue)
				So(res.Report.Outcome, ShouldEqual, "failed")
				So(res.Report.Error, ShouldNotBeEmpty)
				So(res.Timepoints, ShouldBeNil)
			})
		})

		Convey("When the job names an unknown policy", func() {
			job, err := svc.LoadJob(service.JobSpec{Metadata: fx.metadata, Alpha: fx.alpha, Columns: columns, Policy: "log"})
			So(err, ShouldBeNil)

			_, err = svc.GroupTimepoints(ctx, job)

			Convey("Then ErrUnknownPolicy is returned", func() {
				So(errors.Is(err, comparison.ErrUnknownPolicy), ShouldBeTrue)
			})
		})

		Convey("When a column is missing", func() {
			job, err := svc.LoadJob(service.JobSpec{
				Metadata: fx.metadata, Distances: fx.distances,
				Columns: model.Columns{Time: "day", Reference: "reference"},
			})
			So(err, ShouldBeNil)

			_, err = svc.GroupTimepoints(ctx, job)

			Convey("Then ErrColumnNotFound is returned", func() {
				So(errors.Is(err, model.ErrColumnNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_LoadJob(t *testing.T) {
	Convey("Given a service", t, func() {
		fx := writeFixtures(t)
		svc := newService()

		Convey("When the spec is incomplete", func() {
			_, noMeta := svc.LoadJob(service.JobSpec{Distances: fx.distances})
			_, noMeasure := svc.LoadJob(service.JobSpec{Metadata: fx.metadata})

			Convey("Then the missing input is named", func() {
				So(noMeta, ShouldEqual, service.ErrNoMetadata)
				So(noMeasure, ShouldEqual, service.ErrNoMeasure)
			})
		})

		Convey("When a file does not exist", func() {
			_, err := svc.LoadJob(service.JobSpec{Metadata: fx.metadata, Alpha: fx.alpha + ".missing"})

			Convey("Then the open error names the path", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, ".missing")
			})
		})

		Convey("When the id is empty", func() {
			job, err := svc.LoadJob(service.JobSpec{Metadata: fx.metadata, Alpha: fx.alpha, Columns: columns})

			Convey("Then one is generated", func() {
				So(err, ShouldBeNil)
				So(job.ID, ShouldNotBeEmpty)
				So(job.Measure.Mode(), ShouldEqual, model.ModeAlpha)
				So(job.Metadata.Len(), ShouldEqual, 6)
			})
		})
	})
}

func TestService_AddBlankColumn(t *testing.T) {
	Convey("Given a metadata table read through the service", t, func() {
		fx := writeFixtures(t)
		svc := newService()
		md, err := svc.ReadMetadata(fx.metadata)
		So(err, ShouldBeNil)

		Convey("When adding a new column", func() {
			out, err := svc.AddBlankColumn(context.Background(), md, "notes")

			Convey("Then it is appended and the input is untouched", func() {
				So(err, ShouldBeNil)
				So(out.ColumnNames(), ShouldResemble, []string{"time", "reference", "subject", "control", "notes"})
				So(md.HasColumn("notes"), ShouldBeFalse)
			})
		})

		Convey("When the column exists", func() {
			_, err := svc.AddBlankColumn(context.Background(), md, "time")

			Convey("Then DuplicateColumnError is returned", func() {
				var dup *model.DuplicateColumnError
				So(errors.As(err, &dup), ShouldBeTrue)
				So(dup.Name, ShouldEqual, "time")
			})
		})
	})
}

func TestService_RunBatch(t *testing.T) {
	Convey("Given a batch of jobs", t, func() {
		fx := writeFixtures(t)
		registry := repository.NewMemoryStore()
		svc := newService(service.WithRegistry(registry))

		load := func(spec service.JobSpec) model.Job {
			spec.Metadata = fx.metadata
			spec.Columns = columns
			job, err := svc.LoadJob(spec)
			So(err, ShouldBeNil)
			return job
		}
		jobs := []model.Job{
			load(service.JobSpec{ID: "j1", Distances: fx.distances}),
			load(service.JobSpec{ID: "j2", Alpha: fx.alpha}),
			load(service.JobSpec{ID: "j3", Alpha: fx.alpha, Policy: "ratio"}),
			load(service.JobSpec{ID: "j4", Distances: fx.distances, Alpha: fx.alpha}),
			load(service.JobSpec{ID: "j1", Alpha: fx.alpha}),
		}

		Convey("When running it to completion", func() {
			reports, err := svc.RunBatch(context.Background(), jobs)

			Convey("Then every unique job is reported in order", func() {
				So(err, ShouldBeNil)
				So(reports, ShouldHaveLength, 4)
				ids := make([]string, len(reports))
				for i, r := range reports {
					ids[i] = r.JobID
				}
				So(strings.Join(ids, ","), ShouldEqual, "j1,j2,j3,j4")
				So(reports[0].Mode, ShouldEqual, "distance")
				So(reports[3].Outcome, ShouldEqual, "failed")
			})

			Convey("Then the registry holds the outcomes", func() {
				So(registry.Outcomes(context.Background()), ShouldResemble, map[string]int{"succeeded": 3, "failed": 1})
			})

			Convey("Then resubmitting the same ids is skipped", func() {
				again, err := svc.RunBatch(context.Background(), jobs[:2])
				So(err, ShouldBeNil)
				So(again, ShouldBeEmpty)
				So(registry.Count(context.Background()), ShouldEqual, 4)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			reports, err := svc.RunBatch(ctx, jobs)

			Convey("Then nothing runs and every job is reported cancelled", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(reports, ShouldHaveLength, 4)
				for _, r := range reports {
					So(r.Outcome, ShouldEqual, "cancelled")
				}
				So(registry.Outcomes(context.Background()), ShouldResemble, map[string]int{"cancelled": 4})
			})
		})
	})
}

// refusingStore rejects writes under one directory name.
type refusingStore struct {
	core.Store
	dir string
}

func (r refusingStore) Put(ctx context.Context, key string, body io.Reader, opts core.PutOptions) (core.Info, error) {
	if strings.Contains(key, "/"+r.dir+"/") {
		return core.Info{}, errors.New("quota exceeded")
	}
	return r.Store.Put(ctx, key, body, opts)
}

func TestService_GroupTimepointsPartialOutput(t *testing.T) {
	Convey("Given a store that refuses the reference artifact", t, func() {
		fx := writeFixtures(t)
		backing := memory.New()
		svc := newService(service.WithStore(refusingStore{Store: backing, dir: service.ReferencesDir}))
		ctx := context.Background()

		job, err := svc.LoadJob(service.JobSpec{
			ID: "partial", Metadata: fx.metadata, Distances: fx.distances, Columns: columns, Output: "runs/partial",
		})
		So(err, ShouldBeNil)

		res, err := svc.GroupTimepoints(ctx, job)

		Convey("Then the job fails and no timepoint artifact is left behind", func() {
			So(err, ShouldNotBeNil)
			So(res.Report.Outcome, ShouldEqual, "failed")
			list, err := backing.List(ctx, "runs/partial/")
			So(err, ShouldBeNil)
			So(list, ShouldBeEmpty)
		})
	})
}

// cancelOnPut cancels the batch once the first run is recorded.
type cancelOnPut struct {
	*repository.MemoryStore
	cancel context.CancelFunc
}

func (c *cancelOnPut) Put(ctx context.Context, r types.RunReport) error {
	err := c.MemoryStore.Put(ctx, r)
	c.cancel()
	return err
}

func TestService_RunBatchCancelledMidway(t *testing.T) {
	Convey("Given a single worker and a batch cancelled after its first run", t, func() {
		fx := writeFixtures(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		registry := &cancelOnPut{MemoryStore: repository.NewMemoryStore(), cancel: cancel}
		svc := newService(service.WithRegistry(registry), service.WithWorkerCount(1))

		var jobs []model.Job
		for _, id := range []string{"m1", "m2", "m3", "m4"} {
			job, err := svc.LoadJob(service.JobSpec{ID: id, Metadata: fx.metadata, Distances: fx.distances, Columns: columns})
			So(err, ShouldBeNil)
			jobs = append(jobs, job)
		}

		reports, err := svc.RunBatch(ctx, jobs)

		Convey("Then the pool stops and the rest are reported cancelled", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(reports, ShouldHaveLength, 4)
			So(reports[0].Outcome, ShouldEqual, "succeeded")
			for _, r := range reports[1:] {
				So(r.Outcome, ShouldEqual, "cancelled")
			}
			So(registry.Outcomes(context.Background()), ShouldResemble, map[string]int{"succeeded": 1, "cancelled": 3})
		})
	})
}

func TestService_Run(t *testing.T) {
	Convey("Given a service backed by a SQLite registry", t, func() {
		fx := writeFixtures(t)
		ctx := context.Background()
		dbPath := filepath.Join(t.TempDir(), "runs.db")
		registry, err := repository.OpenSQLite(ctx, dbPath)
		So(err, ShouldBeNil)
		Reset(func() { _ = registry.Close() })
		svc := newService(service.WithRegistry(registry))

		job, err := svc.LoadJob(service.JobSpec{ID: "alpha-1", Metadata: fx.metadata, Alpha: fx.alpha, Columns: columns})
		So(err, ShouldBeNil)

		Convey("When a job runs", func() {
			res, err := svc.Run(ctx, job)
			So(err, ShouldBeNil)

			Convey("Then its report is recorded", func() {
				got, err := registry.Get(ctx, "alpha-1")
				So(err, ShouldBeNil)
				So(got.Outcome, ShouldEqual, "succeeded")
				So(got.TimepointRows, ShouldEqual, res.Report.TimepointRows)
			})

			Convey("Then running the same id again is refused", func() {
				_, err := svc.Run(ctx, job)
				So(err, ShouldWrap, service.ErrDuplicateJob)
			})

			Convey("Then a later process skips the id in a batch", func() {
				So(registry.Close(), ShouldBeNil)
				reopened, err := repository.OpenSQLite(ctx, dbPath)
				So(err, ShouldBeNil)
				defer reopened.Close()

				next := newService(service.WithRegistry(reopened))
				reports, err := next.RunBatch(ctx, []model.Job{job})
				So(err, ShouldBeNil)
				So(reports, ShouldBeEmpty)
				So(reopened.Count(ctx), ShouldEqual, 1)
			})
		})
	})
}

func mustTable(kind groupdist.Kind, rows ...groupdist.Row) *groupdist.Table {
	t, err := groupdist.New(kind, rows)
	if err != nil {
		panic(err)
	}
	return t
}
