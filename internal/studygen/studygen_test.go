package studygen_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lizgehret/q2-fmt/internal/adapters/tsv"
	"github.com/lizgehret/q2-fmt/internal/studygen"
	"github.com/lizgehret/q2-fmt/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newConfig() *studygen.Config {
	return &studygen.Config{Donors: 2, Recipients: 3, Timepoints: 4, Controls: 5, Seed: 42, Workers: 3}
}

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingLogger) record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingLogger) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func (r *recordingLogger) Info(_ context.Context, msg string, _ ...logger.Field)  { r.record(msg) }
func (r *recordingLogger) Error(_ context.Context, msg string, _ ...logger.Field) { r.record(msg) }
func (r *recordingLogger) Debug(_ context.Context, msg string, _ ...logger.Field) { r.record(msg) }
func (r *recordingLogger) Warn(_ context.Context, msg string, _ ...logger.Field)  { r.record(msg) }
func (r *recordingLogger) Fatal(_ context.Context, msg string, _ ...logger.Field) { r.record(msg) }
func (r *recordingLogger) Named(string) logger.Logger                             { return r }

func TestGeneratorLogging(t *testing.T) {
	Convey("Given a config without a logger", t, func() {
		ctx := context.Background()
		cfg := newConfig()

		Convey("Then generating does not need a global logger", func() {
			So(func() { _, _ = studygen.Generate(ctx, cfg) }, ShouldNotPanic)
		})

		Convey("When a logger is supplied", func() {
			rec := &recordingLogger{}
			cfg.Logger = rec
			cfg.OutputDir = t.TempDir()
			cfg.Verify = true
			_, err := studygen.Run(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then progress goes to that logger", func() {
				msgs := rec.messages()
				So(msgs, ShouldContain, "generating study")
				So(msgs, ShouldContain, "wrote study file")
				So(msgs, ShouldContain, "verified grouping")
				So(msgs[len(msgs)-1], ShouldEqual, "study ready")
			})
		})
	})
}

func TestGenerate(t *testing.T) {
	Convey("Given a study config", t, func() {
		ctx := context.Background()
		cfg := newConfig()

		Convey("When a study is generated", func() {
			study, err := studygen.Generate(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then it has donors, recipient samples and controls", func() {
				So(study.Metadata.Len(), ShouldEqual, 2+2*3*4+5)
				So(study.Distances.Len(), ShouldEqual, study.Metadata.Len())
				So(study.Alpha.Len(), ShouldEqual, study.Metadata.Len())
				So(study.Metadata.ColumnNames(), ShouldResemble,
					[]string{studygen.TimeColumn, studygen.ReferenceColumn, studygen.SubjectColumn, studygen.ControlColumn, studygen.StudyColumn})
			})

			Convey("Then recipient samples point at their donor", func() {
				row, ok := study.Metadata.Row("D2R3.w1")
				So(ok, ShouldBeTrue)
				donor, err := study.Metadata.Column(studygen.ReferenceColumn)
				So(err, ShouldBeNil)
				So(donor.Cells[row].Value, ShouldEqual, "D2")
				week, _ := study.Metadata.Column(studygen.TimeColumn)
				So(week.Cells[row].Value, ShouldEqual, "1")
			})

			Convey("Then distances are symmetric with a zero diagonal", func() {
				ids := study.Distances.IDs()
				for _, a := range ids {
					self, _ := study.Distances.Distance(a, a)
					So(self, ShouldEqual, 0)
					for _, b := range ids {
						ab, _ := study.Distances.Distance(a, b)
						ba, _ := study.Distances.Distance(b, a)
						So(ab, ShouldEqual, ba)
						So(ab, ShouldBeBetweenOrEqual, 0, 1)
					}
				}
			})

			Convey("Then the same seed yields the same study", func() {
				again, err := studygen.Generate(ctx, newConfig())
				So(err, ShouldBeNil)
				So(again.ID, ShouldEqual, study.ID)
				a, _ := study.Alpha.Value("C1")
				b, _ := again.Alpha.Value("C1")
				So(a, ShouldEqual, b)
			})
		})

		Convey("When the config is unusable", func() {
			cfg.Timepoints = 0
			_, err := studygen.Generate(ctx, cfg)

			Convey("Then it is rejected", func() {
				So(err, ShouldWrap, studygen.ErrInvalidConfig)
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given an output directory", t, func() {
		ctx := context.Background()
		cfg := newConfig()
		cfg.OutputDir = filepath.Join(t.TempDir(), "study")
		cfg.Verify = true

		Convey("When the generator runs with verification", func() {
			stats, err := studygen.Run(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then every grouping run is verified", func() {
				So(stats.VerifiedRuns, ShouldEqual, 4)
				So(stats.TrendConfirmed, ShouldBeTrue)
				So(stats.TimepointRows, ShouldEqual, 24)
				So(stats.ControlPairs, ShouldEqual, 10)
			})

			Convey("Then the files read back", func() {
				So(stats.Files, ShouldHaveLength, 3)

				f, err := os.Open(filepath.Join(cfg.OutputDir, studygen.MetadataFile))
				So(err, ShouldBeNil)
				defer f.Close()
				md, err := tsv.ReadMetadata(f)
				So(err, ShouldBeNil)
				So(md.Len(), ShouldEqual, stats.Samples)

				g, err := os.Open(filepath.Join(cfg.OutputDir, studygen.DistancesFile))
				So(err, ShouldBeNil)
				defer g.Close()
				dm, err := tsv.ReadDistanceMatrix(g)
				So(err, ShouldBeNil)
				So(dm.Len(), ShouldEqual, stats.Samples)
			})
		})

		Convey("When there is a single timepoint", func() {
			cfg.Timepoints = 1
			stats, err := studygen.Run(ctx, cfg)

			Convey("Then counts are verified without a trend", func() {
				So(err, ShouldBeNil)
				So(stats.VerifiedRuns, ShouldEqual, 4)
				So(stats.TrendConfirmed, ShouldBeFalse)
			})
		})
	})
}
