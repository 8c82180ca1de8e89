package studygen

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/lizgehret/q2-fmt/internal/domain/model"
	"github.com/lizgehret/q2-fmt/pkg/logger"
)

// Community positions live in the unit cube; distances are Euclidean,
// scaled by the cube diagonal so they stay in [0, 1].
const (
	dims         = 3
	donorMax     = 0.3
	baselineMin  = 0.7
	noise        = 0.02
	engraftShare = 0.8 // fraction of the donor gap closed by the last week

	donorRichness    = 150.0
	baselineRichness = 50.0
	controlRichness  = 140.0
	richnessNoise    = 5.0
)

// Study is one generated data set.
type Study struct {
	ID        string
	Columns   model.Columns
	Metadata  *model.Table
	Distances *model.DistanceMatrix
	Alpha     *model.AlphaSeries
}

type sample struct {
	id       string
	week     int
	donor    string
	subject  string
	control  bool
	pos      [dims]float64
	richness float64
}

// Generate builds a study from cfg. Recipients drift from their own
// baseline community toward their donor week over week; controls sit near
// the donors.
func Generate(ctx context.Context, cfg *Config) (*Study, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	studyID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("q2-fmt/study/%d/%d/%d/%d/%d",
		cfg.Seed, cfg.Donors, cfg.Recipients, cfg.Timepoints, cfg.Controls))).String()

	cfg.log().Info(ctx, "generating study",
		logger.String("study", studyID),
		logger.Int("donors", cfg.Donors),
		logger.Int("recipients", cfg.Recipients),
		logger.Int("timepoints", cfg.Timepoints),
		logger.Int("controls", cfg.Controls))

	var samples []sample
	for d := 1; d <= cfg.Donors; d++ {
		donor := sample{id: "D" + strconv.Itoa(d), week: -1, richness: jitter(rng, donorRichness)}
		for k := range donor.pos {
			donor.pos[k] = rng.Float64() * donorMax
		}
		samples = append(samples, donor)

		for r := 1; r <= cfg.Recipients; r++ {
			subject := fmt.Sprintf("%sR%d", donor.id, r)
			var base [dims]float64
			for k := range base {
				base[k] = baselineMin + rng.Float64()*(1-baselineMin)
			}
			for w := 0; w < cfg.Timepoints; w++ {
				f := 0.0
				if cfg.Timepoints > 1 {
					f = engraftShare * float64(w) / float64(cfg.Timepoints-1)
				}
				s := sample{
					id:       fmt.Sprintf("%s.w%d", subject, w),
					week:     w,
					donor:    donor.id,
					subject:  subject,
					richness: jitter(rng, baselineRichness+f*(donorRichness-baselineRichness)),
				}
				for k := range s.pos {
					s.pos[k] = clamp((1-f)*base[k] + f*donor.pos[k] + (rng.Float64()*2-1)*noise)
				}
				samples = append(samples, s)
			}
		}
	}
	for c := 1; c <= cfg.Controls; c++ {
		s := sample{id: "C" + strconv.Itoa(c), week: -1, control: true, richness: jitter(rng, controlRichness)}
		for k := range s.pos {
			s.pos[k] = rng.Float64() * donorMax
		}
		samples = append(samples, s)
	}

	md, err := metadata(studyID, samples)
	if err != nil {
		return nil, err
	}
	dm, err := distances(ctx, samples, cfg.Workers)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(samples))
	values := make([]float64, len(samples))
	for i, s := range samples {
		ids[i] = s.id
		values[i] = s.richness
	}
	alpha, err := model.NewAlphaSeries(AlphaName, ids, values)
	if err != nil {
		return nil, err
	}

	return &Study{
		ID: studyID,
		Columns: model.Columns{
			Time:      TimeColumn,
			Reference: ReferenceColumn,
			Subject:   SubjectColumn,
			Control:   ControlColumn,
		},
		Metadata:  md,
		Distances: dm,
		Alpha:     alpha,
	}, nil
}

func metadata(studyID string, samples []sample) (*model.Table, error) {
	n := len(samples)
	ids := make([]string, n)
	week := model.Column{Name: TimeColumn, Kind: model.Numeric, Cells: make([]model.Cell, n)}
	donor := model.Column{Name: ReferenceColumn, Kind: model.Categorical, Cells: make([]model.Cell, n)}
	subject := model.Column{Name: SubjectColumn, Kind: model.Categorical, Cells: make([]model.Cell, n)}
	control := model.Column{Name: ControlColumn, Kind: model.Categorical, Cells: make([]model.Cell, n)}
	study := model.Column{Name: StudyColumn, Kind: model.Categorical, Cells: make([]model.Cell, n)}
	for i, s := range samples {
		ids[i] = s.id
		study.Cells[i] = model.PresentCell(studyID)
		switch {
		case s.control:
			control.Cells[i] = model.PresentCell(ControlLabel)
		case s.week >= 0:
			week.Cells[i] = model.PresentCell(strconv.Itoa(s.week))
			donor.Cells[i] = model.PresentCell(s.donor)
			subject.Cells[i] = model.PresentCell(s.subject)
		}
	}
	return model.NewTable(ids, week, donor, subject, control, study)
}

// distances fills the symmetric matrix row by row on workers goroutines.
func distances(ctx context.Context, samples []sample, workers int) (*model.DistanceMatrix, error) {
	n := len(samples)
	ids := make([]string, n)
	data := make([][]float64, n)
	for i, s := range samples {
		ids[i] = s.id
		data[i] = make([]float64, n)
	}

	rows := make(chan int, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rows {
				for j := range samples {
					data[i][j] = distance(samples[i].pos, samples[j].pos)
				}
			}
		}()
	}
	for i := 0; i < n; i++ {
		select {
		case rows <- i:
		case <-ctx.Done():
			close(rows)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(rows)
	wg.Wait()
	return model.NewDistanceMatrix(ids, data)
}

// distance(a, b) == distance(b, a) exactly.
func distance(a, b [dims]float64) float64 {
	var sum float64
	for k := 0; k < dims; k++ {
		d := a[k] - b[k]
		sum += d * d
	}
	return math.Sqrt(sum) / math.Sqrt(dims)
}

func jitter(rng *rand.Rand, v float64) float64 {
	return math.Round(v + (rng.Float64()*2-1)*richnessNoise)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
