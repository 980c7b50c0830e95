package analysis

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/ironsheep/omr-tools/internal/histogram"
	"github.com/ironsheep/omr-tools/internal/imaging"
	"github.com/ironsheep/omr-tools/internal/sheet"
	"github.com/ironsheep/omr-tools/internal/structure"
)

// PageLoader supplies decoded, rotated pages. *imaging.PageLoader
// implements it.
type PageLoader interface {
	Load(path string, rotation int) (*imaging.PixelBuffer, error)
}

// LabelReader extracts printed text from an image region.
type LabelReader interface {
	ReadLabel(img image.Image) (string, error)
}

// Options tunes a batch run.
type Options struct {
	// Workers bounds the pool size. Values below 1 select runtime.NumCPU.
	Workers int
	// Strategy selects the thresholds used to classify each sheet.
	Strategy Strategy
	// Labels, when set, reads the structure's label region of each sheet.
	Labels LabelReader
	// Logger receives progress and failure events. Nil disables logging.
	Logger *zerolog.Logger
	// Progress is called from worker goroutines after each sheet.
	Progress func(done, total int)
}

// Report summarizes a batch run.
type Report struct {
	RunID    string
	Total    int
	Analyzed int
	Reused   int
	Skipped  []string
	Elapsed  time.Duration
	// Errors aggregates the per-sheet failures that did not stop the batch.
	Errors error
}

type runner struct {
	sheets []*sheet.Sheet
	st     *structure.Structure
	loader PageLoader
	opts   Options
	log    zerolog.Logger

	scratch  []*histogram.Histogram
	examples bool
	done     *atomic.Int64
	reused   *atomic.Int64

	mu       sync.Mutex
	failures *multierror.Error
	skipped  []string
	fatal    error
	stop     chan struct{}
	stopOnce sync.Once
}

// Run analyzes sheets against st and recalculates every answer.
//
// The global histogram is reset, refilled from all sheets and used to guess
// global thresholds before answers are calculated with opts.Strategy. Sheets
// whose caches are current for st are not reloaded; their cached brightness
// is replayed into the histogram instead.
//
// Run stops submitting sheets when ctx is cancelled or a resource limit is
// hit; in-flight sheets finish first. In both cases no answers are
// calculated and the returned error explains why.
func Run(ctx context.Context, sheets []*sheet.Sheet, st *structure.Structure, global *histogram.Histogram, loader PageLoader, opts Options) (*Report, error) {
	start := time.Now()
	r := &runner{
		sheets:   sheets,
		st:       st,
		loader:   loader,
		opts:     opts,
		log:      zerolog.Nop(),
		scratch:  make([]*histogram.Histogram, len(sheets)),
		examples: global.KeepsExamples(),
		done:     atomic.NewInt64(0),
		reused:   atomic.NewInt64(0),
		stop:     make(chan struct{}),
	}
	report := &Report{RunID: uuid.NewString(), Total: len(sheets)}
	if opts.Logger != nil {
		r.log = opts.Logger.With().Str("component", "analysis").Str("run_id", report.RunID).Logger()
	}

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, max(len(sheets), 1))
	r.log.Info().Int("sheets", len(sheets)).Int("workers", workers).Msg("batch started")

	global.Reset()

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				r.process(i)
			}
		}()
	}

feed:
	for i := range sheets {
		select {
		case jobs <- i:
		case <-r.stop:
			break feed
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	report.Analyzed = int(r.done.Load()) - len(r.skipped)
	report.Reused = int(r.reused.Load())
	report.Skipped = r.skipped
	report.Errors = r.failures.ErrorOrNil()

	if r.fatal != nil {
		report.Elapsed = time.Since(start)
		r.log.Error().Err(r.fatal).Msg("batch aborted")
		return report, r.fatal
	}
	if err := ctx.Err(); err != nil {
		report.Elapsed = time.Since(start)
		r.log.Warn().Err(err).Int("done", int(r.done.Load())).Msg("batch cancelled")
		return report, fmt.Errorf("batch cancelled: %w", err)
	}

	for _, h := range r.scratch {
		global.Merge(h)
	}
	global.GuessThreshold()
	CalculateAnswers(sheets, st, global, opts.Strategy)

	report.Elapsed = time.Since(start)
	r.log.Info().
		Int("analyzed", report.Analyzed).
		Int("reused", report.Reused).
		Int("skipped", len(report.Skipped)).
		Int("black", global.BlackThreshold()).
		Int("white", global.WhiteThreshold()).
		Dur("elapsed", report.Elapsed).
		Msg("batch finished")
	return report, nil
}

func (r *runner) process(i int) {
	s := r.sheets[i]
	log := r.log.With().Str("sheet", s.ID).Logger()
	local := histogram.New(r.examples)

	if s.Fresh(r.st) {
		s.Contribute(local)
		r.reused.Inc()
		log.Debug().Msg("caches current, replayed brightness")
	} else if !r.analyze(s, local, log) {
		r.finish(i, nil)
		return
	}
	r.finish(i, local)
}

// analyze loads and analyzes one sheet. It reports false when the sheet
// had to be skipped.
func (r *runner) analyze(s *sheet.Sheet, local *histogram.Histogram, log zerolog.Logger) bool {
	page, err := r.loader.Load(s.FilePath, s.Rotation())
	if err != nil {
		s.InvalidateRegistration()
		if errors.Is(err, imaging.ErrTooLarge) {
			r.mu.Lock()
			r.skipped = append(r.skipped, s.ID)
			r.mu.Unlock()
			r.abort(fmt.Errorf("%w: %w", ErrResourceExhausted, &SheetError{SheetID: s.ID, Op: "load", Err: err}))
			return false
		}
		r.fail(s, "load", fmt.Errorf("%w: %w", ErrDecodeFailure, err))
		log.Warn().Err(err).Msg("sheet skipped")
		return false
	}

	if err := s.Analyze(page, r.st, local); err != nil {
		r.fail(s, "analyze", err)
		return false
	}
	log.Debug().Str("transform", s.Transform().String()).Msg("sheet analyzed")

	if r.opts.Labels != nil && !r.st.LabelRegion.Empty() {
		region := r.st.LabelRegion
		crop := imaging.Thumbnail(s.Aligned(page), region, region.Dx()*2, region.Dy()*2)
		if crop != nil {
			text, err := r.opts.Labels.ReadLabel(crop)
			if err != nil {
				log.Warn().Err(err).Msg("form label not read")
			} else {
				s.FormLabel = strings.TrimSpace(text)
			}
		}
	}
	return true
}

func (r *runner) finish(i int, local *histogram.Histogram) {
	r.scratch[i] = local
	n := r.done.Inc()
	if r.opts.Progress != nil {
		r.opts.Progress(int(n), len(r.sheets))
	}
}

func (r *runner) fail(s *sheet.Sheet, op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = multierror.Append(r.failures, &SheetError{SheetID: s.ID, Op: op, Err: err})
	r.skipped = append(r.skipped, s.ID)
}

func (r *runner) abort(err error) {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.fatal = err
		r.mu.Unlock()
		close(r.stop)
	})
}

// CalculateAnswers classifies every analyzed sheet. With PerSheet each
// sheet uses its own histogram's thresholds; with Global every sheet uses
// global's.
func CalculateAnswers(sheets []*sheet.Sheet, st *structure.Structure, global *histogram.Histogram, strategy Strategy) {
	groups := st.QuestionGroups()
	for _, s := range sheets {
		if !s.Analyzed() {
			continue
		}
		h := s.Histogram()
		if strategy == Global {
			h = global
		}
		for _, g := range groups {
			s.CalculateAnswers(g, h.BlackThreshold(), h.WhiteThreshold())
		}
	}
}
