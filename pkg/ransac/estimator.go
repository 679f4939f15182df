package ransac

import(
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/abworrall/automosaic/pkg/emath"
)

// MinCorrespondences is the size of a minimal sample; a homography has
// eight degrees of freedom, and each pair pins down two.
const MinCorrespondences = 4

var(
	ErrInsufficientCorrespondences = errors.New("insufficient correspondences")
	ErrMismatchedCorrespondences   = errors.New("source and destination point counts differ")
	ErrNoConsensus                 = errors.New("no trial produced a usable model")
)

// Estimator runs RANSAC homography searches.
type Estimator struct {
	logger golog.Logger
}

func NewEstimator(logger golog.Logger) *Estimator {
	return &Estimator{logger: logger}
}

// A trial is one sample-fit-score cycle. Trials are numbered, and the
// number both seeds the trial's sampling and breaks ties between
// equally good trials, so the outcome doesn't depend on which goroutine
// got to run what.
type trial struct {
	index  int
	count  int
	model  emath.Homography
	sample [4]int
}

// beats is true if t should replace best: more inliers, or the same
// number from an earlier trial.
func (t *trial)beats(best *trial) bool {
	if best == nil {
		return true
	}
	if t.count != best.count {
		return t.count > best.count
	}
	return t.index < best.index
}

// Estimate runs cfg.MaxIterations trials over the correspondences
// src[i] -> dst[i], then refits the best model to all of its inliers.
func (e *Estimator)Estimate(ctx context.Context, src, dst []r2.Point, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(src) != len(dst) {
		return nil, errors.Wrapf(ErrMismatchedCorrespondences, "%d vs %d", len(src), len(dst))
	}
	if len(src) < MinCorrespondences {
		return nil, errors.Wrapf(ErrInsufficientCorrespondences, "have %d, need %d", len(src), MinCorrespondences)
	}

	r := &Result{Src: src, Dst: dst}
	return e.runRound(ctx, r, cfg, nil)
}

// Continue picks up where prev left off: prev's model is rescored under
// the new config's threshold and used as the best so far, then
// cfg.MaxIterations more trials are run. prev is not modified.
func (e *Estimator)Continue(ctx context.Context, prev *Result, cfg Config) (*Result, error) {
	if prev == nil {
		return nil, errors.New("continue: no previous result")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := &trial{
		index:  -1,
		count:  len(inliersOf(prev.Transform, prev.Src, prev.Dst, cfg.InlierThreshold)),
		model:  prev.Transform,
		sample: prev.Sample,
	}

	r := &Result{
		Src:        prev.Src,
		Dst:        prev.Dst,
		History:    append([]int{}, prev.History...),
		Iterations: prev.Iterations,
		Degenerate: prev.Degenerate,
		Rounds:     prev.Rounds,
		nextTrial:  prev.nextTrial,
	}
	return e.runRound(ctx, r, cfg, seed)
}

// runRound fans the trials of one round out over a pool of workers.
// Each worker publishes its trial into `best` with a compare-and-swap
// loop, so no lock is held while scoring.
func (e *Estimator)runRound(ctx context.Context, r *Result, cfg Config, seed *trial) (*Result, error) {
	start := time.Now()
	if cfg.MaxWallTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxWallTime)
		defer cancel()
	}

	var best atomic.Pointer[trial]
	if seed != nil {
		best.Store(seed)
	}

	first := r.nextTrial
	n := cfg.MaxIterations
	counts := make([]int, n) // -1: never ran
	ran := atomic.NewInt64(0)
	degenerate := atomic.NewInt64(0)
	skipped := atomic.NewInt64(0)

	var wg sync.WaitGroup
	jobsChan := make(chan int, n)

	for w:=0; w<cfg.nWorkers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobsChan {
				if ctx.Err() != nil {
					counts[t] = -1
					skipped.Inc()
					continue
				}

				ran.Inc()
				tr := runTrial(r.Src, r.Dst, cfg, first+t)
				if tr == nil {
					degenerate.Inc()
					continue
				}
				counts[t] = tr.count

				for {
					cur := best.Load()
					if !tr.beats(cur) || best.CompareAndSwap(cur, tr) {
						break
					}
				}
			}
		}()
	}

	for t:=0; t<n; t++ {
		jobsChan<- t
	}
	close(jobsChan)
	wg.Wait()

	r.nextTrial = first + n
	r.Rounds++
	r.Iterations += int(ran.Load())
	r.Degenerate += int(degenerate.Load())
	r.TimedOut = skipped.Load() > 0
	r.Config = cfg

	// Best-so-far, in trial order
	running := 0
	if seed != nil {
		running = seed.count
	}
	for _, c := range counts {
		if c < 0 {
			continue
		}
		if c > running {
			running = c
		}
		r.History = append(r.History, running)
	}

	b := best.Load()
	if b == nil {
		return nil, errors.Wrapf(ErrNoConsensus, "%d trials ran, %d degenerate", ran.Load(), degenerate.Load())
	}

	e.finalize(r, b, cfg)

	e.logger.Debugw("ransac round",
		"round", r.Rounds,
		"trials", ran.Load(),
		"degenerate", degenerate.Load(),
		"sampleInliers", b.count,
		"inliers", len(r.Inliers),
		"refined", r.Refined,
		"timedOut", r.TimedOut,
		"elapsed", time.Since(start))

	return r, nil
}

// runTrial samples four correspondences, fits them exactly, and counts
// the inliers. It returns nil for a degenerate sample.
func runTrial(src, dst []r2.Point, cfg Config, index int) *trial {
	rng := rand.New(rand.NewSource(cfg.Seed*1000003 + int64(index)))
	sample := sampleIndices(rng, len(src))

	var s, d [4]r2.Point
	for k, i := range sample {
		s[k], d[k] = src[i], dst[i]
	}

	model, err := emath.FitHomography(s[:], d[:])
	if err != nil {
		return nil
	}

	return &trial{
		index:  index,
		count:  countInliers(model, src, dst, cfg.InlierThreshold),
		model:  model,
		sample: sample,
	}
}

// sampleIndices draws four distinct indices in [0,n), uniformly.
func sampleIndices(rng *rand.Rand, n int) [4]int {
	var out [4]int
	for k:=0; k<4; k++ {
	draw:
		for {
			i := rng.Intn(n)
			for _, prev := range out[:k] {
				if prev == i {
					continue draw
				}
			}
			out[k] = i
			break
		}
	}
	return out
}

func countInliers(h emath.Homography, src, dst []r2.Point, threshold float64) int {
	n := 0
	for i := range src {
		if emath.Dist2(h.Apply(src[i]), dst[i]) < threshold {
			n++
		}
	}
	return n
}

func inliersOf(h emath.Homography, src, dst []r2.Point, threshold float64) []int {
	out := []int{}
	for i := range src {
		if emath.Dist2(h.Apply(src[i]), dst[i]) < threshold {
			out = append(out, i)
		}
	}
	return out
}

// finalize refits the winning model over all of its inliers. The refit
// is only kept if it does at least as well as the sample model did, so
// every reported inlier is within threshold of the reported transform.
func (e *Estimator)finalize(r *Result, best *trial, cfg Config) {
	r.SampleModel = best.model
	r.Sample = best.sample
	r.SampleInlierCount = best.count

	r.Transform = best.model
	r.Inliers = inliersOf(best.model, r.Src, r.Dst, cfg.InlierThreshold)
	r.Refined = false

	if len(r.Inliers) >= MinCorrespondences {
		s := make([]r2.Point, len(r.Inliers))
		d := make([]r2.Point, len(r.Inliers))
		for k, i := range r.Inliers {
			s[k], d[k] = r.Src[i], r.Dst[i]
		}

		if H, err := emath.FitHomography(s, d); err != nil {
			e.logger.Debugw("refit failed, keeping sample model", "error", err)
		} else if refit := inliersOf(H, r.Src, r.Dst, cfg.InlierThreshold); len(refit) >= len(r.Inliers) {
			r.Transform = H
			r.Inliers = refit
			r.Refined = true
		}
	}

	r.Residuals = residualStats(r.Transform, r.Src, r.Dst, r.Inliers)
}
