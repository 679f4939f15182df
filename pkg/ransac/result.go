package ransac

import(
	"fmt"
	"math"

	"github.com/codahale/hdrhistogram"
	"github.com/golang/geo/r2"

	"github.com/abworrall/automosaic/pkg/emath"
)

// Result is the state of the search after one or more rounds. It
// carries the correspondences along, so it can be handed back to
// Continue.
type Result struct {
	Transform   emath.Homography // Maps image 1 points onto image 2
	Inliers     []int            // Correspondences within threshold of Transform
	Refined     bool             // Transform is the least squares refit over the best sample's inliers

	SampleModel       emath.Homography // Best model fitted to a minimal sample
	Sample            [4]int
	SampleInlierCount int

	// History[t] is the best inlier count seen after trial t, counting
	// trials in the order they were numbered, over every round.
	History    []int
	Iterations int // Trials that ran
	Degenerate int // Of those, how many had a collinear or singular sample
	Rounds     int
	TimedOut   bool

	Residuals  ResidualStats
	Config     Config // The config of the most recent round

	Src        []r2.Point
	Dst        []r2.Point

	nextTrial  int
}

func (r *Result)InlierCount() int { return len(r.Inliers) }

func (r *Result)String() string {
	str := fmt.Sprintf("ransac[%d/%d inliers, %d trials (%d degenerate), %d rounds",
		len(r.Inliers), len(r.Src), r.Iterations, r.Degenerate, r.Rounds)
	if r.TimedOut {
		str += ", timed out"
	}
	return str + fmt.Sprintf(", residuals %s]", r.Residuals)
}

// ResidualStats summarize the reprojection error (in pixels, not
// squared) of the inliers.
type ResidualStats struct {
	Mean float64
	P50  float64
	P90  float64
	Max  float64
}

func (rs ResidualStats)String() string {
	return fmt.Sprintf("mean %.3f p50 %.3f p90 %.3f max %.3f", rs.Mean, rs.P50, rs.P90, rs.Max)
}

// Residuals are recorded in thousandths of a pixel.
const(
	residualScale = 1000.0
	residualLimit = 1000 * residualScale
)

func residualStats(h emath.Homography, src, dst []r2.Point, inliers []int) ResidualStats {
	if len(inliers) == 0 {
		return ResidualStats{}
	}

	hist := hdrhistogram.New(0, int64(residualLimit), 3)
	for _, i := range inliers {
		d := math.Sqrt(emath.Dist2(h.Apply(src[i]), dst[i])) * residualScale
		if !(d < residualLimit) {
			d = residualLimit
		}
		hist.RecordValue(int64(d + 0.5))
	}

	return ResidualStats{
		Mean: hist.Mean() / residualScale,
		P50:  float64(hist.ValueAtQuantile(50)) / residualScale,
		P90:  float64(hist.ValueAtQuantile(90)) / residualScale,
		Max:  float64(hist.Max()) / residualScale,
	}
}
