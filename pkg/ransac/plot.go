package ransac

import(
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotHistory charts the best inlier count against trial number, which
// shows whether more trials are likely to help.
func PlotHistory(r *Result, filename string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("RANSAC: %d of %d correspondences", r.InlierCount(), len(r.Src))
	p.X.Label.Text = "trial"
	p.Y.Label.Text = "best inlier count"

	pts := make(plotter.XYs, len(r.History))
	for i, c := range r.History {
		pts[i].X = float64(i)
		pts[i].Y = float64(c)
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)

	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}
