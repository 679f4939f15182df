package features

import(
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestPlots(t *testing.T) {
	dir := t.TempDir()
	grid := blobScene(80, 60, 10, 1)
	img := grid.ToGray16()

	kpFile := filepath.Join(dir, "kp.png")
	test.That(t, PlotKeypoints(img, PointSet{{10, 10}, {40, 30}}, kpFile), test.ShouldBeNil)
	_, err := os.Stat(kpFile)
	test.That(t, err, test.ShouldBeNil)

	m := &Matches{
		Pairs:   []Match{{Idx1: 0, Idx2: 0}, {Idx1: 1, Idx2: 1}},
		Points1: PointSet{{10, 10}, {40, 30}},
		Points2: PointSet{{15, 13}, {45, 33}},
	}
	matchFile := filepath.Join(dir, "matches.png")
	test.That(t, PlotMatches(img, img, m, []int{1}, matchFile), test.ShouldBeNil)
	_, err = os.Stat(matchFile)
	test.That(t, err, test.ShouldBeNil)
}
