package report

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
	"github.com/ezoic/churnpulse/pkg/fsutil"
)

// Figure file names inside the figures directory.
const (
	ROCFigure             = "roc_curve.png"
	ConfusionFigure       = "confusion_matrix.png"
	PredictedActualFigure = "predicted_vs_actual.png"
)

const (
	figureWidth  = 6 * vg.Inch
	figureHeight = 5 * vg.Inch
)

// save renders p as PNG into path without leaving a partial file behind.
func save(p *plot.Plot, path string) error {
	wt, err := p.WriterTo(figureWidth, figureHeight, "png")
	if err != nil {
		return cpErrors.Wrap(err, "failed to render figure")
	}
	return fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}

// PlotROC draws the ROC curve with the chance diagonal.
func PlotROC(fpr, tpr []float64, auc float64, path string) error {
	if len(fpr) != len(tpr) || len(fpr) < 2 {
		return cpErrors.NewValueError("PlotROC", "need at least two matching fpr/tpr points")
	}

	p := plot.New()
	p.Title.Text = "ROC curve"
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, len(fpr))
	for i := range fpr {
		pts[i].X = fpr[i]
		pts[i].Y = tpr[i]
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	curve.Width = vg.Points(2)
	curve.Color = plotter.DefaultLineStyle.Color

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return err
	}
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(curve, chance)
	p.Legend.Add(fmt.Sprintf("model (AUC = %.3f)", auc), curve)
	p.Legend.Add("chance", chance)
	p.Legend.Top = false
	p.Legend.Left = false

	return save(p, path)
}

// confusionGrid lays the matrix out for a heat map: column = predicted class,
// row 0 at the bottom = actual class 1.
type confusionGrid [2][2]int

func (g confusionGrid) Dims() (c, r int)   { return 2, 2 }
func (g confusionGrid) Z(c, r int) float64 { return float64(g[1-r][c]) }
func (g confusionGrid) X(c int) float64    { return float64(c) }
func (g confusionGrid) Y(r int) float64    { return float64(r) }

// PlotConfusion draws the confusion matrix [[tn, fp], [fn, tp]] as an annotated
// heat map.
func PlotConfusion(cm [2][2]int, path string) error {
	grid := confusionGrid(cm)
	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}

	p := plot.New()
	p.Title.Text = "Confusion matrix"
	p.X.Label.Text = "Predicted label"
	p.Y.Label.Text = "True label"
	p.Add(hm)
	p.NominalX("0", "1")
	p.NominalY("1", "0")

	counts := plotter.XYLabels{}
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			counts.XYs = append(counts.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			counts.Labels = append(counts.Labels, fmt.Sprint(grid.Z(c, r)))
		}
	}
	labels, err := plotter.NewLabels(counts)
	if err != nil {
		return err
	}
	p.Add(labels)

	return save(p, path)
}

// PlotPredictedVsActual scatters regression predictions against the truth with
// the identity line for reference.
func PlotPredictedVsActual(actual, predicted []float64, path string) error {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return cpErrors.NewValueError("PlotPredictedVsActual", "need matching non-empty actual/predicted values")
	}

	p := plot.New()
	p.Title.Text = "Predicted vs actual"
	p.X.Label.Text = "Actual"
	p.Y.Label.Text = "Predicted"

	pts := make(plotter.XYs, len(actual))
	lo, hi := actual[0], actual[0]
	for i := range actual {
		pts[i].X = actual[i]
		pts[i].Y = predicted[i]
		lo = min(lo, actual[i], predicted[i])
		hi = max(hi, actual[i], predicted[i])
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.Color = plotter.DefaultLineStyle.Color

	identity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return err
	}
	identity.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(scatter, identity)
	p.Legend.Add("holdout", scatter)
	p.Legend.Add("y = x", identity)
	p.Legend.Top = true
	p.Legend.Left = true

	return save(p, path)
}
