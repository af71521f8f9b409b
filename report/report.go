// Package report renders the Markdown training report and its figures.
package report

import (
	"fmt"
	"io"
	"text/template"

	"github.com/ezoic/churnpulse/pkg/fsutil"
)

// Figure is an image referenced from the report by a path relative to it.
type Figure struct {
	Title string
	Path  string
}

// Summary is everything the report shows about one training run.
type Summary struct {
	Task   string
	Model  string
	Target string
	RunID  string
	Seed   int64
	NTrain int
	NTest  int

	// Metrics keyed by the names written to metrics.json.
	Metrics map[string]float64

	// Confusion is set for classification runs, as [[tn, fp], [fn, tp]].
	Confusion *[2][2]int
	Threshold float64

	Figures []Figure
}

type metricLine struct {
	Key   string
	Label string
}

var classificationMetrics = []metricLine{
	{"roc_auc", "ROC-AUC"},
	{"precision", "Precision"},
	{"recall", "Recall"},
	{"f1", "F1"},
}

var regressionMetrics = []metricLine{
	{"rmse", "RMSE"},
	{"mae", "MAE"},
	{"r2", "R²"},
}

var funcs = template.FuncMap{
	"metric": func(s Summary, key string) string {
		v, ok := s.Metrics[key]
		if !ok {
			return "n/a"
		}
		return fmt.Sprintf("%.3f", v)
	},
	"matrix": func(cm [2][2]int) string {
		return fmt.Sprintf("[[%d, %d], [%d, %d]]", cm[0][0], cm[0][1], cm[1][0], cm[1][1])
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(funcs).Parse(`# ChurnPulse Report

## Model
- {{.S.Model}}
- Target: ` + "`{{.S.Target}}`" + ` ({{.S.Task}}), {{.S.NTrain}} training rows, {{.S.NTest}} holdout rows, seed {{.S.Seed}}
{{- if .S.RunID}}
- Run: ` + "`{{.S.RunID}}`" + `
{{- end}}

## Metrics (holdout set)
{{- range .Lines}}
- **{{.Label}}:** {{metric $.S .Key}}
{{- end}}
{{- if .Classification}}
{{- with .CM}}

## Confusion matrix (threshold={{printf "%.2f" $.S.Threshold}})
{{matrix .}}

|          | predicted 0 | predicted 1 |
|----------|-------------|-------------|
| actual 0 | {{index . 0 0}} | {{index . 0 1}} |
| actual 1 | {{index . 1 0}} | {{index . 1 1}} |
{{- end}}

## Interpretation (2 lines)
- With a limited retention budget, prefer **higher precision** (raise threshold) to avoid contacting too many non-churners.
- If missing churners is costly, prefer **higher recall** (lower threshold) to catch more at-risk customers.
{{- end}}
{{- if .S.Figures}}

## Figures
{{- range .S.Figures}}
### {{.Title}}
![{{.Title}}]({{.Path}})
{{- end}}
{{- end}}

## Notes & Limitations
{{- if .Classification}}
- Baseline, interpretable model (logistic regression).
{{- else}}
- Baseline ensemble model (random forest); no probability calibration.
{{- end}}
- Results depend on dataset version and preprocessing choices.
- Use for decision support; avoid using as sole decision-maker.
`))

// Render writes the Markdown report for s to w.
func Render(w io.Writer, s Summary) error {
	data := struct {
		S              Summary
		Lines          []metricLine
		Classification bool
		CM             [2][2]int
	}{S: s, Lines: regressionMetrics}
	if s.Confusion != nil {
		data.Lines = classificationMetrics
		data.Classification = true
		data.CM = *s.Confusion
	}
	return reportTemplate.Execute(w, data)
}

// Write renders the report into path, replacing any previous report atomically.
func Write(path string, s Summary) error {
	return fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		return Render(w, s)
	})
}
