package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ezoic/churnpulse/pkg/errors"
)

// TargetCandidates are tried in order when no explicit target is given.
var TargetCandidates = []string{"Churn", "churn", "target", "label"}

// InferTarget returns the label column name. An explicit name wins when the frame
// has it; otherwise the first present candidate is used.
func InferTarget(names []string, explicit string) (string, error) {
	present := make(map[string]struct{}, len(names))
	for _, n := range names {
		present[n] = struct{}{}
	}
	if explicit != "" {
		if _, ok := present[explicit]; ok {
			return explicit, nil
		}
	}
	for _, candidate := range TargetCandidates {
		if _, ok := present[candidate]; ok {
			return candidate, nil
		}
	}
	return "", errors.NewConfigurationError("InferTarget",
		"could not infer target column; pass --target explicitly or ensure a 'Churn' column exists")
}

// Label vocabularies, compared after trimming and lowercasing.
var (
	PositiveTokens = []string{"yes", "y", "true", "1", "churn", "churned", "cancel", "cancelled"}
	NegativeTokens = []string{"no", "n", "false", "0", "stay", "active", "not churn", "not_churn"}
)

// maxReportedLabels caps the unrecognized values listed in the error.
const maxReportedLabels = 20

var labelVocabulary = func() map[string]int {
	m := make(map[string]int, len(PositiveTokens)+len(NegativeTokens))
	for _, t := range PositiveTokens {
		m[t] = 1
	}
	for _, t := range NegativeTokens {
		m[t] = 0
	}
	return m
}()

// NormalizeLabels maps a label column onto {0, 1}.
//
// Boolean columns cast directly, numeric columns map v > 0 to 1 (a missing number
// compares false and maps to 0), string columns go through the token vocabularies.
// Each value is mapped on its own, so the result does not depend on row order.
// Unrecognized strings fail with a DataValidationError listing up to 20 of them,
// sorted; missing string cells are reported as "nan".
func NormalizeLabels(col *Column) ([]int, error) {
	out := make([]int, col.Len())

	switch col.Kind {
	case KindBool, KindNumeric:
		for i := range col.Cells {
			if v, ok := col.Float(i); ok && v > 0 {
				out[i] = 1
			}
		}
		return out, nil
	}

	unknown := make(map[string]struct{})
	for i, cell := range col.Cells {
		token := "nan"
		if !IsMissing(cell) {
			token = strings.ToLower(strings.TrimSpace(cell))
		}
		label, ok := labelVocabulary[token]
		if !ok {
			unknown[token] = struct{}{}
			continue
		}
		out[i] = label
	}

	if len(unknown) > 0 {
		bad := make([]string, 0, len(unknown))
		for v := range unknown {
			bad = append(bad, v)
		}
		sort.Strings(bad)
		if len(bad) > maxReportedLabels {
			bad = bad[:maxReportedLabels]
		}
		return nil, errors.NewDataValidationError("NormalizeLabels",
			fmt.Sprintf("unrecognized target values in label column %q", col.Name), bad...)
	}
	return out, nil
}
