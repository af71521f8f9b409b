package preprocessing_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/churnpulse/dataset"
	"github.com/ezoic/churnpulse/preprocessing"
)

const trainCSV = `tenure,MonthlyCharges,Contract,Partner
1,20,Month-to-month,True
3,,Two year,False
5,80,,True
`

func fitTransformer(t *testing.T) (*preprocessing.ColumnTransformer, *dataset.Frame) {
	t.Helper()
	f, err := dataset.ReadCSVFrom(strings.NewReader(trainCSV))
	require.NoError(t, err)

	ct := preprocessing.NewColumnTransformer(dataset.PartitionFeatures(f, ""))
	require.NoError(t, ct.Fit(f))
	return ct, f
}

func TestColumnTransformer_FitTransform(t *testing.T) {
	ct, f := fitTransformer(t)

	assert.Equal(t, []string{"tenure", "MonthlyCharges"}, ct.NumericColumns)
	assert.Equal(t, []string{"Contract", "Partner"}, ct.CategoricalColumns)
	assert.Equal(t, []string{
		"tenure", "MonthlyCharges",
		"Contract_Month-to-month", "Contract_Two year",
		"Partner_False", "Partner_True",
	}, ct.GetFeatureNamesOut())

	X, err := ct.Transform(f)
	require.NoError(t, err)
	r, c := X.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 6, c)

	// MonthlyCharges median is 50, which is also the mean, so the imputed row scales to 0
	assert.InDelta(t, 0.0, X.At(1, 1), epsilon)
	// missing Contract takes the most frequent (tie, smallest) category
	assert.Equal(t, []float64{1, 0}, []float64{X.At(2, 2), X.At(2, 3)})
}

func TestColumnTransformer_Records(t *testing.T) {
	ct, _ := fitTransformer(t)

	X, err := ct.Transform(dataset.Records{
		{"tenure": "3", "MonthlyCharges": "50", "Contract": "One year", "Partner": "True"},
		{"tenure": "3"},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, X.At(0, 0), epsilon)
	// unknown category encodes as an all-zero block
	assert.Equal(t, []float64{0, 0}, []float64{X.At(0, 2), X.At(0, 3)})
	assert.Equal(t, 1.0, X.At(0, 5))
	// absent columns are imputed
	assert.InDelta(t, 0.0, X.At(1, 1), epsilon)
}

func TestColumnTransformer_Unfitted(t *testing.T) {
	ct := preprocessing.NewColumnTransformer([]dataset.ColumnRole{{Name: "x", Role: dataset.RoleNumeric}})
	_, err := ct.Transform(dataset.Records{{"x": "1"}})
	assert.Error(t, err)
	assert.Nil(t, ct.GetFeatureNamesOut())
}
