package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/churnpulse/core/model"
	"github.com/ezoic/churnpulse/dataset"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

// Table is the read interface of a feature table: a training frame or a batch of
// prediction records. ok is false when the row has no such column.
type Table interface {
	NumRows() int
	Value(row int, column string) (string, bool)
}

// ColumnTransformer applies the numeric chain (median imputation, standard
// scaling) to numeric-role columns and the categorical chain (most-frequent
// imputation, one-hot encoding with unknown categories ignored) to
// categorical-role columns. The output is the numeric block followed by the
// categorical block.
//
// Columns absent from a Table, and cells equal to a missing token, are treated
// as missing. Numeric cells that do not parse are missing too.
type ColumnTransformer struct {
	model.BaseEstimator

	Roles              []dataset.ColumnRole
	NumericColumns     []string
	CategoricalColumns []string

	NumericImputer     *SimpleImputer
	Scaler             *StandardScaler
	CategoricalImputer *CategoricalImputer
	Encoder            *OneHotEncoder

	NOutputs int
}

// NewColumnTransformer builds an unfitted transformer for the given roles.
func NewColumnTransformer(roles []dataset.ColumnRole) *ColumnTransformer {
	return &ColumnTransformer{
		Roles:              append([]dataset.ColumnRole(nil), roles...),
		NumericColumns:     dataset.ColumnsWithRole(roles, dataset.RoleNumeric),
		CategoricalColumns: dataset.ColumnsWithRole(roles, dataset.RoleCategorical),
		NumericImputer:     NewSimpleImputer(StrategyMedian),
		Scaler:             NewStandardScalerDefault(),
		CategoricalImputer: NewCategoricalImputer(""),
		Encoder:            NewOneHotEncoder(),
	}
}

// Fit learns imputation values, scaling statistics and categories from t.
func (ct *ColumnTransformer) Fit(t Table) (err error) {
	_, err = ct.fitTransform(t)
	return err
}

// FitTransform fits on t and returns its encoded matrix.
func (ct *ColumnTransformer) FitTransform(t Table) (*mat.Dense, error) {
	return ct.fitTransform(t)
}

func (ct *ColumnTransformer) fitTransform(t Table) (_ *mat.Dense, err error) {
	defer cpErrors.Recover(&err, "ColumnTransformer.Fit")
	if t.NumRows() == 0 {
		return nil, cpErrors.NewModelError("ColumnTransformer.Fit", "empty data", cpErrors.ErrEmptyData)
	}
	if len(ct.NumericColumns)+len(ct.CategoricalColumns) == 0 {
		return nil, cpErrors.NewValueError("ColumnTransformer.Fit", "no feature columns")
	}

	var numeric, categorical mat.Matrix
	if len(ct.NumericColumns) > 0 {
		imputed, err := ct.NumericImputer.FitTransform(ct.numericBlock(t))
		if err != nil {
			return nil, err
		}
		if numeric, err = ct.Scaler.FitTransform(imputed); err != nil {
			return nil, err
		}
	}
	if len(ct.CategoricalColumns) > 0 {
		imputed, err := ct.CategoricalImputer.FitTransform(ct.categoricalBlock(t))
		if err != nil {
			return nil, err
		}
		if categorical, err = ct.Encoder.FitTransform(imputed); err != nil {
			return nil, err
		}
	}

	ct.NOutputs = len(ct.NumericColumns)
	if len(ct.CategoricalColumns) > 0 {
		ct.NOutputs += ct.Encoder.NOutputs
	}
	ct.SetFitted()
	return ct.concat(t.NumRows(), numeric, categorical), nil
}

// Transform encodes t with the fitted parameters. Unknown categories encode as
// an all-zero block.
func (ct *ColumnTransformer) Transform(t Table) (_ *mat.Dense, err error) {
	defer cpErrors.Recover(&err, "ColumnTransformer.Transform")
	if !ct.IsFitted() {
		return nil, cpErrors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	if t.NumRows() == 0 {
		return nil, cpErrors.NewModelError("ColumnTransformer.Transform", "empty data", cpErrors.ErrEmptyData)
	}

	var numeric, categorical mat.Matrix
	if len(ct.NumericColumns) > 0 {
		imputed, err := ct.NumericImputer.Transform(ct.numericBlock(t))
		if err != nil {
			return nil, err
		}
		if numeric, err = ct.Scaler.Transform(imputed); err != nil {
			return nil, err
		}
	}
	if len(ct.CategoricalColumns) > 0 {
		imputed, err := ct.CategoricalImputer.Transform(ct.categoricalBlock(t))
		if err != nil {
			return nil, err
		}
		if categorical, err = ct.Encoder.Transform(imputed); err != nil {
			return nil, err
		}
	}
	return ct.concat(t.NumRows(), numeric, categorical), nil
}

// GetFeatureNamesOut returns the names of the encoded columns.
func (ct *ColumnTransformer) GetFeatureNamesOut() []string {
	if !ct.IsFitted() {
		return nil
	}
	names := append([]string(nil), ct.NumericColumns...)
	if len(ct.CategoricalColumns) > 0 {
		names = append(names, ct.Encoder.GetFeatureNamesOut(ct.CategoricalColumns)...)
	}
	return names
}

func (ct *ColumnTransformer) numericBlock(t Table) *mat.Dense {
	n := t.NumRows()
	block := mat.NewDense(n, len(ct.NumericColumns), nil)
	for i := 0; i < n; i++ {
		for j, name := range ct.NumericColumns {
			cell, _ := t.Value(i, name)
			v, _ := dataset.ParseNumber(cell)
			block.Set(i, j, v)
		}
	}
	return block
}

func (ct *ColumnTransformer) categoricalBlock(t Table) [][]string {
	n := t.NumRows()
	block := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(ct.CategoricalColumns))
		for j, name := range ct.CategoricalColumns {
			cell, ok := t.Value(i, name)
			if !ok || dataset.IsMissing(cell) {
				cell = ct.CategoricalImputer.MissingValue
			}
			row[j] = cell
		}
		block[i] = row
	}
	return block
}

func (ct *ColumnTransformer) concat(n int, numeric, categorical mat.Matrix) *mat.Dense {
	out := mat.NewDense(n, ct.NOutputs, nil)
	offset := 0
	if numeric != nil {
		_, c := numeric.Dims()
		out.Slice(0, n, 0, c).(*mat.Dense).Copy(numeric)
		offset = c
	}
	if categorical != nil {
		if _, c := categorical.Dims(); c > 0 {
			out.Slice(0, n, offset, offset+c).(*mat.Dense).Copy(categorical)
		}
	}
	return out
}
