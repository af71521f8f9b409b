package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/churnpulse/core/model"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

// Unknown category policies.
const (
	HandleUnknownIgnore = "ignore"
	HandleUnknownError  = "error"
)

// OneHotEncoder encodes categorical string features as 0/1 indicator blocks,
// one block per feature with one column per category seen during Fit.
type OneHotEncoder struct {
	model.BaseEstimator

	// Categories は各特徴量のカテゴリ一覧（ソート済み）
	Categories [][]string

	// CategoryToIdx は各特徴量のカテゴリ→インデックスマップ
	CategoryToIdx []map[string]int

	// NFeatures は入力特徴量数
	NFeatures int

	// NOutputs は出力特徴量数（全カテゴリの合計数）
	NOutputs int

	// HandleUnknown decides what Transform does with a category it has not seen:
	// "ignore" leaves the feature's block all zero, "error" fails.
	HandleUnknown string
}

// NewOneHotEncoder returns an encoder that ignores unknown categories.
//
// 使用例:
//
//	encoder := preprocessing.NewOneHotEncoder()
//	err := encoder.Fit(data)
//	encoded, err := encoder.Transform(data)
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{HandleUnknown: HandleUnknownIgnore}
}

// Fit は訓練データからカテゴリ情報を学習する
//
// パラメータ:
//   - data: 訓練データ (n_samples × n_features の文字列スライス)
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer cpErrors.Recover(&err, "OneHotEncoder.Fit")
	if len(data) == 0 {
		return cpErrors.NewModelError("OneHotEncoder.Fit", "empty data", cpErrors.ErrEmptyData)
	}
	if len(data[0]) == 0 {
		return cpErrors.NewModelError("OneHotEncoder.Fit", "empty features", cpErrors.ErrEmptyData)
	}

	nFeatures := len(data[0])
	for i, row := range data {
		if len(row) != nFeatures {
			return cpErrors.NewDimensionError("OneHotEncoder.Fit", nFeatures, len(row), i)
		}
	}

	e.NFeatures = nFeatures
	e.Categories = make([][]string, nFeatures)
	e.CategoryToIdx = make([]map[string]int, nFeatures)
	e.NOutputs = 0

	for j := 0; j < nFeatures; j++ {
		seen := make(map[string]struct{})
		for _, row := range data {
			seen[row[j]] = struct{}{}
		}

		categories := make([]string, 0, len(seen))
		for category := range seen {
			categories = append(categories, category)
		}
		sort.Strings(categories)

		index := make(map[string]int, len(categories))
		for idx, category := range categories {
			index[category] = idx
		}

		e.Categories[j] = categories
		e.CategoryToIdx[j] = index
		e.NOutputs += len(categories)
	}

	e.SetFitted()
	return nil
}

// Transform は学習済みのカテゴリ情報を使ってデータをone-hot encodingする
//
// 未知カテゴリはHandleUnknownが"ignore"なら全0ブロックになる。
func (e *OneHotEncoder) Transform(data [][]string) (_ mat.Matrix, err error) {
	defer cpErrors.Recover(&err, "OneHotEncoder.Transform")
	if !e.IsFitted() {
		return nil, cpErrors.NewNotFittedError("OneHotEncoder", "Transform")
	}

	if len(data) == 0 {
		return &mat.Dense{}, nil
	}
	if len(data[0]) != e.NFeatures {
		return nil, cpErrors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, len(data[0]), 1)
	}

	result := mat.NewDense(len(data), e.NOutputs, nil)
	for i, row := range data {
		if len(row) != e.NFeatures {
			return nil, cpErrors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, len(row), 1)
		}
		offset := 0
		for j, category := range row {
			if idx, ok := e.CategoryToIdx[j][category]; ok {
				result.Set(i, offset+idx, 1.0)
			} else if e.HandleUnknown == HandleUnknownError {
				return nil, cpErrors.NewValueError("OneHotEncoder.Transform",
					fmt.Sprintf("found unknown category %q in column %d during transform", category, j))
			}
			offset += len(e.Categories[j])
		}
	}

	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (e *OneHotEncoder) FitTransform(data [][]string) (_ mat.Matrix, err error) {
	defer cpErrors.Recover(&err, "OneHotEncoder.FitTransform")
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// GetFeatureNamesOut は変換後の特徴量の名前を返す
//
// 例:
//   - 入力特徴量名が["Contract", "gender"]の場合
//   - 出力: ["Contract_Month-to-month", "Contract_One year", ..., "gender_Female", "gender_Male"]
func (e *OneHotEncoder) GetFeatureNamesOut(inputFeatures []string) []string {
	if !e.IsFitted() {
		return nil
	}

	var out []string
	for i, categories := range e.Categories {
		name := fmt.Sprintf("x%d", i)
		if i < len(inputFeatures) {
			name = inputFeatures[i]
		}
		for _, category := range categories {
			out = append(out, fmt.Sprintf("%s_%s", name, category))
		}
	}
	return out
}
