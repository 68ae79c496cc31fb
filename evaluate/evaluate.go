// Package evaluate 计算离线推荐指标：命中率（HR）、平均倒数排名（MRR）、
// 覆盖率（Coverage）以及评分预测的 RMSE。
package evaluate

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/reclab/core"
)

// Result 是某个 N 下的一组指标。
type Result struct {
	TopN     int     `json:"topn"`
	HR       float64 `json:"hr"`
	MRR      float64 `json:"mrr"`

	// Coverage 只统计每行前 TopN 列中的不同物品，随 N 变化。
	// 按完整推荐列表（最大 N）统计的覆盖率会更大，两者不可直接比较。
	Coverage float64 `json:"coverage"`
}

// Evaluate 用每个测试用户的一个 holdout 物品评估推荐列表的前 topN 列。
//
//   - HR：holdout 物品出现在前 topN 中的用户比例
//   - MRR：1/名次（从 1 开始）在全部测试用户上的平均，未命中计 0
//   - Coverage：前 topN 中出现过的不同物品数 / nItems
//
// holdout[i] 对应推荐矩阵第 i 行；行数不一致返回 SHAPE_MISMATCH。
func Evaluate(recs *core.Recommendations, holdout []int, nItems, topN int) (Result, error) {
	if recs == nil {
		return Result{}, core.NewDomainError(core.ModuleEvaluate, core.ErrorCodeInvalidInput, "evaluate: nil recommendations")
	}
	rows, n := recs.Dims()
	if rows != len(holdout) {
		return Result{}, core.Errorf(core.ModuleEvaluate, core.ErrorCodeShapeMismatch, "%d recommendation rows for %d holdout items", rows, len(holdout))
	}
	if rows == 0 {
		return Result{}, core.NewDomainError(core.ModuleEvaluate, core.ErrorCodeInvalidInput, "evaluate: no test users")
	}
	if topN <= 0 || topN > n {
		return Result{}, core.Errorf(core.ModuleEvaluate, core.ErrorCodeInvalidInput, "top-n %d outside [1, %d]", topN, n)
	}
	if nItems <= 0 {
		return Result{}, core.Errorf(core.ModuleEvaluate, core.ErrorCodeInvalidInput, "item count must be positive, got %d", nItems)
	}

	var hits, rr float64
	unique := make(map[int]struct{})
	for i := 0; i < rows; i++ {
		for rank := 0; rank < topN; rank++ {
			item := recs.At(i, rank)
			unique[item] = struct{}{}
			if item == holdout[i] {
				hits++
				rr += 1 / float64(rank+1)
			}
		}
	}
	return Result{
		TopN:     topN,
		HR:       hits / float64(rows),
		MRR:      rr / float64(rows),
		Coverage: float64(len(unique)) / float64(nItems),
	}, nil
}

// EvaluateAt 从同一份推荐列表计算多个 N 下的指标，结果顺序与 ns 一致。
func EvaluateAt(recs *core.Recommendations, holdout []int, nItems int, ns []int) ([]Result, error) {
	out := make([]Result, 0, len(ns))
	for _, n := range ns {
		res, err := Evaluate(recs, holdout, nItems, n)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// RMSE 读取过滤之前的评分矩阵在 holdout 位置上的预测值，与真实反馈比较。
func RMSE(s *core.Scores, holdoutItems []int, feedback []float64) (float64, error) {
	if len(holdoutItems) != len(feedback) {
		return 0, core.Errorf(core.ModuleEvaluate, core.ErrorCodeShapeMismatch, "%d holdout items for %d feedback values", len(holdoutItems), len(feedback))
	}
	if len(feedback) == 0 {
		return 0, core.NewDomainError(core.ModuleEvaluate, core.ErrorCodeInvalidInput, "evaluate: empty holdout")
	}
	if rows, _ := s.Dims(); rows != len(holdoutItems) && !s.Consumed() {
		return 0, core.Errorf(core.ModuleEvaluate, core.ErrorCodeShapeMismatch, "%d score rows for %d holdout items", rows, len(holdoutItems))
	}

	predicted := make([]float64, len(holdoutItems))
	for i, item := range holdoutItems {
		v, err := s.At(i, item)
		if err != nil {
			return 0, err
		}
		predicted[i] = v
	}
	return floats.Distance(predicted, feedback, 2) / math.Sqrt(float64(len(feedback))), nil
}
