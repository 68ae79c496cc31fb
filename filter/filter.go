// Package filter 实现评分矩阵的后置过滤（已见物品降权、黑名单）。
//
// 过滤不删除列，而是把命中的单元格压到全局最小分之下，
// 保证这些物品不会出现在 Top-N 中。
package filter

import (
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/reclab/core"
)

// Filter 标记评分矩阵中需要降权的 (行, 物品) 单元格。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// Mark 对每个需要降权的单元格调用 mark；rows × cols 为评分矩阵维度。
	// 维度不匹配时在调用 mark 之前返回错误。
	Mark(rows, cols int, mark func(i, j int)) error
}

// Downvote 接管 s，将所有过滤器标记的单元格置为 min(s) - 1。
//
// 最小值在任何修改之前计算一次。任一过滤器出错时 s 不会被接管。
// 之后再使用 s 会得到 core.ErrScoresConsumed。
func Downvote(s *core.Scores, filters ...Filter) (*core.Candidates, error) {
	if s == nil {
		return nil, core.NewDomainError(core.ModuleFilter, core.ErrorCodeInvalidInput, "filter: nil scores")
	}
	if s.Consumed() {
		return nil, core.ErrScoresConsumed
	}

	rows, cols := s.Dims()
	type cell struct{ i, j int }
	var marked []cell
	for _, f := range filters {
		if err := f.Mark(rows, cols, func(i, j int) {
			marked = append(marked, cell{i, j})
		}); err != nil {
			return nil, err
		}
	}

	m, err := s.Take()
	if err != nil {
		return nil, err
	}
	if len(marked) > 0 {
		sentinel := mat.Min(m) - 1
		for _, c := range marked {
			m.Set(c.i, c.j, sentinel)
		}
	}
	return core.NewCandidates(m), nil
}
