package filter

import (
	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/matrix"
)

// SeenFilter 是已见物品过滤器，标记测试用户在训练数据中交互过的物品。
// Seen 的行与评分矩阵的行一一对应（同一组测试用户、同一顺序）。
type SeenFilter struct {
	Seen *matrix.CSR
}

func (f *SeenFilter) Name() string {
	return "filter.seen"
}

func (f *SeenFilter) Mark(rows, cols int, mark func(i, j int)) error {
	if f.Seen == nil {
		return nil
	}
	if r, c := f.Seen.Dims(); r != rows || c != cols {
		return core.Errorf(core.ModuleFilter, core.ErrorCodeShapeMismatch, "seen matrix (%d, %d) does not match scores (%d, %d)", r, c, rows, cols)
	}
	// 显式存储的 0 也视为交互过
	f.Seen.DoNonZero(func(i, j int, _ float64) {
		mark(i, j)
	})
	return nil
}

// DownvoteSeen 接管 s，把每个测试用户已交互物品的分数压到 min(s) - 1。
func DownvoteSeen(s *core.Scores, seen *matrix.CSR) (*core.Candidates, error) {
	if seen == nil {
		return nil, core.NewDomainError(core.ModuleFilter, core.ErrorCodeInvalidInput, "filter: nil seen matrix")
	}
	return Downvote(s, &SeenFilter{Seen: seen})
}
