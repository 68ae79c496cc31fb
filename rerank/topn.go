package rerank

import (
	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/pkg/topk"
)

// TopN 为每个测试用户选出分数最高的 N 个物品下标，按分数降序。
//
// 每行先做无序划分（quickselect）选出 N 个候选，再只对这 N 个排序。
// 分数相同时物品下标小的排在前面，结果可复现。
//
// 使用场景：
//   - 已见物品降权之后生成推荐列表
//   - 一次生成最大 N，再用 Recommendations.Truncate 评估多个 N
//
// n <= 0 或 n 大于物品数时返回 INVALID_INPUT。
func TopN(c *core.Candidates, n int) (*core.Recommendations, error) {
	if c == nil {
		return nil, core.NewDomainError(core.ModuleRerank, core.ErrorCodeInvalidInput, "rerank: nil candidates")
	}
	rows, cols := c.Dims()
	if n <= 0 || n > cols {
		return nil, core.Errorf(core.ModuleRerank, core.ErrorCodeInvalidInput, "top-n %d outside [1, %d]", n, cols)
	}

	data := make([]int, 0, rows*n)
	for i := 0; i < rows; i++ {
		data = append(data, topk.Largest(c.RawRow(i), n)...)
	}
	return core.NewRecommendations(rows, n, data)
}
