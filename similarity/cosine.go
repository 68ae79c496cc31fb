// Package similarity 计算稀疏矩阵行之间的余弦相似度，并做近邻截断。
//
// 基于物品的模型对 Rᵀ 调用 Cosine（物品 × 物品），
// 基于用户的模型对 R 调用 Cosine（用户 × 用户）。
package similarity

import (
	"math"
	"slices"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/matrix"
	"github.com/rushteam/reclab/pkg/topk"
)

// Cosine 返回 m 各行两两之间的余弦相似度矩阵（n × n）。
//
// 零范数行的逆范数取 0，因此全零行与任何行的相似度都是 0。
// 对角线强制为 0，显式零值从结构中移除，数值截断到 [-1, 1]。
func Cosine(m *matrix.CSR) (*matrix.CSR, error) {
	n, _ := m.Dims()
	inv := make([]float64, n)
	for i := 0; i < n; i++ {
		_, vals := m.Row(i)
		var sq float64
		for _, v := range vals {
			sq += v * v
		}
		if sq > 0 {
			inv[i] = 1 / math.Sqrt(sq)
		}
	}

	normed, err := m.ScaleRows(inv)
	if err != nil {
		return nil, err
	}
	s, err := normed.Mul(normed.Transpose())
	if err != nil {
		return nil, err
	}
	clamped := s.WithoutDiagonal().Apply(func(_, _ int, v float64) float64 {
		return math.Max(-1, math.Min(1, v))
	})
	return clamped.EliminateZeros(), nil
}

// Truncate 每行只保留最大的 k 个相似度，其余从结构中移除。
// 元素个数不超过 k 的行保持不变；值相同时列下标小的优先保留。
func Truncate(s *matrix.CSR, k int) (*matrix.CSR, error) {
	if k <= 0 {
		return nil, core.Errorf(core.ModuleSimilarity, core.ErrorCodeInvalidConfig, "neighbors must be positive, got %d", k)
	}

	rows, cols := s.Dims()
	indptr := make([]int, rows+1)
	indices := make([]int, 0, min(s.NNZ(), rows*k))
	data := make([]float64, 0, cap(indices))
	for i := 0; i < rows; i++ {
		idx, vals := s.Row(i)
		if len(idx) <= k {
			indices = append(indices, idx...)
			data = append(data, vals...)
			indptr[i+1] = len(indices)
			continue
		}
		keep := topk.Largest(vals, k)
		// 恢复列顺序，保持 CSR 每行列下标递增
		slices.Sort(keep)
		for _, p := range keep {
			indices = append(indices, idx[p])
			data = append(data, vals[p])
		}
		indptr[i+1] = len(indices)
	}
	return matrix.NewCSR(rows, cols, indptr, indices, data)
}
