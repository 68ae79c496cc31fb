package core

import "gonum.org/v1/gonum/mat"

// ErrScoresConsumed 表示评分矩阵已经被后置过滤接管，不能再次使用。
var ErrScoresConsumed = NewDomainError(ModuleFilter, ErrorCodeInvalidInput, "scores: matrix already consumed by post-filter")

// Scores 是一次打分调用产生的稠密评分矩阵（行 = 测试用户，列 = 物品）。
//
// 所有权语义：
//   - 打分模型创建 Scores 并交给调用方
//   - 调用方在过滤前可以只读访问（View / At），例如计算 RMSE
//   - filter.DownvoteSeen 通过 Take 接管底层矩阵，之后 Scores 失效
type Scores struct {
	m        *mat.Dense
	consumed bool
}

// NewScores 包装一个稠密矩阵，调用方不应再持有 m 的引用。
func NewScores(m *mat.Dense) *Scores {
	return &Scores{m: m}
}

// Dims 返回矩阵维度；已被接管时返回 (0, 0)。
func (s *Scores) Dims() (r, c int) {
	if s.consumed {
		return 0, 0
	}
	return s.m.Dims()
}

// Consumed 表示矩阵是否已被接管。
func (s *Scores) Consumed() bool { return s.consumed }

// View 返回只读视图。
func (s *Scores) View() (mat.Matrix, error) {
	if s.consumed {
		return nil, ErrScoresConsumed
	}
	return s.m, nil
}

// At 读取单个评分。
func (s *Scores) At(i, j int) (float64, error) {
	if s.consumed {
		return 0, ErrScoresConsumed
	}
	r, c := s.m.Dims()
	if i < 0 || i >= r || j < 0 || j >= c {
		return 0, Errorf(ModuleRecall, ErrorCodeOutOfRange, "score index (%d, %d) outside (%d, %d)", i, j, r, c)
	}
	return s.m.At(i, j), nil
}

// Take 转移底层矩阵的所有权，只能成功调用一次。
func (s *Scores) Take() (*mat.Dense, error) {
	if s.consumed {
		return nil, ErrScoresConsumed
	}
	m := s.m
	s.m = nil
	s.consumed = true
	return m, nil
}

// Candidates 是已完成已见物品降权的评分矩阵，是 Top-N 选择的唯一输入。
type Candidates struct {
	m *mat.Dense
}

// NewCandidates 由后置过滤器调用。
func NewCandidates(m *mat.Dense) *Candidates {
	return &Candidates{m: m}
}

func (c *Candidates) Dims() (r, cols int) { return c.m.Dims() }

// RawRow 返回第 i 行的底层切片，只读。
func (c *Candidates) RawRow(i int) []float64 { return c.m.RawRowView(i) }

// At 读取单个评分。
func (c *Candidates) At(i, j int) float64 { return c.m.At(i, j) }

// Recommendations 是 n_test_users × N 的推荐物品下标矩阵，每行按分数降序。
type Recommendations struct {
	rows int
	n    int
	data []int
}

// NewRecommendations 以行优先的 data 创建推荐矩阵。
func NewRecommendations(rows, n int, data []int) (*Recommendations, error) {
	if rows < 0 || n < 0 || len(data) != rows*n {
		return nil, Errorf(ModuleRerank, ErrorCodeShapeMismatch, "recommendations: %d values for shape (%d, %d)", len(data), rows, n)
	}
	return &Recommendations{rows: rows, n: n, data: data}, nil
}

func (r *Recommendations) Dims() (rows, n int) { return r.rows, r.n }

// At 返回第 i 个用户排名第 j（从 0 开始）的物品。
func (r *Recommendations) At(i, j int) int { return r.data[i*r.n+j] }

// Row 返回第 i 行的副本。
func (r *Recommendations) Row(i int) []int {
	out := make([]int, r.n)
	copy(out, r.data[i*r.n:(i+1)*r.n])
	return out
}

// Truncate 返回只保留前 n 列的新矩阵；n 大于列数时返回完整副本。
func (r *Recommendations) Truncate(n int) *Recommendations {
	if n < 0 {
		n = 0
	}
	if n > r.n {
		n = r.n
	}
	data := make([]int, 0, r.rows*n)
	for i := 0; i < r.rows; i++ {
		data = append(data, r.data[i*r.n:i*r.n+n]...)
	}
	return &Recommendations{rows: r.rows, n: n, data: data}
}
