// Package matrix 实现推荐实验所需的稀疏矩阵（CSR, Compressed Sparse Row）。
//
// CSR 构造后不可修改，所有变换都返回新矩阵。
// CSR 实现了 gonum 的 mat.Matrix 接口，三元组装配、转置与乘积交给
// github.com/james-bowman/sparse，本包只负责校验、规整与领域错误。
package matrix

import (
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/reclab/core"
)

// CSR 是压缩行存储的稀疏矩阵。
// 每行的列下标严格递增；显式存储的零值允许存在，可通过 EliminateZeros 去除。
type CSR struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

var _ mat.Matrix = (*CSR)(nil)

// NewCSR 校验并用原始数组创建 CSR，数组所有权转移给 CSR。
func NewCSR(rows, cols int, indptr, indices []int, data []float64) (*CSR, error) {
	if rows < 0 || cols < 0 {
		return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeInvalidInput, "negative shape (%d, %d)", rows, cols)
	}
	if len(indptr) != rows+1 || indptr[0] != 0 {
		return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeShapeMismatch, "indptr length %d for %d rows", len(indptr), rows)
	}
	if len(indices) != len(data) || indptr[rows] != len(indices) {
		return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeShapeMismatch, "nnz mismatch: indptr=%d indices=%d data=%d", indptr[rows], len(indices), len(data))
	}
	for i := 0; i < rows; i++ {
		if indptr[i+1] < indptr[i] {
			return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeInvalidInput, "indptr decreases at row %d", i)
		}
		prev := -1
		for p := indptr[i]; p < indptr[i+1]; p++ {
			j := indices[p]
			if j < 0 || j >= cols {
				return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeOutOfRange, "column %d outside [0, %d) at row %d", j, cols, i)
			}
			if j <= prev {
				return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeInvalidInput, "columns not strictly increasing at row %d", i)
			}
			prev = j
		}
	}
	return &CSR{rows: rows, cols: cols, indptr: indptr, indices: indices, data: data}, nil
}

// FromTriplets 用 (row, col, value) 三元组构造 rows × cols 的矩阵。
// 重复坐标的值累加；任何越界坐标都返回 OUT_OF_RANGE。
func FromTriplets(rows, cols int, r, c []int, v []float64) (*CSR, error) {
	if rows < 0 || cols < 0 {
		return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeInvalidInput, "negative shape (%d, %d)", rows, cols)
	}
	if len(r) != len(c) || len(r) != len(v) {
		return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeShapeMismatch, "triplet lengths differ: rows=%d cols=%d values=%d", len(r), len(c), len(v))
	}
	for k := range r {
		if r[k] < 0 || r[k] >= rows || c[k] < 0 || c[k] >= cols {
			return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeOutOfRange, "coordinate (%d, %d) outside shape (%d, %d)", r[k], c[k], rows, cols)
		}
	}

	return fromCOO(rows, cols, slices.Clone(r), slices.Clone(c), slices.Clone(v)), nil
}

// Dims 实现 mat.Matrix。
func (m *CSR) Dims() (r, c int) { return m.rows, m.cols }

// At 实现 mat.Matrix，越界时与 gonum 一致地 panic。
func (m *CSR) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	cols := m.indices[m.indptr[i]:m.indptr[i+1]]
	if p, ok := slices.BinarySearch(cols, j); ok {
		return m.data[m.indptr[i]+p]
	}
	return 0
}

// T 实现 mat.Matrix，返回隐式转置视图。需要 CSR 形式时使用 Transpose。
func (m *CSR) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// NNZ 返回存储的元素个数。
func (m *CSR) NNZ() int { return len(m.indices) }

// RowNNZ 返回第 i 行存储的元素个数。
func (m *CSR) RowNNZ(i int) int { return m.indptr[i+1] - m.indptr[i] }

// Row 返回第 i 行的列下标与值（只读切片）。
func (m *CSR) Row(i int) (indices []int, values []float64) {
	lo, hi := m.indptr[i], m.indptr[i+1]
	return m.indices[lo:hi], m.data[lo:hi]
}

// DoNonZero 按行优先顺序遍历所有存储的元素。
func (m *CSR) DoNonZero(fn func(i, j int, v float64)) {
	for i := 0; i < m.rows; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			fn(i, m.indices[p], m.data[p])
		}
	}
}

// RowSums 返回每行元素之和。
func (m *CSR) RowSums() []float64 {
	sums := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			sums[i] += m.data[p]
		}
	}
	return sums
}

// Transpose 返回显式转置后的 CSR。
func (m *CSR) Transpose() *CSR {
	r := make([]int, 0, m.NNZ())
	m.DoNonZero(func(i, _ int, _ float64) { r = append(r, i) })
	// 交换行列坐标
	return fromCOO(m.cols, m.rows, slices.Clone(m.indices), r, slices.Clone(m.data))
}

// SelectRows 按给定顺序抽取若干行组成新矩阵。
func (m *CSR) SelectRows(rows []int) (*CSR, error) {
	indptr := make([]int, len(rows)+1)
	nnz := 0
	for k, i := range rows {
		if i < 0 || i >= m.rows {
			return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeOutOfRange, "row %d outside [0, %d)", i, m.rows)
		}
		nnz += m.RowNNZ(i)
		indptr[k+1] = nnz
	}
	indices := make([]int, 0, nnz)
	data := make([]float64, 0, nnz)
	for _, i := range rows {
		lo, hi := m.indptr[i], m.indptr[i+1]
		indices = append(indices, m.indices[lo:hi]...)
		data = append(data, m.data[lo:hi]...)
	}
	return &CSR{rows: len(rows), cols: m.cols, indptr: indptr, indices: indices, data: data}, nil
}

// ScaleRows 返回 diag(w) · m。
func (m *CSR) ScaleRows(w []float64) (*CSR, error) {
	if len(w) != m.rows {
		return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeShapeMismatch, "row weights length %d for %d rows", len(w), m.rows)
	}
	out := m.clone()
	for i := 0; i < m.rows; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			out.data[p] *= w[i]
		}
	}
	return out, nil
}

// ScaleCols 返回 m · diag(w)。
func (m *CSR) ScaleCols(w []float64) (*CSR, error) {
	if len(w) != m.cols {
		return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeShapeMismatch, "column weights length %d for %d columns", len(w), m.cols)
	}
	out := m.clone()
	for p, j := range m.indices {
		out.data[p] *= w[j]
	}
	return out, nil
}

// Pattern 返回相同稀疏结构、所有存储值为 1 的矩阵（支持度矩阵）。
func (m *CSR) Pattern() *CSR {
	out := m.clone()
	for p := range out.data {
		out.data[p] = 1
	}
	return out
}

// Apply 对每个存储值应用 fn，稀疏结构不变。
func (m *CSR) Apply(fn func(i, j int, v float64) float64) *CSR {
	out := m.clone()
	for i := 0; i < m.rows; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			out.data[p] = fn(i, m.indices[p], m.data[p])
		}
	}
	return out
}

// Filter 只保留 keep 返回 true 的元素，其余从稀疏结构中移除。
func (m *CSR) Filter(keep func(i, j int, v float64) bool) *CSR {
	indptr := make([]int, m.rows+1)
	indices := make([]int, 0, len(m.indices))
	data := make([]float64, 0, len(m.data))
	for i := 0; i < m.rows; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			if keep(i, m.indices[p], m.data[p]) {
				indices = append(indices, m.indices[p])
				data = append(data, m.data[p])
			}
		}
		indptr[i+1] = len(indices)
	}
	return &CSR{rows: m.rows, cols: m.cols, indptr: indptr, indices: indices, data: data}
}

// WithoutDiagonal 移除对角线元素。
func (m *CSR) WithoutDiagonal() *CSR {
	return m.Filter(func(i, j int, _ float64) bool { return i != j })
}

// EliminateZeros 移除显式存储的零值。
func (m *CSR) EliminateZeros() *CSR {
	return m.Filter(func(_, _ int, v float64) bool { return v != 0 })
}

// ToDense 转为 gonum 稠密矩阵；任一维度为 0 时返回空矩阵。
func (m *CSR) ToDense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(m.rows, m.cols, nil)
	m.DoNonZero(func(i, j int, v float64) {
		d.Set(i, j, d.At(i, j)+v)
	})
	return d
}

func (m *CSR) clone() *CSR {
	return &CSR{
		rows:    m.rows,
		cols:    m.cols,
		indptr:  m.indptr, // 稀疏结构共享，只复制数值
		indices: m.indices,
		data:    slices.Clone(m.data),
	}
}
