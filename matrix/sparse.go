package matrix

import (
	"cmp"
	"slices"

	lib "github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// empty 返回 rows × cols 的全零矩阵。
func empty(rows, cols int) *CSR {
	return &CSR{rows: rows, cols: cols, indptr: make([]int, rows+1)}
}

// view 返回与 m 共享存储的 sparse.CSR，调用方不得修改。
func (m *CSR) view() *lib.CSR {
	return lib.NewCSR(m.rows, m.cols, m.indptr, m.indices, m.data)
}

// fromCOO 经 sparse.COO 装配三元组。坐标须已校验，切片会被接管。
func fromCOO(rows, cols int, r, c []int, v []float64) *CSR {
	if rows == 0 || cols == 0 || len(r) == 0 {
		return empty(rows, cols)
	}
	return assemble(rows, cols, lib.NewCOO(rows, cols, r, c, v).ToCSR())
}

// assemble 把 src 的存储元素规整为本包的 CSR：每行列下标严格递增，
// 重复坐标的值累加，显式零值保留。
func assemble(rows, cols int, src mat.NonZeroDoer) *CSR {
	type cell struct {
		j int
		v float64
	}
	byRow := make([][]cell, rows)
	src.DoNonZero(func(i, j int, v float64) {
		byRow[i] = append(byRow[i], cell{j: j, v: v})
	})

	out := empty(rows, cols)
	for i, row := range byRow {
		slices.SortStableFunc(row, func(a, b cell) int { return cmp.Compare(a.j, b.j) })
		for _, e := range row {
			if n := len(out.indices); n > out.indptr[i] && out.indices[n-1] == e.j {
				out.data[n-1] += e.v
				continue
			}
			out.indices = append(out.indices, e.j)
			out.data = append(out.data, e.v)
		}
		out.indptr[i+1] = len(out.indices)
	}
	return out
}
