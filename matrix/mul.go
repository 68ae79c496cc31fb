package matrix

import (
	lib "github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/reclab/core"
)

// Mul 返回稀疏乘积 m · b。
// 结果可能包含因正负抵消产生的显式零值。
func (m *CSR) Mul(b *CSR) (*CSR, error) {
	if m.cols != b.rows {
		return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeShapeMismatch, "cannot multiply (%d, %d) by (%d, %d)", m.rows, m.cols, b.rows, b.cols)
	}
	if m.NNZ() == 0 || b.NNZ() == 0 {
		return empty(m.rows, b.cols), nil
	}
	var prod lib.CSR
	prod.Mul(m.view(), b.view())
	return assemble(m.rows, b.cols, &prod), nil
}

// MulDense 返回稠密乘积 m · b，用于生成评分矩阵。
func (m *CSR) MulDense(b *CSR) (*mat.Dense, error) {
	if m.cols != b.rows {
		return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeShapeMismatch, "cannot multiply (%d, %d) by (%d, %d)", m.rows, m.cols, b.rows, b.cols)
	}
	if m.rows == 0 || b.cols == 0 {
		return nil, core.Errorf(core.ModuleMatrix, core.ErrorCodeInvalidInput, "empty product shape (%d, %d)", m.rows, b.cols)
	}
	prod, err := m.Mul(b)
	if err != nil {
		return nil, err
	}
	return prod.ToDense(), nil
}
