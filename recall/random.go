package recall

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/matrix"
)

// Random 是随机基线：每个 (用户, 物品) 的得分服从 [0, 1) 均匀分布。
// 相同 Seed 产生相同的评分矩阵。
type Random struct {
	Seed uint64

	fitted bool
}

func (m *Random) Name() string { return "random" }

func (m *Random) Fit(_ context.Context, train *matrix.CSR, desc *core.DataDescription) error {
	if err := checkTrain(train, desc); err != nil {
		return err
	}
	m.fitted = true
	return nil
}

func (m *Random) Score(_ context.Context, test *matrix.CSR, desc *core.DataDescription) (*core.Scores, error) {
	if !m.fitted {
		return nil, errNotFitted
	}
	if err := checkTest(test, desc); err != nil {
		return nil, err
	}
	dist := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(m.Seed, m.Seed^0x9e3779b97f4a7c15)}
	rows, cols := test.Dims()
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = dist.Rand()
	}
	return core.NewScores(mat.NewDense(rows, cols, data)), nil
}
