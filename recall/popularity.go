package recall

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/matrix"
)

// Popularity 是热门基线：物品得分 = 训练集中与之交互过的用户数。
// 所有测试用户得到相同的评分行，已见物品由后置过滤去除。
type Popularity struct {
	counts []float64
}

func (m *Popularity) Name() string { return "popularity" }

func (m *Popularity) Fit(_ context.Context, train *matrix.CSR, desc *core.DataDescription) error {
	if err := checkTrain(train, desc); err != nil {
		return err
	}
	m.counts = train.Pattern().Transpose().RowSums()
	return nil
}

func (m *Popularity) Score(_ context.Context, test *matrix.CSR, desc *core.DataDescription) (*core.Scores, error) {
	if m.counts == nil {
		return nil, errNotFitted
	}
	if err := checkTest(test, desc); err != nil {
		return nil, err
	}
	rows, cols := test.Dims()
	scores := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		scores.SetRow(i, m.counts)
	}
	return core.NewScores(scores), nil
}
