package recall

import (
	"context"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/matrix"
)

// Model 表示一个可离线评估的打分模型（KNN / 热门 / 随机 ...）。
//
// 使用方式：
//  1. Fit：在训练交互矩阵（用户 × 物品）上拟合
//  2. Score：为测试用户生成稠密评分矩阵，行顺序与 desc.TestUsers() 一致
//
// Score 返回的 core.Scores 由调用方持有，并在过滤阶段被接管。
type Model interface {
	Name() string
	Fit(ctx context.Context, train *matrix.CSR, desc *core.DataDescription) error
	Score(ctx context.Context, test *matrix.CSR, desc *core.DataDescription) (*core.Scores, error)
}

var errNotFitted = core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "recall: model is not fitted")

// checkTrain 校验训练矩阵与数据描述的维度一致。
func checkTrain(train *matrix.CSR, desc *core.DataDescription) error {
	if train == nil || desc == nil {
		return core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "recall: nil training data")
	}
	if r, c := train.Dims(); r != desc.NUsers() || c != desc.NItems() {
		return core.Errorf(core.ModuleRecall, core.ErrorCodeShapeMismatch, "training matrix (%d, %d) does not match description (%d, %d)", r, c, desc.NUsers(), desc.NItems())
	}
	return nil
}

// checkTest 校验测试矩阵：行 = 测试用户，列 = 物品。
func checkTest(test *matrix.CSR, desc *core.DataDescription) error {
	if test == nil || desc == nil {
		return core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "recall: nil test data")
	}
	if r, c := test.Dims(); r != desc.NTestUsers() || c != desc.NItems() {
		return core.Errorf(core.ModuleRecall, core.ErrorCodeShapeMismatch, "test matrix (%d, %d) does not match description (%d, %d)", r, c, desc.NTestUsers(), desc.NItems())
	}
	if desc.NTestUsers() == 0 || desc.NItems() == 0 {
		return core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "recall: no test users or items to score")
	}
	return nil
}
