package recall

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/matrix"
	"github.com/rushteam/reclab/similarity"
)

// ItemKNN 是基于物品的 K 近邻模型（Item-based Collaborative Filtering, Item-CF）。
//
// 核心思想："被同一批用户喜欢的物品，相互相似"
//
// 算法流程：
//  1. S = Truncate(Cosine(Rᵀ), K)：物品 × 物品相似度，每行最多 K 个邻居
//  2. 对测试用户交互 X 按 Weighting 计算评分：
//     none    X · Sᵀ
//     element (X · Sᵀ) ⊘ (B(X) · Sᵀ)
//     row     X · Sᵀ · diag(w)
//     col     X · diag(w) · Sᵀ
//     其中 w = 1/rowsum(S)，B(X) 为 X 的支持度矩阵
//
// 测试用户只需要历史交互，因此同时支持 warm-start 与强泛化（strong generalization）。
type ItemKNN struct {
	// K 每个物品保留的近邻数
	K int

	// Weighting 邻居权重归一化方式
	Weighting Weighting

	simT    *matrix.CSR // Sᵀ
	weights []float64   // 1/rowsum(S)
}

// NewItemKNN 创建基于物品的 KNN 模型。
func NewItemKNN(k int, w Weighting) (*ItemKNN, error) {
	if err := checkKNN(k, w); err != nil {
		return nil, err
	}
	return &ItemKNN{K: k, Weighting: w}, nil
}

func (m *ItemKNN) Name() string { return "knn.item" }

func (m *ItemKNN) Fit(ctx context.Context, train *matrix.CSR, desc *core.DataDescription) error {
	if err := checkKNN(m.K, m.Weighting); err != nil {
		return err
	}
	if err := checkTrain(train, desc); err != nil {
		return err
	}
	sim, err := similarity.Cosine(train.Transpose())
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	sim, err = similarity.Truncate(sim, m.K)
	if err != nil {
		return err
	}
	m.simT = sim.Transpose()
	m.weights = inverseRowSums(sim)
	return nil
}

func (m *ItemKNN) Score(ctx context.Context, test *matrix.CSR, desc *core.DataDescription) (*core.Scores, error) {
	if m.simT == nil {
		return nil, errNotFitted
	}
	if err := checkTest(test, desc); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		scores *mat.Dense
		err    error
	)
	switch m.Weighting {
	case WeightingNone:
		scores, err = test.MulDense(m.simT)
	case WeightingElementwise:
		var support *mat.Dense
		if support, err = test.Pattern().MulDense(m.simT); err == nil {
			if scores, err = test.MulDense(m.simT); err == nil {
				divideGuarded(scores, support)
			}
		}
	case WeightingRowwise:
		var right *matrix.CSR
		if right, err = m.simT.ScaleCols(m.weights); err == nil {
			scores, err = test.MulDense(right)
		}
	case WeightingColumnwise:
		var left *matrix.CSR
		if left, err = test.ScaleCols(m.weights); err == nil {
			scores, err = left.MulDense(m.simT)
		}
	}
	if err != nil {
		return nil, err
	}
	return core.NewScores(scores), nil
}

// UserKNN 是基于用户的 K 近邻模型（User-based Collaborative Filtering, User-CF）。
//
// 核心思想："兴趣相似的用户，喜欢相似的物品"
//
// 算法流程：
//  1. S = Truncate(Cosine(R), K)：用户 × 用户相似度
//  2. S_t 为测试用户对应的行，按 Weighting 计算评分：
//     none    S_t · R
//     element (S_t · R) ⊘ (S_t · B(R))
//     row     diag(w_t) · S_t · R
//     col     S_t · diag(w) · R
//
// 测试用户必须出现在训练用户空间中，只支持 warm-start 数据。
type UserKNN struct {
	K         int
	Weighting Weighting

	sim     *matrix.CSR
	train   *matrix.CSR
	weights []float64
}

// NewUserKNN 创建基于用户的 KNN 模型。
func NewUserKNN(k int, w Weighting) (*UserKNN, error) {
	if err := checkKNN(k, w); err != nil {
		return nil, err
	}
	return &UserKNN{K: k, Weighting: w}, nil
}

func (m *UserKNN) Name() string { return "knn.user" }

func (m *UserKNN) Fit(ctx context.Context, train *matrix.CSR, desc *core.DataDescription) error {
	if err := checkKNN(m.K, m.Weighting); err != nil {
		return err
	}
	if err := checkTrain(train, desc); err != nil {
		return err
	}
	if !desc.WarmStart() {
		return core.NewDomainError(core.ModuleRecall, core.ErrorCodeNotSupported, "recall: user-based knn requires warm-start test users")
	}
	sim, err := similarity.Cosine(train)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	sim, err = similarity.Truncate(sim, m.K)
	if err != nil {
		return err
	}
	m.sim = sim
	m.train = train
	m.weights = inverseRowSums(sim)
	return nil
}

func (m *UserKNN) Score(ctx context.Context, test *matrix.CSR, desc *core.DataDescription) (*core.Scores, error) {
	if m.sim == nil {
		return nil, errNotFitted
	}
	if !desc.WarmStart() {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeNotSupported, "recall: user-based knn requires warm-start test users")
	}
	if err := checkTest(test, desc); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users := desc.TestUsers()
	st, err := m.sim.SelectRows(users)
	if err != nil {
		return nil, err
	}

	var scores *mat.Dense
	switch m.Weighting {
	case WeightingNone:
		scores, err = st.MulDense(m.train)
	case WeightingElementwise:
		var support *mat.Dense
		if support, err = st.MulDense(m.train.Pattern()); err == nil {
			if scores, err = st.MulDense(m.train); err == nil {
				divideGuarded(scores, support)
			}
		}
	case WeightingRowwise:
		wt := make([]float64, len(users))
		for k, u := range users {
			wt[k] = m.weights[u]
		}
		var left *matrix.CSR
		if left, err = st.ScaleRows(wt); err == nil {
			scores, err = left.MulDense(m.train)
		}
	case WeightingColumnwise:
		var left *matrix.CSR
		if left, err = st.ScaleCols(m.weights); err == nil {
			scores, err = left.MulDense(m.train)
		}
	}
	if err != nil {
		return nil, err
	}
	return core.NewScores(scores), nil
}

func checkKNN(k int, w Weighting) error {
	if k <= 0 {
		return core.Errorf(core.ModuleRecall, core.ErrorCodeInvalidConfig, "K must be positive, got %d", k)
	}
	if !w.valid() {
		return core.Errorf(core.ModuleRecall, core.ErrorCodeInvalidConfig, "unknown weighting scheme %d", int(w))
	}
	return nil
}
