package dataset

import (
	"fmt"
	"slices"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/matrix"
)

// EventFilter 决定一条事件是否参与实验，例如 pkg/dsl 编译的 CEL 表达式。
type EventFilter interface {
	Match(e Event) (bool, error)
}

// PrepareOptions 控制从事件日志到实验数据的整个准备过程。
type PrepareOptions struct {
	Fields  core.FieldNames
	Holdout HoldoutOptions

	// Filter 可选，在切分之前过滤事件
	Filter EventFilter
}

// Split 是一次实验所需的全部数据，构建后只读。
type Split struct {
	// Train 训练交互矩阵（用户 × 物品）
	Train *matrix.CSR
	// Test 测试用户的历史交互（测试用户 × 物品），行顺序与 Description.TestUsers() 一致
	Test *matrix.CSR
	// Holdout 每个测试用户留出物品的编码
	Holdout []int
	// HoldoutFeedback 留出事件的真实反馈值，用于 RMSE
	HoldoutFeedback []float64

	Users *Index
	Items *Index

	// TestUserIDs 测试用户的原始标识，行顺序
	TestUserIDs []string

	Description *core.DataDescription
}

// Prepare 过滤 → 切分 → 以训练集构建编码 → 编码并构建矩阵。
//
// holdout 物品未在训练集中出现的测试用户会被丢弃，保证下游所有下标都在范围内。
func Prepare(log Log, opts PrepareOptions) (*Split, error) {
	if opts.Filter != nil {
		kept := make(Log, 0, len(log))
		for _, e := range log {
			ok, err := opts.Filter.Match(e)
			if err != nil {
				return nil, fmt.Errorf("dataset: filter event: %w", err)
			}
			if ok {
				kept = append(kept, e)
			}
		}
		log = kept
	}

	h, err := SplitHoldout(log, opts.Holdout)
	if err != nil {
		return nil, err
	}
	if len(h.Train) == 0 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "dataset: empty training set")
	}

	users := NewIndex(h.Train.Users())
	items := NewIndex(h.Train.Items())
	train, err := buildMatrix(h.Train, users.Len(), items, users.Encode)
	if err != nil {
		return nil, err
	}

	held := slices.Clone(h.Holdout)
	slices.SortStableFunc(held, func(a, b Event) int { return compareIDs(a.User, b.User) })

	warm := opts.Holdout.WarmStart
	s := &Split{Train: train, Users: users, Items: items}
	rowOf := make(map[string]int, len(held))
	var testUsers []int
	for _, e := range held {
		item := items.Encode(e.Item)
		if item == Unseen {
			continue
		}
		if warm {
			u := users.Encode(e.User)
			if u == Unseen {
				continue
			}
			testUsers = append(testUsers, u)
		} else {
			testUsers = append(testUsers, len(s.TestUserIDs))
		}
		rowOf[e.User] = len(s.TestUserIDs)
		s.TestUserIDs = append(s.TestUserIDs, e.User)
		s.Holdout = append(s.Holdout, item)
		s.HoldoutFeedback = append(s.HoldoutFeedback, e.Feedback)
	}
	if len(s.Holdout) == 0 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "dataset: no holdout item is known to the training set")
	}

	if warm {
		s.Test, err = train.SelectRows(testUsers)
	} else {
		s.Test, err = buildMatrix(h.Test, len(s.TestUserIDs), items, func(u string) int {
			if row, ok := rowOf[u]; ok {
				return row
			}
			return Unseen
		})
	}
	if err != nil {
		return nil, err
	}

	s.Description, err = core.NewDataDescription(opts.Fields, users.Len(), items.Len(), testUsers, warm)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// buildMatrix 编码事件并构建交互矩阵，行或列为 Unseen 的事件被跳过。
func buildMatrix(log Log, rows int, items *Index, rowOf func(string) int) (*matrix.CSR, error) {
	r := make([]int, 0, len(log))
	c := make([]int, 0, len(log))
	v := make([]float64, 0, len(log))
	for _, e := range log {
		i, j := rowOf(e.User), items.Encode(e.Item)
		if i == Unseen || j == Unseen {
			continue
		}
		r, c, v = append(r, i), append(c, j), append(v, e.Feedback)
	}
	return matrix.FromTriplets(rows, items.Len(), r, c, v)
}
