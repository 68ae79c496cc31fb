package dataset

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/rushteam/reclab/core"
)

// Strategy 是 holdout 事件的选取方式。
type Strategy string

const (
	// LeaveLastOut 每个测试用户留出时间戳最大的一条事件
	LeaveLastOut Strategy = "leave-last-out"
	// LeaveOneOut 每个测试用户随机留出一条事件
	LeaveOneOut Strategy = "leave-one-out"
)

// HoldoutOptions 控制 holdout 切分。
type HoldoutOptions struct {
	Strategy Strategy

	// WarmStart 为 true 时测试用户的其余事件保留在训练集中；
	// 为 false 时测试用户整体从训练集中移除（strong generalization）。
	WarmStart bool

	// TestFraction 是被选为测试用户的比例，取值 (0, 1]；0 表示全部候选用户。
	// 候选用户是至少有两条事件的用户。
	TestFraction float64

	// Seed 控制测试用户抽样与 leave-one-out 的随机性
	Seed uint64
}

// Holdout 是切分结果，三部分都保持原日志中的相对顺序。
type Holdout struct {
	// Train 训练事件
	Train Log
	// Test 测试用户除 holdout 之外的历史事件
	Test Log
	// Holdout 每个测试用户一条留出事件
	Holdout Log
}

// SplitHoldout 按用户切分事件日志。
func SplitHoldout(log Log, opts HoldoutOptions) (*Holdout, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = LeaveLastOut
	}
	if strategy != LeaveLastOut && strategy != LeaveOneOut {
		return nil, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidConfig, "unknown holdout strategy %q", strategy)
	}
	if opts.TestFraction < 0 || opts.TestFraction > 1 || math.IsNaN(opts.TestFraction) {
		return nil, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidConfig, "test fraction %v outside [0, 1]", opts.TestFraction)
	}

	byUser := make(map[string][]int)
	for i, e := range log {
		byUser[e.User] = append(byUser[e.User], i)
	}
	candidates := make([]string, 0, len(byUser))
	for u, events := range byUser {
		if len(events) >= 2 {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "dataset: no user has enough events for a holdout")
	}
	slices.SortFunc(candidates, compareIDs)

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))
	testUsers := candidates
	if f := opts.TestFraction; f > 0 && f < 1 {
		n := max(1, int(math.Round(f*float64(len(candidates)))))
		perm := rng.Perm(len(candidates))[:n]
		slices.Sort(perm)
		testUsers = make([]string, n)
		for k, p := range perm {
			testUsers[k] = candidates[p]
		}
	}
	if !opts.WarmStart && len(testUsers) == len(byUser) {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidConfig, "dataset: strong generalization needs a test fraction that leaves training users")
	}

	role := make([]byte, len(log)) // 0 训练，1 测试历史，2 holdout
	for _, u := range testUsers {
		events := byUser[u]
		var pick int
		switch strategy {
		case LeaveLastOut:
			// 时间戳相同取日志中靠后的一条
			pick = events[0]
			for _, i := range events[1:] {
				if log[i].Timestamp >= log[pick].Timestamp {
					pick = i
				}
			}
		case LeaveOneOut:
			pick = events[rng.IntN(len(events))]
		}
		for _, i := range events {
			role[i] = 1
		}
		role[pick] = 2
	}

	out := &Holdout{}
	for i, e := range log {
		switch role[i] {
		case 0:
			out.Train = append(out.Train, e)
		case 1:
			out.Test = append(out.Test, e)
			if opts.WarmStart {
				out.Train = append(out.Train, e)
			}
		case 2:
			out.Holdout = append(out.Holdout, e)
		}
	}
	return out, nil
}
