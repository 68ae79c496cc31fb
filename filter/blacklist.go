package filter

import (
	"github.com/rushteam/reclab/core"
)

// BlacklistFilter 是黑名单过滤器，对所有测试用户降权给定的物品。
type BlacklistFilter struct {
	// Items 是物品编码（编码空间与评分矩阵的列一致）
	Items []int
}

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(items []int) *BlacklistFilter {
	return &BlacklistFilter{Items: items}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) Mark(rows, cols int, mark func(i, j int)) error {
	for _, j := range f.Items {
		if j < 0 || j >= cols {
			return core.Errorf(core.ModuleFilter, core.ErrorCodeOutOfRange, "blacklisted item %d outside [0, %d)", j, cols)
		}
	}
	for i := 0; i < rows; i++ {
		for _, j := range f.Items {
			mark(i, j)
		}
	}
	return nil
}
