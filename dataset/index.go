// Package dataset 负责事件日志的读取、holdout 切分、用户/物品重编码，
// 以及训练/测试交互矩阵的构建。
package dataset

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/rushteam/reclab/core"
)

// Unseen 是构建 Index 时未出现过的原始值的编码，调用方需要在使用前过滤。
const Unseen = -1

// Index 是原始标识符与连续整数编码之间的双向映射。
//
// 类别为输入的去重排序结果，编码即位置；相同输入总是得到相同的编码。
// 排序时两个值都能解析为整数则按数值比较，否则按字典序（整数排在前面）。
type Index struct {
	values []string
	codes  map[string]int
}

// NewIndex 从一列原始值构建映射。
func NewIndex(column []string) *Index {
	values := slices.Clone(column)
	slices.SortFunc(values, compareIDs)
	values = slices.Compact(values)

	codes := make(map[string]int, len(values))
	for i, v := range values {
		codes[v] = i
	}
	return &Index{values: values, codes: codes}
}

// Len 返回类别数量。
func (x *Index) Len() int { return len(x.values) }

// Encode 返回 v 的编码，未见过的值返回 Unseen。
func (x *Index) Encode(v string) int {
	if code, ok := x.codes[v]; ok {
		return code
	}
	return Unseen
}

// EncodeAll 按顺序编码一列值。
func (x *Index) EncodeAll(column []string) []int {
	out := make([]int, len(column))
	for i, v := range column {
		out[i] = x.Encode(v)
	}
	return out
}

// Decode 返回编码对应的原始值。
func (x *Index) Decode(code int) (string, error) {
	if code < 0 || code >= len(x.values) {
		return "", core.Errorf(core.ModuleDataset, core.ErrorCodeOutOfRange, "code %d outside [0, %d)", code, len(x.values))
	}
	return x.values[code], nil
}

// Values 返回按编码顺序排列的原始值副本。
func (x *Index) Values() []string { return slices.Clone(x.values) }

func compareIDs(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		if c := cmp.Compare(ai, bi); c != 0 {
			return c
		}
		return cmp.Compare(a, b) // "01" 与 "1"
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
