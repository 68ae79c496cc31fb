package recall

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/matrix"
)

// Weighting 是 KNN 打分时邻居权重的归一化方式（封闭枚举）。
type Weighting int

const (
	// WeightingNone 直接对邻居交互做相似度加权求和
	WeightingNone Weighting = iota
	// WeightingElementwise 每个单元格除以实际贡献邻居的相似度之和
	WeightingElementwise
	// WeightingRowwise 聚合前按相似度行和归一化（右乘 diag(w)）
	WeightingRowwise
	// WeightingColumnwise 在转置乘法之前归一化（中间插入 diag(w)）
	WeightingColumnwise
)

func (w Weighting) String() string {
	switch w {
	case WeightingNone:
		return "none"
	case WeightingElementwise:
		return "element"
	case WeightingRowwise:
		return "row"
	case WeightingColumnwise:
		return "col"
	default:
		return "unknown"
	}
}

func (w Weighting) valid() bool {
	return w >= WeightingNone && w <= WeightingColumnwise
}

// ParseWeighting 将配置中的 weighting_scheme 解析为 Weighting。
//
//   - nil / "none"：WeightingNone
//   - ""：INVALID_CONFIG（显式写了 weighting_scheme 却留空）
//   - 以 "el" 开头（如 "element"）：WeightingElementwise
//   - 以 "row" 开头：WeightingRowwise
//   - 以 "col" 开头：WeightingColumnwise
//
// 其他字符串或非字符串值一律返回 INVALID_CONFIG，不降级为 none。
func ParseWeighting(v any) (Weighting, error) {
	switch x := v.(type) {
	case nil:
		return WeightingNone, nil
	case Weighting:
		if !x.valid() {
			return 0, core.Errorf(core.ModuleRecall, core.ErrorCodeInvalidConfig, "unknown weighting scheme %d", int(x))
		}
		return x, nil
	case string:
		switch {
		case x == "none":
			return WeightingNone, nil
		case strings.HasPrefix(x, "el"):
			return WeightingElementwise, nil
		case strings.HasPrefix(x, "row"):
			return WeightingRowwise, nil
		case strings.HasPrefix(x, "col"):
			return WeightingColumnwise, nil
		}
		return 0, core.Errorf(core.ModuleRecall, core.ErrorCodeInvalidConfig, "unknown weighting scheme %q", x)
	default:
		return 0, core.Errorf(core.ModuleRecall, core.ErrorCodeInvalidConfig, "weighting scheme must be a string, got %T", v)
	}
}

// inverseRowSums 返回 1/rowsum(s)，行和为 0 时权重为 0。
func inverseRowSums(s *matrix.CSR) []float64 {
	w := s.RowSums()
	for i, v := range w {
		if v != 0 {
			w[i] = 1 / v
		} else {
			w[i] = 0
		}
	}
	return w
}

// divideGuarded 原地计算 num ⊘ den，den 为 0 的单元格置 0。
func divideGuarded(num, den *mat.Dense) {
	num.Apply(func(i, j int, v float64) float64 {
		d := den.At(i, j)
		if d == 0 {
			return 0
		}
		return v / d
	}, num)
}
