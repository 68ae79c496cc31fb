// Package conv 提供从 YAML/JSON 解析结果（map[string]any）中读取配置值的工具。
//
// YAML 解析得到 int，JSON 解析得到 float64，此处统一处理两者。
package conv

import "math"

// ToFloat64 将数值类型转为 float64，非数值返回 (0, false)。
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// ToInt 将整数值转为 int。浮点数只有在没有小数部分时才被接受。
func ToInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case int32:
		return int(val), true
	case uint64:
		if val > math.MaxInt {
			return 0, false
		}
		return int(val), true
	}
	f, ok := ToFloat64(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, false
	}
	return int(f), true
}

// ConfigGet 从 map[string]any 按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigInt 从 config 取整数。key 不存在时返回 (defaultVal, true)；
// 存在但不是整数（如 "ten"、2.5）时返回 (0, false)，由调用方报告配置错误。
func ConfigInt(m map[string]any, key string, defaultVal int) (int, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return defaultVal, true
	}
	return ToInt(v)
}
