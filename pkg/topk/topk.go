// Package topk 提供基于无序划分（quickselect）的 Top-K 下标选择。
//
// 只对选出的 K 个元素排序，复杂度 O(n + K log K)。
// 值相同时下标小的排在前面，保证结果可复现。
package topk

import "slices"

// Largest 返回 values 中最大的 k 个元素的下标，按值降序。
// k 大于 len(values) 时返回全部下标；k <= 0 时返回 nil。
func Largest(values []float64, k int) []int {
	n := len(values)
	if k <= 0 || n == 0 {
		return nil
	}
	if k > n {
		k = n
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	better := func(a, b int) bool {
		if values[a] != values[b] {
			return values[a] > values[b]
		}
		return a < b
	}

	if k < n {
		selectK(idx, k, better)
	}
	top := slices.Clone(idx[:k])
	slices.SortFunc(top, func(a, b int) int {
		switch {
		case better(a, b):
			return -1
		case better(b, a):
			return 1
		default:
			return 0
		}
	})
	return top
}

// selectK 原地划分 idx，使前 k 个位置恰好是最优的 k 个元素（无序）。
// better 必须是严格全序。
func selectK(idx []int, k int, better func(a, b int) bool) {
	target := k - 1
	lo, hi := 0, len(idx)-1
	for lo < hi {
		p := partition(idx, lo, hi, better)
		switch {
		case p == target:
			return
		case p < target:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

func partition(idx []int, lo, hi int, better func(a, b int) bool) int {
	// 三数取中，枢轴放到 hi
	mid := lo + (hi-lo)/2
	if better(idx[mid], idx[lo]) {
		idx[lo], idx[mid] = idx[mid], idx[lo]
	}
	if better(idx[hi], idx[lo]) {
		idx[lo], idx[hi] = idx[hi], idx[lo]
	}
	if better(idx[hi], idx[mid]) {
		idx[mid], idx[hi] = idx[hi], idx[mid]
	}
	idx[mid], idx[hi] = idx[hi], idx[mid]

	pivot := idx[hi]
	store := lo
	for i := lo; i < hi; i++ {
		if better(idx[i], pivot) {
			idx[i], idx[store] = idx[store], idx[i]
			store++
		}
	}
	idx[store], idx[hi] = idx[hi], idx[store]
	return store
}
