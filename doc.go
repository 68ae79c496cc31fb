// Package reclab 是一个离线推荐实验工具包（Recommender Lab）。
//
// 设计要点：
// - Matrix-first: 交互矩阵为 CSR 稀疏矩阵，评分矩阵为 gonum 稠密矩阵
// - Type-state: Scores → Candidates → Recommendations，过滤之前的评分无法直接取 Top-N
// - Config-driven: 模型通过 config.Register 注册，实验由 YAML/JSON 描述
package reclab

import (
	"github.com/rushteam/reclab/dataset"
	"github.com/rushteam/reclab/pipeline"
	"github.com/rushteam/reclab/recall"
)

// 轻量 facade：便于用户直接 import "reclab" 使用核心抽象。
type Model = recall.Model
type Split = dataset.Split
type Runner = pipeline.Runner
type Report = pipeline.Report
type Weighting = recall.Weighting

const (
	WeightingNone        = recall.WeightingNone
	WeightingElementwise = recall.WeightingElementwise
	WeightingRowwise     = recall.WeightingRowwise
	WeightingColumnwise  = recall.WeightingColumnwise
)
