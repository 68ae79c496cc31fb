// Package pipeline 把一次离线实验拆成固定的阶段链：
// fit → score → rmse → filter → topn → evaluate，并支持多模型并发对比。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/dataset"
	"github.com/rushteam/reclab/evaluate"
	"github.com/rushteam/reclab/filter"
	"github.com/rushteam/reclab/pkg/monitor"
	"github.com/rushteam/reclab/recall"
	"github.com/rushteam/reclab/rerank"
)

// Stage 是实验阶段名称，用于日志、指标与 Report.Durations。
type Stage string

const (
	StageFit      Stage = "fit"
	StageScore    Stage = "score"
	StageRMSE     Stage = "rmse"
	StageFilter   Stage = "filter"
	StageTopN     Stage = "topn"
	StageEvaluate Stage = "evaluate"
)

// Report 是单个模型一次运行的结果。
type Report struct {
	RunID      string                  `json:"run_id"`
	Experiment string                  `json:"experiment,omitempty"`
	Model      string                  `json:"model"`
	StartedAt  time.Time               `json:"started_at"`
	Results    []evaluate.Result       `json:"results,omitempty"`
	RMSE       float64                 `json:"rmse"`
	Durations  map[Stage]time.Duration `json:"durations"`
	Error      string                  `json:"error,omitempty"`

	// Recommendations 最大 N 的推荐列表，行顺序与测试用户一致
	Recommendations *core.Recommendations `json:"-"`
}

// Runner 在一份只读的 dataset.Split 上运行模型。
type Runner struct {
	// Experiment 写入 Report 的实验名
	Experiment string

	// TopN 评估截断，推荐列表按其中最大值生成
	TopN []int

	// Filters 已看过物品之外的额外过滤（如黑名单）
	Filters []filter.Filter

	// MaxConcurrent RunAll 的最大并发数（0 表示无限制）
	MaxConcurrent int

	// Timeout 单个模型的超时时间（0 表示不限制）
	Timeout time.Duration

	Logger  zerolog.Logger
	Monitor *monitor.Monitor // 可选
}

// Run 运行单个模型。失败时返回的 Report 仍带有 RunID 与已完成阶段的耗时。
func (r *Runner) Run(ctx context.Context, split *dataset.Split, m recall.Model) (*Report, error) {
	rep := &Report{
		RunID:      uuid.NewString(),
		Experiment: r.Experiment,
		Model:      m.Name(),
		StartedAt:  time.Now(),
		Durations:  make(map[Stage]time.Duration, 6),
	}
	log := r.Logger.With().Str("run_id", rep.RunID).Str("model", rep.Model).Logger()

	err := r.run(ctx, split, m, rep, log)
	if r.Monitor != nil {
		r.Monitor.RunFinished(rep.Model, err)
	}
	if err != nil {
		rep.Error = err.Error()
		log.Error().Err(err).Msg("run failed")
		return rep, fmt.Errorf("model %s: %w", rep.Model, err)
	}

	ev := log.Info().Float64("rmse", rep.RMSE)
	for _, res := range rep.Results {
		ev = ev.Dict(fmt.Sprintf("top%d", res.TopN), zerolog.Dict().
			Float64("hr", res.HR).
			Float64("mrr", res.MRR).
			Float64("coverage", res.Coverage))
	}
	ev.Msg("run finished")
	return rep, nil
}

func (r *Runner) run(ctx context.Context, split *dataset.Split, m recall.Model, rep *Report, log zerolog.Logger) error {
	if split == nil {
		return core.NewDomainError(core.ModuleEvaluate, core.ErrorCodeInvalidInput, "pipeline: nil split")
	}
	if len(r.TopN) == 0 {
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig, "pipeline: no topn configured")
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	desc := split.Description

	stage := func(s Stage, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		var done func() time.Duration
		if r.Monitor != nil {
			done = r.Monitor.Track(rep.Model, string(s))
		}
		err := fn()
		if done != nil {
			rep.Durations[s] = done()
		} else {
			rep.Durations[s] = time.Since(start)
		}
		log.Debug().Str("stage", string(s)).Dur("took", rep.Durations[s]).Err(err).Msg("stage done")
		if err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
		return nil
	}

	var (
		scores     *core.Scores
		candidates *core.Candidates
		recs       *core.Recommendations
	)
	if err := stage(StageFit, func() error {
		return m.Fit(ctx, split.Train, desc)
	}); err != nil {
		return err
	}
	if err := stage(StageScore, func() (err error) {
		scores, err = m.Score(ctx, split.Test, desc)
		return err
	}); err != nil {
		return err
	}
	if err := stage(StageRMSE, func() (err error) {
		rep.RMSE, err = evaluate.RMSE(scores, split.Holdout, split.HoldoutFeedback)
		return err
	}); err != nil {
		return err
	}
	if err := stage(StageFilter, func() (err error) {
		filters := append([]filter.Filter{&filter.SeenFilter{Seen: split.Test}}, r.Filters...)
		candidates, err = filter.Downvote(scores, filters...)
		return err
	}); err != nil {
		return err
	}
	if err := stage(StageTopN, func() (err error) {
		recs, err = rerank.TopN(candidates, slices.Max(r.TopN))
		return err
	}); err != nil {
		return err
	}
	if err := stage(StageEvaluate, func() (err error) {
		rep.Results, err = evaluate.EvaluateAt(recs, split.Holdout, desc.NItems(), r.TopN)
		return err
	}); err != nil {
		return err
	}
	rep.Recommendations = recs

	if r.Monitor != nil {
		r.Monitor.SetMetric(rep.Model, "rmse", 0, rep.RMSE)
		for _, res := range rep.Results {
			r.Monitor.SetMetric(rep.Model, "hr", res.TopN, res.HR)
			r.Monitor.SetMetric(rep.Model, "mrr", res.TopN, res.MRR)
			r.Monitor.SetMetric(rep.Model, "coverage", res.TopN, res.Coverage)
		}
	}
	return nil
}

// RunAll 并发运行多个模型，split 在各模型之间只读共享。
//
// 单个模型失败不中断其他模型；返回的 Report 与 models 一一对应，
// 失败模型的错误合并后返回。
func (r *Runner) RunAll(ctx context.Context, split *dataset.Split, models []recall.Model) ([]*Report, error) {
	reports := make([]*Report, len(models))
	errs := make([]error, len(models))

	eg, egCtx := errgroup.WithContext(ctx)
	if r.MaxConcurrent > 0 {
		eg.SetLimit(r.MaxConcurrent)
	}
	for i, m := range models {
		eg.Go(func() error {
			reports[i], errs[i] = r.Run(egCtx, split, m)
			return nil
		})
	}
	_ = eg.Wait()

	return reports, errors.Join(errs...)
}
