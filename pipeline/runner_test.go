package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/dataset"
	"github.com/rushteam/reclab/filter"
	"github.com/rushteam/reclab/matrix"
	"github.com/rushteam/reclab/pkg/monitor"
	"github.com/rushteam/reclab/recall"
)

// testSplit: 训练集 u1{a,b} u2{a,c} u3{b,c} u4{a}；
// 测试用户 u1（留出 c）与 u4（留出 b），u2 u3 的留出物品不在训练集中被丢弃。
func testSplit(t *testing.T) *dataset.Split {
	t.Helper()
	log := dataset.Log{
		{User: "u1", Item: "a", Feedback: 1, Timestamp: 1},
		{User: "u1", Item: "b", Feedback: 1, Timestamp: 2},
		{User: "u1", Item: "c", Feedback: 1, Timestamp: 3},
		{User: "u2", Item: "a", Feedback: 1, Timestamp: 1},
		{User: "u2", Item: "c", Feedback: 1, Timestamp: 2},
		{User: "u2", Item: "d", Feedback: 1, Timestamp: 3},
		{User: "u3", Item: "b", Feedback: 1, Timestamp: 1},
		{User: "u3", Item: "c", Feedback: 1, Timestamp: 2},
		{User: "u3", Item: "e", Feedback: 1, Timestamp: 3},
		{User: "u4", Item: "a", Feedback: 1, Timestamp: 1},
		{User: "u4", Item: "b", Feedback: 1, Timestamp: 2},
	}
	s, err := dataset.Prepare(log, dataset.PrepareOptions{
		Fields:  core.DefaultFieldNames(),
		Holdout: dataset.HoldoutOptions{Strategy: dataset.LeaveLastOut, WarmStart: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

type failingModel struct{}

func (failingModel) Name() string { return "failing" }

func (failingModel) Fit(context.Context, *matrix.CSR, *core.DataDescription) error {
	return core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "recall: broken")
}

func (failingModel) Score(context.Context, *matrix.CSR, *core.DataDescription) (*core.Scores, error) {
	return nil, errors.New("unreachable")
}

func TestRunner_Run_Popularity(t *testing.T) {
	mon := monitor.New()
	r := &Runner{TopN: []int{1, 2}, Logger: zerolog.Nop(), Monitor: mon}

	rep, err := r.Run(context.Background(), testSplit(t), &recall.Popularity{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := uuid.Parse(rep.RunID); err != nil {
		t.Errorf("RunID %q is not a uuid: %v", rep.RunID, err)
	}
	if rep.Model != "popularity" {
		t.Errorf("Model = %q", rep.Model)
	}
	// 热门度 a=3 b=2 c=2；u1 看过 a b → c，u4 看过 a → b（与 c 并列取编码小者）
	if len(rep.Results) != 2 {
		t.Fatalf("Results = %+v", rep.Results)
	}
	for _, res := range rep.Results {
		if res.HR != 1 || res.MRR != 1 {
			t.Errorf("top%d: HR = %v, MRR = %v, want 1, 1", res.TopN, res.HR, res.MRR)
		}
	}
	if rep.RMSE != 1 {
		t.Errorf("RMSE = %v, want 1", rep.RMSE)
	}
	for _, s := range []Stage{StageFit, StageScore, StageRMSE, StageFilter, StageTopN, StageEvaluate} {
		if _, ok := rep.Durations[s]; !ok {
			t.Errorf("missing duration for stage %s", s)
		}
	}
	if rows, n := rep.Recommendations.Dims(); rows != 2 || n != 2 {
		t.Errorf("Recommendations dims = (%d, %d), want (2, 2)", rows, n)
	}

	if got := testutil.ToFloat64(mon.Runs.WithLabelValues("popularity", "ok")); got != 1 {
		t.Errorf("runs_total{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mon.Metric.WithLabelValues("popularity", "hr", "1")); got != 1 {
		t.Errorf("hr@1 gauge = %v, want 1", got)
	}
}

func TestRunner_Run_NeverRecommendsSeenOrBlacklisted(t *testing.T) {
	split := testSplit(t)
	r := &Runner{
		TopN:    []int{1},
		Filters: []filter.Filter{filter.NewBlacklistFilter([]int{2})},
		Logger:  zerolog.Nop(),
	}
	rep, err := r.Run(context.Background(), split, &recall.Popularity{})
	if err != nil {
		t.Fatal(err)
	}
	// u1 看过 a b，c 被拉黑，只能得到一个被降权的物品；u4 得到 b
	if got := rep.Recommendations.At(1, 0); got != 1 {
		t.Errorf("u4 top1 = %d, want 1", got)
	}
	for i := 0; i < 2; i++ {
		if got := rep.Recommendations.At(i, 0); got == 2 {
			t.Errorf("row %d recommends blacklisted item", i)
		}
	}
}

func TestRunner_Run_Errors(t *testing.T) {
	split := testSplit(t)
	tests := []struct {
		name   string
		runner *Runner
		model  recall.Model
		check  func(error) bool
	}{
		{
			name:   "no topn",
			runner: &Runner{Logger: zerolog.Nop()},
			model:  &recall.Popularity{},
			check:  core.IsInvalidConfig,
		},
		{
			name:   "topn wider than items",
			runner: &Runner{TopN: []int{4}, Logger: zerolog.Nop()},
			model:  &recall.Popularity{},
			check:  core.IsInvalidInput,
		},
		{
			name:   "fit fails",
			runner: &Runner{TopN: []int{1}, Logger: zerolog.Nop()},
			model:  failingModel{},
			check:  core.IsInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := tt.runner.Run(context.Background(), split, tt.model)
			if !tt.check(err) {
				t.Fatalf("err = %v", err)
			}
			if rep == nil || rep.Error == "" || rep.RunID == "" {
				t.Errorf("report on failure = %+v", rep)
			}
		})
	}
}

func TestRunner_Run_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{TopN: []int{1}, Logger: zerolog.Nop()}
	if _, err := r.Run(ctx, testSplit(t), &recall.Popularity{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunner_RunAll(t *testing.T) {
	itemKNN, err := recall.NewItemKNN(2, recall.WeightingNone)
	if err != nil {
		t.Fatal(err)
	}
	models := []recall.Model{
		&recall.Popularity{},
		failingModel{},
		WithName("itemknn-k2", itemKNN),
		&recall.Random{Seed: 7},
	}
	mon := monitor.New()
	r := &Runner{TopN: []int{1, 2}, MaxConcurrent: 2, Logger: zerolog.Nop(), Monitor: mon}

	reports, err := r.RunAll(context.Background(), testSplit(t), models)
	if !core.IsInvalidInput(err) {
		t.Fatalf("err = %v, want the failing model's error", err)
	}
	if len(reports) != len(models) {
		t.Fatalf("got %d reports, want %d", len(reports), len(models))
	}
	for i, m := range models {
		if reports[i].Model != m.Name() {
			t.Errorf("reports[%d].Model = %q, want %q", i, reports[i].Model, m.Name())
		}
	}
	if reports[1].Error == "" {
		t.Error("failing model report has no error")
	}
	for _, i := range []int{0, 2, 3} {
		if reports[i].Error != "" || len(reports[i].Results) != 2 {
			t.Errorf("reports[%d] = %+v", i, reports[i])
		}
		for _, res := range reports[i].Results {
			if res.HR < 0 || res.HR > 1 || res.MRR > res.HR {
				t.Errorf("reports[%d] top%d: HR = %v, MRR = %v", i, res.TopN, res.HR, res.MRR)
			}
		}
	}
	if got := testutil.ToFloat64(mon.Runs.WithLabelValues("failing", "error")); got != 1 {
		t.Errorf("runs_total{failing,error} = %v, want 1", got)
	}
}
