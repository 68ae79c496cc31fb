package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/dataset"
	"github.com/rushteam/reclab/pipeline"
)

// key 布局：
//
//	{prefix}:rec:{model}:{user}   有序集合，成员为物品原始标识，分数 = -名次
//	{prefix}:report:{run_id}      JSON 报告
//	{prefix}:latest               哈希，model -> 最近一次 run_id

// zReplacer 由支持原子重写有序集合的后端实现（RedisStore）。
type zReplacer interface {
	ZReplace(ctx context.Context, key string, members []string, scores []float64, ttl time.Duration) error
}

// SaveRecommendations 把报告中的推荐列表按测试用户写入有序集合，返回写入的用户数。
// 已存在的列表会被覆盖。
func SaveRecommendations(ctx context.Context, kv core.KeyValueStore, prefix string, split *dataset.Split, rep *pipeline.Report, ttl time.Duration) (int, error) {
	if rep == nil || rep.Recommendations == nil {
		return 0, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: report has no recommendations")
	}
	rows, n := rep.Recommendations.Dims()
	if rows != len(split.TestUserIDs) {
		return 0, core.Errorf(core.ModuleStore, core.ErrorCodeShapeMismatch, "%d recommendation rows for %d test users", rows, len(split.TestUserIDs))
	}

	members := make([]string, n)
	scores := make([]float64, n)
	for rank := range scores {
		scores[rank] = -float64(rank)
	}
	for i, user := range split.TestUserIDs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		for rank, item := range rep.Recommendations.Row(i) {
			id, err := split.Items.Decode(item)
			if err != nil {
				return i, err
			}
			members[rank] = id
		}
		if err := replaceZSet(ctx, kv, RecommendationKey(prefix, rep.Model, user), members, scores, ttl); err != nil {
			return i, fmt.Errorf("store: save recommendations for user %s: %w", user, err)
		}
	}
	return rows, nil
}

func replaceZSet(ctx context.Context, kv core.KeyValueStore, key string, members []string, scores []float64, ttl time.Duration) error {
	if r, ok := kv.(zReplacer); ok {
		return r.ZReplace(ctx, key, members, scores, ttl)
	}
	if err := kv.Delete(ctx, key); err != nil {
		return err
	}
	for i, m := range members {
		if err := kv.ZAdd(ctx, key, scores[i], m); err != nil {
			return err
		}
	}
	return nil
}

// LoadRecommendations 按名次读回某个用户的推荐列表。
func LoadRecommendations(ctx context.Context, kv core.KeyValueStore, prefix, model, user string) ([]string, error) {
	return kv.ZRange(ctx, RecommendationKey(prefix, model, user), 0, -1)
}

// RecommendationKey 返回推荐列表的 key。
func RecommendationKey(prefix, model, user string) string {
	return Key(prefix, "rec", model, user)
}

// SaveReport 以 JSON 写入报告，并把它记为该模型最近一次运行。
func SaveReport(ctx context.Context, kv core.KeyValueStore, prefix string, rep *pipeline.Report, ttl time.Duration) error {
	return SaveReports(ctx, kv, prefix, []*pipeline.Report{rep}, ttl)
}

// SaveReports 用一次 BatchSet 写入全部报告，再逐个更新 latest 指针。
// 报告写入失败时不会更新任何指针。
func SaveReports(ctx context.Context, kv core.KeyValueStore, prefix string, reps []*pipeline.Report, ttl time.Duration) error {
	batch := make(map[string][]byte, len(reps))
	for _, rep := range reps {
		data, err := json.Marshal(rep)
		if err != nil {
			return fmt.Errorf("store: encode report %s: %w", rep.RunID, err)
		}
		batch[Key(prefix, "report", rep.RunID)] = data
	}
	if len(batch) == 0 {
		return nil
	}
	if err := kv.BatchSet(ctx, batch, int(ttl/time.Second)); err != nil {
		return fmt.Errorf("store: save %d reports: %w", len(batch), err)
	}
	for _, rep := range reps {
		if err := kv.HSet(ctx, Key(prefix, "latest"), rep.Model, []byte(rep.RunID)); err != nil {
			return fmt.Errorf("store: mark latest %s: %w", rep.Model, err)
		}
	}
	return nil
}

// LatestReports 用一次 BatchGet 读取所有模型最近一次运行的报告，key 为模型名。
// 已过期的报告被跳过。
func LatestReports(ctx context.Context, kv core.KeyValueStore, prefix string) (map[string]*pipeline.Report, error) {
	latest, err := kv.HGetAll(ctx, Key(prefix, "latest"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(latest))
	for _, runID := range latest {
		keys = append(keys, Key(prefix, "report", string(runID)))
	}
	found, err := kv.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	reports := make(map[string]*pipeline.Report, len(found))
	for model, runID := range latest {
		data, ok := found[Key(prefix, "report", string(runID))]
		if !ok {
			continue
		}
		var rep pipeline.Report
		if err := json.Unmarshal(data, &rep); err != nil {
			return nil, fmt.Errorf("store: decode report %s: %w", runID, err)
		}
		reports[model] = &rep
	}
	return reports, nil
}

// LatestReport 读取模型最近一次运行的报告，不存在时返回 NOT_FOUND。
func LatestReport(ctx context.Context, kv core.KeyValueStore, prefix, model string) (*pipeline.Report, error) {
	runID, err := kv.HGet(ctx, Key(prefix, "latest"), model)
	if err != nil {
		return nil, err
	}
	data, err := kv.Get(ctx, Key(prefix, "report", string(runID)))
	if err != nil {
		return nil, err
	}
	var rep pipeline.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("store: decode report: %w", err)
	}
	return &rep, nil
}
