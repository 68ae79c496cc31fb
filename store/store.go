// Package store 提供 core.Store / core.KeyValueStore 的实现，以及把实验结果写入存储的 sink。
//
// 接口定义在 core 包：
//
//	var s core.KeyValueStore = store.NewMemoryStore()
//	n, err := store.SaveRecommendations(ctx, s, "reclab", split, report, time.Hour)
package store

import (
	"strings"
	"time"

	"github.com/rushteam/reclab/core"
)

// New 按类型创建存储后端：memory 或 redis。
func New(typ, addr string, db int) (core.KeyValueStore, error) {
	switch typ {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(addr, db)
	default:
		return nil, core.Errorf(core.ModuleStore, core.ErrorCodeInvalidConfig, "unknown store type %q", typ)
	}
}

// ttlSeconds 把 Set 的可选 ttl（秒）转为 Duration，0 表示不过期。
func ttlSeconds(ttl []int) time.Duration {
	if len(ttl) > 0 && ttl[0] > 0 {
		return time.Duration(ttl[0]) * time.Second
	}
	return 0
}

// Key 以冒号拼接 key 的非空部分。
func Key(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}
