package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/dataset"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("event", cel.MapType(cel.StringType, cel.DynType)),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// EventFilter 是事件过滤表达式，使用 CEL (Common Expression Language) 实现。
// 表达式只编译一次，Match 可以并发调用。
//
// 可用字段：
//   - event.user / event.item：原始标识（string）
//   - event.feedback：反馈值（double）
//   - event.timestamp：时间戳（int）
//
// 示例：
//   - `event.feedback >= 4.0` → 只保留高分评价
//   - `event.timestamp > 1000000000 && event.feedback > 2.5`
//   - `event.item in ["1", "2", "3"]`
type EventFilter struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式；空表达式保留所有事件。
func Compile(expr string) (*EventFilter, error) {
	f := &EventFilter{expr: expr}
	if expr == "" {
		return f, nil
	}

	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("dsl: init cel env: %w", err)
	}

	// 编译表达式
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidConfig, "filter %q: compile error: %v", expr, issues.Err())
	}

	// 创建程序
	prg, err := env.Program(ast)
	if err != nil {
		return nil, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidConfig, "filter %q: program error: %v", expr, err)
	}
	f.prg = prg
	return f, nil
}

// String 返回原始表达式。
func (f *EventFilter) String() string { return f.expr }

// Match 实现 dataset.EventFilter。
func (f *EventFilter) Match(e dataset.Event) (bool, error) {
	if f.prg == nil {
		return true, nil
	}

	out, _, err := f.prg.Eval(map[string]any{
		"event": map[string]any{
			"user":      e.User,
			"item":      e.Item,
			"feedback":  e.Feedback,
			"timestamp": e.Timestamp,
		},
	})
	if err != nil {
		return false, fmt.Errorf("dsl: eval %q: %w", f.expr, err)
	}

	// 转换为布尔值
	result, ok := out.Value().(bool)
	if !ok {
		return false, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidConfig, "filter %q must return boolean, got %T", f.expr, out.Value())
	}
	return result, nil
}

var _ dataset.EventFilter = (*EventFilter)(nil)
