package config

import (
	"sort"
	"sync"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/pipeline"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/reclab/config/builders"
// 以触发内置模型（knn.item、knn.user、popularity、random）的 init 注册。

// ModelBuilder 与 pipeline.ModelBuilder 一致：根据 config 构建模型。
// 各模型在 init 中调用 Register(typeName, builder) 即可被配置驱动。
type ModelBuilder = pipeline.ModelBuilder

var (
	defaultBuilders   = make(map[string]ModelBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种模型的构建逻辑，供 DefaultFactory 与配置驱动使用。
func Register(typeName string, builder ModelBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的模型类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回基于当前注册表构建的 ModelFactory。
func DefaultFactory() *pipeline.ModelFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewModelFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, builder)
	}
	return f
}

// ValidatePipelineConfig 校验实验配置中所有模型类型均已注册；若有未支持类型则返回包含已支持列表的错误。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	supported := SupportedTypes()
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	for _, mc := range cfg.Experiment.Models {
		if _, ok := defaultBuilders[mc.Type]; !ok {
			return core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, "unsupported model type %q (supported: %v)", mc.Type, supported)
		}
	}
	return nil
}
