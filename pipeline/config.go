package pipeline

import (
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/recall"
)

// Config 是实验的配置结构（支持 YAML/JSON）。
//
//	experiment:
//	  name: ml-100k
//	  topn: [5, 10, 20]
//	  models:
//	    - type: knn.item
//	      name: itemknn-k50
//	      config: {K: 50, weighting_scheme: row}
type Config struct {
	Experiment struct {
		Name   string        `yaml:"name" json:"name"`
		TopN   []int         `yaml:"topn" json:"topn"`
		Models []ModelConfig `yaml:"models" json:"models"`
	} `yaml:"experiment" json:"experiment"`
}

// ModelConfig 是单个模型的配置。
type ModelConfig struct {
	Type   string         `yaml:"type" json:"type"`     // knn.item / knn.user / popularity / random
	Name   string         `yaml:"name" json:"name"`     // 报告中的名称，缺省为 Type
	Config map[string]any `yaml:"config" json:"config"` // 模型特定配置
}

// LoadFromYAML 从 YAML 文件加载实验配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载实验配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	return &cfg, nil
}

// TopN 返回去重升序的评估截断；未配置时使用 fallback。
func (c *Config) TopN(fallback int) ([]int, error) {
	ns := slices.Clone(c.Experiment.TopN)
	if len(ns) == 0 {
		ns = []int{fallback}
	}
	slices.Sort(ns)
	ns = slices.Compact(ns)
	if ns[0] <= 0 {
		return nil, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, "topn must be positive, got %d", ns[0])
	}
	return ns, nil
}

// BuildModels 根据配置构建模型（需要 ModelFactory 注册模型构建器）。
// 注意：factory 应该在独立的 config 包中，避免循环依赖。
func (c *Config) BuildModels(factory *ModelFactory) ([]recall.Model, error) {
	if len(c.Experiment.Models) == 0 {
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig, "config: no model configured")
	}
	models := make([]recall.Model, 0, len(c.Experiment.Models))
	seen := make(map[string]bool, len(c.Experiment.Models))

	for _, mc := range c.Experiment.Models {
		m, err := factory.Build(mc.Type, mc.Config)
		if err != nil {
			return nil, fmt.Errorf("build model %s: %w", mc.Type, err)
		}
		if mc.Name != "" {
			m = WithName(mc.Name, m)
		}
		if seen[m.Name()] {
			return nil, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, "duplicate model name %q, set a distinct name", m.Name())
		}
		seen[m.Name()] = true
		models = append(models, m)
	}

	return models, nil
}

// ModelBuilder 根据 config 构建模型。
type ModelBuilder func(map[string]any) (recall.Model, error)

// ModelFactory 用于根据配置构建模型实例。
type ModelFactory struct {
	builders map[string]ModelBuilder
}

func NewModelFactory() *ModelFactory {
	return &ModelFactory{
		builders: make(map[string]ModelBuilder),
	}
}

// Register 注册模型构建器。
func (f *ModelFactory) Register(modelType string, builder ModelBuilder) {
	f.builders[modelType] = builder
}

// Build 根据类型和配置构建模型。
func (f *ModelFactory) Build(modelType string, config map[string]any) (recall.Model, error) {
	builder, ok := f.builders[modelType]
	if !ok {
		return nil, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, "unknown model type: %s", modelType)
	}
	return builder(config)
}

// named 覆盖模型在报告与指标中的名称。
type named struct {
	recall.Model
	name string
}

func (n *named) Name() string { return n.name }

// WithName 返回以 name 命名的模型，拟合与打分仍由 m 完成。
func WithName(name string, m recall.Model) recall.Model {
	return &named{Model: m, name: name}
}
