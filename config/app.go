package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/dataset"
	"github.com/rushteam/reclab/pkg/logging"
)

// EnvPrefix 是环境变量前缀，层级之间用双下划线分隔：
// RECLAB_RUNNER__MAX_CONCURRENT=4 → runner.max_concurrent
const EnvPrefix = "RECLAB_"

// App 是命令行入口的完整配置。
// 优先级：环境变量 > 配置文件 > 默认值。
type App struct {
	Data     DataConfig     `koanf:"data"`
	Split    SplitConfig    `koanf:"split"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Eval     EvalConfig     `koanf:"eval"`
	Log      logging.Config `koanf:"log"`
	Store    StoreConfig    `koanf:"store"`
	Monitor  MonitorConfig  `koanf:"monitor"`
	Runner   RunnerConfig   `koanf:"runner"`
}

// DataConfig 描述事件日志文件。
type DataConfig struct {
	Path      string       `koanf:"path" validate:"required"`
	Separator string       `koanf:"separator"`
	Header    bool         `koanf:"header"`
	Fields    FieldsConfig `koanf:"fields"`

	// Filter 是 CEL 表达式，例如 event.feedback >= 4.0
	Filter string `koanf:"filter"`
}

// FieldsConfig 是各逻辑角色对应的列名，feedback / timestamp 可为空。
type FieldsConfig struct {
	User      string `koanf:"user" validate:"required"`
	Item      string `koanf:"item" validate:"required"`
	Feedback  string `koanf:"feedback"`
	Timestamp string `koanf:"timestamp"`
}

type SplitConfig struct {
	Strategy     string  `koanf:"strategy" validate:"oneof=leave-last-out leave-one-out"`
	WarmStart    bool    `koanf:"warm_start"`
	TestFraction float64 `koanf:"test_fraction" validate:"gte=0,lte=1"`
	Seed         uint64  `koanf:"seed"`
}

// PipelineConfig 指向实验配置文件（.yaml / .yml / .json）。
type PipelineConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type EvalConfig struct {
	// TopN 实验配置未给出 topn 时使用
	TopN int `koanf:"topn" validate:"gt=0"`

	// Blacklist 不允许被推荐的物品原始标识
	Blacklist []string `koanf:"blacklist"`
}

// StoreConfig 选择结果写入的后端；Type 为空表示不写入。
type StoreConfig struct {
	Type   string        `koanf:"type" validate:"omitempty,oneof=memory redis"`
	Addr   string        `koanf:"addr" validate:"required_if=Type redis"`
	DB     int           `koanf:"db" validate:"gte=0"`
	Prefix string        `koanf:"prefix"`
	TTL    time.Duration `koanf:"ttl" validate:"gte=0"`
}

type MonitorConfig struct {
	// Textfile 非空时把指标写成 node_exporter textfile
	Textfile string `koanf:"textfile"`
}

type RunnerConfig struct {
	MaxConcurrent int           `koanf:"max_concurrent" validate:"gte=0"`
	Timeout       time.Duration `koanf:"timeout" validate:"gte=0"`
}

// Default 返回默认配置（MovieLens ratings.csv，leave-last-out，warm start）。
func Default() *App {
	fields := core.DefaultFieldNames()
	return &App{
		Data: DataConfig{
			Separator: ",",
			Header:    true,
			Fields: FieldsConfig{
				User:      fields.User,
				Item:      fields.Item,
				Feedback:  fields.Feedback,
				Timestamp: fields.Timestamp,
			},
		},
		Split: SplitConfig{
			Strategy:  string(dataset.LeaveLastOut),
			WarmStart: true,
			Seed:      42,
		},
		Eval:   EvalConfig{TopN: (&core.DefaultModelDefaults{}).DefaultTopN()},
		Log:    logging.Config{Level: "info", Format: "json"},
		Store:  StoreConfig{Prefix: "reclab"},
		Runner: RunnerConfig{MaxConcurrent: 2},
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Load 按 默认值 → 配置文件 → 环境变量 的顺序加载并校验配置。path 为空时跳过文件。
func Load(path string) (*App, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := &App{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey: RECLAB_STORE__ADDR → store.addr
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate 校验配置，失败返回 INVALID_CONFIG。
func (a *App) Validate() error {
	if err := getValidator().Struct(a); err != nil {
		return core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, "%v", err)
	}
	if _, err := logging.ParseLevel(a.Log.Level); err != nil {
		return err
	}
	return nil
}

// FieldNames 返回列名绑定。
func (a *App) FieldNames() core.FieldNames {
	return core.FieldNames{
		User:      a.Data.Fields.User,
		Item:      a.Data.Fields.Item,
		Feedback:  a.Data.Fields.Feedback,
		Timestamp: a.Data.Fields.Timestamp,
	}
}

// LoadOptions 返回读取事件日志的参数。
func (a *App) LoadOptions() dataset.LoadOptions {
	return dataset.LoadOptions{
		Fields:    a.FieldNames(),
		Separator: a.Data.Separator,
		Header:    a.Data.Header,
	}
}

// HoldoutOptions 返回 holdout 切分参数。
func (a *App) HoldoutOptions() dataset.HoldoutOptions {
	return dataset.HoldoutOptions{
		Strategy:     dataset.Strategy(a.Split.Strategy),
		WarmStart:    a.Split.WarmStart,
		TestFraction: a.Split.TestFraction,
		Seed:         a.Split.Seed,
	}
}
