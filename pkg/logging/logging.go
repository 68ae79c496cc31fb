// Package logging 基于 zerolog 提供统一的结构化日志。
//
// 库代码（matrix / similarity / recall ...）不打日志，
// 只有实验运行器和命令行入口通过本包输出日志。
//
//	logger, err := logging.New(logging.Config{Level: "debug", Format: "console"})
//	logger.Info().Str("model", "knn.item").Dur("fit", d).Msg("model fitted")
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/reclab/core"
)

// Config 是日志配置。
type Config struct {
	// Level 最低日志级别：trace, debug, info, warn, error, disabled
	Level string `koanf:"level" yaml:"level" json:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic disabled"`

	// Format 输出格式：json 或 console
	Format string `koanf:"format" yaml:"format" json:"format" validate:"omitempty,oneof=json console"`

	// Output 默认 os.Stderr
	Output io.Writer `koanf:"-" yaml:"-" json:"-"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stderr}
}

var (
	global = zerolog.New(os.Stderr).With().Timestamp().Logger()
	mu     sync.RWMutex
)

// New 按配置创建 logger，未知级别返回 INVALID_CONFIG。
func New(cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// Init 用配置替换全局 logger。
func Init(cfg Config) error {
	logger, err := New(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	global = logger
	mu.Unlock()
	return nil
}

// L 返回全局 logger。
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := global
	return &l
}

// ParseLevel 解析日志级别，空字符串视为 info。
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, "unknown log level %q", level)
	}
	return l, nil
}
