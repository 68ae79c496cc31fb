// reclab 在一份事件日志上运行离线推荐实验，输出各模型的 HR / MRR / RMSE。
//
//	reclab -config reclab.yaml
//
// 配置项见 config.App，环境变量 RECLAB_* 覆盖配置文件。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rushteam/reclab/config"
	_ "github.com/rushteam/reclab/config/builders"
	"github.com/rushteam/reclab/dataset"
	"github.com/rushteam/reclab/filter"
	"github.com/rushteam/reclab/pipeline"
	"github.com/rushteam/reclab/pkg/dsl"
	"github.com/rushteam/reclab/pkg/logging"
	"github.com/rushteam/reclab/pkg/monitor"
	"github.com/rushteam/reclab/store"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		logging.L().Error().Err(err).Msg("reclab failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Log); err != nil {
		return err
	}
	log := logging.L()

	exp, err := loadExperiment(cfg.Pipeline.Path)
	if err != nil {
		return err
	}
	if err := config.ValidatePipelineConfig(exp); err != nil {
		return err
	}
	models, err := exp.BuildModels(config.DefaultFactory())
	if err != nil {
		return err
	}
	topN, err := exp.TopN(cfg.Eval.TopN)
	if err != nil {
		return err
	}

	split, err := prepare(cfg, log)
	if err != nil {
		return err
	}

	mon := monitor.New()
	runner := &pipeline.Runner{
		Experiment:    exp.Experiment.Name,
		TopN:          topN,
		MaxConcurrent: cfg.Runner.MaxConcurrent,
		Timeout:       cfg.Runner.Timeout,
		Logger:        *log,
		Monitor:       mon,
	}
	if len(cfg.Eval.Blacklist) > 0 {
		runner.Filters = append(runner.Filters, blacklist(split, cfg.Eval.Blacklist, log))
	}

	reports, runErr := runner.RunAll(ctx, split, models)

	enc := json.NewEncoder(os.Stdout)
	for _, rep := range reports {
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if cfg.Store.Type != "" {
		if err := save(ctx, cfg, split, reports, log); err != nil {
			return err
		}
	}
	if cfg.Monitor.Textfile != "" {
		if err := mon.WriteTextfile(cfg.Monitor.Textfile); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	return runErr
}

func loadExperiment(path string) (*pipeline.Config, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return pipeline.LoadFromJSON(path)
	}
	return pipeline.LoadFromYAML(path)
}

func prepare(cfg *config.App, log *zerolog.Logger) (*dataset.Split, error) {
	f, err := os.Open(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("open data: %w", err)
	}
	defer f.Close()

	start := time.Now()
	events, err := dataset.Load(f, cfg.LoadOptions())
	if err != nil {
		return nil, err
	}
	opts := dataset.PrepareOptions{Fields: cfg.FieldNames(), Holdout: cfg.HoldoutOptions()}
	if cfg.Data.Filter != "" {
		if opts.Filter, err = dsl.Compile(cfg.Data.Filter); err != nil {
			return nil, err
		}
	}
	split, err := dataset.Prepare(events, opts)
	if err != nil {
		return nil, err
	}

	d := split.Description
	log.Info().
		Str("path", cfg.Data.Path).
		Int("events", len(events)).
		Int("users", d.NUsers()).
		Int("items", d.NItems()).
		Int("test_users", d.NTestUsers()).
		Int("train_nnz", split.Train.NNZ()).
		Bool("warm_start", d.WarmStart()).
		Dur("took", time.Since(start)).
		Msg("data prepared")
	return split, nil
}

// blacklist 把原始物品标识编码为黑名单过滤，训练集中不存在的物品被忽略。
func blacklist(split *dataset.Split, ids []string, log *zerolog.Logger) filter.Filter {
	items := make([]int, 0, len(ids))
	for _, id := range ids {
		code := split.Items.Encode(id)
		if code == dataset.Unseen {
			log.Warn().Str("item", id).Msg("blacklisted item not in training set, ignored")
			continue
		}
		items = append(items, code)
	}
	return filter.NewBlacklistFilter(items)
}

func save(ctx context.Context, cfg *config.App, split *dataset.Split, reports []*pipeline.Report, log *zerolog.Logger) error {
	kv, err := store.New(cfg.Store.Type, cfg.Store.Addr, cfg.Store.DB)
	if err != nil {
		return err
	}
	defer kv.Close()

	if err := store.SaveReports(ctx, kv, cfg.Store.Prefix, reports, cfg.Store.TTL); err != nil {
		return err
	}
	var errs []error
	for _, rep := range reports {
		if rep.Recommendations == nil {
			continue
		}
		n, err := store.SaveRecommendations(ctx, kv, cfg.Store.Prefix, split, rep, cfg.Store.TTL)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		log.Info().Str("store", kv.Name()).Str("model", rep.Model).Str("run_id", rep.RunID).Int("users", n).Msg("results saved")
	}
	if latest, err := store.LatestReports(ctx, kv, cfg.Store.Prefix); err == nil {
		log.Info().Str("store", kv.Name()).Int("models", len(latest)).Msg("latest reports in store")
	} else {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
