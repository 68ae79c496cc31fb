// Package builders 注册内置模型的配置构建器，import 即生效。
package builders

import (
	"github.com/rushteam/reclab/config"
	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/pkg/conv"
	"github.com/rushteam/reclab/recall"
)

var defaults core.ModelDefaults = &core.DefaultModelDefaults{}

func init() {
	config.Register("knn.item", BuildItemKNN)
	config.Register("knn.user", BuildUserKNN)
	config.Register("popularity", BuildPopularity)
	config.Register("random", BuildRandom)
}

// BuildItemKNN 读取 K 与 weighting_scheme。
func BuildItemKNN(cfg map[string]any) (recall.Model, error) {
	k, w, err := knnParams(cfg)
	if err != nil {
		return nil, err
	}
	return recall.NewItemKNN(k, w)
}

// BuildUserKNN 读取 K 与 weighting_scheme。
func BuildUserKNN(cfg map[string]any) (recall.Model, error) {
	k, w, err := knnParams(cfg)
	if err != nil {
		return nil, err
	}
	return recall.NewUserKNN(k, w)
}

func BuildPopularity(map[string]any) (recall.Model, error) {
	return &recall.Popularity{}, nil
}

func BuildRandom(cfg map[string]any) (recall.Model, error) {
	seed, ok := conv.ConfigInt(cfg, "seed", int(defaults.DefaultSeed()))
	if !ok {
		return nil, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, "seed must be an integer, got %v", cfg["seed"])
	}
	return &recall.Random{Seed: uint64(seed)}, nil
}

func knnParams(cfg map[string]any) (int, recall.Weighting, error) {
	k, ok := conv.ConfigInt(cfg, "K", defaults.DefaultNeighbors())
	if !ok {
		return 0, 0, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, "K must be an integer, got %v", cfg["K"])
	}
	w, err := recall.ParseWeighting(cfg["weighting_scheme"])
	if err != nil {
		return 0, 0, err
	}
	return k, w, nil
}
