package pipeline

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/pkg/conv"
	"github.com/rushteam/reclab/recall"
)

const yamlConfig = `
experiment:
  name: ml-100k
  topn: [10, 5, 10]
  models:
    - type: popularity
    - type: knn.item
      name: itemknn-k50
      config:
        K: 50
        weighting_scheme: row
`

const jsonConfig = `{
  "experiment": {
    "name": "ml-100k",
    "topn": [10, 5, 10],
    "models": [
      {"type": "popularity"},
      {"type": "knn.item", "name": "itemknn-k50", "config": {"K": 50, "weighting_scheme": "row"}}
    ]
  }
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testFactory() *ModelFactory {
	f := NewModelFactory()
	f.Register("popularity", func(map[string]any) (recall.Model, error) {
		return &recall.Popularity{}, nil
	})
	f.Register("knn.item", func(cfg map[string]any) (recall.Model, error) {
		w, err := recall.ParseWeighting(cfg["weighting_scheme"])
		if err != nil {
			return nil, err
		}
		k, _ := conv.ConfigInt(cfg, "K", 20)
		return recall.NewItemKNN(k, w)
	})
	return f
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name string
		load func(string) (*Config, error)
		file string
		body string
	}{
		{name: "yaml", load: LoadFromYAML, file: "exp.yaml", body: yamlConfig},
		{name: "json", load: LoadFromJSON, file: "exp.json", body: jsonConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.load(writeFile(t, tt.file, tt.body))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.Experiment.Name != "ml-100k" {
				t.Errorf("Name = %q", cfg.Experiment.Name)
			}
			ns, err := cfg.TopN(10)
			if err != nil || !slices.Equal(ns, []int{5, 10}) {
				t.Errorf("TopN = %v, %v, want [5 10]", ns, err)
			}

			models, err := cfg.BuildModels(testFactory())
			if err != nil {
				t.Fatalf("BuildModels: %v", err)
			}
			if len(models) != 2 || models[0].Name() != "popularity" || models[1].Name() != "itemknn-k50" {
				t.Fatalf("models = %v", models)
			}
			knn, ok := models[1].(*named).Model.(*recall.ItemKNN)
			if !ok {
				t.Fatalf("models[1] wraps %T", models[1].(*named).Model)
			}
			if knn.K != 50 || knn.Weighting != recall.WeightingRowwise {
				t.Errorf("ItemKNN = K %d weighting %v", knn.K, knn.Weighting)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := LoadFromYAML(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfig_BuildModels_Errors(t *testing.T) {
	tests := []struct {
		name   string
		models []ModelConfig
	}{
		{name: "empty"},
		{name: "unknown type", models: []ModelConfig{{Type: "svd"}}},
		{name: "duplicate name", models: []ModelConfig{{Type: "popularity"}, {Type: "popularity"}}},
		{name: "bad weighting", models: []ModelConfig{{Type: "knn.item", Config: map[string]any{"weighting_scheme": "bogus"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.Experiment.Models = tt.models
			if _, err := cfg.BuildModels(testFactory()); !core.IsInvalidConfig(err) {
				t.Errorf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestConfig_TopN(t *testing.T) {
	var cfg Config
	if ns, err := cfg.TopN(10); err != nil || !slices.Equal(ns, []int{10}) {
		t.Errorf("default TopN = %v, %v", ns, err)
	}
	cfg.Experiment.TopN = []int{5, 0}
	if _, err := cfg.TopN(10); !core.IsInvalidConfig(err) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}
