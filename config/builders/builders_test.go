package builders

import (
	"testing"

	"github.com/rushteam/reclab/config"
	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/pipeline"
	"github.com/rushteam/reclab/recall"
)

func TestBuildItemKNN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     map[string]any
		wantK   int
		wantW   recall.Weighting
		wantErr bool
	}{
		{name: "defaults", cfg: nil, wantK: 20, wantW: recall.WeightingNone},
		{name: "yaml int", cfg: map[string]any{"K": 50, "weighting_scheme": "element"}, wantK: 50, wantW: recall.WeightingElementwise},
		{name: "json float", cfg: map[string]any{"K": 5.0, "weighting_scheme": "columnwise"}, wantK: 5, wantW: recall.WeightingColumnwise},
		{name: "fractional K", cfg: map[string]any{"K": 2.5}, wantErr: true},
		{name: "string K", cfg: map[string]any{"K": "ten"}, wantErr: true},
		{name: "zero K", cfg: map[string]any{"K": 0}, wantErr: true},
		{name: "bad weighting", cfg: map[string]any{"weighting_scheme": "bogus"}, wantErr: true},
		{name: "blank weighting", cfg: map[string]any{"weighting_scheme": ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := BuildItemKNN(tt.cfg)
			if tt.wantErr {
				if !core.IsInvalidConfig(err) {
					t.Errorf("err = %v, want INVALID_CONFIG", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			knn := m.(*recall.ItemKNN)
			if knn.K != tt.wantK || knn.Weighting != tt.wantW {
				t.Errorf("got K %d weighting %v, want K %d weighting %v", knn.K, knn.Weighting, tt.wantK, tt.wantW)
			}
		})
	}
}

func TestBuildRandom(t *testing.T) {
	m, err := BuildRandom(map[string]any{"seed": 7})
	if err != nil {
		t.Fatal(err)
	}
	if got := m.(*recall.Random).Seed; got != 7 {
		t.Errorf("Seed = %d, want 7", got)
	}
	m, _ = BuildRandom(nil)
	if got := m.(*recall.Random).Seed; got != 42 {
		t.Errorf("default Seed = %d, want 42", got)
	}
}

func TestRegistered(t *testing.T) {
	want := []string{"knn.item", "knn.user", "popularity", "random"}
	got := config.SupportedTypes()
	for _, typ := range want {
		found := false
		for _, g := range got {
			found = found || g == typ
		}
		if !found {
			t.Errorf("type %q not registered (got %v)", typ, got)
		}
	}

	var cfg pipeline.Config
	cfg.Experiment.Models = []pipeline.ModelConfig{
		{Type: "knn.user", Config: map[string]any{"K": 10, "weighting_scheme": "row"}},
		{Type: "popularity"},
	}
	if err := config.ValidatePipelineConfig(&cfg); err != nil {
		t.Fatalf("ValidatePipelineConfig: %v", err)
	}
	models, err := cfg.BuildModels(config.DefaultFactory())
	if err != nil {
		t.Fatal(err)
	}
	if models[0].Name() != "knn.user" || models[1].Name() != "popularity" {
		t.Errorf("models = %s, %s", models[0].Name(), models[1].Name())
	}

	cfg.Experiment.Models = append(cfg.Experiment.Models, pipeline.ModelConfig{Type: "svd"})
	if err := config.ValidatePipelineConfig(&cfg); !core.IsInvalidConfig(err) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}
