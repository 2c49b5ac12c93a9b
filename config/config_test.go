package config

import (
	"strings"
	"testing"

	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

func TestDecodeAppliesOverridesOverDefaults(t *testing.T) {
	doc := `{"numParticles": 77, "wInfo": 2.5, "tolerances": {"epsPos": 0.25}}`

	cfg, err := decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if cfg.NumParticles != 77 {
		t.Errorf("NumParticles = %d, want 77", cfg.NumParticles)
	}
	if cfg.WInfo != 2.5 {
		t.Errorf("WInfo = %v, want 2.5", cfg.WInfo)
	}
	if cfg.Tolerances.EpsPos != 0.25 {
		t.Errorf("Tolerances.EpsPos = %v, want 0.25", cfg.Tolerances.EpsPos)
	}

	def := model.DefaultConfig()
	if cfg.MaxDepth != def.MaxDepth {
		t.Errorf("MaxDepth = %d, want untouched default %d", cfg.MaxDepth, def.MaxDepth)
	}
}

func TestDecodeRejectsInvalidResult(t *testing.T) {
	doc := `{"maxReachDepth": 1, "maxDepth": 5}`
	if _, err := decode(strings.NewReader(doc)); err == nil {
		t.Error("expected Validate to reject maxDepth > maxReachDepth")
	}
}

func TestDecodeEmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := decode(strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg != model.DefaultConfig() {
		t.Error("expected an empty document to reproduce model.DefaultConfig() exactly")
	}
}

func TestLoadOrDefaultFallsBackOnMissingPath(t *testing.T) {
	cfg := LoadOrDefault("", nil)
	if cfg != model.DefaultConfig() {
		t.Error("expected LoadOrDefault(\"\", ...) to return model.DefaultConfig()")
	}
}
