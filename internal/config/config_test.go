package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestValidateDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration should be valid: %v", err)
	}
}

func TestValidateDetectsInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "missing server id",
			mutate: func(cfg *Config) {
				cfg.Server.ID = ""
			},
			wantErr: "server.id must be set",
		},
		{
			name: "missing listen address",
			mutate: func(cfg *Config) {
				cfg.Server.ListenAddr = ""
			},
			wantErr: "server.listenAddr must be set",
		},
		{
			name: "non positive chunk dimensions",
			mutate: func(cfg *Config) {
				cfg.Chunk.Height = 0
			},
			wantErr: "chunk dimensions must be positive",
		},
		{
			name: "unknown generator",
			mutate: func(cfg *Config) {
				cfg.Terrain.Generators = []string{"islands", "caves"}
			},
			wantErr: `terrain.generators: unknown generator "caves"`,
		},
		{
			name: "water above max height",
			mutate: func(cfg *Config) {
				cfg.Terrain.WaterLevel = cfg.Terrain.MaxHeight
			},
			wantErr: "terrain.waterLevel must be within [0, maxHeight)",
		},
		{
			name: "unknown storage driver",
			mutate: func(cfg *Config) {
				cfg.Storage.Driver = "redis"
			},
			wantErr: `storage.driver: unknown driver "redis"`,
		},
		{
			name: "sqlite without path",
			mutate: func(cfg *Config) {
				cfg.Storage.Driver = "sqlite"
				cfg.Storage.Path = ""
			},
			wantErr: `storage.path must be set for driver "sqlite"`,
		},
		{
			name: "no workers",
			mutate: func(cfg *Config) {
				cfg.Scheduler.Workers = 0
			},
			wantErr: "scheduler.workers must be positive",
		},
		{
			name: "empty atlas",
			mutate: func(cfg *Config) {
				cfg.Blocks.AtlasWidth = 8
			},
			wantErr: "blocks atlas must hold at least one tile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if err.Error() != tt.wantErr {
				t.Fatalf("unexpected error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if want := Default(); !reflect.DeepEqual(cfg, want) {
		t.Fatalf("default configuration mismatch:\nwant: %#v\n got: %#v", want, cfg)
	}
}

func TestLoadReadsJSONFileAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Server.Description = "custom description"
	cfg.Terrain.Generators = []string{"flat"}
	cfg.Scheduler.PollInterval = Duration(5 * time.Millisecond)

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, got)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Server.ID = "yaml-server"
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.Path = filepath.Join(dir, "chunks.db")
	cfg.Server.ReadTimeout = Duration(90 * time.Second)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal yaml: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, got)
	}
}

func TestLoadInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Chunk.Width = 0

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err = Load(path)
	if err == nil {
		t.Fatalf("expected load to fail")
	}
	if !strings.Contains(err.Error(), "validate config: chunk dimensions must be positive") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDurationDecodesStringsAndNumbers(t *testing.T) {
	var payload struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
		C Duration `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"250ms","b":1000,"c":null}`), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.A.Duration() != 250*time.Millisecond {
		t.Fatalf("unexpected a: %v", payload.A.Duration())
	}
	if payload.B.Duration() != time.Microsecond {
		t.Fatalf("unexpected b: %v", payload.B.Duration())
	}
	if payload.C != 0 {
		t.Fatalf("unexpected c: %v", payload.C.Duration())
	}

	var yamlPayload struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}
	if err := yaml.Unmarshal([]byte("a: 2s\nb: 5\n"), &yamlPayload); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if yamlPayload.A.Duration() != 2*time.Second || yamlPayload.B.Duration() != 5 {
		t.Fatalf("unexpected yaml durations: %v %v", yamlPayload.A.Duration(), yamlPayload.B.Duration())
	}
}
