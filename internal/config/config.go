package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a JSON and YAML friendly wrapper around time.Duration that
// accepts human readable strings such as "150ms" in configuration files while
// still allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML encodes the duration as its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got kind %d", value.Kind)
	}
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode int: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	return d.parse(value.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" || s == "null" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config captures the tunable parameters needed to bootstrap a generation server.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Chunk     ChunkConfig     `json:"chunk" yaml:"chunk"`
	Terrain   TerrainConfig   `json:"terrain" yaml:"terrain"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Blocks    BlocksConfig    `json:"blocks" yaml:"blocks"`
}

type ServerConfig struct {
	ID               string   `json:"id" yaml:"id"`
	Description      string   `json:"description" yaml:"description"`
	ListenAddr       string   `json:"listenAddr" yaml:"listenAddr"`             // ":19000"
	HandshakeTimeout Duration `json:"handshakeTimeout" yaml:"handshakeTimeout"` // e.g. "5s"
	ReadTimeout      Duration `json:"readTimeout" yaml:"readTimeout"`           // idle websocket read deadline
	WriteTimeout     Duration `json:"writeTimeout" yaml:"writeTimeout"`
	PreviewDir       string   `json:"previewDir" yaml:"previewDir"` // optional PNG previews of generated chunks
}

type ChunkConfig struct {
	Width         int `json:"width" yaml:"width"`
	Height        int `json:"height" yaml:"height"`
	Depth         int `json:"depth" yaml:"depth"`
	FormatVersion int `json:"formatVersion" yaml:"formatVersion"`
}

type TerrainConfig struct {
	Generators       []string `json:"generators" yaml:"generators"` // variants accepted by this server
	MaxHeight        float64  `json:"maxHeight" yaml:"maxHeight"`
	WaterLevel       float64  `json:"waterLevel" yaml:"waterLevel"`
	WorldSize        float64  `json:"worldSize" yaml:"worldSize"`
	MinEdgeDropoff   float64  `json:"minEdgeDropoff" yaml:"minEdgeDropoff"`
	FeatureThreshold float64  `json:"featureThreshold" yaml:"featureThreshold"`
	BridgeThreshold  float64  `json:"bridgeThreshold" yaml:"bridgeThreshold"`
	CacheEntries     int      `json:"cacheEntries" yaml:"cacheEntries"` // per height surface, per generator instance
}

type StorageConfig struct {
	Driver           string `json:"driver" yaml:"driver"` // memory, disk or sqlite
	Path             string `json:"path" yaml:"path"`
	CompressionLevel int    `json:"compressionLevel" yaml:"compressionLevel"` // zstd: 1 fastest .. 4 best
}

type SchedulerConfig struct {
	Workers      int      `json:"workers" yaml:"workers"` // parallel engine instances
	QueueLimit   int      `json:"queueLimit" yaml:"queueLimit"`
	SaveTimeout  Duration `json:"saveTimeout" yaml:"saveTimeout"`
	PollInterval Duration `json:"pollInterval" yaml:"pollInterval"`
}

type BlocksConfig struct {
	AtlasWidth  int            `json:"atlasWidth" yaml:"atlasWidth"`
	AtlasHeight int            `json:"atlasHeight" yaml:"atlasHeight"`
	TileSize    int            `json:"tileSize" yaml:"tileSize"`
	Textures    map[string]int `json:"textures" yaml:"textures"` // texture ref -> atlas tile index
}

// Load reads configuration from a JSON or YAML file if provided. An empty path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ID:               "voxelgen-0",
			Description:      "local development generation server",
			ListenAddr:       ":19000",
			HandshakeTimeout: Duration(5 * time.Second),
			ReadTimeout:      Duration(60 * time.Second),
			WriteTimeout:     Duration(5 * time.Second),
		},
		Chunk: ChunkConfig{
			Width:         32,
			Height:        64,
			Depth:         32,
			FormatVersion: 1,
		},
		Terrain: TerrainConfig{
			Generators:       []string{"islands", "hilly", "flat"},
			MaxHeight:        64,
			WaterLevel:       4,
			WorldSize:        2048,
			MinEdgeDropoff:   3,
			FeatureThreshold: 0.05,
			BridgeThreshold:  0.1,
			CacheEntries:     1 << 16,
		},
		Storage: StorageConfig{
			Driver:           "memory",
			CompressionLevel: 1,
		},
		Scheduler: SchedulerConfig{
			Workers:      2,
			QueueLimit:   4096,
			SaveTimeout:  Duration(10 * time.Second),
			PollInterval: Duration(16 * time.Millisecond),
		},
		Blocks: BlocksConfig{
			AtlasWidth:  256,
			AtlasHeight: 256,
			TileSize:    16,
			Textures: map[string]int{
				"dirt":       0,
				"dirt_top":   1,
				"glass":      2,
				"water":      3,
				"water_top":  4,
				"feature":    5,
				"feature_ao": 6,
			},
		},
	}
}

var knownGenerators = map[string]struct{}{
	"islands": {},
	"hilly":   {},
	"flat":    {},
}

var knownDrivers = map[string]struct{}{
	"memory": {},
	"disk":   {},
	"sqlite": {},
}

func (c *Config) Validate() error {
	if c.Server.ID == "" {
		return errors.New("server.id must be set")
	}
	if c.Server.ListenAddr == "" {
		return errors.New("server.listenAddr must be set")
	}
	if c.Chunk.Width <= 0 || c.Chunk.Depth <= 0 || c.Chunk.Height <= 0 {
		return errors.New("chunk dimensions must be positive")
	}
	if c.Chunk.FormatVersion <= 0 {
		return errors.New("chunk.formatVersion must be positive")
	}
	if len(c.Terrain.Generators) == 0 {
		return errors.New("terrain.generators must list at least one generator")
	}
	for _, name := range c.Terrain.Generators {
		if _, ok := knownGenerators[name]; !ok {
			return fmt.Errorf("terrain.generators: unknown generator %q", name)
		}
	}
	if c.Terrain.MaxHeight <= 0 {
		return errors.New("terrain.maxHeight must be positive")
	}
	if c.Terrain.WaterLevel < 0 || c.Terrain.WaterLevel >= c.Terrain.MaxHeight {
		return errors.New("terrain.waterLevel must be within [0, maxHeight)")
	}
	if c.Terrain.WorldSize <= 0 {
		return errors.New("terrain.worldSize must be positive")
	}
	if c.Terrain.FeatureThreshold < 0 || c.Terrain.FeatureThreshold > 1 {
		return errors.New("terrain.featureThreshold must be within [0, 1]")
	}
	if c.Terrain.CacheEntries <= 0 {
		return errors.New("terrain.cacheEntries must be positive")
	}
	if _, ok := knownDrivers[c.Storage.Driver]; !ok {
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path must be set for driver %q", c.Storage.Driver)
	}
	if c.Scheduler.Workers <= 0 {
		return errors.New("scheduler.workers must be positive")
	}
	if c.Scheduler.QueueLimit < 0 {
		return errors.New("scheduler.queueLimit cannot be negative")
	}
	if c.Blocks.TileSize <= 0 || c.Blocks.AtlasWidth < c.Blocks.TileSize || c.Blocks.AtlasHeight < c.Blocks.TileSize {
		return errors.New("blocks atlas must hold at least one tile")
	}
	return nil
}
