package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 根配置：协调端、世界生成、同步策略、图演示、日志与客户端
type Config struct {
	Server ServerConfig `yaml:"server"`
	World  WorldConfig  `yaml:"world"`
	Sync   SyncConfig   `yaml:"sync"`
	Graph  GraphConfig  `yaml:"graph"`
	Log    LogConfig    `yaml:"log"`
	Client ClientConfig `yaml:"client"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr"`
	StaticDir    string `yaml:"static_dir"`
	DefaultWorld string `yaml:"default_world"`
}

type WorldConfig struct {
	Seed          int64   `yaml:"seed"`
	TerrainBlocks int     `yaml:"terrain_blocks"`
	Extent        float64 `yaml:"extent"`
	MinBlockSize  float64 `yaml:"min_block_size"`
	MaxBlockSize  float64 `yaml:"max_block_size"`
}

// 离开策略
const (
	DepartureBroadcast = "broadcast" // 断开后立即广播 departed + state
	DepartureLazy      = "lazy"      // 不主动通知，等下一次无关更新
)

type SyncConfig struct {
	DeparturePolicy string        `yaml:"departure_policy"`
	SendQueue       int           `yaml:"send_queue"`
	EventQueue      int           `yaml:"event_queue"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	Greeting        string        `yaml:"greeting"`
}

type GraphConfig struct {
	Nodes int   `yaml:"nodes"`
	Links int   `yaml:"links"`
	Seed  int64 `yaml:"seed"`
}

type LogConfig struct {
	File    string `yaml:"file"`
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

type ClientConfig struct {
	URL          string        `yaml:"url"`
	EmitInterval time.Duration `yaml:"emit_interval"`
	TickRate     int           `yaml:"tick_rate"`
	MaxSpeed     float64       `yaml:"max_speed"`
}

// Default 内置默认值
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", StaticDir: "web", DefaultWorld: "world-1"},
		World: WorldConfig{
			Seed:          1,
			TerrainBlocks: 200,
			Extent:        400,
			MinBlockSize:  5,
			MaxBlockSize:  20,
		},
		Sync: SyncConfig{
			DeparturePolicy: DepartureBroadcast,
			SendQueue:       64,
			EventQueue:      256,
			WriteTimeout:    5 * time.Second,
			ReadTimeout:     60 * time.Second,
			Greeting:        "welcome to voxelarena",
		},
		Graph: GraphConfig{Nodes: 40, Links: 60, Seed: 1},
		Log:   LogConfig{File: "voxelarena.log", Level: "debug"},
		Client: ClientConfig{
			URL:          "ws://localhost:8080/ws",
			EmitInterval: 100 * time.Millisecond,
			TickRate:     60,
		},
	}
}

// Load 读取 YAML 配置，优先级：文件 -> 环境变量 -> 默认值。
// path 为空时尝试 VOXELARENA_CONFIG；都没有则只用默认值。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("VOXELARENA_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查取值范围
func (c *Config) Validate() error {
	switch c.Sync.DeparturePolicy {
	case DepartureBroadcast, DepartureLazy:
	default:
		return fmt.Errorf("sync.departure_policy: unknown value %q", c.Sync.DeparturePolicy)
	}
	if c.World.TerrainBlocks < 0 {
		return fmt.Errorf("world.terrain_blocks must be >= 0")
	}
	if c.World.MinBlockSize <= 0 || c.World.MaxBlockSize < c.World.MinBlockSize {
		return fmt.Errorf("world block size range [%v,%v] invalid", c.World.MinBlockSize, c.World.MaxBlockSize)
	}
	if c.Sync.SendQueue <= 0 || c.Sync.EventQueue <= 0 {
		return fmt.Errorf("sync queues must be positive")
	}
	if c.Graph.Nodes < 0 || c.Graph.Links < 0 {
		return fmt.Errorf("graph.nodes and graph.links must be >= 0")
	}
	if c.Client.EmitInterval <= 0 {
		return fmt.Errorf("client.emit_interval must be positive")
	}
	if c.Client.TickRate < 0 {
		return fmt.Errorf("client.tick_rate must be >= 0")
	}
	if c.Client.MaxSpeed < 0 {
		return fmt.Errorf("client.max_speed must be >= 0")
	}
	return nil
}

// applyEnv 环境变量只覆盖文件中未设置（零值）的字段
func applyEnv(c *Config) {
	if v := os.Getenv("VOXELARENA_ADDR"); v != "" && (c.Server.Addr == "" || c.Server.Addr == Default().Server.Addr) {
		c.Server.Addr = v
	}
	if v := os.Getenv("VOXELARENA_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil && c.World.Seed == Default().World.Seed {
			c.World.Seed = seed
		}
	}
	if v := os.Getenv("VOXELARENA_DEPARTURE_POLICY"); v != "" && c.Sync.DeparturePolicy == Default().Sync.DeparturePolicy {
		c.Sync.DeparturePolicy = v
	}
	if v := os.Getenv("VOXELARENA_LOG_LEVEL"); v != "" && c.Log.Level == Default().Log.Level {
		c.Log.Level = v
	}
	if v := os.Getenv("VOXELARENA_CLIENT_URL"); v != "" && c.Client.URL == Default().Client.URL {
		c.Client.URL = v
	}
}
