package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	defaultHost           = "0.0.0.0"
	defaultPort           = 1780
	defaultMaxConnections = 10000

	defaultAssetsDir      = "assets"
	defaultPlayers        = 2
	defaultDieSides       = 6
	defaultReplayBuffer   = 1024
	defaultReplayTTL      = 3600
	defaultMaxPerSecond   = 10
	defaultMaxPerMinute   = 300
	defaultBanDuration    = 60
	defaultMessagesPerSec = 20
	defaultLogLevel       = "info"
	defaultMetricsPath    = "/metrics"
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Assets   AssetsConfig   `yaml:"assets"`
	Game     GameConfig     `yaml:"game"`
	Replay   ReplayConfig   `yaml:"replay"`
	Redis    RedisConfig    `yaml:"redis"`
	Security SecurityConfig `yaml:"security"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
}

// AssetsConfig 棋盘与卡牌资源目录
type AssetsConfig struct {
	Dir string `yaml:"dir"`
}

// GameConfig 新建房间时的引擎参数
type GameConfig struct {
	DefaultPlayers int  `yaml:"default_players"`
	DieSides       int  `yaml:"die_sides"`
	ShuffleDecks   bool `yaml:"shuffle_decks"`
}

// ReplayConfig 事件重放缓冲
type ReplayConfig struct {
	BufferSize int `yaml:"buffer_size"`
	TTL        int `yaml:"ttl"` // 秒
}

// TTLDuration 返回重放记录的过期时长
func (c *ReplayConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// RedisConfig Redis 配置，Addr 为空时使用内存重放缓冲
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SecurityConfig 来源检查与限流
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
}

// RateLimitConfig 每 IP 连接限流
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 秒
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// MessageLimitConfig 每连接消息限流
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MetricsConfig Prometheus 指标
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Addr 返回监听地址
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Load 加载配置文件，环境变量优先于文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{
		Game:    GameConfig{ShuffleDecks: true},
		Metrics: MetricsConfig{Enabled: true},
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	setDefault(&cfg.Server.Host, defaultHost)
	setDefault(&cfg.Server.Port, defaultPort)
	setDefault(&cfg.Server.MaxConnections, defaultMaxConnections)
	setDefault(&cfg.Assets.Dir, defaultAssetsDir)
	setDefault(&cfg.Game.DefaultPlayers, defaultPlayers)
	setDefault(&cfg.Game.DieSides, defaultDieSides)
	setDefault(&cfg.Replay.BufferSize, defaultReplayBuffer)
	setDefault(&cfg.Replay.TTL, defaultReplayTTL)
	setDefault(&cfg.Security.RateLimit.MaxPerSecond, defaultMaxPerSecond)
	setDefault(&cfg.Security.RateLimit.MaxPerMinute, defaultMaxPerMinute)
	setDefault(&cfg.Security.RateLimit.BanDuration, defaultBanDuration)
	setDefault(&cfg.Security.MessageLimit.MaxPerSecond, defaultMessagesPerSec)
	setDefault(&cfg.Log.Level, defaultLogLevel)
	setDefault(&cfg.Metrics.Path, defaultMetricsPath)
	if len(cfg.Security.AllowedOrigins) == 0 {
		cfg.Security.AllowedOrigins = []string{"*"}
	}
}

func setDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

// applyEnv 使用环境变量覆盖配置，用于容器部署
func applyEnv(cfg *Config) {
	envString("SERVER_HOST", &cfg.Server.Host)
	envInt("SERVER_PORT", &cfg.Server.Port)
	envInt("SERVER_MAX_CONNECTIONS", &cfg.Server.MaxConnections)
	envString("ASSETS_DIR", &cfg.Assets.Dir)
	envInt("GAME_DEFAULT_PLAYERS", &cfg.Game.DefaultPlayers)
	envString("REDIS_ADDR", &cfg.Redis.Addr)
	envString("REDIS_PASSWORD", &cfg.Redis.Password)
	envString("LOG_LEVEL", &cfg.Log.Level)
	if v := os.Getenv("SECURITY_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for o := range strings.SplitSeq(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Security.AllowedOrigins = origins
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
