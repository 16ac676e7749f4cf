package config

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mitchellh/go-homedir"

	"bourgade-tui/model"
)

const appDirName = "bourgade-tui"

// Config 应用配置
type Config struct {
	StreamURL   string  `json:"stream_url"`
	Volume      float64 `json:"volume"`       // 初始音量 0.0-1.0
	SampleRate  int     `json:"sample_rate"`  // 输出采样率，需与流一致
	FPS         int     `json:"fps"`          // 频谱帧率
	PlayTimeout int     `json:"play_timeout"` // 连接到出声的超时（秒）

	FactsURL    string `json:"facts_url"`
	FactsModel  string `json:"facts_model"`
	FactsAPIKey string `json:"facts_api_key,omitempty"`

	LogFile string `json:"log_file"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		StreamURL:   model.Station.StreamURL,
		Volume:      0.8,
		SampleRate:  44100,
		FPS:         60,
		PlayTimeout: 15,
		FactsURL:    "https://generativelanguage.googleapis.com",
		FactsModel:  "gemini-3-flash-preview",
		LogFile:     filepath.Join(defaultStateDir(), "bourgade-tui.log"),
	}
}

// PlayTimeoutDuration 以 time.Duration 返回 PlayTimeout
func (c Config) PlayTimeoutDuration() time.Duration {
	return time.Duration(c.PlayTimeout) * time.Second
}

func defaultStateDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, appDirName)
}

// Path 配置文件路径，目录不存在时创建
func Path() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}

	appConfigDir := filepath.Join(configDir, appDirName)
	if err := os.MkdirAll(appConfigDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(appConfigDir, "config.json"), nil
}

// Load 读取配置文件并应用环境变量，文件不存在不算错误
func Load() (Config, error) {
	configPath, err := Path()
	if err != nil {
		cfg := DefaultConfig()
		applyEnv(&cfg)
		return normalize(cfg), err
	}
	return LoadFrom(configPath)
}

// LoadFrom 读取 path 处的配置并应用环境变量
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		applyEnv(&cfg)
		return normalize(cfg), err
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			cfg = DefaultConfig()
			applyEnv(&cfg)
			return normalize(cfg), err
		}
	}

	applyEnv(&cfg)
	return normalize(cfg), nil
}

// Save 保存到默认配置路径
func Save(cfg Config) error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(configPath, cfg)
}

// SaveTo 以缩进 JSON 写入 path
func SaveTo(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func applyEnv(cfg *Config) {
	cfg.StreamURL = envStr("BOURGADE_STREAM_URL", cfg.StreamURL)
	cfg.Volume = envFloat("BOURGADE_VOLUME", cfg.Volume)
	cfg.SampleRate = envInt("BOURGADE_SAMPLE_RATE", cfg.SampleRate)
	cfg.FPS = envInt("BOURGADE_FPS", cfg.FPS)
	cfg.PlayTimeout = envInt("BOURGADE_PLAY_TIMEOUT", cfg.PlayTimeout)
	cfg.FactsURL = envStr("BOURGADE_FACTS_URL", cfg.FactsURL)
	cfg.FactsModel = envStr("BOURGADE_FACTS_MODEL", cfg.FactsModel)
	cfg.FactsAPIKey = envStr("GEMINI_API_KEY", cfg.FactsAPIKey)
	cfg.LogFile = envStr("BOURGADE_LOG_FILE", cfg.LogFile)
}

// normalize 截断越界值，空值用默认值填充
func normalize(cfg Config) Config {
	def := DefaultConfig()

	cfg.Volume = ClampVolume(cfg.Volume)
	if cfg.StreamURL == "" {
		cfg.StreamURL = def.StreamURL
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.FPS <= 0 {
		cfg.FPS = def.FPS
	} else if cfg.FPS > 120 {
		cfg.FPS = 120
	}
	if cfg.PlayTimeout <= 0 {
		cfg.PlayTimeout = def.PlayTimeout
	}
	if cfg.FactsURL == "" {
		cfg.FactsURL = def.FactsURL
	}
	if cfg.FactsModel == "" {
		cfg.FactsModel = def.FactsModel
	}
	if cfg.LogFile == "" {
		cfg.LogFile = def.LogFile
	}
	if expanded, err := homedir.Expand(cfg.LogFile); err == nil {
		cfg.LogFile = expanded
	}
	return cfg
}

// ClampVolume 把 v 限制在 [0, 1]
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	} else if v > 1 {
		return 1
	}
	return v
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
