package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level narrator configuration.
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	TTS     TTSConfig     `yaml:"tts"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Demo    DemoConfig    `yaml:"demo"`
}

// AudioConfig is the PCM format of synthesized placeholder clips.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// TTSConfig selects and configures the synthesis backend.
type TTSConfig struct {
	Engine  string        `yaml:"engine"`
	Silence SilenceConfig `yaml:"silence"`
	Edge    EdgeConfig    `yaml:"edge"`
	Tencent TencentConfig `yaml:"tencent"`
	Piper   PiperConfig   `yaml:"piper"`
	Say     SayConfig     `yaml:"say"`
	Sherpa  SherpaConfig  `yaml:"sherpa"`
	Cache   CacheConfig   `yaml:"cache"`
}

// CacheConfig configures the on-disk synthesis cache.
type CacheConfig struct {
	Dir       string `yaml:"dir"`
	MaxSizeMB int64  `yaml:"max_size_mb"` // 0 disables the cache
}

// SilenceConfig configures the placeholder engine.
type SilenceConfig struct {
	DurationMs int `yaml:"duration_ms"`
}

// EdgeConfig configures Microsoft Edge TTS.
type EdgeConfig struct {
	Voice string `yaml:"voice"`
}

// TencentConfig configures Tencent Cloud TTS.
type TencentConfig struct {
	SecretID  string  `yaml:"secret_id"`
	SecretKey string  `yaml:"secret_key"`
	VoiceType int64   `yaml:"voice_type"`
	Region    string  `yaml:"region"`
	Speed     float64 `yaml:"speed"`
}

// PiperConfig configures the piper CLI.
type PiperConfig struct {
	ModelPath string `yaml:"model_path"`
}

// SayConfig configures the macOS say command.
type SayConfig struct {
	Voice string `yaml:"voice"`
}

// SherpaConfig configures an offline sherpa-onnx VITS model.
type SherpaConfig struct {
	Model      string  `yaml:"model"`
	Tokens     string  `yaml:"tokens"`
	Lexicon    string  `yaml:"lexicon"`
	DataDir    string  `yaml:"data_dir"`
	NumThreads int     `yaml:"num_threads"`
	SpeakerID  int     `yaml:"speaker_id"`
	Speed      float32 `yaml:"speed"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// StorageConfig configures the job history database.
type StorageConfig struct {
	// DBPath is the SQLite file. Job history is disabled when empty.
	DBPath string `yaml:"db_path"`
}

// DemoConfig configures the demo command.
type DemoConfig struct {
	Dir    string   `yaml:"dir"`
	Output string   `yaml:"output"`
	Volume *float64 `yaml:"volume"`
}

// VolumeDB returns the demo background gain.
func (d DemoConfig) VolumeDB() float64 {
	if d.Volume == nil {
		return defaultDemoVolume
	}
	return *d.Volume
}

const defaultDemoVolume = -6.0

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load reads a YAML config file and returns the Config.
// ${VAR_NAME} references are expanded from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// setDefaults fills in unset fields.
func setDefaults(cfg *Config) {
	// 11025 Hz mono 16-bit matches the classic placeholder silence format.
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = 11025
	}
	if cfg.Audio.Channels == 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.BitDepth == 0 {
		cfg.Audio.BitDepth = 16
	}
	if cfg.TTS.Engine == "" {
		cfg.TTS.Engine = "silence"
	}
	if cfg.TTS.Silence.DurationMs == 0 {
		cfg.TTS.Silence.DurationMs = 1000
	}
	if cfg.TTS.Edge.Voice == "" {
		cfg.TTS.Edge.Voice = "en-US-AriaNeural"
	}
	if cfg.TTS.Tencent.VoiceType == 0 {
		cfg.TTS.Tencent.VoiceType = 1001
	}
	if cfg.TTS.Tencent.Region == "" {
		cfg.TTS.Tencent.Region = "ap-guangzhou"
	}
	if cfg.TTS.Tencent.Speed == 0 {
		cfg.TTS.Tencent.Speed = 1.0
	}
	if cfg.TTS.Sherpa.NumThreads == 0 {
		cfg.TTS.Sherpa.NumThreads = 1
	}
	if cfg.TTS.Sherpa.Speed == 0 {
		cfg.TTS.Sherpa.Speed = 1.0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Demo.Dir == "" {
		cfg.Demo.Dir = "assets/demo"
	}
	if cfg.Demo.Output == "" {
		cfg.Demo.Output = "mixed.wav"
	}
	if cfg.Demo.Volume == nil {
		v := defaultDemoVolume
		cfg.Demo.Volume = &v
	}

	if cfg.TTS.Cache.Dir == "" {
		cfg.TTS.Cache.Dir = "~/.cache/narrator/tts"
	}

	cfg.Storage.DBPath = expandHome(cfg.Storage.DBPath)
	cfg.TTS.Cache.Dir = expandHome(cfg.TTS.Cache.Dir)

	// Env expansion often leaves stray whitespace around secrets.
	cfg.TTS.Tencent.SecretID = strings.TrimSpace(cfg.TTS.Tencent.SecretID)
	cfg.TTS.Tencent.SecretKey = strings.TrimSpace(cfg.TTS.Tencent.SecretKey)
}

// expandHome replaces a leading ~/ with the user's home directory.
// Go does not expand ~ on its own.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return path
	}
	return home + path[1:]
}
