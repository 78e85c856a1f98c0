package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"clipmerge/internal/sequence"
)

const (
	defaultPort             = 8080
	defaultDataDir          = "data"
	defaultStore            = "file"
	defaultTargetHeight     = 720
	defaultAudioStepPercent = 10
	defaultVideoExtension   = "mp4"
	defaultAudioExtension   = "mp3"
)

// Config describes runtime configuration for the service and the CLI.
type Config struct {
	Port             int      `yaml:"port" toml:"port"`
	DataDir          string   `yaml:"data_dir" toml:"data_dir"`
	Store            string   `yaml:"store" toml:"store"`
	TempDir          string   `yaml:"temp_dir" toml:"temp_dir"`
	FFmpegPath       string   `yaml:"ffmpeg_path" toml:"ffmpeg_path"`
	FFprobePath      string   `yaml:"ffprobe_path" toml:"ffprobe_path"`
	ToolsDir         string   `yaml:"tools_dir" toml:"tools_dir"`
	TargetHeight     int      `yaml:"target_height" toml:"target_height"`
	AudioStepPercent int      `yaml:"audio_step_percent" toml:"audio_step_percent"`
	VideoExtension   string   `yaml:"video_extension" toml:"video_extension"`
	AudioExtension   string   `yaml:"audio_extension" toml:"audio_extension"`
	KeepAwakeCommand []string `yaml:"keep_awake_command" toml:"keep_awake_command"`
	Debug            bool     `yaml:"debug" toml:"debug"`
}

func Default() Config {
	return Config{
		Port:             defaultPort,
		DataDir:          defaultDataDir,
		Store:            defaultStore,
		TargetHeight:     defaultTargetHeight,
		AudioStepPercent: defaultAudioStepPercent,
		VideoExtension:   defaultVideoExtension,
		AudioExtension:   defaultAudioExtension,
	}
}

// Load reads the config at path, as TOML when the extension is .toml and
// as YAML otherwise. A missing or empty file yields defaults with no error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	fileData, err := os.ReadFile(path) //nolint:gosec // config path is controlled by deployment
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(strings.TrimSpace(string(fileData))) == 0 {
		return cfg, nil
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(fileData, &cfg); err != nil {
			return cfg, fmt.Errorf("parse toml: %w", err)
		}
	} else if err := yaml.Unmarshal(fileData, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.Store == "" {
		c.Store = defaultStore
	}
	if c.TargetHeight == 0 {
		c.TargetHeight = defaultTargetHeight
	}
	if c.AudioStepPercent == 0 {
		c.AudioStepPercent = defaultAudioStepPercent
	}
	c.VideoExtension = normalizeExt(c.VideoExtension, defaultVideoExtension)
	c.AudioExtension = normalizeExt(c.AudioExtension, defaultAudioExtension)
	c.FFmpegPath = strings.TrimSpace(c.FFmpegPath)
	c.FFprobePath = strings.TrimSpace(c.FFprobePath)
	c.ToolsDir = strings.TrimSpace(c.ToolsDir)
	c.KeepAwakeCommand = trimArgs(c.KeepAwakeCommand)
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Store != "file" && c.Store != "sqlite" {
		return fmt.Errorf("invalid store: %q (must be file or sqlite)", c.Store)
	}
	if c.TargetHeight < 2 || c.TargetHeight%2 != 0 {
		return fmt.Errorf("invalid target_height: %d (must be a positive even number)", c.TargetHeight)
	}
	if c.AudioStepPercent <= 2 || c.AudioStepPercent >= 99 {
		return fmt.Errorf("invalid audio_step_percent: %d (must be between 3 and 98)", c.AudioStepPercent)
	}
	if c.VideoExtension == c.AudioExtension {
		return fmt.Errorf("video_extension and audio_extension must differ, both are %q", c.VideoExtension)
	}
	return nil
}

// ToolOverrides maps tool names to configured binaries.
func (c Config) ToolOverrides() map[string]string {
	return map[string]string{
		"ffmpeg":  c.FFmpegPath,
		"ffprobe": c.FFprobePath,
	}
}

func normalizeExt(ext, fallback string) string {
	if strings.TrimSpace(ext) == "" {
		return fallback
	}
	return sequence.NormalizeExt(ext)
}

func trimArgs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, arg := range in {
		if arg = strings.TrimSpace(arg); arg != "" {
			out = append(out, arg)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
