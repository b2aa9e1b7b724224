package pitchmix

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	EngineFFmpeg = "ffmpeg"
	EngineSox    = "sox"

	defaultMaxWorkers = 8
)

// Config is the process-wide engine configuration. It is built once at
// startup and copied into the engines; nothing mutates it afterwards.
type Config struct {
	// Engine selects the backend: "ffmpeg" (default) or "sox".
	Engine string `yaml:"engine"`

	// FFmpegPath and FFprobePath locate the ffmpeg binaries.
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`

	// SoxPath locates the sox binary.
	SoxPath string `yaml:"sox_path"`

	// TempDir holds job temp files (defaults to os.TempDir()).
	TempDir string `yaml:"temp_dir,omitempty"`

	// Voices are the semitone offsets mixed over the original. nil means
	// DefaultVoices; an empty list means a plain format conversion.
	Voices []float64 `yaml:"voices"`

	// FallbackSampleRate is used when probing yields no sample rate.
	FallbackSampleRate int `yaml:"fallback_sample_rate"`

	// StrictProbe fails jobs whose input has no audio stream instead of
	// falling back.
	StrictProbe bool `yaml:"strict_probe,omitempty"`

	// MaxWorkers bounds concurrent engine invocations.
	MaxWorkers int `yaml:"max_workers"`

	// JobTimeout is the per-job limit in seconds (0 = no timeout).
	JobTimeout int `yaml:"job_timeout,omitempty"`

	// Verbose passes engine diagnostics through to stderr capture.
	Verbose bool `yaml:"verbose,omitempty"`
}

// DefaultConfig returns Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:             EngineFFmpeg,
		FFmpegPath:         "ffmpeg",
		FFprobePath:        "ffprobe",
		SoxPath:            "sox",
		FallbackSampleRate: DefaultSampleRate,
		MaxWorkers:         defaultMaxWorkers,
	}
}

// LoadConfig reads a YAML file over DefaultConfig and applies PITCHMIX_*
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PITCHMIX_ENGINE"); v != "" {
		c.Engine = v
	}
	if v := getenv("PITCHMIX_FFMPEG_PATH"); v != "" {
		c.FFmpegPath = v
	}
	if v := getenv("PITCHMIX_FFPROBE_PATH"); v != "" {
		c.FFprobePath = v
	}
	if v := getenv("PITCHMIX_SOX_PATH"); v != "" {
		c.SoxPath = v
	}
	if v := getenv("PITCHMIX_TEMP_DIR"); v != "" {
		c.TempDir = v
	}
	if v := getenv("PITCHMIX_MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("PITCHMIX_MAX_WORKERS: invalid value %q", v)
		}
		c.MaxWorkers = n
	}
	if v := getenv("PITCHMIX_JOB_TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("PITCHMIX_JOB_TIMEOUT: invalid value %q", v)
		}
		c.JobTimeout = n
	}
	if v, ok := lookupEnv(getenv, "PITCHMIX_VOICES"); ok {
		voices, err := ParseVoices(v)
		if err != nil {
			return fmt.Errorf("PITCHMIX_VOICES: %w", err)
		}
		c.Voices = voices
	}
	return nil
}

// lookupEnv treats the literal value "none" as an explicitly empty list.
func lookupEnv(getenv func(string) string, key string) (string, bool) {
	v := getenv(key)
	if v == "" {
		return "", false
	}
	if strings.EqualFold(v, "none") {
		return "", true
	}
	return v, true
}

// ParseVoices parses a comma-separated list of semitone offsets such as
// "4,-3". An empty string yields an empty, non-nil list.
func ParseVoices(s string) ([]float64, error) {
	voices := []float64{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid semitone offset %q", part)
		}
		voices = append(voices, f)
	}
	return voices, nil
}

// Validate checks the configuration for values the engines cannot use.
func (c Config) Validate() error {
	switch c.Engine {
	case EngineFFmpeg:
		if c.FFmpegPath == "" || c.FFprobePath == "" {
			return fmt.Errorf("ffmpeg_path and ffprobe_path are required")
		}
	case EngineSox:
		if c.SoxPath == "" {
			return fmt.Errorf("sox_path is required")
		}
	default:
		return fmt.Errorf("unknown engine %q (want %q or %q)", c.Engine, EngineFFmpeg, EngineSox)
	}
	if c.FallbackSampleRate <= 0 {
		return fmt.Errorf("fallback_sample_rate must be positive")
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max_workers must be positive")
	}
	if c.JobTimeout < 0 {
		return fmt.Errorf("job_timeout must not be negative")
	}
	for _, s := range c.Voices {
		if err := (Voice{Semitones: s}).Validate(); err != nil {
			return err
		}
	}
	return nil
}

// VoiceList returns the configured voices, or DefaultVoices when unset.
func (c Config) VoiceList() []Voice {
	if c.Voices == nil {
		return DefaultVoices()
	}
	return VoicesFromSemitones(c.Voices)
}

// Timeout returns JobTimeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.JobTimeout) * time.Second
}
