package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Engine contains settings for locating and launching the mpv process.
type Engine struct {
	MpvPath              string   `toml:"mpv_path"`
	YtdlPath             string   `toml:"ytdl_path"`
	BundledDir           string   `toml:"bundled_dir"`
	ProjectDir           string   `toml:"project_dir"`
	SocketDir            string   `toml:"socket_dir"`
	Hwdec                string   `toml:"hwdec"`
	ScreenshotDir        string   `toml:"screenshot_dir"`
	CookiesPath          string   `toml:"cookies_path"`
	YtdlUserAgent        string   `toml:"ytdl_user_agent"`
	EnableYtdlRawOptions bool     `toml:"enable_ytdl_raw_options"`
	AudioLanguages       []string `toml:"audio_languages"`
	SubtitleLanguages    []string `toml:"subtitle_languages"`
	ExtraArgs            []string `toml:"extra_args"`
}

// IPC contains timing for the JSON control channel.
type IPC struct {
	ConnectDelayMillis    int `toml:"connect_delay_ms"`
	ConnectRetries        int `toml:"connect_retries"`
	RetryDelayMillis      int `toml:"retry_delay_ms"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
	ReadyGraceMillis      int `toml:"ready_grace_ms"`
}

// Capture contains settings for the preview frame pipeline.
type Capture struct {
	CacheDir            string  `toml:"cache_dir"`
	MaxEntries          int     `toml:"max_entries"`
	DebounceMillis      int     `toml:"debounce_ms"`
	MinDeltaSeconds     float64 `toml:"min_delta_seconds"`
	SettleMillis        int     `toml:"settle_ms"`
	ReadyTimeoutSeconds int     `toml:"ready_timeout_seconds"`
	Hwdec               string  `toml:"hwdec"`
}

// Relay contains settings for input forwarded from the engine surface.
type Relay struct {
	DoubleClickMillis int     `toml:"double_click_ms"`
	SeekStepSeconds   float64 `toml:"seek_step_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for mpvkit.
//
// Configuration sections by subsystem:
//   - Engine: mpv binary resolution and launch flags
//   - IPC: control channel connect and request timing
//   - Capture: preview generation on the secondary engine
//   - Relay: native input relayed back from the engine surface
//   - Logging: log format, level, and directory
type Config struct {
	Engine  Engine  `toml:"engine"`
	IPC     IPC     `toml:"ipc"`
	Capture Capture `toml:"capture"`
	Relay   Relay   `toml:"relay"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// CreateSample writes the sample configuration to path, refusing to overwrite.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mpvkit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories mpvkit writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Engine.ScreenshotDir, c.Capture.CacheDir, c.Logging.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "mpvkit", "previews")
	}
	return "~/.cache/mpvkit/previews"
}
