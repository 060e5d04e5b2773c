// Package config loads chatsim settings from the config file, CHATSIM_*
// environment variables and built-in defaults, in that order of precedence
// after explicit overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".config/chatsim"
	envPrefix  = "CHATSIM"
)

const (
	KeyGenerationBaseURL     = "generation.base_url"
	KeyGenerationModel       = "generation.model"
	KeyGenerationTimeout     = "generation.timeout"
	KeyGenerationTemperature = "generation.temperature"
	KeyRosterPath            = "roster.path"
	KeyPromptsDir            = "prompts.dir"
	KeyPromptsFallbackDir    = "prompts.fallback_dir"
	KeyInstructionsPath      = "instructions.path"
	KeyPacingMin             = "pacing.min"
	KeyPacingMax             = "pacing.max"
	KeySchedulerMinInterval  = "scheduler.min_interval"
	KeySchedulerMaxInterval  = "scheduler.max_interval"
	KeyHistoryLimit          = "history.limit"
	KeyBurstsThreshold       = "bursts.threshold"
	KeyServeListen           = "serve.listen"
	KeyLogLevel              = "log.level"
)

type Config struct {
	Generation   Generation
	RosterPath   string
	Prompts      Prompts
	Instructions string
	Pacing       Window
	Scheduler    Window
	HistoryLimit int
	BurstGap     time.Duration
	Listen       string
	LogLevel     string
	// File is the config file that was read, empty when none was found.
	File string
}

type Generation struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

type Prompts struct {
	Dir         string
	FallbackDir string
}

type Window struct {
	Min time.Duration
	Max time.Duration
}

// Load reads configuration into v. When file is empty the default
// ~/.config/chatsim/config.toml is used if present.
func Load(v *viper.Viper, file string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, configDir)

	setDefaults(v, baseDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(baseDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Generation: Generation{
			BaseURL:     strings.TrimSpace(v.GetString(KeyGenerationBaseURL)),
			Model:       strings.TrimSpace(v.GetString(KeyGenerationModel)),
			Timeout:     v.GetDuration(KeyGenerationTimeout),
			Temperature: v.GetFloat64(KeyGenerationTemperature),
		},
		RosterPath: expandHome(v.GetString(KeyRosterPath), homeDir),
		Prompts: Prompts{
			Dir:         expandHome(v.GetString(KeyPromptsDir), homeDir),
			FallbackDir: expandHome(v.GetString(KeyPromptsFallbackDir), homeDir),
		},
		Instructions: expandHome(v.GetString(KeyInstructionsPath), homeDir),
		Pacing:       Window{Min: v.GetDuration(KeyPacingMin), Max: v.GetDuration(KeyPacingMax)},
		Scheduler:    Window{Min: v.GetDuration(KeySchedulerMinInterval), Max: v.GetDuration(KeySchedulerMaxInterval)},
		HistoryLimit: v.GetInt(KeyHistoryLimit),
		BurstGap:     v.GetDuration(KeyBurstsThreshold),
		Listen:       strings.TrimSpace(v.GetString(KeyServeListen)),
		LogLevel:     strings.TrimSpace(v.GetString(KeyLogLevel)),
		File:         v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, baseDir string) {
	v.SetDefault(KeyGenerationBaseURL, "http://localhost:11434")
	v.SetDefault(KeyGenerationModel, "qwen2.5:7b")
	v.SetDefault(KeyGenerationTimeout, "120s")
	v.SetDefault(KeyGenerationTemperature, 0.0)
	v.SetDefault(KeyRosterPath, filepath.Join(baseDir, "roster.toml"))
	v.SetDefault(KeyPromptsDir, filepath.Join(baseDir, "prompts"))
	v.SetDefault(KeyPromptsFallbackDir, "prompts")
	v.SetDefault(KeyInstructionsPath, filepath.Join(baseDir, "instructions.txt"))
	v.SetDefault(KeyPacingMin, "600ms")
	v.SetDefault(KeyPacingMax, "1400ms")
	v.SetDefault(KeySchedulerMinInterval, "5s")
	v.SetDefault(KeySchedulerMaxInterval, "25s")
	v.SetDefault(KeyHistoryLimit, 20)
	v.SetDefault(KeyBurstsThreshold, "60s")
	v.SetDefault(KeyServeListen, ":8787")
	v.SetDefault(KeyLogLevel, "info")
}

func (c Config) Validate() error {
	var errs []error
	if c.Generation.BaseURL == "" {
		errs = append(errs, errors.New("generation.base_url is required"))
	}
	if c.Generation.Model == "" {
		errs = append(errs, errors.New("generation.model is required"))
	}
	if c.Generation.Timeout <= 0 {
		errs = append(errs, errors.New("generation.timeout must be positive"))
	}
	if c.RosterPath == "" {
		errs = append(errs, errors.New("roster.path is required"))
	}
	if err := c.Pacing.validate("pacing"); err != nil {
		errs = append(errs, err)
	}
	if err := c.Scheduler.validate("scheduler interval"); err != nil {
		errs = append(errs, err)
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, errors.New("history.limit must be positive"))
	}
	if c.BurstGap <= 0 {
		errs = append(errs, errors.New("bursts.threshold must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (w Window) validate(name string) error {
	if w.Min <= 0 || w.Max <= 0 {
		return fmt.Errorf("%s bounds must be positive", name)
	}
	if w.Min > w.Max {
		return fmt.Errorf("%s min %s exceeds max %s", name, w.Min, w.Max)
	}
	return nil
}

func expandHome(path, homeDir string) string {
	path = strings.TrimSpace(path)
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
