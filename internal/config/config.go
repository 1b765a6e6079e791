// Package config loads ideaflow settings from the config file, .env and the
// environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "yaml"
	envPrefix  = "IDEAFLOW"
)

// Config is the validated application configuration.
type Config struct {
	Verbose    bool             `mapstructure:"verbose" yaml:"verbose"`
	Data       DataConfig       `mapstructure:"data" yaml:"data"`
	Projects   ProjectsConfig   `mapstructure:"projects" yaml:"projects"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Compaction CompactionConfig `mapstructure:"compaction" yaml:"compaction"`
	Prompts    PromptsConfig    `mapstructure:"prompts" yaml:"prompts"`
}

// DataConfig locates the database.
type DataConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
	DB  string `mapstructure:"db" yaml:"db" validate:"required"`
}

// ProjectsConfig locates idea project roots.
type ProjectsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
}

// LogConfig controls log output.
type LogConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// LLMConfig selects the model used for conversation compaction.
type LLMConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=openai ollama anthropic gemini"`
	Model    string `mapstructure:"model" yaml:"model"`
	APIKey   string `mapstructure:"apiKey" yaml:"apiKey"`
	BaseURL  string `mapstructure:"baseURL" yaml:"baseURL" validate:"omitempty,url"`
}

// CompactionConfig tunes conversation compaction.
type CompactionConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	MaxMessages int           `mapstructure:"maxMessages" yaml:"maxMessages" validate:"gt=0"`
}

// PromptsConfig points at optional prompt overrides.
type PromptsConfig struct {
	TemplatesDir string `mapstructure:"templatesDir" yaml:"templatesDir"`
}

var validate = validator.New()

// Init prepares v: it loads .env, binds IDEAFLOW_* environment variables and
// reads cfgFile, or config.yaml from the global config dir when cfgFile is
// empty. A missing default config file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	// .env is optional.
	_ = godotenv.Load()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := GetGlobalConfigDir()
		if err != nil {
			return err
		}
		v.AddConfigPath(dir)
		v.SetConfigName(configName)
		v.SetConfigType(configType)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}

// SetDefaults registers every key so environment variables are picked up by
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("verbose", false)
	v.SetDefault("data.dir", "")
	v.SetDefault("data.db", "")
	v.SetDefault("projects.dir", "")
	v.SetDefault("log.file", "")
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.baseURL", "")
	v.SetDefault("compaction.timeout", DefaultCompactionTimeout)
	v.SetDefault("compaction.maxMessages", DefaultCompactionMaxMessages)
	v.SetDefault("prompts.templatesDir", "")
}

// Load unmarshals and validates the configuration held by v. Empty paths
// are derived from the data dir.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Data.Dir == "" {
		dir, err := GetGlobalConfigDir()
		if err != nil {
			return nil, err
		}
		cfg.Data.Dir = dir
	}
	if cfg.Data.DB == "" {
		cfg.Data.DB = filepath.Join(cfg.Data.Dir, DefaultDBName)
	}
	if cfg.Projects.Dir == "" {
		cfg.Projects.Dir = filepath.Join(cfg.Data.Dir, DefaultProjectsDirName)
	}
	if cfg.Prompts.TemplatesDir == "" {
		cfg.Prompts.TemplatesDir = filepath.Join(cfg.Data.Dir, DefaultTemplatesDirName)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
