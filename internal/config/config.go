package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	ContentSourceYAML     = "yaml"
	ContentSourceDatabase = "database"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Content  ContentConfig  `mapstructure:"content"`
	Study    StudyConfig    `mapstructure:"study"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port" validate:"min=1,max=65535"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver" validate:"oneof=mysql sqlite"`
	Path            string            `mapstructure:"path" validate:"required_if=Driver sqlite"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

type ContentConfig struct {
	Source             string `mapstructure:"source" validate:"oneof=yaml database"`
	NotebooksDirectory string `mapstructure:"notebooks_directory" validate:"required_if=Source yaml"`
}

// StudyConfig tunes the scheduling engine. Batch sizes per intensity are fixed
// by the engine and are not configurable.
type StudyConfig struct {
	Timezone            string        `mapstructure:"timezone" validate:"omitempty,timezone"`
	StoreTimeout        time.Duration `mapstructure:"store_timeout" validate:"gt=0"`
	QuizSize            int           `mapstructure:"quiz_size" validate:"min=1"`
	MinFreeStudySeconds int           `mapstructure:"min_free_study_seconds" validate:"min=0"`
	ValidationQuestions int           `mapstructure:"validation_questions" validate:"min=1"`
	ValidationPassRatio float64       `mapstructure:"validation_pass_ratio" validate:"gt=0,lte=1"`
}

// Location resolves the configured timezone; an empty value means the host's local time.
func (c StudyConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type LogConfig struct {
	Mode string `mapstructure:"mode" validate:"oneof=development production"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/conceptdeck")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", filepath.Join("data", "conceptdeck.db"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "local")
	v.SetDefault("database.username", "user")
	v.SetDefault("content.source", ContentSourceYAML)
	v.SetDefault("content.notebooks_directory", "notebooks")
	v.SetDefault("study.timezone", "")
	v.SetDefault("study.store_timeout", 5*time.Second)
	v.SetDefault("study.quiz_size", 10)
	v.SetDefault("study.min_free_study_seconds", 60)
	v.SetDefault("study.validation_questions", 3)
	v.SetDefault("study.validation_pass_ratio", 0.6)
	v.SetDefault("log.mode", "development")

	// Bind database password to environment variable
	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}
	if err := v.BindEnv("log.mode", "CONCEPTDECK_LOG_MODE"); err != nil {
		return nil, fmt.Errorf("failed to bind CONCEPTDECK_LOG_MODE environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		errorMsgs := TranslateErrors(err, loader.translator)
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
