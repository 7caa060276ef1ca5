// Package config loads vcmarket settings. Values start from Default, are
// overridden by an optional YAML file and then by VCM_* environment
// variables, and are validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"vcmarket/internal/forest"
	"vcmarket/internal/logging"
	"vcmarket/internal/model"
	"vcmarket/internal/pipeline"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. VCM_SERVER_ADDR.
	EnvPrefix = "VCM"
	// EnvConfigFile names the YAML file to read.
	EnvConfigFile = "VCM_CONFIG_FILE"
	// DefaultConfigFile is read when present and no file is named.
	DefaultConfigFile = "vcmarket.yaml"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Logging logging.Config    `yaml:"logging" envconfig:"LOGGING"`
	Inputs  InputsConfig      `yaml:"inputs" envconfig:"INPUTS"`
	Model   ModelConfig       `yaml:"model" envconfig:"MODEL"`
	Ranking RankingConfig     `yaml:"ranking" envconfig:"RANKING"`
	Export  ExportConfig      `yaml:"export" envconfig:"EXPORT"`
	Retry   model.RetryConfig `yaml:"retry" envconfig:"RETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gte=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gte=0"`
	HistoryDB       string        `yaml:"history_db" envconfig:"HISTORY_DB"`
}

// InputsConfig names the files loaded by the CLI and at server start
type InputsConfig struct {
	Companies       string        `yaml:"companies" envconfig:"COMPANIES"`
	EUInvestors     string        `yaml:"eu_investors" envconfig:"EU_INVESTORS"`
	USInvestors     string        `yaml:"us_investors" envconfig:"US_INVESTORS"`
	ReferenceFile   string        `yaml:"reference_file" envconfig:"REFERENCE_FILE"`
	SkipInvalidRows bool          `yaml:"skip_invalid_rows" envconfig:"SKIP_INVALID_ROWS"`
	LoadTimeout     time.Duration `yaml:"load_timeout" envconfig:"LOAD_TIMEOUT" validate:"gte=0"`
	LoadOnStart     bool          `yaml:"load_on_start" envconfig:"LOAD_ON_START"`
}

// ModelConfig contains funding predictor settings
type ModelConfig struct {
	Trees          int   `yaml:"trees" envconfig:"TREES" validate:"gte=1"`
	Seed           int64 `yaml:"seed" envconfig:"SEED"`
	Folds          int   `yaml:"folds" envconfig:"FOLDS" validate:"gte=2"`
	MaxDepth       int   `yaml:"max_depth" envconfig:"MAX_DEPTH" validate:"gte=0"`
	MinSamplesLeaf int   `yaml:"min_samples_leaf" envconfig:"MIN_SAMPLES_LEAF" validate:"gte=1"`
	MaxFeatures    int   `yaml:"max_features" envconfig:"MAX_FEATURES" validate:"gte=0"`
	Workers        int   `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
}

// RankingConfig holds the ranking used when a request names none
type RankingConfig struct {
	N              int     `yaml:"n" envconfig:"N" validate:"gte=0"`
	InvestorWeight float64 `yaml:"investor_weight" envconfig:"INVESTOR_WEIGHT" validate:"gte=0"`
	FundingWeight  float64 `yaml:"funding_weight" envconfig:"FUNDING_WEIGHT" validate:"gte=0"`
	MarketWeight   float64 `yaml:"market_weight" envconfig:"MARKET_WEIGHT" validate:"gte=0"`
}

// ExportConfig contains export bundle settings
type ExportConfig struct {
	Dir         string `yaml:"dir" envconfig:"DIR" validate:"required"`
	DB          string `yaml:"db" envconfig:"DB"`
	Workbook    bool   `yaml:"workbook" envconfig:"WORKBOOK"`
	Charts      bool   `yaml:"charts" envconfig:"CHARTS"`
	ModelReport bool   `yaml:"model_report" envconfig:"MODEL_REPORT"`
}

// Default returns the built-in configuration.
func Default() Config {
	fc := forest.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HistoryDB:       "vcmarket.db",
		},
		Logging: logging.DefaultConfig(),
		Inputs: InputsConfig{
			Companies:   "data/companies.csv",
			EUInvestors: "data/eu_investors.csv",
			USInvestors: "data/us_investors.csv",
			LoadTimeout: 5 * time.Minute,
		},
		Model: ModelConfig{
			Trees:          fc.Trees,
			Seed:           fc.Seed,
			Folds:          pipeline.DefaultFolds,
			MinSamplesLeaf: fc.MinSamplesLeaf,
		},
		Ranking: RankingConfig{N: 10, InvestorWeight: 1, FundingWeight: 1, MarketWeight: 1},
		Export:  ExportConfig{Dir: "exports", Workbook: true, Charts: true, ModelReport: true},
		Retry:   pipeline.DefaultRetryConfig,
	}
}

// Load reads the configuration. path names the YAML file; when empty,
// VCM_CONFIG_FILE or DefaultConfigFile is used and a missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigFile)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigFile
	}

	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile overlays the YAML file at path onto cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Sources returns the configured input files.
func (c *Config) Sources() model.Sources {
	return model.Sources{
		Companies:   c.Inputs.Companies,
		EUInvestors: c.Inputs.EUInvestors,
		USInvestors: c.Inputs.USInvestors,
	}
}

// PipelineOptions converts the input and model sections to load options.
func (c *Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.ReferenceFile = c.Inputs.ReferenceFile
	opts.SkipInvalidRows = c.Inputs.SkipInvalidRows
	opts.LoadTimeout = c.Inputs.LoadTimeout
	opts.Model = pipeline.ModelOptions{
		Forest: forest.Config{
			Trees:           c.Model.Trees,
			Seed:            c.Model.Seed,
			MaxDepth:        c.Model.MaxDepth,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  c.Model.MinSamplesLeaf,
			MaxFeatures:     c.Model.MaxFeatures,
			Workers:         c.Model.Workers,
		},
		Folds: c.Model.Folds,
	}
	return opts
}

// RankRequest returns the default ranking.
func (c *Config) RankRequest() model.RankRequest {
	return model.RankRequest{
		N: c.Ranking.N,
		Weights: model.RankWeights{
			Investor: c.Ranking.InvestorWeight,
			Funding:  c.Ranking.FundingWeight,
			Market:   c.Ranking.MarketWeight,
		},
	}
}

// ExportSpec returns the default export bundle. Files go to per-run
// directories under Export.Dir.
func (c *Config) ExportSpec() model.ExportSpec {
	return model.ExportSpec{
		DB:          c.Export.DB,
		Workbook:    c.Export.Workbook,
		Charts:      c.Export.Charts,
		ModelReport: c.Export.ModelReport,
		Ranking:     c.RankRequest(),
	}
}
