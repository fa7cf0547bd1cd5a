// Package config loads the application configuration from defaults, an
// optional YAML file and TEA_-prefixed environment variables, in that order.
// Unrecognized file keys are ignored; missing keys keep their defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration.
type Config struct {
	ProjectName string          `yaml:"project_name" envconfig:"PROJECT_NAME"`
	Logging     LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths       PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Server      ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Economics   EconomicsConfig `yaml:"economics" envconfig:"ECONOMICS"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"` // console, file or both
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig holds the file-system locations the pipeline works with.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	DBPath     string `yaml:"db_path" envconfig:"DB_PATH"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// ServerConfig configures the HTTP read API.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"gt=0"`
}

// EconomicsConfig holds the cost factors and financial assumptions the TEA
// derives from. Every field has a documented default; a partial file or
// environment only overrides what it names.
type EconomicsConfig struct {
	InstallationFactor float64 `yaml:"installation_factor" envconfig:"INSTALLATION_FACTOR" validate:"gt=0"`
	EngineeringRate    float64 `yaml:"engineering_rate" envconfig:"ENGINEERING_RATE" validate:"gte=0,lte=1"`
	ConstructionRate   float64 `yaml:"construction_rate" envconfig:"CONSTRUCTION_RATE" validate:"gte=0,lte=1"`
	ContingencyRate    float64 `yaml:"contingency_rate" envconfig:"CONTINGENCY_RATE" validate:"gte=0,lte=1"`

	DiscountRate     float64 `yaml:"discount_rate" envconfig:"DISCOUNT_RATE" validate:"gte=0,lte=1"`
	TaxRate          float64 `yaml:"tax_rate" envconfig:"TAX_RATE" validate:"gte=0,lte=1"`
	ProjectLifeYears int     `yaml:"project_life" envconfig:"PROJECT_LIFE" validate:"gt=0"`

	// RevenueFactor expresses assumed annual revenue as a multiple of annual
	// OPEX when no revenue figure is available from the source data.
	RevenueFactor float64 `yaml:"revenue_factor" envconfig:"REVENUE_FACTOR" validate:"gt=0"`

	SteamPriceUSDPerGJ        float64 `yaml:"steam_price_usd_per_gj" envconfig:"STEAM_PRICE_USD_PER_GJ" validate:"gte=0"`
	ElectricityPriceUSDPerKWh float64 `yaml:"electricity_price_usd_per_kwh" envconfig:"ELECTRICITY_PRICE_USD_PER_KWH" validate:"gte=0"`
	CoolingWaterPriceUSDPerM3 float64 `yaml:"cooling_water_price_usd_per_m3" envconfig:"COOLING_WATER_PRICE_USD_PER_M3" validate:"gte=0"`
	RawMaterialPriceUSDPerKg  float64 `yaml:"raw_material_price_usd_per_kg" envconfig:"RAW_MATERIAL_PRICE_USD_PER_KG" validate:"gte=0"`
	AnnualOperatingHours      float64 `yaml:"annual_operating_hours" envconfig:"ANNUAL_OPERATING_HOURS" validate:"gt=0"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		ProjectName: "Process TEA",
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/teacli.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			DBPath:     filepath.Join("data", "extraction.db"),
			ReportsDir: filepath.Join("data", "reports"),
			LogsDir:    "logs",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    100,
			RateLimitBurst:  50,
		},
		Economics: EconomicsConfig{
			InstallationFactor:        0.5,
			EngineeringRate:           0.12,
			ConstructionRate:          0.08,
			ContingencyRate:           0.15,
			DiscountRate:              0.10,
			TaxRate:                   0.25,
			ProjectLifeYears:          20,
			RevenueFactor:             1.3,
			SteamPriceUSDPerGJ:        15,
			ElectricityPriceUSDPerKWh: 0.08,
			CoolingWaterPriceUSDPerM3: 0.05,
			RawMaterialPriceUSDPerKg:  0.5,
			AnnualOperatingHours:      8760,
		},
	}
}

// Load builds the effective configuration. configFile may be empty; a named
// file that does not exist is an error, while the default location is
// allowed to be absent.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	explicit := configFile != ""
	if configFile == "" {
		configFile = "teacli.yaml"
	}

	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configFile, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file; defaults plus environment apply.
	default:
		return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
	}

	if err := envconfig.Process("TEA", &cfg); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}
