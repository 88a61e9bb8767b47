// =============================================================================
// DIAN Invoice Consolidator - Configuration Module
// =============================================================================
//
// This module loads the run configuration: where invoices are picked up,
// where the report goes, which rule and catalog files apply and how the
// report is filtered.
//
// SOURCES (later sources override earlier ones):
//   1. Built-in defaults (the folder names the tool has always used)
//   2. The YAML configuration file (config.yaml, or --config)
//   3. A .env file in the working directory, if present
//   4. Environment variables prefixed with FACTURAS_, e.g.
//        FACTURAS_MAX_WORKERS=4
//        FACTURAS_REPORT_EXCLUDE_SUPPLIER_IDS=79389881,800111222
//
// All values are validated once after loading.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "FACTURAS"

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the run configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for ZIP archives delivered by billing providers.
	// Default: "./facturas_zip"
	InputDir string `mapstructure:"input_dir" validate:"required"`

	// XMLDir is scanned for loose XML invoices. Empty disables it.
	// Default: "./facturas_xml"
	XMLDir string `mapstructure:"xml_dir"`

	// OutputDir receives the consolidated workbook.
	// Default: "./resultados"
	OutputDir string `mapstructure:"output_dir" validate:"required"`

	// ArchiveDir receives processed inputs when archiving is enabled.
	// Default: "./procesados"
	ArchiveDir string `mapstructure:"archive_dir" validate:"required"`

	// LogDir receives the per-run error log and summary.
	// Default: "./logs"
	LogDir string `mapstructure:"log_dir" validate:"required"`

	// =========================================================================
	// RULE SETTINGS
	// =========================================================================

	// RulesFile is the supplier conversion table (.json, .yaml or .xlsx).
	// A missing file means no conversion.
	// Default: "./reglas_conversion.json"
	RulesFile string `mapstructure:"rules_file" validate:"required"`

	// ProductNamesFile maps raw product names to report names. Optional.
	// Default: "./normalizacion_productos.json"
	ProductNamesFile string `mapstructure:"product_names_file"`

	// ExactSupplierMatch disables supplier name folding: rule keys must
	// then match the invoice's registration name exactly.
	// Default: false
	ExactSupplierMatch bool `mapstructure:"exact_supplier_match"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat is the workbook file name.
	// Placeholders:
	//   {timestamp} - Run time (YYYYMMDD_HHMMSS)
	//   {date}      - Run date (YYYYMMDD)
	//   {uuid}      - A random UUID
	// Default: "facturas_consolidadas_{timestamp}.xlsx"
	OutputNameFormat string `mapstructure:"output_name_format" validate:"required,endswith=.xlsx"`

	// Report controls which records reach the workbook.
	Report ReportConfig `mapstructure:"report"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxWorkers is the number of documents processed at once.
	// Set to 1 for sequential processing.
	// Default: 1
	MaxWorkers int `mapstructure:"max_workers" validate:"min=1,max=64"`

	// ArchiveOnSuccess moves processed archives and XML files to ArchiveDir
	// once the report has been written.
	// Default: false
	ArchiveOnSuccess bool `mapstructure:"archive_on_success"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	// LogDevelopment switches to human-readable console logs.
	// Default: true
	LogDevelopment bool `mapstructure:"log_development"`
}

// ReportConfig holds the reporting exclusions.
type ReportConfig struct {
	// ExcludeSupplierIDs lists supplier NITs left out of the report.
	ExcludeSupplierIDs []string `mapstructure:"exclude_supplier_ids" validate:"dive,required"`

	// ExcludeProducts lists product types never reported (case-insensitive).
	ExcludeProducts []string `mapstructure:"exclude_products" validate:"dive,required"`

	// SkipZeroQuantity drops zero-quantity lines.
	SkipZeroQuantity bool `mapstructure:"skip_zero_quantity"`

	// IncludeDetails adds NIT, date, total and source columns.
	IncludeDetails bool `mapstructure:"include_details"`
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration.
//
// PARAMETERS:
//   - configPath: The configuration file. When empty, ./config.yaml is used
//     if it exists and defaults apply otherwise.
//
// RETURNS:
//   - The validated configuration.
//   - An error if the file cannot be read or a value is invalid.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

// setDefaults registers every key, which also makes AutomaticEnv see it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("input_dir", "./facturas_zip")
	v.SetDefault("xml_dir", "./facturas_xml")
	v.SetDefault("output_dir", "./resultados")
	v.SetDefault("archive_dir", "./procesados")
	v.SetDefault("log_dir", "./logs")

	v.SetDefault("rules_file", "./reglas_conversion.json")
	v.SetDefault("product_names_file", "./normalizacion_productos.json")
	v.SetDefault("exact_supplier_match", false)

	v.SetDefault("output_name_format", "facturas_consolidadas_{timestamp}.xlsx")
	v.SetDefault("report.exclude_supplier_ids", []string{})
	v.SetDefault("report.exclude_products", []string{})
	v.SetDefault("report.skip_zero_quantity", false)
	v.SetDefault("report.include_details", false)

	v.SetDefault("max_workers", 1)
	v.SetDefault("archive_on_success", false)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", true)
}

var structValidator = newValidator()

// newValidator reports fields by their configuration key.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validate checks the struct tags and reports every failing key.
func validate(cfg *Config) error {
	err := structValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", keyName(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// keyName drops the struct name: "Config.report.exclude_products[0]"
// becomes "report.exclude_products[0]".
func keyName(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
