package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"runtime"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	PatcherConfig struct {
		BlockKeyword      string   `yaml:"block_keyword" validate:"required,excludesall={}"`
		Marker            string   `yaml:"marker" validate:"required"`
		TargetEntry       string   `yaml:"target_entry" validate:"required,excludesall=/"`
		FragmentNames     []string `yaml:"fragment_names" validate:"dive,required,excludesall=/"`
		ArchiveExtensions []string `yaml:"archive_extensions" validate:"dive,required,startswith=."`
	}

	ProcessingConfig struct {
		// 0 - use number of logical CPUs
		Workers      int    `yaml:"workers" validate:"gte=0,lte=256"`
		ErrorLog     string `yaml:"error_log" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
		ErrorLogMode string `yaml:"error_log_mode" validate:"oneof=append overwrite"`
	}

	JournalConfig struct {
		Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	}

	Config struct {
		Version    int              `yaml:"version" validate:"eq=1"`
		Patcher    PatcherConfig    `yaml:"patcher"`
		Processing ProcessingConfig `yaml:"processing"`
		Journal    JournalConfig    `yaml:"journal"`
		Logging    LoggingConfig    `yaml:"logging"`
		Reporting  ReporterConfig   `yaml:"reporting"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("configuration sanitization failed: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}

// EffectiveWorkers returns size of the worker pool to use.
func (conf *ProcessingConfig) EffectiveWorkers() int {
	if conf.Workers > 0 {
		return conf.Workers
	}
	return runtime.NumCPU()
}
