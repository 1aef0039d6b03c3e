package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/cognicore/reverie/pkg/reverie/internalerr"
)

// EnvPrefix marks environment variables read into Settings.
const EnvPrefix = "REVERIE_"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

const defaultSettings = `
store:
  driver: memory
llm:
  enabled: false
  timeout: 15s
  breaker_failures: 3
  breaker_timeout: 30s
cluster:
  min_size: 2
  max_clusters: 8
  threshold: 0.25
  location: Local
recap:
  window_days: 7
search:
  threshold: 0.1
  related_threshold: 0.2
  related_limit: 5
log:
  level: info
  format: json
server:
  addr: ":8080"
  read_timeout: 15s
  write_timeout: 30s
`

// Settings is the process configuration.
type Settings struct {
	Store     StoreSettings    `koanf:"store"`
	LLM       LLMSettings      `koanf:"llm"`
	Cluster   ClusterSettings  `koanf:"cluster"`
	Recap     RecapSettings    `koanf:"recap"`
	Search    SearchSettings   `koanf:"search"`
	Log       LogSettings      `koanf:"log"`
	Server    ServerSettings   `koanf:"server"`
	Resources ResourceSettings `koanf:"resources"`
}

// StoreSettings selects the persistence backend.
type StoreSettings struct {
	Driver string `koanf:"driver" validate:"oneof=memory sqlite"`
	Path   string `koanf:"path"`
}

// LLMSettings configures the optional remote assistant.
type LLMSettings struct {
	Enabled         bool          `koanf:"enabled"`
	BaseURL         string        `koanf:"base_url" validate:"omitempty,url"`
	APIKey          string        `koanf:"api_key"`
	Model           string        `koanf:"model"`
	Timeout         time.Duration `koanf:"timeout" validate:"gte=0"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gte=0"`
}

type ClusterSettings struct {
	MinSize     int     `koanf:"min_size" validate:"gte=1"`
	MaxClusters int     `koanf:"max_clusters" validate:"gte=1"`
	Threshold   float64 `koanf:"threshold" validate:"gte=0,lte=1"`
	Location    string  `koanf:"location"`
}

type RecapSettings struct {
	WindowDays int `koanf:"window_days" validate:"gte=1"`
}

type SearchSettings struct {
	Threshold        float64 `koanf:"threshold" validate:"gte=0,lte=1"`
	RelatedThreshold float64 `koanf:"related_threshold" validate:"gte=0,lte=1"`
	RelatedLimit     int     `koanf:"related_limit" validate:"gte=1"`
}

type LogSettings struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type ServerSettings struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type ResourceSettings struct {
	StoplistPath string `koanf:"stoplist_path"`
	LexiconPath  string `koanf:"lexicon_path"`
}

// LoadSettings layers the built-in defaults, the YAML file at path (skipped
// when path is empty) and REVERIE_* environment variables, in that order.
//
// Environment variables split on the first underscore after the prefix:
//
//	REVERIE_LLM_BASE_URL -> llm.base_url
//	REVERIE_CLUSTER_MIN_SIZE -> cluster.min_size
func LoadSettings(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaultSettings)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load default settings: %w", err)
	}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read settings file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load settings file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	applyDefaults(&s)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// applyDefaults fills zero values that a settings file may have blanked.
func applyDefaults(s *Settings) {
	if s.Store.Driver == "" {
		s.Store.Driver = DriverMemory
	}
	if s.LLM.Timeout == 0 {
		s.LLM.Timeout = 15 * time.Second
	}
	if s.LLM.BreakerFailures == 0 {
		s.LLM.BreakerFailures = 3
	}
	if s.LLM.BreakerTimeout == 0 {
		s.LLM.BreakerTimeout = 30 * time.Second
	}
	if s.Cluster.Location == "" {
		s.Cluster.Location = "Local"
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.Log.Format == "" {
		s.Log.Format = "json"
	}
	if s.Server.Addr == "" {
		s.Server.Addr = ":8080"
	}
}

var settingsValidator = validator.New()

// Validate checks field ranges and cross-field rules. Failures wrap
// ErrInvalidConfig.
func (s *Settings) Validate() error {
	if err := settingsValidator.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %s=%s (got %v)",
				internalerr.ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}

	if s.Store.Driver == DriverSQLite && s.Store.Path == "" {
		return fmt.Errorf("%w: store.path is required for the sqlite driver", internalerr.ErrInvalidConfig)
	}
	if s.LLM.Enabled && (s.LLM.BaseURL == "" || s.LLM.Model == "") {
		return fmt.Errorf("%w: llm.base_url and llm.model are required when llm is enabled", internalerr.ErrInvalidConfig)
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the cluster time zone.
func (s *Settings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Cluster.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: cluster.location: %v", internalerr.ErrInvalidConfig, err)
	}
	return loc, nil
}
