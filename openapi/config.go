package openapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("openapi: invalid configuration")

// Config controls the generated document and the documentation endpoints.
type Config struct {
	// OpenAPIPath is where the JSON document is served. The YAML twin is
	// served next to it with a .yaml extension.
	OpenAPIPath string `mapstructure:"openapi_path" validate:"required,startswith=/"`
	// UIPath is the base path of the documentation UI.
	UIPath string `mapstructure:"ui_path" validate:"required,startswith=/"`

	Title          string        `mapstructure:"title" validate:"required"`
	Version        string        `mapstructure:"version" validate:"required"`
	Description    string        `mapstructure:"description"`
	TermsOfService string        `mapstructure:"terms_of_service" validate:"omitempty,url"`
	Contact        ContactConfig `mapstructure:"contact"`
	License        LicenseConfig `mapstructure:"license"`
	Servers        []string      `mapstructure:"servers" validate:"dive,uri"`

	// BearerAuth adds an HTTP bearer (JWT) security scheme required by
	// every operation.
	BearerAuth bool `mapstructure:"bearer_auth"`
	// APIKeyHeader, when set, adds a header API key security scheme
	// required by every operation.
	APIKeyHeader string `mapstructure:"api_key_header"`

	// ObserveResponses enables recording of live response codes.
	ObserveResponses bool `mapstructure:"observe_responses"`
	// Include500WhenObserved adds 500 to preset and observed code sets.
	Include500WhenObserved bool `mapstructure:"include_500_when_observed"`

	HierarchyMode   HierarchyMode     `mapstructure:"hierarchy_mode"`
	TagDescriptions map[string]string `mapstructure:"tag_descriptions"`
	Presets         []Preset          `mapstructure:"presets" validate:"dive"`
}

// ContactConfig is the info.contact block.
type ContactConfig struct {
	Name  string `mapstructure:"name"`
	URL   string `mapstructure:"url" validate:"omitempty,url"`
	Email string `mapstructure:"email" validate:"omitempty,email"`
}

// LicenseConfig is the info.license block. It is emitted only when Name is
// set.
type LicenseConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url" validate:"omitempty,url"`
}

// Preset pins the published response codes of one operation.
type Preset struct {
	Method string `mapstructure:"method" validate:"required"`
	Path   string `mapstructure:"path" validate:"required,startswith=/"`
	Codes  []int  `mapstructure:"codes" validate:"required,dive,min=100,max=599"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		OpenAPIPath:      "/openapi.json",
		UIPath:           "/swagger",
		Title:            "API",
		Version:          "1.0.0",
		ObserveResponses: true,
		HierarchyMode:    HierarchyPath,
	}
}

// Preset pins the response codes published for method and path.
func (c *Config) Preset(method, path string, codes ...int) *Config {
	c.Presets = append(c.Presets, Preset{Method: method, Path: path, Codes: codes})
	return c
}

// Tag sets the description of a tag.
func (c *Config) Tag(name, description string) *Config {
	if c.TagDescriptions == nil {
		c.TagDescriptions = make(map[string]string)
	}
	c.TagDescriptions[name] = description
	return c
}

// Validate checks the configuration and returns an error wrapping
// ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// YAMLPath returns the path of the YAML document.
func (c *Config) YAMLPath() string {
	return strings.TrimSuffix(c.OpenAPIPath, ".json") + ".yaml"
}

// presetCodes returns the preset for method and pattern. When several
// presets match, the last one wins.
func (c *Config) presetCodes(method, pattern string) []int {
	for i := len(c.Presets) - 1; i >= 0; i-- {
		p := c.Presets[i]
		if p.Method == method && p.Path == pattern {
			return p.Codes
		}
	}
	return nil
}

// normalize canonicalizes paths, methods and the hierarchy mode in place.
func (c *Config) normalize() {
	c.OpenAPIPath = ensureSlash(c.OpenAPIPath)
	c.UIPath = strings.TrimRight(ensureSlash(c.UIPath), "/")
	if c.UIPath == "" {
		c.UIPath = "/"
	}
	c.HierarchyMode = ParseHierarchyMode(string(c.HierarchyMode))
	for i := range c.Presets {
		c.Presets[i].Method = strings.ToUpper(strings.TrimSpace(c.Presets[i].Method))
		c.Presets[i].Path = ensureSlash(c.Presets[i].Path)
	}
}

func ensureSlash(p string) string {
	if p == "" || strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

// LoadConfig layers DefaultConfig, the YAML file at path (when not empty)
// and environment variables starting with envPrefix (when not empty).
// Environment names map to keys by dropping the prefix, lowercasing and
// turning "__" into a nesting level, so ROUTEDOC_CONTACT__EMAIL sets
// contact.email.
func LoadConfig(path, envPrefix string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load configuration file: %w", err)
		}
	}

	if envPrefix != "" {
		if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
			s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
			return strings.ReplaceAll(s, "__", ".")
		}), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
