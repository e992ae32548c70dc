// Package config loads typeof configuration files.
//
// A configuration file is YAML or JSON, selected by extension:
//
//	# .typeof.yaml
//	exportedOnly: true
//	nameTag: json
//	tagAnnotations: [validate, db]
//	maxDepth: 16
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Names of the configuration files looked up by LoadDir, in order.
var FileNames = []string{".typeof.yaml", ".typeof.yml", ".typeof.json"}

// Config controls how descriptors are built and how files are rewritten.
type Config struct {
	// ExportedOnly limits members to exported fields and methods.
	ExportedOnly bool `yaml:"exportedOnly" json:"exportedOnly"`

	// NameTag is a struct tag key whose first option renames members,
	// e.g. "json". A value of "-" drops the member.
	NameTag string `yaml:"nameTag" json:"nameTag" validate:"omitempty,alphanum"`

	// TagAnnotations are struct tag keys turned into annotations. The tag
	// value is split on commas: `validate:"min=1,max=5"` becomes
	// validate: ["min=1", "max=5"].
	TagAnnotations []string `yaml:"tagAnnotations" json:"tagAnnotations" validate:"dive,alphanum"`

	// DirectivePrefix introduces annotation comments.
	DirectivePrefix string `yaml:"directivePrefix" json:"directivePrefix" validate:"required,startswith=//,endswith=:"`

	// MaxDepth bounds descriptor nesting.
	MaxDepth int `yaml:"maxDepth" json:"maxDepth" validate:"gte=1,lte=1024"`

	// Jobs is the number of files rewritten concurrently; 0 means GOMAXPROCS.
	Jobs int `yaml:"jobs" json:"jobs" validate:"gte=0"`

	// Tests includes test files.
	Tests bool `yaml:"tests" json:"tests"`

	// BuildFlags are passed to the package loader, e.g. ["-tags=integration"].
	BuildFlags []string `yaml:"buildFlags" json:"buildFlags" validate:"dive,startswith=-"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ExportedOnly:    true,
		DirectivePrefix: "//typeof:",
		MaxDepth:        32,
	}
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Load reads the configuration file at path over the defaults and
// validates the result.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parsing YAML config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parsing JSON config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &c); err != nil {
			if err := json.Unmarshal(data, &c); err != nil {
				return c, fmt.Errorf("unable to parse config %s as YAML or JSON", path)
			}
		}
	}

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadDir loads the first of FileNames present in dir, or returns the
// defaults when there is none.
func LoadDir(dir string) (Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return Default(), fmt.Errorf("stat config: %w", err)
		}
	}
	return Default(), nil
}
