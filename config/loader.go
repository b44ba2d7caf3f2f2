package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultEnv is used when no environment is selected.
	DefaultEnv = "test"

	// DefaultRegion is used when no region is selected.
	DefaultRegion = "cn"
)

var (
	// ErrConfigNotFound is returned when the selected settings file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrMissingVariable is returned when a ${NAME} placeholder has no value.
	ErrMissingVariable = errors.New("environment variable not set")
)

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// LookupFunc resolves an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(name string) (string, bool)

// Selection picks one settings file.
type Selection struct {
	Env    string
	Region string
}

// SelectionFromEnv reads TEST_ENV and TEST_REGION through lookup.
func SelectionFromEnv(lookup LookupFunc) Selection {
	var s Selection
	if lookup != nil {
		s.Env, _ = lookup("TEST_ENV")
		s.Region, _ = lookup("TEST_REGION")
	}
	return s.withDefaults()
}

func (s Selection) withDefaults() Selection {
	if s.Env == "" {
		s.Env = DefaultEnv
	}
	if s.Region == "" {
		s.Region = DefaultRegion
	}
	return s
}

// Path returns the settings file for s under dir.
func (s Selection) Path(dir string) string {
	s = s.withDefaults()
	return filepath.Join(dir, "environments", s.Region, s.Env+".yaml")
}

// Settings holds the resolved configuration for one selection.
type Settings struct {
	// Selection is the env/region this was loaded for
	Selection Selection `yaml:"-"`

	// API configures the client under test
	API API `yaml:"api"`

	// Database and Redis are passed through to the suites that need them
	Database map[string]any `yaml:"database"`
	Redis    map[string]any `yaml:"redis"`

	// TestAccounts holds credentials and fixtures keyed by account name
	TestAccounts map[string]any `yaml:"test_accounts"`

	raw map[string]any
}

// API configures the timed HTTP client.
type API struct {
	BaseURL            string            `yaml:"base_url"`
	Headers            map[string]string `yaml:"headers"`
	Timeout            Duration          `yaml:"timeout"`
	InsecureSkipVerify bool              `yaml:"insecure_skip_verify"`
}

// RegionSpecific returns the top-level value stored under key, or an empty
// map when the key is absent.
func (s *Settings) RegionSpecific(key string) any {
	if v, ok := s.raw[key]; ok {
		return v
	}
	return map[string]any{}
}

// Duration accepts Go duration strings ("1.5s") or plain numbers of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}

	if parsed, err := time.ParseDuration(s); err == nil {
		*d = Duration(parsed)
		return nil
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, s)
	}
	*d = Duration(seconds * float64(time.Second))
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LoadOption configures Load.
type LoadOption func(*loader)

type loader struct {
	lookup LookupFunc
}

// WithLookup resolves ${NAME} placeholders with fn instead of os.LookupEnv.
func WithLookup(fn LookupFunc) LoadOption {
	return func(l *loader) { l.lookup = fn }
}

// Load reads the settings file selected by sel under dir.
func Load(dir string, sel Selection, opts ...LoadOption) (*Settings, error) {
	sel = sel.withDefaults()
	settings, err := LoadFile(sel.Path(dir), opts...)
	if err != nil {
		return nil, err
	}
	settings.Selection = sel
	return settings, nil
}

// LoadFile reads one settings file.
func LoadFile(path string, opts ...LoadOption) (*Settings, error) {
	l := loader{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&l)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	if err := substitute(&doc, l.lookup); err != nil {
		return nil, fmt.Errorf("error resolving config file %s: %w", path, err)
	}

	settings := &Settings{}
	if len(doc.Content) == 0 {
		settings.raw = map[string]any{}
		return settings, nil
	}
	if err := doc.Decode(settings); err != nil {
		return nil, fmt.Errorf("error decoding config file %s: %w", path, err)
	}
	if err := doc.Decode(&settings.raw); err != nil {
		return nil, fmt.Errorf("error decoding config file %s: %w", path, err)
	}
	return settings, nil
}

// substitute expands placeholders in every string value below node.
// Mapping keys are left alone.
func substitute(node *yaml.Node, lookup LookupFunc) error {
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			if err := substitute(child, lookup); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 1; i < len(node.Content); i += 2 {
			if err := substitute(node.Content[i], lookup); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		if node.Tag != "!!str" {
			return nil
		}
		value, err := Expand(node.Value, lookup)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		node.Value = value
	}
	return nil
}

// Expand replaces every ${NAME} in s with its value from lookup.
func Expand(s string, lookup LookupFunc) (string, error) {
	var missing error
	expanded := placeholder.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		value, ok := lookup(name)
		if !ok {
			if missing == nil {
				missing = fmt.Errorf("%w: %s", ErrMissingVariable, name)
			}
			return match
		}
		return value
	})
	if missing != nil {
		return "", missing
	}
	return expanded, nil
}
