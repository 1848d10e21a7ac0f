// Package safety flags offensive text with a configurable phrase blacklist.
package safety

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed blacklist.yaml
var defaultBlacklist []byte

// Config is the YAML blacklist format.
type Config struct {
	// Threshold is how many blacklisted phrases make a text offensive.
	Threshold  int                 `yaml:"threshold" validate:"gte=1"`
	Categories map[string][]string `yaml:"categories" validate:"required,min=1,dive,keys,required,endkeys,dive,required"`
}

type Filter struct {
	threshold int
	phrases   map[string]string
	pattern   *regexp.Regexp
}

// Load reads a blacklist file. An empty path loads the built-in list.
func Load(path string) (*Filter, error) {
	data := defaultBlacklist
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, oops.Errorf("failed to read blacklist %s: %w", path, err)
		}
		data = raw
	}
	return Parse(data)
}

func Parse(data []byte) (*Filter, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, oops.Errorf("failed to parse blacklist: %w", err)
	}
	return New(cfg)
}

func New(cfg Config) (*Filter, error) {
	if cfg.Threshold == 0 {
		cfg.Threshold = 1
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, oops.Errorf("invalid blacklist: %w", err)
	}

	f := &Filter{threshold: cfg.Threshold, phrases: map[string]string{}}
	var alts []string
	for category, phrases := range cfg.Categories {
		for _, p := range phrases {
			p = strings.ToLower(strings.TrimSpace(p))
			f.phrases[p] = category
			alts = append(alts, regexp.QuoteMeta(p))
		}
	}
	// Longest first so multi-word phrases win over their prefixes.
	sort.Slice(alts, func(i, j int) bool {
		if len(alts[i]) != len(alts[j]) {
			return len(alts[i]) > len(alts[j])
		}
		return alts[i] < alts[j]
	})
	pattern, err := regexp.Compile(`\b(?:` + strings.Join(alts, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("compile blacklist: %w", err)
	}
	f.pattern = pattern
	return f, nil
}

// Matches returns the blacklisted phrases found in text.
func (f *Filter) Matches(text string) []string {
	if f == nil {
		return nil
	}
	return f.pattern.FindAllString(strings.ToLower(text), -1)
}

// Offensive reports whether text reaches the threshold.
func (f *Filter) Offensive(text string) bool {
	if f == nil {
		return false
	}
	return len(f.Matches(text)) >= f.threshold
}

// Category returns the category of a blacklisted phrase.
func (f *Filter) Category(phrase string) string {
	return f.phrases[strings.ToLower(phrase)]
}
