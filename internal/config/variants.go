package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/park285/vaticano-chess/internal/chess"
	"github.com/park285/vaticano-chess/internal/rating"
)

//go:embed variants.yaml
var defaultVariants []byte

// Variant is one playable rule set.
type Variant struct {
	Name           string  `yaml:"name"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	Start          string  `yaml:"start"`
	KFactor        float64 `yaml:"k_factor"`
	DefaultElo     int     `yaml:"default_elo"`
	MinElo         int     `yaml:"min_elo"`
	TimeControlSec float64 `yaml:"time_control_sec"`
	IncrementSec   float64 `yaml:"increment_sec"`
}

// Board parses the starting layout.
func (v Variant) Board() (*chess.Board, error) {
	return chess.ParseNotation(v.Start, v.Width, v.Height)
}

func (v Variant) RatingPolicy() rating.Policy {
	return rating.Policy{KFactor: v.KFactor, DefaultElo: v.DefaultElo, MinElo: v.MinElo}
}

type VariantTable struct {
	byName map[string]Variant
}

type variantFile struct {
	Variants []Variant `yaml:"variants"`
}

// LoadVariants reads path, or the embedded table when path is empty.
func LoadVariants(path string) (*VariantTable, error) {
	raw := defaultVariants
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read variants file: %w", err)
		}
		raw = b
	}
	return ParseVariants(raw)
}

func ParseVariants(raw []byte) (*VariantTable, error) {
	var f variantFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse variants: %w", err)
	}
	t := &VariantTable{byName: make(map[string]Variant, len(f.Variants))}
	for _, v := range f.Variants {
		v.Name = strings.TrimSpace(v.Name)
		if v.Name == "" {
			return nil, fmt.Errorf("variant without name")
		}
		if _, dup := t.byName[v.Name]; dup {
			return nil, fmt.Errorf("duplicate variant %q", v.Name)
		}
		if v.Width == 0 {
			v.Width = chess.DefaultWidth
		}
		if v.Height == 0 {
			v.Height = chess.DefaultHeight
		}
		if v.Start == "" {
			v.Start = chess.DefaultStart
		}
		if v.KFactor <= 0 {
			v.KFactor = rating.DefaultKFactor
		}
		if v.DefaultElo <= 0 {
			v.DefaultElo = rating.DefaultElo
		}
		if v.MinElo <= 0 {
			v.MinElo = rating.DefaultMinElo
		}
		if v.TimeControlSec < 0 || v.IncrementSec < 0 {
			return nil, fmt.Errorf("variant %q: negative time settings", v.Name)
		}
		if _, err := v.Board(); err != nil {
			return nil, fmt.Errorf("variant %q: %w", v.Name, err)
		}
		t.byName[v.Name] = v
	}
	if len(t.byName) == 0 {
		return nil, fmt.Errorf("no variants defined")
	}
	return t, nil
}

func (t *VariantTable) Get(name string) (Variant, bool) {
	v, ok := t.byName[strings.TrimSpace(name)]
	return v, ok
}

// Names lists variant names in sorted order.
func (t *VariantTable) Names() []string {
	out := make([]string, 0, len(t.byName))
	for n := range t.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Policies returns the rating policy of every variant.
func (t *VariantTable) Policies() map[string]rating.Policy {
	out := make(map[string]rating.Policy, len(t.byName))
	for n, v := range t.byName {
		out[n] = v.RatingPolicy()
	}
	return out
}
