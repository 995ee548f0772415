// Package indicators defines the known well-being indicators, their value range,
// per-value descriptions and colour banding policy.
package indicators

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// RangeLow is the lowest value any indicator accepts.
	RangeLow = 0
	// RangeHigh is the highest value any indicator accepts.
	RangeHigh = 10
	// UnknownDescription is returned for indicators missing from the catalog.
	UnknownDescription = "Unknown"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Indicator is a catalog-defined, bounded well-being metric.
type Indicator struct {
	Name         string
	Polarity     Polarity
	Descriptions []string
}

// Describe returns the label for value. Values outside the range are clamped.
func (i Indicator) Describe(value int) string {
	return i.Descriptions[Clamp(value)-RangeLow]
}

// LookupError reports an indicator name that the catalog does not define.
type LookupError struct {
	Name string
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("indicators: unknown indicator %q", e.Name)
}

// Catalog is an immutable set of indicators keyed by name.
type Catalog struct {
	ordered []Indicator
	byName  map[string]int
}

type catalogDocument struct {
	Indicators []struct {
		Name         string   `yaml:"name"`
		Polarity     string   `yaml:"polarity"`
		Descriptions []string `yaml:"descriptions"`
	} `yaml:"indicators"`
}

// Default returns the catalog embedded at build time.
func Default() *Catalog {
	defaultOnce.Do(func() {
		catalog, err := Parse(defaultCatalogYAML)
		if err != nil {
			panic(fmt.Sprintf("indicators: embedded catalog invalid: %v", err))
		}
		defaultCatalog = catalog
	})
	return defaultCatalog
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("indicators: decode catalog: %w", err)
	}
	defs := make([]Indicator, 0, len(doc.Indicators))
	for _, raw := range doc.Indicators {
		polarity, err := parsePolarity(strings.TrimSpace(raw.Polarity))
		if err != nil {
			return nil, fmt.Errorf("%w (indicator %q)", err, raw.Name)
		}
		defs = append(defs, Indicator{
			Name:         raw.Name,
			Polarity:     polarity,
			Descriptions: raw.Descriptions,
		})
	}
	return New(defs)
}

// New validates the definitions and builds a catalog preserving their order.
func New(defs []Indicator) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, errors.New("indicators: catalog is empty")
	}
	want := RangeHigh - RangeLow + 1
	c := &Catalog{
		ordered: make([]Indicator, 0, len(defs)),
		byName:  make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, errors.New("indicators: indicator name is required")
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("indicators: duplicate indicator %q", name)
		}
		if !def.Polarity.Valid() {
			return nil, fmt.Errorf("indicators: unknown polarity %q (indicator %q)", def.Polarity, name)
		}
		if len(def.Descriptions) != want {
			return nil, fmt.Errorf("indicators: %q has %d descriptions, want %d", name, len(def.Descriptions), want)
		}
		for i, desc := range def.Descriptions {
			if strings.TrimSpace(desc) == "" {
				return nil, fmt.Errorf("indicators: %q description for %d is empty", name, RangeLow+i)
			}
		}
		descriptions := make([]string, len(def.Descriptions))
		copy(descriptions, def.Descriptions)
		c.byName[name] = len(c.ordered)
		c.ordered = append(c.ordered, Indicator{Name: name, Polarity: def.Polarity, Descriptions: descriptions})
	}
	return c, nil
}

// Indicators returns the catalog entries in definition order.
func (c *Catalog) Indicators() []Indicator {
	out := make([]Indicator, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Lookup returns the indicator called name or a *LookupError.
func (c *Catalog) Lookup(name string) (Indicator, error) {
	idx, ok := c.byName[name]
	if !ok {
		return Indicator{}, &LookupError{Name: name}
	}
	return c.ordered[idx], nil
}

// Describe returns the human-readable label for value, or UnknownDescription when name is not catalogued.
func (c *Catalog) Describe(name string, value int) string {
	ind, err := c.Lookup(name)
	if err != nil {
		return UnknownDescription
	}
	return ind.Describe(value)
}

// Color returns the band for value. Unknown names use DefaultPolarity.
func (c *Catalog) Color(name string, value int) Band {
	return c.PolarityOf(name).Band(value)
}

// PolarityOf returns the polarity of name, falling back to DefaultPolarity.
func (c *Catalog) PolarityOf(name string) Polarity {
	ind, err := c.Lookup(name)
	if err != nil {
		return DefaultPolarity
	}
	return ind.Polarity
}

// Clamp forces value into [RangeLow, RangeHigh].
func Clamp(value int) int {
	if value < RangeLow {
		return RangeLow
	}
	if value > RangeHigh {
		return RangeHigh
	}
	return value
}

// InRange reports whether value lies within [RangeLow, RangeHigh].
func InRange(value int) bool {
	return value >= RangeLow && value <= RangeHigh
}
