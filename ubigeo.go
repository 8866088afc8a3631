// Package ubigeo resolves and searches a three-level administrative
// hierarchy (region > subregion > locality) held entirely in memory.
//
// The shipped dataset covers Peru (departamento > provincia > distrito) and
// is embedded in the binary; a different dataset with the same YAML layout
// can be supplied with WithDataFile or WithData.
package ubigeo

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/peru.yaml
var embeddedDataset []byte

// ErrInvalidDataset is returned by New when the dataset breaks the tree
// invariants (empty names, duplicate siblings, empty levels).
var ErrInvalidDataset = errors.New("invalid hierarchy dataset")

// Config contains options for loading a Hierarchy.
type Config struct {
	DataFile string // YAML dataset on disk; empty means the embedded dataset
	Data     []byte // raw YAML dataset; takes precedence over DataFile
}

// Option is a functional option for configuring New.
type Option func(*Config)

// WithDataFile loads the hierarchy from a YAML file instead of the embedded
// dataset.
func WithDataFile(path string) Option {
	return func(c *Config) {
		c.DataFile = path
	}
}

// WithData loads the hierarchy from an in-memory YAML document.
func WithData(b []byte) Option {
	return func(c *Config) {
		c.Data = b
	}
}

// Hierarchy is an immutable region > subregion > locality tree. It is safe
// for concurrent use and never changes after New returns.
type Hierarchy struct {
	country    string
	levelNames [3]string
	regions    []region
}

type region struct {
	name string
	norm string
	subs []subRegion
}

type subRegion struct {
	name       string
	norm       string
	localities []locality
}

type locality struct {
	name string
	norm string
}

// dataset mirrors the YAML layout of data/peru.yaml.
type dataset struct {
	Country string `yaml:"country"`
	Levels  struct {
		Region    string `yaml:"region"`
		SubRegion string `yaml:"subregion"`
		Locality  string `yaml:"locality"`
	} `yaml:"levels"`
	Regions []struct {
		Name       string `yaml:"name"`
		SubRegions []struct {
			Name       string   `yaml:"name"`
			Localities []string `yaml:"localities"`
		} `yaml:"subregions"`
	} `yaml:"regions"`
}

// New loads a Hierarchy. Without options the embedded Peru dataset is used.
//
// Example:
//
//	h, err := ubigeo.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range h.Search("miraflores") {
//	    fmt.Println(r.DisplayLabel)
//	}
func New(opts ...Option) (*Hierarchy, error) {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}

	raw, err := cfg.read()
	if err != nil {
		return nil, err
	}
	ds, err := decodeDataset(raw)
	if err != nil {
		return nil, err
	}
	if issues := ds.check(); len(issues) > 0 {
		if len(issues) == 1 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidDataset, issues[0])
		}
		return nil, fmt.Errorf("%w: %s (and %d more)", ErrInvalidDataset, issues[0], len(issues)-1)
	}
	return ds.build(), nil
}

// Shared Hierarchy built from the embedded dataset.
var (
	defaultHierarchy     *Hierarchy
	defaultHierarchyOnce sync.Once
	defaultHierarchyErr  error
)

// Default returns a shared Hierarchy over the embedded dataset, building it
// on first call.
func Default() (*Hierarchy, error) {
	defaultHierarchyOnce.Do(func() {
		defaultHierarchy, defaultHierarchyErr = New()
	})
	return defaultHierarchy, defaultHierarchyErr
}

func (c *Config) read() ([]byte, error) {
	switch {
	case c.Data != nil:
		return c.Data, nil
	case c.DataFile != "":
		b, err := os.ReadFile(c.DataFile)
		if err != nil {
			return nil, fmt.Errorf("reading dataset %s: %w", c.DataFile, err)
		}
		return b, nil
	}
	return embeddedDataset, nil
}

func decodeDataset(b []byte) (*dataset, error) {
	var ds dataset
	if err := yaml.Unmarshal(b, &ds); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	return &ds, nil
}

func (ds *dataset) build() *Hierarchy {
	h := &Hierarchy{
		country: ds.Country,
		levelNames: [3]string{
			orDefault(ds.Levels.Region, LevelRegion.String()),
			orDefault(ds.Levels.SubRegion, LevelSubRegion.String()),
			orDefault(ds.Levels.Locality, LevelLocality.String()),
		},
		regions: make([]region, 0, len(ds.Regions)),
	}
	for _, dr := range ds.Regions {
		r := region{name: clean(dr.Name), subs: make([]subRegion, 0, len(dr.SubRegions))}
		r.norm = Normalize(r.name)
		for _, dsr := range dr.SubRegions {
			sr := subRegion{name: clean(dsr.Name), localities: make([]locality, 0, len(dsr.Localities))}
			sr.norm = Normalize(sr.name)
			for _, name := range dsr.Localities {
				l := locality{name: clean(name)}
				l.norm = Normalize(l.name)
				sr.localities = append(sr.localities, l)
			}
			r.subs = append(r.subs, sr)
		}
		h.regions = append(h.regions, r)
	}
	return h
}

// clean trims a dataset label and collapses inner whitespace while keeping
// its original casing and accents.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orDefault(s, def string) string {
	if s = clean(s); s == "" {
		return def
	}
	return s
}

// Country returns the dataset's country label (e.g. "Perú").
func (h *Hierarchy) Country() string {
	return h.country
}

// LevelName returns the dataset's name for a level, e.g. "distrito" for
// LevelLocality in the Peru dataset.
func (h *Hierarchy) LevelName(l Level) string {
	if l < LevelRegion || l > LevelLocality {
		return l.String()
	}
	return h.levelNames[l]
}

// findRegion returns the region whose normalized name equals norm.
func (h *Hierarchy) findRegion(norm string) *region {
	for i := range h.regions {
		if h.regions[i].norm == norm {
			return &h.regions[i]
		}
	}
	return nil
}

func (r *region) findSubRegion(norm string) *subRegion {
	for i := range r.subs {
		if r.subs[i].norm == norm {
			return &r.subs[i]
		}
	}
	return nil
}

func (sr *subRegion) findLocality(norm string) *locality {
	for i := range sr.localities {
		if sr.localities[i].norm == norm {
			return &sr.localities[i]
		}
	}
	return nil
}
