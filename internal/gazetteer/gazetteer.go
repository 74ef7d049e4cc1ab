// Package gazetteer holds the read-only tables of recognized place names and
// named road infrastructure used by the prompt parser.
package gazetteer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/smartroute/smartroute/internal/textnorm"
)

// ErrCapitalNotRegion is returned when the configured capital is missing from the regions.
var ErrCapitalNotRegion = errors.New("capital must be one of the regions")

// Kind identifies which table a name came from.
type Kind string

const (
	KindRegion   Kind = "region"
	KindDistrict Kind = "district"
	KindBridge   Kind = "bridge"
	KindHighway  Kind = "highway"
)

// Data is the raw, serializable form of a gazetteer.
type Data struct {
	Capital   string   `yaml:"capital" validate:"required"`
	Regions   []string `yaml:"regions" validate:"required,min=1,dive,required"`
	Districts []string `yaml:"districts" validate:"dive,required"`
	Bridges   []string `yaml:"bridges" validate:"dive,required"`
	Highways  []string `yaml:"highways" validate:"dive,required"`
}

// Entry is a gazetteer name with its precomputed folded forms.
type Entry struct {
	Name   string
	Kind   Kind
	Lower  string // Turkish lower-case, used for offset matching
	Key    string // Lower with ı merged into i, for place-name matching
	Folded string // diacritic-insensitive, used for loose matching
}

// Gazetteer is immutable after New and safe for concurrent reads.
type Gazetteer struct {
	capital   string
	regions   []Entry
	districts []Entry
	bridges   []Entry
	highways  []Entry
	byFold    map[string]Entry
}

// New validates d and builds a Gazetteer.
func New(d Data) (*Gazetteer, error) {
	if err := validator.New().Struct(d); err != nil {
		return nil, fmt.Errorf("invalid gazetteer data: %w", err)
	}

	g := &Gazetteer{
		capital:   d.Capital,
		regions:   entries(d.Regions, KindRegion),
		districts: entries(d.Districts, KindDistrict),
		bridges:   entries(d.Bridges, KindBridge),
		highways:  entries(d.Highways, KindHighway),
		byFold:    make(map[string]Entry),
	}

	capitalFound := false
	for _, e := range g.regions {
		if e.Folded == textnorm.Fold(d.Capital) {
			capitalFound = true
		}
	}
	if !capitalFound {
		return nil, ErrCapitalNotRegion
	}

	// Districts are registered first so a name present in both tables keeps
	// its district reading, matching the extraction priority.
	for _, e := range g.districts {
		g.byFold[e.Folded] = e
	}
	for _, e := range g.regions {
		if _, ok := g.byFold[e.Folded]; !ok {
			g.byFold[e.Folded] = e
		}
	}

	return g, nil
}

// Default returns the built-in Turkish gazetteer.
func Default() *Gazetteer {
	g, err := New(DefaultData())
	if err != nil {
		panic("gazetteer: built-in data is invalid: " + err.Error())
	}
	return g
}

func entries(names []string, kind Kind) []Entry {
	out := make([]Entry, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		folded := textnorm.Fold(n)
		if n == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		out = append(out, Entry{
			Name:   n,
			Kind:   kind,
			Lower:  textnorm.Lower(n),
			Key:    textnorm.Key(n),
			Folded: folded,
		})
	}
	return out
}

// Capital returns the region every district belongs to.
func (g *Gazetteer) Capital() string { return g.capital }

// Regions returns the top-level regions. The slice must not be modified.
func (g *Gazetteer) Regions() []Entry { return g.regions }

// Districts returns the capital's districts. The slice must not be modified.
func (g *Gazetteer) Districts() []Entry { return g.districts }

// Bridges returns the named bridges. The slice must not be modified.
func (g *Gazetteer) Bridges() []Entry { return g.bridges }

// Highways returns the named highways. The slice must not be modified.
func (g *Gazetteer) Highways() []Entry { return g.highways }

// Infrastructure returns bridges followed by highways.
func (g *Gazetteer) Infrastructure() []Entry {
	out := make([]Entry, 0, len(g.bridges)+len(g.highways))
	out = append(out, g.bridges...)
	return append(out, g.highways...)
}

// QualifyDistrict renders a district as "<district>, <capital>".
func (g *Gazetteer) QualifyDistrict(district string) string {
	return district + ", " + g.capital
}

// Lookup finds a region or district by a loosely matched name.
func (g *Gazetteer) Lookup(name string) (Entry, bool) {
	e, ok := g.byFold[textnorm.Fold(strings.TrimSpace(name))]
	return e, ok
}

// Resolve returns the display form of a loosely matched name: districts are
// qualified with the capital and regions are returned canonically.
func (g *Gazetteer) Resolve(name string) (string, bool) {
	e, ok := g.Lookup(name)
	if !ok {
		return "", false
	}
	if e.Kind == KindDistrict {
		return g.QualifyDistrict(e.Name), true
	}
	return e.Name, true
}

// LoadFile reads a YAML gazetteer overlay. Lists present in the file replace
// the corresponding lists of base; omitted lists are kept.
func LoadFile(path string, base Data) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("reading gazetteer file: %w", err)
	}

	var overlay Data
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return Data{}, fmt.Errorf("parsing gazetteer file: %w", err)
	}

	merged := base
	if overlay.Capital != "" {
		merged.Capital = overlay.Capital
	}
	if len(overlay.Regions) > 0 {
		merged.Regions = overlay.Regions
	}
	if len(overlay.Districts) > 0 {
		merged.Districts = overlay.Districts
	}
	if len(overlay.Bridges) > 0 {
		merged.Bridges = overlay.Bridges
	}
	if len(overlay.Highways) > 0 {
		merged.Highways = overlay.Highways
	}

	if err := validator.New().Struct(merged); err != nil {
		return Data{}, fmt.Errorf("invalid gazetteer file: %w", err)
	}
	return merged, nil
}
