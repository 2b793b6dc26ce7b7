package epsg

import (
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/woozymasta/shp2geojson/internal/crs"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var registryYAML []byte

type registryFile struct {
	Ellipsoids map[string]struct {
		Name string  `yaml:"name"`
		A    float64 `yaml:"a"`
		RF   float64 `yaml:"rf"`
	} `yaml:"ellipsoids"`

	Geographic []struct {
		Name      string `yaml:"name"`
		Datum     string `yaml:"datum"`
		Ellipsoid string `yaml:"ellipsoid"`
		Code      int    `yaml:"code"`
	} `yaml:"geographic"`

	Projected []struct {
		Params map[string]float64 `yaml:"params"`
		Name   string             `yaml:"name"`
		Method string             `yaml:"method"`
		Code   int                `yaml:"code"`
		Base   int                `yaml:"base"`
	} `yaml:"projected"`

	Series []struct {
		Params        map[string]float64 `yaml:"params"`
		Name          string             `yaml:"name"`
		Method        string             `yaml:"method,omitempty"`
		Zones         []int              `yaml:"zones"`
		Code          int                `yaml:"code"`
		Base          int                `yaml:"base"`
		FirstMeridian float64            `yaml:"first_meridian"`
		Step          float64            `yaml:"step"`
		ZoneEasting   bool               `yaml:"zone_easting,omitempty"`
	} `yaml:"series"`
}

// Registry is an in-memory catalog.
type Registry struct {
	byCode     map[int]*crs.CRS
	geographic []*crs.CRS
	projected  []*crs.CRS
}

var (
	builtinOnce sync.Once
	builtin     *Registry
	builtinErr  error
)

// Builtin returns the catalog compiled into the binary. It panics if the
// embedded registry is malformed, which is a build defect.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		builtin, builtinErr = LoadRegistry(registryYAML)
	})
	if builtinErr != nil {
		panic(fmt.Sprintf("epsg: embedded registry: %v", builtinErr))
	}
	return builtin
}

// LoadRegistry builds a registry from YAML in the registry.yaml layout.
func LoadRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	r := &Registry{byCode: map[int]*crs.CRS{}}
	bases := map[int]crs.Geodetic{}

	for _, g := range file.Geographic {
		e, ok := file.Ellipsoids[g.Ellipsoid]
		if !ok {
			return nil, fmt.Errorf("EPSG:%d: unknown ellipsoid %q", g.Code, g.Ellipsoid)
		}
		geod := crs.Geodetic{
			Name:        g.Name,
			Datum:       g.Datum,
			Ellipsoid:   crs.Ellipsoid{Name: e.Name, SemiMajor: e.A, InvFlattening: e.RF},
			AngularUnit: crs.Degree,
		}
		bases[g.Code] = geod
		if err := r.add(crs.NewGeographic(g.Code, geod)); err != nil {
			return nil, err
		}
	}

	for _, p := range file.Projected {
		base, ok := bases[p.Base]
		if !ok {
			return nil, fmt.Errorf("EPSG:%d: unknown base EPSG:%d", p.Code, p.Base)
		}
		conv := crs.Conversion{Method: p.Method, Params: copyParams(p.Params), LinearUnit: 1}
		if err := r.add(crs.NewProjected(p.Code, p.Name, base, conv)); err != nil {
			return nil, err
		}
	}

	for _, s := range file.Series {
		base, ok := bases[s.Base]
		if !ok {
			return nil, fmt.Errorf("series %q: unknown base EPSG:%d", s.Name, s.Base)
		}
		if len(s.Zones) != 2 || s.Zones[0] > s.Zones[1] {
			return nil, fmt.Errorf("series %q: zones must be [first, last]", s.Name)
		}
		method := s.Method
		if method == "" {
			method = crs.MethodTransverseMercator
		}

		for zone := s.Zones[0]; zone <= s.Zones[1]; zone++ {
			i := zone - s.Zones[0]
			params := copyParams(s.Params)
			cm := s.FirstMeridian + float64(i)*s.Step
			params[crs.ParamLonOrigin] = cm
			if s.ZoneEasting {
				params[crs.ParamFalseEast] = float64(zone)*1e6 + 500000
			}

			name := strings.NewReplacer(
				"{zone}", strconv.Itoa(zone),
				"{cm}", meridianLabel(cm),
			).Replace(s.Name)

			conv := crs.Conversion{Method: method, Params: params, LinearUnit: 1}
			if err := r.add(crs.NewProjected(s.Code+i, name, base, conv)); err != nil {
				return nil, err
			}
		}
	}

	sortByCode(r.geographic)
	sortByCode(r.projected)
	return r, nil
}

func (r *Registry) add(c *crs.CRS) error {
	code, _ := c.EPSG()
	if _, dup := r.byCode[code]; dup {
		return fmt.Errorf("duplicate EPSG:%d", code)
	}
	r.byCode[code] = c
	if c.IsProjected() {
		r.projected = append(r.projected, c)
	} else {
		r.geographic = append(r.geographic, c)
	}
	return nil
}

// Len returns the number of definitions in the registry.
func (r *Registry) Len() int {
	return len(r.byCode)
}

// Lookup implements Catalog.
func (r *Registry) Lookup(code int) (*crs.CRS, error) {
	c, ok := r.byCode[code]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCode, code)
	}
	return c, nil
}

// Candidates implements Catalog.
func (r *Registry) Candidates(kind crs.Kind) ([]*crs.CRS, error) {
	switch kind {
	case crs.KindGeographic:
		return r.geographic, nil
	case crs.KindProjected:
		return r.projected, nil
	}
	return nil, nil
}

// Close implements Catalog.
func (r *Registry) Close() error {
	return nil
}

// meridianLabel formats a central meridian as in EPSG names, e.g. 117E or 3W.
func meridianLabel(cm float64) string {
	suffix := "E"
	if cm < 0 {
		suffix = "W"
	}
	return strconv.FormatFloat(math.Abs(cm), 'f', -1, 64) + suffix
}

func copyParams(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortByCode(list []*crs.CRS) {
	sort.Slice(list, func(i, j int) bool {
		a, _ := list[i].EPSG()
		b, _ := list[j].EPSG()
		return a < b
	})
}
