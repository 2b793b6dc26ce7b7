// Package crs parses coordinate reference system definitions from WKT
// and scores how closely two definitions match.
package crs

import (
	"math"
	"strconv"
	"strings"
)

// Kind classifies a coordinate reference system.
type Kind int

const (
	KindUnknown Kind = iota
	KindGeographic
	KindProjected
)

func (k Kind) String() string {
	switch k {
	case KindGeographic:
		return "geographic"
	case KindProjected:
		return "projected"
	}
	return "unknown"
}

const (
	// Degree is the size of one degree in radians.
	Degree = math.Pi / 180
	// DefaultName is reported for definitions without a usable name.
	DefaultName = "unknown"
)

// Descriptor is the view of a CRS consumed by the resolver and annotator.
type Descriptor interface {
	// Name is the human readable CRS name.
	Name() string
	// IsProjected reports whether the CRS is projected rather than geographic.
	IsProjected() bool
	// WKT serializes the CRS definition.
	WKT() string
	// EPSG returns the EPSG code carried directly by the definition, if any.
	EPSG() (int, bool)
}

// Ellipsoid describes the reference ellipsoid. InvFlattening is 0 for a sphere.
type Ellipsoid struct {
	Name          string
	SemiMajor     float64 // metres
	InvFlattening float64
}

// Geodetic is the geographic part of a CRS: the whole definition of a
// geographic CRS, or the base of a projected one.
type Geodetic struct {
	Name          string
	Datum         string
	Ellipsoid     Ellipsoid
	PrimeMeridian float64 // degrees east of Greenwich
	AngularUnit   float64 // radians per unit
}

// Conversion is the map projection of a projected CRS.
// Method is a canonical method id (see Methods), Params holds canonical
// parameter names with angles in degrees and lengths in metres.
type Conversion struct {
	Method     string
	Params     map[string]float64
	LinearUnit float64 // metres per unit
}

// CRS is a parsed or catalog provided coordinate reference system.
type CRS struct {
	Geodetic   Geodetic
	Conversion *Conversion // nil unless projected

	name      string
	kind      Kind
	authority int
	wkt       string
}

var _ Descriptor = (*CRS)(nil)

// NewGeographic builds a geographic CRS. A positive code is used as its EPSG authority.
func NewGeographic(code int, g Geodetic) *CRS {
	if g.AngularUnit == 0 {
		g.AngularUnit = Degree
	}
	return &CRS{name: g.Name, kind: KindGeographic, authority: code, Geodetic: g}
}

// NewProjected builds a projected CRS over the given geographic base.
func NewProjected(code int, name string, base Geodetic, conv Conversion) *CRS {
	if base.AngularUnit == 0 {
		base.AngularUnit = Degree
	}
	if conv.LinearUnit == 0 {
		conv.LinearUnit = 1
	}
	return &CRS{name: name, kind: KindProjected, authority: code, Geodetic: base, Conversion: &conv}
}

// Opaque wraps WKT text that could not be interpreted. It keeps the raw
// text so callers can still show or re-parse it.
func Opaque(wkt string) *CRS {
	return &CRS{name: DefaultName, wkt: wkt}
}

// Name returns the CRS name.
func (c *CRS) Name() string {
	if c == nil || c.name == "" {
		return DefaultName
	}
	return c.name
}

// Kind returns the CRS kind.
func (c *CRS) Kind() Kind {
	if c == nil {
		return KindUnknown
	}
	return c.kind
}

// IsProjected reports whether c is a projected CRS.
func (c *CRS) IsProjected() bool {
	return c.Kind() == KindProjected
}

// EPSG returns the EPSG authority code of c, if it has one.
func (c *CRS) EPSG() (int, bool) {
	if c == nil || c.authority <= 0 {
		return 0, false
	}
	return c.authority, true
}

// WKT returns the source text for parsed definitions or a generated
// WKT1 definition for catalog entries.
func (c *CRS) WKT() string {
	if c == nil {
		return ""
	}
	if c.wkt != "" {
		return c.wkt
	}
	if n := c.Node(); n != nil {
		return n.String()
	}
	return ""
}

// PrettyWKT returns the definition as indented WKT. Text that does not
// parse is returned unchanged.
func (c *CRS) PrettyWKT() string {
	n, err := ParseNode(c.WKT())
	if err != nil {
		return c.WKT()
	}
	return n.Pretty()
}

// Node builds a WKT1 node tree for c. It returns nil for unknown kinds.
func (c *CRS) Node() *Node {
	switch c.Kind() {
	case KindGeographic:
		return geogcsNode(c.Geodetic, c.authority)
	case KindProjected:
		conv := c.Conversion
		args := []any{c.name, geogcsNode(c.Geodetic, 0)}
		args = append(args, NewNode("PROJECTION", methodWKTName(conv.Method, conv.Params)))
		for _, p := range paramOrder(conv.Params) {
			args = append(args, NewNode("PARAMETER", paramWKTName(conv.Method, p), paramWKTValue(p, conv)))
		}
		args = append(args, unitNode(conv.LinearUnit, "metre"))
		args = append(args,
			NewNode("AXIS", "Easting", Enum("EAST")),
			NewNode("AXIS", "Northing", Enum("NORTH")))
		if c.authority > 0 {
			args = append(args, NewNode("AUTHORITY", "EPSG", strconv.Itoa(c.authority)))
		}
		return NewNode("PROJCS", args...)
	}
	return nil
}

func geogcsNode(g Geodetic, code int) *Node {
	args := []any{
		g.Name,
		NewNode("DATUM", g.Datum,
			NewNode("SPHEROID", g.Ellipsoid.Name, g.Ellipsoid.SemiMajor, g.Ellipsoid.InvFlattening)),
		NewNode("PRIMEM", "Greenwich", g.PrimeMeridian),
		unitNode(g.AngularUnit, "degree"),
	}
	if code > 0 {
		args = append(args, NewNode("AUTHORITY", "EPSG", strconv.Itoa(code)))
	}
	return NewNode("GEOGCS", args...)
}

func unitNode(factor float64, name string) *Node {
	switch {
	case name == "degree" && math.Abs(factor-Degree) < 1e-15:
		return NewNode("UNIT", "degree", 0.0174532925199433)
	case name == "metre" && factor == 1:
		return NewNode("UNIT", "metre", 1)
	}
	return NewNode("UNIT", "unit", factor)
}

// paramWKTValue converts a canonical parameter back to WKT1 units:
// angles stay in degrees, lengths go to the linear unit.
func paramWKTValue(name string, conv *Conversion) float64 {
	v := conv.Params[name]
	if isLengthParam(name) && conv.LinearUnit > 0 {
		return v / conv.LinearUnit
	}
	return v
}

func trimName(s string) string {
	return strings.TrimSpace(s)
}
