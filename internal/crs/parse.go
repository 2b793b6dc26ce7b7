package crs

import (
	"strconv"
	"strings"
)

// Parse interprets WKT1 (OGC or ESRI flavor) or WKT2 text.
// Malformed text returns ErrInvalidWKT. Well-formed definitions of other
// kinds (compound, geocentric, engineering) parse to KindUnknown.
func Parse(wkt string) (*CRS, error) {
	root, err := ParseNode(wkt)
	if err != nil {
		return nil, err
	}

	c := &CRS{
		name:      trimName(root.Text(0)),
		authority: authorityCode(root),
		wkt:       strings.TrimSpace(wkt),
	}

	switch strings.ToUpper(root.Keyword) {
	case "GEOGCS", "GEOGCRS", "GEOGRAPHICCRS":
		c.kind = KindGeographic
		c.Geodetic = parseGeodetic(root)

	case "GEODCRS", "GEODETICCRS":
		// geocentric definitions share the keyword but use a Cartesian CS
		if cs := root.Child("CS"); cs != nil && !strings.EqualFold(cs.Text(0), "ellipsoidal") {
			return c, nil
		}
		c.kind = KindGeographic
		c.Geodetic = parseGeodetic(root)

	case "PROJCS", "PROJCRS", "PROJECTEDCRS":
		c.kind = KindProjected
		base := root.Child("GEOGCS", "BASEGEOGCRS", "BASEGEODCRS", "GEODCRS")
		c.Geodetic = parseGeodetic(base)
		c.Conversion = parseConversion(root, c.Geodetic.AngularUnit)
		if c.Conversion.Method == MethodMercator && pseudoMercatorExtension(root, c.Geodetic.Ellipsoid) {
			c.Conversion.Method = MethodWebMercator
		}
	}

	return c, nil
}

// authorityCode reads AUTHORITY["EPSG","4326"] (WKT1) or ID["EPSG",4326] (WKT2).
func authorityCode(n *Node) int {
	for _, kw := range []string{"AUTHORITY", "ID"} {
		for _, a := range n.Children(kw) {
			if !strings.EqualFold(a.Text(0), "EPSG") {
				continue
			}
			if code, err := strconv.Atoi(strings.TrimSpace(a.Text(1))); err == nil && code > 0 {
				return code
			}
		}
	}
	return 0
}

func parseGeodetic(n *Node) Geodetic {
	g := Geodetic{AngularUnit: Degree}
	if n == nil {
		return g
	}
	g.Name = trimName(n.Text(0))

	if u := unitFactor(n, "UNIT", "ANGLEUNIT"); u > 0 {
		g.AngularUnit = u
	} else if u := axisUnit(n, "UNIT", "ANGLEUNIT"); u > 0 {
		g.AngularUnit = u
	}

	datum := n.Child("DATUM", "GEODETICDATUM", "TRF", "ENSEMBLE")
	if datum != nil {
		g.Datum = trimName(datum.Text(0))
	}

	if e := datum.Child("SPHEROID", "ELLIPSOID"); e != nil {
		g.Ellipsoid.Name = trimName(e.Text(0))
		g.Ellipsoid.SemiMajor, _ = e.Number(1)
		g.Ellipsoid.InvFlattening, _ = e.Number(2)
		if u := unitFactor(e, "LENGTHUNIT", "UNIT"); u > 0 {
			g.Ellipsoid.SemiMajor *= u
		}
	} else if e := n.Child("ELLIPSOID", "SPHEROID"); e != nil {
		// some WKT2 producers put the ellipsoid next to the datum ensemble
		g.Ellipsoid.Name = trimName(e.Text(0))
		g.Ellipsoid.SemiMajor, _ = e.Number(1)
		g.Ellipsoid.InvFlattening, _ = e.Number(2)
	}

	if pm := n.Child("PRIMEM", "PRIMEMERIDIAN"); pm != nil {
		v, _ := pm.Number(1)
		unit := g.AngularUnit
		if u := unitFactor(pm, "ANGLEUNIT", "UNIT"); u > 0 {
			unit = u
		}
		g.PrimeMeridian = v * unit / Degree
	}

	return g
}

func parseConversion(root *Node, angular float64) *Conversion {
	conv := &Conversion{LinearUnit: 1, Params: map[string]float64{}}

	if u := unitFactor(root, "UNIT", "LENGTHUNIT"); u > 0 {
		conv.LinearUnit = u
	} else if u := axisUnit(root, "LENGTHUNIT", "UNIT"); u > 0 {
		conv.LinearUnit = u
	}

	holder := root
	if c := root.Child("CONVERSION", "DERIVINGCONVERSION"); c != nil {
		holder = c
	}
	if m := holder.Child("PROJECTION", "METHOD"); m != nil {
		conv.Method = CanonicalMethod(m.Text(0))
	}

	for _, p := range holder.Children("PARAMETER") {
		name, ok := CanonicalParam(conv.Method, p.Text(0))
		if !ok {
			continue
		}
		v, ok := p.Number(1)
		if !ok {
			continue
		}

		switch {
		case isAngleParam(name):
			unit := angular
			if u := unitFactor(p, "ANGLEUNIT", "UNIT"); u > 0 {
				unit = u
			}
			v = v * unit / Degree
		case isLengthParam(name):
			unit := conv.LinearUnit
			if u := unitFactor(p, "LENGTHUNIT", "UNIT"); u > 0 {
				unit = u
			}
			v *= unit
		default:
			if u := unitFactor(p, "SCALEUNIT"); u > 0 {
				v *= u
			}
		}
		conv.Params[name] = v
	}

	return conv
}

// pseudoMercatorExtension reports whether a WKT1 Mercator definition is the
// GDAL spelling of Web Mercator: a PROJ4 extension projecting on a sphere
// of the semi-major axis while the base datum stays ellipsoidal.
func pseudoMercatorExtension(root *Node, base Ellipsoid) bool {
	ext := root.Child("EXTENSION")
	if ext == nil || !strings.EqualFold(strings.TrimSpace(ext.Text(0)), "PROJ4") {
		return false
	}

	args := map[string]string{}
	for _, f := range strings.Fields(ext.Text(1)) {
		k, v, _ := strings.Cut(strings.TrimPrefix(f, "+"), "=")
		args[strings.ToLower(k)] = v
	}
	if args["proj"] != "merc" {
		return false
	}
	if args["nadgrids"] == "@null" {
		return true
	}

	a, errA := strconv.ParseFloat(args["a"], 64)
	b, errB := strconv.ParseFloat(args["b"], 64)
	return errA == nil && errB == nil && a == b && base.InvFlattening != 0
}

// unitFactor returns the conversion factor of the first direct unit child.
func unitFactor(n *Node, keywords ...string) float64 {
	u := n.Child(keywords...)
	if u == nil {
		return 0
	}
	f, _ := u.Number(1)
	return f
}

// axisUnit returns the unit factor declared on the first axis (WKT2 style),
// looking inside a CS node when axes are nested there.
func axisUnit(n *Node, keywords ...string) float64 {
	axes := n.Children("AXIS")
	if cs := n.Child("CS"); len(axes) == 0 && cs != nil {
		axes = cs.Children("AXIS")
	}
	for _, a := range axes {
		if f := unitFactor(a, keywords...); f > 0 {
			return f
		}
	}
	return 0
}
