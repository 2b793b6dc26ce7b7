package shapefile

import (
	"fmt"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// geometry converts a shapefile record to an orb geometry. Z and M values
// are dropped. Null shapes return nil.
func geometry(s shp.Shape) (orb.Geometry, error) {
	switch v := s.(type) {
	case nil, *shp.Null:
		return nil, nil

	case *shp.Point:
		return orb.Point{v.X, v.Y}, nil
	case *shp.PointZ:
		return orb.Point{v.X, v.Y}, nil
	case *shp.PointM:
		return orb.Point{v.X, v.Y}, nil

	case *shp.MultiPoint:
		return multiPoint(v.Points), nil
	case *shp.MultiPointZ:
		return multiPoint(v.Points), nil
	case *shp.MultiPointM:
		return multiPoint(v.Points), nil

	case *shp.PolyLine:
		return lines(v.Parts, v.Points), nil
	case *shp.PolyLineZ:
		return lines(v.Parts, v.Points), nil
	case *shp.PolyLineM:
		return lines(v.Parts, v.Points), nil

	case *shp.Polygon:
		return polygons(v.Parts, v.Points), nil
	case *shp.PolygonZ:
		return polygons(v.Parts, v.Points), nil
	case *shp.PolygonM:
		return polygons(v.Parts, v.Points), nil
	}

	return nil, fmt.Errorf("unsupported shape type %T", s)
}

func multiPoint(points []shp.Point) orb.Geometry {
	switch len(points) {
	case 0:
		return nil
	case 1:
		return orb.Point{points[0].X, points[0].Y}
	}

	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.X, p.Y}
	}
	return mp
}

// split cuts the point array at the part offsets.
func split(parts []int32, points []shp.Point) [][]orb.Point {
	out := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}

		part := make([]orb.Point, 0, end-start)
		for _, p := range points[start:end] {
			part = append(part, orb.Point{p.X, p.Y})
		}
		if len(part) > 0 {
			out = append(out, part)
		}
	}
	return out
}

func lines(parts []int32, points []shp.Point) orb.Geometry {
	segs := split(parts, points)
	switch len(segs) {
	case 0:
		return nil
	case 1:
		return orb.LineString(segs[0])
	}

	mls := make(orb.MultiLineString, len(segs))
	for i, part := range segs {
		mls[i] = orb.LineString(part)
	}
	return mls
}

// polygons groups shapefile rings into polygons. Clockwise rings are shells,
// counter-clockwise rings are holes of the shell that contains them. Output
// rings follow RFC 7946: shells counter-clockwise, holes clockwise.
func polygons(parts []int32, points []shp.Point) orb.Geometry {
	var (
		shells []orb.Polygon
		holes  []orb.Ring
	)

	for _, part := range split(parts, points) {
		ring := closeRing(orb.Ring(part))
		if ring.Orientation() == orb.CCW {
			holes = append(holes, ring)
			continue
		}
		shells = append(shells, orb.Polygon{ring})
	}

	for _, hole := range holes {
		owner := -1
		for i, shell := range shells {
			if planar.RingContains(shell[0], hole[0]) {
				owner = i
				break
			}
		}
		if owner < 0 {
			// an orphan hole is kept as a shell of its own
			shells = append(shells, orb.Polygon{hole})
			continue
		}
		shells[owner] = append(shells[owner], hole)
	}

	for _, p := range shells {
		for i, ring := range p {
			want := orb.CW
			if i == 0 {
				want = orb.CCW
			}
			if ring.Orientation() != want {
				p[i] = reversed(ring)
			}
		}
	}

	switch len(shells) {
	case 0:
		return nil
	case 1:
		return shells[0]
	}
	return orb.MultiPolygon(shells)
}

func closeRing(r orb.Ring) orb.Ring {
	if len(r) > 0 && !r.Closed() {
		r = append(r, r[0])
	}
	return r
}

func reversed(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	copy(out, r)
	out.Reverse()
	return out
}
