package crs

import (
	"math"
	"strings"
)

// Confidence levels reported by Confidence.
const (
	ConfidenceIdentical  = 100 // equivalent, identical names
	ConfidenceSameName   = 90  // equivalent, names equal once normalized
	ConfidenceEquivalent = 70  // equivalent, names differ
	ConfidenceSameGrid   = 50  // projected: same projection and ellipsoid, datum differs
	ConfidenceNameOnly   = 25  // not equivalent, names equal once normalized
)

const (
	semiMajorTolerance = 1e-3 // metres
	invFlatTolerance   = 1e-6
	angleTolerance     = 1e-7 // degrees
	lengthTolerance    = 1e-3 // metres
	unitTolerance      = 1e-12
)

// Confidence scores how well candidate matches c, from 0 to 100.
// Kinds must agree; the scale follows PROJ's identification levels.
func Confidence(c, candidate *CRS) int {
	if c == nil || candidate == nil || c.Kind() == KindUnknown || c.Kind() != candidate.Kind() {
		return 0
	}

	nameScore := func() int {
		switch {
		case strings.EqualFold(strings.TrimSpace(c.Name()), strings.TrimSpace(candidate.Name())):
			return ConfidenceIdentical
		case sameCRSName(c.Name(), candidate.Name()):
			return ConfidenceSameName
		}
		return ConfidenceEquivalent
	}

	switch c.Kind() {
	case KindGeographic:
		if equivalentGeodetic(c.Geodetic, candidate.Geodetic) {
			return nameScore()
		}

	case KindProjected:
		sameGrid := sameConversion(c.Conversion, candidate.Conversion) &&
			sameEllipsoid(c.Geodetic.Ellipsoid, candidate.Geodetic.Ellipsoid) &&
			nearly(c.Geodetic.PrimeMeridian, candidate.Geodetic.PrimeMeridian, angleTolerance)
		if sameGrid && equivalentGeodetic(c.Geodetic, candidate.Geodetic) {
			return nameScore()
		}
		if sameGrid {
			return ConfidenceSameGrid
		}
	}

	if sameCRSName(c.Name(), candidate.Name()) {
		return ConfidenceNameOnly
	}
	return 0
}

func equivalentGeodetic(a, b Geodetic) bool {
	return sameEllipsoid(a.Ellipsoid, b.Ellipsoid) &&
		nearly(a.PrimeMeridian, b.PrimeMeridian, angleTolerance) &&
		nearly(a.AngularUnit, b.AngularUnit, unitTolerance) &&
		SameDatum(a.Datum, b.Datum)
}

func sameEllipsoid(a, b Ellipsoid) bool {
	if a.SemiMajor <= 0 || b.SemiMajor <= 0 {
		return false
	}
	return nearly(a.SemiMajor, b.SemiMajor, semiMajorTolerance) &&
		nearly(a.InvFlattening, b.InvFlattening, invFlatTolerance)
}

func sameConversion(a, b *Conversion) bool {
	if a == nil || b == nil || a.Method == "" || a.Method != b.Method {
		return false
	}
	if !nearly(a.LinearUnit, b.LinearUnit, unitTolerance) {
		return false
	}

	keys := map[string]struct{}{}
	for k := range a.Params {
		keys[k] = struct{}{}
	}
	for k := range b.Params {
		keys[k] = struct{}{}
	}

	for k := range keys {
		tol := 1e-9
		switch {
		case isAngleParam(k):
			tol = angleTolerance
		case isLengthParam(k):
			tol = lengthTolerance
		}
		if !nearly(paramValue(a, k), paramValue(b, k), tol) {
			return false
		}
	}
	return true
}

func paramValue(c *Conversion, name string) float64 {
	if v, ok := c.Params[name]; ok {
		return v
	}
	return paramDefaults[name]
}

func nearly(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
