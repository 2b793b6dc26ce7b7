package crs

import (
	"sort"
	"strings"
)

// Canonical projection method ids.
const (
	MethodTransverseMercator = "tmerc"
	MethodMercator           = "merc"
	MethodWebMercator        = "webmerc"
	MethodLambertConic1SP    = "lcc1sp"
	MethodLambertConic2SP    = "lcc"
	MethodAlbers             = "aea"
	MethodLambertAzimuthal   = "laea"
	MethodObliqueStereo      = "sterea"
)

// Canonical parameter names.
const (
	ParamLatOrigin  = "lat_0"
	ParamLonOrigin  = "lon_0"
	ParamScale      = "k_0"
	ParamFalseEast  = "x_0"
	ParamFalseNorth = "y_0"
	ParamLat1       = "lat_1"
	ParamLat2       = "lat_2"
	ParamLatTrueSc  = "lat_ts"
)

// methodAliases maps normalized WKT1 (OGC and ESRI) and WKT2/EPSG method
// names to canonical ids.
var methodAliases = map[string]string{
	"transversemercator":                 MethodTransverseMercator,
	"gausskruger":                        MethodTransverseMercator,
	"mercator":                           MethodMercator,
	"mercator1sp":                        MethodMercator,
	"mercator2sp":                        MethodMercator,
	"mercatorvarianta":                   MethodMercator,
	"mercatorvariantb":                   MethodMercator,
	"mercatorauxiliarysphere":            MethodWebMercator,
	"popularvisualisationpseudomercator": MethodWebMercator,
	"pseudomercator":                     MethodWebMercator,
	"lambertconformalconic1sp":           MethodLambertConic1SP,
	"lambertconicconformal1sp":           MethodLambertConic1SP,
	"lambertconformalconic":              MethodLambertConic2SP,
	"lambertconformalconic2sp":           MethodLambertConic2SP,
	"lambertconicconformal2sp":           MethodLambertConic2SP,
	"albers":                             MethodAlbers,
	"albersconicequalarea":               MethodAlbers,
	"albersequalarea":                    MethodAlbers,
	"lambertazimuthalequalarea":          MethodLambertAzimuthal,
	"obliquestereographic":               MethodObliqueStereo,
	"doublestereographic":                MethodObliqueStereo,
}

// EPSGMethods maps EPSG coordinate operation method codes to canonical ids.
var EPSGMethods = map[int]string{
	9807: MethodTransverseMercator,
	9804: MethodMercator,
	9805: MethodMercator,
	1024: MethodWebMercator,
	9801: MethodLambertConic1SP,
	9802: MethodLambertConic2SP,
	9822: MethodAlbers,
	9820: MethodLambertAzimuthal,
	9809: MethodObliqueStereo,
}

// EPSGParams maps EPSG parameter codes to canonical names.
// 8823 is the first standard parallel, which Mercator calls lat_ts.
var EPSGParams = map[int]string{
	8801: ParamLatOrigin,
	8802: ParamLonOrigin,
	8805: ParamScale,
	8806: ParamFalseEast,
	8807: ParamFalseNorth,
	8811: ParamLatOrigin,
	8812: ParamLonOrigin,
	8821: ParamLatOrigin,
	8822: ParamLonOrigin,
	8823: ParamLat1,
	8824: ParamLat2,
	8826: ParamFalseEast,
	8827: ParamFalseNorth,
}

var paramAliases = map[string]string{
	"latitudeoforigin":              ParamLatOrigin,
	"latitudeofcenter":              ParamLatOrigin,
	"latitudeofcentre":              ParamLatOrigin,
	"latitudeofnaturalorigin":       ParamLatOrigin,
	"latitudeoffalseorigin":         ParamLatOrigin,
	"latitudeofprojectioncentre":    ParamLatOrigin,
	"centralmeridian":               ParamLonOrigin,
	"longitudeoforigin":             ParamLonOrigin,
	"longitudeofcenter":             ParamLonOrigin,
	"longitudeofcentre":             ParamLonOrigin,
	"longitudeofnaturalorigin":      ParamLonOrigin,
	"longitudeoffalseorigin":        ParamLonOrigin,
	"longitudeofprojectioncentre":   ParamLonOrigin,
	"scalefactor":                   ParamScale,
	"scalefactoratnaturalorigin":    ParamScale,
	"falseeasting":                  ParamFalseEast,
	"eastingatfalseorigin":          ParamFalseEast,
	"falsenorthing":                 ParamFalseNorth,
	"northingatfalseorigin":         ParamFalseNorth,
	"standardparallel1":             ParamLat1,
	"latitudeof1ststandardparallel": ParamLat1,
	"standardparallel2":             ParamLat2,
	"latitudeof2ndstandardparallel": ParamLat2,
}

// ignoredParams carry no geometric meaning for matching.
var ignoredParams = map[string]bool{
	"auxiliaryspheretype": true,
}

// paramDefaults apply when a definition omits a parameter.
var paramDefaults = map[string]float64{
	ParamScale: 1,
}

// CanonicalMethod returns the canonical id for a method name, or the
// normalized name itself when the method is not known.
func CanonicalMethod(name string) string {
	key := compact(name)
	if m, ok := methodAliases[key]; ok {
		return m
	}
	return key
}

// CanonicalParam returns the canonical name for a parameter of the given
// method. Unknown parameters keep their normalized name.
func CanonicalParam(method, name string) (string, bool) {
	key := compact(name)
	if ignoredParams[key] {
		return "", false
	}
	p, ok := paramAliases[key]
	if !ok {
		return key, true
	}
	return AdjustParam(method, p), true
}

// AdjustParam maps method specific meanings onto canonical names.
func AdjustParam(method, param string) string {
	if method == MethodMercator && param == ParamLat1 {
		return ParamLatTrueSc
	}
	return param
}

// isLengthParam reports whether a canonical parameter is a length.
func isLengthParam(name string) bool {
	return name == ParamFalseEast || name == ParamFalseNorth
}

// isAngleParam reports whether a canonical parameter is an angle.
func isAngleParam(name string) bool {
	switch name {
	case ParamLatOrigin, ParamLonOrigin, ParamLat1, ParamLat2, ParamLatTrueSc:
		return true
	}
	return false
}

var methodWKTNames = map[string]string{
	MethodTransverseMercator: "Transverse_Mercator",
	MethodWebMercator:        "Popular_Visualisation_Pseudo_Mercator",
	MethodLambertConic1SP:    "Lambert_Conformal_Conic_1SP",
	MethodLambertConic2SP:    "Lambert_Conformal_Conic_2SP",
	MethodAlbers:             "Albers_Conic_Equal_Area",
	MethodLambertAzimuthal:   "Lambert_Azimuthal_Equal_Area",
	MethodObliqueStereo:      "Oblique_Stereographic",
}

func methodWKTName(method string, params map[string]float64) string {
	if method == MethodMercator {
		if _, ok := params[ParamLatTrueSc]; ok {
			return "Mercator_2SP"
		}
		return "Mercator_1SP"
	}
	if n, ok := methodWKTNames[method]; ok {
		return n
	}
	return method
}

var paramWKTNames = map[string]string{
	ParamLatOrigin:  "latitude_of_origin",
	ParamLonOrigin:  "central_meridian",
	ParamScale:      "scale_factor",
	ParamFalseEast:  "false_easting",
	ParamFalseNorth: "false_northing",
	ParamLat1:       "standard_parallel_1",
	ParamLat2:       "standard_parallel_2",
	ParamLatTrueSc:  "standard_parallel_1",
}

func paramWKTName(method, param string) string {
	if method == MethodAlbers || method == MethodLambertAzimuthal {
		switch param {
		case ParamLatOrigin:
			return "latitude_of_center"
		case ParamLonOrigin:
			return "longitude_of_center"
		}
	}
	if n, ok := paramWKTNames[param]; ok {
		return n
	}
	return param
}

var paramRank = map[string]int{
	ParamLat1:       0,
	ParamLat2:       1,
	ParamLatTrueSc:  2,
	ParamLatOrigin:  3,
	ParamLonOrigin:  4,
	ParamScale:      5,
	ParamFalseEast:  6,
	ParamFalseNorth: 7,
}

func paramOrder(params map[string]float64) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, okI := paramRank[keys[i]]
		rj, okJ := paramRank[keys[j]]
		switch {
		case okI && okJ:
			return ri < rj
		case okI != okJ:
			return okI
		}
		return keys[i] < keys[j]
	})
	return keys
}

// compact lower-cases s and drops everything except letters and digits.
func compact(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
