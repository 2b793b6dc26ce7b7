package crs

import "strings"

// datumAliases folds datum spellings used by EPSG, OGC WKT1 (GDAL) and
// ESRI .prj files onto one key. Keys are compacted names.
var datumAliases = map[string]string{
	"worldgeodeticsystem1984":                           "wgs1984",
	"wgs84":                                             "wgs1984",
	"northamericandatum1983":                            "northamerican1983",
	"nad83":                                             "northamerican1983",
	"northamericandatum1927":                            "northamerican1927",
	"nad27":                                             "northamerican1927",
	"europeanterrestrialreferencesystem1989":            "etrs1989",
	"etrs89":                                            "etrs1989",
	"europeandatum1950":                                 "european1950",
	"ed50":                                              "european1950",
	"chinageodeticcoordinatesystem2000":                 "china2000",
	"cgcs2000":                                          "china2000",
	"geocentricdatumofaustralia1994":                    "gda1994",
	"gda94":                                             "gda1994",
	"geocentricdatumofaustralia2020":                    "gda2020",
	"ordnancesurveyofgreatbritain1936":                  "osgb1936",
	"osgb36":                                            "osgb1936",
	"newzealandgeodeticdatum2000":                       "nzgd2000",
	"reseaugeodesiquefrancais1993":                      "rgf1993",
	"reseaugeodesiquefrancais1993v1":                    "rgf1993",
	"rgf93":                                             "rgf1993",
	"rgf93v1":                                           "rgf1993",
	"sistemadereferenciageocentricoparaasamericas2000":  "sirgas2000",
	"sistemadereferenciageocentricoparalasamericas2000": "sirgas2000",
	"japanesegeodeticdatum2000":                         "jgd2000",
	"japanesegeodeticdatum2011":                         "jgd2011",
	"deutscheshauptdreiecksnetz":                        "dhdn",
	"amersfoort":                                        "amersfoort",
}

// nameReplacements shorten spellings that differ between EPSG and ESRI
// CRS names, applied to compacted names.
var nameReplacements = []struct{ from, to string }{
	{"gausskruger", "gk"},
	{"wgs1984", "wgs84"},
	{"nad1983", "nad83"},
	{"nad1927", "nad27"},
	{"etrs1989", "etrs89"},
	{"gda1994", "gda94"},
	{"britishnationalgrid", "bng"},
}

// DatumKey normalizes a datum name: ESRI "D_" prefix, punctuation, case and
// a trailing "ensemble" are dropped and known aliases are folded.
func DatumKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimPrefix(s, "d_")
	s = compact(s)
	s = strings.TrimSuffix(s, "ensemble")
	if a, ok := datumAliases[s]; ok {
		return a
	}
	return s
}

// SameDatum reports whether two datum names denote the same datum.
func SameDatum(a, b string) bool {
	ka, kb := DatumKey(a), DatumKey(b)
	if ka == "" || kb == "" {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) && strings.TrimSpace(a) != ""
	}
	return ka == kb
}

// NameKey normalizes a CRS name for loose comparison.
func NameKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimPrefix(s, "gcs_")
	s = compact(s)
	for _, r := range nameReplacements {
		s = strings.ReplaceAll(s, r.from, r.to)
	}
	return s
}

func sameCRSName(a, b string) bool {
	ka, kb := NameKey(a), NameKey(b)
	if ka == "" || kb == "" {
		// names without latin letters or digits compare verbatim
		return strings.TrimSpace(a) != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return ka == kb
}
