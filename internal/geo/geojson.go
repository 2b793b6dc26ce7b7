// Package geo builds GeoJSON documents, annotates them with a named CRS and
// writes them to disk.
package geo

import (
	"strconv"

	"github.com/paulmach/orb/geojson"
)

// URNPrefix is the OGC URN prefix of EPSG coordinate reference systems.
const URNPrefix = "urn:ogc:def:crs:EPSG::"

// Document is a GeoJSON feature collection with the optional, pre RFC 7946
// "crs" member. CRS is declared last so that a document without it encodes
// to the same bytes as one that never had it.
type Document struct {
	Type     string             `json:"type"`
	Features []*geojson.Feature `json:"features"`
	CRS      *NamedCRS          `json:"crs,omitempty"`
}

// NamedCRS is the GeoJSON 2008 named CRS object:
// {"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::4326"}}.
type NamedCRS struct {
	Type       string          `json:"type"`
	Properties NamedProperties `json:"properties"`
}

// NamedProperties holds the name of a NamedCRS.
type NamedProperties struct {
	Name string `json:"name"`
}

// NewDocument returns a feature collection over features.
func NewDocument(features []*geojson.Feature) Document {
	if features == nil {
		features = []*geojson.Feature{}
	}
	return Document{Type: "FeatureCollection", Features: features}
}

// EPSGURN formats an EPSG code as an OGC URN.
func EPSGURN(code int) string {
	return URNPrefix + strconv.Itoa(code)
}

// NewNamedCRS returns the named CRS member for an EPSG code.
func NewNamedCRS(code int) *NamedCRS {
	return &NamedCRS{
		Type:       "name",
		Properties: NamedProperties{Name: EPSGURN(code)},
	}
}
