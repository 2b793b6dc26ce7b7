package geo

import (
	"fmt"

	"github.com/woozymasta/shp2geojson/internal/crs"
	"github.com/woozymasta/shp2geojson/internal/resolver"
)

// Annotate returns a copy of doc carrying the named CRS of res when embed
// is set and res is resolved, and a copy without any crs member otherwise.
// The info string names the CRS and tells whether it was embedded.
func Annotate(doc Document, res resolver.Result, embed bool, d crs.Descriptor) (Document, string) {
	name := crs.DefaultName
	if d != nil {
		name = d.Name()
	}

	out := doc
	out.CRS = nil

	if embed && res.Resolved() {
		out.CRS = NewNamedCRS(res.Code)
		return out, fmt.Sprintf("%s (EPSG:%d)", name, res.Code)
	}

	return out, name + " (CRS not embedded, GeoJSON default WGS84 applies)"
}
