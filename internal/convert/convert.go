// Package convert ties decoding, CRS resolution and annotation together
// into the shapefile to GeoJSON conversion.
package convert

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/woozymasta/shp2geojson/internal/crs"
	"github.com/woozymasta/shp2geojson/internal/epsg"
	"github.com/woozymasta/shp2geojson/internal/geo"
	"github.com/woozymasta/shp2geojson/internal/resolver"
	"github.com/woozymasta/shp2geojson/internal/shapefile"

	"github.com/rs/zerolog/log"
)

// Options controls a conversion.
type Options struct {
	// Encoding of DBF text, empty to use the .cpg file or UTF-8.
	Encoding string
	// MinConfidence is the fuzzy match floor, 0 for the default.
	MinConfidence int
	// EmbedCRS adds the named crs member when the EPSG code is resolved.
	EmbedCRS bool
}

// Converter converts shapefiles to GeoJSON documents.
type Converter struct {
	catalog  epsg.Catalog
	resolver *resolver.Resolver
	opts     Options
}

// New creates a converter resolving CRS codes against catalog.
func New(catalog epsg.Catalog, opts Options) *Converter {
	return &Converter{
		catalog:  catalog,
		resolver: resolver.New(catalog, resolver.WithMinConfidence(opts.MinConfidence)),
		opts:     opts,
	}
}

// Report summarizes a conversion.
type Report struct {
	Source      string          `json:"source"`
	Destination string          `json:"destination,omitempty"`
	CRS         string          `json:"crs"`
	Encoding    string          `json:"encoding"`
	ShapeType   string          `json:"shape_type"`
	Info        string          `json:"info"`
	Result      resolver.Result `json:"result"`
	Features    int             `json:"features"`
	Embedded    bool            `json:"embedded"`
}

// Document decodes src and returns the annotated GeoJSON document.
func (c *Converter) Document(src string) (geo.Document, *Report, error) {
	coll, err := shapefile.Decode(src, shapefile.Options{Encoding: c.opts.Encoding})
	if err != nil {
		return geo.Document{}, nil, err
	}

	d := coll.Descriptor()
	res := c.resolver.Resolve(d)
	doc, info := geo.Annotate(geo.NewDocument(coll.Features), res, c.opts.EmbedCRS, d)

	name := crs.DefaultName
	if d != nil {
		name = d.Name()
	}

	rep := &Report{
		Source:    src,
		CRS:       name,
		Encoding:  coll.Encoding,
		ShapeType: coll.ShapeType,
		Info:      info,
		Result:    res,
		Features:  len(doc.Features),
		Embedded:  doc.CRS != nil,
	}

	log.Debug().
		Str("source", src).
		Str("crs", name).
		Stringer("epsg", res).
		Int("confidence", res.Confidence).
		Bool("embedded", rep.Embedded).
		Msg("Annotated document")

	return doc, rep, nil
}

// Convert writes the GeoJSON document for src to dst.
// An empty dst writes next to the source, see DefaultOutput.
func (c *Converter) Convert(src, dst string) (*Report, error) {
	if dst == "" {
		dst = DefaultOutput(src)
	}

	doc, rep, err := c.Document(src)
	if err != nil {
		return nil, err
	}
	if err := geo.WriteFile(dst, doc); err != nil {
		return nil, err
	}
	rep.Destination = dst

	log.Info().
		Str("source", src).
		Str("destination", dst).
		Int("features", rep.Features).
		Str("crs", rep.Info).
		Msg("Shapefile converted")

	return rep, nil
}

// DefaultOutput returns the output path used when none is given:
// the source path with a .json extension.
func DefaultOutput(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".json"
}

// Projection describes the CRS of a shapefile.
type Projection struct {
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	WKT       string          `json:"wkt"`
	Result    resolver.Result `json:"result"`
	Projected bool            `json:"projected"`
	Present   bool            `json:"present"`
}

// Inspect reads the projection of src without decoding its records.
func (c *Converter) Inspect(src string) (*Projection, error) {
	if err := shapefile.Check(src); err != nil {
		return nil, err
	}
	def, err := shapefile.ReadProjection(src)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return &Projection{Name: crs.DefaultName, Kind: crs.KindUnknown.String()}, nil
	}

	return &Projection{
		Name:      def.Name(),
		Kind:      def.Kind().String(),
		WKT:       def.PrettyWKT(),
		Result:    c.resolver.Resolve(def),
		Projected: def.IsProjected(),
		Present:   true,
	}, nil
}

func (p *Projection) String() string {
	if !p.Present {
		return "No projection information available"
	}

	title := "Geographic"
	if p.Projected {
		title = "Projected"
	}
	code := "none"
	if p.Result.Resolved() {
		code = fmt.Sprintf("%d (confidence %d)", p.Result.Code, p.Result.Confidence)
	}

	return fmt.Sprintf("%s coordinate system: %s\nEPSG: %s\nWKT:\n%s", title, p.Name, code, p.WKT)
}
