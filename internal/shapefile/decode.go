// Package shapefile decodes ESRI shapefiles into GeoJSON features and a CRS descriptor.
package shapefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/woozymasta/shp2geojson/internal/crs"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSourceNotFound is returned when the shapefile is missing or unreadable.
	ErrSourceNotFound = errors.New("source not found")
	// ErrSourceDecode is returned when the shapefile cannot be decoded.
	ErrSourceDecode = errors.New("source decode failed")
)

// Options controls decoding.
type Options struct {
	// Encoding of DBF text. Empty uses the .cpg file, then UTF-8.
	Encoding string
}

// Collection is a decoded shapefile.
type Collection struct {
	// CRS read from the .prj file, nil when there is none.
	CRS       *crs.CRS
	Features  []*geojson.Feature
	Encoding  string
	ShapeType string
}

// Descriptor returns the CRS as a descriptor, nil when the shapefile has none.
func (c *Collection) Descriptor() crs.Descriptor {
	if c == nil || c.CRS == nil {
		return nil
	}
	return c.CRS
}

// Decode reads the shapefile at path together with its .dbf, .prj and .cpg
// companions.
func Decode(path string, opts Options) (*Collection, error) {
	if err := Check(path); err != nil {
		return nil, err
	}

	def, err := ReadProjection(path)
	if err != nil {
		return nil, err
	}

	label := opts.Encoding
	if label == "" {
		label, err = readCPG(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceDecode, err)
		}
	}
	enc, encName, err := LookupEncoding(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceDecode, err)
	}

	coll, err := decodeRecords(path, newDecoder(enc))
	if err != nil {
		return nil, err
	}
	coll.CRS = def
	coll.Encoding = encName

	log.Debug().
		Str("source", path).
		Str("shape", coll.ShapeType).
		Str("encoding", encName).
		Int("features", len(coll.Features)).
		Str("crs", def.Name()).
		Msg("Shapefile decoded")

	return coll, nil
}

// Check reports ErrSourceNotFound unless path is an existing .shp file.
func Check(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceNotFound, err)
	}
	if info.IsDir() || !strings.EqualFold(filepath.Ext(path), ".shp") {
		return fmt.Errorf("%w: %s is not a .shp file", ErrSourceNotFound, path)
	}
	return nil
}

// ReadProjection reads the .prj file next to path. It returns nil when there
// is none. WKT that cannot be parsed is kept as an opaque definition.
func ReadProjection(path string) (*crs.CRS, error) {
	prj, ok := sidecar(path, ".prj")
	if !ok {
		return nil, nil
	}

	data, err := os.ReadFile(prj)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceDecode, err)
	}
	text := strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff"))
	if text == "" {
		return nil, nil
	}

	def, err := crs.Parse(text)
	if err != nil {
		log.Warn().Err(err).Str("file", prj).Msg("Projection file is not valid WKT")
		return crs.Opaque(text), nil
	}
	return def, nil
}

func readCPG(path string) (string, error) {
	cpg, ok := sidecar(path, ".cpg")
	if !ok {
		return "", nil
	}
	data, err := os.ReadFile(cpg)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// hasDBF reports whether the attribute table go-shp reads exists.
func hasDBF(path string) bool {
	info, err := os.Stat(strings.TrimSuffix(path, filepath.Ext(path)) + ".dbf")
	return err == nil && !info.IsDir()
}

// sidecar finds a companion file with the given extension in either case.
func sidecar(path, ext string) (string, bool) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, candidate := range []string{base + ext, base + strings.ToUpper(ext)} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// decodeRecords reads every record. go-shp panics on some malformed
// inputs, so panics are reported as decode errors.
func decodeRecords(path string, dec decoder) (coll *Collection, err error) {
	defer func() {
		if p := recover(); p != nil {
			coll, err = nil, fmt.Errorf("%w: %s: %v", ErrSourceDecode, path, p)
		}
	}()

	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceDecode, err)
	}
	defer func() { _ = r.Close() }()

	coll = &Collection{
		ShapeType: shapeTypeName(r.GeometryType),
		Features:  []*geojson.Feature{},
	}

	var cols []field
	if hasDBF(path) {
		cols = fields(r.Fields(), dec)
	}

	for r.Next() {
		n, shape := r.Shape()

		g, err := geometry(shape)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrSourceDecode, n, err)
		}

		f := geojson.NewFeature(g)
		f.ID = strconv.Itoa(n)
		for i, col := range cols {
			f.Properties[col.name] = col.value(r.ReadAttribute(n, i), dec)
		}
		coll.Features = append(coll.Features, f)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceDecode, err)
	}

	return coll, nil
}

var shapeTypeNames = map[shp.ShapeType]string{
	shp.NULL:        "Null",
	shp.POINT:       "Point",
	shp.POLYLINE:    "PolyLine",
	shp.POLYGON:     "Polygon",
	shp.MULTIPOINT:  "MultiPoint",
	shp.POINTZ:      "PointZ",
	shp.POLYLINEZ:   "PolyLineZ",
	shp.POLYGONZ:    "PolygonZ",
	shp.MULTIPOINTZ: "MultiPointZ",
	shp.POINTM:      "PointM",
	shp.POLYLINEM:   "PolyLineM",
	shp.POLYGONM:    "PolygonM",
	shp.MULTIPOINTM: "MultiPointM",
	shp.MULTIPATCH:  "MultiPatch",
}

func shapeTypeName(t shp.ShapeType) string {
	if name, ok := shapeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type %d", t)
}
