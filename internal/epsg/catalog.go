// Package epsg provides EPSG catalogs used to identify coordinate reference systems.
package epsg

import (
	"errors"
	"fmt"

	"github.com/woozymasta/shp2geojson/internal/crs"

	"github.com/rs/zerolog/log"
)

// ErrUnknownCode is returned by Lookup for codes missing from a catalog.
var ErrUnknownCode = errors.New("unknown EPSG code")

// Catalog is a source of EPSG CRS definitions.
type Catalog interface {
	// Lookup returns the definition registered under code.
	Lookup(code int) (*crs.CRS, error)
	// Candidates returns every definition of the given kind.
	Candidates(kind crs.Kind) ([]*crs.CRS, error)
	// Close releases resources held by the catalog.
	Close() error
}

// Chain queries catalogs in order. Lookup returns the first hit;
// Candidates merges all catalogs, earlier catalogs winning on duplicate codes.
type Chain []Catalog

var _ Catalog = Chain(nil)

// Lookup implements Catalog.
func (c Chain) Lookup(code int) (*crs.CRS, error) {
	for _, cat := range c {
		def, err := cat.Lookup(code)
		if err == nil {
			return def, nil
		}
		if !errors.Is(err, ErrUnknownCode) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownCode, code)
}

// Candidates implements Catalog.
func (c Chain) Candidates(kind crs.Kind) ([]*crs.CRS, error) {
	seen := map[int]bool{}
	var out []*crs.CRS
	for _, cat := range c {
		defs, err := cat.Candidates(kind)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			code, _ := d.EPSG()
			if seen[code] {
				continue
			}
			seen[code] = true
			out = append(out, d)
		}
	}
	return out, nil
}

// Close implements Catalog and closes every member.
func (c Chain) Close() error {
	var errs []error
	for _, cat := range c {
		errs = append(errs, cat.Close())
	}
	return errors.Join(errs...)
}

// Open returns the built-in catalog, preceded by the proj.db at projDB when
// the path is set. An unusable proj.db is logged and skipped.
func Open(projDB string) Catalog {
	if projDB == "" {
		return Builtin()
	}

	db, err := OpenProjDB(projDB)
	if err != nil {
		log.Warn().Err(err).Str("path", projDB).Msg("Failed to open proj.db, using built-in EPSG catalog")
		return Builtin()
	}

	log.Debug().Str("path", projDB).Msg("Using proj.db EPSG catalog")
	return Chain{db, Builtin()}
}
