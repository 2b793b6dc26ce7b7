// Package resolver identifies the EPSG code of a coordinate reference system.
//
// Resolution is best effort: every failure, from malformed WKT to an
// unavailable catalog, yields an unresolved Result instead of an error.
package resolver

import (
	"fmt"

	"github.com/woozymasta/shp2geojson/internal/crs"
	"github.com/woozymasta/shp2geojson/internal/epsg"

	"github.com/rs/zerolog/log"
)

// DefaultMinConfidence is the lowest fuzzy match confidence accepted.
const DefaultMinConfidence = crs.ConfidenceSameGrid

// Result is the outcome of a resolution. The zero value is unresolved.
type Result struct {
	Code       int  `json:"code,omitempty"`
	Confidence int  `json:"confidence"`
	Exact      bool `json:"exact"`
}

// Unresolved is the result reported when no EPSG code could be determined.
var Unresolved = Result{}

// Resolved reports whether r carries an EPSG code.
func (r Result) Resolved() bool {
	return r.Code > 0
}

func (r Result) String() string {
	if !r.Resolved() {
		return "unresolved"
	}
	return fmt.Sprintf("EPSG:%d", r.Code)
}

// Resolver matches CRS descriptors against an EPSG catalog.
type Resolver struct {
	catalog       epsg.Catalog
	minConfidence int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMinConfidence sets the confidence floor for fuzzy matches.
// Values outside 1..100 keep the default.
func WithMinConfidence(n int) Option {
	return func(r *Resolver) {
		if n > 0 && n <= 100 {
			r.minConfidence = n
		}
	}
}

// New returns a resolver over catalog. A nil catalog only resolves
// descriptors that carry their own authority code.
func New(catalog epsg.Catalog, opts ...Option) *Resolver {
	r := &Resolver{catalog: catalog, minConfidence: DefaultMinConfidence}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MinConfidence returns the fuzzy match floor in use.
func (r *Resolver) MinConfidence() int {
	return r.minConfidence
}

// Resolve returns the EPSG code identifying d. A code carried by the
// descriptor itself is returned without consulting the catalog.
func (r *Resolver) Resolve(d crs.Descriptor) Result {
	if d == nil {
		return Unresolved
	}
	if code, ok := d.EPSG(); ok && code > 0 {
		return Result{Code: code, Confidence: 100, Exact: true}
	}

	res, err := r.match(d)
	if err != nil {
		log.Debug().Err(err).Str("crs", d.Name()).Msg("CRS matching unavailable")
		return Unresolved
	}
	if !res.Resolved() {
		log.Debug().Str("crs", d.Name()).Int("min_confidence", r.minConfidence).Msg("No EPSG match above threshold")
	}
	return res
}

func (r *Resolver) match(d crs.Descriptor) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = Unresolved, fmt.Errorf("matching panicked: %v", p)
		}
	}()

	if r.catalog == nil {
		return Unresolved, fmt.Errorf("no EPSG catalog")
	}

	c, err := crs.Parse(d.WKT())
	if err != nil {
		return Unresolved, err
	}
	if c.Kind() == crs.KindUnknown {
		return Unresolved, nil
	}

	candidates, err := r.catalog.Candidates(c.Kind())
	if err != nil {
		return Unresolved, err
	}

	best, bestScore, tied := 0, 0, false
	for _, cand := range candidates {
		score := crs.Confidence(c, cand)
		if score == 0 || score < bestScore {
			continue
		}
		code, ok := cand.EPSG()
		if !ok {
			continue
		}
		switch {
		case score > bestScore:
			best, bestScore, tied = code, score, false
		case code < best:
			best, tied = code, true
		default:
			tied = true
		}
	}

	if best == 0 || bestScore < r.minConfidence {
		return Unresolved, nil
	}
	// equivalent definitions registered twice resolve to the lowest code,
	// weaker ties are ambiguous
	if tied && bestScore < crs.ConfidenceEquivalent {
		log.Debug().Str("crs", d.Name()).Int("confidence", bestScore).Msg("Ambiguous EPSG match")
		return Unresolved, nil
	}

	log.Debug().
		Str("crs", d.Name()).
		Int("epsg", best).
		Int("confidence", bestScore).
		Msg("EPSG code matched")
	return Result{Code: best, Confidence: bestScore}, nil
}
