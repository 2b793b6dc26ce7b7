// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/woozymasta/shp2geojson/internal/convert"
	"github.com/woozymasta/shp2geojson/internal/crs"
	"github.com/woozymasta/shp2geojson/internal/epsg"
	"github.com/woozymasta/shp2geojson/internal/geo"
	"github.com/woozymasta/shp2geojson/internal/shapefile"

	"github.com/rs/zerolog/log"
)

const (
	etagCap      = 32
	maxWKTSize   = 64 << 10
	extractRatio = 8 // extracted bytes allowed per uploaded byte limit
)

// ResolveResponse is the body of /api/resolve.
type ResolveResponse struct {
	Name       string `json:"name"`
	URN        string `json:"urn,omitempty"`
	Code       int    `json:"code,omitempty"`
	Confidence int    `json:"confidence"`
	Resolved   bool   `json:"resolved"`
	Exact      bool   `json:"exact"`
}

// CRSResponse describes a catalog entry.
type CRSResponse struct {
	Name      string `json:"name"`
	URN       string `json:"urn"`
	WKT       string `json:"wkt,omitempty"`
	Code      int    `json:"code"`
	Projected bool   `json:"projected"`
}

// HandleConvert converts a zipped shapefile posted as the request body.
// Query parameters: embed (bool), encoding, layer.
func (s *ServerContext) HandleConvert(w http.ResponseWriter, r *http.Request) {
	opts := s.Options
	q := r.URL.Query()
	if v := q.Get("embed"); v != "" {
		embed, err := strconv.ParseBool(v)
		if err != nil {
			httpError(w, http.StatusBadRequest, fmt.Errorf("invalid embed value %q", v))
			return
		}
		opts.EmbedCRS = embed
	}
	if v := q.Get("encoding"); v != "" {
		if _, _, err := shapefile.LookupEncoding(v); err != nil {
			httpError(w, http.StatusBadRequest, err)
			return
		}
		opts.Encoding = v
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.MaxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		httpError(w, http.StatusBadRequest, err)
		return
	}

	dir, err := os.MkdirTemp("", "shp2geojson-*")
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	shps, err := extractShapefiles(data, dir, s.MaxUpload*extractRatio)
	if err != nil {
		httpError(w, statusFor(err), err)
		return
	}
	src, err := pickLayer(shps, q.Get("layer"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	conv := convert.New(s.Catalog, opts)
	doc, rep, err := conv.Document(src)
	if err != nil {
		log.Debug().Err(err).Str("layer", filepath.Base(src)).Msg("Upload decode failed")
		httpError(w, statusFor(err), err)
		return
	}

	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".json"
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-CRS-Info", rep.Info)
	if rep.Result.Resolved() {
		w.Header().Set("X-EPSG-Code", strconv.Itoa(rep.Result.Code))
	}

	// Ignoring error as we cannot handle client disconnects
	_ = geo.Encode(w, doc)
}

// HandleResolve identifies the EPSG code of a WKT request body.
func (s *ServerContext) HandleResolve(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWKTSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		httpError(w, http.StatusBadRequest, fmt.Errorf("reading request body: %w", err))
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		httpError(w, http.StatusBadRequest, errors.New("empty WKT"))
		return
	}

	def, err := crs.Parse(text)
	if err != nil {
		def = crs.Opaque(text)
	}
	res := s.Resolver.Resolve(def)

	resp := ResolveResponse{
		Name:       def.Name(),
		Code:       res.Code,
		Confidence: res.Confidence,
		Resolved:   res.Resolved(),
		Exact:      res.Exact,
	}
	if res.Resolved() {
		resp.URN = geo.EPSGURN(res.Code)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCRS serves a single catalog entry: /api/crs/{code}.
func (s *ServerContext) HandleCRS(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(strings.ToUpper(r.PathValue("code")), "EPSG:")
	code, err := strconv.Atoi(raw)
	if err != nil || code <= 0 {
		http.NotFound(w, r)
		return
	}

	def, err := s.Catalog.Lookup(code)
	if errors.Is(err, epsg.ErrUnknownCode) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		httpError(w, http.StatusServiceUnavailable, err)
		return
	}

	etag := entryETag(code)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	entry := newCRSResponse(code, def)
	entry.WKT = def.WKT()
	writeJSON(w, http.StatusOK, entry)
}

// HandleCRSList serves the catalog index without WKT.
// Query parameter kind limits it to "geographic" or "projected".
func (s *ServerContext) HandleCRSList(w http.ResponseWriter, r *http.Request) {
	kinds := []crs.Kind{crs.KindGeographic, crs.KindProjected}
	switch k := r.URL.Query().Get("kind"); k {
	case "":
	case crs.KindGeographic.String():
		kinds = kinds[:1]
	case crs.KindProjected.String():
		kinds = kinds[1:]
	default:
		httpError(w, http.StatusBadRequest, fmt.Errorf("unknown kind %q", k))
		return
	}

	out := make([]CRSResponse, 0)
	for _, kind := range kinds {
		defs, err := s.Catalog.Candidates(kind)
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, err)
			return
		}
		for _, def := range defs {
			code, _ := def.EPSG()
			out = append(out, newCRSResponse(code, def))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func newCRSResponse(code int, def *crs.CRS) CRSResponse {
	return CRSResponse{
		Name:      def.Name(),
		URN:       geo.EPSGURN(code),
		Code:      code,
		Projected: def.IsProjected(),
	}
}

// entryETag tags catalog entries, which only change with the binary.
func entryETag(code int) string {
	buf := make([]byte, 0, etagCap)
	buf = append(buf, `"epsg-`...)
	buf = strconv.AppendInt(buf, int64(code), 10)
	buf = append(buf, '"')
	return string(buf)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadArchive),
		errors.Is(err, shapefile.ErrSourceDecode),
		errors.Is(err, shapefile.ErrSourceNotFound):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
