package server

import (
	"net/http"

	"github.com/woozymasta/shp2geojson/internal/config"
	"github.com/woozymasta/shp2geojson/internal/convert"
	"github.com/woozymasta/shp2geojson/internal/epsg"
	"github.com/woozymasta/shp2geojson/internal/resolver"

	"github.com/rs/zerolog/log"
)

// DefaultMaxUpload is the upload limit in megabytes when none is configured.
const DefaultMaxUpload = 64

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config   *config.Config
	Catalog  epsg.Catalog
	Resolver *resolver.Resolver

	// Defaults applied to conversions, overridable per request.
	Options convert.Options

	// MaxUpload is the request body limit in bytes.
	MaxUpload int64
}

// NewServerContext builds the handler context from the configuration.
// The catalog is shared by all requests and must be safe for concurrent use.
func NewServerContext(cfg *config.Config, catalog epsg.Catalog) *ServerContext {
	if cfg == nil {
		cfg = &config.Config{}
	}

	maxUpload := cfg.Server.MaxUpload
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}

	opts := convert.Options{
		Encoding:      cfg.Encoding,
		MinConfidence: cfg.MinConfidence,
		EmbedCRS:      cfg.Embed(false),
	}

	r := resolver.New(catalog, resolver.WithMinConfidence(cfg.MinConfidence))

	log.Info().
		Bool("embed_crs", opts.EmbedCRS).
		Int("min_confidence", r.MinConfidence()).
		Str("encoding", opts.Encoding).
		Int64("max_upload_mb", maxUpload).
		Msg("Server context initialized")

	return &ServerContext{
		Config:    cfg,
		Catalog:   catalog,
		Resolver:  r,
		Options:   opts,
		MaxUpload: maxUpload << 20,
	}
}

// Routes returns the service handler wrapped in the request logger.
func (s *ServerContext) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/convert", s.HandleConvert)
	mux.HandleFunc("POST /api/resolve", s.HandleResolve)
	mux.HandleFunc("GET /api/crs", s.HandleCRSList)
	mux.HandleFunc("GET /api/crs/{code}", s.HandleCRS)

	return RequestLogger(mux)
}
