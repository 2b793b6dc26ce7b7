package main

import (
	"fmt"
	"os"

	"github.com/woozymasta/shp2geojson/internal/convert"
	"github.com/woozymasta/shp2geojson/internal/geo"

	"github.com/rs/zerolog/log"
)

type ConvertCommand struct {
	Output     string `short:"o" long:"output"   description:"Output file for a single source, - for stdout"`
	Encoding   string `short:"e" long:"encoding" env:"SHP_ENCODING" description:"DBF text encoding, overrides the .cpg file"`
	NoEmbedCRS bool   `long:"no-embed-crs"       env:"NO_EMBED_CRS" description:"Never write the crs member"`
	Jobs       int    `short:"j" long:"jobs"     env:"JOBS" description:"Number of sources converted concurrently" default:"1"`

	Args struct {
		Sources []string `positional-arg-name:"SOURCE" required:"1"`
	} `positional-args:"yes"`
}

func (c *ConvertCommand) Execute(_ []string) error {
	if c.Output != "" && len(c.Args.Sources) > 1 {
		return fmt.Errorf("--output needs exactly one source, got %d", len(c.Args.Sources))
	}

	cfg, catalog, err := environment(&c.Encoding)
	if err != nil {
		return err
	}
	defer func() { _ = catalog.Close() }()

	conv := newConverter(catalog, cfg, c.Encoding, c.NoEmbedCRS)

	if c.Output == "-" {
		doc, rep, err := conv.Document(c.Args.Sources[0])
		if err != nil {
			return err
		}
		log.Info().Str("source", rep.Source).Int("features", rep.Features).Msg(rep.Info)
		return geo.Encode(os.Stdout, doc)
	}

	jobs := make([]convert.Job, 0, len(c.Args.Sources))
	for _, src := range c.Args.Sources {
		jobs = append(jobs, convert.Job{Source: src, Destination: c.Output})
	}

	failed := 0
	for _, o := range conv.ConvertAll(jobs, c.Jobs) {
		if o.Err != nil {
			failed++
			log.Error().Err(o.Err).Str("source", o.Source).Msg("Conversion failed")
			continue
		}
		fmt.Printf("%s -> %s: %s\n", o.Report.Source, o.Report.Destination, o.Report.Info)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(c.Args.Sources))
	}
	return nil
}
