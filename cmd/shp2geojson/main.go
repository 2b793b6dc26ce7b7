package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/woozymasta/shp2geojson/internal/config"
	"github.com/woozymasta/shp2geojson/internal/convert"
	"github.com/woozymasta/shp2geojson/internal/epsg"
	"github.com/woozymasta/shp2geojson/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile    string `short:"c" long:"config"         env:"CONFIG_FILE"    description:"Path to optional configuration file"`
	ProjDB        string `long:"proj-db"                  env:"PROJ_DB"        description:"Path to a PROJ proj.db used as an additional EPSG catalog"`
	MinConfidence int    `short:"m" long:"min-confidence" env:"MIN_CONFIDENCE" description:"Lowest accepted fuzzy match confidence, 1-100"`
}

var opts Options

func main() {
	// .env is optional
	_ = godotenv.Load()

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		opts.Logger.Setup()
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	mustAddCommand(parser, "convert", "Convert shapefiles to GeoJSON",
		"Convert each shapefile to GeoJSON, embedding the EPSG code of its CRS when it can be identified.",
		&ConvertCommand{})
	mustAddCommand(parser, "info", "Show shapefile projection",
		"Print the coordinate system, EPSG code and WKT of each shapefile.",
		&InfoCommand{})
	mustAddCommand(parser, "resolve", "Identify the EPSG code of a WKT definition",
		"Resolve a WKT definition given inline or as a .prj file against the EPSG catalog.",
		&ResolveCommand{})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				fmt.Fprintln(os.Stdout, err)
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func mustAddCommand(p *flags.Parser, name, short, long string, data any) {
	if _, err := p.AddCommand(name, short, long, data); err != nil {
		panic(err)
	}
}

// environment merges the configuration file into the global options and
// opens the EPSG catalog.
func environment(encoding *string) (*config.Config, epsg.Catalog, error) {
	cfg, err := config.LoadOptional(opts.ConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	var unused string
	if encoding == nil {
		encoding = &unused
	}
	cfg.Apply(&opts.MinConfidence, encoding, &opts.ProjDB)

	if opts.MinConfidence < 0 || opts.MinConfidence > 100 {
		return nil, nil, fmt.Errorf("min confidence must be within 0..100, got %d", opts.MinConfidence)
	}

	return cfg, epsg.Open(opts.ProjDB), nil
}

func newConverter(catalog epsg.Catalog, cfg *config.Config, encoding string, noEmbed bool) *convert.Converter {
	return convert.New(catalog, convert.Options{
		Encoding:      encoding,
		MinConfidence: opts.MinConfidence,
		EmbedCRS:      cfg.Embed(noEmbed),
	})
}
