package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/shp2geojson/internal/config"
	"github.com/woozymasta/shp2geojson/internal/epsg"
	"github.com/woozymasta/shp2geojson/internal/logger"
	"github.com/woozymasta/shp2geojson/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"  env:"CONFIG_FILE"    description:"Path to optional configuration file"`
	Addr       string `short:"a" long:"addr"    env:"LISTEN_ADDRESS" description:"Address to listen on"`
	Port       int    `short:"p" long:"port"    env:"LISTEN_PORT"    description:"Port to listen on"`
	ProjDB     string `long:"proj-db"           env:"PROJ_DB"        description:"Path to a PROJ proj.db used as an additional EPSG catalog"`
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.LoadOptional(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if opts.Addr == "" {
		opts.Addr = cfg.Server.Addr
	}
	if opts.Addr == "" {
		opts.Addr = "0.0.0.0"
	}
	if opts.Port <= 0 {
		opts.Port = cfg.Server.Port
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	if opts.ProjDB == "" {
		opts.ProjDB = cfg.ProjDB
	}

	catalog := epsg.Open(opts.ProjDB)
	defer func() { _ = catalog.Close() }()

	srvCtx := server.NewServerContext(cfg, catalog)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Info().Msg("Shutting down")
		_ = srv.Close()
	}()

	log.Info().
		Str("addr", listenAddr).
		Str("proj_db", opts.ProjDB).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
