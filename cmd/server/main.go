package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/woozymasta/geojsonkit/internal/config"
	"github.com/woozymasta/geojsonkit/internal/geo"
	"github.com/woozymasta/geojsonkit/internal/logger"
	"github.com/woozymasta/geojsonkit/internal/preview"
	"github.com/woozymasta/geojsonkit/internal/server"
	"github.com/woozymasta/geojsonkit/internal/service"
	"github.com/woozymasta/geojsonkit/internal/store"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string `short:"c" long:"config"       env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	EnvFile     string `short:"e" long:"env-file"     env:"ENV_FILE"       description:"Dotenv file loaded before parsing" default:".env"`
	Addr        string `short:"a" long:"addr"         env:"LISTEN_ADDRESS" description:"Address to listen on, overrides config"`
	Port        int    `short:"p" long:"port"         env:"LISTEN_PORT"    description:"Port to listen on, overrides config"`
	StoreDriver string `short:"s" long:"store"        env:"STORE_DRIVER"   description:"Store backend, overrides config" choice:"sqlite" choice:"redis"`
	MatchPolicy string `short:"m" long:"match-policy" env:"MATCH_POLICY"   description:"Duplicate detection, overrides config" choice:"geohash" choice:"exact"`
}

func main() {
	// env tags are resolved during parsing, so the dotenv file goes first
	_ = godotenv.Load(envFileFromArgs(os.Args[1:]))

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
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	applyOverrides(cfg, &opts)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	policy, err := geo.ParseMatchPolicy(cfg.Merge.MatchPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid match policy")
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := st.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate store")
	}

	svc := service.New(st,
		service.WithMatchPolicy(policy),
		service.WithPreview(preview.Options{Size: cfg.Preview.Size, Quality: cfg.Preview.Quality}),
	)
	srvCtx := server.NewServerContext(cfg, svc)

	listenAddr := fmt.Sprintf("%s:%d", cfg.Server.Addr, cfg.Server.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Routes(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listenAddr).
		Str("store", cfg.Store.Driver).
		Str("match_policy", policy.String()).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Web server stopped")
}

// applyOverrides lets flags and environment take precedence over the file.
func applyOverrides(cfg *config.Config, opts *Options) {
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	if opts.StoreDriver != "" {
		cfg.Store.Driver = opts.StoreDriver
	}
	if opts.MatchPolicy != "" {
		cfg.Merge.MatchPolicy = opts.MatchPolicy
	}
}

// envFileFromArgs finds -e/--env-file ahead of the flags parser.
func envFileFromArgs(args []string) string {
	for i, arg := range args {
		switch {
		case (arg == "-e" || arg == "--env-file") && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(arg, "--env-file="):
			return strings.TrimPrefix(arg, "--env-file=")
		}
	}
	if v := os.Getenv("ENV_FILE"); v != "" {
		return v
	}
	return ".env"
}
