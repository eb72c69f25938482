package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/storelens/storelens/internal/config"
	dashboardHttp "github.com/storelens/storelens/internal/handler/http"
	"github.com/storelens/storelens/internal/pipeline"
)

func main() {
	once := flag.Bool("once", false, "run the pipeline and exit without serving the dashboard")
	envPath := flag.String("env", ".env", "path to an optional .env file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "storelens").Logger()

	log.Info().Msg("Storelens starting...")

	cfg, err := config.Load(*envPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log.Debug().Interface("config_loaded", cfg).Msg("Configuration loaded")

	run, err := pipeline.Execute(pipeline.Options{
		DataDir:       cfg.Data.Dir,
		ManifestPath:  cfg.Data.Manifest,
		OutputDir:     cfg.Output.Dir,
		Seed:          cfg.Train.Seed,
		MinRows:       cfg.Train.MinRows,
		TestFrac:      cfg.Train.TestFrac,
		RenderReports: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Pipeline failed")
	}
	log.Info().Str("run_id", run.ID).Dur("took", run.Duration).Msg("Pipeline finished")

	if *once {
		return
	}

	handler := dashboardHttp.NewDashboardHandler(run)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(dashboardHttp.RequestLogger)
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting dashboard server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Dashboard server stopped")
}
