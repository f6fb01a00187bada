package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-property-market/internal/app"
	"github.com/jrsteele09/go-property-market/internal/config"
	"github.com/jrsteele09/go-property-market/internal/logging"
	"github.com/jrsteele09/go-property-market/internal/store"
	"github.com/jrsteele09/go-property-market/mail"
	"github.com/jrsteele09/go-property-market/server"
)

const (
	janitorInterval      = 5 * time.Minute
	limiterSweepInterval = time.Minute
	shutdownTimeout      = 5 * time.Second
)

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	repos, err := store.Open(c)
	if err != nil {
		return err
	}
	defer closeWithLog("repositories", repos.Close)

	objects, media, err := store.OpenObjectStore(c)
	if err != nil {
		return err
	}

	publisher, err := store.OpenPublisher(c)
	if err != nil {
		return err
	}
	defer closeWithLog("event publisher", publisher.Close)

	a, err := app.Build(c, app.Deps{
		Repos:     repos,
		Objects:   objects,
		Mailer:    mail.New(c),
		Publisher: publisher,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opts []server.Option
	if media != nil {
		opts = append(opts, server.WithMediaHandler(media))
	}
	srv, err := server.New(ctx, c, a.Services, opts...)
	if err != nil {
		return err
	}

	go a.RunJanitor(ctx, janitorInterval)
	srv.Limiter().StartCleanup(ctx, limiterSweepInterval)

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func closeWithLog(name string, close func() error) {
	if err := close(); err != nil {
		log.Warn().Err(err).Msgf("failed to close %s", name)
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
