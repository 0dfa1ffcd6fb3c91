package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/teoh/bintangbuddy/internal/api"
	"github.com/teoh/bintangbuddy/internal/bukza"
	"github.com/teoh/bintangbuddy/internal/config"
	"github.com/teoh/bintangbuddy/internal/limiter"
	"github.com/teoh/bintangbuddy/internal/logging"
	"github.com/teoh/bintangbuddy/internal/models"
	"github.com/teoh/bintangbuddy/internal/render"
	"github.com/teoh/bintangbuddy/internal/service"
	"github.com/teoh/bintangbuddy/internal/telemetry"
	"github.com/teoh/bintangbuddy/internal/timecodec"
	"github.com/teoh/bintangbuddy/internal/web"
)

const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitInterrupted = 130
)

// usageError marks failures caused by bad input rather than the environment
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// A missing .env file is fine
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("bintangbuddy", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "input error: %v\n", err)
		fmt.Fprintln(stderr, "Usage of bintangbuddy:")
		fs.PrintDefaults()
		return exitUsage
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return exitUsage
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return exitUsage
	}
	defer logger.Sync()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warn("telemetry.setup_failed", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("telemetry.shutdown_failed", zap.Error(err))
		}
	}()

	if cfg.Serve {
		if err := serve(ctx, cfg, logger); err != nil {
			fmt.Fprintf(stderr, "%s\n", describe(err))
			return exitCode(err)
		}
		return exitOK
	}

	if err := query(ctx, cfg, logger, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "%s\n", describe(err))
		return exitCode(err)
	}
	return exitOK
}

// query runs one lookup and renders it to stdout
func query(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdout, stderr io.Writer) error {
	loc, err := timecodec.LoadZone(cfg.Timezone)
	if err != nil {
		return usageError{err}
	}

	// Locations and date are checked before anything touches the network
	table := cfg.LocationTable()
	if _, err := table.Resolve(cfg.Gyms); err != nil {
		return usageError{err}
	}
	date := timecodec.StartOfDay(time.Now(), loc)
	if cfg.Date != "" {
		date, err = timecodec.ParseDate(cfg.Date, loc)
		if err != nil {
			return usageError{err}
		}
	}

	svc, closeFn, err := buildService(ctx, cfg, loc, table, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	progress := newProgressPrinter(stderr)
	svc.RegisterProgressCallback(progress.Print)

	matrix, err := svc.Find(ctx, service.Query{
		Date:      date,
		Locations: cfg.Gyms,
	})
	progress.Done()
	if err != nil {
		return err
	}

	if cfg.Format == "json" {
		return render.JSON(stdout, matrix, date)
	}
	return render.Table(stdout, matrix)
}

// serve runs the HTTP API until interrupted
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	loc, err := timecodec.LoadZone(cfg.Timezone)
	if err != nil {
		return usageError{err}
	}

	table := cfg.LocationTable()
	svc, closeFn, err := buildService(ctx, cfg, loc, table, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	broadcaster := web.NewProgressBroadcaster(logger)
	svc.RegisterProgressCallback(broadcaster.NotifyProgress)

	mux := api.SetupRoutes(svc, loc, broadcaster, logger, readinessChecks(svc)...)
	handler := otelhttp.NewHandler(web.HTTPProtocolMiddleware(api.Wrap(mux, logger)), telemetry.ServiceName)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disable write timeout for SSE connections
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("server.start",
			zap.String("port", cfg.Server.Port),
			zap.Strings("locations", table.Names()))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("error starting server: %w", err)

	case <-ctx.Done():
		logger.Info("server.shutdown")

		// First close the event streams so Shutdown is not held open by them
		broadcaster.Shutdown()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return fmt.Errorf("error shutting down server: %w", err)
		}

		logger.Info("server.stopped")
		return nil
	}
}

// pipeline bundles the service with the limiter it must release
type pipeline struct {
	*service.AvailabilityService
	limiter limiter.Limiter
}

// buildService acquires a token and wires client, limiter and service together.
// The returned func releases the limiter.
func buildService(ctx context.Context, cfg *config.Config, loc *time.Location, table models.LocationTable, logger *zap.Logger) (*pipeline, func(), error) {
	httpClient := bukza.NewHTTPClient()

	tokens := bukza.NewTokenManager(httpClient, cfg.Client, logger)
	if _, err := tokens.Token(ctx); err != nil {
		return nil, nil, err
	}

	lim, err := limiter.New(cfg.RateLimit, cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	logger.Debug("limiter.ready", zap.String("mode", limiter.Mode(lim)))
	closeFn := func() {}
	// Redis limiters hold a connection pool
	if closer, ok := lim.(interface{ Close() error }); ok {
		closeFn = func() {
			if err := closer.Close(); err != nil {
				logger.Warn("limiter.close_failed", zap.Error(err))
			}
		}
	}

	client := bukza.NewClient(cfg.Client,
		bukza.WithHTTPClient(httpClient),
		bukza.WithTokenManager(tokens),
		bukza.WithLimiter(lim),
		bukza.WithLogger(logger))
	fetcher := service.NewFetcher(client, cfg.Concurrency, loc, logger)
	svc := service.NewAvailabilityService(client, fetcher, table, logger)

	return &pipeline{AvailabilityService: svc, limiter: lim}, closeFn, nil
}

func readinessChecks(p *pipeline) []api.ReadinessCheck {
	if pinger, ok := p.limiter.(limiter.Pinger); ok {
		return []api.ReadinessCheck{{Name: "rate_limiter", Check: pinger.Ping}}
	}
	return nil
}

// describe names the stage an error came from
func describe(err error) string {
	var usage usageError
	switch {
	case errors.As(err, &usage):
		return fmt.Sprintf("input error: %v", err)
	case errors.Is(err, context.Canceled):
		return "interrupted"
	case errors.Is(err, bukza.ErrAuthUnavailable):
		return fmt.Sprintf("auth error: could not obtain a bearer token: %v", err)
	case errors.Is(err, service.ErrNoResourcesFound):
		return fmt.Sprintf("catalog error: %v", err)
	case errors.Is(err, bukza.ErrCatalogUnavailable):
		return fmt.Sprintf("catalog error: could not list courts: %v", err)
	case errors.Is(err, bukza.ErrScheduleUnavailable), errors.Is(err, timecodec.ErrMalformedTimestamp):
		return fmt.Sprintf("schedule error: could not read court schedules: %v", err)
	default:
		return fmt.Sprintf("error: %v", err)
	}
}

func exitCode(err error) int {
	var usage usageError
	switch {
	case errors.As(err, &usage), errors.Is(err, service.ErrNoResourcesFound):
		return exitUsage
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitError
	}
}
