package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/multierr"

	"wapistore/internal/config"
	"wapistore/internal/events"
	"wapistore/internal/http/handlers"
	applog "wapistore/internal/log"
	"wapistore/internal/metrics"
	"wapistore/internal/ratelimit"
	"wapistore/internal/repos"
	"wapistore/internal/upload"
)

func main() {
	if err := run(); err != nil {
		applog.Logger().Fatal().Err(err).Msg("server.exit")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Optional file logging
	var logFile *os.File
	out := io.Writer(os.Stdout)
	if cfg.LogFile != "" {
		logFile, err = os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			applog.Logger().Warn().Err(err).Str("log_file", cfg.LogFile).Msg("log.file.open")
		} else {
			out = io.MultiWriter(os.Stdout, logFile)
		}
	}
	applog.Setup(applog.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: out})
	lg := applog.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	db, err := repos.OpenDB(openCtx, cfg.DBDriver, cfg.DBDSN)
	cancel()
	if err != nil {
		return err
	}
	if err = repos.Seed(ctx, db, repos.SeedOptions{
		SuperAdminEmail:    cfg.SuperAdminEmail,
		SuperAdminPassword: cfg.SuperAdminPassword,
		SuperAdminName:     cfg.SuperAdminName,
		Demo:               cfg.SeedDemo,
	}); err != nil {
		return multierr.Append(err, db.Close())
	}

	ext := handlers.External{Metrics: metrics.New(), Checks: map[string]handlers.Pinger{}}

	var pub events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	ext.Events = pub

	if cfg.UploadsEnabled() {
		ext.Relay = upload.NewCloudinary(cfg.CloudinaryBaseURL, cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset)
	}

	var storage fiber.Storage
	var rdb *ratelimit.RedisStorage
	if cfg.RedisURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err = ratelimit.Dial(dialCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			return multierr.Combine(err, pub.Close(), db.Close())
		}
		storage = rdb
		ext.Checks["redis"] = rdb
	}

	deps := handlers.NewDeps(db, cfg, ext)
	app := handlers.NewApp(cfg, deps, storage, handlers.Limits{})

	serveErr := make(chan error, 1)
	go func() {
		lg.Info().Str("port", cfg.Port).Msg("server.listen")
		serveErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		lg.Info().Msg("server.shutdown")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = app.ShutdownWithContext(shutCtx)
		cancel()
	}

	err = multierr.Append(err, pub.Close())
	if rdb != nil {
		err = multierr.Append(err, rdb.Close())
	}
	err = multierr.Append(err, db.Close())
	if logFile != nil {
		err = multierr.Append(err, logFile.Close())
	}
	return dropCanceled(err)
}

// dropCanceled removes context.Canceled parts of a combined error and keeps
// every other failure.
func dropCanceled(err error) error {
	var kept []error
	for _, e := range multierr.Errors(err) {
		if !errors.Is(e, context.Canceled) {
			kept = append(kept, e)
		}
	}
	return multierr.Combine(kept...)
}
