package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/infonaytto/internal/api/http"
	"github.com/i474232898/infonaytto/internal/calendar"
	"github.com/i474232898/infonaytto/internal/config"
	"github.com/i474232898/infonaytto/internal/dashboard"
	"github.com/i474232898/infonaytto/internal/logging"
	"github.com/i474232898/infonaytto/internal/metrics"
	"github.com/i474232898/infonaytto/internal/platform"
	"github.com/i474232898/infonaytto/internal/scheduler"
	"github.com/i474232898/infonaytto/internal/settings"
)

const (
	shutdownTimeout = 10 * time.Second
	inboxSize       = 50
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	loc := cfg.Location()

	stored, err := settings.Open(cfg.SettingsPath, log)
	if err != nil {
		return fmt.Errorf("opening settings: %w", err)
	}
	userSettings := envKeySettings{Store: stored, apiKey: cfg.OpenWeatherAPIKey}

	cache, closeCache, err := openCache(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCache(); err != nil {
			log.Error().Err(err).Msg("closing cache")
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)

	tracker, err := scheduler.NewTracker(buildPolicies(cfg))
	if err != nil {
		return fmt.Errorf("building refresh policies: %w", err)
	}

	board := httpapi.NewBoard()
	inbox := platform.NewInbox(inboxSize)
	logNotifier := platform.NewLogNotifier(log)
	notifier := platform.Multi{inbox, logNotifier}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loop := dashboard.NewLoop(0)
	go loop.Run(loopCtx)

	coordinator, err := dashboard.NewCoordinator(loop, dashboard.CoordinatorConfig{
		Store:       cache,
		Schedule:    tracker,
		Fetchers:    buildFetchers(cfg),
		Presenter:   board,
		Notifier:    notifier,
		Widgets:     logNotifier,
		Settings:    userSettings,
		Metrics:     recorder,
		Rules:       dashboard.DefaultRules(cfg.AlertColdBelow, cfg.AlertHeatAbove),
		DefaultCity: cfg.City,
		Timeout:     cfg.FetchTimeout,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}
	coordinator.Restore()

	names, err := calendar.LoadNameDays(cfg.NameDaysPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.NameDaysPath).Msg("name days unavailable")
	}
	reminder := calendar.NewReminder(notifier, userSettings, names, log)

	sched := scheduler.New(cfg.TickInterval, loc, coordinator, reminder, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               "infonaytto",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "infonaytto",
			"version": version,
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Board:     board,
		Refresher: coordinator,
		Settings:  userSettings,
		NameDays:  names,
		Inbox:     inbox,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:    log,
		Now:       func() time.Time { return time.Now().In(loc) },
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := coordinator.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("in-flight fetches abandoned")
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during http shutdown")
	}
	stopLoop()
	return nil
}
