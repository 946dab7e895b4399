package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clob-engine/src/config"
	"clob-engine/src/engine"
	"clob-engine/src/handlers"
	"clob-engine/src/logger"
	"clob-engine/src/metrics"
	"clob-engine/src/routes"
	"clob-engine/src/stream"
)

func main() {
	logger.InitLogger()
	log := logger.GetLogger()

	log.Info().Msg("Initializing Order Matching Engine")

	settings, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	symbols, err := config.ParseSymbols(settings.Symbols)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse SYMBOLS")
	}

	eng := engine.NewEngine(engine.Config{
		Symbols:         symbols,
		RecentTradesCap: settings.RecentTradesCap,
		DefaultDepth:    settings.DefaultDepth,
	})

	m := metrics.New()

	hub := stream.NewHub()
	eng.Subscribe(hub)

	orderHandler := handlers.NewOrderHandler(eng, m)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Error().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("status", code).
				Str("error", err.Error()).
				Msg("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	routes.SetupRoutes(app, orderHandler)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	port := ":" + settings.Port

	streamPort := ":8081"
	if envStreamPort := os.Getenv("STREAM_PORT"); envStreamPort != "" {
		streamPort = ":" + envStreamPort
	}
	streamServer := &http.Server{Addr: streamPort, Handler: hub}

	serverError := make(chan error, 1)

	go func() {
		if err := app.Listen(port); err != nil {
			// edge case: ignore shutdown errors, only report real errors
			errStr := err.Error()
			if errStr != "server is shutting down" {
				serverError <- err
			}
		}
	}()

	go func() {
		if err := streamServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case err := <-serverError:
		log.Fatal().
			Err(err).
			Str("port", port).
			Str("hint", "Port may be already in use. Try: PORT=3000 go run main.go").
			Msg("Server failed to start")
	default:
		log.Info().
			Str("port", port).
			Str("stream_port", streamPort).
			Strs("symbols", eng.Symbols()).
			Msg("Order Matching Engine started")

		log.Info().
			Strs("endpoints", []string{
				"POST   /api/v1/orders",
				"DELETE /api/v1/orders/:id",
				"GET    /api/v1/orders/:id",
				"GET    /api/v1/orderbook/:symbol",
				"GET    /api/v1/bbo/:symbol",
				"GET    /api/v1/trades",
				"GET    /api/v1/symbols",
				"GET    /health",
				"GET    /metrics",
				"WS     " + streamPort + "/ (subscribe: trades, orderbook)",
			}).
			Msg("API endpoints registered")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info().Msg("Received shutdown signal, shutting down...")

	shutdownTimeout := 10 * time.Second
	if envTimeout := os.Getenv("SHUTDOWN_TIMEOUT"); envTimeout != "" {
		if parsed, err := time.ParseDuration(envTimeout); err == nil && parsed > 0 {
			shutdownTimeout = parsed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		// edge case: timeout during shutdown is acceptable
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Dur("timeout", shutdownTimeout).
				Msg("Timeout exceeded, shutting down...")
		} else {
			log.Error().
				Err(err).
				Msg("Error during shutdown")
		}
	} else {
		log.Info().Msg("Shutdown complete")
	}

	if err := streamServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Error during stream server shutdown")
	}

	logger.CloseLogger()
}
