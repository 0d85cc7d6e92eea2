package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/sky-diorama/internal/api/http"
	"github.com/i474232898/sky-diorama/internal/scheduler"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the SkyDiorama HTTP API.

Cities, weather and generated dioramas are served under /api/v1. Stale weather
for every saved city is refreshed in the background. The server runs until
interrupted with Ctrl+C.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	// Scheduler that periodically refreshes stale weather.
	sched := scheduler.New(app.Config.RefreshInterval, app.Weather, app.Log)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	server := NewServer(app)

	go func() {
		app.Log.Info("listening", "port", app.Config.Port)
		if err := server.Listen(":" + app.Config.Port); err != nil {
			app.Log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		app.Log.Error("error during shutdown", "error", err)
	}
	return nil
}

// NewServer builds the Fiber app with middleware and routes.
func NewServer(app *App) *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:               "sky-diorama",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Generation can take as long as the outbound client allows.
		WriteTimeout: app.Config.HTTPTimeout + 10*time.Second,
		BodyLimit:    1 << 20,
		ErrorHandler: httpapi.NewErrorHandler(app.Log),
	})

	// Global middleware
	server.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	server.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	server.Use(recover.New())

	httpapi.RegisterRoutes(server, httpapi.Services{
		Weather:       app.Weather,
		Dioramas:      app.Dioramas,
		State:         app.State,
		GenerateLimit: app.Config.GeneratePerMinute,
	})
	return server
}
