package rpc

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp returns a fiber app serving POST /rpc and GET /healthz
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "gert rpc",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
	})
	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"tools":  s.exposed,
		})
	})

	app.Post("/rpc", func(c *fiber.Ctx) error {
		resp := s.HandleBytes(c.UserContext(), c.Body())
		if resp == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(resp)
	})

	return app
}

// ServeHTTP listens on addr until ctx is done
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	app := s.NewApp()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Strs("tools", s.exposed).Msg("rpc http server listening")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("rpc http server shutting down")
		return app.ShutdownWithTimeout(5 * time.Second)
	}
}
