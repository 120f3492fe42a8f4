// Package httpapi wires the fiber application: routes, middleware chain
// and the boundary error handler.
package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/dealdesk/dealdesk/internal/auth"
	"github.com/dealdesk/dealdesk/internal/config"
	"github.com/dealdesk/dealdesk/internal/logging"
)

// Deps carries everything the HTTP layer needs, constructed in cmd/server.
type Deps struct {
	Config *config.Config
	Logger logging.Logger

	Auth     *auth.Service
	Codec    *auth.Codec
	Denylist auth.TokenDenylist

	Files       FileStore
	Offers      DocumentStore
	Invitations DocumentStore
	Protocols   DocumentStore
}

// Server owns the fiber app.
type Server struct {
	app    *fiber.App
	cfg    *config.Config
	logger logging.Logger
}

// New builds the application with its full middleware chain and routes.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	app := fiber.New(fiber.Config{
		AppName:      "dealdesk",
		ErrorHandler: NewErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(deps.Config.Server.CORSOrigins, ","),
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))

	session := auth.RequireSession(auth.MiddlewareConfig{
		Denylist:      deps.Denylist,
		Codec:         deps.Codec,
		RefreshSecret: deps.Config.Auth.RefreshSecret,
		CookieName:    deps.Config.Auth.CookieName,
		Logger:        logger,
	})
	admin := auth.RequireAdmin()

	api := app.Group("/api")

	authH := newAuthHandlers(deps.Auth, deps.Config.Auth, logger)
	authGrp := api.Group("/auth", limiter.New(limiter.Config{
		Max:        deps.Config.Server.RateLimit,
		Expiration: deps.Config.Server.RateInterval,
	}))
	authGrp.Post("/register", authH.Register)
	authGrp.Post("/login", authH.Login)
	authGrp.Post("/logout", authH.Logout)
	authGrp.Get("/profile", session, authH.Profile)
	authGrp.Get("/refresh", session, authH.Refresh)

	mountDocuments(api.Group("/offers"), session, admin,
		newDocumentHandlers(deps.Offers, deps.Files, logger))
	mountDocuments(api.Group("/invitations"), session, admin,
		newDocumentHandlers(deps.Invitations, deps.Files, logger))
	mountDocuments(api.Group("/protocols"), session, admin,
		newDocumentHandlers(deps.Protocols, deps.Files, logger))

	return &Server{app: app, cfg: deps.Config, logger: logger}
}

func mountDocuments(g fiber.Router, session, admin fiber.Handler, h *documentHandlers) {
	g.Get("/", session, h.List)
	g.Get("/:id", session, h.Get)
	g.Post("/", session, admin, h.Create)
	g.Put("/:id", session, admin, h.Update)
	g.Delete("/:id", session, admin, h.Delete)
}

// App exposes the fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP until Shutdown.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info("listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func requestLogger(logger logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		logger.WithField("request_id", c.Locals(requestid.ConfigDefault.ContextKey)).
			Info("%s %s -> %d (%s)", c.Method(), c.Path(), c.Response().StatusCode(), time.Since(start))
		return err
	}
}
