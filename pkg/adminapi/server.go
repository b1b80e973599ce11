// Package adminapi exposes the administrator operations over HTTP.
//
// Every route except /healthz requires the X-Admin-ID header to carry the
// configured administrator id. Errors are returned as JSON objects with the
// request id so they can be matched against the server log.
package adminapi

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/orders"
	"github.com/nikixstore/storefront/pkg/runtime"
	"github.com/nikixstore/storefront/pkg/storefront"
)

// HeaderAdminID carries the caller's chat id.
const HeaderAdminID = "X-Admin-ID"

const requestIDKey = "request_id"

// Backend is the part of the storefront the API drives.
type Backend interface {
	IsAdmin(userID int64) bool
	Health(ctx context.Context) storefront.Health
	RebuildCache(ctx context.Context) error
	AdminOrder(ctx context.Context, displayID int64) (*orders.View, error)
	SetOrderStatus(ctx context.Context, displayID int64, status orders.Status) (*orders.StatusChange, error)
	OpenDrop(ctx context.Context, password, start, stop string) error
	CloseDrop(ctx context.Context) (int64, error)
	DropStatus(ctx context.Context) (models.DropInfo, error)
	ArticleSizes(article string) ([]string, bool)
}

var _ Backend = (*storefront.Service)(nil)

// Server is the admin HTTP server.
type Server struct {
	app     *fiber.App
	backend Backend
	log     *slog.Logger
}

// New builds the server and registers its routes.
func New(backend Backend, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{backend: backend, log: log}
	s.app = fiber.New(fiber.Config{
		ErrorHandler:          s.handleError,
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	s.app.Use(s.accessLog)

	s.app.Get("/healthz", s.health)

	v1 := s.app.Group("/v1", s.requireAdmin)
	v1.Post("/cache/rebuild", s.rebuildCache)
	v1.Get("/orders/:id", s.getOrder)
	v1.Post("/orders/:id/status", s.setOrderStatus)
	v1.Get("/drop", s.dropStatus)
	v1.Post("/drop/open", s.openDrop)
	v1.Post("/drop/close", s.closeDrop)
	v1.Get("/sizes/:article", s.articleSizes)
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("admin api listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	s.log.Info("admin request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"request_id", requestID(c),
		"took", time.Since(start),
	)
	return nil
}

func (s *Server) requireAdmin(c *fiber.Ctx) error {
	raw := strings.TrimSpace(c.Get(HeaderAdminID))
	if raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing "+HeaderAdminID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || !s.backend.IsAdmin(id) {
		return fiber.NewError(fiber.StatusForbidden, "not an administrator")
	}
	return c.Next()
}

func (s *Server) health(c *fiber.Ctx) error {
	h := s.backend.Health(c.UserContext())
	body := fiber.Map{"status": "ok", "store": "ok", "cache": "ok"}
	if h.Cache != nil {
		body["status"] = "degraded"
		body["cache"] = h.Cache.Error()
	}
	if !h.OK() {
		body["status"] = "down"
		body["store"] = h.Store.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	return c.JSON(body)
}

func (s *Server) rebuildCache(c *fiber.Ctx) error {
	if err := s.backend.RebuildCache(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rebuilt": true})
}

func (s *Server) getOrder(c *fiber.Ctx) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	v, err := s.backend.AdminOrder(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(newOrderResponse(v))
}

func (s *Server) setOrderStatus(c *fiber.Ctx) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var req struct {
		Status *int `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil || req.Status == nil {
		return fiber.NewError(fiber.StatusBadRequest, "body must be {\"status\": <code>}")
	}
	status, err := orders.ParseStatus(*req.Status)
	if err != nil {
		return err
	}
	change, err := s.backend.SetOrderStatus(c.UserContext(), id, status)
	if err != nil {
		return err
	}
	mirrors := make([]string, 0, len(change.Mirrors))
	for _, m := range change.Mirrors {
		mirrors = append(mirrors, m.Error())
	}
	return c.JSON(fiber.Map{
		"id":              change.DisplayID,
		"from":            int(change.From),
		"to":              int(change.To),
		"label":           change.To.Label(),
		"mirror_failures": mirrors,
	})
}

func (s *Server) dropStatus(c *fiber.Ctx) error {
	info, err := s.backend.DropStatus(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"password": info.Password,
		"start":    info.StartDate,
		"stop":     info.StopDate,
	})
}

func (s *Server) openDrop(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
		Start    string `json:"start"`
		Stop     string `json:"stop"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.backend.OpenDrop(c.UserContext(), req.Password, req.Start, req.Stop); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"opened": true, "start": req.Start, "stop": req.Stop})
}

func (s *Server) closeDrop(c *fiber.Ctx) error {
	n, err := s.backend.CloseDrop(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"closed": true, "products": n})
}

func (s *Server) articleSizes(c *fiber.Ctx) error {
	article := c.Params("article")
	labels, ok := s.backend.ArticleSizes(article)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no sizes cached for "+article)
	}
	return c.JSON(fiber.Map{"article": article, "sizes": labels})
}

func orderID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "order id must be a positive number")
	}
	return id, nil
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// statusFor maps domain errors onto HTTP codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case runtime.IsValidation(err), errors.Is(err, orders.ErrUnknownStatus):
		return fiber.StatusBadRequest
	case errors.Is(err, runtime.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, orders.ErrTransition), runtime.IsConflict(err):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.log.Error("admin request failed", "path", c.Path(), "request_id", requestID(c), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error":      err.Error(),
		"status":     code,
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": requestID(c),
	})
}
