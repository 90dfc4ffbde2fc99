package api

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v3"

	"haruki-const-decrypter/config"
	"haruki-const-decrypter/report"
)

// ResolveRequest is the body of POST /modules/:name/resolve.
type ResolveRequest struct {
	Routine uint32 `json:"routine"`
	Arg0    uint32 `json:"arg0"`
	Arg1    uint32 `json:"arg1"`
}

// NewApp returns a fiber app using sonic for JSON.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		BodyLimit:   1024 * 1024,
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
	})
}

// RegisterRoutes registers all API routes
func RegisterRoutes(app *fiber.App, registry *Registry) {
	h := &handlers{registry: registry}
	app.Use(authorize)
	app.Get("/modules", h.listModules)
	app.Get("/modules/:name", h.getModule)
	app.Post("/modules/:name/resolve", h.resolve)
	app.Get("/modules/:name/report", h.report)
}

func authorize(c fiber.Ctx) error {
	if !config.Cfg.Backend.EnableAuthorization {
		return c.Next()
	}
	if prefix := config.Cfg.Backend.AcceptUserAgentPrefix; prefix != "" {
		if !strings.HasPrefix(c.Get("User-Agent"), prefix) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid User-Agent",
			})
		}
	}
	if token := config.Cfg.Backend.AcceptAuthorizationToken; token != "" {
		if c.Get("Authorization") != "Bearer "+token {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid authorization token",
			})
		}
	}
	return c.Next()
}

type handlers struct {
	registry *Registry
}

func notFound(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"message": "Module not found",
		"module":  c.Params("name"),
	})
}

func notProtected(c fiber.Ctx) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"message": "Module is not protected",
		"module":  c.Params("name"),
	})
}

func summary(e *Entry) fiber.Map {
	m := fiber.Map{
		"name":      e.Module.Name,
		"protected": e.Decrypter != nil,
	}
	if e.Decrypter != nil {
		m["version"] = e.Decrypter.Version().String()
		m["routines"] = len(e.Decrypter.Infos())
	}
	return m
}

func (h *handlers) listModules(c fiber.Ctx) error {
	var modules []fiber.Map
	for _, name := range h.registry.Names() {
		if e, ok := h.registry.Get(name); ok {
			modules = append(modules, summary(e))
		}
	}
	return c.JSON(fiber.Map{"modules": modules})
}

func (h *handlers) getModule(c fiber.Ctx) error {
	e, ok := h.registry.Get(c.Params("name"))
	if !ok {
		return notFound(c)
	}
	m := summary(e)
	if d := e.Decrypter; d != nil {
		var routines []fiber.Map
		for _, r := range report.Routines(d) {
			entry := fiber.Map{
				"token": fmt.Sprintf("0x%08X", r.Token),
				"name":  r.Name,
			}
			if r.Keys != nil {
				entry["keys"] = r.Keys
			}
			if r.Error != "" {
				entry["error"] = r.Error
			}
			routines = append(routines, entry)
		}
		m["routines"] = routines
		m["resource"] = d.ResourceName()
	}
	return c.JSON(m)
}

func (h *handlers) resolve(c fiber.Ctx) error {
	e, ok := h.registry.Get(c.Params("name"))
	if !ok {
		return notFound(c)
	}
	if e.Decrypter == nil {
		return notProtected(c)
	}
	var req ResolveRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request payload",
			"error":   err.Error(),
		})
	}
	constant, err := e.Decrypter.Resolve(req.Routine, req.Arg0, req.Arg1)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Failed to resolve constant",
			"error":   err.Error(),
		})
	}
	return c.JSON(constant)
}

func (h *handlers) report(c fiber.Ctx) error {
	e, ok := h.registry.Get(c.Params("name"))
	if !ok {
		return notFound(c)
	}
	if e.Decrypter == nil {
		return notProtected(c)
	}
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
	data, err := report.Encode(report.Scan(e.Decrypter), format)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to encode report",
			"error":   err.Error(),
		})
	}
	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.Send(data)
}
