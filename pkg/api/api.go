// Package api implements the REST API for storing, listing, and evaluating
// equations.
package api

import (
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/equations/pkg/expr"
	"github.com/lemonberrylabs/equations/pkg/store"
	"github.com/lemonberrylabs/equations/pkg/types"
)

// Options tunes the HTTP server.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// AccessLog enables per-request logging.
	AccessLog bool
}

// Server is the REST API server.
type Server struct {
	app   *fiber.App
	store store.Store
}

// New creates a new API server backed by s.
func New(s store.Store, opts Options) *Server {
	srv := &Server{store: s}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
	})
	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(logger.New())
	}

	app.Post("/api/equations/store", srv.storeEquation)
	app.Get("/api/equations", srv.listEquations)
	app.Get("/api/equations/:id", srv.getEquation)
	app.Post("/api/equations/:id/evaluate", srv.evaluateEquation)
	app.Delete("/api/equations/:id", srv.deleteEquation)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Equation Handlers ---

type storeEquationRequest struct {
	Equation string `json:"equation"`
}

type evaluateEquationRequest struct {
	Variables map[string]float64 `json:"variables"`
}

func (s *Server) storeEquation(c *fiber.Ctx) error {
	var req storeEquationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}

	tree, err := expr.Parse(req.Equation)
	if err != nil {
		return writeError(c, err)
	}

	eq, err := s.store.Create(req.Equation, tree)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":    "Equation stored successfully",
		"equationId": eq.ID,
	})
}

func (s *Server) listEquations(c *fiber.Ctx) error {
	equations, err := s.store.List()
	if err != nil {
		return writeError(c, err)
	}

	items := make([]fiber.Map, len(equations))
	for i, eq := range equations {
		items[i] = fiber.Map{
			"equationId": eq.ID,
			"equation":   eq.Text,
		}
	}

	return c.JSON(fiber.Map{
		"equations": items,
	})
}

func (s *Server) getEquation(c *fiber.Ctx) error {
	eq, err := s.store.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"equationId": eq.ID,
		"equation":   eq.Text,
		"canonical":  expr.Render(eq.Tree),
		"postfix":    expr.Postfix(eq.Tree),
		"createTime": eq.CreateTime.Format(time.RFC3339),
	})
}

func (s *Server) evaluateEquation(c *fiber.Ctx) error {
	eq, err := s.store.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	var req evaluateEquationRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Variables == nil {
		req.Variables = map[string]float64{}
	}

	result, err := expr.Evaluate(eq.Tree, expr.Bindings(req.Variables))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"equationId": eq.ID,
		"equation":   eq.Text,
		"variables":  req.Variables,
		"result":     jsonNumber(result),
	})
}

func (s *Server) deleteEquation(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.store.Delete(id); err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":    "Equation deleted successfully",
		"equationId": id,
	})
}

// --- Seed Loading ---

type seedFile struct {
	Equations []string `yaml:"equations"`
}

// LoadSeedFile stores every equation listed in a YAML (or JSON) file of the
// form {equations: [...]}. Entries that do not parse are logged and skipped.
// It returns the number of equations stored.
func (s *Server) LoadSeedFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	loaded := 0
	for i, text := range seed.Equations {
		tree, err := expr.Parse(text)
		if err != nil {
			log.Printf("Warning: skipping seed equation %d %q: %v", i+1, text, err)
			continue
		}
		eq, err := s.store.Create(text, tree)
		if err != nil {
			return loaded, fmt.Errorf("storing seed equation %q: %w", text, err)
		}
		loaded++
		log.Printf("Loaded equation %s: %s", eq.ID, expr.Render(tree))
	}

	log.Printf("Loaded %d equation(s) from %s", loaded, path)
	return loaded, nil
}

// --- Helpers ---

// jsonNumber keeps NaN and infinities representable in JSON.
func jsonNumber(f float64) interface{} {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return f
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(400).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    400,
			"message": msg,
			"status":  "INVALID_ARGUMENT",
		},
	})
}

// writeError maps domain errors to the JSON error envelope.
func writeError(c *fiber.Ctx, err error) error {
	ee, ok := types.AsExprError(err)
	if !ok {
		return c.Status(500).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    500,
				"message": err.Error(),
				"status":  "INTERNAL",
			},
		})
	}

	status := "INVALID_ARGUMENT"
	switch {
	case ee.Code == 404:
		status = "NOT_FOUND"
	case ee.Code >= 500:
		status = "INTERNAL"
	}

	body := fiber.Map{
		"code":    ee.Code,
		"message": ee.Message,
		"status":  status,
		"reason":  ee.Reason(),
	}
	if ee.Operand != "" {
		body["operand"] = ee.Operand
	}
	return c.Status(ee.Code).JSON(fiber.Map{"error": body})
}
