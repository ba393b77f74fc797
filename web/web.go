// Package web provides the embedded web UI for browsing and evaluating
// stored equations.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/equations/pkg/expr"
	"github.com/lemonberrylabs/equations/pkg/store"
	"github.com/lemonberrylabs/equations/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	store   store.Store
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	Title string
	Data  interface{}
}

// New creates a new web UI handler.
func New(s store.Store) *Handler {
	return &Handler{
		store: s,
		funcMap: template.FuncMap{
			"canonical":  canonical,
			"timeAgo":    timeAgo,
			"formatTime": formatTime,
			"truncate":   truncate,
			"join":       strings.Join,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page, title string, data interface{}) error {
	// Each page is parsed with the layout on its own so that define blocks
	// from different pages never collide.
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pageData{Title: title, Data: data}); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.equationList)
	app.Get("/ui/equations/:id", h.equationDetail)
	app.Post("/ui/equations/:id", h.evaluate)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type equationListContent struct {
	Equations []*store.Equation
}

type variableInput struct {
	Name  string
	Value string
}

type evaluation struct {
	Result string
	Reason string
	Error  string
}

type equationDetailContent struct {
	Equation   *store.Equation
	Canonical  string
	Postfix    []string
	Variables  []variableInput
	Evaluation *evaluation
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) equationList(c *fiber.Ctx) error {
	equations, err := h.store.List()
	if err != nil {
		return c.Status(500).SendString(err.Error())
	}
	return h.render(c, "equation_list.html", "Equations", equationListContent{
		Equations: equations,
	})
}

func (h *Handler) equationDetail(c *fiber.Ctx) error {
	eq, err := h.store.Get(c.Params("id"))
	if err != nil {
		return h.notFound(c)
	}
	return h.render(c, "equation_detail.html", "Equation "+eq.ID, newDetail(eq))
}

// evaluate reads var_<name> form fields, evaluates the equation, and
// re-renders the detail page with the outcome.
func (h *Handler) evaluate(c *fiber.Ctx) error {
	eq, err := h.store.Get(c.Params("id"))
	if err != nil {
		return h.notFound(c)
	}

	detail := newDetail(eq)
	bindings := expr.Bindings{}
	result := &evaluation{}

	for i, v := range detail.Variables {
		raw := strings.TrimSpace(c.FormValue("var_" + v.Name))
		detail.Variables[i].Value = raw
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			result.Error = fmt.Sprintf("%s is not a number: %q", v.Name, raw)
			result.Reason = "InvalidInput"
			detail.Evaluation = result
			return h.render(c, "equation_detail.html", "Equation "+eq.ID, detail)
		}
		bindings[v.Name] = f
	}

	value, err := expr.Evaluate(eq.Tree, bindings)
	if err != nil {
		result.Error = err.Error()
		if ee, ok := types.AsExprError(err); ok {
			result.Error = ee.Message
			result.Reason = ee.Reason()
		}
	} else {
		result.Result = strconv.FormatFloat(value, 'g', -1, 64)
	}
	detail.Evaluation = result

	return h.render(c, "equation_detail.html", "Equation "+eq.ID, detail)
}

func (h *Handler) notFound(c *fiber.Ctx) error {
	return h.render(c, "not_found.html", "Not Found", notFoundContent{
		Message: fmt.Sprintf("Equation '%s' not found", c.Params("id")),
	})
}

func newDetail(eq *store.Equation) equationDetailContent {
	names := expr.Variables(eq.Tree)
	vars := make([]variableInput, len(names))
	for i, name := range names {
		vars[i] = variableInput{Name: name}
	}
	return equationDetailContent{
		Equation:  eq,
		Canonical: expr.Render(eq.Tree),
		Postfix:   expr.Postfix(eq.Tree),
		Variables: vars,
	}
}

// --- Template Helpers ---

func canonical(eq *store.Equation) string {
	return expr.Render(eq.Tree)
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
