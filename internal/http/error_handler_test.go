package handlers_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"techstock/internal/http/handlers"
	"techstock/web"
)

const friendly = "Algo salió mal. Intente nuevamente."

func newErrorApp() *fiber.App {
	app := fiber.New(fiber.Config{
		Views:        web.Engine(),
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Get("/err", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "db timeout: secret trace")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("nil map write in secret handler")
	})
	app.Get("/api/v1/boom", func(c *fiber.Ctx) error {
		panic("nil map write in secret handler")
	})
	app.Get("/gone", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusGone, "batch expired")
	})
	return app
}

func get(t *testing.T, app *fiber.App, path string) *fiberResp {
	t.Helper()
	r, err := app.Test(httptest.NewRequest("GET", path, nil))
	if err != nil {
		t.Fatalf("test request failed: %v", err)
	}
	body, _ := io.ReadAll(r.Body)
	return &fiberResp{status: r.StatusCode, body: string(body)}
}

// friendly error surface, no internal leakage
func TestErrorHandlerFriendlyMessage(t *testing.T) {
	app := newErrorApp()

	var resp *fiberResp
	entries := captureLogs(t, func() { resp = get(t, app, "/err") })
	if resp.status != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.status)
	}
	if !strings.Contains(resp.body, friendly) {
		t.Fatalf("friendly message missing; body=%s", resp.body)
	}
	if strings.Contains(resp.body, "db timeout") || strings.Contains(resp.body, "secret") {
		t.Fatalf("internal details leaked to user; body=%s", resp.body)
	}
	if _, ok := findLog(entries, "server.error"); !ok {
		t.Fatalf("server.error not logged")
	}
}

// a panicking handler is answered, not fatal to the process
func TestErrorHandlerRecoversPanics(t *testing.T) {
	app := newErrorApp()

	for _, path := range []string{"/boom", "/api/v1/boom"} {
		var resp *fiberResp
		entries := captureLogs(t, func() { resp = get(t, app, path) })
		if resp.status != fiber.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", path, resp.status)
		}
		if !strings.Contains(resp.body, friendly) {
			t.Fatalf("%s: friendly message missing; body=%s", path, resp.body)
		}
		if strings.Contains(resp.body, "secret") {
			t.Fatalf("%s: panic value leaked; body=%s", path, resp.body)
		}
		if _, ok := findLog(entries, "server.error"); !ok {
			t.Fatalf("%s: server.error not logged", path)
		}
	}

	// the app keeps serving after a panic
	if resp := get(t, app, "/err"); resp.status != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 after recovery, got %d", resp.status)
	}
}

func TestErrorHandlerKeepsClientStatus(t *testing.T) {
	resp := get(t, newErrorApp(), "/gone")
	if resp.status != fiber.StatusGone {
		t.Fatalf("expected 410, got %d", resp.status)
	}
	if !strings.Contains(resp.body, "batch expired") {
		t.Fatalf("client message missing; body=%s", resp.body)
	}
}

type fiberResp struct {
	status int
	body   string
}

// templates auto-escape untrusted text
func TestTemplateAutoEscape(t *testing.T) {
	app := fiber.New(fiber.Config{Views: web.Engine()})
	app.Get("/x", func(c *fiber.Ctx) error {
		return c.Render("notfound", fiber.Map{"Message": "<script>alert(1)</script>"})
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	s := string(body)
	if strings.Contains(s, "<script>alert(1)</script>") {
		t.Fatalf("found unescaped script tag in output")
	}
	if !strings.Contains(s, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Fatalf("escaped script not found; output=%s", s)
	}
}
