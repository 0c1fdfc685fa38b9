package handlers_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func phoneFields() map[string]any {
	return map[string]any{
		"model":              "X1",
		"brand":              "Acme",
		"category":           "android",
		"purchase_price_usd": 100,
		"sale_price_usd":     150,
	}
}

// startAtSerials opens a session and walks it to the serial-entry step.
func startAtSerials(t *testing.T, app *fiber.App, op string) (string, string) {
	t.Helper()
	resp, body := call(t, app, "POST", "/api/v1/intake", op, nil)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("start expected 201, got %d", resp.StatusCode)
	}
	id, _ := body["id"].(string)
	base := "/api/v1/intake/" + id

	if resp, _ := call(t, app, "POST", base+"/variant", op, map[string]any{"variant": "Phone"}); resp.StatusCode != 200 {
		t.Fatalf("variant expected 200, got %d", resp.StatusCode)
	}
	if resp, _ := call(t, app, "PUT", base+"/common", op, map[string]any{"fields": phoneFields()}); resp.StatusCode != 200 {
		t.Fatalf("common expected 200, got %d", resp.StatusCode)
	}
	resp, view := call(t, app, "POST", base+"/common/submit", op, nil)
	if resp.StatusCode != 200 || view["state"] != "serial_entry" {
		t.Fatalf("submit common expected serial_entry, got %d %v", resp.StatusCode, view["state"])
	}
	units, _ := view["units"].([]any)
	if len(units) != 1 {
		t.Fatalf("expected one starting row, got %d", len(units))
	}
	first, _ := units[0].(map[string]any)["local_id"].(string)
	return base, first
}

func TestIntakeFlowEndToEnd(t *testing.T) {
	app := newIntakeApp(t)
	base, first := startAtSerials(t, app, "ana")

	resp, added := call(t, app, "POST", base+"/units", "ana", nil)
	if resp.StatusCode != 200 || added["added"] != true {
		t.Fatalf("add unit failed: %d %v", resp.StatusCode, added)
	}
	second, _ := added["local_id"].(string)

	call(t, app, "PUT", base+"/units/"+first, "ana", map[string]any{"serial": "AAAA1"})
	call(t, app, "PUT", base+"/units/"+second, "ana", map[string]any{"serial": "BBBB2", "overrides": map[string]any{"color": "Azul"}})

	if resp, view := call(t, app, "POST", base+"/units/submit", "ana", nil); resp.StatusCode != 200 || view["state"] != "confirm" {
		t.Fatalf("submit units expected confirm, got %d %v", resp.StatusCode, view)
	}

	_, sum := call(t, app, "GET", base+"/summary", "ana", nil)
	if items, _ := sum["items"].([]any); len(items) != 2 {
		t.Fatalf("summary expected 2 items, got %v", sum["items"])
	}

	resp, res := call(t, app, "POST", base+"/confirm", "ana", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("confirm expected 200, got %d", resp.StatusCode)
	}
	counts, _ := res["counts"].(map[string]any)
	if counts["successes"] != 2.0 || counts["failures"] != 0.0 {
		t.Fatalf("unexpected counts %v", counts)
	}

	resp, _ = call(t, app, "GET", base+"/report", "ana", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("report expected 200, got %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "carga-masiva-") {
		t.Fatalf("report not served as attachment: %q", cd)
	}
	raw, _ := io.ReadAll(resp.Body)
	report := string(raw)
	if !strings.HasPrefix(report, "REPORTE DE CARGA MASIVA\n") || !strings.Contains(report, "EXITOSOS: 2") || !strings.Contains(report, "Tipo: Phone") {
		t.Fatalf("unexpected report:\n%s", report)
	}

	id := strings.TrimPrefix(base, "/api/v1/intake/")
	resp, _ = call(t, app, "GET", "/intake/"+id+"/result", "ana", nil)
	page, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || !strings.Contains(string(page), "AAAA1") {
		t.Fatalf("result page missing serials: %d %s", resp.StatusCode, page)
	}

	_, stock := call(t, app, "GET", "/api/v1/stock/phones", "ana", nil)
	if rows, _ := stock["rows"].([]any); len(rows) != 2 {
		t.Fatalf("expected 2 stocked phones, got %v", stock["rows"])
	}
	_, hit := call(t, app, "GET", "/api/v1/stock/serial/bbbb2", "ana", nil)
	if hit["exists"] != true {
		t.Fatalf("serial lookup should find bbbb2: %v", hit)
	}

	if resp, view := call(t, app, "POST", base+"/reset", "ana", nil); resp.StatusCode != 200 || view["state"] != "type_select" {
		t.Fatalf("reset expected type_select, got %d %v", resp.StatusCode, view["state"])
	}
}

func TestIntakeSecondBatchSeesStoredSerials(t *testing.T) {
	app := newIntakeApp(t)
	base, first := startAtSerials(t, app, "ana")
	call(t, app, "PUT", base+"/units/"+first, "ana", map[string]any{"serial": "CCCC3"})
	call(t, app, "POST", base+"/units/submit", "ana", nil)
	call(t, app, "POST", base+"/confirm", "ana", nil)

	base2, first2 := startAtSerials(t, app, "beto")
	call(t, app, "PUT", base2+"/units/"+first2, "beto", map[string]any{"serial": "cccc3"})
	resp, body := call(t, app, "POST", base2+"/units/submit", "beto", nil)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for stored serial, got %d", resp.StatusCode)
	}
	units, _ := body["units"].(map[string]any)
	if units[first2] != "Este serial ya existe en el inventario" {
		t.Fatalf("unexpected unit errors %v", units)
	}
}

func TestIntakeGatesAndErrors(t *testing.T) {
	app := newIntakeApp(t)

	if resp, _ := call(t, app, "POST", "/api/v1/intake", "", nil); resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("missing operator expected 401, got %d", resp.StatusCode)
	}
	if resp, _ := call(t, app, "POST", "/api/v1/intake", "ana", map[string]any{"target": "bogus"}); resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("unknown target expected 400, got %d", resp.StatusCode)
	}

	_, body := call(t, app, "POST", "/api/v1/intake", "ana", map[string]any{"target": "qa_staging"})
	id, _ := body["id"].(string)
	base := "/api/v1/intake/" + id

	if resp, _ := call(t, app, "GET", base, "beto", nil); resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("foreign session expected 404, got %d", resp.StatusCode)
	}
	if resp, _ := call(t, app, "POST", base+"/confirm", "ana", nil); resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("confirm from type_select expected 409, got %d", resp.StatusCode)
	}
	if resp, _ := call(t, app, "POST", base+"/variant", "ana", map[string]any{"variant": "tablet"}); resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("unknown variant expected 400, got %d", resp.StatusCode)
	}

	call(t, app, "POST", base+"/variant", "ana", map[string]any{"variant": "notebook"})
	call(t, app, "PUT", base+"/common", "ana", map[string]any{"fields": map[string]any{"model": "T14"}})
	resp, errs := call(t, app, "POST", base+"/common/submit", "ana", nil)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("invalid common expected 422, got %d", resp.StatusCode)
	}
	fields, _ := errs["fields"].(map[string]any)
	if _, ok := fields["brand"]; !ok {
		t.Fatalf("expected brand error, got %v", errs)
	}
	if resp, _ := call(t, app, "GET", "/intake/"+id+"/result", "ana", nil); resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("result page before confirm expected 409, got %d", resp.StatusCode)
	}
}

func TestIntakeDuplicateRowsRejected(t *testing.T) {
	app := newIntakeApp(t)
	base, first := startAtSerials(t, app, "ana")
	_, added := call(t, app, "POST", base+"/units", "ana", nil)
	second, _ := added["local_id"].(string)

	call(t, app, "PUT", base+"/units/"+first, "ana", map[string]any{"serial": "AAAA1"})
	call(t, app, "PUT", base+"/units/"+second, "ana", map[string]any{"serial": "aaaa1"})
	resp, body := call(t, app, "POST", base+"/units/submit", "ana", nil)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("duplicates expected 422, got %d", resp.StatusCode)
	}
	units, _ := body["units"].(map[string]any)
	if len(units) != 2 {
		t.Fatalf("both rows should be flagged, got %v", units)
	}

	if resp, _ := call(t, app, "DELETE", base+"/units/"+second, "ana", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("remove expected 200, got %d", resp.StatusCode)
	}
	if resp, _ := call(t, app, "DELETE", base+"/units/"+first, "ana", nil); resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("removing last row expected 422, got %d", resp.StatusCode)
	}
}

func TestIntakeNonFinitePrices(t *testing.T) {
	app := newIntakeApp(t)

	_, body := call(t, app, "POST", "/api/v1/intake", "ana", nil)
	id, _ := body["id"].(string)
	base := "/api/v1/intake/" + id
	call(t, app, "POST", base+"/variant", "ana", map[string]any{"variant": "Phone"})
	bad := phoneFields()
	bad["purchase_price_usd"] = "NaN"
	call(t, app, "PUT", base+"/common", "ana", map[string]any{"fields": bad})
	resp, errs := call(t, app, "POST", base+"/common/submit", "ana", nil)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("NaN price expected 422, got %d", resp.StatusCode)
	}
	if fields, _ := errs["fields"].(map[string]any); fields["purchase_price_usd"] == nil {
		t.Fatalf("expected purchase_price_usd error, got %v", errs)
	}

	// overrides are not gated, so the summary must still render
	base, first := startAtSerials(t, app, "ana")
	call(t, app, "PUT", base+"/units/"+first, "ana", map[string]any{
		"serial":    "INF00001",
		"overrides": map[string]any{"sale_price_usd": "Inf"},
	})
	if resp, _ := call(t, app, "POST", base+"/units/submit", "ana", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("units submit expected 200, got %d", resp.StatusCode)
	}
	resp, sum := call(t, app, "GET", base+"/summary", "ana", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary expected 200, got %d", resp.StatusCode)
	}
	items, _ := sum["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one summary item, got %v", sum)
	}
	if got := items[0].(map[string]any)["sale_price"]; got != "0" {
		t.Fatalf("non-finite sale price should show as 0, got %v", got)
	}
}
