package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lemonberrylabs/equations/pkg/store"
)

func setupTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()
	s := store.New()
	return New(s, Options{}), s
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %s %s response %q: %v", method, path, data, err)
	}
	return resp.StatusCode, out
}

func errorReason(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	e, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	reason, _ := e["reason"].(string)
	return reason
}

func TestStoreEquation(t *testing.T) {
	srv, _ := setupTestServer(t)

	status, body := doJSON(t, srv, "POST", "/api/equations/store", `{"equation": "3x + 2y - z"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if body["message"] != "Equation stored successfully" {
		t.Errorf("message: got %v", body["message"])
	}
	if body["equationId"] != "1" {
		t.Errorf("equationId: got %v, want 1", body["equationId"])
	}
}

func TestStoreEquationRejectsInvalid(t *testing.T) {
	tests := []struct {
		body   string
		reason string
	}{
		{`{"equation": ""}`, "EmptyEquation"},
		{`{"equation": "(x + y"}`, "UnbalancedParentheses"},
		{`{"equation": "x + * y"}`, "ConsecutiveOperators"},
		{`{"equation": "x y"}`, "TooManyOperands"},
		{`{"equation": "x & y"}`, "InvalidCharacter"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			srv, s := setupTestServer(t)
			status, body := doJSON(t, srv, "POST", "/api/equations/store", tt.body)
			if status != 400 {
				t.Fatalf("expected 400, got %d", status)
			}
			if got := errorReason(t, body); got != tt.reason {
				t.Errorf("reason: got %q, want %q", got, tt.reason)
			}
			if list, _ := s.List(); len(list) != 0 {
				t.Errorf("nothing should be stored, got %d", len(list))
			}
		})
	}
}

func TestStoreEquationBadBody(t *testing.T) {
	srv, _ := setupTestServer(t)
	status, _ := doJSON(t, srv, "POST", "/api/equations/store", `{not json`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestListEquations(t *testing.T) {
	srv, _ := setupTestServer(t)
	doJSON(t, srv, "POST", "/api/equations/store", `{"equation": "3x + 2y - z"}`)
	doJSON(t, srv, "POST", "/api/equations/store", `{"equation": "x^2 + y^2"}`)

	status, body := doJSON(t, srv, "GET", "/api/equations", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	items, ok := body["equations"].([]interface{})
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 equations, got %v", body["equations"])
	}
	first := items[0].(map[string]interface{})
	if first["equationId"] != "1" || first["equation"] != "3x + 2y - z" {
		t.Errorf("first item: got %v", first)
	}
	second := items[1].(map[string]interface{})
	if second["equationId"] != "2" || second["equation"] != "x^2 + y^2" {
		t.Errorf("second item: got %v", second)
	}
}

func TestListEquationsEmpty(t *testing.T) {
	srv, _ := setupTestServer(t)
	_, body := doJSON(t, srv, "GET", "/api/equations", "")
	items, ok := body["equations"].([]interface{})
	if !ok || len(items) != 0 {
		t.Fatalf("expected empty list, got %v", body["equations"])
	}
}

func TestGetEquation(t *testing.T) {
	srv, _ := setupTestServer(t)
	doJSON(t, srv, "POST", "/api/equations/store", `{"equation": "x-(y-z)*w"}`)

	status, body := doJSON(t, srv, "GET", "/api/equations/1", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["canonical"] != "x - ((y - z) * w)" {
		t.Errorf("canonical: got %v", body["canonical"])
	}
	postfix, _ := body["postfix"].([]interface{})
	if len(postfix) != 7 {
		t.Errorf("postfix: got %v", body["postfix"])
	}
}

func TestEvaluateEquation(t *testing.T) {
	tests := []struct {
		equation string
		vars     string
		want     float64
	}{
		{"3x + 2y - z", `{"x": 2, "y": 3, "z": 1}`, 11},
		{"(x + y) * z", `{"x": 2, "y": 3, "z": 4}`, 20},
		{"x^2 + y^2", `{"x": 3, "y": 4}`, 25},
		{"2^3^2", `{}`, 64},
	}

	for _, tt := range tests {
		t.Run(tt.equation, func(t *testing.T) {
			srv, _ := setupTestServer(t)
			doJSON(t, srv, "POST", "/api/equations/store", `{"equation": "`+tt.equation+`"}`)

			status, body := doJSON(t, srv, "POST", "/api/equations/1/evaluate", `{"variables": `+tt.vars+`}`)
			if status != 200 {
				t.Fatalf("expected 200, got %d: %v", status, body)
			}
			if body["result"] != tt.want {
				t.Errorf("result: got %v, want %v", body["result"], tt.want)
			}
			if body["equation"] != tt.equation || body["equationId"] != "1" {
				t.Errorf("echo: got %v", body)
			}
			if _, ok := body["variables"].(map[string]interface{}); !ok {
				t.Errorf("variables: got %v", body["variables"])
			}
		})
	}
}

func TestEvaluateEquationErrors(t *testing.T) {
	tests := []struct {
		equation string
		vars     string
		code     int
		reason   string
	}{
		{"x / y", `{"x": 3, "y": 0}`, 400, "DivisionByZero"},
		{"x + y", `{"x": 2}`, 400, "UndefinedVariable"},
		{"x3 + 1", `{}`, 400, "MalformedOperand"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			srv, _ := setupTestServer(t)
			doJSON(t, srv, "POST", "/api/equations/store", `{"equation": "`+tt.equation+`"}`)

			status, body := doJSON(t, srv, "POST", "/api/equations/1/evaluate", `{"variables": `+tt.vars+`}`)
			if status != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, status)
			}
			if got := errorReason(t, body); got != tt.reason {
				t.Errorf("reason: got %q, want %q", got, tt.reason)
			}
		})
	}
}

func TestEvaluateNaNResult(t *testing.T) {
	srv, _ := setupTestServer(t)
	doJSON(t, srv, "POST", "/api/equations/store", `{"equation": "x ^ (1 / 2)"}`)

	status, body := doJSON(t, srv, "POST", "/api/equations/1/evaluate", `{"variables": {"x": -4}}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if body["result"] != "NaN" {
		t.Errorf("result: got %v, want \"NaN\"", body["result"])
	}
}

func TestEvaluateWithoutBody(t *testing.T) {
	srv, _ := setupTestServer(t)
	doJSON(t, srv, "POST", "/api/equations/store", `{"equation": "1 + 2"}`)

	status, body := doJSON(t, srv, "POST", "/api/equations/1/evaluate", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if body["result"] != float64(3) {
		t.Errorf("result: got %v, want 3", body["result"])
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := setupTestServer(t)

	for _, r := range []struct{ method, path, body string }{
		{"GET", "/api/equations/42", ""},
		{"POST", "/api/equations/42/evaluate", `{"variables": {}}`},
		{"DELETE", "/api/equations/42", ""},
	} {
		status, body := doJSON(t, srv, r.method, r.path, r.body)
		if status != 404 {
			t.Errorf("%s %s: expected 404, got %d", r.method, r.path, status)
			continue
		}
		if got := errorReason(t, body); got != "NotFound" {
			t.Errorf("%s %s: reason %q", r.method, r.path, got)
		}
	}
}

func TestDeleteEquation(t *testing.T) {
	srv, s := setupTestServer(t)
	doJSON(t, srv, "POST", "/api/equations/store", `{"equation": "x"}`)

	status, body := doJSON(t, srv, "DELETE", "/api/equations/1", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if list, _ := s.List(); len(list) != 0 {
		t.Errorf("expected empty store, got %d", len(list))
	}
}

func TestLoadSeedFile(t *testing.T) {
	srv, s := setupTestServer(t)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `equations:
  - "3x + 2y - z"
  - "x^2 + y^2"
  - "(x + y"
  - "x / y"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	n, err := srv.LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if n != 3 {
		t.Errorf("loaded: got %d, want 3", n)
	}
	list, _ := s.List()
	if len(list) != 3 || list[2].Text != "x / y" {
		t.Errorf("stored: got %v", list)
	}
}

func TestLoadSeedFileErrors(t *testing.T) {
	srv, _ := setupTestServer(t)

	if _, err := srv.LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("equations: [unclosed"), 0644)
	if _, err := srv.LoadSeedFile(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
