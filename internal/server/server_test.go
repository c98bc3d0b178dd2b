package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"macro-journal/pkg/logger"
)

type mockGenerator struct {
	generateFn func(ctx context.Context, prompt string) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt)
	}
	return "generated text", nil
}

func TestHandleGenerate_Success(t *testing.T) {
	s := NewServer("0", &mockGenerator{}, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/claude-snack", strings.NewReader(`{"prompt":"hi"}`))
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if out.Text != "generated text" {
		t.Errorf("text = %q", out.Text)
	}
}

func TestHandleGenerate_GeneratorFailure(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("upstream unavailable")
		},
	}
	s := NewServer("0", gen, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/claude-report", strings.NewReader(`{"prompt":"hi"}`))
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var out struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if out.Error == "" {
		t.Error("expected error message in body")
	}
}

func TestHandleGenerate_MissingPrompt(t *testing.T) {
	s := NewServer("0", &mockGenerator{}, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/claude-snack", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGenerate_MethodNotAllowed(t *testing.T) {
	s := NewServer("0", &mockGenerator{}, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/claude-snack", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s := NewServer("0", &mockGenerator{}, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
