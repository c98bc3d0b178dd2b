package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSnack_Success(t *testing.T) {
	var gotPath, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var in struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		gotPrompt = in.Prompt
		json.NewEncoder(w).Encode(map[string]string{"text": "Try some Greek yogurt."})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	text, err := c.Snack(context.Background(), "suggest a snack")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Try some Greek yogurt." {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/claude-snack" {
		t.Errorf("path = %q, want /claude-snack", gotPath)
	}
	if gotPrompt != "suggest a snack" {
		t.Errorf("prompt = %q", gotPrompt)
	}
}

func TestReport_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "Failed to generate report"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Report(context.Background(), "report please"); err == nil {
		t.Fatal("expected error on 5xx response")
	}
}

func TestGenerate_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Snack(context.Background(), "p"); err == nil {
		t.Fatal("expected error on malformed body")
	}
}

func TestGenerate_EmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": ""})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Snack(context.Background(), "p"); err == nil {
		t.Fatal("expected error on empty text")
	}
}
